package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
)

// UpsertAttendance writes the record of one (student, session) key.
func (c *Client) UpsertAttendance(ctx context.Context, req dto.UpsertAttendanceRequest) (models.AttendanceRecord, error) {
	return call[models.AttendanceRecord](ctx, c, http.MethodPost, "/attendance", req)
}

// AttachJustification links an uploaded document to a record.
func (c *Client) AttachJustification(ctx context.Context, recordID, documentID string) (models.AttendanceRecord, error) {
	return call[models.AttendanceRecord](ctx, c, http.MethodPatch,
		"/attendance/"+escape(recordID)+"/justificatif/"+escape(documentID), nil)
}

func (c *Client) SessionAttendance(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	return get[[]models.AttendanceRecord](ctx, c, "/attendance/session/"+escape(sessionID), nil)
}

func (c *Client) StudentAttendance(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	return get[[]models.AttendanceRecord](ctx, c, "/attendance/etudiant/"+escape(studentID), nil)
}

// OpenSession asks the backend to record every roster student without a mark as absent.
func (c *Client) OpenSession(ctx context.Context, sessionID string, req dto.OpenSessionRequest) ([]models.AttendanceRecord, error) {
	return call[[]models.AttendanceRecord](ctx, c, http.MethodPost, "/attendance/session/"+escape(sessionID)+"/open", req)
}

// ExportSession downloads the attendance sheet of a session.
func (c *Client) ExportSession(ctx context.Context, sessionID, format string) ([]byte, string, error) {
	query := url.Values{}
	setIf(query, "format", format)
	resp, err := c.send(ctx, request{method: http.MethodGet, path: "/attendance/session/" + escape(sessionID) + "/export", query: query})
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// UploadEmargement sends a signed attendance sheet. XLSX sheets are imported
// into the ledger by a background job whose id is set on the returned document.
func (c *Client) UploadEmargement(ctx context.Context, sessionID, filename string, content io.Reader) (models.SessionDocument, error) {
	return c.upload(ctx, "/uploads/sessions/"+escape(sessionID)+"/emargements", filename, content)
}

// UploadJustification sends an absence justification document.
func (c *Client) UploadJustification(ctx context.Context, sessionID, filename string, content io.Reader) (models.SessionDocument, error) {
	return c.upload(ctx, "/uploads/sessions/"+escape(sessionID)+"/justificatifs", filename, content)
}

// ImportStatus polls an emargement import job.
func (c *Client) ImportStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	return get[jobs.Status](ctx, c, "/uploads/imports/"+escape(jobID), nil)
}

func (c *Client) upload(ctx context.Context, path, filename string, content io.Reader) (models.SessionDocument, error) {
	var doc models.SessionDocument
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return doc, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return doc, fmt.Errorf("copy upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return doc, fmt.Errorf("close multipart writer: %w", err)
	}
	_, err = c.do(ctx, request{method: http.MethodPost, path: path, body: buf, contentType: writer.FormDataContentType()}, &doc)
	return doc, err
}
