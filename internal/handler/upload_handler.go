package handler

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/service"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
	"github.com/noah-isme/cohort-ledger-api/pkg/response"
)

type uploadService interface {
	Upload(ctx context.Context, in service.UploadInput) (*models.SessionDocument, error)
	Get(ctx context.Context, id string) (*models.SessionDocument, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.SessionDocument, error)
	ImportStatus(id string) (jobs.Status, error)
	Download(ctx context.Context, token string) (io.ReadCloser, string, error)
}

// UploadHandler receives session documents.
type UploadHandler struct {
	uploads uploadService
}

// NewUploadHandler constructs UploadHandler.
func NewUploadHandler(uploads uploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Emargement godoc
// @Summary Upload a signed attendance sheet
// @Description Spreadsheet sheets (xlsx, csv) are imported into attendance in the background.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Sheet"
// @Param mode query string false "atomic or partialOnError"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /uploads/sessions/{id}/emargements [post]
func (h *UploadHandler) Emargement(c *gin.Context) {
	h.upload(c, models.DocumentEmargement)
}

// Justification godoc
// @Summary Upload an absence justification
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Router /uploads/sessions/{id}/justificatifs [post]
func (h *UploadHandler) Justification(c *gin.Context) {
	h.upload(c, models.DocumentJustification)
}

func (h *UploadHandler) upload(c *gin.Context, kind models.DocumentKind) {
	var opts dto.ImportOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Field("file", "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	doc, err := h.uploads.Upload(c.Request.Context(), service.UploadInput{
		SessionID:  c.Param("id"),
		Kind:       kind,
		Filename:   fileHeader.Filename,
		Size:       fileHeader.Size,
		Body:       src,
		UploadedBy: actorID(c),
		ImportMode: models.BulkOperationMode(opts.Mode),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if doc.ImportJobID != nil {
		response.Accepted(c, doc)
		return
	}
	response.Created(c, doc)
}

// ListSession godoc
// @Summary Documents uploaded for a session
// @Tags Uploads
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/sessions/{id} [get]
func (h *UploadHandler) ListSession(c *gin.Context) {
	docs, err := h.uploads.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Document godoc
// @Summary Get a document with a fresh download URL
// @Tags Uploads
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/documents/{id} [get]
func (h *UploadHandler) Document(c *gin.Context) {
	doc, err := h.uploads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// ImportStatus godoc
// @Summary State of an emargement import
// @Tags Uploads
// @Produce json
// @Param id path string true "Import job ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/imports/{id} [get]
func (h *UploadHandler) ImportStatus(c *gin.Context) {
	status, err := h.uploads.ImportStatus(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a document through a signed token
// @Tags Uploads
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /uploads/download [get]
func (h *UploadHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Field("token", "token is required"))
		return
	}
	rc, key, err := h.uploads.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", rc, nil)
}
