package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/service"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/response"
)

type attendanceService interface {
	Upsert(ctx context.Context, req dto.UpsertAttendanceRequest, actor string) (*models.AttendanceRecord, error)
	AttachJustification(ctx context.Context, recordID, documentID string) (*models.AttendanceRecord, error)
	SessionAttendance(ctx context.Context, sessionID string) ([]models.AttendanceRecord, models.PresenceSummary, error)
	StudentAttendance(ctx context.Context, studentID string) ([]models.AttendanceRecord, models.PresenceSummary, error)
	OpenSession(ctx context.Context, sessionID string, req dto.OpenSessionRequest, actor string) ([]models.AttendanceRecord, error)
	Export(ctx context.Context, sessionID string, query dto.ExportQuery) (*service.ExportedSheet, error)
}

// AttendanceHandler exposes the attendance ledger.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Upsert godoc
// @Summary Record the status of a student at a session
// @Description Replaces any existing record of the (student, session) pair. A stale expectedVersion yields 409.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.UpsertAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	var req dto.UpsertAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.attendance.Upsert(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// AttachJustification godoc
// @Summary Link a justification document to an attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance record ID"
// @Param docId path string true "Justification document ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/justificatif/{docId} [patch]
func (h *AttendanceHandler) AttachJustification(c *gin.Context) {
	record, err := h.attendance.AttachJustification(c.Request.Context(), c.Param("id"), c.Param("docId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Session godoc
// @Summary Attendance of a session
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/session/{id} [get]
func (h *AttendanceHandler) Session(c *gin.Context) {
	records, summary, err := h.attendance.SessionAttendance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"presence": summary})
}

// Student godoc
// @Summary Attendance history of a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/etudiant/{id} [get]
func (h *AttendanceHandler) Student(c *gin.Context) {
	records, summary, err := h.attendance.StudentAttendance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"presence": summary})
}

// Open godoc
// @Summary Open a session roster
// @Description Creates an absent record for every roster student without one.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.OpenSessionRequest true "Roster"
// @Success 201 {object} response.Envelope
// @Router /attendance/session/{id}/open [post]
func (h *AttendanceHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.attendance.OpenSession(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Export godoc
// @Summary Export the attendance sheet of a session
// @Tags Attendance
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param format query string false "xlsx, csv or pdf" default(xlsx)
// @Success 200 {file} binary
// @Router /attendance/session/{id}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	sheet, err := h.attendance.Export(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, sheet.Filename, sheet.ContentType, sheet.Content)
}
