package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/ledger"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/export"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, record models.AttendanceRecord, expectedVersion *int64) (*models.AttendanceRecord, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	AttachJustification(ctx context.Context, id, documentID string) (*models.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
	SessionSheet(ctx context.Context, sessionID string) ([]models.AttendanceSheetRow, error)
	OpenSession(ctx context.Context, sessionID string, studentIDs []string, recordedBy string) ([]models.AttendanceRecord, error)
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord, mode models.BulkOperationMode) (int, []models.AttendanceBulkConflict, error)
}

type attendanceDocumentReader interface {
	FindByID(ctx context.Context, id string) (*models.SessionDocument, error)
}

type attendanceCohortReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Cohort, error)
}

// AttendanceService writes and reads the attendance ledger.
type AttendanceService struct {
	repo       attendanceRepository
	documents  attendanceDocumentReader
	cohorts    attendanceCohortReader
	metrics    *MetricsService
	lateWeight float64
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs an AttendanceService. lateWeight is the
// share of a late mark counted as presence.
func NewAttendanceService(repo attendanceRepository, documents attendanceDocumentReader, cohorts attendanceCohortReader, metrics *MetricsService, lateWeight float64, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:       repo,
		documents:  documents,
		cohorts:    cohorts,
		metrics:    metrics,
		lateWeight: lateWeight,
		validator:  validate,
		logger:     logger,
	}
}

// Upsert stores the status of a student at a session, replacing any previous
// record of the pair. A stale expectedVersion yields CONFLICT.
func (s *AttendanceService) Upsert(ctx context.Context, req dto.UpsertAttendanceRequest, actor string) (*models.AttendanceRecord, error) {
	if err := dto.Validate(s.validator, req, "invalid attendance payload"); err != nil {
		return nil, err
	}
	req.Status = strings.ToLower(req.Status)
	record, err := s.repo.Upsert(ctx, nil, req.ToModel(actor), req.ExpectedVersion)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.RecordVersionConflict()
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance record was modified since it was read")
		}
		return nil, internal(err, "failed to save attendance")
	}
	s.metrics.RecordAttendanceWrite(string(record.Status))
	return record, nil
}

// AttachJustification links a justification document to a record. The
// document must be a justification uploaded for the record's session.
func (s *AttendanceService) AttachJustification(ctx context.Context, recordID, documentID string) (*models.AttendanceRecord, error) {
	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return nil, lookupErr(err, "attendance record not found", "failed to load attendance record")
	}
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return nil, lookupErr(err, "document not found", "failed to load document")
	}
	if doc.Kind != models.DocumentJustification {
		return nil, appErrors.Field("justificatifId", "document is not a justification")
	}
	if doc.SessionID != record.SessionID {
		return nil, appErrors.Field("justificatifId", "document belongs to another session")
	}
	updated, err := s.repo.AttachJustification(ctx, recordID, documentID)
	if err != nil {
		return nil, lookupErr(err, "attendance record not found", "failed to attach justification")
	}
	return updated, nil
}

// SessionAttendance returns the records of a session and their presence summary.
func (s *AttendanceService) SessionAttendance(ctx context.Context, sessionID string) ([]models.AttendanceRecord, models.PresenceSummary, error) {
	records, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, models.PresenceSummary{}, internal(err, "failed to load session attendance")
	}
	return records, ledger.Summarize(records, s.lateWeight), nil
}

// StudentAttendance returns the records of a student and their presence summary.
func (s *AttendanceService) StudentAttendance(ctx context.Context, studentID string) ([]models.AttendanceRecord, models.PresenceSummary, error) {
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, models.PresenceSummary{}, internal(err, "failed to load student attendance")
	}
	return records, ledger.Summarize(records, s.lateWeight), nil
}

// OpenSession marks every roster student without a record as absent. The
// roster is the explicit list when given, otherwise the cohort's.
func (s *AttendanceService) OpenSession(ctx context.Context, sessionID string, req dto.OpenSessionRequest, actor string) ([]models.AttendanceRecord, error) {
	if err := dto.Validate(s.validator, req, "invalid session roster"); err != nil {
		return nil, err
	}
	roster := req.StudentIDs
	if len(roster) == 0 {
		cohort, err := s.cohorts.FindByID(ctx, nil, req.CohortID)
		if err != nil {
			return nil, lookupErr(err, "cohort not found", "failed to load cohort")
		}
		roster = cohort.StudentIDs
	}
	created, err := s.repo.OpenSession(ctx, sessionID, roster, actor)
	if err != nil {
		return nil, internal(err, "failed to open session")
	}
	for range created {
		s.metrics.RecordAttendanceWrite(string(models.AttendanceStatusAbsent))
	}
	s.logger.Info("session opened", zap.String("session_id", sessionID), zap.Int("created", len(created)), zap.Int("roster", len(roster)))
	return created, nil
}

// ExportedSheet is a rendered attendance sheet.
type ExportedSheet struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Export renders the attendance sheet of a session.
func (s *AttendanceService) Export(ctx context.Context, sessionID string, query dto.ExportQuery) (*ExportedSheet, error) {
	if err := dto.Validate(s.validator, query, "invalid export format"); err != nil {
		return nil, err
	}
	renderer, err := export.NewRenderer(export.Format(query.Format))
	if err != nil {
		return nil, appErrors.Field("format", err.Error())
	}
	rows, err := s.repo.SessionSheet(ctx, sessionID)
	if err != nil {
		return nil, internal(err, "failed to load attendance sheet")
	}
	sheet := export.Sheet{
		Title:   "Emargement " + sessionID,
		Headers: []string{"studentId", "nom", "prenom", "statut", "commentaire", "justificatif", "version"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		sheet.Rows = append(sheet.Rows, []string{
			row.StudentID,
			row.LastName,
			row.FirstName,
			string(row.Status),
			deref(row.Comment),
			deref(row.JustificationID),
			strconv.FormatInt(row.Version, 10),
		})
	}
	content, err := renderer.Render(sheet)
	if err != nil {
		return nil, internal(err, "failed to render attendance sheet")
	}
	return &ExportedSheet{
		Filename:    export.Filename("emargement-"+sessionID, renderer.Format()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

// Import writes rows of an emargement sheet. Each row holds a student id, a
// status and an optional comment; a leading header row is skipped. Invalid
// rows are reported as conflicts; in atomic mode any conflict aborts the import.
func (s *AttendanceService) Import(ctx context.Context, sessionID string, rows [][]string, mode models.BulkOperationMode, actor string) (*models.AttendanceImportResult, error) {
	if mode == "" {
		mode = models.BulkModePartialOnError
	}
	result := &models.AttendanceImportResult{SessionID: sessionID, Conflicts: []models.AttendanceBulkConflict{}}
	records := make([]models.AttendanceRecord, 0, len(rows))
	lines := make([]int, 0, len(rows))
	for i, row := range rows {
		line := i + 1
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if blankRow(row) {
			continue
		}
		record, reason := parseImportRow(row)
		if reason != "" {
			result.Conflicts = append(result.Conflicts, models.AttendanceBulkConflict{Row: line, StudentID: record.StudentID, Reason: reason})
			continue
		}
		record.SessionID = sessionID
		record.RecordedBy = actor
		records = append(records, record)
		lines = append(lines, line)
	}
	if mode == models.BulkModeAtomic && len(result.Conflicts) > 0 {
		return result, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import rejected: %d invalid rows", len(result.Conflicts)))
	}

	applied, conflicts, err := s.repo.BulkUpsert(ctx, records, mode)
	for _, c := range conflicts {
		if c.Row >= 1 && c.Row <= len(lines) {
			c.Row = lines[c.Row-1]
		}
		result.Conflicts = append(result.Conflicts, c)
	}
	if err != nil {
		return result, internal(err, "failed to import attendance")
	}
	result.Applied = applied
	for _, record := range records {
		s.metrics.RecordAttendanceWrite(string(record.Status))
	}
	return result, nil
}

func parseImportRow(row []string) (models.AttendanceRecord, string) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	record := models.AttendanceRecord{
		StudentID: cell(0),
		Status:    models.AttendanceStatus(strings.ToLower(cell(1))),
	}
	if record.StudentID == "" {
		return record, "missing student id"
	}
	if !record.Status.Valid() {
		return record, fmt.Sprintf("unknown status %q", cell(1))
	}
	if comment := cell(2); comment != "" {
		record.Comment = &comment
	}
	return record, ""
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(row[0])) {
	case "studentid", "etudiantid", "etudiant", "student":
		return true
	}
	return false
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
