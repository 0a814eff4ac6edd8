package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/export"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
	"github.com/noah-isme/cohort-ledger-api/pkg/storage"
)

type sheetImporter interface {
	Import(ctx context.Context, sessionID string, rows [][]string, mode models.BulkOperationMode, actor string) (*models.AttendanceImportResult, error)
}

// RetryableImportError reports whether a failed import is worth another
// attempt. A rejected sheet fails the same way on every run.
func RetryableImportError(err error) bool {
	return !appErrors.IsValidation(err)
}

// ImportService runs emargement imports on the job queue.
type ImportService struct {
	store    storage.BlobStore
	importer sheetImporter
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(store storage.BlobStore, importer sheetImporter, metrics *MetricsService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{store: store, importer: importer, metrics: metrics, logger: logger}
}

// Handle is the jobs.Handler of the import queue. The returned import
// result becomes the job result.
func (s *ImportService) Handle(ctx context.Context, job jobs.Job) (any, error) {
	req, ok := job.Payload.(ImportRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	rows, err := s.readRows(ctx, req)
	if err != nil {
		s.metrics.RecordImportJob(string(jobs.StateFailed))
		return nil, err
	}
	result, err := s.importer.Import(ctx, req.SessionID, rows, req.Mode, req.Actor)
	if err != nil {
		s.metrics.RecordImportJob(string(jobs.StateFailed))
		return result, err
	}
	s.metrics.RecordImportJob(string(jobs.StateSucceeded))
	s.logger.Info("emargement imported",
		zap.String("session_id", req.SessionID),
		zap.String("document_id", req.DocumentID),
		zap.Int("applied", result.Applied),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

func (s *ImportService) readRows(ctx context.Context, req ImportRequest) ([][]string, error) {
	rc, err := s.store.Open(ctx, req.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", req.StorageKey, err)
	}
	defer rc.Close()
	if strings.HasPrefix(req.ContentType, "text/csv") {
		return export.ReadCSV(rc)
	}
	return export.ReadXLSX(rc)
}
