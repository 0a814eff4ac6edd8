package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
	"github.com/noah-isme/cohort-ledger-api/pkg/storage"
)

// ImportJobKind is the job kind of emargement sheet imports.
const ImportJobKind = "attendance_import"

const sniffLen = 3072

type documentRepository interface {
	Create(ctx context.Context, doc *models.SessionDocument) error
	FindByID(ctx context.Context, id string) (*models.SessionDocument, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.SessionDocument, error)
	SetImportJob(ctx context.Context, id, jobID string) error
}

type importQueue interface {
	Submit(kind string, payload any) (string, error)
	Status(id string) (jobs.Status, bool)
}

// tokenVerifier is implemented by blob stores serving signed download links.
type tokenVerifier interface {
	Verify(token string) (string, error)
}

// ImportRequest is the payload of an emargement import job.
type ImportRequest struct {
	SessionID   string                   `json:"sessionId"`
	DocumentID  string                   `json:"documentId"`
	StorageKey  string                   `json:"storageKey"`
	ContentType string                   `json:"contentType"`
	Mode        models.BulkOperationMode `json:"mode"`
	Actor       string                   `json:"actor"`
}

// UploadConfig bounds accepted files.
type UploadConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// UploadService stores session documents and starts sheet imports.
type UploadService struct {
	store   storage.BlobStore
	docs    documentRepository
	queue   importQueue
	metrics *MetricsService
	cfg     UploadConfig
	logger  *zap.Logger
}

// NewUploadService constructs an UploadService. A nil queue disables imports.
func NewUploadService(store storage.BlobStore, docs documentRepository, queue importQueue, metrics *MetricsService, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{store: store, docs: docs, queue: queue, metrics: metrics, cfg: cfg, logger: logger}
}

// UploadInput describes an incoming file.
type UploadInput struct {
	SessionID  string
	Kind       models.DocumentKind
	Filename   string
	Size       int64
	Body       io.Reader
	UploadedBy string
	ImportMode models.BulkOperationMode
}

// Upload checks size and content type, stores the file and records its
// metadata. Spreadsheet emargements are queued for import into attendance.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*models.SessionDocument, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, appErrors.Field("sessionId", "required")
	}
	if in.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	head = head[:n]
	if n == 0 {
		return nil, appErrors.Field("file", "empty file")
	}
	detected := mimetype.Detect(head)
	if !s.allowed(detected) {
		return nil, appErrors.Field("file", "unsupported content type "+detected.String())
	}

	doc := &models.SessionDocument{
		ID:          uuid.NewString(),
		SessionID:   in.SessionID,
		Kind:        in.Kind,
		Filename:    path.Base(in.Filename),
		ContentType: detected.String(),
		UploadedBy:  in.UploadedBy,
		Driver:      s.store.Driver(),
	}
	doc.StorageKey = storage.SessionKey(in.SessionID, string(in.Kind), doc.ID, in.Filename)

	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), in.Body), s.cfg.MaxFileSize+1)
	obj, err := s.store.Put(ctx, doc.StorageKey, body, doc.ContentType)
	if err != nil {
		return nil, internal(err, "failed to store file")
	}
	if obj.Size > s.cfg.MaxFileSize {
		_ = s.store.Delete(ctx, doc.StorageKey)
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSize))
	}
	doc.Size = obj.Size
	if err := s.docs.Create(ctx, doc); err != nil {
		_ = s.store.Delete(ctx, doc.StorageKey)
		return nil, internal(err, "failed to record document")
	}
	s.metrics.RecordUpload(string(doc.Kind), doc.Size)

	if doc.Kind == models.DocumentEmargement && importable(detected) && s.queue != nil {
		jobID, err := s.queue.Submit(ImportJobKind, ImportRequest{
			SessionID:   doc.SessionID,
			DocumentID:  doc.ID,
			StorageKey:  doc.StorageKey,
			ContentType: doc.ContentType,
			Mode:        in.ImportMode,
			Actor:       in.UploadedBy,
		})
		if err != nil {
			s.logger.Warn("emargement import not queued", zap.String("document_id", doc.ID), zap.Error(err))
		} else if err := s.docs.SetImportJob(ctx, doc.ID, jobID); err != nil {
			s.logger.Warn("import job not recorded", zap.String("document_id", doc.ID), zap.Error(err))
		} else {
			doc.ImportJobID = &jobID
		}
	}
	s.withURL(ctx, doc)
	return doc, nil
}

// Get returns a document with a fresh download URL.
func (s *UploadService) Get(ctx context.Context, id string) (*models.SessionDocument, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "document not found", "failed to load document")
	}
	s.withURL(ctx, doc)
	return doc, nil
}

// ListBySession returns the documents of a session with download URLs.
func (s *UploadService) ListBySession(ctx context.Context, sessionID string) ([]models.SessionDocument, error) {
	docs, err := s.docs.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, internal(err, "failed to list documents")
	}
	for i := range docs {
		s.withURL(ctx, &docs[i])
	}
	return docs, nil
}

// ImportStatus reports the state of an import job.
func (s *UploadService) ImportStatus(id string) (jobs.Status, error) {
	if s.queue == nil {
		return jobs.Status{}, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
	}
	status, ok := s.queue.Status(id)
	if !ok {
		return jobs.Status{}, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
	}
	return status, nil
}

// Download resolves a signed token issued by the filesystem driver.
func (s *UploadService) Download(ctx context.Context, token string) (io.ReadCloser, string, error) {
	verifier, ok := s.store.(tokenVerifier)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "signed downloads are not served by this driver")
	}
	key, err := verifier.Verify(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link")
	}
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, "", internal(err, "failed to open file")
	}
	return rc, key, nil
}

func (s *UploadService) withURL(ctx context.Context, doc *models.SessionDocument) {
	url, expires, err := s.store.DownloadURL(ctx, doc.StorageKey)
	if err != nil {
		s.logger.Warn("download url unavailable", zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	doc.URL = url
	if !expires.IsZero() {
		exp := expires.UTC().Truncate(time.Second)
		doc.URLExpiresAt = &exp
	}
}

func (s *UploadService) allowed(detected *mimetype.MIME) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		for m := detected; m != nil; m = m.Parent() {
			if m.Is(strings.TrimSpace(allowed)) {
				return true
			}
		}
	}
	return false
}

func importable(detected *mimetype.MIME) bool {
	return detected.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") || detected.Is("text/csv")
}
