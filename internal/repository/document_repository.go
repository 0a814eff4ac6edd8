package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

const documentColumns = `id, session_id, kind, filename, content_type, size_bytes, storage_key, driver, uploaded_by, import_job_id, created_at`

// DocumentRepository stores metadata of files uploaded against sessions.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts document metadata.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.SessionDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO session_documents (id, session_id, kind, filename, content_type, size_bytes, storage_key, driver, uploaded_by, import_job_id, created_at)
VALUES (:id, :session_id, :kind, :filename, :content_type, :size_bytes, :storage_key, :driver, :uploaded_by, :import_job_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create session document: %w", err)
	}
	return nil
}

// FindByID fetches a document. It returns sql.ErrNoRows when missing.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.SessionDocument, error) {
	var doc models.SessionDocument
	query := fmt.Sprintf("SELECT %s FROM session_documents WHERE id = $1", documentColumns)
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListBySession returns the documents of a session, newest first.
func (r *DocumentRepository) ListBySession(ctx context.Context, sessionID string) ([]models.SessionDocument, error) {
	query := fmt.Sprintf("SELECT %s FROM session_documents WHERE session_id = $1 ORDER BY created_at DESC", documentColumns)
	docs := []models.SessionDocument{}
	if err := r.db.SelectContext(ctx, &docs, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session documents: %w", err)
	}
	return docs, nil
}

// SetImportJob records the import job started from an emargement sheet.
func (r *DocumentRepository) SetImportJob(ctx context.Context, id, jobID string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE session_documents SET import_job_id = $2 WHERE id = $1", id, jobID)
	if err != nil {
		return fmt.Errorf("set import job: %w", err)
	}
	return expectOne(res)
}

// Delete removes document metadata.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM session_documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete session document: %w", err)
	}
	return expectOne(res)
}
