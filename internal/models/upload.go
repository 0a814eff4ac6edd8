package models

import "time"

// DocumentKind separates signed attendance sheets from absence justifications.
type DocumentKind string

const (
	DocumentEmargement    DocumentKind = "emargement"
	DocumentJustification DocumentKind = "justificatif"
)

// SessionDocument is a file uploaded against a session.
type SessionDocument struct {
	ID           string       `db:"id" json:"id"`
	SessionID    string       `db:"session_id" json:"sessionId"`
	Kind         DocumentKind `db:"kind" json:"type"`
	Filename     string       `db:"filename" json:"nomFichier"`
	ContentType  string       `db:"content_type" json:"contentType"`
	Size         int64        `db:"size_bytes" json:"taille"`
	StorageKey   string       `db:"storage_key" json:"-"`
	Driver       string       `db:"driver" json:"-"`
	UploadedBy   string       `db:"uploaded_by" json:"deposePar"`
	ImportJobID  *string      `db:"import_job_id" json:"importJobId,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	URL          string       `db:"-" json:"url,omitempty"`
	URLExpiresAt *time.Time   `db:"-" json:"urlExpiresAt,omitempty"`
}
