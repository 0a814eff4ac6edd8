// Package storage persists uploaded session documents on the local
// filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/noah-isme/cohort-ledger-api/pkg/config"
)

const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

// ErrObjectNotFound is returned when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored file.
type Object struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	StoredAt    time.Time `json:"storedAt"`
}

// BlobStore is implemented by every storage driver.
type BlobStore interface {
	Driver() string
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// DownloadURL returns a time-limited URL for key.
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// New selects the driver configured in cfg. downloadBase is the public URL
// of the signed download route used by the filesystem driver.
func New(ctx context.Context, cfg config.UploadsConfig, downloadBase string) (BlobStore, error) {
	switch cfg.Driver {
	case "", DriverFS:
		signer := NewSignedURLSigner(cfg.SignedURLSecret, cfg.SignedURLTTL)
		return NewFileStore(cfg.StorageDir, signer, downloadBase)
	case DriverS3:
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
			URLTTL:    cfg.SignedURLTTL,
		})
	default:
		return nil, fmt.Errorf("unknown uploads driver %q", cfg.Driver)
	}
}

// SessionKey builds the object key of a document attached to a session.
func SessionKey(sessionID, kind, objectID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("sessions", sanitize(sessionID), kind, sanitize(objectID)+ext)
}

func sanitize(part string) string {
	part = strings.TrimSpace(part)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return replacer.Replace(part)
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
