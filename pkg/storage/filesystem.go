package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps documents under a base directory and serves them through
// signed download tokens.
type FileStore struct {
	baseDir      string
	signer       *SignedURLSigner
	downloadBase string
}

// NewFileStore ensures the base directory exists and returns a handle.
func NewFileStore(baseDir string, signer *SignedURLSigner, downloadBase string) (*FileStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &FileStore{baseDir: baseDir, signer: signer, downloadBase: strings.TrimRight(downloadBase, "/")}, nil
}

// Driver identifies the filesystem driver.
func (s *FileStore) Driver() string { return DriverFS }

// Put copies r into the file addressed by key.
func (s *FileStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	target, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return Object{}, fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	size, err := io.Copy(file, r)
	if err != nil {
		return Object{}, fmt.Errorf("write upload stream: %w", err)
	}
	return Object{Key: key, Size: size, ContentType: contentType, StoredAt: time.Now().UTC()}, nil
}

// Open returns a read-only handle for the stored file.
func (s *FileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *FileStore) Delete(_ context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// DownloadURL signs key into a token for the download route.
func (s *FileStore) DownloadURL(_ context.Context, key string) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, fmt.Errorf("signed urls not configured")
	}
	token, expiresAt, err := s.signer.Sign(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.downloadBase + "?token=" + url.QueryEscape(token), expiresAt, nil
}

// Verify resolves a download token back to its key.
func (s *FileStore) Verify(token string) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("signed urls not configured")
	}
	key, _, err := s.signer.Verify(token)
	return key, err
}

func (s *FileStore) resolve(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}
