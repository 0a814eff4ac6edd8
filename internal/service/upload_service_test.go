package service

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
	"github.com/noah-isme/cohort-ledger-api/pkg/storage"
)

const emargementCSV = "studentId,statut\ns1,present\ns2,absent\n"

func newTestFileStore(t *testing.T) *storage.FileStore {
	store, err := storage.NewFileStore(t.TempDir(), storage.NewSignedURLSigner("secret", time.Minute), "http://localhost/api/v1/uploads/download")
	require.NoError(t, err)
	return store
}

func TestUploadServiceQueuesEmargementImport(t *testing.T) {
	store := newTestFileStore(t)
	docs := newFakeDocumentRepo()
	queue := &recordingQueue{}
	svc := NewUploadService(store, docs, queue, nil, UploadConfig{MaxFileSize: 1 << 10, AllowedMIMEs: []string{"text/csv", "application/pdf"}}, nil)

	doc, err := svc.Upload(context.Background(), UploadInput{
		SessionID:  "sess",
		Kind:       models.DocumentEmargement,
		Filename:   "../feuille.csv",
		Body:       strings.NewReader(emargementCSV),
		UploadedBy: "u1",
		ImportMode: models.BulkModeAtomic,
	})
	require.NoError(t, err)
	assert.Equal(t, "feuille.csv", doc.Filename)
	assert.Equal(t, int64(len(emargementCSV)), doc.Size)
	assert.True(t, strings.HasPrefix(doc.ContentType, "text/csv"))
	require.NotNil(t, doc.ImportJobID)
	assert.Equal(t, "job-1", *doc.ImportJobID)
	assert.NotEmpty(t, doc.URL)
	require.NotNil(t, doc.URLExpiresAt)

	require.Len(t, queue.submitted, 1)
	req := queue.submitted[0]
	assert.Equal(t, "sess", req.SessionID)
	assert.Equal(t, doc.ID, req.DocumentID)
	assert.Equal(t, models.BulkModeAtomic, req.Mode)
	assert.Equal(t, "job-1", *docs.docs[doc.ID].ImportJobID)

	status, err := svc.ImportStatus("job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StateQueued, status.State)
	_, err = svc.ImportStatus("job-2")
	assert.True(t, appErrors.IsNotFound(err))

	parsed, err := url.Parse(doc.URL)
	require.NoError(t, err)
	rc, key, err := svc.Download(context.Background(), parsed.Query().Get("token"))
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, emargementCSV, string(body))
	assert.Equal(t, doc.StorageKey, key)

	_, _, err = svc.Download(context.Background(), "forged")
	assert.True(t, appErrors.IsAuth(err))
}

func TestUploadServiceJustificationIsNotImported(t *testing.T) {
	queue := &recordingQueue{}
	svc := NewUploadService(newTestFileStore(t), newFakeDocumentRepo(), queue, nil, UploadConfig{MaxFileSize: 1 << 10}, nil)

	doc, err := svc.Upload(context.Background(), UploadInput{
		SessionID: "sess",
		Kind:      models.DocumentJustification,
		Filename:  "certificat.csv",
		Body:      strings.NewReader(emargementCSV),
	})
	require.NoError(t, err)
	assert.Nil(t, doc.ImportJobID)
	assert.Empty(t, queue.submitted)

	listed, err := svc.ListBySession(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotEmpty(t, listed[0].URL)
}

func TestUploadServiceRejectsOversizedAndUnsupportedFiles(t *testing.T) {
	store := newTestFileStore(t)
	docs := newFakeDocumentRepo()
	svc := NewUploadService(store, docs, nil, nil, UploadConfig{MaxFileSize: 16, AllowedMIMEs: []string{"text/csv"}}, nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{SessionID: "sess", Kind: models.DocumentEmargement, Filename: "a.csv", Size: 64, Body: strings.NewReader(emargementCSV)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(ctx, UploadInput{SessionID: "sess", Kind: models.DocumentEmargement, Filename: "a.csv", Body: strings.NewReader(emargementCSV)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)
	assert.Empty(t, docs.docs)

	_, err = svc.Upload(ctx, UploadInput{SessionID: "sess", Kind: models.DocumentEmargement, Filename: "a.txt", Body: strings.NewReader("hello")})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.Upload(ctx, UploadInput{SessionID: "sess", Kind: models.DocumentEmargement, Filename: "a.csv", Body: strings.NewReader("")})
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.Upload(ctx, UploadInput{Kind: models.DocumentEmargement, Filename: "a.csv", Body: strings.NewReader("x")})
	assert.True(t, appErrors.IsValidation(err))
}

func TestImportServiceHandle(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	key := storage.SessionKey("sess", string(models.DocumentEmargement), "d1", "feuille.csv")
	_, err := store.Put(ctx, key, strings.NewReader(emargementCSV), "text/csv")
	require.NoError(t, err)

	attendance, repo := newAttendanceFixture()
	svc := NewImportService(store, attendance, nil, nil)

	out, err := svc.Handle(ctx, jobs.Job{ID: "job-1", Kind: ImportJobKind, Payload: ImportRequest{
		SessionID:   "sess",
		DocumentID:  "d1",
		StorageKey:  key,
		ContentType: "text/csv; charset=utf-8",
		Actor:       "u1",
	}})
	require.NoError(t, err)
	result := out.(*models.AttendanceImportResult)
	assert.Equal(t, 2, result.Applied)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, models.AttendanceStatusAbsent, repo.records[models.AttendanceKey{StudentID: "s2", SessionID: "sess"}].Status)

	_, err = svc.Handle(ctx, jobs.Job{ID: "job-2", Payload: "garbage"})
	assert.Error(t, err)

	_, err = svc.Handle(ctx, jobs.Job{ID: "job-3", Payload: ImportRequest{SessionID: "sess", StorageKey: "sessions/missing.csv", ContentType: "text/csv"}})
	assert.Error(t, err)
}

func TestImportServiceAtomicRejectionIsNotRetried(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()
	key := storage.SessionKey("sess", string(models.DocumentEmargement), "d2", "feuille.csv")
	_, err := store.Put(ctx, key, strings.NewReader("studentId,statut\ns1,present\ns2,maybe\n"), "text/csv")
	require.NoError(t, err)

	attendance, repo := newAttendanceFixture()
	svc := NewImportService(store, attendance, nil, nil)

	_, err = svc.Handle(ctx, jobs.Job{ID: "job-4", Kind: ImportJobKind, Payload: ImportRequest{
		SessionID:   "sess",
		DocumentID:  "d2",
		StorageKey:  key,
		ContentType: "text/csv",
		Mode:        models.BulkModeAtomic,
		Actor:       "u1",
	}})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.False(t, RetryableImportError(err))
	assert.Empty(t, repo.records)

	_, err = svc.Handle(ctx, jobs.Job{ID: "job-5", Payload: ImportRequest{SessionID: "sess", StorageKey: "sessions/missing.csv", ContentType: "text/csv"}})
	require.Error(t, err)
	assert.True(t, RetryableImportError(err))
}
