package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/pkg/config"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

type backend struct {
	mu      sync.Mutex
	tokens  []string
	upserts []dto.UpsertAttendanceRequest
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/cohortes", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.tokens = append(b.tokens, r.Header.Get("Authorization"))
		b.mu.Unlock()
		writeData(w, http.StatusOK, []models.Cohort{
			{ID: "c1", Name: "BTS SIO", Status: models.CohortStatusActive, PlannedHeadcount: 1, EnrolledHeadcount: 2, StudentIDs: []string{"s1", "s2"}},
			{ID: "c2", Name: "Bachelor", Status: models.CohortStatusClosed},
		})
	})
	mux.HandleFunc("GET /api/v1/etudiants", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []models.Student{
			{ID: "s1", FirstName: "Lina", LastName: "Martin", Email: "lina@example.com", Status: models.EnrollmentEnrolled},
		})
	})
	mux.HandleFunc("GET /api/v1/intervenants", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []models.Instructor{})
	})
	mux.HandleFunc("GET /api/v1/modules", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []models.Module{})
	})
	mux.HandleFunc("GET /api/v1/attendance/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []models.AttendanceRecord{})
	})
	mux.HandleFunc("POST /api/v1/attendance", func(w http.ResponseWriter, r *http.Request) {
		var req dto.UpsertAttendanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.upserts = append(b.upserts, req)
		b.mu.Unlock()
		if req.StudentID == "ghost" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": appErrors.Clone(appErrors.ErrNotFound, "student not found")})
			return
		}
		writeData(w, http.StatusOK, models.AttendanceRecord{
			ID:        "a-" + req.StudentID,
			StudentID: req.StudentID,
			SessionID: req.SessionID,
			Status:    models.AttendanceStatus(req.Status),
			Version:   1,
		})
	})
	return mux
}

func newTestConfig(baseURL string) *config.Config {
	return &config.Config{
		Client:     config.ClientConfig{BaseURL: baseURL + "/api/v1", Timeout: time.Second},
		Attendance: config.AttendanceConfig{LateWeight: 1},
	}
}

func TestCohortsCommandPrintsCapacityWarning(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	out := &bytes.Buffer{}
	err := run(context.Background(), []string{"--token", "secret", "cohorts", "--statut", "active"}, out, newTestConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "c1")
	assert.Contains(t, out.String(), "over capacity: 2 enrolled for 1 planned")
	assert.NotContains(t, out.String(), "c2")
	assert.Equal(t, []string{"Bearer secret"}, b.tokens)
}

func TestMarkCommandReportsEachStudent(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	out := &bytes.Buffer{}
	err := run(context.Background(), []string{"mark", "sess-1", "LATE", "s1", "ghost", "s1"}, out, newTestConfig(srv.URL), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 marks failed")

	assert.Contains(t, out.String(), "s1\tlate\tv1")
	assert.Contains(t, out.String(), "ghost\tFAILED\tstudent not found")
	require.Len(t, b.upserts, 2)
	for _, req := range b.upserts {
		assert.Equal(t, "sess-1", req.SessionID)
		assert.Equal(t, "late", req.Status)
	}
}

func TestRunRejectsUnknownCommandAndMissingArgs(t *testing.T) {
	cfg := newTestConfig("http://127.0.0.1:1")
	out := &bytes.Buffer{}

	err := run(context.Background(), []string{"frobnicate"}, out, cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, out.String(), "import-status")

	err = run(context.Background(), []string{"roster"}, out, cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cohortctl roster <cohortId>")

	err = run(context.Background(), nil, out, cfg, zap.NewNop())
	assert.EqualError(t, err, "missing command")
}

func TestPrintErrorListsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	printError(buf, appErrors.Field("statut", "must be one of present, absent, late"))
	assert.Contains(t, buf.String(), "VALIDATION_ERROR")
	assert.Contains(t, buf.String(), "  statut: must be one of present, absent, late")
}
