package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

func strPtr(v string) *string { return &v }

func TestUpsertReplacesNeverDuplicates(t *testing.T) {
	l := New(DefaultLateWeight)
	statuses := []models.AttendanceStatus{
		models.AttendanceStatusPresent,
		models.AttendanceStatusLate,
		models.AttendanceStatusAbsent,
		models.AttendanceStatusPresent,
		models.AttendanceStatusLate,
	}
	for _, st := range statuses {
		_, _, err := l.Upsert("s1", "sess-1", st, nil, "teacher")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, l.Len())
	rec, ok := l.Get("s1", "sess-1")
	require.True(t, ok)
	assert.Equal(t, models.AttendanceStatusLate, rec.Status)
}

func TestUpsertKeepsIdentityAndJustification(t *testing.T) {
	l := New(DefaultLateWeight)
	l.Put(models.AttendanceRecord{ID: "r1", StudentID: "s1", SessionID: "sess-1", Status: models.AttendanceStatusAbsent, Version: 3, JustificationID: strPtr("doc-1")})

	rec, change, err := l.Upsert("s1", "sess-1", models.AttendanceStatusPresent, strPtr("arrived"), "teacher")
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, int64(3), rec.Version)
	require.NotNil(t, rec.JustificationID)
	assert.Equal(t, "doc-1", *rec.JustificationID)
	assert.True(t, change.Existed)
	assert.Equal(t, models.AttendanceStatusAbsent, change.Previous.Status)
}

func TestUpsertRejectsUnknownStatus(t *testing.T) {
	l := New(DefaultLateWeight)
	_, _, err := l.Upsert("s1", "sess-1", "excused", nil, "")
	assert.True(t, appErrors.IsValidation(err))
	_, _, err = l.Upsert("", "sess-1", models.AttendanceStatusPresent, nil, "")
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, 0, l.Len())
}

func TestUndoRestoresPreviousState(t *testing.T) {
	l := New(DefaultLateWeight)
	l.Put(models.AttendanceRecord{ID: "r1", StudentID: "s1", SessionID: "sess-1", Status: models.AttendanceStatusPresent})
	before := l.All()

	_, c1, err := l.Upsert("s1", "sess-1", models.AttendanceStatusAbsent, nil, "")
	require.NoError(t, err)
	_, c2, err := l.Upsert("s2", "sess-1", models.AttendanceStatusLate, nil, "")
	require.NoError(t, err)

	l.Undo(c1, c2)
	assert.Equal(t, before, l.All())
	assert.Equal(t, 100.0, l.SessionPresence("sess-1").Rate)
}

func TestAttachJustificationKeepsStatus(t *testing.T) {
	l := New(DefaultLateWeight)
	l.Put(models.AttendanceRecord{ID: "r1", StudentID: "s1", SessionID: "sess-1", Status: models.AttendanceStatusAbsent})

	rec, _, err := l.AttachJustification("r1", "doc-9")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, rec.Status)
	require.NotNil(t, rec.JustificationID)
	assert.Equal(t, "doc-9", *rec.JustificationID)

	_, _, err = l.AttachJustification("missing", "doc-9")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestOpenSessionDefaultsToAbsent(t *testing.T) {
	l := New(DefaultLateWeight)
	_, _, err := l.Upsert("s2", "sess-1", models.AttendanceStatusPresent, nil, "")
	require.NoError(t, err)

	created, changes := l.OpenSession("sess-1", []string{"s1", "s2", "s3", "s3"}, "teacher")
	assert.Len(t, created, 2)
	assert.Len(t, changes, 2)

	for _, id := range []string{"s1", "s3"} {
		rec, ok := l.Get(id, "sess-1")
		require.True(t, ok)
		assert.Equal(t, models.AttendanceStatusAbsent, rec.Status)
	}
	rec, _ := l.Get("s2", "sess-1")
	assert.Equal(t, models.AttendanceStatusPresent, rec.Status)
}

func TestBulkMarkPresentScenario(t *testing.T) {
	l := New(DefaultLateWeight)
	outcomes, _ := l.BulkSetStatus("session1", []string{"S1", "S2", "S3"}, models.AttendanceStatusPresent, "teacher")
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.OK())
	}
	assert.Equal(t, 100.0, l.SessionPresence("session1").Rate)

	_, _, err := l.Upsert("S2", "session1", models.AttendanceStatusAbsent, nil, "teacher")
	require.NoError(t, err)

	summary := l.SessionPresence("session1")
	assert.InDelta(t, 66.7, summary.Rate, 0.001)
	assert.Equal(t, 3, summary.Total)
	rec, _ := l.Get("S2", "session1")
	assert.Equal(t, models.AttendanceStatusAbsent, rec.Status)
}

func TestBulkReportsEachItem(t *testing.T) {
	l := New(DefaultLateWeight)
	outcomes, changes := l.BulkSetStatus("sess", []string{"s1", "", "s2"}, models.AttendanceStatusLate, "")
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.False(t, outcomes[1].OK())
	assert.True(t, outcomes[2].OK())
	assert.Len(t, changes, 2)
}

func TestLateWeight(t *testing.T) {
	l := New(0.5)
	_, _, _ = l.Upsert("s1", "a", models.AttendanceStatusPresent, nil, "")
	_, _, _ = l.Upsert("s1", "b", models.AttendanceStatusLate, nil, "")
	_, _, _ = l.Upsert("s1", "c", models.AttendanceStatusAbsent, nil, "")
	_, _, _ = l.Upsert("s1", "d", models.AttendanceStatusLate, nil, "")

	summary := l.StudentPresence("s1")
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Late)
	assert.Equal(t, 50.0, summary.Rate)

	assert.Equal(t, 75.0, Summarize(l.Student("s1"), DefaultLateWeight).Rate)
	assert.Equal(t, 0.0, l.StudentPresence("unknown").Rate)
}
