package facade

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/resolver"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

func seededBackend() *fakeBackend {
	b := newFakeBackend()
	b.cohorts["c1"] = models.Cohort{
		ID:                "c1",
		Name:              "BTS SIO 2025",
		Status:            models.CohortStatusActive,
		PlannedHeadcount:  3,
		StartDate:         time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		StudentIDs:        []string{"s1", "s2", "s3"},
		EnrolledHeadcount: 3,
	}
	b.cohorts["c2"] = models.Cohort{ID: "c2", Name: "Bachelor RH", StudentIDs: []string{}}
	for i := 1; i <= 4; i++ {
		s := models.Student{ID: fmt.Sprintf("s%d", i), FirstName: fmt.Sprintf("Student%d", i), LastName: "Test", CohortHistory: []string{}}
		if i <= 3 {
			s.CurrentCohort = models.UnresolvedCohort("c1")
		}
		b.students = append(b.students, s)
	}
	b.instructors = []models.Instructor{{ID: "i1", LastName: "Martin", Email: "martin@example.com"}}
	b.modules = []models.Module{{ID: "m1", Name: "Réseaux", Code: "NET1", Active: true}}
	return b
}

func loadedFacade(t *testing.T, b *fakeBackend, opts Options) *Facade {
	t.Helper()
	f := New(b, opts)
	require.NoError(t, f.LoadAll(context.Background()))
	return f
}

func TestLoadAllFillsStores(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{})
	assert.Len(t, f.Cohorts(models.CohortFilter{}), 2)
	assert.Len(t, f.Students(models.StudentFilter{}), 4)
	assert.Len(t, f.Instructors(models.InstructorFilter{}), 1)
	assert.Len(t, f.Modules(models.ModuleFilter{Search: "net"}), 1)
}

func TestLoadAllFailureLeavesStoresUntouched(t *testing.T) {
	b := seededBackend()
	b.failOn["ListModules"] = errDown
	f := New(b, Options{})
	err := f.LoadAll(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.IsTransport(err))
	assert.Empty(t, f.Cohorts(models.CohortFilter{}))
}

func TestUpdateCohortRollsBackOnFailure(t *testing.T) {
	b := seededBackend()
	core, logs := observer.New(zap.WarnLevel)
	f := loadedFacade(t, b, Options{Logger: zap.New(core)})
	before := f.Cohorts(models.CohortFilter{})

	b.failOn["UpdateCohort"] = errDown
	name := "Renamed"
	_, err := f.UpdateCohort(context.Background(), "c1", dto.UpdateCohortRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, appErrors.IsTransport(err))
	assert.Equal(t, before, f.Cohorts(models.CohortFilter{}))
	assert.Equal(t, 1, logs.FilterMessage("optimistic update rolled back").Len())
}

func TestUpdateCohortReplacesWithServerRecord(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{})
	name := "BTS SIO 2025-A"
	saved, err := f.UpdateCohort(context.Background(), "c1", dto.UpdateCohortRequest{Name: &name})
	require.NoError(t, err)
	cached, ok := f.Cohort("c1")
	require.True(t, ok)
	assert.Equal(t, saved, cached)
	assert.False(t, cached.UpdatedAt.IsZero())
}

func TestUpdateCohortRejectsInvertedDates(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.UpdateCohort(context.Background(), "c1", dto.UpdateCohortRequest{EndDate: &end})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Contains(t, appErrors.FromError(err).Fields, "dateFin")
	assert.Zero(t, b.count("UpdateCohort"))
}

func TestEnrollIsIdempotent(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	ctx := context.Background()

	first, err := f.EnrollStudents(ctx, "c2", []string{"s4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s4"}, first.Applied)
	rosterAfterFirst, _ := f.Cohort("c2")

	second, err := f.EnrollStudents(ctx, "c2", []string{"s4"})
	require.NoError(t, err)
	assert.Empty(t, second.Applied)
	rosterAfterSecond, _ := f.Cohort("c2")
	assert.Equal(t, rosterAfterFirst.StudentIDs, rosterAfterSecond.StudentIDs)
	assert.Equal(t, 1, b.count("EnrollStudents"))

	s4, _ := f.Student("s4")
	assert.Equal(t, "c2", s4.CurrentCohort.ID())
}

func TestEnrollReportsUnknownStudents(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	out, err := f.EnrollStudents(context.Background(), "c2", []string{"ghost", "s4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, out.NotFound)
	assert.Equal(t, []string{"s4"}, out.Applied)

	_, err = f.EnrollStudents(context.Background(), "missing", []string{"s4"})
	assert.True(t, appErrors.IsNotFound(err))
}

func TestEnrollRollbackRestoresCohortAndStudents(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	cohortsBefore := f.Cohorts(models.CohortFilter{})
	studentsBefore := f.Students(models.StudentFilter{})

	b.failOn["EnrollStudents"] = errDown
	_, err := f.EnrollStudents(context.Background(), "c2", []string{"s4"})
	require.Error(t, err)
	assert.Equal(t, cohortsBefore, f.Cohorts(models.CohortFilter{}))
	assert.Equal(t, studentsBefore, f.Students(models.StudentFilter{}))
}

func TestEnrollOverCapacityWarnsWithoutBlocking(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	out, err := f.EnrollStudents(context.Background(), "c1", []string{"s4"})
	require.NoError(t, err)
	assert.Contains(t, out.Cohort.StudentIDs, "s4")
	assert.Equal(t, 4, out.Cohort.EnrolledHeadcount)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "over capacity")

	_, over := f.CapacityWarning("c1")
	assert.True(t, over)
}

func TestUnenrollMovesCohortToHistory(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{})
	out, err := f.UnenrollStudents(context.Background(), "c1", []string{"s1"})
	require.NoError(t, err)
	assert.NotContains(t, out.Cohort.StudentIDs, "s1")
	s1, _ := f.Student("s1")
	assert.False(t, s1.CurrentCohort.IsSet())
	assert.Equal(t, []string{"c1"}, s1.CohortHistory)
}

func TestEnrollTakesStudentsFromBackend(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	b.students[3].CurrentCohort = models.UnresolvedCohort("c2")

	out, err := f.EnrollStudents(context.Background(), "c1", []string{"s4"})
	require.NoError(t, err)
	assert.Contains(t, out.Cohort.StudentIDs, "s4")

	s4, _ := f.Student("s4")
	assert.Equal(t, "c2", s4.CurrentCohort.ID())
	require.Len(t, out.Students, 1)
	assert.Equal(t, "c2", out.Students[0].CurrentCohort.ID())
}

func TestUnenrollTakesHistoryFromBackend(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	b.students[0].CohortHistory = []string{"c0"}

	_, err := f.UnenrollStudents(context.Background(), "c1", []string{"s1"})
	require.NoError(t, err)
	s1, _ := f.Student("s1")
	assert.False(t, s1.CurrentCohort.IsSet())
	assert.Equal(t, []string{"c0", "c1"}, s1.CohortHistory)
}

func TestDeletedCohortResolvesAsUnresolved(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{})
	require.NoError(t, f.DeleteCohort(context.Background(), "c1"))

	view, err := f.StudentCohort("s1")
	require.NoError(t, err)
	assert.False(t, view.Resolved)
	assert.Equal(t, "c1", view.ID)
	assert.Equal(t, resolver.Unresolved, view.Label())
}

func TestDeleteRollbackKeepsPosition(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	before := f.Cohorts(models.CohortFilter{})
	b.failOn["DeleteCohort"] = errDown
	require.Error(t, f.DeleteCohort(context.Background(), "c1"))
	assert.Equal(t, before, f.Cohorts(models.CohortFilter{}))
	assert.True(t, appErrors.IsNotFound(f.DeleteCohort(context.Background(), "nope")))
}

func TestCreateStudentSwapsPendingID(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	saved, err := f.CreateStudent(context.Background(), dto.CreateStudentRequest{
		FirstName:       "Léa",
		LastName:        "Roux",
		Email:           "lea@example.com",
		CurrentCohortID: "c2",
	})
	require.NoError(t, err)
	assert.Equal(t, "student-1", saved.ID)
	all := f.Students(models.StudentFilter{})
	assert.Len(t, all, 5)
	assert.Equal(t, "student-1", all[4].ID)

	c2, _ := f.Cohort("c2")
	assert.Contains(t, c2.StudentIDs, "student-1")
}

func TestCreateStudentFailureRemovesDraft(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	b.failOn["CreateStudent"] = appErrors.Clone(appErrors.ErrForbidden, "insufficient role")
	_, err := f.CreateStudent(context.Background(), dto.CreateStudentRequest{FirstName: "A", LastName: "B", Email: "a@b.fr"})
	require.Error(t, err)
	assert.True(t, appErrors.IsAuth(err))
	assert.Len(t, f.Students(models.StudentFilter{}), 4)
}

func TestCreateStudentValidatesBeforeSending(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	_, err := f.CreateStudent(context.Background(), dto.CreateStudentRequest{FirstName: "A"})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Zero(t, b.count("CreateStudent"))
}

func TestAssignInstructorUpdatesHoursInPlace(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{})
	ctx := context.Background()
	_, err := f.AssignInstructor(ctx, "c1", dto.AssignInstructorRequest{InstructorID: "i1", AllocatedHours: 20})
	require.NoError(t, err)
	c, err := f.AssignInstructor(ctx, "c1", dto.AssignInstructorRequest{InstructorID: "i1", AllocatedHours: 35})
	require.NoError(t, err)
	require.Len(t, c.Instructors, 1)
	assert.Equal(t, 35.0, c.Instructors[0].AllocatedHours)
	assert.Len(t, f.InstructorCohorts("i1"), 1)

	_, err = f.AssignInstructor(ctx, "c1", dto.AssignInstructorRequest{InstructorID: "ghost", AllocatedHours: 1})
	assert.True(t, appErrors.IsNotFound(err))

	c, err = f.RemoveInstructor(ctx, "c1", "i1")
	require.NoError(t, err)
	assert.Empty(t, c.Instructors)
}

func TestArchiveInstructorPersistsFlag(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{})
	saved, err := f.ArchiveInstructor(context.Background(), "i1", true)
	require.NoError(t, err)
	assert.True(t, saved.Archived)
	archived := true
	assert.Len(t, f.Instructors(models.InstructorFilter{Archived: &archived}), 1)
}

func TestBulkMarkPresentScenario(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{Actor: "prof"})
	ctx := context.Background()

	outcomes, err := f.BulkSetStatus(ctx, "session1", []string{"s1", "s2", "s3"}, models.AttendanceStatusPresent)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.OK(), o.Reason)
	}
	assert.Equal(t, 100.0, f.SessionPresence("session1").Rate)

	_, err = f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{StudentID: "s2", SessionID: "session1", Status: "absent"})
	require.NoError(t, err)
	assert.Equal(t, 66.7, f.SessionPresence("session1").Rate)

	rec, ok := f.Attendance("s2", "session1")
	require.True(t, ok)
	assert.Equal(t, models.AttendanceStatusAbsent, rec.Status)
	assert.Len(t, f.SessionRecords("session1"), 3)
}

func TestBulkReportsPartialFailures(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	b.failFor["s2"] = errDown

	outcomes, err := f.BulkSetStatus(context.Background(), "session1", []string{"s1", "s2", "s3"}, models.AttendanceStatusPresent)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.False(t, outcomes[1].OK())
	assert.True(t, appErrors.IsTransport(outcomes[1].Err))
	assert.True(t, outcomes[2].OK())

	_, ok := f.Attendance("s2", "session1")
	assert.False(t, ok)
	assert.Equal(t, 3, b.count("UpsertAttendance"))

	_, err = f.BulkSetStatus(context.Background(), "session1", []string{"s1"}, "excused")
	assert.True(t, appErrors.IsValidation(err))
}

func TestUpsertRollbackRestoresPreviousRecord(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	ctx := context.Background()
	first, err := f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{StudentID: "s1", SessionID: "sess", Status: "present"})
	require.NoError(t, err)

	b.failOn["UpsertAttendance"] = errDown
	_, err = f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{StudentID: "s1", SessionID: "sess", Status: "late"})
	require.Error(t, err)
	current, ok := f.Attendance("s1", "sess")
	require.True(t, ok)
	assert.Equal(t, first, current)
}

func TestCheckVersionsSendsExpectedVersion(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{CheckVersions: true})
	ctx := context.Background()
	_, err := f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{StudentID: "s1", SessionID: "sess", Status: "present"})
	require.NoError(t, err)
	assert.Nil(t, b.lastUpsert.ExpectedVersion)

	_, err = f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{StudentID: "s1", SessionID: "sess", Status: "late"})
	require.NoError(t, err)
	require.NotNil(t, b.lastUpsert.ExpectedVersion)
	assert.Equal(t, int64(1), *b.lastUpsert.ExpectedVersion)

	stale := int64(0)
	_, err = f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{StudentID: "s1", SessionID: "sess", Status: "absent", ExpectedVersion: &stale})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	current, _ := f.Attendance("s1", "sess")
	assert.Equal(t, models.AttendanceStatusLate, current.Status)
}

func TestOpenSessionDefaultsToAbsent(t *testing.T) {
	f := loadedFacade(t, seededBackend(), Options{})
	created, err := f.OpenSession(context.Background(), "sess-open", "c1")
	require.NoError(t, err)
	assert.Len(t, created, 3)
	for _, id := range []string{"s1", "s2", "s3"} {
		rec, ok := f.Attendance(id, "sess-open")
		require.True(t, ok)
		assert.Equal(t, models.AttendanceStatusAbsent, rec.Status)
	}
	assert.Equal(t, 0.0, f.SessionPresence("sess-open").Rate)
}

func TestOpenSessionKeepsBackendMarks(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	key := models.AttendanceKey{StudentID: "s1", SessionID: "sess"}
	b.attendance[key] = models.AttendanceRecord{ID: "att-s1-sess", StudentID: "s1", SessionID: "sess", Status: models.AttendanceStatusPresent, Version: 3}

	created, err := f.OpenSession(context.Background(), "sess", "c1")
	require.NoError(t, err)
	assert.Len(t, created, 2)

	s1, ok := f.Attendance("s1", "sess")
	require.True(t, ok)
	assert.Equal(t, models.AttendanceStatusPresent, s1.Status)
	assert.Equal(t, "att-s1-sess", s1.ID)
	for _, rec := range f.SessionRecords("sess") {
		assert.NotEmpty(t, rec.ID, rec.StudentID)
	}
	assert.InDelta(t, 33.3, f.SessionPresence("sess").Rate, 0.1)
}

func TestOpenSessionLoadFailureChangesNothing(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	b.failOn["SessionAttendance"] = errDown
	_, err := f.OpenSession(context.Background(), "sess", "c1")
	require.Error(t, err)
	assert.True(t, appErrors.IsTransport(err))
	assert.Empty(t, f.SessionRecords("sess"))
	assert.Zero(t, b.count("OpenSession"))
}

func TestOpenSessionRollback(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	b.failOn["OpenSession"] = errDown
	_, err := f.OpenSession(context.Background(), "sess-open", "c1")
	require.Error(t, err)
	assert.Empty(t, f.SessionRecords("sess-open"))
}

func TestAttachJustificationKeepsStatus(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	ctx := context.Background()
	rec, err := f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{StudentID: "s1", SessionID: "sess", Status: "absent"})
	require.NoError(t, err)

	updated, err := f.AttachJustification(ctx, rec.ID, "doc-9")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, updated.Status)
	require.NotNil(t, updated.JustificationID)
	assert.Equal(t, "doc-9", *updated.JustificationID)

	_, err = f.AttachJustification(ctx, "unknown", "doc-9")
	assert.True(t, appErrors.IsNotFound(err))
	assert.Equal(t, 1, b.count("AttachJustification"))
}

func TestRosterReportsDanglingStudents(t *testing.T) {
	b := seededBackend()
	f := loadedFacade(t, b, Options{})
	require.NoError(t, f.DeleteStudent(context.Background(), "s2"))
	students, missing, err := f.Roster("c1")
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, []string{"s2"}, missing)
}
