package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

func TestStudentServiceCreateWithCohort(t *testing.T) {
	db, mock := newTxMock(t)
	cohorts := newFakeCohortRepo(baseCohort())
	students := newFakeStudentRepo()
	svc := NewStudentService(students, cohorts, db, nil, time.Minute, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()
	created, err := svc.Create(context.Background(), dto.CreateStudentRequest{
		FirstName:       "Lina",
		LastName:        "Morel",
		Email:           "lina@example.com",
		CurrentCohortID: "c1",
		FinancingType:   models.FinancingCPF,
	})
	require.NoError(t, err)
	assert.Equal(t, "lina@example.com", created.Email)
	assert.Equal(t, models.EnrollmentPending, created.Status)
	assert.Equal(t, "c1", created.CurrentCohort.ID())

	cohort := cohorts.cohorts["c1"]
	assert.Equal(t, []string{created.ID}, cohort.StudentIDs)
	assert.Equal(t, 1, cohort.EnrolledHeadcount)
	assert.Equal(t, 1, cohort.Billing.FinancedStudents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentServiceCreateRejectsUnknownCohortAndDuplicateEmail(t *testing.T) {
	db, mock := newTxMock(t)
	students := newFakeStudentRepo(models.Student{ID: "s1", Email: "taken@example.com"})
	svc := NewStudentService(students, newFakeCohortRepo(), db, nil, time.Minute, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateStudentRequest{FirstName: "A", LastName: "B", Email: "TAKEN@example.com"})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Create(context.Background(), dto.CreateStudentRequest{FirstName: "A", LastName: "B", Email: "new@example.com", CurrentCohortID: "nope"})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Contains(t, appErrors.FromError(err).Fields, "cohorteActuelle")
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.Create(context.Background(), dto.CreateStudentRequest{FirstName: "A", Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}

func TestStudentServiceStatsCache(t *testing.T) {
	students := newFakeStudentRepo(
		models.Student{ID: "s1", Status: models.EnrollmentEnrolled, FinancingType: models.FinancingOPCO, CurrentCohort: models.UnresolvedCohort("c1")},
		models.Student{ID: "s2", Status: models.EnrollmentPending, FinancingType: models.FinancingNone},
	)
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewStudentService(students, newFakeCohortRepo(), nil, cache, time.Minute, nil, nil)
	ctx := context.Background()

	stats, cached, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.WithoutCohort)

	stats, cached, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, students.statsHit)

	require.NoError(t, svc.Delete(ctx, "s2"))
	stats, cached, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 2, students.statsHit)
}

func TestStudentServiceStatsWithoutCache(t *testing.T) {
	students := newFakeStudentRepo(models.Student{ID: "s1"})
	svc := NewStudentService(students, newFakeCohortRepo(), nil, nil, 0, nil, nil)

	_, cached, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	_, cached, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, students.statsHit)
}

func TestStudentServiceUpdateAndDelete(t *testing.T) {
	students := newFakeStudentRepo(
		models.Student{ID: "s1", FirstName: "Old", Email: "a@example.com"},
		models.Student{ID: "s2", Email: "b@example.com"},
	)
	svc := NewStudentService(students, newFakeCohortRepo(), nil, nil, 0, nil, nil)
	ctx := context.Background()

	name := "New"
	updated, err := svc.Update(ctx, "s1", dto.UpdateStudentRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.FirstName)

	email := "b@example.com"
	_, err = svc.Update(ctx, "s1", dto.UpdateStudentRequest{Email: &email})
	assert.True(t, appErrors.IsConflict(err))

	_, err = svc.Update(ctx, "ghost", dto.UpdateStudentRequest{FirstName: &name})
	assert.True(t, appErrors.IsNotFound(err))

	assert.True(t, appErrors.IsNotFound(svc.Delete(ctx, "ghost")))
	require.NoError(t, svc.Delete(ctx, "s1"))
	_, err = svc.Get(ctx, "s1")
	assert.True(t, appErrors.IsNotFound(err))
}
