package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()
	err := Validate(v, CreateCohortRequest{ProgramType: "phd", StartDate: time.Now(), EndDate: time.Now()}, "invalid cohort payload")
	require.Error(t, err)

	typed := appErrors.FromError(err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, "required", typed.Fields["nom"])
	assert.Equal(t, "required", typed.Fields["anneeScolaire"])
	assert.Equal(t, "program_type", typed.Fields["typeFormation"])
}

func TestAttendanceStatusTag(t *testing.T) {
	v := NewValidator()
	ok := UpsertAttendanceRequest{StudentID: "s1", SessionID: "sess", Status: "late"}
	assert.NoError(t, Validate(v, ok, ""))

	bad := ok
	bad.Status = "excused"
	err := Validate(v, bad, "")
	require.Error(t, err)
	assert.Equal(t, "attendance_status", appErrors.FromError(err).Fields["statut"])
}

func TestOpenSessionNeedsCohortOrStudents(t *testing.T) {
	v := NewValidator()
	assert.Error(t, Validate(v, OpenSessionRequest{}, ""))
	assert.NoError(t, Validate(v, OpenSessionRequest{CohortID: "c1"}, ""))
	assert.NoError(t, Validate(v, OpenSessionRequest{StudentIDs: []string{"s1"}}, ""))
}

func TestCheckPeriod(t *testing.T) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, CheckPeriod(start, start.AddDate(1, 0, 0), "dateFin", "dateDebut"))
	assert.NoError(t, CheckPeriod(start, time.Time{}, "dateFin", "dateDebut"))

	err := CheckPeriod(start, start, "dateFin", "dateDebut")
	require.Error(t, err)
	assert.Equal(t, "must be after dateDebut", appErrors.FromError(err).Fields["dateFin"])
}

func TestUpdateCohortApplyOnlyTouchesSetFields(t *testing.T) {
	cohort := models.Cohort{ID: "c1", Name: "BTS SIO", PlannedHeadcount: 20, StudentIDs: []string{"s1"}}
	planned := 25
	status := models.CohortStatusActive
	UpdateCohortRequest{PlannedHeadcount: &planned, Status: &status}.Apply(&cohort)

	assert.Equal(t, "BTS SIO", cohort.Name)
	assert.Equal(t, 25, cohort.PlannedHeadcount)
	assert.Equal(t, models.CohortStatusActive, cohort.Status)
	assert.Equal(t, []string{"s1"}, cohort.StudentIDs)
}

func TestCreateDefaults(t *testing.T) {
	student := CreateStudentRequest{FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com"}.ToModel()
	assert.Equal(t, models.EnrollmentPending, student.Status)
	assert.Equal(t, models.FinancingNone, student.FinancingType)
	assert.False(t, student.CurrentCohort.IsSet())

	module := CreateModuleRequest{Name: "Réseaux", Code: "RSX1"}.ToModel()
	assert.True(t, module.Active)
	assert.Equal(t, models.EvaluationContinuous, module.EvaluationType)

	cohort := CreateCohortRequest{Name: "B1"}.ToModel()
	assert.Equal(t, models.CohortStatusInPreparation, cohort.Status)
	assert.NotNil(t, cohort.StudentIDs)
}
