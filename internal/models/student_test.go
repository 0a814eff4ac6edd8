package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohortRefDecodesBothShapes(t *testing.T) {
	var fromID Student
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s1","cohorteActuelle":"c1"}`), &fromID))
	assert.Equal(t, "c1", fromID.CurrentCohort.ID())
	_, resolved := fromID.CurrentCohort.Cohort()
	assert.False(t, resolved)

	var fromObject Student
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s1","cohorteActuelle":{"id":"c1","nom":"BTS SIO 2025"}}`), &fromObject))
	cohort, resolved := fromObject.CurrentCohort.Cohort()
	require.True(t, resolved)
	assert.Equal(t, "BTS SIO 2025", cohort.Name)
	assert.Equal(t, "c1", fromObject.CurrentCohort.ID())

	var unset Student
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s1","cohorteActuelle":null}`), &unset))
	assert.False(t, unset.CurrentCohort.IsSet())

	var bad Student
	assert.Error(t, json.Unmarshal([]byte(`{"id":"s1","cohorteActuelle":42}`), &bad))
}

func TestCohortRefEncodesAsID(t *testing.T) {
	raw, err := json.Marshal(Student{ID: "s1", CurrentCohort: ResolvedCohort(Cohort{ID: "c9"})})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"cohorteActuelle":"c9"`)

	raw, err = json.Marshal(Student{ID: "s2"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"cohorteActuelle":null`)
}

func TestCloneIsDeep(t *testing.T) {
	original := Cohort{ID: "c1", StudentIDs: []string{"s1"}, Instructors: []InstructorAllocation{{InstructorID: "i1", AllocatedHours: 10}}}
	clone := original.Clone()
	clone.StudentIDs[0] = "changed"
	clone.Instructors[0].AllocatedHours = 99
	assert.Equal(t, "s1", original.StudentIDs[0])
	assert.Equal(t, 10.0, original.Instructors[0].AllocatedHours)

	student := Student{ID: "s1", CohortHistory: []string{"c0"}, Notes: []StudentNote{{Content: "ok"}}}
	copyOf := student.Clone()
	copyOf.CohortHistory[0] = "x"
	copyOf.Notes[0].Content = "changed"
	assert.Equal(t, "c0", student.CohortHistory[0])
	assert.Equal(t, "ok", student.Notes[0].Content)
}

func TestCohortStatusTransitions(t *testing.T) {
	assert.True(t, CohortStatusInPreparation.CanTransitionTo(CohortStatusActive))
	assert.True(t, CohortStatusActive.CanTransitionTo(CohortStatusClosed))
	assert.True(t, CohortStatusActive.CanTransitionTo(CohortStatusActive))
	assert.False(t, CohortStatusInPreparation.CanTransitionTo(CohortStatusClosed))
	assert.False(t, CohortStatusClosed.CanTransitionTo(CohortStatusActive))
}
