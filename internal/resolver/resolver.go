// Package resolver derives the links between cohorts, students and
// instructors from the denormalized id arrays stored on each record.
// Functions are pure: they take copies and return the changed copies.
package resolver

import (
	"fmt"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

// Unresolved is the display label of a cohort reference that cannot be resolved.
const Unresolved = "—"

// StudentLookup finds students by id.
type StudentLookup interface {
	Get(id string) (models.Student, bool)
}

// CohortLookup finds cohorts by id.
type CohortLookup interface {
	Get(id string) (models.Cohort, bool)
}

// InstructorLookup finds instructors by id.
type InstructorLookup interface {
	Get(id string) (models.Instructor, bool)
}

// Outcome is the result of a roster change.
type Outcome struct {
	Cohort   models.Cohort
	Students []models.Student
	Applied  []string
	NotFound []string
	Warnings []string
}

// Changed reports whether the operation modified anything.
func (o Outcome) Changed() bool {
	return len(o.Applied) > 0 || len(o.Students) > 0
}

// Enroll adds students to the cohort roster. Students already on the roster
// are left alone and students without a current cohort are pointed at it.
// Unknown student ids are reported in NotFound and not applied.
func Enroll(cohort models.Cohort, students StudentLookup, ids []string) Outcome {
	out := Outcome{Cohort: cohort.Clone()}
	for _, id := range dedupe(ids) {
		student, ok := students.Get(id)
		if !ok {
			out.NotFound = append(out.NotFound, id)
			continue
		}
		if !out.Cohort.HasStudent(id) {
			out.Cohort.StudentIDs = append(out.Cohort.StudentIDs, id)
			out.Applied = append(out.Applied, id)
		}
		if !student.CurrentCohort.IsSet() {
			student.CurrentCohort = models.UnresolvedCohort(cohort.ID)
			out.Students = append(out.Students, student)
		}
	}
	out.Cohort.EnrolledHeadcount = len(out.Cohort.StudentIDs)
	if msg, over := CapacityWarning(out.Cohort); over {
		out.Warnings = append(out.Warnings, msg)
	}
	return out
}

// Unenroll removes students from the roster. A student whose current cohort
// is this one drops to unassigned and keeps the cohort in its history.
// Ids that are neither on the roster nor known students are reported in NotFound.
func Unenroll(cohort models.Cohort, students StudentLookup, ids []string) Outcome {
	out := Outcome{Cohort: cohort.Clone()}
	for _, id := range dedupe(ids) {
		onRoster := out.Cohort.HasStudent(id)
		student, known := students.Get(id)
		if !onRoster && !known {
			out.NotFound = append(out.NotFound, id)
			continue
		}
		if onRoster {
			out.Cohort.StudentIDs = without(out.Cohort.StudentIDs, id)
			out.Applied = append(out.Applied, id)
		}
		if known && student.CurrentCohort.ID() == cohort.ID {
			student.CurrentCohort = models.CohortRef{}
			if !contains(student.CohortHistory, cohort.ID) {
				student.CohortHistory = append(student.CohortHistory, cohort.ID)
			}
			out.Students = append(out.Students, student)
		}
	}
	out.Cohort.EnrolledHeadcount = len(out.Cohort.StudentIDs)
	return out
}

// AssignInstructor allocates hours to an instructor. Assigning an instructor
// that already has an allocation updates the hours in place. A nil lookup
// skips the existence check.
func AssignInstructor(cohort models.Cohort, instructors InstructorLookup, instructorID string, hours float64) (models.Cohort, error) {
	if instructors != nil {
		if _, ok := instructors.Get(instructorID); !ok {
			return cohort, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
	}
	if hours < 0 {
		return cohort, appErrors.Field("heuresAllouees", "must be positive")
	}
	out := cohort.Clone()
	for i := range out.Instructors {
		if out.Instructors[i].InstructorID == instructorID {
			out.Instructors[i].AllocatedHours = hours
			return out, nil
		}
	}
	out.Instructors = append(out.Instructors, models.InstructorAllocation{InstructorID: instructorID, AllocatedHours: hours})
	return out, nil
}

// RemoveInstructor drops the allocation of an instructor.
func RemoveInstructor(cohort models.Cohort, instructorID string) (models.Cohort, error) {
	out := cohort.Clone()
	for i := range out.Instructors {
		if out.Instructors[i].InstructorID == instructorID {
			out.Instructors = append(out.Instructors[:i], out.Instructors[i+1:]...)
			return out, nil
		}
	}
	return cohort, appErrors.Clone(appErrors.ErrNotFound, "instructor not assigned to cohort")
}

// CapacityWarning returns a message when the roster exceeds the planned headcount.
// Over capacity never blocks an enrollment.
func CapacityWarning(cohort models.Cohort) (string, bool) {
	enrolled := len(cohort.StudentIDs)
	if cohort.EnrolledHeadcount > enrolled {
		enrolled = cohort.EnrolledHeadcount
	}
	if cohort.PlannedHeadcount <= 0 || enrolled <= cohort.PlannedHeadcount {
		return "", false
	}
	return fmt.Sprintf("cohort %s over capacity: %d enrolled for %d planned", cohort.Name, enrolled, cohort.PlannedHeadcount), true
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
