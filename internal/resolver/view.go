package resolver

import "github.com/noah-isme/cohort-ledger-api/internal/models"

// CohortView is a display-ready current cohort.
type CohortView struct {
	ID       string
	Resolved bool
	Cohort   models.Cohort
}

// Label returns the cohort name, or the unresolved marker.
func (v CohortView) Label() string {
	if !v.Resolved {
		return Unresolved
	}
	return v.Cohort.Name
}

// ResolveCohort looks up the student's current cohort. A missing or deleted
// cohort yields an unresolved view; it never fails.
func ResolveCohort(student models.Student, cohorts CohortLookup) CohortView {
	ref := student.CurrentCohort
	view := CohortView{ID: ref.ID()}
	if !ref.IsSet() {
		return view
	}
	if cohorts != nil {
		if c, ok := cohorts.Get(ref.ID()); ok {
			view.Resolved = true
			view.Cohort = c
			return view
		}
		return view
	}
	if c, ok := ref.Cohort(); ok {
		view.Resolved = true
		view.Cohort = c
	}
	return view
}

// ResolveStudent substitutes the full cohort record into the student's reference.
func ResolveStudent(student models.Student, cohorts CohortLookup) models.Student {
	out := student.Clone()
	view := ResolveCohort(student, cohorts)
	if view.Resolved {
		out.CurrentCohort = models.ResolvedCohort(view.Cohort)
	} else {
		out.CurrentCohort = student.CurrentCohort.Unresolve()
	}
	return out
}

// Roster returns the students on the cohort roster in roster order and the
// roster ids that no longer match a student.
func Roster(cohort models.Cohort, students StudentLookup) ([]models.Student, []string) {
	found := make([]models.Student, 0, len(cohort.StudentIDs))
	var missing []string
	for _, id := range cohort.StudentIDs {
		if s, ok := students.Get(id); ok {
			found = append(found, s)
			continue
		}
		missing = append(missing, id)
	}
	return found, missing
}

// CohortsOfInstructor lists the cohorts where the instructor holds an allocation.
func CohortsOfInstructor(instructorID string, cohorts []models.Cohort) []models.Cohort {
	var out []models.Cohort
	for _, c := range cohorts {
		for _, alloc := range c.Instructors {
			if alloc.InstructorID == instructorID {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
