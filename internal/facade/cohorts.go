package facade

import (
	"context"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/resolver"
)

// CreateCohort validates req and creates the cohort.
func (f *Facade) CreateCohort(ctx context.Context, req dto.CreateCohortRequest) (models.Cohort, error) {
	if err := dto.Validate(f.validate, req, "invalid cohort"); err != nil {
		return models.Cohort{}, err
	}
	if err := dto.CheckPeriod(req.StartDate, req.EndDate, "dateFin", "dateDebut"); err != nil {
		return models.Cohort{}, err
	}
	draft := req.ToModel()
	draft.ID = pendingID()
	return create(ctx, f, f.cohorts, "cohort", draft, draft.ID, func(ctx context.Context) (models.Cohort, error) {
		return f.api.CreateCohort(ctx, req)
	})
}

// UpdateCohort applies the set fields of req.
func (f *Facade) UpdateCohort(ctx context.Context, id string, req dto.UpdateCohortRequest) (models.Cohort, error) {
	current, ok := f.cohorts.Get(id)
	if !ok {
		return models.Cohort{}, notFound("cohort")
	}
	if err := dto.Validate(f.validate, req, "invalid cohort"); err != nil {
		return models.Cohort{}, err
	}
	next := current.Clone()
	req.Apply(&next)
	if err := dto.CheckPeriod(next.StartDate, next.EndDate, "dateFin", "dateDebut"); err != nil {
		return models.Cohort{}, err
	}
	return update(ctx, f, f.cohorts, "cohort", next, func(ctx context.Context) (models.Cohort, error) {
		return f.api.UpdateCohort(ctx, id, req)
	})
}

// DeleteCohort removes the cohort. Students and attendance records that
// reference it are left as they are and resolve as unresolved afterwards.
func (f *Facade) DeleteCohort(ctx context.Context, id string) error {
	return remove(ctx, f, f.cohorts, "cohort", id, f.api.DeleteCohort)
}

// EnrollStudents adds students to a cohort. Unknown ids are reported in the
// outcome; a request where nothing changes is not sent.
func (f *Facade) EnrollStudents(ctx context.Context, cohortID string, studentIDs []string) (resolver.Outcome, error) {
	cohort, ok := f.cohorts.Get(cohortID)
	if !ok {
		return resolver.Outcome{}, notFound("cohort")
	}
	out := resolver.Enroll(cohort, f.students, studentIDs)
	if !out.Changed() {
		return out, nil
	}
	return f.applyRoster(ctx, out, known(studentIDs, out.NotFound), f.api.EnrollStudents)
}

// UnenrollStudents removes students from a cohort.
func (f *Facade) UnenrollStudents(ctx context.Context, cohortID string, studentIDs []string) (resolver.Outcome, error) {
	cohort, ok := f.cohorts.Get(cohortID)
	if !ok {
		return resolver.Outcome{}, notFound("cohort")
	}
	out := resolver.Unenroll(cohort, f.students, studentIDs)
	if !out.Changed() {
		return out, nil
	}
	return f.applyRoster(ctx, out, known(studentIDs, out.NotFound), f.api.UnenrollStudents)
}

type rosterCall func(ctx context.Context, cohortID string, studentIDs []string) (dto.CohortMutationResponse, error)

func (f *Facade) applyRoster(ctx context.Context, out resolver.Outcome, ids []string, call rosterCall) (resolver.Outcome, error) {
	studentIDs := make([]string, 0, len(out.Students))
	for _, s := range out.Students {
		studentIDs = append(studentIDs, s.ID)
	}
	cohortCP := f.cohorts.Checkpoint(out.Cohort.ID)
	studentCP := f.students.Checkpoint(studentIDs...)
	f.cohorts.Put(out.Cohort)
	for _, s := range out.Students {
		f.students.Put(s)
	}

	resp, err := call(ctx, out.Cohort.ID, ids)
	if err != nil {
		f.cohorts.Rollback(cohortCP)
		f.students.Rollback(studentCP)
		f.rolledBack("cohort_roster", append([]string{out.Cohort.ID}, studentIDs...), err)
		return resolver.Outcome{}, err
	}
	f.cohorts.Put(resp.Cohort)
	for _, s := range resp.Students {
		f.students.Put(s)
	}
	out.Cohort = resp.Cohort
	if resp.Students != nil {
		out.Students = resp.Students
	}
	out.Warnings = mergeStrings(out.Warnings, resp.Warnings)
	out.NotFound = mergeStrings(out.NotFound, resp.NotFound)
	return out, nil
}

// AssignInstructor allocates hours to an instructor in a cohort.
func (f *Facade) AssignInstructor(ctx context.Context, cohortID string, req dto.AssignInstructorRequest) (models.Cohort, error) {
	cohort, ok := f.cohorts.Get(cohortID)
	if !ok {
		return models.Cohort{}, notFound("cohort")
	}
	if err := dto.Validate(f.validate, req, "invalid allocation"); err != nil {
		return models.Cohort{}, err
	}
	next, err := resolver.AssignInstructor(cohort, f.instructors, req.InstructorID, req.AllocatedHours)
	if err != nil {
		return models.Cohort{}, err
	}
	return update(ctx, f, f.cohorts, "cohort_instructor", next, func(ctx context.Context) (models.Cohort, error) {
		resp, err := f.api.AssignInstructor(ctx, cohortID, req)
		return resp.Cohort, err
	})
}

// RemoveInstructor drops an instructor allocation from a cohort.
func (f *Facade) RemoveInstructor(ctx context.Context, cohortID, instructorID string) (models.Cohort, error) {
	cohort, ok := f.cohorts.Get(cohortID)
	if !ok {
		return models.Cohort{}, notFound("cohort")
	}
	next, err := resolver.RemoveInstructor(cohort, instructorID)
	if err != nil {
		return models.Cohort{}, err
	}
	return update(ctx, f, f.cohorts, "cohort_instructor", next, func(ctx context.Context) (models.Cohort, error) {
		resp, err := f.api.RemoveInstructor(ctx, cohortID, instructorID)
		return resp.Cohort, err
	})
}

// CapacityWarning reports whether the cached cohort is over capacity.
func (f *Facade) CapacityWarning(cohortID string) (string, bool) {
	cohort, ok := f.cohorts.Get(cohortID)
	if !ok {
		return "", false
	}
	return resolver.CapacityWarning(cohort)
}

func known(ids, missing []string) []string {
	skip := make(map[string]struct{}, len(missing))
	for _, id := range missing {
		skip[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func mergeStrings(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, s := range b {
		dup := false
		for _, existing := range out {
			if existing == s {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}
