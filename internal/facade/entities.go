package facade

import (
	"context"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

// CreateStudent creates a student. When the student is created inside a
// cohort, the cached roster is updated once the server confirms.
func (f *Facade) CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (models.Student, error) {
	if err := dto.Validate(f.validate, req, "invalid student"); err != nil {
		return models.Student{}, err
	}
	if req.CurrentCohortID != "" && !f.cohorts.Has(req.CurrentCohortID) {
		return models.Student{}, notFound("cohort")
	}
	draft := req.ToModel()
	draft.ID = pendingID()
	saved, err := create(ctx, f, f.students, "student", draft, draft.ID, func(ctx context.Context) (models.Student, error) {
		return f.api.CreateStudent(ctx, req)
	})
	if err != nil {
		return saved, err
	}
	if cohortID := saved.CurrentCohort.ID(); cohortID != "" {
		if cohort, ok := f.cohorts.Get(cohortID); ok && !cohort.HasStudent(saved.ID) {
			cohort.StudentIDs = append(cohort.StudentIDs, saved.ID)
			cohort.EnrolledHeadcount = len(cohort.StudentIDs)
			f.cohorts.Put(cohort)
		}
	}
	return saved, nil
}

func (f *Facade) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (models.Student, error) {
	current, ok := f.students.Get(id)
	if !ok {
		return models.Student{}, notFound("student")
	}
	if err := dto.Validate(f.validate, req, "invalid student"); err != nil {
		return models.Student{}, err
	}
	next := current.Clone()
	req.Apply(&next)
	return update(ctx, f, f.students, "student", next, func(ctx context.Context) (models.Student, error) {
		return f.api.UpdateStudent(ctx, id, req)
	})
}

// DeleteStudent removes a student. Cohort rosters keep the id, which Roster
// then reports as missing.
func (f *Facade) DeleteStudent(ctx context.Context, id string) error {
	return remove(ctx, f, f.students, "student", id, f.api.DeleteStudent)
}

func (f *Facade) CreateInstructor(ctx context.Context, req dto.CreateInstructorRequest) (models.Instructor, error) {
	if err := dto.Validate(f.validate, req, "invalid instructor"); err != nil {
		return models.Instructor{}, err
	}
	if req.MissionStart != nil && req.MissionEnd != nil {
		if err := dto.CheckPeriod(*req.MissionStart, *req.MissionEnd, "dateFinMission", "dateDebutMission"); err != nil {
			return models.Instructor{}, err
		}
	}
	draft := req.ToModel()
	draft.ID = pendingID()
	return create(ctx, f, f.instructors, "instructor", draft, draft.ID, func(ctx context.Context) (models.Instructor, error) {
		return f.api.CreateInstructor(ctx, req)
	})
}

func (f *Facade) UpdateInstructor(ctx context.Context, id string, req dto.UpdateInstructorRequest) (models.Instructor, error) {
	current, ok := f.instructors.Get(id)
	if !ok {
		return models.Instructor{}, notFound("instructor")
	}
	if err := dto.Validate(f.validate, req, "invalid instructor"); err != nil {
		return models.Instructor{}, err
	}
	next := current.Clone()
	req.Apply(&next)
	return update(ctx, f, f.instructors, "instructor", next, func(ctx context.Context) (models.Instructor, error) {
		return f.api.UpdateInstructor(ctx, id, req)
	})
}

// ArchiveInstructor sets the persistent archive flag.
func (f *Facade) ArchiveInstructor(ctx context.Context, id string, archived bool) (models.Instructor, error) {
	return f.UpdateInstructor(ctx, id, dto.UpdateInstructorRequest{Archived: &archived})
}

func (f *Facade) DeleteInstructor(ctx context.Context, id string) error {
	return remove(ctx, f, f.instructors, "instructor", id, f.api.DeleteInstructor)
}

func (f *Facade) CreateModule(ctx context.Context, req dto.CreateModuleRequest) (models.Module, error) {
	if err := dto.Validate(f.validate, req, "invalid module"); err != nil {
		return models.Module{}, err
	}
	draft := req.ToModel()
	draft.ID = pendingID()
	return create(ctx, f, f.modules, "module", draft, draft.ID, func(ctx context.Context) (models.Module, error) {
		return f.api.CreateModule(ctx, req)
	})
}

func (f *Facade) UpdateModule(ctx context.Context, id string, req dto.UpdateModuleRequest) (models.Module, error) {
	current, ok := f.modules.Get(id)
	if !ok {
		return models.Module{}, notFound("module")
	}
	if err := dto.Validate(f.validate, req, "invalid module"); err != nil {
		return models.Module{}, err
	}
	next := current.Clone()
	req.Apply(&next)
	return update(ctx, f, f.modules, "module", next, func(ctx context.Context) (models.Module, error) {
		return f.api.UpdateModule(ctx, id, req)
	})
}

func (f *Facade) DeleteModule(ctx context.Context, id string) error {
	return remove(ctx, f, f.modules, "module", id, f.api.DeleteModule)
}
