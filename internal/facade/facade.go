// Package facade keeps the in-memory stores and the attendance ledger in sync
// with the backend. Each mutation is applied optimistically, sent as exactly
// one REST call and either confirmed with the server representation or
// rolled back to the previous state.
package facade

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/filter"
	"github.com/noah-isme/cohort-ledger-api/internal/ledger"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/resolver"
	"github.com/noah-isme/cohort-ledger-api/internal/store"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
)

// Backend is the REST surface the facade depends on.
type Backend interface {
	ListCohorts(ctx context.Context) ([]models.Cohort, error)
	CreateCohort(ctx context.Context, req dto.CreateCohortRequest) (models.Cohort, error)
	UpdateCohort(ctx context.Context, id string, req dto.UpdateCohortRequest) (models.Cohort, error)
	DeleteCohort(ctx context.Context, id string) error
	EnrollStudents(ctx context.Context, cohortID string, studentIDs []string) (dto.CohortMutationResponse, error)
	UnenrollStudents(ctx context.Context, cohortID string, studentIDs []string) (dto.CohortMutationResponse, error)
	AssignInstructor(ctx context.Context, cohortID string, req dto.AssignInstructorRequest) (dto.CohortMutationResponse, error)
	RemoveInstructor(ctx context.Context, cohortID, instructorID string) (dto.CohortMutationResponse, error)

	ListStudents(ctx context.Context, q dto.StudentListQuery) ([]models.Student, error)
	CreateStudent(ctx context.Context, req dto.CreateStudentRequest) (models.Student, error)
	UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (models.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	StudentStats(ctx context.Context) (models.StudentStats, error)

	ListInstructors(ctx context.Context) ([]models.Instructor, error)
	CreateInstructor(ctx context.Context, req dto.CreateInstructorRequest) (models.Instructor, error)
	UpdateInstructor(ctx context.Context, id string, req dto.UpdateInstructorRequest) (models.Instructor, error)
	DeleteInstructor(ctx context.Context, id string) error

	ListModules(ctx context.Context) ([]models.Module, error)
	CreateModule(ctx context.Context, req dto.CreateModuleRequest) (models.Module, error)
	UpdateModule(ctx context.Context, id string, req dto.UpdateModuleRequest) (models.Module, error)
	DeleteModule(ctx context.Context, id string) error

	UpsertAttendance(ctx context.Context, req dto.UpsertAttendanceRequest) (models.AttendanceRecord, error)
	AttachJustification(ctx context.Context, recordID, documentID string) (models.AttendanceRecord, error)
	SessionAttendance(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
	StudentAttendance(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
	OpenSession(ctx context.Context, sessionID string, req dto.OpenSessionRequest) ([]models.AttendanceRecord, error)
	UploadJustification(ctx context.Context, sessionID, filename string, content io.Reader) (models.SessionDocument, error)
	UploadEmargement(ctx context.Context, sessionID, filename string, content io.Reader) (models.SessionDocument, error)
	ImportStatus(ctx context.Context, jobID string) (jobs.Status, error)
}

// Options configures a Facade.
type Options struct {
	// Actor is written as the recorder of optimistic attendance records.
	Actor      string
	LateWeight float64
	// CheckVersions sends the cached record version with every attendance
	// upsert so the backend rejects stale writes with a conflict.
	CheckVersions   bool
	BulkConcurrency int
	Validator       *validator.Validate
	Logger          *zap.Logger
}

// Facade owns the entity stores and the attendance ledger.
type Facade struct {
	api         Backend
	cohorts     *store.Store[models.Cohort]
	students    *store.Store[models.Student]
	instructors *store.Store[models.Instructor]
	modules     *store.Store[models.Module]
	ledger      *ledger.Ledger

	actor           string
	checkVersions   bool
	bulkConcurrency int
	validate        *validator.Validate
	logger          *zap.Logger
}

// New builds a facade with empty stores.
func New(api Backend, opts Options) *Facade {
	if opts.LateWeight == 0 {
		opts.LateWeight = ledger.DefaultLateWeight
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = 4
	}
	if opts.Validator == nil {
		opts.Validator = dto.NewValidator()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Facade{
		api:             api,
		cohorts:         store.New[models.Cohort](),
		students:        store.New[models.Student](),
		instructors:     store.New[models.Instructor](),
		modules:         store.New[models.Module](),
		ledger:          ledger.New(opts.LateWeight),
		actor:           opts.Actor,
		checkVersions:   opts.CheckVersions,
		bulkConcurrency: opts.BulkConcurrency,
		validate:        opts.Validator,
		logger:          opts.Logger,
	}
}

// LoadAll fetches the four collections concurrently and replaces the stores.
// Stores are left untouched when any fetch fails.
func (f *Facade) LoadAll(ctx context.Context) error {
	var (
		cohorts     []models.Cohort
		students    []models.Student
		instructors []models.Instructor
		modules     []models.Module
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cohorts, err = f.api.ListCohorts(gctx)
		return err
	})
	g.Go(func() (err error) {
		students, err = f.api.ListStudents(gctx, dto.StudentListQuery{})
		return err
	})
	g.Go(func() (err error) {
		instructors, err = f.api.ListInstructors(gctx)
		return err
	})
	g.Go(func() (err error) {
		modules, err = f.api.ListModules(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	f.cohorts.Replace(cohorts)
	f.students.Replace(students)
	f.instructors.Replace(instructors)
	f.modules.Replace(modules)
	f.logger.Debug("stores loaded",
		zap.Int("cohorts", len(cohorts)),
		zap.Int("students", len(students)),
		zap.Int("instructors", len(instructors)),
		zap.Int("modules", len(modules)),
	)
	return nil
}

// Cohorts returns the cohorts matching filter, in store order.
func (f *Facade) Cohorts(flt models.CohortFilter) []models.Cohort {
	return filter.Cohorts(f.cohorts.All(), flt)
}

// Students returns the students matching filter, in store order.
func (f *Facade) Students(flt models.StudentFilter) []models.Student {
	return filter.Students(f.students.All(), flt)
}

func (f *Facade) Instructors(flt models.InstructorFilter) []models.Instructor {
	return filter.Instructors(f.instructors.All(), flt)
}

func (f *Facade) Modules(flt models.ModuleFilter) []models.Module {
	return filter.Modules(f.modules.All(), flt)
}

func (f *Facade) Cohort(id string) (models.Cohort, bool)         { return f.cohorts.Get(id) }
func (f *Facade) Student(id string) (models.Student, bool)       { return f.students.Get(id) }
func (f *Facade) Instructor(id string) (models.Instructor, bool) { return f.instructors.Get(id) }
func (f *Facade) Module(id string) (models.Module, bool)         { return f.modules.Get(id) }

// StudentCohort resolves the current cohort of a student for display.
func (f *Facade) StudentCohort(studentID string) (resolver.CohortView, error) {
	student, ok := f.students.Get(studentID)
	if !ok {
		return resolver.CohortView{}, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return resolver.ResolveCohort(student, f.cohorts), nil
}

// Roster lists the students of a cohort and the roster ids without a student.
func (f *Facade) Roster(cohortID string) ([]models.Student, []string, error) {
	cohort, ok := f.cohorts.Get(cohortID)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
	}
	students, missing := resolver.Roster(cohort, f.students)
	return students, missing, nil
}

// InstructorCohorts lists the cohorts an instructor is allocated to.
func (f *Facade) InstructorCohorts(instructorID string) []models.Cohort {
	return resolver.CohortsOfInstructor(instructorID, f.cohorts.All())
}

// StudentPresence is the ledger derived presence of a student.
func (f *Facade) StudentPresence(studentID string) models.PresenceSummary {
	return f.ledger.StudentPresence(studentID)
}

// SessionPresence is the ledger derived presence of a session.
func (f *Facade) SessionPresence(sessionID string) models.PresenceSummary {
	return f.ledger.SessionPresence(sessionID)
}

// Attendance returns the cached record of a (student, session) key.
func (f *Facade) Attendance(studentID, sessionID string) (models.AttendanceRecord, bool) {
	return f.ledger.Get(studentID, sessionID)
}

// SessionRecords returns the cached records of a session.
func (f *Facade) SessionRecords(sessionID string) []models.AttendanceRecord {
	return f.ledger.Session(sessionID)
}

// Stats is a passthrough to the backend population summary.
func (f *Facade) Stats(ctx context.Context) (models.StudentStats, error) {
	return f.api.StudentStats(ctx)
}

func (f *Facade) rolledBack(entity string, ids []string, err error) {
	f.logger.Warn("optimistic update rolled back",
		zap.String("entity", entity),
		zap.Strings("ids", ids),
		zap.Error(err),
	)
}

func notFound(what string) error {
	return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
}
