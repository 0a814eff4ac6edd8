package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/resolver"
	"github.com/noah-isme/cohort-ledger-api/pkg/database"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

type cohortRepository interface {
	List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Cohort, error)
	FindForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Cohort, error)
	Create(ctx context.Context, cohort *models.Cohort) error
	Update(ctx context.Context, exec sqlx.ExtContext, cohort *models.Cohort) error
	Delete(ctx context.Context, id string) error
	Billing(ctx context.Context, exec sqlx.ExtContext, studentIDs []string) (int, int, error)
}

type rosterStudentRepository interface {
	FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Student, error)
	SetCohort(ctx context.Context, exec sqlx.ExtContext, student models.Student) error
}

type cohortInstructorReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
}

// CohortServiceOptions tunes the cohort lifecycle rules.
type CohortServiceOptions struct {
	StrictStatus bool
}

// CohortService manages cohorts, their rosters and instructor allocations.
type CohortService struct {
	cohorts     cohortRepository
	students    rosterStudentRepository
	instructors cohortInstructorReader
	tx          database.TxBeginner
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	opts        CohortServiceOptions
}

// NewCohortService constructs a CohortService.
func NewCohortService(cohorts cohortRepository, students rosterStudentRepository, instructors cohortInstructorReader, tx database.TxBeginner, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, opts CohortServiceOptions) *CohortService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CohortService{
		cohorts:     cohorts,
		students:    students,
		instructors: instructors,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		opts:        opts,
	}
}

// List returns cohorts matching the filter.
func (s *CohortService) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, error) {
	cohorts, err := s.cohorts.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list cohorts")
	}
	return cohorts, nil
}

// Get returns a cohort by id.
func (s *CohortService) Get(ctx context.Context, id string) (*models.Cohort, error) {
	cohort, err := s.cohorts.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "cohort not found", "failed to load cohort")
	}
	return cohort, nil
}

// Create registers a cohort with an empty roster.
func (s *CohortService) Create(ctx context.Context, req dto.CreateCohortRequest) (*models.Cohort, error) {
	if err := dto.Validate(s.validator, req, "invalid cohort payload"); err != nil {
		return nil, err
	}
	if err := dto.CheckPeriod(req.StartDate, req.EndDate, "dateFin", "dateDebut"); err != nil {
		return nil, err
	}
	cohort := req.ToModel()
	if err := s.cohorts.Create(ctx, &cohort); err != nil {
		return nil, internal(err, "failed to create cohort")
	}
	s.logger.Info("cohort created", zap.String("cohort_id", cohort.ID), zap.String("name", cohort.Name))
	return &cohort, nil
}

// Update applies a partial update. With strict status enabled, the status may
// only stay the same or move one step along in_preparation, active, closed.
func (s *CohortService) Update(ctx context.Context, id string, req dto.UpdateCohortRequest) (*models.Cohort, error) {
	if err := dto.Validate(s.validator, req, "invalid cohort payload"); err != nil {
		return nil, err
	}
	cohort, err := s.cohorts.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "cohort not found", "failed to load cohort")
	}
	previous := cohort.Status
	req.Apply(cohort)
	if s.opts.StrictStatus && !previous.CanTransitionTo(cohort.Status) {
		return nil, appErrors.Field("statut", fmt.Sprintf("cannot move from %s to %s", previous, cohort.Status))
	}
	if err := dto.CheckPeriod(cohort.StartDate, cohort.EndDate, "dateFin", "dateDebut"); err != nil {
		return nil, err
	}
	if err := s.cohorts.Update(ctx, nil, cohort); err != nil {
		return nil, lookupErr(err, "cohort not found", "failed to update cohort")
	}
	return cohort, nil
}

// Delete removes a cohort. Students keep their pointers, which then dangle.
func (s *CohortService) Delete(ctx context.Context, id string) error {
	if err := s.cohorts.Delete(ctx, id); err != nil {
		return lookupErr(err, "cohort not found", "failed to delete cohort")
	}
	s.cache.Invalidate(ctx, studentStatsKey)
	return nil
}

// EnrollStudents adds students to the roster. Already enrolled students are
// skipped, unknown ids are reported and the capacity check only warns.
func (s *CohortService) EnrollStudents(ctx context.Context, cohortID string, req dto.CohortStudentsRequest) (*dto.CohortMutationResponse, error) {
	if err := dto.Validate(s.validator, req, "invalid roster payload"); err != nil {
		return nil, err
	}
	outcome, students, err := s.changeRoster(ctx, cohortID, req.StudentIDs, resolver.Enroll)
	if err != nil {
		return nil, internal(err, "failed to enroll students")
	}
	s.metrics.RecordRosterChange("enroll", len(outcome.Applied), len(outcome.Warnings) > 0)
	for _, warning := range outcome.Warnings {
		s.logger.Warn("cohort over capacity", zap.String("cohort_id", cohortID), zap.String("warning", warning))
	}
	return mutationResponse(outcome, students), nil
}

// UnenrollStudents removes students from the roster.
func (s *CohortService) UnenrollStudents(ctx context.Context, cohortID string, req dto.CohortStudentsRequest) (*dto.CohortMutationResponse, error) {
	if err := dto.Validate(s.validator, req, "invalid roster payload"); err != nil {
		return nil, err
	}
	outcome, students, err := s.changeRoster(ctx, cohortID, req.StudentIDs, resolver.Unenroll)
	if err != nil {
		return nil, internal(err, "failed to unenroll students")
	}
	s.metrics.RecordRosterChange("unenroll", len(outcome.Applied), false)
	return mutationResponse(outcome, students), nil
}

type rosterChange func(models.Cohort, resolver.StudentLookup, []string) resolver.Outcome

// changeRoster locks the cohort, applies change and persists the roster,
// the moved student pointers and the recomputed billing counts together. It
// also returns the stored state of every known student named in ids.
func (s *CohortService) changeRoster(ctx context.Context, cohortID string, ids []string, change rosterChange) (resolver.Outcome, []models.Student, error) {
	var (
		outcome  resolver.Outcome
		affected []models.Student
	)
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		cohort, err := s.cohorts.FindForUpdate(ctx, tx, cohortID)
		if err != nil {
			return lookupErr(err, "cohort not found", "failed to load cohort")
		}
		students, err := s.students.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		outcome = change(*cohort, newStudentIndex(students), ids)
		affected = overlayStudents(students, outcome.Students)
		if !outcome.Changed() {
			return nil
		}
		for _, student := range outcome.Students {
			if err := s.students.SetCohort(ctx, tx, student); err != nil {
				return err
			}
		}
		financed, selfFunded, err := s.cohorts.Billing(ctx, tx, outcome.Cohort.StudentIDs)
		if err != nil {
			return err
		}
		outcome.Cohort.Billing.FinancedStudents = financed
		outcome.Cohort.Billing.SelfFundedStudents = selfFunded
		return s.cohorts.Update(ctx, tx, &outcome.Cohort)
	})
	if err != nil {
		return outcome, nil, err
	}
	if outcome.Changed() {
		s.cache.Invalidate(ctx, studentStatsKey)
	}
	return outcome, affected, nil
}

// overlayStudents replaces fetched students by their changed versions,
// keeping the fetch order and dropping duplicate ids.
func overlayStudents(fetched, changed []models.Student) []models.Student {
	byID := make(map[string]models.Student, len(changed))
	for _, st := range changed {
		byID[st.ID] = st
	}
	out := make([]models.Student, 0, len(fetched))
	seen := make(map[string]bool, len(fetched))
	for _, st := range fetched {
		if seen[st.ID] {
			continue
		}
		seen[st.ID] = true
		if updated, ok := byID[st.ID]; ok {
			st = updated
		}
		out = append(out, st)
	}
	return out
}

// AssignInstructor allocates hours to an existing instructor, updating the
// allocation in place when the instructor is already assigned.
func (s *CohortService) AssignInstructor(ctx context.Context, cohortID string, req dto.AssignInstructorRequest) (*dto.CohortMutationResponse, error) {
	if err := dto.Validate(s.validator, req, "invalid instructor allocation"); err != nil {
		return nil, err
	}
	return s.changeInstructors(ctx, cohortID, func(tx *sqlx.Tx, cohort models.Cohort) (models.Cohort, error) {
		if _, err := s.instructors.FindByID(ctx, tx, req.InstructorID); err != nil {
			return cohort, lookupErr(err, "instructor not found", "failed to load instructor")
		}
		return resolver.AssignInstructor(cohort, nil, req.InstructorID, req.AllocatedHours)
	})
}

// RemoveInstructor drops an instructor allocation.
func (s *CohortService) RemoveInstructor(ctx context.Context, cohortID string, req dto.RemoveInstructorRequest) (*dto.CohortMutationResponse, error) {
	if err := dto.Validate(s.validator, req, "invalid instructor allocation"); err != nil {
		return nil, err
	}
	return s.changeInstructors(ctx, cohortID, func(_ *sqlx.Tx, cohort models.Cohort) (models.Cohort, error) {
		return resolver.RemoveInstructor(cohort, req.InstructorID)
	})
}

func (s *CohortService) changeInstructors(ctx context.Context, cohortID string, change func(*sqlx.Tx, models.Cohort) (models.Cohort, error)) (*dto.CohortMutationResponse, error) {
	var updated models.Cohort
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		cohort, err := s.cohorts.FindForUpdate(ctx, tx, cohortID)
		if err != nil {
			return lookupErr(err, "cohort not found", "failed to load cohort")
		}
		updated, err = change(tx, *cohort)
		if err != nil {
			return err
		}
		return s.cohorts.Update(ctx, tx, &updated)
	})
	if err != nil {
		return nil, internal(err, "failed to update cohort instructors")
	}
	resp := &dto.CohortMutationResponse{Cohort: updated}
	if msg, over := resolver.CapacityWarning(updated); over {
		resp.Warnings = []string{msg}
	}
	return resp, nil
}

func mutationResponse(outcome resolver.Outcome, students []models.Student) *dto.CohortMutationResponse {
	return &dto.CohortMutationResponse{
		Cohort:   outcome.Cohort,
		Students: students,
		Warnings: outcome.Warnings,
		NotFound: outcome.NotFound,
	}
}

// studentIndex serves resolver lookups from a fetched batch.
type studentIndex map[string]models.Student

func newStudentIndex(students []models.Student) studentIndex {
	index := make(studentIndex, len(students))
	for _, s := range students {
		index[s.ID] = s
	}
	return index
}

func (i studentIndex) Get(id string) (models.Student, bool) {
	s, ok := i[id]
	if !ok {
		return models.Student{}, false
	}
	return s.Clone(), true
}
