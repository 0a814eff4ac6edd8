package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/resolver"
	"github.com/noah-isme/cohort-ledger-api/pkg/cache"
	"github.com/noah-isme/cohort-ledger-api/pkg/database"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

var studentStatsKey = cache.Key("stats", "students")

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.StudentStats, error)
}

type studentCohortRepository interface {
	FindForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Cohort, error)
	Update(ctx context.Context, exec sqlx.ExtContext, cohort *models.Cohort) error
	Billing(ctx context.Context, exec sqlx.ExtContext, studentIDs []string) (int, int, error)
}

// StudentService orchestrates student operations and the statistics cache.
type StudentService struct {
	repo      studentRepository
	cohorts   studentCohortRepository
	tx        database.TxBeginner
	cache     *CacheService
	statsTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, cohorts studentCohortRepository, tx database.TxBeginner, cache *CacheService, statsTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cohorts: cohorts, tx: tx, cache: cache, statsTTL: statsTTL, validator: validate, logger: logger}
}

// List returns students matching the query.
func (s *StudentService) List(ctx context.Context, query dto.StudentListQuery) ([]models.Student, error) {
	if err := dto.Validate(s.validator, query, "invalid student filter"); err != nil {
		return nil, err
	}
	students, err := s.repo.List(ctx, query.ToFilter())
	if err != nil {
		return nil, internal(err, "failed to list students")
	}
	return students, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Create registers a student. When a current cohort is given, the student is
// appended to that cohort's roster in the same transaction.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := dto.Validate(s.validator, req, "invalid student payload"); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}
	student := req.ToModel()
	student.Email = strings.TrimSpace(student.Email)

	cohortID := strings.TrimSpace(req.CurrentCohortID)
	if cohortID == "" {
		if err := s.repo.Create(ctx, nil, &student); err != nil {
			return nil, internal(err, "failed to create student")
		}
		s.cache.Invalidate(ctx, studentStatsKey)
		return &student, nil
	}

	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		cohort, err := s.cohorts.FindForUpdate(ctx, tx, cohortID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Field("cohorteActuelle", "unknown cohort "+cohortID)
			}
			return err
		}
		if err := s.repo.Create(ctx, tx, &student); err != nil {
			return err
		}
		outcome := resolver.Enroll(*cohort, studentIndex{student.ID: student}, []string{student.ID})
		financed, selfFunded, err := s.cohorts.Billing(ctx, tx, outcome.Cohort.StudentIDs)
		if err != nil {
			return err
		}
		outcome.Cohort.Billing.FinancedStudents = financed
		outcome.Cohort.Billing.SelfFundedStudents = selfFunded
		for _, warning := range outcome.Warnings {
			s.logger.Warn("cohort over capacity", zap.String("cohort_id", cohortID), zap.String("warning", warning))
		}
		return s.cohorts.Update(ctx, tx, &outcome.Cohort)
	})
	if err != nil {
		return nil, internal(err, "failed to create student")
	}
	s.cache.Invalidate(ctx, studentStatsKey)
	return &student, nil
}

// Update applies a partial update. The cohort pointer only moves through enrollment.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := dto.Validate(s.validator, req, "invalid student payload"); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "student not found", "failed to load student")
	}
	if req.Email != nil {
		if err := s.ensureUniqueEmail(ctx, *req.Email, id); err != nil {
			return nil, err
		}
	}
	req.Apply(student)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, lookupErr(err, "student not found", "failed to update student")
	}
	s.cache.Invalidate(ctx, studentStatsKey)
	return student, nil
}

// Delete removes a student. Rosters referencing it keep the dangling id.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupErr(err, "student not found", "failed to delete student")
	}
	s.cache.Invalidate(ctx, studentStatsKey)
	return nil
}

// Stats returns population statistics, served from the cache when fresh.
func (s *StudentService) Stats(ctx context.Context) (*models.StudentStats, bool, error) {
	var cached models.StudentStats
	if s.cache.Get(ctx, studentStatsKey, &cached) {
		return &cached, true, nil
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, internal(err, "failed to compute student statistics")
	}
	s.cache.Set(ctx, studentStatsKey, stats, s.statsTTL)
	return stats, false, nil
}

func (s *StudentService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return internal(err, "failed to check student email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used by another student")
	}
	return nil
}
