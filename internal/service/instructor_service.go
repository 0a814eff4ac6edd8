package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// InstructorService orchestrates instructor operations.
type InstructorService struct {
	repo      instructorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs an InstructorService.
func NewInstructorService(repo instructorRepository, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, validator: validate, logger: logger}
}

// List returns instructors matching the filter.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	instructors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list instructors")
	}
	return instructors, nil
}

// Get returns an instructor by id.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "instructor not found", "failed to load instructor")
	}
	return instructor, nil
}

// Create registers an instructor.
func (s *InstructorService) Create(ctx context.Context, req dto.CreateInstructorRequest) (*models.Instructor, error) {
	if err := dto.Validate(s.validator, req, "invalid instructor payload"); err != nil {
		return nil, err
	}
	instructor := req.ToModel()
	if err := checkMission(instructor); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, instructor.Email, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &instructor); err != nil {
		return nil, internal(err, "failed to create instructor")
	}
	return &instructor, nil
}

// Update applies a partial update, including the archive flag.
func (s *InstructorService) Update(ctx context.Context, id string, req dto.UpdateInstructorRequest) (*models.Instructor, error) {
	if err := dto.Validate(s.validator, req, "invalid instructor payload"); err != nil {
		return nil, err
	}
	instructor, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupErr(err, "instructor not found", "failed to load instructor")
	}
	req.Apply(instructor)
	if err := checkMission(*instructor); err != nil {
		return nil, err
	}
	if req.Email != nil {
		if err := s.ensureUniqueEmail(ctx, instructor.Email, id); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, instructor); err != nil {
		return nil, lookupErr(err, "instructor not found", "failed to update instructor")
	}
	return instructor, nil
}

// Archive flags an instructor as archived.
func (s *InstructorService) Archive(ctx context.Context, id string) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		return lookupErr(err, "instructor not found", "failed to archive instructor")
	}
	s.logger.Info("instructor archived", zap.String("instructor_id", id))
	return nil
}

// Delete removes an instructor. Cohort allocations referencing it are kept.
func (s *InstructorService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupErr(err, "instructor not found", "failed to delete instructor")
	}
	return nil
}

func (s *InstructorService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return internal(err, "failed to check instructor email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used by another instructor")
	}
	return nil
}

func checkMission(i models.Instructor) error {
	if i.MissionStart == nil || i.MissionEnd == nil {
		return nil
	}
	return dto.CheckPeriod(*i.MissionStart, *i.MissionEnd, "dateFinMission", "dateDebutMission")
}
