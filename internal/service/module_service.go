package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

type moduleRepository interface {
	List(ctx context.Context, filter models.ModuleFilter) ([]models.Module, error)
	FindByID(ctx context.Context, id string) (*models.Module, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, module *models.Module) error
	Update(ctx context.Context, module *models.Module) error
	Delete(ctx context.Context, id string) error
}

// ModuleService orchestrates course module operations.
type ModuleService struct {
	repo      moduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs a ModuleService.
func NewModuleService(repo moduleRepository, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModuleService{repo: repo, validator: validate, logger: logger}
}

// List returns modules matching the filter.
func (s *ModuleService) List(ctx context.Context, filter models.ModuleFilter) ([]models.Module, error) {
	modules, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list modules")
	}
	return modules, nil
}

// Get returns a module by id.
func (s *ModuleService) Get(ctx context.Context, id string) (*models.Module, error) {
	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "module not found", "failed to load module")
	}
	return module, nil
}

// Create registers a module. Codes are unique regardless of case.
func (s *ModuleService) Create(ctx context.Context, req dto.CreateModuleRequest) (*models.Module, error) {
	if err := dto.Validate(s.validator, req, "invalid module payload"); err != nil {
		return nil, err
	}
	module := req.ToModel()
	module.Code = strings.ToUpper(strings.TrimSpace(module.Code))
	if err := s.ensureUniqueCode(ctx, module.Code, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &module); err != nil {
		return nil, internal(err, "failed to create module")
	}
	return &module, nil
}

// Update applies a partial update.
func (s *ModuleService) Update(ctx context.Context, id string, req dto.UpdateModuleRequest) (*models.Module, error) {
	if err := dto.Validate(s.validator, req, "invalid module payload"); err != nil {
		return nil, err
	}
	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "module not found", "failed to load module")
	}
	req.Apply(module)
	module.Code = strings.ToUpper(strings.TrimSpace(module.Code))
	if req.Code != nil {
		if err := s.ensureUniqueCode(ctx, module.Code, id); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, module); err != nil {
		return nil, lookupErr(err, "module not found", "failed to update module")
	}
	return module, nil
}

// Delete removes a module. Cohorts referencing it keep the id.
func (s *ModuleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupErr(err, "module not found", "failed to delete module")
	}
	return nil
}

func (s *ModuleService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return internal(err, "failed to check module code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "module code already exists")
	}
	return nil
}
