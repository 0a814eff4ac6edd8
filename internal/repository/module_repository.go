package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

const moduleColumns = `id, name, code, hours, coefficient, semester, evaluation_type, weight, active, created_at, updated_at`

// ModuleRepository manages persistence for course modules.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs a ModuleRepository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// List returns modules ordered by code.
func (r *ModuleRepository) List(ctx context.Context, filter models.ModuleFilter) ([]models.Module, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, "semester = "+placeholder(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, "active = "+placeholder(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		p := placeholder(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(code) LIKE %s)", p, p))
	}
	query := fmt.Sprintf("SELECT %s FROM modules WHERE %s ORDER BY code ASC", moduleColumns, strings.Join(conditions, " AND "))

	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, args...); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// FindByID fetches a module. It returns sql.ErrNoRows when missing.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.Module, error) {
	var module models.Module
	query := fmt.Sprintf("SELECT %s FROM modules WHERE id = $1", moduleColumns)
	if err := r.db.GetContext(ctx, &module, query, id); err != nil {
		return nil, err
	}
	return &module, nil
}

// ExistsByCode reports whether another module uses the code.
func (r *ModuleRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM modules WHERE UPPER(code) = UPPER($1) AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check module code: %w", err)
	}
	return exists, nil
}

// Create inserts a module.
func (r *ModuleRepository) Create(ctx context.Context, module *models.Module) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now
	const query = `INSERT INTO modules (id, name, code, hours, coefficient, semester, evaluation_type, weight, active, created_at, updated_at)
VALUES (:id, :name, :code, :hours, :coefficient, :semester, :evaluation_type, :weight, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// Update rewrites a module.
func (r *ModuleRepository) Update(ctx context.Context, module *models.Module) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE modules SET name = :name, code = :code, hours = :hours, coefficient = :coefficient, semester = :semester,
evaluation_type = :evaluation_type, weight = :weight, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, module)
	if err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return expectOne(res)
}

// Delete removes a module.
func (r *ModuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM modules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	return expectOne(res)
}
