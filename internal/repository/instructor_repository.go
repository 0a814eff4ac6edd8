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

const instructorColumns = `id, first_name, last_name, email, phone, contract_type, mission_start, mission_end,
module_ids, expertise_domains, documents, archived, created_at, updated_at`

// InstructorRepository manages persistence for instructors.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructors ordered by last name.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.ContractType != "" {
		args = append(args, filter.ContractType)
		conditions = append(conditions, "contract_type = "+placeholder(args))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		conditions = append(conditions, "archived = "+placeholder(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		p := placeholder(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE %s OR LOWER(last_name) LIKE %s OR LOWER(email) LIKE %s)", p, p, p))
	}
	query := fmt.Sprintf("SELECT %s FROM instructors WHERE %s ORDER BY last_name ASC, first_name ASC", instructorColumns, strings.Join(conditions, " AND "))

	var rows []instructorRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	out := make([]models.Instructor, 0, len(rows))
	for _, row := range rows {
		i, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

// FindByID fetches an instructor. It returns sql.ErrNoRows when missing.
func (r *InstructorRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	var row instructorRow
	query := fmt.Sprintf("SELECT %s FROM instructors WHERE id = $1", instructorColumns)
	if err := sqlx.GetContext(ctx, target(r.db, exec), &row, query, id); err != nil {
		return nil, err
	}
	i, err := row.model()
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ExistsByEmail reports whether another instructor uses the email.
func (r *InstructorRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM instructors WHERE LOWER(email) = LOWER($1) AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check instructor email: %w", err)
	}
	return exists, nil
}

// Create inserts an instructor.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	instructor.CreatedAt = now
	instructor.UpdatedAt = now
	row, err := newInstructorRow(*instructor)
	if err != nil {
		return err
	}
	const query = `INSERT INTO instructors (id, first_name, last_name, email, phone, contract_type, mission_start, mission_end,
module_ids, expertise_domains, documents, archived, created_at, updated_at)
VALUES (:id, :first_name, :last_name, :email, :phone, :contract_type, :mission_start, :mission_end,
:module_ids, :expertise_domains, :documents, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// Update rewrites an instructor.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	instructor.UpdatedAt = time.Now().UTC()
	row, err := newInstructorRow(*instructor)
	if err != nil {
		return err
	}
	const query = `UPDATE instructors SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
contract_type = :contract_type, mission_start = :mission_start, mission_end = :mission_end, module_ids = :module_ids,
expertise_domains = :expertise_domains, documents = :documents, archived = :archived, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update instructor: %w", err)
	}
	return expectOne(res)
}

// Archive flags an instructor as archived without deleting it.
func (r *InstructorRepository) Archive(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE instructors SET archived = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archive instructor: %w", err)
	}
	return expectOne(res)
}

// Delete removes an instructor.
func (r *InstructorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM instructors WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete instructor: %w", err)
	}
	return expectOne(res)
}
