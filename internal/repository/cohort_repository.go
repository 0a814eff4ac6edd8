package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

const cohortColumns = `id, name, school_year, program_type, status, planned_headcount, enrolled_headcount, total_hours,
start_date, end_date, module_ids, student_ids, instructors, billing, created_at, updated_at`

// CohortRepository persists cohorts with their denormalized roster and instructor allocations.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository constructs a CohortRepository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

// List returns cohorts matching the filter ordered by start date.
func (r *CohortRepository) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = "+placeholder(args))
	}
	if filter.ProgramType != "" {
		args = append(args, filter.ProgramType)
		conditions = append(conditions, "program_type = "+placeholder(args))
	}
	if filter.SchoolYear != "" {
		args = append(args, filter.SchoolYear)
		conditions = append(conditions, "school_year = "+placeholder(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		p := placeholder(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(school_year) LIKE %s)", p, p))
	}
	query := fmt.Sprintf("SELECT %s FROM cohorts WHERE %s ORDER BY start_date DESC, name ASC", cohortColumns, strings.Join(conditions, " AND "))

	var rows []cohortRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	out := make([]models.Cohort, 0, len(rows))
	for _, row := range rows {
		c, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// FindByID loads a cohort. It returns sql.ErrNoRows when missing.
func (r *CohortRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Cohort, error) {
	var row cohortRow
	query := fmt.Sprintf("SELECT %s FROM cohorts WHERE id = $1", cohortColumns)
	if err := sqlx.GetContext(ctx, target(r.db, exec), &row, query, id); err != nil {
		return nil, err
	}
	c, err := row.model()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindForUpdate loads a cohort and locks its row until the transaction ends.
func (r *CohortRepository) FindForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Cohort, error) {
	var row cohortRow
	query := fmt.Sprintf("SELECT %s FROM cohorts WHERE id = $1 FOR UPDATE", cohortColumns)
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	c, err := row.model()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a cohort, assigning id and timestamps.
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cohort.CreatedAt.IsZero() {
		cohort.CreatedAt = now
	}
	cohort.UpdatedAt = now
	cohort.EnrolledHeadcount = len(cohort.StudentIDs)
	row, err := newCohortRow(*cohort)
	if err != nil {
		return err
	}
	const query = `INSERT INTO cohorts (id, name, school_year, program_type, status, planned_headcount, enrolled_headcount, total_hours,
start_date, end_date, module_ids, student_ids, instructors, billing, created_at, updated_at)
VALUES (:id, :name, :school_year, :program_type, :status, :planned_headcount, :enrolled_headcount, :total_hours,
:start_date, :end_date, :module_ids, :student_ids, :instructors, :billing, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}

// Update rewrites every column of the cohort.
func (r *CohortRepository) Update(ctx context.Context, exec sqlx.ExtContext, cohort *models.Cohort) error {
	cohort.UpdatedAt = time.Now().UTC()
	cohort.EnrolledHeadcount = len(cohort.StudentIDs)
	row, err := newCohortRow(*cohort)
	if err != nil {
		return err
	}
	const query = `UPDATE cohorts SET name = :name, school_year = :school_year, program_type = :program_type, status = :status,
planned_headcount = :planned_headcount, enrolled_headcount = :enrolled_headcount, total_hours = :total_hours,
start_date = :start_date, end_date = :end_date, module_ids = :module_ids, student_ids = :student_ids,
instructors = :instructors, billing = :billing, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, target(r.db, exec), query, row)
	if err != nil {
		return fmt.Errorf("update cohort: %w", err)
	}
	return expectOne(res)
}

// Delete removes a cohort. Students and attendance keep their references.
func (r *CohortRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cohorts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete cohort: %w", err)
	}
	return expectOne(res)
}

// Billing recomputes the financed and self funded counts of the roster.
func (r *CohortRepository) Billing(ctx context.Context, exec sqlx.ExtContext, studentIDs []string) (financed, selfFunded int, err error) {
	if len(studentIDs) == 0 {
		return 0, 0, nil
	}
	query, args, err := sqlx.In(`SELECT
COUNT(*) FILTER (WHERE financing_type NOT IN ('personal', 'none')) AS financed,
COUNT(*) FILTER (WHERE financing_type IN ('personal', 'none')) AS self_funded
FROM students WHERE id IN (?)`, studentIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("build billing query: %w", err)
	}
	ext := target(r.db, exec)
	query = ext.Rebind(query)
	var counts struct {
		Financed   int `db:"financed"`
		SelfFunded int `db:"self_funded"`
	}
	if err := sqlx.GetContext(ctx, ext, &counts, query, args...); err != nil {
		return 0, 0, fmt.Errorf("count cohort billing: %w", err)
	}
	return counts.Financed, counts.SelfFunded, nil
}

func expectOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
