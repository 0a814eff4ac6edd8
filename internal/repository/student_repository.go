package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

const studentColumns = `id, first_name, last_name, email, phone, enrollment_status, current_cohort_id, cohort_history,
financing_type, financing_amount, average_grade, presence_rate, progression_rate, notes, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters ordered by name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "enrollment_status = "+placeholder(args))
	}
	if filter.CohortID != "" {
		args = append(args, filter.CohortID)
		conditions = append(conditions, "current_cohort_id = "+placeholder(args))
	}
	if filter.FinancingType != "" {
		args = append(args, filter.FinancingType)
		conditions = append(conditions, "financing_type = "+placeholder(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		p := placeholder(args)
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE %s OR LOWER(last_name) LIKE %s OR LOWER(email) LIKE %s)", p, p, p))
	}
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY last_name ASC, first_name ASC", studentColumns, strings.Join(conditions, " AND "))

	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return studentModels(rows)
}

// FindByID fetches a student. It returns sql.ErrNoRows when missing.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var row studentRow
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	s, err := row.model()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByIDs returns the students among ids that exist.
func (r *StudentRepository) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return []models.Student{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = ANY($1)", studentColumns)
	var rows []studentRow
	if err := sqlx.SelectContext(ctx, target(r.db, exec), &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	return studentModels(rows)
}

// ExistsByEmail reports whether another student uses the email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM students WHERE LOWER(email) = LOWER($1) AND id <> $2)`
	if err := r.db.GetContext(ctx, &exists, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check student email: %w", err)
	}
	return exists, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	row, err := newStudentRow(*student)
	if err != nil {
		return err
	}
	const query = `INSERT INTO students (id, first_name, last_name, email, phone, enrollment_status, current_cohort_id, cohort_history,
financing_type, financing_amount, average_grade, presence_rate, progression_rate, notes, created_at, updated_at)
VALUES (:id, :first_name, :last_name, :email, :phone, :enrollment_status, :current_cohort_id, :cohort_history,
:financing_type, :financing_amount, :average_grade, :presence_rate, :progression_rate, :notes, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target(r.db, exec), query, row); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	row, err := newStudentRow(*student)
	if err != nil {
		return err
	}
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
enrollment_status = :enrollment_status, financing_type = :financing_type, financing_amount = :financing_amount,
average_grade = :average_grade, presence_rate = :presence_rate, progression_rate = :progression_rate, notes = :notes,
updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectOne(res)
}

// SetCohort writes the current cohort pointer and the history of a student.
func (r *StudentRepository) SetCohort(ctx context.Context, exec sqlx.ExtContext, student models.Student) error {
	var cohortID *string
	if id := student.CurrentCohort.ID(); id != "" {
		cohortID = &id
	}
	const query = `UPDATE students SET current_cohort_id = $2, cohort_history = $3, updated_at = $4 WHERE id = $1`
	if _, err := target(r.db, exec).ExecContext(ctx, query, student.ID, cohortID, pq.Array(nonNil(student.CohortHistory)), time.Now().UTC()); err != nil {
		return fmt.Errorf("set student cohort: %w", err)
	}
	return nil
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectOne(res)
}

type statusCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// Stats aggregates the student population.
func (r *StudentRepository) Stats(ctx context.Context) (*models.StudentStats, error) {
	stats := &models.StudentStats{
		ByStatus:    map[models.EnrollmentStatus]int{},
		ByFinancing: map[models.FinancingType]int{},
	}
	var totals struct {
		Total              int     `db:"total"`
		WithoutCohort      int     `db:"without_cohort"`
		AverageGrade       float64 `db:"average_grade"`
		AveragePresence    float64 `db:"average_presence"`
		AverageProgression float64 `db:"average_progression"`
	}
	const totalsQuery = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE current_cohort_id IS NULL) AS without_cohort,
COALESCE(ROUND(AVG(average_grade)::numeric, 2), 0) AS average_grade,
COALESCE(ROUND(AVG(presence_rate)::numeric, 1), 0) AS average_presence,
COALESCE(ROUND(AVG(progression_rate)::numeric, 1), 0) AS average_progression
FROM students`
	if err := r.db.GetContext(ctx, &totals, totalsQuery); err != nil {
		return nil, fmt.Errorf("student totals: %w", err)
	}
	stats.Total = totals.Total
	stats.WithoutCohort = totals.WithoutCohort
	stats.AverageGrade = totals.AverageGrade
	stats.AveragePresence = totals.AveragePresence
	stats.AverageProgression = totals.AverageProgression

	var byStatus []statusCount
	if err := r.db.SelectContext(ctx, &byStatus, `SELECT enrollment_status AS key, COUNT(*) AS count FROM students GROUP BY enrollment_status`); err != nil {
		return nil, fmt.Errorf("students by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[models.EnrollmentStatus(row.Key)] = row.Count
	}
	var byFinancing []statusCount
	if err := r.db.SelectContext(ctx, &byFinancing, `SELECT financing_type AS key, COUNT(*) AS count FROM students GROUP BY financing_type`); err != nil {
		return nil, fmt.Errorf("students by financing: %w", err)
	}
	for _, row := range byFinancing {
		stats.ByFinancing[models.FinancingType(row.Key)] = row.Count
	}
	stats.GeneratedAt = time.Now().UTC()
	return stats, nil
}

func studentModels(rows []studentRow) ([]models.Student, error) {
	out := make([]models.Student, 0, len(rows))
	for _, row := range rows {
		s, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
