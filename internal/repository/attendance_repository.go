package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

// ErrVersionConflict is returned when an upsert carries a stale expected version.
var ErrVersionConflict = errors.New("attendance record version conflict")

const attendanceColumns = `id, student_id, session_id, status, justification_id, comment, recorded_by, version, created_at, updated_at`

// AttendanceRepository persists the attendance ledger. (student_id, session_id) is unique.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert replaces the record of the (student, session) pair or creates it.
// The id, justification and creation time of an existing record are kept and
// its version is incremented. When expectedVersion is set and the stored
// version differs, ErrVersionConflict is returned.
func (r *AttendanceRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, record models.AttendanceRecord, expectedVersion *int64) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO attendance_records (id, student_id, session_id, status, comment, recorded_by, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)
ON CONFLICT (student_id, session_id)
DO UPDATE SET status = EXCLUDED.status, comment = EXCLUDED.comment, recorded_by = EXCLUDED.recorded_by,
version = attendance_records.version + 1, updated_at = EXCLUDED.updated_at
WHERE $8::bigint IS NULL OR attendance_records.version = $8::bigint
RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	err := sqlx.GetContext(ctx, target(r.db, exec), &stored, query,
		record.ID, record.StudentID, record.SessionID, record.Status, record.Comment, record.RecordedBy, now, expectedVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// FindByID fetches a record. It returns sql.ErrNoRows when missing.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE id = $1", attendanceColumns)
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AttachJustification links a justification document to a record without changing its status.
func (r *AttendanceRepository) AttachJustification(ctx context.Context, id, documentID string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance_records SET justification_id = $2, version = version + 1, updated_at = $3
WHERE id = $1 RETURNING %s`, attendanceColumns)
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, query, id, documentID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListBySession returns the records of a session in creation order.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE session_id = $1 ORDER BY created_at ASC, id ASC", attendanceColumns)
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session attendance: %w", err)
	}
	return records, nil
}

// ListByStudent returns the records of a student in creation order.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE student_id = $1 ORDER BY created_at ASC, id ASC", attendanceColumns)
	records := []models.AttendanceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

// SessionSheet returns the records of a session with student names for
// export. Records of deleted students keep empty names.
func (r *AttendanceRepository) SessionSheet(ctx context.Context, sessionID string) ([]models.AttendanceSheetRow, error) {
	const query = `SELECT a.id, a.student_id, a.session_id, a.status, a.justification_id, a.comment, a.recorded_by, a.version,
a.created_at, a.updated_at, COALESCE(s.first_name, '') AS first_name, COALESCE(s.last_name, '') AS last_name
FROM attendance_records a
LEFT JOIN students s ON s.id = a.student_id
WHERE a.session_id = $1
ORDER BY s.last_name ASC NULLS LAST, s.first_name ASC NULLS LAST, a.student_id ASC`
	rows := []models.AttendanceSheetRow{}
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("attendance sheet: %w", err)
	}
	return rows, nil
}

// OpenSession records every listed student without a record as absent and
// returns the records it created. Existing records are left untouched.
func (r *AttendanceRepository) OpenSession(ctx context.Context, sessionID string, studentIDs []string, recordedBy string) ([]models.AttendanceRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin open session: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()
	query := fmt.Sprintf(`INSERT INTO attendance_records (id, student_id, session_id, status, recorded_by, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
ON CONFLICT (student_id, session_id) DO NOTHING
RETURNING %s`, attendanceColumns)
	now := time.Now().UTC()
	created := []models.AttendanceRecord{}
	seen := make(map[string]struct{}, len(studentIDs))
	for _, studentID := range studentIDs {
		if _, dup := seen[studentID]; dup || studentID == "" {
			continue
		}
		seen[studentID] = struct{}{}
		var rec models.AttendanceRecord
		err := tx.GetContext(ctx, &rec, query, uuid.NewString(), studentID, sessionID, models.AttendanceStatusAbsent, recordedBy, now)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("open session for %s: %w", studentID, err)
		}
		created = append(created, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit open session: %w", err)
	}
	commit = true
	return created, nil
}

// BulkUpsert writes imported rows. In atomic mode all rows share a
// transaction and the first failure aborts the import. In partialOnError mode
// each row is written on its own and failures are reported as conflicts.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord, mode models.BulkOperationMode) (int, []models.AttendanceBulkConflict, error) {
	conflicts := []models.AttendanceBulkConflict{}
	if len(records) == 0 {
		return 0, conflicts, nil
	}
	if mode != models.BulkModeAtomic {
		applied := 0
		for i, rec := range records {
			if _, err := r.Upsert(ctx, nil, rec, nil); err != nil {
				conflicts = append(conflicts, models.AttendanceBulkConflict{Row: i + 1, StudentID: rec.StudentID, Reason: err.Error()})
				continue
			}
			applied++
		}
		return applied, conflicts, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin attendance import: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()
	for i, rec := range records {
		if _, err := r.Upsert(ctx, tx, rec, nil); err != nil {
			return 0, []models.AttendanceBulkConflict{{Row: i + 1, StudentID: rec.StudentID, Reason: err.Error()}},
				fmt.Errorf("import row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit attendance import: %w", err)
	}
	commit = true
	return len(records), conflicts, nil
}

