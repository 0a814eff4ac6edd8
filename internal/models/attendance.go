package models

import "time"

// AttendanceStatus is the closed status vocabulary of an attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// BulkOperationMode controls how bulk writes behave on errors.
type BulkOperationMode string

const (
	BulkModeAtomic         BulkOperationMode = "atomic"
	BulkModePartialOnError BulkOperationMode = "partialOnError"
)

// AttendanceKey identifies the single current record of a student at a session.
type AttendanceKey struct {
	StudentID string
	SessionID string
}

// AttendanceRecord is the presence of one student at one session.
type AttendanceRecord struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"etudiantId"`
	SessionID       string           `db:"session_id" json:"sessionId"`
	Status          AttendanceStatus `db:"status" json:"statut"`
	JustificationID *string          `db:"justification_id" json:"justificatifId,omitempty"`
	Comment         *string          `db:"comment" json:"commentaire,omitempty"`
	RecordedBy      string           `db:"recorded_by" json:"enregistrePar"`
	Version         int64            `db:"version" json:"version"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// Key returns the (student, session) identity of the record.
func (r AttendanceRecord) Key() AttendanceKey {
	return AttendanceKey{StudentID: r.StudentID, SessionID: r.SessionID}
}

// EntityID implements the store entity contract.
func (r AttendanceRecord) EntityID() string { return r.ID }

// Clone returns a deep copy of the record.
func (r AttendanceRecord) Clone() AttendanceRecord {
	out := r
	if r.JustificationID != nil {
		v := *r.JustificationID
		out.JustificationID = &v
	}
	if r.Comment != nil {
		v := *r.Comment
		out.Comment = &v
	}
	return out
}

// AttendanceSheetRow extends a record with the student's display name.
type AttendanceSheetRow struct {
	AttendanceRecord
	FirstName string `db:"first_name" json:"prenom"`
	LastName  string `db:"last_name" json:"nom"`
}

// PresenceSummary aggregates statuses into a presence rate expressed in percent.
type PresenceSummary struct {
	Present int     `json:"present"`
	Late    int     `json:"late"`
	Absent  int     `json:"absent"`
	Total   int     `json:"total"`
	Rate    float64 `json:"taux"`
}

// AttendanceOutcome reports the result of one item of a bulk write.
type AttendanceOutcome struct {
	StudentID string            `json:"etudiantId"`
	Record    *AttendanceRecord `json:"record,omitempty"`
	Err       error             `json:"-"`
	Reason    string            `json:"reason,omitempty"`
}

// OK reports whether the item was applied.
func (o AttendanceOutcome) OK() bool { return o.Err == nil && o.Reason == "" }

// AttendanceBulkConflict captures failed rows of an import.
type AttendanceBulkConflict struct {
	Row       int    `json:"row"`
	StudentID string `json:"etudiantId"`
	Reason    string `json:"reason"`
}

// AttendanceImportResult summarises an emargement sheet import.
type AttendanceImportResult struct {
	SessionID string                   `json:"sessionId"`
	Applied   int                      `json:"applied"`
	Conflicts []AttendanceBulkConflict `json:"conflicts"`
}

// Add counts one status into the summary.
func (s *PresenceSummary) Add(status AttendanceStatus) {
	switch status {
	case AttendanceStatusPresent:
		s.Present++
	case AttendanceStatusLate:
		s.Late++
	case AttendanceStatusAbsent:
		s.Absent++
	default:
		return
	}
	s.Total++
}
