package dto

import "github.com/noah-isme/cohort-ledger-api/internal/models"

// UpsertAttendanceRequest is the body of POST /attendance.
type UpsertAttendanceRequest struct {
	StudentID       string  `json:"etudiantId" validate:"required"`
	SessionID       string  `json:"sessionId" validate:"required"`
	Status          string  `json:"statut" validate:"required,attendance_status"`
	Comment         *string `json:"commentaire,omitempty"`
	ExpectedVersion *int64  `json:"expectedVersion,omitempty" validate:"omitempty,gte=0"`
}

// ToModel builds the record described by the request.
func (r UpsertAttendanceRequest) ToModel(recordedBy string) models.AttendanceRecord {
	rec := models.AttendanceRecord{
		StudentID:  r.StudentID,
		SessionID:  r.SessionID,
		Status:     models.AttendanceStatus(r.Status),
		RecordedBy: recordedBy,
	}
	if r.Comment != nil {
		c := *r.Comment
		rec.Comment = &c
	}
	return rec
}

// OpenSessionRequest is the body of POST /attendance/session/:id/open.
// Either a cohort whose roster is used or an explicit list of students is given.
type OpenSessionRequest struct {
	CohortID   string   `json:"cohorteId" validate:"required_without=StudentIDs"`
	StudentIDs []string `json:"studentIds" validate:"omitempty,dive,required"`
}

// ExportQuery selects the format of GET /attendance/session/:id/export.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=xlsx csv pdf"`
}

// ImportOptions controls how an emargement sheet is written into the ledger.
type ImportOptions struct {
	Mode string `form:"mode" validate:"omitempty,bulk_mode"`
}
