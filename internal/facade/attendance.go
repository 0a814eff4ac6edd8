package facade

import (
	"context"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
)

// LoadSession merges the backend records of a session into the ledger.
func (f *Facade) LoadSession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	records, err := f.api.SessionAttendance(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	f.ledger.Merge(records)
	return records, nil
}

// LoadStudentAttendance merges the backend records of a student into the ledger.
func (f *Facade) LoadStudentAttendance(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	records, err := f.api.StudentAttendance(ctx, studentID)
	if err != nil {
		return nil, err
	}
	f.ledger.Merge(records)
	return records, nil
}

// UpsertAttendance writes the status of one student for one session. The
// previous record is restored when the backend refuses the write.
func (f *Facade) UpsertAttendance(ctx context.Context, req dto.UpsertAttendanceRequest) (models.AttendanceRecord, error) {
	req.Status = strings.ToLower(req.Status)
	if err := dto.Validate(f.validate, req, "invalid attendance"); err != nil {
		return models.AttendanceRecord{}, err
	}
	if f.checkVersions && req.ExpectedVersion == nil {
		if prev, ok := f.ledger.Get(req.StudentID, req.SessionID); ok && prev.ID != "" {
			v := prev.Version
			req.ExpectedVersion = &v
		}
	}
	_, change, err := f.ledger.Upsert(req.StudentID, req.SessionID, models.AttendanceStatus(req.Status), req.Comment, f.actor)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	saved, err := f.api.UpsertAttendance(ctx, req)
	if err != nil {
		f.ledger.Undo(change)
		f.rolledBack("attendance", []string{req.StudentID + "/" + req.SessionID}, err)
		return models.AttendanceRecord{}, err
	}
	f.ledger.Put(saved)
	return saved, nil
}

// BulkSetStatus marks every student of the list with the same status. Each
// student is sent as its own upsert; failures are reported per student and
// never abort the rest of the batch.
func (f *Facade) BulkSetStatus(ctx context.Context, sessionID string, studentIDs []string, status models.AttendanceStatus) ([]models.AttendanceOutcome, error) {
	status = models.AttendanceStatus(strings.ToLower(string(status)))
	if !status.Valid() {
		return nil, appErrors.Field("statut", "must be one of present, absent, late")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, appErrors.Field("sessionId", "required")
	}
	ids := known(studentIDs, nil)
	outcomes := make([]models.AttendanceOutcome, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(f.bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := f.UpsertAttendance(ctx, dto.UpsertAttendanceRequest{
				StudentID: id,
				SessionID: sessionID,
				Status:    string(status),
			})
			outcome := models.AttendanceOutcome{StudentID: id}
			if err != nil {
				outcome.Err = err
				outcome.Reason = err.Error()
			} else {
				outcome.Record = &rec
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

// AttachJustification links an uploaded document to an attendance record
// without changing its status.
func (f *Facade) AttachJustification(ctx context.Context, recordID, documentID string) (models.AttendanceRecord, error) {
	_, change, err := f.ledger.AttachJustification(recordID, documentID)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	saved, err := f.api.AttachJustification(ctx, recordID, documentID)
	if err != nil {
		f.ledger.Undo(change)
		f.rolledBack("attendance", []string{recordID}, err)
		return models.AttendanceRecord{}, err
	}
	f.ledger.Put(saved)
	return saved, nil
}

// OpenSession records every student of the cohort roster without a mark as
// absent, locally and on the backend. The session is loaded first so marks
// held only by the backend are not shadowed; only the records the backend
// created are kept afterwards.
func (f *Facade) OpenSession(ctx context.Context, sessionID, cohortID string) ([]models.AttendanceRecord, error) {
	cohort, ok := f.cohorts.Get(cohortID)
	if !ok {
		return nil, notFound("cohort")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, appErrors.Field("sessionId", "required")
	}
	if _, err := f.LoadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	_, changes := f.ledger.OpenSession(sessionID, cohort.StudentIDs, f.actor)
	created, err := f.api.OpenSession(ctx, sessionID, dto.OpenSessionRequest{CohortID: cohortID})
	if err != nil {
		f.ledger.Undo(changes...)
		f.rolledBack("attendance_session", []string{sessionID}, err)
		return nil, err
	}
	f.ledger.Undo(changes...)
	f.ledger.Merge(created)
	return created, nil
}

// UploadJustification stores a justification document for a session.
func (f *Facade) UploadJustification(ctx context.Context, sessionID, filename string, content io.Reader) (models.SessionDocument, error) {
	return f.api.UploadJustification(ctx, sessionID, filename, content)
}

// UploadEmargement sends a signed sheet; xlsx sheets are imported by the backend.
func (f *Facade) UploadEmargement(ctx context.Context, sessionID, filename string, content io.Reader) (models.SessionDocument, error) {
	return f.api.UploadEmargement(ctx, sessionID, filename, content)
}

// ImportStatus reports the progress of an emargement import.
func (f *Facade) ImportStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	return f.api.ImportStatus(ctx, jobID)
}
