package facade

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/resolver"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
)

var errDown = appErrors.Wrap(fmt.Errorf("dial tcp: connection refused"), appErrors.ErrTransportFailure.Code, appErrors.ErrTransportFailure.Status, "backend unavailable")

// fakeBackend is an in-memory stand-in for the REST API.
type fakeBackend struct {
	mu          sync.Mutex
	cohorts     map[string]models.Cohort
	students    []models.Student
	instructors []models.Instructor
	modules     []models.Module
	attendance  map[models.AttendanceKey]models.AttendanceRecord
	calls       map[string]int
	failOn      map[string]error
	failFor     map[string]error
	lastUpsert  dto.UpsertAttendanceRequest
	seq         int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		cohorts:    map[string]models.Cohort{},
		attendance: map[models.AttendanceKey]models.AttendanceRecord{},
		calls:      map[string]int{},
		failOn:     map[string]error{},
		failFor:    map[string]error{},
	}
}

func (b *fakeBackend) enter(method string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[method]++
	return b.failOn[method]
}

func (b *fakeBackend) count(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *fakeBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *fakeBackend) ListCohorts(context.Context) ([]models.Cohort, error) {
	if err := b.enter("ListCohorts"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Cohort, 0, len(b.cohorts))
	for _, id := range []string{"c1", "c2", "c3"} {
		if c, ok := b.cohorts[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (b *fakeBackend) CreateCohort(_ context.Context, req dto.CreateCohortRequest) (models.Cohort, error) {
	if err := b.enter("CreateCohort"); err != nil {
		return models.Cohort{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := req.ToModel()
	c.ID = b.nextID("cohort")
	b.cohorts[c.ID] = c
	return c, nil
}

func (b *fakeBackend) UpdateCohort(_ context.Context, id string, req dto.UpdateCohortRequest) (models.Cohort, error) {
	if err := b.enter("UpdateCohort"); err != nil {
		return models.Cohort{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.cohorts[id]
	req.Apply(&c)
	c.UpdatedAt = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	b.cohorts[id] = c
	return c, nil
}

func (b *fakeBackend) DeleteCohort(_ context.Context, id string) error {
	if err := b.enter("DeleteCohort"); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.cohorts, id)
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) roster(method, cohortID string, ids []string, change func(models.Cohort, resolver.StudentLookup, []string) resolver.Outcome) (dto.CohortMutationResponse, error) {
	if err := b.enter(method); err != nil {
		return dto.CohortMutationResponse{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := change(b.cohorts[cohortID], fakeStudents(b.students), ids)
	b.cohorts[cohortID] = out.Cohort
	for _, changed := range out.Students {
		for i := range b.students {
			if b.students[i].ID == changed.ID {
				b.students[i] = changed.Clone()
			}
		}
	}
	resp := dto.CohortMutationResponse{Cohort: out.Cohort.Clone(), Warnings: out.Warnings, NotFound: out.NotFound}
	for _, id := range ids {
		if s, ok := fakeStudents(b.students).Get(id); ok {
			resp.Students = append(resp.Students, s)
		}
	}
	return resp, nil
}

type fakeStudents []models.Student

func (l fakeStudents) Get(id string) (models.Student, bool) {
	for _, s := range l {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return models.Student{}, false
}

func (b *fakeBackend) EnrollStudents(_ context.Context, cohortID string, ids []string) (dto.CohortMutationResponse, error) {
	return b.roster("EnrollStudents", cohortID, ids, resolver.Enroll)
}

func (b *fakeBackend) UnenrollStudents(_ context.Context, cohortID string, ids []string) (dto.CohortMutationResponse, error) {
	return b.roster("UnenrollStudents", cohortID, ids, resolver.Unenroll)
}

func (b *fakeBackend) AssignInstructor(_ context.Context, cohortID string, req dto.AssignInstructorRequest) (dto.CohortMutationResponse, error) {
	if err := b.enter("AssignInstructor"); err != nil {
		return dto.CohortMutationResponse{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, _ := resolver.AssignInstructor(b.cohorts[cohortID], nil, req.InstructorID, req.AllocatedHours)
	b.cohorts[cohortID] = c
	return dto.CohortMutationResponse{Cohort: c}, nil
}

func (b *fakeBackend) RemoveInstructor(_ context.Context, cohortID, instructorID string) (dto.CohortMutationResponse, error) {
	if err := b.enter("RemoveInstructor"); err != nil {
		return dto.CohortMutationResponse{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := resolver.RemoveInstructor(b.cohorts[cohortID], instructorID)
	if err != nil {
		return dto.CohortMutationResponse{}, err
	}
	b.cohorts[cohortID] = c
	return dto.CohortMutationResponse{Cohort: c}, nil
}

func (b *fakeBackend) ListStudents(context.Context, dto.StudentListQuery) ([]models.Student, error) {
	if err := b.enter("ListStudents"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Student, 0, len(b.students))
	for _, s := range b.students {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (b *fakeBackend) CreateStudent(_ context.Context, req dto.CreateStudentRequest) (models.Student, error) {
	if err := b.enter("CreateStudent"); err != nil {
		return models.Student{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := req.ToModel()
	s.ID = b.nextID("student")
	b.students = append(b.students, s)
	return s, nil
}

func (b *fakeBackend) UpdateStudent(_ context.Context, id string, req dto.UpdateStudentRequest) (models.Student, error) {
	if err := b.enter("UpdateStudent"); err != nil {
		return models.Student{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.students {
		if b.students[i].ID == id {
			req.Apply(&b.students[i])
			return b.students[i].Clone(), nil
		}
	}
	return models.Student{}, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (b *fakeBackend) DeleteStudent(context.Context, string) error { return b.enter("DeleteStudent") }

func (b *fakeBackend) StudentStats(context.Context) (models.StudentStats, error) {
	return models.StudentStats{Total: len(b.students)}, b.enter("StudentStats")
}

func (b *fakeBackend) ListInstructors(context.Context) ([]models.Instructor, error) {
	return b.instructors, b.enter("ListInstructors")
}

func (b *fakeBackend) CreateInstructor(_ context.Context, req dto.CreateInstructorRequest) (models.Instructor, error) {
	if err := b.enter("CreateInstructor"); err != nil {
		return models.Instructor{}, err
	}
	i := req.ToModel()
	i.ID = b.nextID("instructor")
	return i, nil
}

func (b *fakeBackend) UpdateInstructor(_ context.Context, id string, req dto.UpdateInstructorRequest) (models.Instructor, error) {
	if err := b.enter("UpdateInstructor"); err != nil {
		return models.Instructor{}, err
	}
	for _, i := range b.instructors {
		if i.ID == id {
			req.Apply(&i)
			return i, nil
		}
	}
	return models.Instructor{}, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
}

func (b *fakeBackend) DeleteInstructor(context.Context, string) error {
	return b.enter("DeleteInstructor")
}

func (b *fakeBackend) ListModules(context.Context) ([]models.Module, error) {
	return b.modules, b.enter("ListModules")
}

func (b *fakeBackend) CreateModule(_ context.Context, req dto.CreateModuleRequest) (models.Module, error) {
	if err := b.enter("CreateModule"); err != nil {
		return models.Module{}, err
	}
	m := req.ToModel()
	m.ID = b.nextID("module")
	return m, nil
}

func (b *fakeBackend) UpdateModule(_ context.Context, id string, req dto.UpdateModuleRequest) (models.Module, error) {
	if err := b.enter("UpdateModule"); err != nil {
		return models.Module{}, err
	}
	m := models.Module{ID: id}
	req.Apply(&m)
	return m, nil
}

func (b *fakeBackend) DeleteModule(context.Context, string) error { return b.enter("DeleteModule") }

func (b *fakeBackend) UpsertAttendance(_ context.Context, req dto.UpsertAttendanceRequest) (models.AttendanceRecord, error) {
	if err := b.enter("UpsertAttendance"); err != nil {
		return models.AttendanceRecord{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUpsert = req
	if err := b.failFor[req.StudentID]; err != nil {
		return models.AttendanceRecord{}, err
	}
	key := models.AttendanceKey{StudentID: req.StudentID, SessionID: req.SessionID}
	rec, ok := b.attendance[key]
	if req.ExpectedVersion != nil && ok && rec.Version != *req.ExpectedVersion {
		return models.AttendanceRecord{}, appErrors.Clone(appErrors.ErrConflict, "stale attendance version")
	}
	if !ok {
		rec = models.AttendanceRecord{ID: "att-" + req.StudentID + "-" + req.SessionID, StudentID: req.StudentID, SessionID: req.SessionID}
	}
	rec.Status = models.AttendanceStatus(req.Status)
	rec.Comment = req.Comment
	rec.RecordedBy = "server"
	rec.Version++
	b.attendance[key] = rec
	return rec.Clone(), nil
}

func (b *fakeBackend) AttachJustification(_ context.Context, recordID, documentID string) (models.AttendanceRecord, error) {
	if err := b.enter("AttachJustification"); err != nil {
		return models.AttendanceRecord{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, rec := range b.attendance {
		if rec.ID == recordID {
			doc := documentID
			rec.JustificationID = &doc
			rec.Version++
			b.attendance[key] = rec
			return rec.Clone(), nil
		}
	}
	return models.AttendanceRecord{}, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
}

func (b *fakeBackend) SessionAttendance(_ context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	if err := b.enter("SessionAttendance"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.AttendanceRecord
	for key, rec := range b.attendance {
		if key.SessionID == sessionID {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (b *fakeBackend) StudentAttendance(context.Context, string) ([]models.AttendanceRecord, error) {
	return nil, b.enter("StudentAttendance")
}

func (b *fakeBackend) OpenSession(_ context.Context, sessionID string, req dto.OpenSessionRequest) ([]models.AttendanceRecord, error) {
	if err := b.enter("OpenSession"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var created []models.AttendanceRecord
	for _, id := range b.cohorts[req.CohortID].StudentIDs {
		key := models.AttendanceKey{StudentID: id, SessionID: sessionID}
		if _, ok := b.attendance[key]; ok {
			continue
		}
		rec := models.AttendanceRecord{ID: "att-" + id + "-" + sessionID, StudentID: id, SessionID: sessionID, Status: models.AttendanceStatusAbsent, Version: 1}
		b.attendance[key] = rec
		created = append(created, rec)
	}
	return created, nil
}

func (b *fakeBackend) UploadJustification(_ context.Context, sessionID, filename string, _ io.Reader) (models.SessionDocument, error) {
	return models.SessionDocument{ID: "doc-1", SessionID: sessionID, Filename: filename, Kind: models.DocumentJustification}, b.enter("UploadJustification")
}

func (b *fakeBackend) UploadEmargement(_ context.Context, sessionID, filename string, _ io.Reader) (models.SessionDocument, error) {
	return models.SessionDocument{ID: "doc-2", SessionID: sessionID, Filename: filename, Kind: models.DocumentEmargement}, b.enter("UploadEmargement")
}

func (b *fakeBackend) ImportStatus(_ context.Context, jobID string) (jobs.Status, error) {
	return jobs.Status{ID: jobID, State: jobs.StateSucceeded}, b.enter("ImportStatus")
}
