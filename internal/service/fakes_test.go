package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	"github.com/noah-isme/cohort-ledger-api/internal/repository"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
	"github.com/noah-isme/cohort-ledger-api/pkg/jobs"
)

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type fakeCohortRepo struct {
	cohorts map[string]models.Cohort
	updates int
}

func newFakeCohortRepo(cohorts ...models.Cohort) *fakeCohortRepo {
	repo := &fakeCohortRepo{cohorts: map[string]models.Cohort{}}
	for _, c := range cohorts {
		repo.cohorts[c.ID] = c.Clone()
	}
	return repo
}

func (f *fakeCohortRepo) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, error) {
	out := []models.Cohort{}
	for _, c := range f.cohorts {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (f *fakeCohortRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Cohort, error) {
	c, ok := f.cohorts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := c.Clone()
	return &clone, nil
}

func (f *fakeCohortRepo) FindForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Cohort, error) {
	return f.FindByID(ctx, nil, id)
}

func (f *fakeCohortRepo) Create(ctx context.Context, cohort *models.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = "c-new"
	}
	f.cohorts[cohort.ID] = cohort.Clone()
	return nil
}

func (f *fakeCohortRepo) Update(ctx context.Context, exec sqlx.ExtContext, cohort *models.Cohort) error {
	if _, ok := f.cohorts[cohort.ID]; !ok {
		return sql.ErrNoRows
	}
	cohort.EnrolledHeadcount = len(cohort.StudentIDs)
	f.cohorts[cohort.ID] = cohort.Clone()
	f.updates++
	return nil
}

func (f *fakeCohortRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.cohorts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.cohorts, id)
	return nil
}

func (f *fakeCohortRepo) Billing(ctx context.Context, exec sqlx.ExtContext, ids []string) (int, int, error) {
	return len(ids), 0, nil
}

type fakeStudentRepo struct {
	students map[string]models.Student
	stats    *models.StudentStats
	statsHit int
}

func newFakeStudentRepo(students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: map[string]models.Student{}}
	for _, s := range students {
		repo.students[s.ID] = s.Clone()
	}
	return repo
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	out := []models.Student{}
	for _, s := range f.students {
		if filter.CohortID != "" && s.CurrentCohort.ID() != filter.CohortID {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := s.Clone()
	return &clone, nil
}

func (f *fakeStudentRepo) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Student, error) {
	out := []models.Student{}
	for _, id := range ids {
		if s, ok := f.students[id]; ok {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for id, s := range f.students {
		if id != excludeID && strings.EqualFold(s.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if student.ID == "" {
		student.ID = "s-new"
	}
	f.students[student.ID] = student.Clone()
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.students[student.ID] = student.Clone()
	return nil
}

func (f *fakeStudentRepo) SetCohort(ctx context.Context, exec sqlx.ExtContext, student models.Student) error {
	current := f.students[student.ID]
	current.CurrentCohort = student.CurrentCohort
	current.CohortHistory = append([]string{}, student.CohortHistory...)
	f.students[student.ID] = current
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

func (f *fakeStudentRepo) Stats(ctx context.Context) (*models.StudentStats, error) {
	f.statsHit++
	stats := &models.StudentStats{Total: len(f.students), ByStatus: map[models.EnrollmentStatus]int{}, ByFinancing: map[models.FinancingType]int{}}
	for _, s := range f.students {
		stats.ByStatus[s.Status]++
		stats.ByFinancing[s.FinancingType]++
		if !s.CurrentCohort.IsSet() {
			stats.WithoutCohort++
		}
	}
	return stats, nil
}

type fakeInstructorRepo struct {
	instructors map[string]models.Instructor
}

func (f *fakeInstructorRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	i, ok := f.instructors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := i.Clone()
	return &clone, nil
}

// memoryCache is a CacheRepository kept in a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string]interface{}{}} }

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if stats, ok := v.(*models.StudentStats); ok {
		*(dest.(*models.StudentStats)) = *stats
	}
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, pattern)
	return nil
}

type fakeAttendanceRepo struct {
	records   map[models.AttendanceKey]models.AttendanceRecord
	conflict  bool
	bulkCalls [][]models.AttendanceRecord
	seq       int
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: map[models.AttendanceKey]models.AttendanceRecord{}}
}

func (f *fakeAttendanceRepo) Upsert(ctx context.Context, exec sqlx.ExtContext, record models.AttendanceRecord, expectedVersion *int64) (*models.AttendanceRecord, error) {
	prev, ok := f.records[record.Key()]
	if expectedVersion != nil && ok && prev.Version != *expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	if ok {
		record.ID = prev.ID
		record.JustificationID = prev.JustificationID
		record.Version = prev.Version + 1
	} else {
		f.seq++
		record.ID = fmt.Sprintf("att-%d", f.seq)
		record.Version = 1
	}
	f.records[record.Key()] = record
	return &record, nil
}

func (f *fakeAttendanceRepo) find(id string) (models.AttendanceRecord, bool) {
	for _, r := range f.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.AttendanceRecord{}, false
}

func (f *fakeAttendanceRepo) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	r, ok := f.find(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (f *fakeAttendanceRepo) AttachJustification(ctx context.Context, id, documentID string) (*models.AttendanceRecord, error) {
	r, ok := f.find(id)
	if !ok {
		return nil, sql.ErrNoRows
	}
	r.JustificationID = &documentID
	r.Version++
	f.records[r.Key()] = r
	return &r, nil
}

func (f *fakeAttendanceRepo) list(match func(models.AttendanceRecord) bool) []models.AttendanceRecord {
	out := []models.AttendanceRecord{}
	for _, r := range f.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

func (f *fakeAttendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	return f.list(func(r models.AttendanceRecord) bool { return r.SessionID == sessionID }), nil
}

func (f *fakeAttendanceRepo) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	return f.list(func(r models.AttendanceRecord) bool { return r.StudentID == studentID }), nil
}

func (f *fakeAttendanceRepo) SessionSheet(ctx context.Context, sessionID string) ([]models.AttendanceSheetRow, error) {
	rows := []models.AttendanceSheetRow{}
	for _, r := range f.list(func(r models.AttendanceRecord) bool { return r.SessionID == sessionID }) {
		rows = append(rows, models.AttendanceSheetRow{AttendanceRecord: r, FirstName: "F" + r.StudentID, LastName: "L" + r.StudentID})
	}
	return rows, nil
}

func (f *fakeAttendanceRepo) OpenSession(ctx context.Context, sessionID string, studentIDs []string, recordedBy string) ([]models.AttendanceRecord, error) {
	created := []models.AttendanceRecord{}
	for _, id := range studentIDs {
		key := models.AttendanceKey{StudentID: id, SessionID: sessionID}
		if _, ok := f.records[key]; ok {
			continue
		}
		rec, _ := f.Upsert(ctx, nil, models.AttendanceRecord{StudentID: id, SessionID: sessionID, Status: models.AttendanceStatusAbsent, RecordedBy: recordedBy}, nil)
		created = append(created, *rec)
	}
	return created, nil
}

func (f *fakeAttendanceRepo) BulkUpsert(ctx context.Context, records []models.AttendanceRecord, mode models.BulkOperationMode) (int, []models.AttendanceBulkConflict, error) {
	f.bulkCalls = append(f.bulkCalls, records)
	for _, r := range records {
		if _, err := f.Upsert(ctx, nil, r, nil); err != nil {
			return 0, nil, err
		}
	}
	return len(records), nil, nil
}

type fakeDocumentRepo struct {
	docs map[string]models.SessionDocument
}

func newFakeDocumentRepo(docs ...models.SessionDocument) *fakeDocumentRepo {
	repo := &fakeDocumentRepo{docs: map[string]models.SessionDocument{}}
	for _, d := range docs {
		repo.docs[d.ID] = d
	}
	return repo
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *models.SessionDocument) error {
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocumentRepo) FindByID(ctx context.Context, id string) (*models.SessionDocument, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (f *fakeDocumentRepo) ListBySession(ctx context.Context, sessionID string) ([]models.SessionDocument, error) {
	out := []models.SessionDocument{}
	for _, d := range f.docs {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocumentRepo) SetImportJob(ctx context.Context, id, jobID string) error {
	d, ok := f.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.ImportJobID = &jobID
	f.docs[id] = d
	return nil
}

type recordingQueue struct {
	submitted []ImportRequest
}

func (q *recordingQueue) Submit(kind string, payload any) (string, error) {
	q.submitted = append(q.submitted, payload.(ImportRequest))
	return "job-1", nil
}

func (q *recordingQueue) Status(id string) (jobs.Status, bool) {
	if id != "job-1" {
		return jobs.Status{}, false
	}
	return jobs.Status{ID: id, Kind: ImportJobKind, State: jobs.StateQueued}, true
}
