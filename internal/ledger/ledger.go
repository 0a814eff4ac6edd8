// Package ledger holds the client-side attendance ledger: one record per
// (student, session) pair, written with upsert semantics, and a cached
// presence projection recomputed after every mutation.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

// Change is the state of one key before a mutation.
type Change struct {
	Key      models.AttendanceKey
	Previous models.AttendanceRecord
	Existed  bool
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu         sync.RWMutex
	lateWeight float64
	records    map[models.AttendanceKey]models.AttendanceRecord
	keys       []models.AttendanceKey
	byID       map[string]models.AttendanceKey
	projection *projection
	now        func() time.Time
}

// New builds an empty ledger. lateWeight is the share of a presence a late
// arrival counts for, between 0 and 1.
func New(lateWeight float64) *Ledger {
	return &Ledger{
		lateWeight: lateWeight,
		records:    make(map[models.AttendanceKey]models.AttendanceRecord),
		byID:       make(map[string]models.AttendanceKey),
		now:        time.Now,
	}
}

// LateWeight returns the configured weight of late arrivals.
func (l *Ledger) LateWeight() float64 { return l.lateWeight }

// Upsert replaces the record of (studentID, sessionID) or creates it. The
// record id, justification and creation time survive a replacement.
func (l *Ledger) Upsert(studentID, sessionID string, status models.AttendanceStatus, comment *string, recordedBy string) (models.AttendanceRecord, Change, error) {
	if err := checkKey(studentID, sessionID); err != nil {
		return models.AttendanceRecord{}, Change{}, err
	}
	if !status.Valid() {
		return models.AttendanceRecord{}, Change{}, appErrors.Field("statut", "must be one of present, absent, late")
	}
	key := models.AttendanceKey{StudentID: studentID, SessionID: sessionID}

	l.mu.Lock()
	defer l.mu.Unlock()
	prev, existed := l.records[key]
	now := l.now().UTC()
	next := models.AttendanceRecord{
		StudentID:  studentID,
		SessionID:  sessionID,
		Status:     status,
		RecordedBy: recordedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if comment != nil {
		c := *comment
		next.Comment = &c
	}
	if existed {
		next.ID = prev.ID
		next.Version = prev.Version
		next.CreatedAt = prev.CreatedAt
		next.JustificationID = prev.Clone().JustificationID
	}
	change := l.setLocked(next)
	return next.Clone(), change, nil
}

// Put stores a record as returned by the backend.
func (l *Ledger) Put(rec models.AttendanceRecord) Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setLocked(rec.Clone())
}

// Undo restores the state captured by changes, newest first.
func (l *Ledger) Undo(changes ...Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if c.Existed {
			l.setLocked(c.Previous.Clone())
			continue
		}
		l.deleteLocked(c.Key)
	}
}

// AttachJustification sets the justification of an existing record without
// touching its status.
func (l *Ledger) AttachJustification(recordID, documentID string) (models.AttendanceRecord, Change, error) {
	if strings.TrimSpace(documentID) == "" {
		return models.AttendanceRecord{}, Change{}, appErrors.Field("justificatifId", "required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key, ok := l.byID[recordID]
	if !ok || recordID == "" {
		return models.AttendanceRecord{}, Change{}, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	rec := l.records[key].Clone()
	doc := documentID
	rec.JustificationID = &doc
	rec.UpdatedAt = l.now().UTC()
	change := l.setLocked(rec)
	return rec.Clone(), change, nil
}

// OpenSession records every roster student without a record as absent.
// Students already marked keep their status.
func (l *Ledger) OpenSession(sessionID string, roster []string, recordedBy string) ([]models.AttendanceRecord, []Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var created []models.AttendanceRecord
	var changes []Change
	now := l.now().UTC()
	seen := make(map[string]struct{}, len(roster))
	for _, studentID := range roster {
		if studentID == "" {
			continue
		}
		if _, dup := seen[studentID]; dup {
			continue
		}
		seen[studentID] = struct{}{}
		key := models.AttendanceKey{StudentID: studentID, SessionID: sessionID}
		if _, ok := l.records[key]; ok {
			continue
		}
		rec := models.AttendanceRecord{
			StudentID:  studentID,
			SessionID:  sessionID,
			Status:     models.AttendanceStatusAbsent,
			RecordedBy: recordedBy,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		changes = append(changes, l.setLocked(rec))
		created = append(created, rec)
	}
	return created, changes
}

// BulkSetStatus upserts status for every student and reports one outcome per id.
func (l *Ledger) BulkSetStatus(sessionID string, studentIDs []string, status models.AttendanceStatus, recordedBy string) ([]models.AttendanceOutcome, []Change) {
	outcomes := make([]models.AttendanceOutcome, 0, len(studentIDs))
	var changes []Change
	for _, id := range studentIDs {
		rec, change, err := l.Upsert(id, sessionID, status, nil, recordedBy)
		if err != nil {
			outcomes = append(outcomes, models.AttendanceOutcome{StudentID: id, Err: err, Reason: err.Error()})
			continue
		}
		changes = append(changes, change)
		outcomes = append(outcomes, models.AttendanceOutcome{StudentID: id, Record: &rec})
	}
	return outcomes, changes
}

// Get returns the record of a key.
func (l *Ledger) Get(studentID, sessionID string) (models.AttendanceRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[models.AttendanceKey{StudentID: studentID, SessionID: sessionID}]
	return rec.Clone(), ok
}

// Find returns the record with the given id.
func (l *Ledger) Find(recordID string) (models.AttendanceRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key, ok := l.byID[recordID]
	if !ok {
		return models.AttendanceRecord{}, false
	}
	return l.records[key].Clone(), true
}

// Session returns the records of a session in insertion order.
func (l *Ledger) Session(sessionID string) []models.AttendanceRecord {
	return l.collect(func(k models.AttendanceKey) bool { return k.SessionID == sessionID })
}

// Student returns the records of a student in insertion order.
func (l *Ledger) Student(studentID string) []models.AttendanceRecord {
	return l.collect(func(k models.AttendanceKey) bool { return k.StudentID == studentID })
}

// All returns every record in insertion order.
func (l *Ledger) All() []models.AttendanceRecord {
	return l.collect(func(models.AttendanceKey) bool { return true })
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.keys)
}

// Replace loads a full set of records. Later duplicates of a key win.
func (l *Ledger) Replace(records []models.AttendanceRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = make(map[models.AttendanceKey]models.AttendanceRecord, len(records))
	l.byID = make(map[string]models.AttendanceKey, len(records))
	l.keys = nil
	for _, rec := range records {
		l.setLocked(rec.Clone())
	}
}

// Merge upserts a batch of backend records, leaving other keys untouched.
func (l *Ledger) Merge(records []models.AttendanceRecord) []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	changes := make([]Change, 0, len(records))
	for _, rec := range records {
		changes = append(changes, l.setLocked(rec.Clone()))
	}
	return changes
}

func (l *Ledger) collect(match func(models.AttendanceKey) bool) []models.AttendanceRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.AttendanceRecord, 0)
	for _, key := range l.keys {
		if match(key) {
			out = append(out, l.records[key].Clone())
		}
	}
	return out
}

func (l *Ledger) setLocked(rec models.AttendanceRecord) Change {
	key := rec.Key()
	prev, existed := l.records[key]
	change := Change{Key: key, Existed: existed}
	if existed {
		change.Previous = prev.Clone()
		if prev.ID != "" && prev.ID != rec.ID {
			delete(l.byID, prev.ID)
		}
	} else {
		l.keys = append(l.keys, key)
	}
	l.records[key] = rec
	if rec.ID != "" {
		l.byID[rec.ID] = key
	}
	l.projection = nil
	return change
}

func (l *Ledger) deleteLocked(key models.AttendanceKey) {
	rec, ok := l.records[key]
	if !ok {
		return
	}
	delete(l.records, key)
	if rec.ID != "" {
		delete(l.byID, rec.ID)
	}
	for i, k := range l.keys {
		if k == key {
			l.keys = append(l.keys[:i], l.keys[i+1:]...)
			break
		}
	}
	l.projection = nil
}

func checkKey(studentID, sessionID string) error {
	if strings.TrimSpace(studentID) == "" {
		return appErrors.Field("etudiantId", "required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return appErrors.Field("sessionId", "required")
	}
	return nil
}
