package ledger

import "github.com/noah-isme/cohort-ledger-api/internal/models"

// projection caches per-student and per-session summaries. It is dropped on
// every write and rebuilt on the next read.
type projection struct {
	byStudent map[string]models.PresenceSummary
	bySession map[string]models.PresenceSummary
}

func (l *Ledger) projectionLocked() *projection {
	if l.projection != nil {
		return l.projection
	}
	p := &projection{
		byStudent: make(map[string]models.PresenceSummary),
		bySession: make(map[string]models.PresenceSummary),
	}
	for _, key := range l.keys {
		status := l.records[key].Status
		student := p.byStudent[key.StudentID]
		student.Add(status)
		p.byStudent[key.StudentID] = student
		session := p.bySession[key.SessionID]
		session.Add(status)
		p.bySession[key.SessionID] = session
	}
	for id, s := range p.byStudent {
		p.byStudent[id] = finalize(s, l.lateWeight)
	}
	for id, s := range p.bySession {
		p.bySession[id] = finalize(s, l.lateWeight)
	}
	l.projection = p
	return p
}

func (l *Ledger) readProjection() *projection {
	l.mu.RLock()
	p := l.projection
	l.mu.RUnlock()
	if p != nil {
		return p
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projectionLocked()
}

// StudentPresence returns the presence summary of a student across sessions.
func (l *Ledger) StudentPresence(studentID string) models.PresenceSummary {
	return l.readProjection().byStudent[studentID]
}

// SessionPresence returns the presence summary of a session.
func (l *Ledger) SessionPresence(sessionID string) models.PresenceSummary {
	return l.readProjection().bySession[sessionID]
}

// PresenceByStudent returns every student summary.
func (l *Ledger) PresenceByStudent() map[string]models.PresenceSummary {
	p := l.readProjection()
	out := make(map[string]models.PresenceSummary, len(p.byStudent))
	for id, s := range p.byStudent {
		out[id] = s
	}
	return out
}
