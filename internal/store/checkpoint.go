package store

import "sort"

type entry[T any] struct {
	id      string
	item    T
	existed bool
	pos     int
}

// Checkpoint remembers the state of a set of entries so a failed mutation
// can put them back exactly as they were.
type Checkpoint[T Entity[T]] struct {
	entries []entry[T]
}

// Checkpoint captures the current value and position of the given ids,
// including ids that are not cached yet.
func (s *Store[T]) Checkpoint(ids ...string) Checkpoint[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := Checkpoint[T]{entries: make([]entry[T], 0, len(ids))}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		item, ok := s.items[id]
		e := entry[T]{id: id, existed: ok, pos: s.indexOf(id)}
		if ok {
			e.item = item.Clone()
		}
		cp.entries = append(cp.entries, e)
	}
	return cp
}

// Rollback restores every entry captured by cp. Entries that did not exist
// are removed, removed entries are re-inserted at their former position.
func (s *Store[T]) Rollback(cp Checkpoint[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reinsert []entry[T]
	for _, e := range cp.entries {
		current := s.indexOf(e.id)
		if !e.existed {
			if current >= 0 {
				s.order = append(s.order[:current], s.order[current+1:]...)
			}
			delete(s.items, e.id)
			continue
		}
		s.items[e.id] = e.item.Clone()
		if current < 0 {
			reinsert = append(reinsert, e)
		}
	}
	sort.Slice(reinsert, func(i, j int) bool { return reinsert[i].pos < reinsert[j].pos })
	for _, e := range reinsert {
		pos := e.pos
		if pos < 0 || pos > len(s.order) {
			pos = len(s.order)
		}
		s.order = append(s.order, "")
		copy(s.order[pos+1:], s.order[pos:])
		s.order[pos] = e.id
	}
}

// Snapshot is a full copy of a store used for whole-collection rollback.
type Snapshot[T Entity[T]] struct {
	items  []T
	loaded bool
}

// Snapshot copies the whole collection.
func (s *Store[T]) Snapshot() Snapshot[T] {
	items := s.All()
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	return Snapshot[T]{items: items, loaded: loaded}
}

// Restore replaces the collection with a snapshot.
func (s *Store[T]) Restore(snap Snapshot[T]) {
	s.Replace(snap.items)
	s.mu.Lock()
	s.loaded = snap.loaded
	s.mu.Unlock()
}
