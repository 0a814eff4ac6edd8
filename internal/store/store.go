// Package store keeps in-memory copies of the backend collections.
//
// A Store is filled by a full-collection fetch and only changed through the
// sync facade. Every read returns clones so callers cannot mutate the cached
// records behind the store's back.
package store

import "sync"

// Entity is a record that can be cached by id.
type Entity[T any] interface {
	EntityID() string
	Clone() T
}

// Store is an ordered, concurrency-safe cache of entities keyed by id.
type Store[T Entity[T]] struct {
	mu     sync.RWMutex
	order  []string
	items  map[string]T
	loaded bool
}

// New returns an empty store.
func New[T Entity[T]]() *Store[T] {
	return &Store[T]{items: make(map[string]T)}
}

// Replace swaps the whole collection, keeping the input order.
func (s *Store[T]) Replace(items []T) {
	order := make([]string, 0, len(items))
	index := make(map[string]T, len(items))
	for _, item := range items {
		id := item.EntityID()
		if _, dup := index[id]; !dup {
			order = append(order, id)
		}
		index[id] = item.Clone()
	}
	s.mu.Lock()
	s.order = order
	s.items = index
	s.loaded = true
	s.mu.Unlock()
}

// Loaded reports whether the store has received a full collection.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// All returns clones of every entity in store order.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].Clone())
	}
	return out
}

// Get returns a clone of the entity with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return item.Clone(), true
}

// Has reports whether id is cached.
func (s *Store[T]) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Len returns the number of cached entities.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Put inserts or replaces an entity. New entities are appended.
func (s *Store[T]) Put(item T) {
	id := item.EntityID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = item.Clone()
}

// Swap replaces the entity stored under oldID with item, keeping its position.
// It is used when the server assigns the id of an optimistically created entity.
func (s *Store[T]) Swap(oldID string, item T) {
	newID := item.EntityID()
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := s.indexOf(oldID)
	if pos < 0 {
		if _, ok := s.items[newID]; !ok {
			s.order = append(s.order, newID)
		}
		s.items[newID] = item.Clone()
		return
	}
	delete(s.items, oldID)
	if existing := s.indexOf(newID); existing >= 0 && existing != pos {
		s.order = append(s.order[:existing], s.order[existing+1:]...)
		if existing < pos {
			pos--
		}
	}
	s.order[pos] = newID
	s.items[newID] = item.Clone()
}

// Remove deletes an entity and reports whether it existed.
func (s *Store[T]) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	if pos := s.indexOf(id); pos >= 0 {
		s.order = append(s.order[:pos], s.order[pos+1:]...)
	}
	return true
}

func (s *Store[T]) indexOf(id string) int {
	for i, candidate := range s.order {
		if candidate == id {
			return i
		}
	}
	return -1
}
