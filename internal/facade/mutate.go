package facade

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/cohort-ledger-api/internal/store"
)

const pendingPrefix = "pending:"

func pendingID() string { return pendingPrefix + uuid.NewString() }

// create inserts draft under a temporary id, then swaps it for the server record.
func create[T store.Entity[T]](ctx context.Context, f *Facade, s *store.Store[T], entity string, draft T, tmpID string, call func(context.Context) (T, error)) (T, error) {
	cp := s.Checkpoint(tmpID)
	s.Put(draft)
	saved, err := call(ctx)
	if err != nil {
		s.Rollback(cp)
		f.rolledBack(entity, []string{tmpID}, err)
		var zero T
		return zero, err
	}
	s.Swap(tmpID, saved)
	return saved, nil
}

// update replaces the cached entity with next, then with the server record.
func update[T store.Entity[T]](ctx context.Context, f *Facade, s *store.Store[T], entity string, next T, call func(context.Context) (T, error)) (T, error) {
	id := next.EntityID()
	cp := s.Checkpoint(id)
	s.Put(next)
	saved, err := call(ctx)
	if err != nil {
		s.Rollback(cp)
		f.rolledBack(entity, []string{id}, err)
		var zero T
		return zero, err
	}
	s.Swap(id, saved)
	return saved, nil
}

// remove drops the cached entity and restores it if the call fails.
func remove[T store.Entity[T]](ctx context.Context, f *Facade, s *store.Store[T], entity, id string, call func(context.Context, string) error) error {
	if !s.Has(id) {
		return notFound(entity)
	}
	cp := s.Checkpoint(id)
	s.Remove(id)
	if err := call(ctx, id); err != nil {
		s.Rollback(cp)
		f.rolledBack(entity, []string{id}, err)
		return err
	}
	return nil
}
