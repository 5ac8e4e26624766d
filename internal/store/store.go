// Package store owns the in-memory expense collection and keeps it in step
// with its persisted snapshot.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// Persister loads and saves the whole collection. Load never fails: missing or
// unreadable data is reported as an empty collection.
type Persister interface {
	Load(ctx context.Context) []core.Expense
	Save(ctx context.Context, records []core.Expense) error
}

// Publisher is notified after a mutation has been persisted.
type Publisher interface {
	PublishChange(ctx context.Context, ev core.ChangeEvent) error
}

// Store is the single owner of the expense collection.
//
// Every mutation builds the next collection, persists it and only then swaps
// it in, so a failed save leaves the previous state visible.
type Store struct {
	mu        sync.RWMutex
	records   []core.Expense
	nextID    int64
	persister Persister
	publisher Publisher
	logger    *applog.Logger
	now       func() time.Time
}

// New loads the persisted collection. publisher and logger may be nil.
func New(ctx context.Context, persister Persister, publisher Publisher, logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.Discard()
	}
	s := &Store{
		persister: persister,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentStore),
		now:       time.Now,
	}
	s.records, s.nextID = s.normalize(ctx, persister.Load(ctx))
	s.logger.InfoContext(ctx, "Expenses loaded",
		applog.FieldCount, len(s.records),
		applog.FieldOperation, applog.OpLoad)
	return s
}

// normalize repairs ids that are missing or repeated so the uniqueness
// invariant holds for everything loaded from storage.
func (s *Store) normalize(ctx context.Context, loaded []core.Expense) ([]core.Expense, int64) {
	var maxID int64
	for _, e := range loaded {
		if e.ID > maxID {
			maxID = e.ID
		}
	}

	seen := make(map[int64]struct{}, len(loaded))
	out := make([]core.Expense, 0, len(loaded))
	for _, e := range loaded {
		if _, dup := seen[e.ID]; dup || e.ID <= 0 {
			maxID++
			s.logger.WarnContext(ctx, "Reassigned invalid or duplicate expense id",
				applog.FieldExpenseID, e.ID,
				"new_id", maxID)
			e.ID = maxID
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out, maxID + 1
}

// Create appends a record built from f and returns its new id. Invalid fields
// are rejected with a *core.ValidationError before anything is persisted.
func (s *Store) Create(ctx context.Context, f core.ExpenseFields) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	var ev *core.ChangeEvent
	defer func() { s.publish(ctx, ev) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	rec := core.Expense{ID: id}.WithFields(f)

	next := make([]core.Expense, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, rec)

	if err := s.commit(ctx, next); err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	s.nextID++

	s.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithExpense(rec.ID, rec.Title, rec.Amount.String(), rec.Category).
			ToSlice()...)
	ev = s.event(core.ChangeCreated, id, len(next))
	return id, nil
}

// Update replaces every field of record id except the id itself.
func (s *Store) Update(ctx context.Context, id int64, f core.ExpenseFields) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}

	var ev *core.ChangeEvent
	defer func() { s.publish(ctx, ev) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("update expense %d: %w", id, core.ErrNotFound)
	}

	next := make([]core.Expense, len(s.records))
	copy(next, s.records)
	next[idx] = next[idx].WithFields(f)

	if err := s.commit(ctx, next); err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}

	rec := next[idx]
	s.logger.InfoContext(ctx, "Expense updated",
		applog.NewFields().
			WithOperation(applog.OpUpdate).
			WithExpense(rec.ID, rec.Title, rec.Amount.String(), rec.Category).
			ToSlice()...)
	ev = s.event(core.ChangeUpdated, id, len(next))
	return nil
}

// Delete removes record id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	var ev *core.ChangeEvent
	defer func() { s.publish(ctx, ev) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}

	next := make([]core.Expense, 0, len(s.records)-1)
	next = append(next, s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)

	if err := s.commit(ctx, next); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		applog.FieldExpenseID, id,
		applog.FieldOperation, applog.OpDelete)
	ev = s.event(core.ChangeDeleted, id, len(next))
	return nil
}

// ClearAll empties the collection. Ids are not reused afterwards.
func (s *Store) ClearAll(ctx context.Context) error {
	var ev *core.ChangeEvent
	defer func() { s.publish(ctx, ev) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.records)
	if err := s.commit(ctx, []core.Expense{}); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	s.logger.InfoContext(ctx, "Expenses cleared",
		applog.FieldCount, removed,
		applog.FieldOperation, applog.OpClear)
	ev = s.event(core.ChangeCleared, 0, 0)
	return nil
}

// List returns a copy of the collection in store order.
func (s *Store) List() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns record id.
func (s *Store) Get(id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.records[idx], nil
	}
	return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) indexOf(id int64) int {
	for i, e := range s.records {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// commit persists next and, on success, makes it the current collection.
// Caller holds s.mu.
func (s *Store) commit(ctx context.Context, next []core.Expense) error {
	if err := s.persister.Save(ctx, next); err != nil {
		applog.LogError(applog.NewContext(ctx, s.logger), "Failed to persist expenses", err,
			applog.ComponentStore, applog.OpSave, nil)
		return err
	}
	s.records = next
	return nil
}

func (s *Store) event(op core.ChangeOp, id int64, count int) *core.ChangeEvent {
	return &core.ChangeEvent{Op: op, ID: id, Count: count, Timestamp: s.now().UTC()}
}

// publish notifies the publisher of a committed mutation. It runs after s.mu
// is released, so a slow broker never blocks readers. Failures are logged and
// never undo the already persisted mutation.
func (s *Store) publish(ctx context.Context, ev *core.ChangeEvent) {
	if ev == nil || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, *ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			applog.FieldExpenseID, ev.ID,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err.Error())
	}
}
