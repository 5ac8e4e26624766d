package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

type recordingPublisher struct {
	events []core.ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishChange(_ context.Context, ev core.ChangeEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func coffee() core.ExpenseFields {
	return core.ExpenseFields{Title: "Coffee", Amount: core.MustParseAmount("4.5"), Date: "2024-01-10", Category: "Food"}
}

func rent() core.ExpenseFields {
	return core.ExpenseFields{Title: "Rent", Amount: core.MustParseAmount("1200"), Date: "2024-01-01", Category: "Bills"}
}

func newTestStore(t *testing.T) (*Store, *storage.MemoryStore, *recordingPublisher) {
	t.Helper()
	mem := storage.NewMemoryStore()
	pub := &recordingPublisher{}
	s := New(context.Background(), storage.NewAdapter(mem, "expenses", nil), pub, nil)
	s.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	return s, mem, pub
}

func TestStore_CreateAssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	s, _, pub := newTestStore(t)

	id1, err := s.Create(ctx, coffee())
	require.NoError(t, err)
	id2, err := s.Create(ctx, rent())
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, s.Len())

	got, err := s.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, coffee(), got.Fields())

	require.Len(t, pub.events, 2)
	assert.Equal(t, core.ChangeCreated, pub.events[1].Op)
	assert.Equal(t, id2, pub.events[1].ID)
	assert.Equal(t, 2, pub.events[1].Count)
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	s, mem, _ := newTestStore(t)

	id, err := s.Create(ctx, coffee())
	require.NoError(t, err)

	reloaded := New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	assert.Equal(t, s.List(), reloaded.List())

	require.NoError(t, s.Update(ctx, id, rent()))
	reloaded = New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	got, err := reloaded.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Rent", got.Title)

	require.NoError(t, s.Delete(ctx, id))
	reloaded = New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	assert.Equal(t, 0, reloaded.Len())
}

func TestStore_UpdateKeepsIDAndSize(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	id, _ := s.Create(ctx, coffee())
	_, _ = s.Create(ctx, rent())

	updated := core.ExpenseFields{Title: "Tea", Amount: core.MustParseAmount("3"), Date: "2024-02-01", Category: "Drinks"}
	require.NoError(t, s.Update(ctx, id, updated))

	assert.Equal(t, 2, s.Len())
	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, updated, got.Fields())
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _, pub := newTestStore(t)

	assert.ErrorIs(t, s.Update(ctx, 99, coffee()), core.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 99), core.ErrNotFound)
	_, err := s.Get(99)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestStore_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	id, _ := s.Create(ctx, coffee())
	_, _ = s.Create(ctx, rent())

	require.NoError(t, s.Delete(ctx, id))
	assert.Equal(t, 1, s.Len())
	assert.ErrorIs(t, s.Delete(ctx, id), core.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ClearAllDoesNotReuseIDs(t *testing.T) {
	ctx := context.Background()
	s, _, pub := newTestStore(t)
	id1, _ := s.Create(ctx, coffee())

	require.NoError(t, s.ClearAll(ctx))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, core.ChangeCleared, pub.events[len(pub.events)-1].Op)

	id2, err := s.Create(ctx, rent())
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}

func TestStore_FailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s, mem, pub := newTestStore(t)
	id, _ := s.Create(ctx, coffee())
	before := s.List()
	published := len(pub.events)

	mem.FailSave = errors.New("disk full")

	_, err := s.Create(ctx, rent())
	assert.Error(t, err)
	assert.Error(t, s.Update(ctx, id, rent()))
	assert.Error(t, s.Delete(ctx, id))
	assert.Error(t, s.ClearAll(ctx))

	assert.Equal(t, before, s.List())
	assert.Len(t, pub.events, published)

	mem.FailSave = nil
	id2, err := s.Create(ctx, rent())
	require.NoError(t, err)
	assert.Equal(t, id+1, id2, "a failed create must not consume an id")
}

func TestStore_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	s, _, pub := newTestStore(t)
	pub.err = errors.New("broker down")

	_, err := s.Create(ctx, coffee())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ListIsACopy(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	_, _ = s.Create(ctx, coffee())

	list := s.List()
	list[0].Title = "mutated"
	assert.Equal(t, "Coffee", s.List()[0].Title)
}

func TestStore_LoadRepairsIDs(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Save(ctx, "expenses", []byte(`[
		{"id":5,"title":"A","amount":1,"date":"2024-01-01","category":"Food"},
		{"id":5,"title":"B","amount":2,"date":"2024-01-02","category":"Food"},
		{"title":"C","amount":3,"date":"2024-01-03","category":"Food"}
	]`)))

	s := New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	list := s.List()
	require.Len(t, list, 3)

	seen := map[int64]bool{}
	for _, e := range list {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		assert.Positive(t, e.ID)
		seen[e.ID] = true
	}
	assert.Equal(t, int64(5), list[0].ID)

	id, err := s.Create(ctx, coffee())
	require.NoError(t, err)
	assert.False(t, seen[id])
}

func TestStore_LoadCorruptStartsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Save(ctx, "expenses", []byte(`garbage`)))

	s := New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	assert.Equal(t, 0, s.Len())

	id, err := s.Create(ctx, coffee())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestStore_RejectsInvalidFields(t *testing.T) {
	ctx := context.Background()
	s, mem, pub := newTestStore(t)
	id, _ := s.Create(ctx, coffee())
	saved, _ := mem.Load(ctx, "expenses")

	bad := core.ExpenseFields{Title: " ", Amount: core.Money{}, Date: "", Category: "Food"}
	_, err := s.Create(ctx, bad)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{core.FieldTitle, core.FieldAmount, core.FieldDate}, verr.Fields)

	assert.True(t, core.IsValidationError(s.Update(ctx, id, bad)))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, coffee(), s.List()[0].Fields())
	after, _ := mem.Load(ctx, "expenses")
	assert.Equal(t, saved, after, "nothing is persisted")
	assert.Len(t, pub.events, 1)
}

// lockCheckingPublisher reports whether the store was readable while the
// change event was being published.
type lockCheckingPublisher struct {
	store    *Store
	readable []bool
}

func (p *lockCheckingPublisher) PublishChange(_ context.Context, _ core.ChangeEvent) error {
	done := make(chan struct{})
	go func() {
		p.store.Len()
		close(done)
	}()
	select {
	case <-done:
		p.readable = append(p.readable, true)
	case <-time.After(time.Second):
		p.readable = append(p.readable, false)
	}
	return nil
}

func TestStore_PublishesAfterUnlock(t *testing.T) {
	ctx := context.Background()
	pub := &lockCheckingPublisher{}
	s := New(ctx, storage.NewAdapter(storage.NewMemoryStore(), "expenses", nil), pub, nil)
	pub.store = s

	id, err := s.Create(ctx, coffee())
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, id, rent()))
	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.ClearAll(ctx))

	assert.Equal(t, []bool{true, true, true, true}, pub.readable)
}

func TestStore_KeepsLoadedPrecision(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Save(ctx, "expenses", []byte(
		`[{"id":1,"title":"Fuel","amount":4.567,"date":"2024-01-01","category":"Travel"}]`)))

	s := New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	_, err := s.Create(ctx, core.ExpenseFields{Title: "Stamp", Amount: core.MustParseAmount("0.004"), Date: "2024-01-02", Category: "Other"})
	require.NoError(t, err)

	raw, err := mem.Load(ctx, "expenses")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":4.567`)
	assert.Contains(t, string(raw), `"amount":0.004`)

	reloaded := New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	got, err := reloaded.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "4.567", got.Amount.String())
}
