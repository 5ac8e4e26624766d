package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// Adapter reads and writes the expense collection as a JSON array under a
// single key of a SnapshotStore.
type Adapter struct {
	store  SnapshotStore
	key    string
	logger *applog.Logger
}

// NewAdapter binds store to key. A nil logger discards output.
func NewAdapter(store SnapshotStore, key string, logger *applog.Logger) *Adapter {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Adapter{
		store:  store,
		key:    key,
		logger: logger.WithComponent(applog.ComponentStorage),
	}
}

// Load returns the persisted collection.
//
// A missing snapshot, a read failure or an undecodable value all yield an
// empty collection. Only the last two are logged.
func (a *Adapter) Load(ctx context.Context) []core.Expense {
	data, err := a.store.Load(ctx, a.key)
	if errors.Is(err, ErrNoSnapshot) {
		return []core.Expense{}
	}
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to read snapshot, starting empty",
			applog.FieldKey, a.key,
			applog.FieldError, err.Error(),
			applog.FieldOperation, applog.OpLoad)
		return []core.Expense{}
	}
	if len(data) == 0 {
		return []core.Expense{}
	}

	var records []core.Expense
	if err := json.Unmarshal(data, &records); err != nil {
		a.logger.WarnContext(ctx, "Snapshot is not a valid expense list, starting empty",
			applog.FieldKey, a.key,
			applog.FieldError, err.Error(),
			applog.FieldOperation, applog.OpLoad)
		return []core.Expense{}
	}
	if records == nil {
		records = []core.Expense{}
	}
	return records
}

// Save replaces the persisted collection with records.
func (a *Adapter) Save(ctx context.Context, records []core.Expense) error {
	if records == nil {
		records = []core.Expense{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := a.store.Save(ctx, a.key, data); err != nil {
		return fmt.Errorf("save snapshot %q: %w", a.key, err)
	}
	a.logger.DebugContext(ctx, "Snapshot saved",
		applog.FieldKey, a.key,
		applog.FieldCount, len(records),
		applog.FieldOperation, applog.OpSave)
	return nil
}

// Ping checks that the underlying store is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}
