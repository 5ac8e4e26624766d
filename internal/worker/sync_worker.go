// Package worker mirrors the expense snapshot into Google Sheets in response
// to change events.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// SnapshotLoader reads the current collection.
type SnapshotLoader interface {
	Load(ctx context.Context) []core.Expense
}

// SheetMirror replaces the sheet contents with records.
type SheetMirror interface {
	Mirror(ctx context.Context, records []core.Expense) (int, error)
}

// SyncWorker keeps a Google Sheet in step with the snapshot. Change messages
// only say that something changed, so every sync rewrites the whole sheet.
type SyncWorker struct {
	loader SnapshotLoader
	sheet  SheetMirror
	logger *applog.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

func NewSyncWorker(loader SnapshotLoader, sheet SheetMirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		loader: loader,
		sheet:  sheet,
		logger: logger.WithComponent(applog.ComponentWorker),
		now:    time.Now,
	}
}

// HandleChange processes a single change message from AMQP. Messages older
// than the last successful sync are already reflected in the sheet.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		applog.FieldExpenseID, msg.ID,
		"op", msg.Op,
		applog.FieldCount, msg.Count)

	if w.covered(msg.Timestamp) {
		w.logger.DebugContext(ctx, "Change already synced, skipping",
			applog.FieldExpenseID, msg.ID,
			"op", msg.Op)
		return nil
	}
	return w.Sync(ctx)
}

// StartupSync mirrors the snapshot once so changes missed while the worker
// was down reach the sheet.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup sync")
	return w.Sync(ctx)
}

// Sync loads the snapshot and rewrites the sheet.
func (w *SyncWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	records := w.loader.Load(ctx)
	n, err := w.sheet.Mirror(ctx, records)
	if err != nil {
		return fmt.Errorf("mirror expenses to sheets: %w", err)
	}
	w.lastSync = started

	w.logger.InfoContext(ctx, "Sheet synced",
		applog.FieldCount, n,
		applog.FieldOperation, applog.OpSync)
	return nil
}

// RunPeriodic calls Sync every interval until ctx is done. It backs up the
// event path in case messages are lost.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Sync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", applog.FieldError, err.Error())
			}
		}
	}
}

// LastSync returns when the last successful sync started.
func (w *SyncWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

func (w *SyncWorker) covered(ts time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !ts.IsZero() && !w.lastSync.IsZero() && ts.Before(w.lastSync)
}
