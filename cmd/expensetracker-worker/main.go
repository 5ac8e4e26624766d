// Command expensetracker-worker mirrors the expense snapshot into Google
// Sheets whenever the server publishes a change event.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(os.Stdout)
	logger.Info("Starting expensetracker-worker")

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the sync worker")
	}
	if !cfg.SheetsEnabled() {
		return errors.New("GOOGLE_SPREADSHEET_ID is required for the sync worker")
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer res.Cleanup()
	if res.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is private to this process, the sheet will stay empty")
	}

	sheet, err := export.NewSheetsExporter(ctx, export.SheetsConfig{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize Google Sheets: %w", err)
	}

	consumer, err := amqp.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP consumer: %w", err)
	}
	defer consumer.Close()

	adapter := storage.NewAdapter(res.Store, cfg.SnapshotKey, logger)
	syncWorker := worker.NewSyncWorker(adapter, sheet, logger)

	if err := syncWorker.StartupSync(ctx); err != nil {
		// Events and the periodic pass retry later.
		logger.Error("Failed startup sync", applog.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Consume(gctx, syncWorker.HandleChange)
	})
	g.Go(func() error {
		return syncWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})
	return g.Wait()
}
