// Command expensetracker-export writes the stored expenses as CSV, or pushes
// them to the configured Google Sheet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

func main() {
	out := flag.String("o", "", "write CSV to this file instead of stdout")
	toSheets := flag.Bool("sheets", false, "push rows to GOOGLE_SPREADSHEET_ID instead of writing CSV")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	// Logs go to stderr so CSV on stdout stays clean.
	cfg, logger := cli.LoadAndValidateConfig(os.Stderr)
	if err := run(cfg, logger, *out, *toSheets, *timeout); err != nil {
		if errors.Is(err, core.ErrEmpty) {
			fmt.Fprintln(os.Stderr, "No data to export")
		} else {
			logger.Error("Export failed", applog.FieldError, err.Error())
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *applog.Logger, out string, toSheets bool, timeout time.Duration) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer res.Cleanup()

	records := storage.NewAdapter(res.Store, cfg.SnapshotKey, logger).Load(ctx)

	if toSheets {
		if !cfg.SheetsEnabled() {
			return errors.New("GOOGLE_SPREADSHEET_ID is not set")
		}
		exporter, err := export.NewSheetsExporter(ctx, export.SheetsConfig{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return err
		}
		n, err := exporter.Export(ctx, records)
		if err != nil {
			return err
		}
		logger.Info("Exported expenses to Google Sheets", applog.FieldCount, n)
		return nil
	}

	data, err := export.CSV(records)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	logger.Info("Exported expenses to CSV", applog.FieldCount, len(records), "file", out)
	return nil
}
