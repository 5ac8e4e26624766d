package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// SheetsConfig selects the target tab and the service account used to reach it.
type SheetsConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// SheetsExporter mirrors the collection into a single spreadsheet tab,
// replacing its previous contents.
type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger
}

// NewSheetsExporter builds a Sheets client from service account credentials.
// Extra opts are appended after the credential options, so tests can point the
// client at a fake endpoint.
func NewSheetsExporter(ctx context.Context, cfg SheetsConfig, logger *applog.Logger, opts ...option.ClientOption) (*SheetsExporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentExport)

	var clientOpts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(data))
	case len(opts) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	clientOpts = append(clientOpts, option.WithScopes(gsheet.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets exporter ready", "sheet", cfg.SheetName)
	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger,
	}, nil
}

// Export clears the tab and writes the header plus one row per record.
// It returns the number of data rows written. An empty collection yields
// core.ErrEmpty and leaves the sheet untouched.
func (x *SheetsExporter) Export(ctx context.Context, records []core.Expense) (int, error) {
	if len(records) == 0 {
		return 0, core.ErrEmpty
	}
	return x.write(ctx, records)
}

// Mirror is Export for the sync worker: an empty collection still clears the
// tab and leaves only the header.
func (x *SheetsExporter) Mirror(ctx context.Context, records []core.Expense) (int, error) {
	return x.write(ctx, records)
}

func (x *SheetsExporter) write(ctx context.Context, records []core.Expense) (int, error) {
	tab := quoteSheetName(x.sheetName)
	if _, err := x.svc.Spreadsheets.Values.Clear(x.spreadsheetID, tab+"!A:D", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("clear sheet %s: %w", x.sheetName, err)
	}

	values := make([][]any, 0, len(records)+1)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	values = append(values, header)
	for _, e := range records {
		values = append(values, []any{e.Title, e.Amount.Decimal().InexactFloat64(), e.Date, e.Category})
	}

	vr := &gsheet.ValueRange{Values: values}
	if _, err := x.svc.Spreadsheets.Values.Update(x.spreadsheetID, tab+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("write sheet %s: %w", x.sheetName, err)
	}

	x.logger.InfoContext(ctx, "Expenses exported to Google Sheets",
		applog.FieldCount, len(records),
		applog.FieldOperation, applog.OpExport,
		"sheet", x.sheetName)
	return len(records), nil
}

// quoteSheetName wraps a tab name for A1 notation.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
