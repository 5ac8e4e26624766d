// Package export turns the expense collection into portable artifacts: a CSV
// download and an optional push to a Google Sheets tab.
package export

import (
	"bytes"
	"strings"

	"expensetracker/internal/core"
)

const (
	// Filename is the name offered for the CSV download.
	Filename = "expenses.csv"
	// ContentType of the CSV artifact.
	ContentType = "text/csv; charset=utf-8"
)

// Header lists the exported columns in order.
var Header = []string{"title", "amount", "date", "category"}

// Rows returns one string slice per record, in the order given, with amounts
// in their shortest decimal form.
func Rows(records []core.Expense) [][]string {
	out := make([][]string, len(records))
	for i, e := range records {
		out[i] = []string{e.Title, e.Amount.String(), e.Date, e.Category}
	}
	return out
}

// CSV renders records in store order under an unquoted header line. Every
// data field is double-quoted with embedded quotes doubled. Lines are joined
// with "\n" and there is no trailing newline. An empty collection yields
// core.ErrEmpty.
func CSV(records []core.Expense) ([]byte, error) {
	if len(records) == 0 {
		return nil, core.ErrEmpty
	}

	var buf bytes.Buffer
	buf.WriteString(strings.Join(Header, ","))
	for _, row := range Rows(records) {
		buf.WriteByte('\n')
		for i, field := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeQuoted(&buf, field)
		}
	}
	return buf.Bytes(), nil
}

func writeQuoted(buf *bytes.Buffer, field string) {
	buf.WriteByte('"')
	buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
	buf.WriteByte('"')
}
