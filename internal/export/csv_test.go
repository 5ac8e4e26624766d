package export

import (
	"errors"
	"testing"

	"expensetracker/internal/core"
)

func TestCSV(t *testing.T) {
	tests := []struct {
		name    string
		records []core.Expense
		want    string
		wantErr error
	}{
		{
			name:    "empty collection",
			records: nil,
			wantErr: core.ErrEmpty,
		},
		{
			name: "store order is kept",
			records: []core.Expense{
				{ID: 1, Title: "Rent", Amount: core.MustParseAmount("1200"), Date: "2024-01-01", Category: "Bills"},
				{ID: 2, Title: "Coffee", Amount: core.MustParseAmount("4.5"), Date: "2024-01-10", Category: "Food"},
			},
			want: "title,amount,date,category\n" +
				`"Rent","1200","2024-01-01","Bills"` + "\n" +
				`"Coffee","4.5","2024-01-10","Food"`,
		},
		{
			name: "embedded quotes are doubled",
			records: []core.Expense{
				{ID: 1, Title: `He said "hi"`, Amount: core.MustParseAmount("0.01"), Date: "2024-01-01", Category: "Other"},
			},
			want: "title,amount,date,category\n" +
				`"He said ""hi""","0.01","2024-01-01","Other"`,
		},
		{
			name: "commas and newlines stay inside quotes",
			records: []core.Expense{
				{ID: 1, Title: "a,b\nc", Amount: core.MustParseAmount("2.5"), Date: "2024-01-01", Category: ""},
			},
			want: "title,amount,date,category\n" +
				"\"a,b\nc\",\"2.5\",\"2024-01-01\",\"\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CSV(tt.records)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CSV() error = %v, want %v", err, tt.wantErr)
				}
				if got != nil {
					t.Errorf("CSV() produced output on error: %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CSV() unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("CSV() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestRows(t *testing.T) {
	rows := Rows([]core.Expense{{Title: "Tea", Amount: core.MustParseAmount("3"), Date: "2024-02-01", Category: "Food"}})
	want := []string{"Tea", "3", "2024-02-01", "Food"}
	if len(rows) != 1 || len(rows[0]) != len(want) {
		t.Fatalf("Rows() = %v", rows)
	}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("Rows()[0][%d] = %q, want %q", i, rows[0][i], want[i])
		}
	}
}
