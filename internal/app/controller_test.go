package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
	"expensetracker/internal/store"
)

func newController(t *testing.T) (*Controller, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	st := store.New(context.Background(), storage.NewAdapter(mem, "expenses", nil), nil, nil)
	return New(st, nil), mem
}

var (
	coffeeForm = FormValues{Title: "Coffee", Amount: "4.5", Date: "2024-01-10", Category: "Food"}
	rentForm   = FormValues{Title: "Rent", Amount: "1200", Date: "2024-01-01", Category: "Bills"}
)

func TestFormValues_Parse(t *testing.T) {
	tests := []struct {
		name       string
		in         FormValues
		wantFields []string
		want       core.ExpenseFields
	}{
		{
			name: "valid",
			in:   FormValues{Title: "  Coffee ", Amount: "4.50", Date: "2024-01-10", Category: "Food"},
			want: core.ExpenseFields{Title: "Coffee", Amount: core.MustParseAmount("4.5"), Date: "2024-01-10", Category: "Food"},
		},
		{
			name: "empty category defaults to Food",
			in:   FormValues{Title: "Tea", Amount: "3", Date: "2024-01-10"},
			want: core.ExpenseFields{Title: "Tea", Amount: core.MustParseAmount("3"), Date: "2024-01-10", Category: "Food"},
		},
		{
			name: "sub-cent amount is kept exactly",
			in:   FormValues{Title: "Stamp", Amount: "0.004", Date: "2024-01-10", Category: "Other"},
			want: core.ExpenseFields{Title: "Stamp", Amount: core.MustParseAmount("0.004"), Date: "2024-01-10", Category: "Other"},
		},
		{
			name: "three decimals are not rounded",
			in:   FormValues{Title: "Fuel", Amount: "4,567", Date: "2024-01-10", Category: "Travel"},
			want: core.ExpenseFields{Title: "Fuel", Amount: core.MustParseAmount("4.567"), Date: "2024-01-10", Category: "Travel"},
		},
		{name: "blank title", in: FormValues{Title: "   ", Amount: "1", Date: "2024-01-10"}, wantFields: []string{core.FieldTitle}},
		{name: "zero amount", in: FormValues{Title: "x", Amount: "0", Date: "2024-01-10"}, wantFields: []string{core.FieldAmount}},
		{name: "negative amount", in: FormValues{Title: "x", Amount: "-2", Date: "2024-01-10"}, wantFields: []string{core.FieldAmount}},
		{name: "non-numeric amount", in: FormValues{Title: "x", Amount: "abc", Date: "2024-01-10"}, wantFields: []string{core.FieldAmount}},
		{name: "missing date", in: FormValues{Title: "x", Amount: "1"}, wantFields: []string{core.FieldDate}},
		{name: "everything missing", in: FormValues{}, wantFields: []string{core.FieldTitle, core.FieldAmount, core.FieldDate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Parse()
			if tt.wantFields != nil {
				var verr *core.ValidationError
				require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
				assert.Equal(t, tt.wantFields, verr.Fields)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestController_SubmitCreates(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)

	out, err := c.Submit(ctx, coffeeForm)
	require.NoError(t, err)
	assert.Equal(t, Created, out)

	records, st := c.Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "Coffee", records[0].Title)
	assert.Equal(t, core.MustParseAmount("4.5"), records[0].Amount)
	assert.Equal(t, "2024-01-10", records[0].Date)
	assert.Equal(t, "Food", records[0].Category)
	assert.Equal(t, DefaultForm(), st.Form, "form resets after a save")
	assert.False(t, st.IsEditing())
}

func TestController_SubmitKeepsExactAmount(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)

	for _, amount := range []string{"0.004", "4.567"} {
		_, err := c.Submit(ctx, FormValues{Title: "x", Amount: amount, Date: "2024-01-10", Category: "Food"})
		require.NoError(t, err, "amount %q", amount)
	}

	records, _ := c.Snapshot()
	require.Len(t, records, 2)
	assert.Equal(t, "0.004", records[0].Amount.String())
	assert.Equal(t, "4.567", records[1].Amount.String())

	require.NoError(t, c.BeginEdit(ctx, records[1].ID))
	_, st := c.Snapshot()
	assert.Equal(t, "4.567", st.Form.Amount, "edit prefill shows the stored value")
}

func TestController_SubmitInvalidNeverMutates(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	_, err := c.Submit(ctx, coffeeForm)
	require.NoError(t, err)

	for _, amount := range []string{"0", "abc", ""} {
		bad := FormValues{Title: "Tea", Amount: amount, Date: "2024-01-11", Category: "Food"}
		_, err := c.Submit(ctx, bad)
		assert.True(t, core.IsValidationError(err), "amount %q", amount)

		records, st := c.Snapshot()
		assert.Len(t, records, 1)
		assert.Equal(t, bad, st.Form, "rejected values stay in the form")
	}
}

func TestController_EditFlow(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	_, _ = c.Submit(ctx, coffeeForm)
	_, _ = c.Submit(ctx, rentForm)
	records, _ := c.Snapshot()
	id := records[0].ID

	require.NoError(t, c.BeginEdit(ctx, id))
	_, st := c.Snapshot()
	assert.Equal(t, id, st.Editing)
	assert.Equal(t, FormValues{Title: "Coffee", Amount: "4.5", Date: "2024-01-10", Category: "Food"}, st.Form)

	out, err := c.Submit(ctx, FormValues{Title: "Latte", Amount: "5,20", Date: "2024-01-12", Category: "Drinks"})
	require.NoError(t, err)
	assert.Equal(t, Updated, out)

	records, st = c.Snapshot()
	assert.Len(t, records, 2, "update never changes the size")
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, core.ExpenseFields{Title: "Latte", Amount: core.MustParseAmount("5.2"), Date: "2024-01-12", Category: "Drinks"}, records[0].Fields())
	assert.False(t, st.IsEditing())
	assert.Equal(t, DefaultForm(), st.Form)
}

func TestController_InvalidSubmitKeepsCursor(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	_, _ = c.Submit(ctx, coffeeForm)
	records, _ := c.Snapshot()
	require.NoError(t, c.BeginEdit(ctx, records[0].ID))

	_, err := c.Submit(ctx, FormValues{Title: "", Amount: "1", Date: "2024-01-10"})
	assert.True(t, core.IsValidationError(err))

	_, st := c.Snapshot()
	assert.Equal(t, records[0].ID, st.Editing)
}

func TestController_BeginEditMissing(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)

	err := c.BeginEdit(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, st := c.Snapshot()
	assert.False(t, st.IsEditing())
	assert.Equal(t, DefaultForm(), st.Form)
}

func TestController_CancelEditIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	_, _ = c.Submit(ctx, coffeeForm)
	records, _ := c.Snapshot()
	require.NoError(t, c.BeginEdit(ctx, records[0].ID))

	c.CancelEdit()
	c.CancelEdit()

	_, st := c.Snapshot()
	assert.False(t, st.IsEditing())
	assert.Equal(t, FormValues{Category: "Food"}, st.Form)
}

func TestController_DeleteClearsMatchingCursor(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	_, _ = c.Submit(ctx, coffeeForm)
	_, _ = c.Submit(ctx, rentForm)
	records, _ := c.Snapshot()
	coffeeID, rentID := records[0].ID, records[1].ID

	require.NoError(t, c.BeginEdit(ctx, coffeeID))
	require.NoError(t, c.Delete(ctx, rentID))
	_, st := c.Snapshot()
	assert.Equal(t, coffeeID, st.Editing, "deleting another record keeps the cursor")

	require.NoError(t, c.Delete(ctx, coffeeID))
	records, st = c.Snapshot()
	assert.Empty(t, records)
	assert.False(t, st.IsEditing())
	assert.Equal(t, DefaultForm(), st.Form)

	assert.ErrorIs(t, c.Delete(ctx, coffeeID), core.ErrNotFound)
}

func TestController_SubmitAfterEditedRecordVanished(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	st := store.New(ctx, storage.NewAdapter(mem, "expenses", nil), nil, nil)
	c := New(st, nil)
	_, _ = c.Submit(ctx, coffeeForm)
	records, _ := c.Snapshot()
	require.NoError(t, c.BeginEdit(ctx, records[0].ID))

	// Removed behind the controller's back.
	require.NoError(t, st.Delete(ctx, records[0].ID))

	_, err := c.Submit(ctx, rentForm)
	assert.ErrorIs(t, err, core.ErrNotFound)
	got, state := c.Snapshot()
	assert.Empty(t, got)
	assert.False(t, state.IsEditing())
}

func TestController_ClearAll(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)
	_, _ = c.Submit(ctx, coffeeForm)
	records, _ := c.Snapshot()
	require.NoError(t, c.BeginEdit(ctx, records[0].ID))

	require.NoError(t, c.ClearAll(ctx))
	records, st := c.Snapshot()
	assert.Empty(t, records)
	assert.False(t, st.IsEditing())
}

func TestController_PersistFailureKeepsForm(t *testing.T) {
	ctx := context.Background()
	c, mem := newController(t)
	mem.FailSave = errors.New("disk full")

	_, err := c.Submit(ctx, coffeeForm)
	require.Error(t, err)
	assert.False(t, core.IsValidationError(err))

	records, st := c.Snapshot()
	assert.Empty(t, records)
	assert.Equal(t, coffeeForm, st.Form)
}

func TestController_SearchState(t *testing.T) {
	c, _ := newController(t)
	_, st := c.Snapshot()
	assert.Equal(t, core.AllCategories, st.Category)

	c.SetQuery("rent")
	c.SetCategory("Bills")
	_, st = c.Snapshot()
	assert.Equal(t, "rent", st.Query)
	assert.Equal(t, "Bills", st.Category)

	c.SetCategory("")
	_, st = c.Snapshot()
	assert.Equal(t, core.AllCategories, st.Category)
}

func TestController_ExportCSV(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t)

	_, err := c.ExportCSV(ctx)
	assert.ErrorIs(t, err, core.ErrEmpty)

	_, _ = c.Submit(ctx, rentForm)
	_, _ = c.Submit(ctx, coffeeForm)
	c.SetQuery("coffee")

	data, err := c.ExportCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, "title,amount,date,category\n"+
		`"Rent","1200","2024-01-01","Bills"`+"\n"+
		`"Coffee","4.5","2024-01-10","Food"`, string(data))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
