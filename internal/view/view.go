// Package view derives the page model from the records and interaction
// state. It never touches the store or writes output.
package view

import (
	"expensetracker/internal/app"
	"expensetracker/internal/core"
	"expensetracker/internal/query"
)

const (
	addTitle    = "Add Expense"
	editTitle   = "Edit Expense"
	addLabel    = "Add"
	updateLabel = "Update"
)

// Options carries presentation settings and a one-shot notice.
type Options struct {
	CurrencySymbol string
	Notice         string
}

// Row is one rendered expense.
type Row struct {
	ID       int64
	Title    string
	Amount   string
	Date     string
	Category string
	Editing  bool
}

// Model is everything the page template needs.
type Model struct {
	FormTitle   string
	SubmitLabel string
	ShowCancel  bool
	Editing     int64
	Form        app.FormValues

	// FormCategories feed the form select, FilterOptions the filter select.
	FormCategories []string
	FilterOptions  []query.Option

	Query    string
	Category string
	Rows     []Row
	Total    string

	// HasRecords is true when the store is non-empty, whatever the filter.
	HasRecords bool
	Notice     string
}

// Render builds the page model. Rows follow query.Filter; the category lists
// follow query.Categories.
func Render(records []core.Expense, st app.State, opts Options) Model {
	m := Model{
		FormTitle:      addTitle,
		SubmitLabel:    addLabel,
		Editing:        st.Editing,
		Form:           st.Form,
		FormCategories: formCategories(records, st.Form.Category),
		Query:          st.Query,
		Category:       st.Category,
		HasRecords:     len(records) > 0,
		Notice:         opts.Notice,
	}
	if m.Category == "" {
		m.Category = core.AllCategories
	}
	m.FilterOptions = filterOptions(records, m.Category)
	if st.IsEditing() {
		m.FormTitle = editTitle
		m.SubmitLabel = updateLabel
		m.ShowCancel = true
	}

	visible := query.Filter(records, st.Query, m.Category)
	m.Rows = make([]Row, len(visible))
	var total core.Money
	for i, e := range visible {
		m.Rows[i] = Row{
			ID:       e.ID,
			Title:    e.Title,
			Amount:   e.Amount.Format(opts.CurrencySymbol),
			Date:     e.Date,
			Category: e.Category,
			Editing:  e.ID == st.Editing,
		}
		total = total.Add(e.Amount)
	}
	m.Total = total.Format(opts.CurrencySymbol)
	return m
}

// formCategories keeps the current form category selectable even when it is
// not in use by any record yet.
func formCategories(records []core.Expense, current string) []string {
	cats := query.Categories(records)
	if current == "" {
		return cats
	}
	for _, c := range cats {
		if c == current {
			return cats
		}
	}
	return append(cats, current)
}

// filterOptions keeps the applied filter selectable after its last record is
// gone, so the select never shows a different category than the one hiding
// the rows.
func filterOptions(records []core.Expense, active string) []query.Option {
	opts := query.CategoryOptions(records)
	for _, o := range opts {
		if o.Value == active {
			return opts
		}
	}
	return append(opts, query.Option{Value: active, Label: active})
}
