package core

import (
	"strings"
	"time"
)

const (
	// AllCategories is the filter value that disables category filtering.
	AllCategories = "All"
	// AllCategoriesLabel is shown for the AllCategories option.
	AllCategoriesLabel = "All categories"
	// DefaultCategory preselected in an empty form.
	DefaultCategory = "Food"

	// DateLayout is the calendar date format produced by the form.
	DateLayout = "2006-01-02"
)

// BaseCategories are always offered, in this order, regardless of stored data.
var BaseCategories = []string{"Food", "Bills", "Shopping", "Travel", "Other"}

type (
	// Expense is a single persisted record. ID never changes after creation.
	Expense struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Amount   Money  `json:"amount"`
		Date     string `json:"date"`
		Category string `json:"category"`
	}

	// ExpenseFields holds every replaceable attribute of an Expense.
	ExpenseFields struct {
		Title    string
		Amount   Money
		Date     string
		Category string
	}
)

// Fields returns the replaceable attributes of e.
func (e Expense) Fields() ExpenseFields {
	return ExpenseFields{
		Title:    e.Title,
		Amount:   e.Amount,
		Date:     e.Date,
		Category: e.Category,
	}
}

// WithFields returns a copy of e with every attribute except ID replaced.
func (e Expense) WithFields(f ExpenseFields) Expense {
	e.Title = f.Title
	e.Amount = f.Amount
	e.Date = f.Date
	e.Category = f.Category
	return e
}

// Validate checks the invariants a stored expense must satisfy.
func (f ExpenseFields) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(f.Title) == "" {
		verr.Add(FieldTitle)
	}
	if err := f.Amount.Validate(); err != nil {
		verr.Add(FieldAmount)
	}
	if strings.TrimSpace(f.Date) == "" {
		verr.Add(FieldDate)
	}
	if verr.HasFields() {
		return verr
	}
	return nil
}

// ParseDate parses a stored date. Both the form layout and RFC 3339 timestamps
// are accepted since older snapshots may carry either.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
