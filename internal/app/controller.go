// Package app holds the interaction state of the tracker (editing cursor,
// form prefill, search and filter) and applies user actions to the store.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

// Outcome reports which store operation a successful submit performed.
type Outcome int

const (
	Created Outcome = iota + 1
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// FormValues are the raw form inputs, exactly as typed.
type FormValues struct {
	Title    string
	Amount   string
	Date     string
	Category string
}

// DefaultForm is the prefill of an empty form.
func DefaultForm() FormValues {
	return FormValues{Category: core.DefaultCategory}
}

// Parse validates v and converts it to store fields. An empty category falls
// back to core.DefaultCategory.
func (v FormValues) Parse() (core.ExpenseFields, error) {
	verr := &core.ValidationError{}

	title := strings.TrimSpace(v.Title)
	if title == "" {
		verr.Add(core.FieldTitle)
	}
	amount, err := core.ParseAmount(v.Amount)
	if err != nil {
		verr.Add(core.FieldAmount)
	}
	date := strings.TrimSpace(v.Date)
	if date == "" {
		verr.Add(core.FieldDate)
	}
	if verr.HasFields() {
		return core.ExpenseFields{}, verr
	}

	category := strings.TrimSpace(v.Category)
	if category == "" {
		category = core.DefaultCategory
	}
	return core.ExpenseFields{Title: title, Amount: amount, Date: date, Category: category}, nil
}

// State is a point-in-time copy of the interaction state.
type State struct {
	// Editing is the id loaded into the form, 0 when adding.
	Editing  int64
	Form     FormValues
	Query    string
	Category string
}

// IsEditing reports whether an edit is in progress.
func (s State) IsEditing() bool { return s.Editing != 0 }

// Controller serialises user actions. Each method runs validate, mutate and
// persist to completion before the next one starts.
type Controller struct {
	mu       sync.Mutex
	store    *store.Store
	editing  int64
	form     FormValues
	query    string
	category string
	logger   *applog.Logger
}

func New(st *store.Store, logger *applog.Logger) *Controller {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Controller{
		store:    st,
		form:     DefaultForm(),
		category: core.AllCategories,
		logger:   logger.WithComponent(applog.ComponentController),
	}
}

// Submit creates a record, or updates the one being edited.
//
// Invalid input returns a *core.ValidationError and leaves the store alone;
// the submitted values stay in the form. If the edited record has vanished
// the cursor is cleared and core.ErrNotFound is returned.
func (c *Controller) Submit(ctx context.Context, in FormValues) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fields, err := in.Parse()
	if err != nil {
		c.form = in
		c.logger.DebugContext(ctx, "Rejected expense submission",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldError, err.Error())
		return 0, err
	}

	if c.editing == 0 {
		if _, err := c.store.Create(ctx, fields); err != nil {
			c.form = in
			return 0, err
		}
		c.form = DefaultForm()
		return Created, nil
	}

	id := c.editing
	if err := c.store.Update(ctx, id, fields); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.resetLocked()
			c.logger.WarnContext(ctx, "Edited expense no longer exists",
				applog.FieldExpenseID, id,
				applog.FieldOperation, applog.OpUpdate)
			return 0, err
		}
		c.form = in
		return 0, err
	}
	c.resetLocked()
	return Updated, nil
}

// BeginEdit loads record id into the form and sets the cursor. On
// core.ErrNotFound the state is left unchanged.
func (c *Controller) BeginEdit(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.store.Get(id)
	if err != nil {
		c.logger.WarnContext(ctx, "Cannot edit missing expense",
			applog.FieldExpenseID, id,
			applog.FieldOperation, applog.OpEdit)
		return err
	}
	c.editing = id
	c.form = FormValues{
		Title:    rec.Title,
		Amount:   rec.Amount.String(),
		Date:     rec.Date,
		Category: rec.Category,
	}
	return nil
}

// CancelEdit clears the cursor and the form. Calling it twice is harmless.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Delete removes record id. When that record is being edited the cursor and
// form are cleared too, whether or not the record was still present.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.Delete(ctx, id)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if c.editing == id {
		c.resetLocked()
	}
	return err
}

// ClearAll empties the store and resets the form.
func (c *Controller) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ClearAll(ctx); err != nil {
		return err
	}
	c.resetLocked()
	return nil
}

// SetQuery replaces the free-text search.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = q
}

// SetCategory replaces the category filter. Empty selects every category.
func (c *Controller) SetCategory(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if category == "" {
		category = core.AllCategories
	}
	c.category = category
}

// ExportCSV renders the full collection in store order, ignoring the search
// and filter. An empty store yields core.ErrEmpty.
func (c *Controller) ExportCSV(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	records := c.store.List()
	c.mu.Unlock()

	data, err := export.CSV(records)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Expenses exported",
		applog.FieldCount, len(records),
		applog.FieldOperation, applog.OpExport)
	return data, nil
}

// Snapshot returns the records and interaction state as seen between two
// actions.
func (c *Controller) Snapshot() ([]core.Expense, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.List(), State{
		Editing:  c.editing,
		Form:     c.form,
		Query:    c.query,
		Category: c.category,
	}
}

// resetLocked requires c.mu.
func (c *Controller) resetLocked() {
	c.editing = 0
	c.form = DefaultForm()
}
