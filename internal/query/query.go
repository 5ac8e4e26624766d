// Package query derives the visible rows and the selectable categories from
// the expense collection. Every function is pure and leaves its input intact.
package query

import (
	"sort"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// Option is one entry of a category select.
type Option struct {
	Value string
	Label string
}

// Normalize trims q and lowercases it.
func Normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Filter keeps records matching category and q, ordered by date, newest
// first. Records with equal dates keep their relative order and unparseable
// dates sort last.
//
// An empty category or core.AllCategories matches everything. q matches
// case-insensitively against the title and category.
func Filter(records []core.Expense, q, category string) []core.Expense {
	q = Normalize(q)
	allCats := category == "" || category == core.AllCategories

	type keyed struct {
		e core.Expense
		t time.Time
	}
	matched := make([]keyed, 0, len(records))
	for _, e := range records {
		if !allCats && e.Category != category {
			continue
		}
		if q != "" && !strings.Contains(haystack(e), q) {
			continue
		}
		matched = append(matched, keyed{e: e, t: sortKey(e.Date)})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].t.After(matched[j].t)
	})

	out := make([]core.Expense, len(matched))
	for i, m := range matched {
		out[i] = m.e
	}
	return out
}

func haystack(e core.Expense) string {
	return strings.ToLower(e.Title + " " + e.Category)
}

// sortKey maps unparseable dates to the zero time, which precedes every real
// calendar date.
func sortKey(date string) time.Time {
	t, ok := core.ParseDate(date)
	if !ok {
		return time.Time{}
	}
	return t
}

// Categories returns the base categories followed by every other category in
// records, in first-seen order and without duplicates.
//
// Blank and whitespace-only categories are left out: an empty filter value
// already selects every record, so such an option could never narrow the list.
func Categories(records []core.Expense) []string {
	seen := make(map[string]struct{}, len(core.BaseCategories)+len(records))
	out := make([]string, 0, len(core.BaseCategories))
	add := func(c string) {
		if strings.TrimSpace(c) == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range core.BaseCategories {
		add(c)
	}
	for _, e := range records {
		add(e.Category)
	}
	return out
}

// CategoryOptions prepends the "All categories" option to Categories.
func CategoryOptions(records []core.Expense) []Option {
	cats := Categories(records)
	opts := make([]Option, 0, len(cats)+1)
	opts = append(opts, Option{Value: core.AllCategories, Label: core.AllCategoriesLabel})
	for _, c := range cats {
		opts = append(opts, Option{Value: c, Label: c})
	}
	return opts
}
