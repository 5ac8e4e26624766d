package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"expensetracker/internal/app"
)

// maxFormBytes bounds a form post body.
const maxFormBytes = 64 << 10

var errInvalidID = errors.New("invalid expense id")

// parseExpenseForm reads the expense form fields from a POST body.
func parseExpenseForm(w http.ResponseWriter, r *http.Request) (app.FormValues, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return app.FormValues{}, err
	}
	return app.FormValues{
		Title:    sanitizeInput(r.PostForm.Get("title")),
		Amount:   sanitizeInput(r.PostForm.Get("amount")),
		Date:     sanitizeInput(r.PostForm.Get("date")),
		Category: sanitizeInput(r.PostForm.Get("category")),
	}, nil
}

// parseID reads the {id} path segment. Ids are positive integers.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// sanitizeInput drops control characters other than tab and newlines. Values
// are not trimmed here; validation decides what surrounding space means.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}
