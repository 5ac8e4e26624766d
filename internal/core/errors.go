package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an operation targets an id that is not stored.
	ErrNotFound = errors.New("expense not found")
	// ErrEmpty is returned when exporting an empty collection.
	ErrEmpty = errors.New("no expenses to export")
	// ErrInvalidAmount is returned for amounts that are not positive numbers.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Form field names reported by ValidationError.
const (
	FieldTitle  = "title"
	FieldAmount = "amount"
	FieldDate   = "date"
)

// ValidationMessage is the user-facing text for any rejected submission.
const ValidationMessage = "Enter valid Title, Amount (>0) and Date"

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: invalid %s", strings.Join(e.Fields, ", "))
}

// Add records an invalid field once.
func (e *ValidationError) Add(field string) {
	for _, f := range e.Fields {
		if f == field {
			return
		}
	}
	e.Fields = append(e.Fields, field)
}

// HasFields reports whether any field was recorded.
func (e *ValidationError) HasFields() bool {
	return len(e.Fields) > 0
}

// Has reports whether field was recorded.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
