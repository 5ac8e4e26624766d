// Package core holds the expense record, money handling and the error taxonomy
// shared by every other package.
//
// Amounts are exact decimals backed by shopspring/decimal. Nothing is rounded
// on input or on load; only Format rounds, and only for display.
package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. The zero value is zero.
//
// Values built through NewMoney, ParseAmount or UnmarshalJSON share one
// canonical representation, so reflect.DeepEqual agrees with Equal for them.
// Money must not be compared with ==.
type Money struct {
	d decimal.Decimal
}

// NewMoney wraps d without rounding it.
func NewMoney(d decimal.Decimal) Money {
	// 4.50 and 4.5 must share a representation
	return Money{d: decimal.RequireFromString(d.String())}
}

// ParseAmount converts user input to Money.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. The
// value is kept exactly as typed. Non-numeric, zero and negative inputs
// return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("4,567")  -> 4.567, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(d)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MustParseAmount is like ParseAmount but panics on invalid input.
func MustParseAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("core: MustParseAmount(%q): %v", s, err))
	}
	return m
}

// Validate rejects zero and negative amounts.
func (m Money) Validate() error {
	if !m.d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return NewMoney(m.d.Add(o.d))
}

// Equal reports whether m and o hold the same value.
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders the shortest exact decimal form: 4.5, 1200, 4.567.
func (m Money) String() string {
	return m.d.String()
}

// Format renders m rounded to two decimals behind the given currency symbol.
func (m Money) Format(symbol string) string {
	return symbol + m.d.StringFixed(2)
}

// MarshalJSON encodes m as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", raw, err)
	}
	*m = NewMoney(d)
	return nil
}
