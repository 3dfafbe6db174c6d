// Package core provides money parsing and handling utilities.
//
// Amounts live in cents inside the process. Text and JSON forms are parsed
// through shopspring/decimal and rounded half-up to two fraction digits.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents keeps cents arithmetic well clear of int64 overflow.
const maxCents = int64(1) << 53

// ParseAmount converts a user-entered decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted, but not mixed,
// and a comma must be followed by one or two digits.
// Negative values are rejected; zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,34")  -> 1234 cents
//	ParseAmount("12.345") -> 1235 cents (half-up)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, &ValidationError{Field: "amount", Reason: "is required"}
	}
	if whole, frac, found := strings.Cut(s, ","); found {
		// A comma is a decimal separator only as in "12,5" or "12,50";
		// "1,200" and "1,200.50" are grouped and refused.
		if strings.ContainsAny(frac, ",.") || len(frac) == 0 || len(frac) > 2 {
			return Money{}, &ValidationError{Field: "amount", Reason: "must be a plain decimal number"}
		}
		s = whole + "." + frac
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Reason: "must be a number"}
	}
	return fromDecimal(d)
}

// MustParseAmount is ParseAmount for literals in tests and defaults.
func MustParseAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return m
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, &ValidationError{Field: "amount", Reason: "is too large"}
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount as an exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsNegative() bool { return m.Cents < 0 }

// String renders exactly two fraction digits, e.g. "1200.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Display renders the amount with a currency symbol and thousands
// grouping, e.g. "$1,200.00" or "-$35.10".
func (m Money) Display(symbol string) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	s := Money{Cents: cents}.String()
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + symbol + b.String() + "." + frac
}

// PlainString renders the amount without trailing zeros ("2500", "99.5").
func (m Money) PlainString() string {
	return m.Decimal().String()
}

// MarshalJSON writes a JSON number with two fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return &ValidationError{Field: "amount", Reason: "must be a number"}
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
