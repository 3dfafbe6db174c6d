package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.345", 1235, true},
		{" 2.50 ", 250, true},
		{"1200", 120000, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,200.50", 0, false},
		{"1,200", 0, false},
		{"12,345", 0, false},
		{"1,2,3", 0, false},
		{"12,", 0, false},
		{"12,5", 1250, true},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%q expected validation error, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := []struct {
		cents   int64
		plain   string
		display string
	}{
		{0, "0.00", "$0.00"},
		{5, "0.05", "$0.05"},
		{120000, "1200.00", "$1,200.00"},
		{123456789, "1234567.89", "$1,234,567.89"},
		{-3510, "-35.10", "-$35.10"},
	}
	for _, tc := range cases {
		m := Money{Cents: tc.cents}
		if got := m.String(); got != tc.plain {
			t.Errorf("String(%d) = %q, want %q", tc.cents, got, tc.plain)
		}
		if got := m.Display("$"); got != tc.display {
			t.Errorf("Display(%d) = %q, want %q", tc.cents, got, tc.display)
		}
	}
	if got := (Money{Cents: 250000}).PlainString(); got != "2500" {
		t.Errorf("PlainString = %q, want 2500", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 120050})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "1200.50" {
		t.Fatalf("marshal = %s, want 1200.50", b)
	}

	for _, in := range []string{`1200.5`, `"1200.50"`, `1200.499`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 120050 {
			t.Fatalf("unmarshal %s = %d, want 120050", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`-4`), &m); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1000}
	b := Money{Cents: 2500}
	if got := a.Sub(b); got.Cents != -1500 || !got.IsNegative() {
		t.Fatalf("Sub = %+v", got)
	}
	if got := a.Add(b); got.Cents != 3500 {
		t.Fatalf("Add = %+v", got)
	}
}
