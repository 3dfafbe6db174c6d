package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire and storage form of a calendar date.
const DateLayout = "2006-01-02"

// displayDateLayout matches the short US style used in lists and reports ("Mar 1, 2024").
const displayDateLayout = "Jan 2, 2006"

// FallbackCategory receives bills whose category is deleted.
const FallbackCategory = "Other"

// DefaultCategories is the category set of a fresh ledger.
var DefaultCategories = []string{
	"Housing",
	"Utilities",
	"Food",
	"Transportation",
	"Healthcare",
	"Entertainment",
	FallbackCategory,
}

type (
	// Date is a calendar date without a time component, always UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Bill struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Amount   Money  `json:"amount"`
		DueDate  Date   `json:"dueDate"`
		Category string `json:"category"`
		IsPaid   bool   `json:"isPaid"`
	}

	// BillDraft carries the user-editable fields of a bill.
	BillDraft struct {
		Name     string `json:"name"`
		Amount   Money  `json:"amount"`
		DueDate  Date   `json:"dueDate"`
		Category string `json:"category"`
		IsPaid   bool   `json:"isPaid"`
	}

	Note struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	NoteDraft struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	// Summary is derived from the current bills and income, never stored.
	Summary struct {
		Income           Money `json:"income"`
		TotalExpenses    Money `json:"totalExpenses"`
		RemainingBalance Money `json:"remainingBalance"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD and, for values written by older clients,
// a full RFC 3339 timestamp whose date part is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, &ValidationError{Field: "dueDate", Reason: "is required"}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t.UTC()), nil
	}
	return Date{}, &ValidationError{Field: "dueDate", Reason: "must be a date in YYYY-MM-DD form"}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display formats the date for people, e.g. "Mar 1, 2024".
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(displayDateLayout)
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) AddDays(n int) Date {
	return Date{d.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ValidationError{Field: "dueDate", Reason: "must be a string"}
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the presence and range rules shared by create and update.
func (b BillDraft) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if b.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if b.DueDate.IsZero() {
		return &ValidationError{Field: "dueDate", Reason: "is required"}
	}
	if strings.TrimSpace(b.Category) == "" {
		return &ValidationError{Field: "category", Reason: "is required"}
	}
	return nil
}

// Normalize trims the free-text fields.
func (b BillDraft) Normalize() BillDraft {
	b.Name = strings.TrimSpace(b.Name)
	b.Category = strings.TrimSpace(b.Category)
	return b
}

// IsOverdue reports an unpaid bill whose due date is strictly before today.
func (b Bill) IsOverdue(today Date) bool {
	return !b.IsPaid && b.DueDate.Before(today)
}

// Status renders the paid flag the way exports show it.
func (b Bill) Status() string {
	if b.IsPaid {
		return "Paid"
	}
	return "Unpaid"
}

func (n NoteDraft) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if strings.TrimSpace(n.Content) == "" {
		return &ValidationError{Field: "content", Reason: "is required"}
	}
	return nil
}

// Normalize trims the title. Content keeps its newlines and inner spacing.
func (n NoteDraft) Normalize() NoteDraft {
	n.Title = strings.TrimSpace(n.Title)
	return n
}
