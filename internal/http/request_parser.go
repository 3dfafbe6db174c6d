package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billtracker/internal/core"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = &core.ValidationError{Reason: "request body too large"}

// RequestBodyParser reads a JSON object or a form-encoded body once and
// serves its fields as sanitised strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads up to 1 MiB of r's body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse decodes the body as JSON when the content type or the first byte
// says so, and as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.IsJSON() || trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = &core.ValidationError{Reason: "malformed JSON body"}
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = &core.ValidationError{Reason: "malformed form body"}
		return p.err
	}
	p.formData = form
	return nil
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	_, ok := p.formData[key]
	return ok
}

// Get returns the trimmed, sanitised value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	return strings.TrimSpace(p.Text(key))
}

// Text is Get without trimming, for multi-line fields.
func (p *RequestBodyParser) Text(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON reports a JSON content type or a body decoded as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	if p.jsonData != nil {
		return true
	}
	mt, _, err := mime.ParseMediaType(p.contentType)
	return err == nil && mt == "application/json"
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// sanitizeInput drops control characters other than tab, newline and
// carriage return.
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

// parseBool accepts the usual spellings plus the "on" a checkbox sends.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return false, nil
	case "on":
		return true, nil
	}
	return strconv.ParseBool(s)
}

// ParseBillDraft reads name, amount, dueDate, category and isPaid.
// Field rules beyond parsing are left to the ledger.
func ParseBillDraft(r *http.Request) (core.BillDraft, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.BillDraft{}, err
	}

	draft := core.BillDraft{
		Name:     p.Get("name"),
		Category: p.Get("category"),
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return draft, err
	}
	draft.Amount = amount

	due, err := core.ParseDate(p.Get("dueDate"))
	if err != nil {
		return draft, err
	}
	draft.DueDate = due

	paid, err := parseBool(p.Get("isPaid"))
	if err != nil {
		return draft, &core.ValidationError{Field: "isPaid", Reason: "must be true or false"}
	}
	draft.IsPaid = paid
	return draft, nil
}

// ParseNoteDraft reads title and content. Content keeps its line breaks.
func ParseNoteDraft(r *http.Request) (core.NoteDraft, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.NoteDraft{}, err
	}
	return core.NoteDraft{Title: p.Get("title"), Content: p.Text("content")}, nil
}

// ParseCategoryName reads the "name" field.
func ParseCategoryName(r *http.Request) (string, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return "", err
	}
	return p.Get("name"), nil
}

// ParseIncome reads "amount", falling back to "income".
func ParseIncome(r *http.Request) (core.Money, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.Money{}, err
	}
	raw := p.Get("amount")
	if !p.Has("amount") {
		raw = p.Get("income")
	}
	m, err := core.ParseAmount(raw)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return core.Money{}, &core.ValidationError{Field: "income", Reason: verr.Reason}
		}
		return core.Money{}, err
	}
	return m, nil
}
