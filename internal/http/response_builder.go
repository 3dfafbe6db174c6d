package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"billtracker/internal/core"
	"billtracker/internal/log"
)

// HeaderNotification carries the user-facing toast as JSON.
const HeaderNotification = "X-Notification"

// ResponseBuilder provides a fluent API for JSON responses that may carry
// a notification header.
type ResponseBuilder struct {
	statusCode   int
	notification core.Notification
	headers      map[string]string
	body         any
	hasBody      bool
	raw          []byte
	rawType      string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Notify attaches n as the X-Notification header. Zero notifications are skipped.
func (b *ResponseBuilder) Notify(n core.Notification) *ResponseBuilder {
	b.notification = n
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

// Raw sets a non-JSON body, e.g. a file download.
func (b *ResponseBuilder) Raw(contentType string, body []byte) *ResponseBuilder {
	b.raw = body
	b.rawType = contentType
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if !b.notification.IsZero() {
		if raw, err := json.Marshal(b.notification); err == nil {
			w.Header().Set(HeaderNotification, string(raw))
		}
	}

	if b.raw != nil {
		w.Header().Set("Content-Type", b.rawType)
		w.WriteHeader(b.statusCode)
		_, _ = w.Write(b.raw)
		return
	}
	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}
	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Error string `json:"error"`
	// Data is the applied result when only the durable write failed.
	Data any `json:"data,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorTypeFor(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return log.ErrorTypeConflict
	case errors.Is(err, core.ErrPersistence):
		return log.ErrorTypePersistence
	default:
		return log.ErrorTypeInternal
	}
}

// ErrorResponse builds the response for a failed operation. A persistence
// failure still carries the in-memory result as data.
func ErrorResponse(err error, n core.Notification, data any) *ResponseBuilder {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	switch status {
	case http.StatusServiceUnavailable:
		body = errorBody{Error: "saved in memory only", Data: data}
	case http.StatusInternalServerError:
		body.Error = "internal error"
	}
	return NewResponse().Status(status).Notify(n).JSON(body)
}
