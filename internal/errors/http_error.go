package errors

import (
	"encoding/json"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
// Slug is a stable machine-readable code, Message is shown to the user.
type HTTPError struct {
	Code    int               `json:"-"`
	Slug    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, slug, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Slug:    slug,
		Message: message,
	}
}

// Helpers for common errors
var (
	ErrBadRequest   = func(msg string) *HTTPError { return NewHTTPError(http.StatusBadRequest, "bad_request", msg) }
	ErrUnauthorized = func(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, "unauthorized", msg) }
	ErrForbidden    = func(msg string) *HTTPError { return NewHTTPError(http.StatusForbidden, "forbidden", msg) }
	ErrNotFound     = func(msg string) *HTTPError { return NewHTTPError(http.StatusNotFound, "not_found", msg) }
	ErrConflict     = func(slug, msg string) *HTTPError { return NewHTTPError(http.StatusConflict, slug, msg) }
	ErrInternal     = func() *HTTPError {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again later.")
	}
)

// Write renders e as the JSON error body.
func Write(w http.ResponseWriter, e *HTTPError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(e)
}
