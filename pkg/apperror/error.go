// Package apperror defines errors that carry an HTTP status, a stable code
// and optional details, and renders them as JSON responses.
package apperror

import (
	"fmt"
	"maps"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error is rendered as {"error": {"code", "message", "details"}} with
// HTTPStatus. Code is stable and is what errors.Is compares.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an *Error with the same code, so copies made
// with the With* helpers still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ToEchoError wraps e for code that must return an *echo.HTTPError. The
// error handler renders both forms identically.
func (e *Error) ToEchoError() *echo.HTTPError {
	return echo.NewHTTPError(e.HTTPStatus, map[string]any{
		"error": e.body(),
	})
}

func (e *Error) body() map[string]any {
	errBody := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		errBody["details"] = e.Details
	}
	return errBody
}

// WithInternal returns a copy carrying the underlying cause. The cause is
// logged, never rendered.
func (e *Error) WithInternal(err error) *Error {
	c := *e
	c.Internal = err
	return &c
}

func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// WithDetails returns a copy whose details are replaced by details.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := *e
	c.Details = details
	return &c
}

// WithDetail returns a copy with key added to the details; e is unchanged.
func (e *Error) WithDetail(key string, value any) *Error {
	details := maps.Clone(e.Details)
	if details == nil {
		details = make(map[string]any, 1)
	}
	details[key] = value
	return e.WithDetails(details)
}

func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrNotFound = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrConflict = New(http.StatusConflict, "conflict", "Resource already exists")

	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")

	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
)

func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}
