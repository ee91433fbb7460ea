// Package liberr defines the error taxonomy shared by all command and
// query surfaces. Services classify every failure as one of the sentinel
// kinds below; handlers translate the kind into an HTTP status at the
// boundary so callers never see raw storage errors.
package liberr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Error carries a user-facing message alongside its taxonomy kind and,
// for storage failures, the underlying cause.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func InvalidInput(msg string) error {
	return &Error{kind: ErrInvalidInput, msg: msg}
}

func Conflict(msg string) error {
	return &Error{kind: ErrConflict, msg: msg}
}

func NotFound(msg string) error {
	return &Error{kind: ErrNotFound, msg: msg}
}

func Unauthorized(msg string) error {
	return &Error{kind: ErrUnauthorized, msg: msg}
}

// Storage wraps an unexpected persistence failure. The message shown to
// callers stays generic; the cause is preserved for logs.
func Storage(cause error) error {
	return &Error{kind: ErrStorageUnavailable, msg: "storage unavailable", cause: cause}
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
