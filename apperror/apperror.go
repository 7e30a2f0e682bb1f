// Package apperror defines the error kinds returned by the account and
// session services and their HTTP status mapping.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindNotFound
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindUpload:
		return "upload"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code used for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindUpload:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients,
// Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Errors  []string
	Err     error

	status int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error. It defaults to the kind's
// status unless overridden with WithStatus.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	return e.Kind.Status()
}

// WithStatus overrides the HTTP status while keeping the kind.
func (e *Error) WithStatus(status int) *Error {
	e.status = status
	return e
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Errors: details}
}

func Conflict(msg string) *Error { return New(KindConflict, msg) }

func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }

func NotFound(msg string) *Error { return New(KindNotFound, msg) }

func Upload(msg string, err error) *Error { return Wrap(KindUpload, msg, err) }

func Internal(msg string, err error) *Error { return Wrap(KindInternal, msg, err) }

// As extracts an *Error from err. Unclassified errors become internal errors.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("Internal server error", err)
}

// KindOf reports the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	return As(err).Kind
}
