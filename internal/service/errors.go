package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindInvalidCredentials
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalidTransition
)

// Error is the error type every service operation returns for expected
// failures. Err, when set, is the underlying cause; it is logged and never
// shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // per-field problems of a validation error
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to its HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindInvalidTransition:
		return http.StatusBadRequest
	case KindUnauthorized, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// ValidationFields reports several field problems at once.
func ValidationFields(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Unauthorized(msg string) *Error  { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error     { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error      { return &Error{Kind: KindConflict, Message: msg} }
func InvalidTransition(msg string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: msg}
}

// InvalidCredentials is deliberately identical for unknown email and wrong
// password.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password"}
}

// Internal wraps an unexpected failure. msg is safe to show.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the kind of err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
