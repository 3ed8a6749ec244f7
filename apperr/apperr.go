// Package apperr defines the error kinds the HTTP layer understands and the
// status code each one maps to.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUnavailable
)

// Error is safe to show to clients: Message never contains internal detail.
// Err keeps the cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error  { return &Error{Kind: KindValidation, Message: msg} }
func Auth(msg string) *Error        { return &Error{Kind: KindAuth, Message: msg} }
func Forbidden(msg string) *Error   { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error    { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error    { return &Error{Kind: KindConflict, Message: msg} }
func RateLimited(msg string) *Error { return &Error{Kind: KindRateLimited, Message: msg} }
func Unavailable(msg string) *Error { return &Error{Kind: KindUnavailable, Message: msg} }

const internalMessage = "Internal server error"

func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: internalMessage, Err: err}
}

// From returns err as an *Error, treating anything unclassified as unexpected.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unexpected(err)
}
