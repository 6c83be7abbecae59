package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure for the retry policy and the sync queue:
// UNAVAILABLE is the only transient code, everything else is terminal.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error is a classified domain error, optionally wrapping a cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrTaskNotFound    = NewError(ErrCodeNotFound, "task not found")
	ErrFilterNotFound  = NewError(ErrCodeNotFound, "filter not found")
	ErrProfileNotFound = NewError(ErrCodeNotFound, "profile not found")
	ErrSessionNotFound = NewError(ErrCodeNotFound, "session not found")
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload  = NewError(ErrCodeInvalid, "invalid payload")
)

// IsDomainError reports whether err carries the given code anywhere in
// its chain.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// IsTerminal reports whether a remote failure must not be retried or
// buffered: the operation itself is wrong, not the connection.
func IsTerminal(err error) bool {
	return IsDomainError(err, ErrCodeInvalid) ||
		IsDomainError(err, ErrCodeNotFound) ||
		IsDomainError(err, ErrCodeConflict) ||
		IsDomainError(err, ErrCodeForbidden) ||
		IsDomainError(err, ErrCodeUnauthorized)
}
