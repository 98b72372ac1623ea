// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error. Every kind is terminal for the operation
// that raised it; callers must not retry.
type Kind string

const (
	KindNotFound      Kind = "NOT_FOUND"
	KindInvalidState  Kind = "INVALID_STATE"
	KindCorruptState  Kind = "CORRUPT_STATE"
	KindQuotaExceeded Kind = "QUOTA_EXCEEDED"
	KindValidation    Kind = "VALIDATION"
)

// Error is the common application error carrying a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func InvalidState(format string, args ...any) error {
	return newError(KindInvalidState, format, args...)
}

func CorruptState(format string, args ...any) error {
	return newError(KindCorruptState, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) error {
	e := newError(kind, format, args...)
	e.Err = err
	return e
}

// QuotaExceededError is returned when a create is blocked by the tenant's tier ceiling.
type QuotaExceededError struct {
	Resource string
	Tier     string
	Ceiling  int
	Count    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d of %d allowed on the %s plan", e.Resource, e.Count, e.Ceiling, e.Tier)
}

// KindOf reports the Kind of err, or "" when err is not an application error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return KindQuotaExceeded
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
func IsCorruptState(err error) bool { return KindOf(err) == KindCorruptState }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsQuotaExceeded(err error) bool {
	return KindOf(err) == KindQuotaExceeded
}
