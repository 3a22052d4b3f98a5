// Package apperrors defines the failure taxonomy shared by every service.
// All denied or invalid operations surface as an *Error carrying a Kind and
// the specific rule violated, so callers can map them without string checks.
package apperrors

import "errors"

type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindForbidden    Kind = "FORBIDDEN"
	KindInvalidState Kind = "INVALID_STATE"
	KindConflict     Kind = "CONFLICT"
	KindValidation   Kind = "VALIDATION"
)

type Error struct {
	Kind    Kind
	Rule    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, rule, message string) *Error {
	return &Error{Kind: kind, Rule: rule, Message: message}
}

func NotFound(rule, message string) *Error {
	return newError(KindNotFound, rule, message)
}

func Forbidden(rule, message string) *Error {
	return newError(KindForbidden, rule, message)
}

func InvalidState(rule, message string) *Error {
	return newError(KindInvalidState, rule, message)
}

func Conflict(rule, message string) *Error {
	return newError(KindConflict, rule, message)
}

func Validation(rule, message string) *Error {
	return newError(KindValidation, rule, message)
}

// KindOf returns the Kind of err when it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
