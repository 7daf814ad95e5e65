package core

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so callers can branch without matching
// message text.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
	KindSyntax        Kind = "SYNTAX"
	KindLimitExceeded Kind = "LIMIT_EXCEEDED"
	KindSecurity      Kind = "SECURITY"
)

// Error is the single error type surfaced by the engine, interpreter and
// bridges.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Conflictf(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func Syntaxf(format string, args ...any) *Error {
	return newError(KindSyntax, format, args...)
}

func LimitExceededf(format string, args ...any) *Error {
	return newError(KindLimitExceeded, format, args...)
}

func Securityf(format string, args ...any) *Error {
	return newError(KindSecurity, format, args...)
}

func isKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsValidation(err error) bool    { return isKind(err, KindValidation) }
func IsNotFound(err error) bool      { return isKind(err, KindNotFound) }
func IsConflict(err error) bool      { return isKind(err, KindConflict) }
func IsSyntax(err error) bool        { return isKind(err, KindSyntax) }
func IsLimitExceeded(err error) bool { return isKind(err, KindLimitExceeded) }
func IsSecurity(err error) bool      { return isKind(err, KindSecurity) }
