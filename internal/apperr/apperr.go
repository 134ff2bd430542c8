// Package apperr defines the stable error taxonomy every component in
// the core surfaces. Callers test the kind with apperr.Is(err, kind);
// ControlAPI maps a Kind to an HTTP status once,
// in one place, instead of scattering status codes through handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, loggable tag for a class of failure.
type Kind string

const (
	Validation   Kind = "validation"
	Auth         Kind = "auth"
	Forbidden    Kind = "forbidden"
	NotFound     Kind = "not_found"
	Conflict     Kind = "conflict"
	Domain       Kind = "domain"
	Backpressure Kind = "backpressure"
	Transient    Kind = "transient"
	Fatal        Kind = "fatal"
)

// Error pairs a stable Kind with a human-readable message. It never
// carries internals (stack traces, driver errors) in its message —
// those are logged by the caller, not returned.
type Error struct {
	Kind    Kind
	Message string
	// Cause is retained for %w-style wrapping/logging but is not part
	// of Message, so it never leaks to a client response.
	Cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, apperr.NotFound) style checks are not directly
// possible (Kind is not an error) — use Is(err, kind) instead.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind, retaining cause for
// logging via Unwrap while keeping Message client-safe.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Named domain-rule errors, tested with errors.Is by the Trader's
// callers and by tests (§8 end-to-end scenarios reference several of
// these by name).
var (
	ErrSymbolUnknown            = New(NotFound, "unknown symbol")
	ErrInsufficientCash         = New(Domain, "insufficient cash")
	ErrInsufficientShares       = New(Domain, "insufficient shares")
	ErrDayTradeLimitExceeded    = New(Domain, "day trade limit exceeded")
	ErrConflictingLongPosition  = New(Conflict, "conflicting long position")
	ErrConflictingShortPosition = New(Conflict, "conflicting short position")
	ErrNoShortPosition          = New(Domain, "no short position")
	ErrQuantityExceedsShort     = New(Domain, "quantity exceeds short position")
	ErrWeekBudgetExhausted      = New(Domain, "week budget exhausted")
	ErrInvalidQuantity          = New(Validation, "quantity must be positive")
)
