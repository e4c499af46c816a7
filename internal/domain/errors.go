package domain

import (
	"errors"
	"fmt"
)

// ErrorKind identifies which class of failure an Error represents.
// Handlers map kinds to HTTP status codes; the engine never formats
// user-facing responses itself.
type ErrorKind string

const (
	// ErrValidation - malformed request (bounds, lengths, signs)
	ErrValidation ErrorKind = "validation_error"
	// ErrNoActiveDecision - mutation attempted with no qualifying active decision
	ErrNoActiveDecision ErrorKind = "no_active_decision"
	// ErrInvalidStateTransition - completing a decision that is not active
	ErrInvalidStateTransition ErrorKind = "invalid_state_transition"
	// ErrDivisionByZero - solver target hours have a zero baseline sum
	ErrDivisionByZero ErrorKind = "division_by_zero"
	// ErrNotFound - unknown workspace or decision id
	ErrNotFound ErrorKind = "not_found"
)

// Error is a structured domain error carrying a kind and a human-readable
// message. All engine operations validate before mutating, so returning an
// Error guarantees the series and audit log are untouched.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is allows errors.Is comparisons against sentinel errors of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNoActiveDecisionError creates a decision-gating error
func NewNoActiveDecisionError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNoActiveDecision, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidStateTransitionError creates a state machine error
func NewInvalidStateTransitionError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidStateTransition, Message: fmt.Sprintf(format, args...)}
}

// NewDivisionByZeroError creates a solver degenerate-input error
func NewDivisionByZeroError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrDivisionByZero, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates an unknown-id error
func NewNotFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from any error, returning ok=false for
// non-domain errors (infrastructure failures, wrapped or not).
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
