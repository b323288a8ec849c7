// Package result defines the small error taxonomy the hub surfaces to
// callers: Overflow, NotFound, BadParameter, NoMemory, InProgress, Fault.
// There is no Ok value — a nil error means success.
package result

import (
	"errors"
	"fmt"
)

// Code is one of the result codes the hub and its facades return.
type Code string

const (
	// Overflow means a destination buffer was too small for the output.
	Overflow Code = "OVERFLOW"
	// NotFound means a path or entry does not exist.
	NotFound Code = "NOT_FOUND"
	// BadParameter means the caller passed a malformed path or an
	// operation that is not valid for the entry's current type.
	BadParameter Code = "BAD_PARAMETER"
	// NoMemory means a pool allocation failed.
	NoMemory Code = "NO_MEMORY"
	// InProgress means an operation is already running and cannot be
	// started again (e.g. a buffer read in flight).
	InProgress Code = "IN_PROGRESS"
	// Fault means an internal contract was violated; callers should
	// treat this as a bug, not a recoverable condition.
	Fault Code = "FAULT"
)

// Error is the concrete error type returned across the hub's public API.
type Error struct {
	Code      Code
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a result error with the given code.
func New(code Code, component, operation, message string) *Error {
	return &Error{Code: code, Component: component, Operation: operation, Message: message}
}

// Wrap attaches a cause to a freshly built result error.
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

// Is reports whether err carries the given code, unwrapping as needed.
func Is(err error, code Code) bool {
	var re *Error
	if !errors.As(err, &re) {
		return false
	}
	return re.Code == code
}
