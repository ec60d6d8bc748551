// Package errors defines the error taxonomy shared by the adaptsched packages.
package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the adaptsched library

var (
	// ErrCapacityExceeded indicates that a submission did not fit in the task queue.
	// The caller can recover by reinitializing with a larger capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUseAfterDestroy indicates an operation on a scheduler that was destroyed
	ErrUseAfterDestroy = errors.New("use after destroy")

	// ErrConcurrentRun indicates that a run was requested, or work was submitted,
	// while a previous run on the same instance had not completed
	ErrConcurrentRun = errors.New("concurrent run violation")

	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError describes a rejected configuration value.
// It always unwraps to ErrInvalidConfiguration.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError records which operation of which module failed and why.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError wrapping cause.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsRecoverable returns true if the caller can fix the condition and retry,
// for example by reinitializing with a larger capacity
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrTimeout)
}

// IsProgrammerError returns true for misuse of the scheduler lifecycle
func IsProgrammerError(err error) bool {
	return errors.Is(err, ErrUseAfterDestroy) || errors.Is(err, ErrConcurrentRun)
}
