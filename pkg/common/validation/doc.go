// Package validation provides common validation utilities for configuration
// parameters across the adaptsched library.
//
// The helpers return *errors.ValidationError values so that constructors
// report consistent messages and callers can match them with
// errors.Is(err, errors.ErrInvalidConfiguration).
package validation
