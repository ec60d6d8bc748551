// Package validation provides common validation utilities for the adaptsched library.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
)

// Number is any integer or floating point type, including named types such
// as time.Duration.
type Number interface {
	~int | ~int32 | ~int64 | ~float64
}

// ValidatePositive reports a ValidationError unless value > 0.
func ValidatePositive[N Number](module, field string, value N) error {
	if value <= 0 {
		return aserrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative reports a ValidationError if value < 0.
func ValidateNonNegative[N Number](module, field string, value N) error {
	if value < 0 {
		return aserrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidateNotNil reports a ValidationError if value is nil. A typed nil
// (nil func, pointer, map, slice, channel or interface) counts as nil, so a
// nil task.Func passed as interface{} is rejected.
func ValidateNotNil(module, field string, value interface{}) error {
	if isNil(value) {
		return aserrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// ValidateNotEmpty reports a ValidationError if value is the empty string.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return aserrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateMaxLen reports a ValidationError if value is longer than max bytes.
func ValidateMaxLen(module, field, value string, max int) error {
	if len(value) > max {
		return aserrors.NewValidationError(module, field, value, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

// ValidateList reports a ValidationError if values is empty, otherwise runs
// check on every element and returns the first failure.
func ValidateList[T any](module, field string, values []T, check func(T) error) error {
	if len(values) == 0 {
		return aserrors.NewValidationError(module, field, values, "at least one value required")
	}
	if check == nil {
		return nil
	}
	for _, v := range values {
		if err := check(v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOneOf validates that value is one of allowed (case-sensitive).
func ValidateOneOf(module, field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return aserrors.NewValidationError(module, field, value, "unrecognized value").
		WithHint("use one of " + strings.Join(allowed, ", "))
}
