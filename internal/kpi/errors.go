package kpi

import (
	"errors"
	"fmt"
)

// ValidationError reports input that cannot be calculated. Field is empty when
// the problem is not tied to a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalidField(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("Please enter a valid number for %q.", field),
	}
}

func yieldOutOfRange() *ValidationError {
	return &ValidationError{
		Field:   FieldYieldPct,
		Message: "Yield (%) must be between 0 and 100.",
	}
}
