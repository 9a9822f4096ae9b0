package errextract

import "strings"

type FieldViolation struct {
	Field   string
	Message string
}

// FieldViolator is implemented by errors that reject individual input fields.
type FieldViolator interface {
	error
	FieldViolations() []FieldViolation
}

type ValidationError struct {
	Violations []FieldViolation
}

func NewValidationError(violations ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) FieldViolations() []FieldViolation {
	return e.Violations
}
