package errors

import "fmt"

// ValidationError reports an invalid configuration value or event property.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("loopmetrics: validation error for field %q: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Code returns ErrCodeValidation.
func (e *ValidationError) Code() ErrorCode {
	return ErrCodeValidation
}

// GetRequestID returns an empty string (validation errors don't have request IDs).
func (e *ValidationError) GetRequestID() string {
	return ""
}

var _ SDKError = (*ValidationError)(nil)

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorWithCause creates a new validation error with an underlying cause.
func NewValidationErrorWithCause(field, message string, cause error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     cause,
	}
}
