package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidStatus is returned when a task status is not one of the
	// enumerated values.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidPriority is returned when a task priority is not one of the
	// enumerated values.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidNotificationType is returned when a notification type is not
	// one of the enumerated values.
	ErrInvalidNotificationType = errors.New("invalid notification type")

	// ErrInvalidRelatedKind is returned when a notification's related
	// reference names an unknown entity kind.
	ErrInvalidRelatedKind = errors.New("invalid related entity kind")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError wraps a field-level validation failure with context
// about which field failed and why.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return "validation failed for " + e.Field + ": " + e.Message
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
