// Package service implements the business operations of the task board:
// the task mutation orchestrator and the notification read model. Services
// sequence side effects around store writes; they own no persistence or
// transport details themselves.
package service

import (
	"errors"
	"fmt"

	"github.com/taskboard/taskboard-api/internal/store"
)

// Service-level sentinel errors. These are returned directly (not wrapped)
// so callers can branch on them; absence of an entity is a normal outcome
// mapped to a 404 at the API boundary, not a crash.
var (
	// ErrTaskNotFound indicates that the referenced task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotificationNotFound indicates that the referenced notification
	// does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrInvalidCredentials indicates a login attempt with an unknown
	// email or a wrong password. The two cases are deliberately not
	// distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ServiceError wraps a downstream failure with the operation and a
// human-readable message.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError wraps err with operation context. Store-level not-found
// errors for tasks are mapped to the service sentinel instead of wrapped.
func newServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	if errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
