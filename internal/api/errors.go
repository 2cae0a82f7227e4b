package api

import (
	"errors"
	"net/http"

	"github.com/taskboard/taskboard-api/internal/api/shared"
	"github.com/taskboard/taskboard-api/internal/domain"
	"github.com/taskboard/taskboard-api/internal/service"
	"github.com/taskboard/taskboard-api/internal/service/auth"
	"github.com/taskboard/taskboard-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		isDomainValidationError(err),
		isEntityValidationError(err):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrRevokedToken):
		return "Refresh token has been revoked"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Not authorized"

	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrNotificationNotFound):
		return "Notification not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case isDomainValidationError(err),
		isEntityValidationError(err),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		// Validation messages are written for users, safe to pass along.
		return err.Error()

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status code and writes a sanitized error
// response, logging the full error. An empty message falls back to the
// safe message derived from the error type.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	statusCode := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, statusCode, message, err)
}

func isDomainValidationError(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}

// entityValidationErrs are the field-level sentinels entity constructors
// return; all of them describe caller mistakes.
var entityValidationErrs = []error{
	domain.ErrInvalidStatus,
	domain.ErrInvalidPriority,
	domain.ErrInvalidNotificationType,
	domain.ErrInvalidRelatedKind,
	domain.ErrInvalidEmail,
	domain.ErrTaskIDEmpty,
	domain.ErrTaskTitleEmpty,
	domain.ErrTaskCreatorEmpty,
	domain.ErrTaskDueDateZero,
	domain.ErrCommentTextEmpty,
	domain.ErrUserEmailEmpty,
	domain.ErrUserNameEmpty,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
}

func isEntityValidationError(err error) bool {
	for _, sentinel := range entityValidationErrs {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
