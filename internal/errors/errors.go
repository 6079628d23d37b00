package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an error for the workflow/handler boundary.
type Code string

const (
	// ErrCodeInvalidScope marks an authorization target without a tenant.
	// Always a caller bug, never a business condition.
	ErrCodeInvalidScope Code = "INVALID_SCOPE"
	// ErrCodePermissionDenied marks a resolver deny. Surfaced to the user,
	// never retried.
	ErrCodePermissionDenied Code = "PERMISSION_DENIED"
	// ErrCodeValidation marks a business-rule violation.
	ErrCodeValidation Code = "VALIDATION_FAILED"
	// ErrCodeConflict marks a transition attempted from the wrong state.
	ErrCodeConflict Code = "CONFLICT"
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeInternal Code = "INTERNAL"
)

// Error is a coded error carrying an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// InvalidInput reports a validation failure on a named field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("%s: %s", field, message)}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s '%s' not found", resource, id)}
}

// PermissionDenied reports a resolver deny for an action.
func PermissionDenied(action string) *Error {
	return &Error{Code: ErrCodePermissionDenied, Message: fmt.Sprintf("not authorized to %s", action)}
}

// InvalidScope reports an authorization target without a tenant.
func InvalidScope(message string) *Error {
	return &Error{Code: ErrCodeInvalidScope, Message: message}
}

// CodeOf extracts the code from an error, unwrapping as needed.
// ErrCodeInternal when no coded error is found in the chain.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error to the status the handler layer should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeInvalidScope:
		return http.StatusBadRequest
	case ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrCodePermissionDenied:
		return http.StatusForbidden
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
