package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to API callers.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeForbidden     = "FORBIDDEN"
	CodeInvalidState  = "INVALID_STATE"
	CodeValidation    = "VALIDATION_ERROR"
	CodeConflict      = "CONFLICT"
	CodeInternalError = "INTERNAL_ERROR"
)

// AppError is the error taxonomy for lifecycle operations: NotFound,
// Forbidden, InvalidState, ValidationError, Conflict. Every instance maps to
// a stable code and HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NotFoundError(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: resource + " not found",
	}
}

func ForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: message,
	}
}

// InvalidStateError names the ride's current status in the message.
func InvalidStateError(action, currentStatus string) *AppError {
	return &AppError{
		Code:    CodeInvalidState,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("cannot %s a ride in status %q", action, currentStatus),
	}
}

func ValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

func ConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Status:  http.StatusConflict,
		Message: message,
	}
}

// AsAppError unwraps an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
