package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrValidation   ErrorType = "VALIDATION_ERROR"
	ErrStorage      ErrorType = "STORAGE_ERROR"
	ErrRuleLoad     ErrorType = "RULE_LOAD_ERROR"
	ErrChannel      ErrorType = "CHANNEL_ERROR"
	ErrAutoResponse ErrorType = "AUTO_RESPONSE_ERROR"
	ErrAuthFailed   ErrorType = "AUTH_FAILED"
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrInternal     ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the pipeline. Callers of
// LogEvent only ever observe ErrValidation or ErrStorage; every other
// type is absorbed internally.
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewValidation(msg string) *AppError {
	return New(ErrValidation, msg, nil)
}

func NewStorage(msg string, cause error) *AppError {
	return New(ErrStorage, msg, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// IsStorage reports whether err is (or wraps) a durable-write failure,
// the one error kind propagated out of LogEvent.
func IsStorage(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrStorage
}

// IsValidation reports whether err is a caller-input rejection.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrValidation
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrValidation:
		return "Supply event_type, event_category and description."
	case ErrStorage:
		return "Retry the request; the event was not persisted."
	case ErrAuthFailed:
		return "Check the X-Audit-Key header."
	default:
		return ""
	}
}
