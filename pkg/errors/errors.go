package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeVotingClosed    ErrorType = "voting_closed"
	ErrorTypeUnknownQuestion ErrorType = "unknown_question"
	ErrorTypeUnknownPin      ErrorType = "unknown_pin"
	ErrorTypeExpiredPin      ErrorType = "expired_pin"
	ErrorTypeNoSuchNeighbor  ErrorType = "no_such_neighbor"
	ErrorTypeStateConflict   ErrorType = "state_conflict"
	ErrorTypeStorage         ErrorType = "storage"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeAuthentication  ErrorType = "authentication"
	ErrorTypeInternal        ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries the given error type
func IsType(err error, t ErrorType) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == t
	}
	return false
}

// NewValidationError creates a new validation error (rejected raw vote value)
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewVotingClosedError signals that the session does not accept votes right now
func NewVotingClosedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeVotingClosed,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewUnknownQuestionError signals a question id outside the session's sequence
func NewUnknownQuestionError(questionID string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnknownQuestion,
		Message:    "question does not belong to this session",
		StatusCode: http.StatusNotFound,
		Details:    map[string]interface{}{"question_id": questionID},
	}
}

// NewUnknownPinError signals a pin that resolves to no session
func NewUnknownPinError(pin string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnknownPin,
		Message:    "no session found for this pin",
		StatusCode: http.StatusNotFound,
		Details:    map[string]interface{}{"pin": pin},
	}
}

// NewExpiredPinError signals a pin whose session has been terminated
func NewExpiredPinError(pin string) *AppError {
	return &AppError{
		Type:       ErrorTypeExpiredPin,
		Message:    "the session behind this pin has ended",
		StatusCode: http.StatusGone,
		Details:    map[string]interface{}{"pin": pin},
	}
}

// NewNoSuchNeighborError signals navigation past the question sequence boundary
func NewNoSuchNeighborError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNoSuchNeighbor,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewStateConflictError signals a lost race on a player transition
func NewStateConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeStateConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewStorageError wraps an infrastructure failure surfaced to the caller
func NewStorageError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
