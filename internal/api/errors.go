package api

import "net/http"

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Standard errors
var (
	ErrUnauthorized = &Error{
		Code:    ErrCodeUnauthorized,
		Message: "Invalid or expired token",
		Status:  http.StatusUnauthorized,
	}

	ErrInvalidAPIKey = &Error{
		Code:    ErrCodeUnauthorized,
		Message: "Invalid API key",
		Status:  http.StatusUnauthorized,
	}

	ErrAlertNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "Alert not found",
		Status:  http.StatusNotFound,
	}

	ErrCityNotAssigned = &Error{
		Code:    ErrCodeNotFound,
		Message: "No city assigned to user",
		Status:  http.StatusNotFound,
	}

	ErrInternalServer = &Error{
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
)

// NewBadRequest creates a bad request error with a custom message.
func NewBadRequest(message string) *Error {
	return &Error{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewInternalError creates an internal error carrying the underlying
// error message, so callers see what actually failed.
func NewInternalError(err error) *Error {
	return &Error{
		Code:    ErrCodeInternalError,
		Message: err.Error(),
		Status:  http.StatusInternalServerError,
	}
}

// NewValidationError creates a validation error with a custom message.
func NewValidationError(message string) *Error {
	return &Error{
		Code:    ErrCodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}
