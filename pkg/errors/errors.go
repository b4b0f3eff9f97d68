package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared between the backend client, the services and the local API.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeUpstream           = "UPSTREAM_ERROR"
	CodeTransport          = "TRANSPORT_ERROR"
	CodeDecode             = "DECODE_ERROR"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeNotConfirmed       = "NOT_CONFIRMED"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest, err)
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized, err)
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return NewAppError(CodeForbidden, message, http.StatusForbidden, err)
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict, err)
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return NewAppError(CodeInternal, message, http.StatusInternalServerError, err)
}

// ServiceUnavailable creates a 503 error
func ServiceUnavailable(message string, err error) *AppError {
	return NewAppError(CodeUnavailable, message, http.StatusServiceUnavailable, err)
}

// Upstream reports a non-2xx answer from the backend. The backend status is kept
// so callers can tell a 404 from a 500.
func Upstream(status int, body string) *AppError {
	return &AppError{
		Code:    CodeUpstream,
		Message: fmt.Sprintf("Server returned status: %d", status),
		Status:  status,
		Err:     errors.New(body),
	}
}

// Transport reports a request that never produced a response.
func Transport(err error) *AppError {
	return NewAppError(CodeTransport, "Request failed", http.StatusBadGateway, err)
}

// Decode reports a response body that could not be understood.
func Decode(err error) *AppError {
	return NewAppError(CodeDecode, "Unexpected response from server", http.StatusBadGateway, err)
}

// Domain-specific errors

var (
	ErrMissingCredentials = &AppError{
		Code:    CodeMissingCredentials,
		Message: "No token found. Please log in again.",
		Status:  http.StatusUnauthorized,
	}

	ErrTripNotFound    = NotFound("Trip not found", nil)
	ErrRequestNotFound = NotFound("Join request not found", nil)
	ErrNoTripSelected  = BadRequest("No trip selected", nil)
	ErrBookmarkMissing = NotFound("Bookmark not found", nil)
	ErrChatNotFound    = NotFound("Chat not found", nil)

	ErrInvalidStatus       = BadRequest("Invalid status transition", nil)
	ErrInvalidCoordinates  = BadRequest("Invalid coordinates", nil)
	ErrInvalidTarget       = BadRequest("Selection target must be 0 (origin) or 1 (destination)", nil)
	ErrInvalidDate         = BadRequest("Dates must use the YYYY-MM-DD format", nil)
	ErrInvalidRole         = BadRequest("Role must be driver or passenger", nil)
	ErrNoDateSelected      = BadRequest("Select a date first", nil)
	ErrTooManyDates        = BadRequest("Passengers can search one date at a time", nil)
	ErrInvalidTripDetails  = BadRequest("Seats must be positive and price cannot be negative", nil)
	ErrEmptyQuery          = BadRequest("Please enter a location to search!", nil)
	ErrNoAcceptedPassenger = Conflict("Accept at least one passenger before starting the trip", nil)

	ErrDriverProfileRequired = Forbidden("Complete your driver details before switching to driver mode", nil)
	ErrDriverOnly            = Forbidden("Only drivers can perform this action", nil)
	ErrPassengerOnly         = Forbidden("Only passengers can perform this action", nil)
	ErrNotLoggedIn           = Unauthorized("Please log in first", nil)

	ErrNotConfirmed = &AppError{
		Code:    CodeNotConfirmed,
		Message: "Action was not confirmed",
		Status:  http.StatusPreconditionRequired,
	}
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
