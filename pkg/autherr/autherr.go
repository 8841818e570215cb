package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes surfaced by the authentication protocol. The provider-facing
// codes keep their wire values so classifier matching works on raw provider
// failures without a translation table.
const (
	// Provider exception codes
	ErrCodeNotAuthorized      ErrorCode = "NotAuthorizedException"
	ErrCodeForcePasswordReset ErrorCode = "PasswordResetRequiredException"
	ErrCodeInvalidCode        ErrorCode = "CodeMismatchException"
	ErrCodeLimitExceeded      ErrorCode = "LimitExceededException"
	ErrCodeUserNotFound       ErrorCode = "UserNotFoundException"
	ErrCodeExpiredCode        ErrorCode = "ExpiredCodeException"

	// Widget-local codes
	ErrCodeNoPendingChallenge ErrorCode = "NoPendingChallenge"
	ErrCodeNoCurrentUser      ErrorCode = "NoCurrentUser"
	ErrCodeInvalidInput       ErrorCode = "InvalidInput"
	ErrCodeTransport          ErrorCode = "TransportFailure"
	ErrCodeInternal           ErrorCode = "InternalError"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// HTTPStatusCode maps an error code to an HTTP status code, for callers that
// expose widget failures over a JSON surface.
func HTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotAuthorized, ErrCodeInvalidCode, ErrCodeExpiredCode:
		return http.StatusUnauthorized
	case ErrCodeForcePasswordReset:
		return http.StatusForbidden
	case ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeNoPendingChallenge, ErrCodeNoCurrentUser, ErrCodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
