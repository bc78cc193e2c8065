package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a domain error with additional context
type Error struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface for error chaining
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error comparison for errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails adds contextual details to the error.
// It returns a copy so the package-level sentinels stay untouched.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value

	return &Error{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
		Details:    details,
	}
}

// WithMessage replaces the user-facing message, keeping the error kind.
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		Code:       e.Code,
		Message:    message,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
		Details:    e.Details,
	}
}

// Wrap wraps an underlying error with this domain error
func (e *Error) Wrap(err error) *Error {
	return &Error{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Err:        err,
		Details:    e.Details,
	}
}

// The closed error taxonomy. Every error crossing a service boundary is one
// of these kinds; repositories and adapters translate their failures into
// them before returning.
var (
	ErrInvalidArgument = &Error{
		Code:       "INVALID_ARGUMENT",
		Message:    "Invalid input provided",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthenticated = &Error{
		Code:       "UNAUTHENTICATED",
		Message:    "Authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}

	// ErrInvalidCredentials is intentionally indistinguishable across a wrong
	// password, an unknown user, and a missing membership, so callers cannot
	// enumerate accounts. Unknown tenants and inactive accounts are reported
	// with their own errors.
	ErrInvalidCredentials = &Error{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &Error{
		Code:       "FORBIDDEN",
		Message:    "Access forbidden",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotFound = &Error{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrConflict = &Error{
		Code:       "CONFLICT",
		Message:    "Resource already exists",
		HTTPStatus: http.StatusConflict,
	}

	ErrInsufficientStock = &Error{
		Code:       "INSUFFICIENT_STOCK",
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrPreconditionFailed = &Error{
		Code:       "PRECONDITION_FAILED",
		Message:    "Action not allowed in the current subscription state",
		HTTPStatus: http.StatusPreconditionFailed,
	}

	ErrDeadlineExceeded = &Error{
		Code:       "DEADLINE_EXCEEDED",
		Message:    "Request exceeded its time budget",
		HTTPStatus: http.StatusGatewayTimeout,
	}

	ErrGatewayUnavailable = &Error{
		Code:       "GATEWAY_UNAVAILABLE",
		Message:    "Payment gateway unavailable",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrInternal = &Error{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// New creates a new domain error
func New(code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Is checks if the target error matches this error type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetHTTPStatus extracts HTTP status from error or returns 500
func GetHTTPStatus(err error) int {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetCode extracts the taxonomy code from an error, or INTERNAL_ERROR.
func GetCode(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrInternal.Code
}
