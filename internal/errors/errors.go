package errors

import (
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Request errors (400xx)
	ErrInvalidRequest   ErrorCode = "40001"
	ErrValidationFailed ErrorCode = "40002"

	// Authentication errors (401xx)
	ErrInvalidCredentials ErrorCode = "40101"
	ErrTokenExpired       ErrorCode = "40102"
	ErrUnauthorized       ErrorCode = "40103"

	// Authorization errors (403xx)
	ErrForbidden ErrorCode = "40301"

	// Resource errors (404xx)
	ErrNotFound        ErrorCode = "40401"
	ErrUserNotFound    ErrorCode = "40402"
	ErrGigNotFound     ErrorCode = "40403"
	ErrBookingNotFound ErrorCode = "40404"

	// Conflict errors (409xx)
	ErrInvalidState ErrorCode = "40901"
	ErrDuplicate    ErrorCode = "40902"

	// Rate limit errors (429xx)
	ErrRateLimited ErrorCode = "42901"

	// Server errors (500xx)
	ErrInternalServer  ErrorCode = "50001"
	ErrExternalService ErrorCode = "50201"
)

// APIError represents a standardized API error
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ErrorResponse represents the error response format
type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id"`
}

// NewErrorResponse wraps an APIError in the response envelope
func NewErrorResponse(err *APIError, requestID string) ErrorResponse {
	return ErrorResponse{Error: *err, RequestID: requestID}
}

// Common errors
var (
	ErrInvalidCredentialsError = &APIError{
		Code:       ErrInvalidCredentials,
		Message:    "Invalid username, email or password",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpiredError = &APIError{
		Code:       ErrTokenExpired,
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrUnauthorizedError = &APIError{
		Code:       ErrUnauthorized,
		Message:    "Authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbiddenError = &APIError{
		Code:       ErrForbidden,
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}

	ErrUserNotFoundError = &APIError{
		Code:       ErrUserNotFound,
		Message:    "User not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrGigNotFoundError = &APIError{
		Code:       ErrGigNotFound,
		Message:    "Gig not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrBookingNotFoundError = &APIError{
		Code:       ErrBookingNotFound,
		Message:    "Booking not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRateLimitedError = &APIError{
		Code:       ErrRateLimited,
		Message:    "Rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternalServerError = &APIError{
		Code:       ErrInternalServer,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// NewValidationError creates a validation error with details
func NewValidationError(details any) *APIError {
	return &APIError{
		Code:       ErrValidationFailed,
		Message:    "Validation failed",
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:       ErrInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewAuthorizationError reports an actor acting on something they do not own,
// e.g. "not authorized to accept this booking".
func NewAuthorizationError(message string) *APIError {
	return &APIError{
		Code:       ErrForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewInvalidStateError reports a transition attempted from the wrong state.
func NewInvalidStateError(message string) *APIError {
	return &APIError{
		Code:       ErrInvalidState,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicateError reports a uniqueness violation.
func NewDuplicateError(message string) *APIError {
	return &APIError{
		Code:       ErrDuplicate,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewExternalServiceError reports a failed call to geocoding or payment.
func NewExternalServiceError(message string) *APIError {
	return &APIError{
		Code:       ErrExternalService,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewNotFoundError creates a generic not found error
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:       ErrNotFound,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}

// GetHTTPStatusFromCode derives the HTTP status from the code's three-digit prefix
func GetHTTPStatusFromCode(code ErrorCode) int {
	switch s := string(code); {
	case len(s) < 3:
		return http.StatusInternalServerError
	case s[:3] == "400":
		return http.StatusBadRequest
	case s[:3] == "401":
		return http.StatusUnauthorized
	case s[:3] == "403":
		return http.StatusForbidden
	case s[:3] == "404":
		return http.StatusNotFound
	case s[:3] == "409":
		return http.StatusConflict
	case s[:3] == "429":
		return http.StatusTooManyRequests
	case s[:3] == "502":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails returns a copy of the error carrying details
func (e *APIError) WithDetails(details any) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of the error with a different message
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// IsClientError reports whether the error maps to a 4xx status
func IsClientError(e *APIError) bool {
	return e.HTTPStatus >= 400 && e.HTTPStatus < 500
}

// IsServerError reports whether the error maps to a 5xx status
func IsServerError(e *APIError) bool {
	return e.HTTPStatus >= 500 && e.HTTPStatus < 600
}
