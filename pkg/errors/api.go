package errors

import (
	"fmt"
)

// Sentinel APIError values for use with errors.Is().
// These match on status code only.
var (
	ErrBadRequest   = &APIError{StatusCode: 400}
	ErrUnauthorized = &APIError{StatusCode: 401}
	ErrForbidden    = &APIError{StatusCode: 403}
	ErrNotFound     = &APIError{StatusCode: 404}
	ErrRateLimited  = &APIError{StatusCode: 429}
)

// APIError represents an error response from the Loopmetrics API.
// It supports error wrapping via Unwrap() and comparison via Is().
type APIError struct {
	StatusCode   int    `json:"statusCode"`
	Message      string `json:"message"`
	ErrorMessage string `json:"error"`
	Path         string `json:"-"` // Request path
	RequestID    string `json:"-"` // Request ID for debugging
	Err          error  `json:"-"` // Underlying error for wrapping
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.ErrorMessage
	}

	where := fmt.Sprintf("status %d", e.StatusCode)
	if e.Path != "" {
		where += ", " + e.Path
	}
	if e.RequestID != "" {
		where += ", request " + e.RequestID
	}

	if msg != "" {
		return fmt.Sprintf("loopmetrics: API error (%s): %s", where, msg)
	}
	return fmt.Sprintf("loopmetrics: API error (%s)", where)
}

// Unwrap returns the underlying error for error chain support.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches on status code, allowing comparisons like:
//
//	if errors.Is(err, loopmetrics.ErrUnauthorized) { ... }
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// IsServerError returns true if the error is a 5xx server error.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Code returns the error code for the API error.
func (e *APIError) Code() ErrorCode {
	switch e.StatusCode {
	case 401, 403:
		return ErrCodeAuth
	case 429:
		return ErrCodeRateLimit
	default:
		return ErrCodeAPI
	}
}

// GetRequestID returns the request ID for the API error.
func (e *APIError) GetRequestID() string {
	return e.RequestID
}

var _ SDKError = (*APIError)(nil)
