package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of error for metrics and logging.
type ErrorCode string

// Error codes for categorization.
const (
	ErrCodeConfig     ErrorCode = "CONFIG"     // Configuration errors
	ErrCodeValidation ErrorCode = "VALIDATION" // Input validation errors
	ErrCodeNetwork    ErrorCode = "NETWORK"    // Network/connection errors
	ErrCodeAPI        ErrorCode = "API"        // API response errors
	ErrCodeAuth       ErrorCode = "AUTH"       // Authentication/authorization errors
	ErrCodeRateLimit  ErrorCode = "RATE_LIMIT" // Rate limiting errors
	ErrCodeState      ErrorCode = "STATE"      // Operation not allowed in the current client state
	ErrCodeStorage    ErrorCode = "STORAGE"    // Identity storage errors
	ErrCodeInternal   ErrorCode = "INTERNAL"   // Internal SDK errors
)

// SDKError is the common interface for typed SDK errors.
type SDKError interface {
	error

	// Code returns a machine-readable error code for categorization.
	Code() ErrorCode

	// GetRequestID returns the request ID, if available.
	GetRequestID() string
}

// Sentinel errors for configuration and client state.
var (
	ErrNilConfig          = errors.New("loopmetrics: config cannot be nil")
	ErrMissingAPIKey      = errors.New("loopmetrics: API key is required")
	ErrMissingBaseURL     = errors.New("loopmetrics: base URL is required")
	ErrNotInitialized     = errors.New("loopmetrics: client is not initialized")
	ErrInitInProgress     = errors.New("loopmetrics: initialization already in progress")
	ErrAlreadyInitialized = errors.New("loopmetrics: client is already initialized")
	ErrClientClosed       = errors.New("loopmetrics: client is closed")
	ErrStorage            = errors.New("loopmetrics: identity storage failure")
)

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr, true
	}
	return nil, false
}

// AsAsyncError extracts an *AsyncError from err's chain.
func AsAsyncError(err error) (*AsyncError, bool) {
	var asyncErr *AsyncError
	if errors.As(err, &asyncErr) {
		return asyncErr, true
	}
	return nil, false
}

// ErrorCodeOf returns the error code of err, or ErrCodeInternal when err
// carries none.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var sdkErr SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.Code()
	}

	switch {
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrMissingBaseURL), errors.Is(err, ErrNilConfig):
		return ErrCodeConfig
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrInitInProgress),
		errors.Is(err, ErrAlreadyInitialized), errors.Is(err, ErrClientClosed):
		return ErrCodeState
	case errors.Is(err, ErrStorage):
		return ErrCodeStorage
	}
	return ErrCodeInternal
}

// WrapError wraps err with a message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
