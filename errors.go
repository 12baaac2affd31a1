package loopmetrics

import (
	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
)

// Error types re-exported from pkg/errors.
type (
	// APIError is a non-2xx response from the Loopmetrics backend.
	APIError = pkgerrors.APIError

	// AsyncError is the failure of a detached request.
	AsyncError = pkgerrors.AsyncError

	// AsyncErrorOperation names the detached operation that failed.
	AsyncErrorOperation = pkgerrors.AsyncErrorOperation

	// ValidationError reports an invalid config or property value.
	ValidationError = pkgerrors.ValidationError

	// ErrorCode categorizes errors for metrics and logging.
	ErrorCode = pkgerrors.ErrorCode

	// SDKError is implemented by all typed SDK errors.
	SDKError = pkgerrors.SDKError
)

// Async operations.
const (
	AsyncOpTrack        = pkgerrors.AsyncOpTrack
	AsyncOpUpdateTenant = pkgerrors.AsyncOpUpdateTenant
	AsyncOpUpdateUser   = pkgerrors.AsyncOpUpdateUser
)

// Error codes.
const (
	ErrCodeConfig     = pkgerrors.ErrCodeConfig
	ErrCodeValidation = pkgerrors.ErrCodeValidation
	ErrCodeNetwork    = pkgerrors.ErrCodeNetwork
	ErrCodeAPI        = pkgerrors.ErrCodeAPI
	ErrCodeAuth       = pkgerrors.ErrCodeAuth
	ErrCodeRateLimit  = pkgerrors.ErrCodeRateLimit
	ErrCodeState      = pkgerrors.ErrCodeState
	ErrCodeStorage    = pkgerrors.ErrCodeStorage
	ErrCodeInternal   = pkgerrors.ErrCodeInternal
)

// Sentinel errors.
var (
	ErrNilConfig          = pkgerrors.ErrNilConfig
	ErrMissingAPIKey      = pkgerrors.ErrMissingAPIKey
	ErrMissingBaseURL     = pkgerrors.ErrMissingBaseURL
	ErrNotInitialized     = pkgerrors.ErrNotInitialized
	ErrInitInProgress     = pkgerrors.ErrInitInProgress
	ErrAlreadyInitialized = pkgerrors.ErrAlreadyInitialized
	ErrClientClosed       = pkgerrors.ErrClientClosed
	ErrStorage            = pkgerrors.ErrStorage

	ErrBadRequest   = pkgerrors.ErrBadRequest
	ErrUnauthorized = pkgerrors.ErrUnauthorized
	ErrForbidden    = pkgerrors.ErrForbidden
	ErrNotFound     = pkgerrors.ErrNotFound
	ErrRateLimited  = pkgerrors.ErrRateLimited
)

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	return pkgerrors.AsAPIError(err)
}

// AsAsyncError extracts an *AsyncError from err's chain.
func AsAsyncError(err error) (*AsyncError, bool) {
	return pkgerrors.AsAsyncError(err)
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	return pkgerrors.AsValidationError(err)
}

// ErrorCodeOf returns the error code of err.
func ErrorCodeOf(err error) ErrorCode {
	return pkgerrors.ErrorCodeOf(err)
}
