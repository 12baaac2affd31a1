// Package errors provides error types and handling for the Loopmetrics Go SDK.
//
// This package defines the error types used throughout the SDK:
//
//   - APIError: an error response from the Loopmetrics API with an HTTP status code
//   - ValidationError: an invalid configuration value or event property
//   - AsyncError: a failure of a detached (fire-and-forget) request
//
// All of them implement the SDKError interface:
//
//	var sdkErr errors.SDKError
//	if stdErrors.As(err, &sdkErr) {
//	    log.Printf("Error code: %s", sdkErr.Code())
//	}
//
// Sentinel errors cover the client lifecycle (ErrNotInitialized,
// ErrInitInProgress, ErrAlreadyInitialized, ErrClientClosed) and common API
// statuses (ErrUnauthorized, ErrNotFound, ErrRateLimited). Compare with
// errors.Is:
//
//	if stdErrors.Is(err, errors.ErrUnauthorized) {
//	    // Check the API key
//	}
package errors
