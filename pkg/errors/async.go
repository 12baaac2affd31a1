package errors

import (
	"fmt"
	"time"
)

// AsyncErrorOperation identifies the detached operation that failed.
type AsyncErrorOperation string

// Async error operations.
const (
	AsyncOpTrack        AsyncErrorOperation = "track"
	AsyncOpUpdateTenant AsyncErrorOperation = "update_tenant"
	AsyncOpUpdateUser   AsyncErrorOperation = "update_user"
	AsyncOpInternal     AsyncErrorOperation = "internal"
)

// AsyncError represents a failure of a detached request. These never reach
// the caller of Track/UpdateTenant/UpdateUser; they are delivered to the
// configured error handler and logger instead.
type AsyncError struct {
	// Time is when the error occurred.
	Time time.Time

	// Operation identifies the async operation that failed.
	Operation AsyncErrorOperation

	// Err is the underlying error.
	Err error

	// Context contains additional context about the error, such as the
	// event name.
	Context map[string]any
}

// Error implements the error interface.
func (e *AsyncError) Error() string {
	if name, ok := e.Context["event"]; ok {
		return fmt.Sprintf("loopmetrics async error [%s %v] at %s: %v",
			e.Operation, name, e.Time.Format(time.RFC3339), e.Err)
	}
	return fmt.Sprintf("loopmetrics async error [%s] at %s: %v",
		e.Operation, e.Time.Format(time.RFC3339), e.Err)
}

// Unwrap returns the underlying error for error chain support.
func (e *AsyncError) Unwrap() error {
	return e.Err
}

// Code returns the code of the underlying error.
func (e *AsyncError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}

// GetRequestID returns the request ID of the underlying API error, if any.
func (e *AsyncError) GetRequestID() string {
	if apiErr, ok := AsAPIError(e.Err); ok {
		return apiErr.RequestID
	}
	return ""
}

var _ SDKError = (*AsyncError)(nil)

// NewAsyncError creates a new async error.
func NewAsyncError(op AsyncErrorOperation, err error) *AsyncError {
	return &AsyncError{
		Time:      time.Now(),
		Operation: op,
		Err:       err,
	}
}

// WithContext adds context to the error.
func (e *AsyncError) WithContext(key string, value any) *AsyncError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WrapAsyncError wraps an error in an AsyncError if it isn't already.
func WrapAsyncError(op AsyncErrorOperation, err error) *AsyncError {
	if err == nil {
		return nil
	}
	if asyncErr, ok := AsAsyncError(err); ok {
		return asyncErr
	}
	return NewAsyncError(op, err)
}
