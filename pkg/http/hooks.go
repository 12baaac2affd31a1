package http

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// HTTPHook allows customizing HTTP request/response handling.
// Hooks are called in order during request processing.
type HTTPHook interface {
	// BeforeRequest is called before sending the HTTP request.
	// It can modify the request (e.g., add headers) and return an error to abort.
	BeforeRequest(ctx context.Context, req *http.Request) error

	// AfterResponse is called after receiving the HTTP response.
	// It receives the response, duration, and any error from the request.
	AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// HTTPHookFunc is a function adapter for simple hooks.
type HTTPHookFunc struct {
	Before func(ctx context.Context, req *http.Request) error
	After  func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// BeforeRequest implements HTTPHook.
func (f HTTPHookFunc) BeforeRequest(ctx context.Context, req *http.Request) error {
	if f.Before != nil {
		return f.Before(ctx, req)
	}
	return nil
}

// AfterResponse implements HTTPHook.
func (f HTTPHookFunc) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	if f.After != nil {
		f.After(ctx, req, resp, duration, err)
	}
}

// hookChain combines multiple hooks into a single hook.
type hookChain struct {
	hooks []HTTPHook
}

// BeforeRequest calls all hooks in order and stops at the first error.
func (c *hookChain) BeforeRequest(ctx context.Context, req *http.Request) error {
	for _, hook := range c.hooks {
		if err := hook.BeforeRequest(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// AfterResponse calls all hooks in reverse order (like a defer stack).
// A panicking hook does not prevent the others from running.
func (c *hookChain) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		func(h HTTPHook) {
			defer func() { _ = recover() }()
			h.AfterResponse(ctx, req, resp, duration, err)
		}(c.hooks[i])
	}
}

// CombineHooks combines multiple hooks into a single hook.
// If there are no hooks, returns nil. If there is one hook, returns it directly.
func CombineHooks(hooks []HTTPHook) HTTPHook {
	var nonNil []HTTPHook
	for _, h := range hooks {
		if h != nil {
			nonNil = append(nonNil, h)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &hookChain{hooks: nonNil}
	}
}

// Logger is the logging interface used by LoggingHook.
type Logger interface {
	Debug(msg string, args ...any)
}

// MetricsRecorder is the interface for recording metrics.
type MetricsRecorder interface {
	IncrementCounter(name string, value int64)
	RecordDuration(name string, duration time.Duration)
}

// HeaderHook creates a hook that adds custom headers to all requests.
func HeaderHook(headers map[string]string) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			return nil
		},
	}
}

// LoggingHook creates a hook that logs each backend request at debug level.
// The API key header is never logged.
func LoggingHook(logger Logger) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			logger.Debug("loopmetrics: sending request",
				"method", req.Method,
				"path", req.URL.Path,
				"request_id", req.Header.Get("X-Request-ID"))
			return nil
		},
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			if err != nil {
				logger.Debug("loopmetrics: request failed",
					"method", req.Method,
					"path", req.URL.Path,
					"duration", duration,
					"error", err)
				return
			}
			if resp != nil {
				logger.Debug("loopmetrics: request completed",
					"method", req.Method,
					"path", req.URL.Path,
					"duration", duration,
					"status", resp.StatusCode)
			}
		},
	}
}

// MetricsHook creates a hook that records request metrics.
//
// Metrics recorded:
//   - loopmetrics.http.requests (counter): Total request count
//   - loopmetrics.http.duration (timing): Request duration
//   - loopmetrics.http.errors (counter): Transport errors and 4xx/5xx responses
//   - loopmetrics.http.status.{code} (counter): Per-status-code count
func MetricsHook(m MetricsRecorder) HTTPHook {
	if m == nil {
		return nil
	}
	return HTTPHookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			m.IncrementCounter("loopmetrics.http.requests", 1)
			m.RecordDuration("loopmetrics.http.duration", duration)

			if err != nil || (resp != nil && resp.StatusCode >= 400) {
				m.IncrementCounter("loopmetrics.http.errors", 1)
			}
			if resp != nil {
				m.IncrementCounter("loopmetrics.http.status."+strconv.Itoa(resp.StatusCode), 1)
			}
		},
	}
}
