package loopmetrics

import (
	"go.opentelemetry.io/otel/trace"

	pkghttp "github.com/loopmetrics/loopmetrics-go/pkg/http"
)

// HTTPHook allows customizing backend request/response handling.
//
//	client, _ := loopmetrics.New(
//	    loopmetrics.WithHTTPHooks(loopmetrics.HeaderHook(map[string]string{"X-App": "web"})),
//	)
type HTTPHook = pkghttp.HTTPHook

// HTTPHookFunc is a function adapter for simple hooks.
type HTTPHookFunc = pkghttp.HTTPHookFunc

// HeaderHook creates a hook that adds custom headers to all requests.
func HeaderHook(headers map[string]string) HTTPHook {
	return pkghttp.HeaderHook(headers)
}

// LoggingHook creates a hook that logs each backend request at debug level.
func LoggingHook(logger StructuredLogger) HTTPHook {
	return pkghttp.LoggingHook(logger)
}

// MetricsHook creates a hook that records request counts and durations.
func MetricsHook(m Metrics) HTTPHook {
	if m == nil {
		return nil
	}
	return pkghttp.MetricsHook(m)
}

// TracingHook creates a hook recording one OpenTelemetry span per request.
func TracingHook(tp trace.TracerProvider) HTTPHook {
	return pkghttp.TracingHook(tp)
}

// requestHooks assembles the hooks for the backend client: debug logging
// first, then user hooks, then metrics and tracing.
func (s *Settings) requestHooks() []HTTPHook {
	var hooks []HTTPHook
	if s.Debug {
		hooks = append(hooks, LoggingHook(s.Logger))
	}
	if len(s.Headers) > 0 {
		hooks = append(hooks, HeaderHook(s.Headers))
	}
	hooks = append(hooks, s.HTTPHooks...)
	if s.Metrics != nil {
		hooks = append(hooks, MetricsHook(s.Metrics))
	}
	if s.TracerProvider != nil {
		hooks = append(hooks, TracingHook(s.TracerProvider))
	}
	return hooks
}

// geolocationHooks are the hooks for the geolocation lookup. Custom headers
// and user hooks are addressed to the backend and are not applied.
func (s *Settings) geolocationHooks() []HTTPHook {
	var hooks []HTTPHook
	if s.Debug {
		hooks = append(hooks, LoggingHook(s.Logger))
	}
	if s.Metrics != nil {
		hooks = append(hooks, MetricsHook(s.Metrics))
	}
	if s.TracerProvider != nil {
		hooks = append(hooks, TracingHook(s.TracerProvider))
	}
	return hooks
}
