package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/loopmetrics/loopmetrics-go/pkg/http"

// tracingHook starts a client span in BeforeRequest and ends it in
// AfterResponse. Spans are keyed by the outgoing request because hooks
// cannot replace the request context.
type tracingHook struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	spans      sync.Map // *http.Request -> trace.Span
}

// TracingHook creates a hook that records one OpenTelemetry client span per
// backend request. A nil provider uses the global tracer provider.
func TracingHook(tp trace.TracerProvider) HTTPHook {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &tracingHook{
		tracer:     tp.Tracer(tracerName),
		propagator: otel.GetTextMapPropagator(),
	}
}

func (h *tracingHook) BeforeRequest(ctx context.Context, req *http.Request) error {
	ctx, span := h.tracer.Start(ctx, "loopmetrics "+req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
			attribute.String("server.address", req.URL.Host),
			attribute.String("loopmetrics.request_id", req.Header.Get("X-Request-ID")),
		),
	)
	h.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	h.spans.Store(req, span)
	return nil
}

func (h *tracingHook) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	v, ok := h.spans.LoadAndDelete(req)
	if !ok {
		return
	}
	span := v.(trace.Span)
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= 400 {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		}
	}
}
