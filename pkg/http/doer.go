// Package http provides the HTTP transport used to talk to the Loopmetrics
// backend: a JSON client authenticated with a static API key, request hooks,
// and an OpenTelemetry tracing hook.
package http

import (
	"context"
	"net/url"
)

// Doer is an interface for making HTTP requests.
// It decouples the endpoint clients from the transport and lets tests
// substitute a fake.
type Doer interface {
	// Get performs an HTTP GET request.
	Get(ctx context.Context, path string, query url.Values, result any) error

	// Post performs an HTTP POST request with a JSON body.
	Post(ctx context.Context, path string, body, result any) error
}
