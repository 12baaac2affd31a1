package loopmetricstest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/loopmetrics/loopmetrics-go/pkg/api/track"
	"github.com/loopmetrics/loopmetrics-go/pkg/config"
)

// Default identifiers returned by the mock backend.
const (
	InternalTenantID = "it-1"
	InternalUserID   = "iu-1"
	SessionID        = "s-1"
	SessionUpdatedAt = "2024-01-01T00:00:00.000Z"
)

// GeoPath is the path the mock geolocation endpoint is served on.
const GeoPath = "/json"

// MockServer is a test HTTP server standing in for both the Loopmetrics
// backend and the IP geolocation service. It records every request.
type MockServer struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []*RecordedRequest
	responses map[string]response
	geo       response

	// ResponseFunc allows customizing responses. If nil, per-path responses
	// and then the default success responses are used.
	ResponseFunc func(r *http.Request) (int, any)
}

type response struct {
	status int
	body   any
}

// RecordedRequest represents a recorded HTTP request.
type RecordedRequest struct {
	Method      string
	Path        string
	Query       string
	Body        []byte
	ContentType string
	APIKey      string
	RequestID   string
}

// Decode unmarshals the request body into v.
func (r *RecordedRequest) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// JSON returns the request body as a generic JSON object.
func (r *RecordedRequest) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

// NewMockServer creates a new mock server for testing.
func NewMockServer() *MockServer {
	ms := &MockServer{
		requests:  make([]*RecordedRequest, 0),
		responses: make(map[string]response),
		geo: response{status: http.StatusOK, body: map[string]string{
			"status":     "success",
			"country":    "日本",
			"regionName": "東京都",
		}},
	}

	ms.Server = httptest.NewServer(http.HandlerFunc(ms.serve))
	return ms
}

func (ms *MockServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, &RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		APIKey:      r.Header.Get(config.APIKeyHeader),
		RequestID:   r.Header.Get("X-Request-ID"),
	})
	fn := ms.ResponseFunc
	res, ok := ms.responses[r.URL.Path]
	geo := ms.geo
	ms.mu.Unlock()

	status, out := http.StatusOK, any(nil)
	switch {
	case fn != nil:
		status, out = fn(r)
	case ok:
		status, out = res.status, res.body
	case r.URL.Path == GeoPath:
		status, out = geo.status, geo.body
	default:
		status, out = defaultResponse(r.URL.Path)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(out)
}

func defaultResponse(path string) (int, any) {
	switch path {
	case config.TenantsPath:
		return http.StatusOK, track.TenantResponse{InternalTenantID: InternalTenantID}
	case config.UsersPath:
		return http.StatusOK, track.UserResponse{
			InternalUserID:   InternalUserID,
			SessionID:        SessionID,
			SessionUpdatedAt: SessionUpdatedAt,
		}
	case config.EventsPath:
		var res track.EventResponse
		res.Session.ID = SessionID
		res.Session.UpdatedAt = SessionUpdatedAt
		return http.StatusOK, res
	default:
		return http.StatusNotFound, map[string]string{"error": "not found"}
	}
}

// GeoURL returns the URL of the mock geolocation endpoint.
func (ms *MockServer) GeoURL() string {
	return ms.URL + GeoPath
}

// Requests returns all recorded requests.
func (ms *MockServer) Requests() []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]*RecordedRequest{}, ms.requests...)
}

// RequestCount returns the number of recorded requests.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Reset clears all recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = make([]*RecordedRequest, 0)
}

// LastRequest returns the most recent request, or nil if none.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return nil
	}
	return ms.requests[len(ms.requests)-1]
}

// RequestsWithPath returns all requests that matched the given path.
func (ms *MockServer) RequestsWithPath(path string) []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var matched []*RecordedRequest
	for _, req := range ms.requests {
		if req.Path == path {
			matched = append(matched, req)
		}
	}
	return matched
}

// HasRequestWithPath returns true if any request matched the given path.
func (ms *MockServer) HasRequestWithPath(path string) bool {
	return len(ms.RequestsWithPath(path)) > 0
}

// Tenants returns the recorded tenant upserts.
func (ms *MockServer) Tenants() []*RecordedRequest {
	return ms.RequestsWithPath(config.TenantsPath)
}

// Users returns the recorded user upserts.
func (ms *MockServer) Users() []*RecordedRequest {
	return ms.RequestsWithPath(config.UsersPath)
}

// Events returns the recorded tracked events.
func (ms *MockServer) Events() []*RecordedRequest {
	return ms.RequestsWithPath(config.EventsPath)
}

// SetResponseFunc sets the response function for customizing responses.
func (ms *MockServer) SetResponseFunc(fn func(r *http.Request) (int, any)) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.ResponseFunc = fn
}

// Response scenarios

// RespondWith configures the response for one path.
func (ms *MockServer) RespondWith(path string, statusCode int, body any) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = response{status: statusCode, body: body}
}

// RespondWithError configures an error response for one path.
func (ms *MockServer) RespondWithError(path string, statusCode int, message string) {
	ms.RespondWith(path, statusCode, map[string]string{
		"error":   message,
		"message": message,
	})
}

// RespondWithUnauthorized rejects every backend request with 401.
func (ms *MockServer) RespondWithUnauthorized() {
	for _, path := range []string{config.TenantsPath, config.UsersPath, config.EventsPath} {
		ms.RespondWithError(path, http.StatusUnauthorized, "invalid api key")
	}
}

// RespondWithLocation sets the location returned by the geolocation endpoint.
func (ms *MockServer) RespondWithLocation(country, region string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.geo = response{status: http.StatusOK, body: map[string]string{
		"status":     "success",
		"country":    country,
		"regionName": region,
	}}
}

// RespondWithGeoFailure makes the geolocation endpoint report a failure.
func (ms *MockServer) RespondWithGeoFailure(message string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.geo = response{status: http.StatusOK, body: map[string]string{
		"status":  "fail",
		"message": message,
	}}
}
