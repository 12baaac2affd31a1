package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
)

func TestClient_Post(t *testing.T) {
	var gotHeader http.Header
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/track/users", r.URL.Path)
		_, _ = w.Write([]byte(`{"internalUserId":"iu1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:   srv.URL + "/",
		APIKey:    "k",
		UserAgent: "loopmetrics-go/test",
	})

	var result struct {
		InternalUserID string `json:"internalUserId"`
	}
	err := c.Post(context.Background(), "/v1/track/users", map[string]string{"id": "u1"}, &result)
	require.NoError(t, err)

	assert.Equal(t, "iu1", result.InternalUserID)
	assert.Equal(t, "k", gotHeader.Get("x-api-key"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "loopmetrics-go/test", gotHeader.Get("User-Agent"))
	_, err = uuid.Parse(gotHeader.Get("X-Request-ID"))
	assert.NoError(t, err, "X-Request-ID should be a UUID")
	assert.Equal(t, "u1", gotBody["id"])
}

func TestClient_GetWithoutAPIKey(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/json?fields=status"})
	var raw json.RawMessage
	require.NoError(t, c.Get(context.Background(), "", nil, &raw))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/json", got.URL.Path)
	assert.Equal(t, "status", got.URL.Query().Get("fields"))
	_, hasKey := got.Header["X-Api-Key"]
	assert.False(t, hasKey, "no API key header without a key")
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"success"}`, string(raw))
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		target  error
	}{
		{name: "json body", status: 401, body: `{"message":"bad key"}`, wantMsg: "bad key", target: pkgerrors.ErrUnauthorized},
		{name: "plain body", status: 404, body: "missing", wantMsg: "missing", target: pkgerrors.ErrNotFound},
		{name: "body status ignored", status: 429, body: `{"statusCode":200,"error":"slow"}`, target: pkgerrors.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
			err := c.Post(context.Background(), "/v1/track/events", struct{}{}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))

			apiErr, ok := pkgerrors.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "/v1/track/events", apiErr.Path)
			assert.NotEmpty(t, apiErr.RequestID)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestClient_NoRetry(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	err := c.Post(context.Background(), "/v1/track/events", struct{}{}, nil)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestClient_HookAbortsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	abort := errors.New("blocked")
	c := NewClient(Config{
		BaseURL: srv.URL,
		Hooks: []HTTPHook{HTTPHookFunc{
			Before: func(ctx context.Context, req *http.Request) error { return abort },
		}},
	})
	err := c.Post(context.Background(), "/", struct{}{}, nil)
	assert.ErrorIs(t, err, abort)
	assert.False(t, called)
}

func TestCombineHooks(t *testing.T) {
	assert.Nil(t, CombineHooks(nil))
	assert.Nil(t, CombineHooks([]HTTPHook{nil}))

	var order []string
	mk := func(name string) HTTPHook {
		return HTTPHookFunc{
			Before: func(ctx context.Context, req *http.Request) error {
				order = append(order, "before:"+name)
				return nil
			},
			After: func(ctx context.Context, req *http.Request, resp *http.Response, d time.Duration, err error) {
				order = append(order, "after:"+name)
			},
		}
	}
	panicky := HTTPHookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, d time.Duration, err error) {
			panic("boom")
		},
	}

	hook := CombineHooks([]HTTPHook{mk("a"), panicky, mk("b")})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, hook.BeforeRequest(context.Background(), req))
	hook.AfterResponse(context.Background(), req, nil, 0, nil)

	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, order)
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
	timings  map[string]int
}

func (m *recordingMetrics) IncrementCounter(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[name] += value
}

func (m *recordingMetrics) RecordDuration(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timings == nil {
		m.timings = make(map[string]int)
	}
	m.timings[name]++
}

func TestMetricsHook(t *testing.T) {
	assert.Nil(t, MetricsHook(nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	m := &recordingMetrics{}
	c := NewClient(Config{BaseURL: srv.URL, Hooks: []HTTPHook{MetricsHook(m)}})
	_ = c.Post(context.Background(), "/", struct{}{}, nil)

	assert.Equal(t, int64(1), m.counters["loopmetrics.http.requests"])
	assert.Equal(t, int64(1), m.counters["loopmetrics.http.errors"])
	assert.Equal(t, int64(1), m.counters["loopmetrics.http.status.400"])
	assert.Equal(t, 1, m.timings["loopmetrics.http.duration"])
}

func TestTracingHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c := NewClient(Config{BaseURL: srv.URL, Hooks: []HTTPHook{TracingHook(tp)}})
	require.NoError(t, c.Post(context.Background(), "/ok", struct{}{}, nil))
	require.Error(t, c.Post(context.Background(), "/fail", struct{}{}, nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "loopmetrics POST /ok", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "loopmetrics POST /fail", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
