package loopmetricstest

import (
	"context"
	"time"

	loopmetrics "github.com/loopmetrics/loopmetrics-go"
	"github.com/loopmetrics/loopmetrics-go/pkg/identity"
	"github.com/loopmetrics/loopmetrics-go/pkg/session"
)

// TestingT is an interface that matches *testing.T and *testing.B.
type TestingT interface {
	Fatalf(format string, args ...any)
	Cleanup(func())
	Helper()
}

// TestAPIKey is the default test API key.
const TestAPIKey = "lm-test-key"

// TestEnvironment is the environment reported by test clients.
var TestEnvironment = session.StaticEnvironment{
	BrowserName:    "Chrome",
	BrowserVersion: "120",
	OSName:         "Mac OS",
	OSVersion:      "14.2",
}

// NewTestClient creates a client talking to a fresh mock server. The
// client keeps its identity in memory, reports TestEnvironment and looks
// up its location on the mock server. The client and server are cleaned
// up when the test ends.
func NewTestClient(t TestingT, opts ...loopmetrics.Option) (*loopmetrics.Client, *MockServer) {
	t.Helper()

	server := NewMockServer()

	baseOpts := []loopmetrics.Option{
		loopmetrics.WithBaseURL(server.URL),
		loopmetrics.WithGeolocationURL(server.GeoURL()),
		loopmetrics.WithStorage(identity.NewMemoryStorage()),
		loopmetrics.WithEnvironment(TestEnvironment),
		loopmetrics.WithLogger(loopmetrics.NopLogger{}),
		loopmetrics.WithShutdownTimeout(10 * time.Second),
	}

	client, err := loopmetrics.New(append(baseOpts, opts...)...)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to create test client: %v", err)
	}

	t.Cleanup(func() {
		client.Shutdown(context.Background())
		server.Close()
	})

	return client, server
}

// TestConfig returns an Init config with the test API key and a user.
func TestConfig(distinctID string) loopmetrics.Config {
	return loopmetrics.Config{
		APIKey: TestAPIKey,
		User:   &loopmetrics.UserConfig{DistinctID: distinctID},
	}
}
