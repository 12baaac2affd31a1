// Package loopmetrics provides a Go SDK for the Loopmetrics product
// analytics platform.
//
// Loopmetrics records which tenants (customer organisations) and users use
// your product, and the events they generate. The SDK registers the tenant
// and user once at startup, then sends each tracked event in the
// background together with a session descriptor (operating system,
// browser and coarse location).
//
// # Quick Start
//
//	client, err := loopmetrics.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
//	err = client.Init(ctx, loopmetrics.Config{
//	    APIKey: os.Getenv("LOOPMETRICS_API_KEY"),
//	    Tenant: &loopmetrics.TenantConfig{DistinctID: "acme", CompanyName: "Acme Inc."},
//	    User:   &loopmetrics.UserConfig{DistinctID: "user-123", Email: "jane@acme.test"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.Track("signup", loopmetrics.Properties{"plan": "pro"}, nil)
//
// # Initialization
//
// [Client.Init] upserts the tenant (when given) and then the user (when
// given). Events are only sent once a user has been registered; until then
// [Client.Track] logs a warning and drops the event. Use
// [Client.TrackOnInit] for events that may happen before Init finishes:
// they are held in memory and sent in order as soon as Init succeeds.
//
// When the user has no DistinctID, an anonymous ID is generated once and
// persisted (by default in a file under the user's config directory), so
// the same process on the same machine keeps reporting as the same user.
// Use [WithStorage] to keep it elsewhere.
//
// # Delivery Semantics
//
// Track, UpdateTenant and UpdateUser return immediately. Each call becomes
// one background request:
//
//   - Requests are started in call order; they may finish in any order
//   - Failed requests are not retried
//   - Failures are logged and passed to [WithErrorHandler] and
//     [WithOnAsyncError]; they are never returned to the caller
//   - The Track callback runs only after the event was accepted
//
// # Graceful Shutdown
//
// Call [Client.Shutdown] before the process exits so background requests
// can finish:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	if err := client.Shutdown(ctx); err != nil {
//	    log.Printf("shutdown warning: %v", err)
//	}
//
// Requests still running when ctx expires are cancelled. Without a deadline
// Shutdown waits at most [WithShutdownTimeout].
//
// # Subpackages
//
//   - [github.com/loopmetrics/loopmetrics-go/loopmetricstest]: a mock
//     backend for tests.
//   - [github.com/loopmetrics/loopmetrics-go/pkg/metrics]: a Prometheus
//     implementation of [Metrics].
//   - [github.com/loopmetrics/loopmetrics-go/pkg/identity]: file, badger and
//     in-memory identity storage.
package loopmetrics

// Version is the current SDK version.
// This is used in User-Agent headers and for debugging.
const Version = "0.3.0"
