// Package loopmetricstest provides helpers for testing code that uses the
// Loopmetrics SDK.
//
// MockServer stands in for the Loopmetrics backend and the geolocation
// service, records every request and answers with canned responses:
//
//	func TestSignup(t *testing.T) {
//	    client, server := loopmetricstest.NewTestClient(t)
//
//	    err := client.Init(ctx, loopmetricstest.TestConfig("user-1"))
//	    require.NoError(t, err)
//
//	    client.Track("signup", nil, nil)
//	    require.NoError(t, client.Wait(ctx))
//
//	    require.Len(t, server.Events(), 1)
//	}
//
// MockMetrics and MockLogger capture telemetry and log output.
package loopmetricstest
