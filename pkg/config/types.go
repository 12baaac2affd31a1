// Package config holds the constants, environment variable names and file
// loading shared by the Loopmetrics SDK and its CLI.
package config

import (
	"time"
)

// Backend endpoints.
const (
	// DefaultBaseURL is the Loopmetrics API base URL.
	DefaultBaseURL = "https://api.loopmetrics.jp"

	// APIKeyHeader carries the static API key on every backend request.
	APIKeyHeader = "x-api-key"

	// TenantsPath upserts a tracked tenant.
	TenantsPath = "/v1/track/tenants"

	// UsersPath upserts a tracked user.
	UsersPath = "/v1/track/users"

	// EventsPath records a tracked event.
	EventsPath = "/v1/track/events"
)

// Identity storage.
const (
	// IdentityKey is the storage key holding the persisted distinct user ID.
	IdentityKey = "lm_s"

	// IdentityDirName is the directory created under the user config dir
	// when no identity directory is configured.
	IdentityDirName = "loopmetrics"
)

// Geolocation lookup.
const (
	// DefaultGeolocationURL is the IP geolocation lookup. The service is keyed
	// by the caller's apparent address, so the query is fixed.
	DefaultGeolocationURL = "http://ip-api.com/json?fields=status,message,country,regionName&lang=ja"

	// GeolocationRetryDelay is the wait between the first failed lookup and
	// the single retry.
	GeolocationRetryDelay = 3000 * time.Millisecond
)

// Default configuration values.
const (
	// DefaultTimeout is the backend request timeout. Zero leaves the
	// transport defaults in place.
	DefaultTimeout = time.Duration(0)

	// DefaultGeolocationTimeout bounds a single geolocation attempt.
	DefaultGeolocationTimeout = 10 * time.Second

	// DefaultMaxIdleConns is the default maximum number of idle connections.
	DefaultMaxIdleConns = 100

	// DefaultMaxIdleConnsPerHost is the default maximum idle connections per host.
	DefaultMaxIdleConnsPerHost = 10

	// DefaultIdleConnTimeout is the default timeout for idle connections.
	DefaultIdleConnTimeout = 90 * time.Second

	// DefaultShutdownTimeout is the default graceful shutdown timeout.
	DefaultShutdownTimeout = 35 * time.Second

	// DefaultMaxInFlight caps concurrently running detached requests.
	DefaultMaxInFlight = 64

	// MaxMaxInFlight is the maximum allowed in-flight cap.
	MaxMaxInFlight = 10000

	// MinShutdownTimeout is the minimum allowed shutdown timeout.
	MinShutdownTimeout = 1 * time.Second
)
