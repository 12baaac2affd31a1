package loopmetrics

import (
	"fmt"

	"github.com/loopmetrics/loopmetrics-go/pkg/config"
)

// Environment variable names for configuration.
const (
	EnvAPIKey             = config.EnvAPIKey
	EnvBaseURL            = config.EnvBaseURL
	EnvDebug              = config.EnvDebug
	EnvIdentityDir        = config.EnvIdentityDir
	EnvGeolocationURL     = config.EnvGeolocationURL
	EnvDisableGeolocation = config.EnvDisableGeolocation
)

// NewFromEnv creates a new client using environment variables for settings.
// It reads LOOPMETRICS_BASE_URL, LOOPMETRICS_DEBUG, LOOPMETRICS_IDENTITY_DIR,
// LOOPMETRICS_GEOLOCATION_URL and LOOPMETRICS_DISABLE_GEOLOCATION. Explicit
// options override the environment.
//
//	client, err := loopmetrics.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
func NewFromEnv(opts ...Option) (*Client, error) {
	envOpts := make([]Option, 0, 5)

	if baseURL := config.GetEnvString(EnvBaseURL, ""); baseURL != "" {
		envOpts = append(envOpts, WithBaseURL(baseURL))
	}
	if dir := config.GetEnvString(EnvIdentityDir, ""); dir != "" {
		envOpts = append(envOpts, WithIdentityDir(dir))
	}
	if geoURL := config.GetEnvString(EnvGeolocationURL, ""); geoURL != "" {
		envOpts = append(envOpts, WithGeolocationURL(geoURL))
	}
	if config.GetEnvBool(EnvDisableGeolocation) {
		envOpts = append(envOpts, WithoutGeolocation())
	}
	if config.GetEnvBool(EnvDebug) {
		envOpts = append(envOpts, WithDebug(true))
	}

	return New(append(envOpts, opts...)...)
}

// ConfigFromEnv returns an Init config holding LOOPMETRICS_API_KEY.
// Tenant and user are left for the caller to fill in.
func ConfigFromEnv() (Config, error) {
	apiKey := config.GetEnvString(EnvAPIKey, "")
	if apiKey == "" {
		return Config{}, fmt.Errorf("loopmetrics: %s environment variable is required: %w", EnvAPIKey, ErrMissingAPIKey)
	}
	return Config{APIKey: apiKey}, nil
}
