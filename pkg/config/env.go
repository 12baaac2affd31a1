package config

import "os"

// Environment variable names for configuration.
const (
	EnvAPIKey             = "LOOPMETRICS_API_KEY"
	EnvBaseURL            = "LOOPMETRICS_BASE_URL"
	EnvDebug              = "LOOPMETRICS_DEBUG"
	EnvIdentityDir        = "LOOPMETRICS_IDENTITY_DIR"
	EnvGeolocationURL     = "LOOPMETRICS_GEOLOCATION_URL"
	EnvDisableGeolocation = "LOOPMETRICS_DISABLE_GEOLOCATION"
)

// EnvPrefix is the prefix shared by all environment variables above.
const EnvPrefix = "LOOPMETRICS"

// GetEnvString returns the value of an environment variable or a default.
func GetEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns true if the env var is "true" or "1".
func GetEnvBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}
