package loopmetrics

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/quartz"
	"go.opentelemetry.io/otel/trace"

	"github.com/loopmetrics/loopmetrics-go/pkg/config"
	"github.com/loopmetrics/loopmetrics-go/pkg/geo"
	"github.com/loopmetrics/loopmetrics-go/pkg/identity"
	"github.com/loopmetrics/loopmetrics-go/pkg/session"
)

// Settings configures a Client. Build one with options passed to New.
type Settings struct {
	// BaseURL is the Loopmetrics API base URL.
	BaseURL string

	// HTTPClient sends backend requests. When nil one is built from Timeout
	// and the connection pool settings.
	HTTPClient *http.Client

	// Timeout bounds each backend request. Zero means no timeout.
	Timeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Headers are added to every backend request.
	Headers map[string]string

	// Storage persists the anonymous distinct user ID. Defaults to a file
	// under IdentityDir.
	Storage identity.Storage

	// IdentityDir is where the default file storage keeps the identity.
	IdentityDir string

	// GeolocationURL overrides the IP geolocation endpoint.
	GeolocationURL string

	// DisableGeolocation skips the geolocation lookup entirely.
	DisableGeolocation bool

	// Environment reports browser and OS details for the session.
	// Defaults to the host the process runs on.
	Environment session.Environment

	// Clock drives the geolocation retry delay and idle detection.
	Clock quartz.Clock

	// Logger receives SDK log output. Defaults to warnings on stderr.
	Logger StructuredLogger

	// LogOutput is where the default logger writes. Defaults to stderr.
	LogOutput io.Writer

	// Metrics receives SDK telemetry.
	Metrics Metrics

	// ErrorHandler receives every error from detached requests.
	ErrorHandler func(error)

	// OnAsyncError receives detached request failures with their operation.
	OnAsyncError func(*AsyncError)

	// HTTPHooks run around every backend request.
	HTTPHooks []HTTPHook

	// TracerProvider, when set, records a span per backend request.
	TracerProvider trace.TracerProvider

	// MaxInFlight caps concurrently running detached requests.
	MaxInFlight int64

	// ShutdownTimeout bounds Shutdown when its context has no deadline.
	ShutdownTimeout time.Duration

	// IdleWarningDuration warns when a client sits idle this long without
	// Shutdown. Zero disables the warning.
	IdleWarningDuration time.Duration

	// Debug enables debug logging.
	Debug bool

	// ownsHTTPClient is set when ApplyDefaults built HTTPClient, so
	// Shutdown may close its idle connections.
	ownsHTTPClient bool
}

// Option is a function that modifies Settings.
type Option func(*Settings)

// WithBaseURL sets a custom base URL for the Loopmetrics API.
func WithBaseURL(baseURL string) Option {
	return func(s *Settings) {
		s.BaseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Settings) {
		s.HTTPClient = client
	}
}

// WithTimeout sets the backend request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Settings) {
		s.Timeout = timeout
	}
}

// WithHeaders adds headers to every backend request.
func WithHeaders(headers map[string]string) Option {
	return func(s *Settings) {
		if s.Headers == nil {
			s.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			s.Headers[k] = v
		}
	}
}

// WithStorage sets where the anonymous distinct user ID is persisted.
func WithStorage(storage identity.Storage) Option {
	return func(s *Settings) {
		s.Storage = storage
	}
}

// WithIdentityDir sets the directory used by the default identity storage.
func WithIdentityDir(dir string) Option {
	return func(s *Settings) {
		s.IdentityDir = dir
	}
}

// WithGeolocationURL overrides the IP geolocation endpoint.
func WithGeolocationURL(u string) Option {
	return func(s *Settings) {
		s.GeolocationURL = u
	}
}

// WithoutGeolocation disables the geolocation lookup.
func WithoutGeolocation() Option {
	return func(s *Settings) {
		s.DisableGeolocation = true
	}
}

// WithEnvironment sets the source of browser and OS details.
func WithEnvironment(env session.Environment) Option {
	return func(s *Settings) {
		s.Environment = env
	}
}

// WithUserAgent reports the browser and OS parsed from a User-Agent header,
// for servers tracking on behalf of a browser.
func WithUserAgent(userAgent string) Option {
	return func(s *Settings) {
		s.Environment = session.NewUserAgentEnvironment(userAgent)
	}
}

// WithClock sets the clock used for timers.
func WithClock(clock quartz.Clock) Option {
	return func(s *Settings) {
		s.Clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger StructuredLogger) Option {
	return func(s *Settings) {
		s.Logger = logger
	}
}

// WithLogOutput sets where the default logger writes.
func WithLogOutput(w io.Writer) Option {
	return func(s *Settings) {
		s.LogOutput = w
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(s *Settings) {
		s.Metrics = metrics
	}
}

// WithErrorHandler sets a handler for errors from detached requests.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Settings) {
		s.ErrorHandler = handler
	}
}

// WithOnAsyncError sets a handler receiving typed detached request failures.
//
//	client, _ := loopmetrics.New(
//	    loopmetrics.WithOnAsyncError(func(err *loopmetrics.AsyncError) {
//	        log.Printf("%s failed: %v", err.Operation, err.Err)
//	    }),
//	)
func WithOnAsyncError(handler func(*AsyncError)) Option {
	return func(s *Settings) {
		s.OnAsyncError = handler
	}
}

// WithHTTPHooks adds hooks run around every backend request.
func WithHTTPHooks(hooks ...HTTPHook) Option {
	return func(s *Settings) {
		s.HTTPHooks = append(s.HTTPHooks, hooks...)
	}
}

// WithTracerProvider records an OpenTelemetry span per backend request.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Settings) {
		s.TracerProvider = tp
	}
}

// WithMaxInFlight caps concurrently running detached requests.
func WithMaxInFlight(n int64) Option {
	return func(s *Settings) {
		s.MaxInFlight = n
	}
}

// WithShutdownTimeout sets the default Shutdown bound.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Settings) {
		s.ShutdownTimeout = d
	}
}

// WithIdleWarning warns when the client sits idle without Shutdown.
func WithIdleWarning(d time.Duration) Option {
	return func(s *Settings) {
		s.IdleWarningDuration = d
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// ApplyDefaults fills in unset values.
func (s *Settings) ApplyDefaults() {
	if s.BaseURL == "" {
		s.BaseURL = config.DefaultBaseURL
	}
	if s.MaxIdleConns == 0 {
		s.MaxIdleConns = config.DefaultMaxIdleConns
	}
	if s.MaxIdleConnsPerHost == 0 {
		s.MaxIdleConnsPerHost = config.DefaultMaxIdleConnsPerHost
	}
	if s.IdleConnTimeout == 0 {
		s.IdleConnTimeout = config.DefaultIdleConnTimeout
	}
	if s.HTTPClient == nil {
		s.ownsHTTPClient = true
		s.HTTPClient = &http.Client{
			Timeout: s.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        s.MaxIdleConns,
				MaxIdleConnsPerHost: s.MaxIdleConnsPerHost,
				IdleConnTimeout:     s.IdleConnTimeout,
			},
		}
	}
	if s.GeolocationURL == "" {
		s.GeolocationURL = config.DefaultGeolocationURL
	}
	if s.Environment == nil {
		s.Environment = session.NewHostEnvironment()
	}
	if s.Clock == nil {
		s.Clock = quartz.NewReal()
	}
	if s.Logger == nil {
		s.Logger = newDefaultLogger(s.LogOutput, s.Debug)
	}
	if s.MaxInFlight == 0 {
		s.MaxInFlight = config.DefaultMaxInFlight
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = config.DefaultShutdownTimeout
	}
}

// Validate checks the settings after defaults are applied.
func (s *Settings) Validate() error {
	if s.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("loopmetrics: invalid base URL %q", s.BaseURL)
	}
	if s.MaxInFlight < 0 || s.MaxInFlight > config.MaxMaxInFlight {
		return fmt.Errorf("loopmetrics: max in-flight must be between 1 and %d, got %d", config.MaxMaxInFlight, s.MaxInFlight)
	}
	if s.ShutdownTimeout < config.MinShutdownTimeout {
		return fmt.Errorf("loopmetrics: shutdown timeout must be at least %v, got %v", config.MinShutdownTimeout, s.ShutdownTimeout)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("loopmetrics: timeout cannot be negative")
	}
	return nil
}

// identityStorage returns the configured storage, or a file storage under
// IdentityDir (or the default identity directory).
func (s *Settings) identityStorage() (identity.Storage, error) {
	if s.Storage != nil {
		return s.Storage, nil
	}
	dir := s.IdentityDir
	if dir == "" {
		var err error
		dir, err = config.DefaultIdentityDir()
		if err != nil {
			return nil, err
		}
	}
	return identity.NewFileStorage(dir), nil
}

// geoResolver builds the geolocation resolver for these settings.
func (s *Settings) geoResolver() *geo.Resolver {
	opts := []geo.Option{
		geo.WithURL(s.GeolocationURL),
		geo.WithHTTPClient(s.HTTPClient),
		geo.WithHooks(s.geolocationHooks()...),
		geo.WithUserAgent(userAgent),
		geo.WithClock(s.Clock),
		geo.WithLogger(s.Logger),
	}
	if s.DisableGeolocation {
		opts = append(opts, geo.Disabled())
	}
	return geo.NewResolver(opts...)
}
