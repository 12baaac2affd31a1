// Package geo resolves the coarse location (country and region) of the
// machine running the SDK through an IP geolocation service.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/tidwall/gjson"

	"github.com/loopmetrics/loopmetrics-go/pkg/config"
	pkghttp "github.com/loopmetrics/loopmetrics-go/pkg/http"
)

// Location is a resolved country and region. Either may be empty.
type Location struct {
	Country string
	Region  string
}

// Logger receives debug output about failed lookups.
type Logger interface {
	Debug(msg string, args ...any)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithURL overrides the geolocation endpoint.
func WithURL(url string) Option {
	return func(r *Resolver) {
		r.url = url
	}
}

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

// WithHooks adds hooks run around every lookup request.
func WithHooks(hooks ...pkghttp.HTTPHook) Option {
	return func(r *Resolver) {
		r.hooks = append(r.hooks, hooks...)
	}
}

// WithUserAgent sets the User-Agent sent with lookups.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		r.userAgent = ua
	}
}

// WithTimeout bounds a single lookup attempt.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithClock sets the clock driving the retry delay.
func WithClock(c quartz.Clock) Option {
	return func(r *Resolver) {
		r.clock = c
	}
}

// WithRetryDelay sets the wait between the two attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Resolver) {
		r.retryDelay = d
	}
}

// WithLogger sets the logger for failed lookups.
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// Disabled makes Resolve return nil without performing any I/O.
func Disabled() Option {
	return func(r *Resolver) {
		r.disabled = true
	}
}

// Resolver looks up the current location. A failed lookup is retried once
// after a fixed delay; a second failure yields no location.
type Resolver struct {
	url        string
	httpClient *http.Client
	hooks      []pkghttp.HTTPHook
	userAgent  string
	timeout    time.Duration
	clock      quartz.Clock
	retryDelay time.Duration
	logger     Logger
	disabled   bool

	client *pkghttp.Client
}

// NewResolver creates a Resolver against the default endpoint.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		url:        config.DefaultGeolocationURL,
		timeout:    config.DefaultGeolocationTimeout,
		clock:      quartz.NewReal(),
		retryDelay: config.GeolocationRetryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	// The lookup URL carries its own query, so requests use an empty path.
	// No API key is sent to the geolocation service.
	r.client = pkghttp.NewClient(pkghttp.Config{
		BaseURL:    r.url,
		UserAgent:  r.userAgent,
		HTTPClient: r.httpClient,
		Hooks:      r.hooks,
	})
	return r
}

// Resolve returns the current location, or nil when both attempts fail, the
// resolver is disabled, or ctx is done. It never returns an error.
func (r *Resolver) Resolve(ctx context.Context) *Location {
	if r == nil || r.disabled {
		return nil
	}

	loc, err := r.lookup(ctx)
	if err == nil {
		return loc
	}
	r.debug("loopmetrics: geolocation lookup failed, retrying", "delay", r.retryDelay, "error", err)

	timer := r.clock.NewTimer(r.retryDelay, "geo", "retry")
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil
	case <-timer.C:
	}

	loc, err = r.lookup(ctx)
	if err != nil {
		r.debug("loopmetrics: geolocation retry failed", "error", err)
		return nil
	}
	return loc
}

// lookup performs a single request. Any outcome other than a successful
// status field is reported as an error.
func (r *Resolver) lookup(ctx context.Context) (*Location, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var body json.RawMessage
	if err := r.client.Get(ctx, "", nil, &body); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid response body")
	}

	res := gjson.GetManyBytes(body, "status", "message", "country", "regionName")
	if res[0].String() != "success" {
		return nil, fmt.Errorf("status %q: %s", res[0].String(), res[1].String())
	}
	return &Location{
		Country: res[2].String(),
		Region:  res[3].String(),
	}, nil
}

func (r *Resolver) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
