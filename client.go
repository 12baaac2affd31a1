package loopmetrics

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loopmetrics/loopmetrics-go/pkg/api/track"
	"github.com/loopmetrics/loopmetrics-go/pkg/config"
	"github.com/loopmetrics/loopmetrics-go/pkg/dispatch"
	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
	"github.com/loopmetrics/loopmetrics-go/pkg/geo"
	pkghttp "github.com/loopmetrics/loopmetrics-go/pkg/http"
	"github.com/loopmetrics/loopmetrics-go/pkg/identity"
	"github.com/loopmetrics/loopmetrics-go/pkg/lifecycle"
	"github.com/loopmetrics/loopmetrics-go/pkg/session"
)

// userAgent is sent with every request the SDK makes.
const userAgent = "loopmetrics-go/" + Version

// Client reports tenants, users and events to Loopmetrics.
//
// Create one with New, call Init once, then Track from anywhere. All
// delivery happens on background goroutines; call Shutdown before exiting
// so in-flight requests can finish.
type Client struct {
	settings   *Settings
	lifecycle  *lifecycle.Manager
	dispatcher *dispatch.Dispatcher
	identity   *identity.Store
	geo        *geo.Resolver

	mu               sync.Mutex
	config           *Config
	api              *track.Client
	internalTenantID string
	internalUserID   string
	session          session.Session
	queue            []queuedEvent

	eventsSent    atomic.Int64
	eventsDropped atomic.Int64
	eventsFailed  atomic.Int64
	updatesSent   atomic.Int64
}

// New creates a Client. It performs no I/O; call Init to register the
// tenant and user.
//
//	client, err := loopmetrics.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
//	err = client.Init(ctx, loopmetrics.Config{
//	    APIKey: os.Getenv("LOOPMETRICS_API_KEY"),
//	    User:   &loopmetrics.UserConfig{DistinctID: "user-123"},
//	})
func New(opts ...Option) (*Client, error) {
	s := &Settings{}
	for _, opt := range opts {
		opt(s)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	storage, err := s.identityStorage()
	if err != nil {
		return nil, err
	}

	c := &Client{
		settings: s,
		identity: identity.NewStore(storage),
		geo:      s.geoResolver(),
	}
	c.lifecycle = c.newLifecycle()
	c.dispatcher = dispatch.New(dispatch.Config{
		MaxInFlight: s.MaxInFlight,
		OnError: func(name string, err error) {
			c.handleError(err)
		},
		OnInFlight: func(n int64) {
			c.gauge(MetricDispatchInFlight, float64(n))
		},
	})

	s.Logger.Debug("loopmetrics: client created", "base_url", s.BaseURL)
	return c, nil
}

// Init registers the configured tenant and user with the backend, then
// delivers the events queued with TrackOnInit in the order they were
// queued.
//
// When cfg.User is nil or has no DistinctID, the persisted anonymous ID is
// used (and created on first use). The user is only upserted, and events
// only delivered, when cfg.User is set.
//
// Init fails with ErrInitInProgress while another Init runs and with
// ErrAlreadyInitialized after one has succeeded. A failed Init leaves the
// client uninitialized with its queue intact, so it may be retried. A
// Shutdown during Init cancels its requests and Init returns
// ErrClientClosed.
func (c *Client) Init(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := c.lifecycle.BeginInit(); err != nil {
		return err
	}

	// Shutdown cancels the lookups and upserts of an Init still running.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.lifecycle.Context(), cancel)
	defer stop()

	start := time.Now()
	ready, err := c.init(ctx, &cfg)
	if c.settings.Metrics != nil {
		c.settings.Metrics.RecordDuration(MetricInitDuration, time.Since(start))
	}
	if err != nil {
		if !c.lifecycle.FailInit() {
			return ErrClientClosed
		}
		c.settings.Logger.Error("loopmetrics: init failed", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lifecycle.CompleteInit(ready) {
		return ErrClientClosed
	}
	c.flushQueueLocked()

	c.settings.Logger.Info("loopmetrics: initialized",
		"ready", ready,
		"api_key", MaskAPIKey(cfg.APIKey),
		"duration", time.Since(start))
	return nil
}

func (c *Client) init(ctx context.Context, cfg *Config) (bool, error) {
	held := cfg.clone()
	api := track.New(pkghttp.NewClient(pkghttp.Config{
		BaseURL:      c.settings.BaseURL,
		APIKey:       cfg.APIKey,
		APIKeyHeader: config.APIKeyHeader,
		UserAgent:    userAgent,
		HTTPClient:   c.settings.HTTPClient,
		Hooks:        c.settings.requestHooks(),
	}))

	if held.User == nil || held.User.DistinctID == "" {
		id, err := c.identity.Resolve(ctx)
		if err != nil {
			return false, fmt.Errorf("loopmetrics: resolve distinct user id: %w", err)
		}
		if held.User == nil {
			held.User = &UserConfig{}
		}
		held.User.DistinctID = id
	}

	c.mu.Lock()
	c.config = held
	c.api = api
	c.internalTenantID = ""
	c.internalUserID = ""
	c.session = session.Session{}
	c.mu.Unlock()

	var internalTenantID string
	if held.Tenant != nil {
		res, err := api.UpsertTenant(ctx, tenantBody(*held.Tenant))
		if err != nil {
			return false, fmt.Errorf("loopmetrics: init: %w", err)
		}
		internalTenantID = res.InternalTenantID

		c.mu.Lock()
		c.internalTenantID = internalTenantID
		c.mu.Unlock()
	}

	if cfg.User == nil {
		return false, nil
	}

	sess := session.Build(c.settings.Environment, c.geo.Resolve(ctx))
	body := userBody(*held.User, held.Tenant, internalTenantID)
	body.Session = &sess

	res, err := api.UpsertUser(ctx, body)
	if err != nil {
		return false, fmt.Errorf("loopmetrics: init: %w", err)
	}

	c.mu.Lock()
	c.internalUserID = res.InternalUserID
	c.session = sess.WithServerState(res.SessionID, res.SessionUpdatedAt)
	c.mu.Unlock()

	return res.InternalUserID != "", nil
}

// Track records an event for the current user. It returns immediately;
// delivery happens in the background. On success the session is updated
// from the response and callback, when non-nil, is called on a background
// goroutine. Failures are logged and reported to the error handler, and
// the callback is not called.
//
// Events tracked before Init completes with a user are dropped with a
// warning; use TrackOnInit to hold them until then.
func (c *Client) Track(name string, properties Properties, callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trackLocked(name, properties, callback)
}

// trackLocked snapshots the current state and dispatches the event.
// c.mu must be held.
func (c *Client) trackLocked(name string, properties Properties, callback func()) {
	c.lifecycle.RecordActivity()

	if c.internalUserID == "" || c.lifecycle.IsClosing() {
		c.dropEvent(name, properties)
		return
	}
	if err := properties.Validate(); err != nil {
		c.eventsDropped.Add(1)
		c.incr(MetricEventsDropped)
		c.settings.Logger.Error("loopmetrics: event dropped", "event", name, "error", err)
		return
	}

	body := track.EventBody{
		InternalTenantID: c.internalTenantID,
		InternalUserID:   c.internalUserID,
		UserID:           c.config.User.DistinctID,
		Name:             name,
		Session:          c.session,
		Properties:       track.WithProperties(maps.Clone(properties)),
	}
	if c.config.Tenant != nil {
		body.TenantID = c.config.Tenant.DistinctID
	}
	api := c.api

	err := c.dispatcher.Submit("track:"+name, func(ctx context.Context) error {
		res, err := api.TrackEvent(ctx, body)
		if err != nil {
			c.eventsFailed.Add(1)
			c.incr(MetricEventsFailed)
			return pkgerrors.NewAsyncError(pkgerrors.AsyncOpTrack, err).WithContext("event", name)
		}

		c.mu.Lock()
		c.session = c.session.WithServerState(res.Session.ID, res.Session.UpdatedAt)
		c.mu.Unlock()

		c.eventsSent.Add(1)
		c.incr(MetricEventsSent)
		if callback != nil {
			callback()
		}
		return nil
	})
	if err != nil {
		c.dropEvent(name, properties)
	}
}

// dropEvent warns that an event was not sent.
func (c *Client) dropEvent(name string, properties Properties) {
	c.eventsDropped.Add(1)
	c.incr(MetricEventsDropped)

	args := []any{"event", name}
	if properties != nil {
		args = append(args, "properties", properties)
	}
	msg := "loopmetrics: sdk has not yet finished initializing, event was not sent"
	if c.lifecycle.IsClosing() {
		msg = "loopmetrics: client is shut down, event was not sent"
	}
	c.settings.Logger.Warn(msg, args...)
}

// UpdateTenant merges patch into the tenant given to Init and upserts the
// result in the background. Non-empty patch fields win; a non-nil
// Properties map replaces the held one. Failures go to the error handler.
func (c *Client) UpdateTenant(patch TenantConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lifecycle.IsInitDone() {
		c.settings.Logger.Warn("loopmetrics: sdk has not yet finished initializing, tenant was not updated",
			"tenant", patch.DistinctID)
		return
	}

	merged := c.config.Tenant.merge(patch)
	if err := merged.Validate(); err != nil {
		c.settings.Logger.Error("loopmetrics: tenant was not updated", "error", err)
		return
	}
	c.config.Tenant = &merged

	api := c.api
	body := tenantBody(merged)
	c.submitUpdate(pkgerrors.AsyncOpUpdateTenant, func(ctx context.Context) error {
		_, err := api.UpsertTenant(ctx, body)
		return err
	})
}

// UpdateUser merges patch into the current user and upserts the result in
// the background. Non-empty patch fields win; a non-nil Properties map
// replaces the held one. Failures go to the error handler.
func (c *Client) UpdateUser(patch UserConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lifecycle.IsInitDone() {
		c.settings.Logger.Warn("loopmetrics: sdk has not yet finished initializing, user was not updated",
			"user", patch.DistinctID)
		return
	}

	merged := c.config.User.merge(patch)
	if err := merged.Validate(); err != nil {
		c.settings.Logger.Error("loopmetrics: user was not updated", "error", err)
		return
	}
	c.config.User = &merged

	api := c.api
	body := userBody(merged, c.config.Tenant, c.internalTenantID)
	c.submitUpdate(pkgerrors.AsyncOpUpdateUser, func(ctx context.Context) error {
		_, err := api.UpsertUser(ctx, body)
		return err
	})
}

func (c *Client) submitUpdate(op pkgerrors.AsyncErrorOperation, fn func(ctx context.Context) error) {
	c.lifecycle.RecordActivity()
	err := c.dispatcher.Submit(string(op), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return pkgerrors.NewAsyncError(op, err)
		}
		c.updatesSent.Add(1)
		c.incr(MetricUpdatesSent)
		return nil
	})
	if err != nil {
		c.settings.Logger.Warn("loopmetrics: client is shut down, update was not sent", "operation", string(op))
	}
}

func tenantBody(t TenantConfig) track.TenantBody {
	return track.TenantBody{
		ID:          t.DistinctID,
		CompanyName: t.CompanyName,
		Properties:  track.WithProperties(t.Properties),
	}
}

func userBody(u UserConfig, tenant *TenantConfig, internalTenantID string) track.UserBody {
	body := track.UserBody{
		InternalTenantID: internalTenantID,
		ID:               u.DistinctID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		Properties:       track.WithProperties(u.Properties),
	}
	if tenant != nil {
		body.TenantID = tenant.DistinctID
	}
	return body
}

// handleError reports a detached failure to the error handlers, the logger
// and metrics.
func (c *Client) handleError(err error) {
	s := c.settings

	if s.ErrorHandler != nil {
		s.ErrorHandler(err)
	}
	if s.OnAsyncError != nil {
		if asyncErr, ok := pkgerrors.AsAsyncError(err); ok {
			s.OnAsyncError(asyncErr)
		}
	}

	s.Logger.Error("loopmetrics: async error", "error", err, "code", string(pkgerrors.ErrorCodeOf(err)))
	c.incr(MetricErrors)
}

// Session returns the current session descriptor.
func (c *Client) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// InternalUserID returns the server-assigned user ID, or "" before a
// successful Init with a user.
func (c *Client) InternalUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalUserID
}

// InternalTenantID returns the server-assigned tenant ID, if any.
func (c *Client) InternalTenantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalTenantID
}

// DistinctUserID returns the distinct ID of the current user, which is the
// persisted anonymous ID when Init was given none.
func (c *Client) DistinctUserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == nil || c.config.User == nil {
		return ""
	}
	return c.config.User.DistinctID
}

// Wait blocks until all background requests submitted so far have
// finished, or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	return c.dispatcher.Wait(ctx)
}

// Shutdown stops accepting events and waits for background requests to
// finish. If ctx has no deadline, ShutdownTimeout applies. Requests still
// running at the deadline are cancelled and ctx's error is returned.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.lifecycle.BeginShutdown(); err != nil {
		return ErrClientClosed
	}

	c.mu.Lock()
	queued := len(c.queue)
	c.queue = nil
	c.mu.Unlock()
	if queued > 0 {
		c.eventsDropped.Add(int64(queued))
		c.settings.Logger.Warn("loopmetrics: shutdown before init completed, queued events were not sent", "count", queued)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.ShutdownTimeout)
		defer cancel()
	}

	err := c.dispatcher.Close(ctx)
	if closeErr := c.identity.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("loopmetrics: close identity storage: %w", closeErr)
	}
	c.lifecycle.CompleteShutdown()
	if c.settings.ownsHTTPClient {
		c.settings.HTTPClient.CloseIdleConnections()
	}

	if err != nil {
		c.settings.Logger.Warn("loopmetrics: shutdown incomplete", "error", err)
		return err
	}
	c.settings.Logger.Debug("loopmetrics: shutdown complete")
	return nil
}
