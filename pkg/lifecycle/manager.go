// Package lifecycle tracks the state of a tracking client from construction
// through initialization to shutdown, and warns about clients left running
// without Shutdown being called.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"

	pkgerrors "github.com/loopmetrics/loopmetrics-go/pkg/errors"
)

// Logger is a minimal structured logging interface.
type Logger interface {
	Warn(msg string, args ...any)
}

// Metrics is a minimal metrics interface.
type Metrics interface {
	IncrementCounter(name string, value int64)
	SetGauge(name string, value float64)
	RecordDuration(name string, d time.Duration)
}

// ErrAlreadyClosed is returned when attempting to shutdown an already closed manager.
var ErrAlreadyClosed = errors.New("lifecycle: already closed or shutting down")

// ClientState represents the current state of the client lifecycle.
type ClientState int32

const (
	// StateUninitialized is the state before Init, and after a failed Init.
	StateUninitialized ClientState = iota

	// StateInitializing means Init is running.
	StateInitializing

	// StateInitialized means Init finished without a user; events are dropped.
	StateInitialized

	// StateReady means Init finished with a user and events are delivered.
	StateReady

	// StateShuttingDown means Shutdown is draining detached work.
	StateShuttingDown

	// StateClosed means the client has been shut down.
	StateClosed
)

// String returns a string representation of the client state.
func (s ClientState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config configures the lifecycle manager.
type Config struct {
	// IdleWarningDuration triggers a warning if no activity occurs within this duration.
	// Set to 0 to disable idle warnings.
	IdleWarningDuration time.Duration

	// Clock drives the idle detector. Defaults to the real clock.
	Clock quartz.Clock

	// Logger is used for warning messages.
	Logger Logger

	// Metrics is used for lifecycle metrics.
	Metrics Metrics

	// OnStateChange is called when the client state changes.
	OnStateChange func(old, new ClientState)
}

// Stats contains lifecycle statistics.
type Stats struct {
	State        ClientState
	CreatedAt    time.Time
	LastActivity time.Time
	Uptime       time.Duration
	IdleDuration time.Duration
}

// Manager holds the client state. All transitions are atomic.
type Manager struct {
	state        atomic.Int32
	clock        quartz.Clock
	createdAt    time.Time
	lastActivity atomic.Int64 // Unix nano timestamp

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	idleWarningDuration time.Duration
	warningFired        atomic.Bool
	logger              Logger
	metrics             Metrics

	onStateChange func(old, new ClientState)
}

// NewManager creates a new lifecycle manager in StateUninitialized.
func NewManager(cfg *Config) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	ctx, cancel := context.WithCancel(context.Background())
	now := clock.Now()

	m := &Manager{
		clock:               clock,
		createdAt:           now,
		ctx:                 ctx,
		cancel:              cancel,
		idleWarningDuration: cfg.IdleWarningDuration,
		logger:              cfg.Logger,
		metrics:             cfg.Metrics,
		onStateChange:       cfg.OnStateChange,
	}

	m.state.Store(int32(StateUninitialized))
	m.lastActivity.Store(now.UnixNano())

	if cfg.IdleWarningDuration > 0 && cfg.Logger != nil {
		m.wg.Add(1)
		go m.idleDetector()
	}

	return m
}

// idleDetector warns once when the client sits idle past the configured
// duration without having been shut down.
func (m *Manager) idleDetector() {
	defer m.wg.Done()

	checkInterval := m.idleWarningDuration / 2
	if checkInterval < time.Second {
		checkInterval = time.Second
	}

	ticker := m.clock.NewTicker(checkInterval, "lifecycle", "idle")
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if m.IsClosing() {
				return
			}

			idle := m.IdleDuration()
			if idle > m.idleWarningDuration && m.warningFired.CompareAndSwap(false, true) {
				m.logger.Warn("loopmetrics: client idle without Shutdown; call client.Shutdown(ctx) when done",
					"idle", idle.Round(time.Second),
					"created_at", m.createdAt.Format(time.RFC3339))

				if m.metrics != nil {
					m.metrics.IncrementCounter("loopmetrics.client.idle_warning", 1)
				}
			}
		}
	}
}

// State returns the current client state.
func (m *Manager) State() ClientState {
	return ClientState(m.state.Load())
}

// IsReady returns true if events are being delivered.
func (m *Manager) IsReady() bool {
	return m.State() == StateReady
}

// IsInitDone returns true once Init has completed successfully.
func (m *Manager) IsInitDone() bool {
	s := m.State()
	return s == StateInitialized || s == StateReady
}

// IsClosing returns true once shutdown has begun.
func (m *Manager) IsClosing() bool {
	s := m.State()
	return s == StateShuttingDown || s == StateClosed
}

// RecordActivity updates the last activity timestamp.
func (m *Manager) RecordActivity() {
	m.lastActivity.Store(m.clock.Now().UnixNano())
}

// LastActivity returns the time of the last recorded activity.
func (m *Manager) LastActivity() time.Time {
	return time.Unix(0, m.lastActivity.Load())
}

// Uptime returns the duration since the client was created.
func (m *Manager) Uptime() time.Duration {
	return m.clock.Since(m.createdAt)
}

// IdleDuration returns the duration since the last activity.
func (m *Manager) IdleDuration() time.Duration {
	return m.clock.Since(m.LastActivity())
}

// Context returns the lifecycle context.
// This context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// transition attempts to transition to a new state.
// Returns true if the transition was successful.
func (m *Manager) transition(from, to ClientState) bool {
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if m.onStateChange != nil {
		m.onStateChange(from, to)
	}
	if m.metrics != nil {
		m.metrics.IncrementCounter("loopmetrics.client.state_changes", 1)
		m.metrics.SetGauge("loopmetrics.client.state", float64(to))
	}
	return true
}

// BeginInit moves the client into StateInitializing. It fails when Init is
// already running, has already succeeded, or the client is closing.
func (m *Manager) BeginInit() error {
	if m.transition(StateUninitialized, StateInitializing) {
		m.RecordActivity()
		return nil
	}
	switch m.State() {
	case StateInitializing:
		return pkgerrors.ErrInitInProgress
	case StateInitialized, StateReady:
		return pkgerrors.ErrAlreadyInitialized
	default:
		return pkgerrors.ErrClientClosed
	}
}

// CompleteInit ends a successful Init. ready reports whether a user was
// registered and events can be delivered.
func (m *Manager) CompleteInit(ready bool) bool {
	to := StateInitialized
	if ready {
		to = StateReady
	}
	return m.transition(StateInitializing, to)
}

// FailInit returns the client to StateUninitialized so Init may be retried.
func (m *Manager) FailInit() bool {
	return m.transition(StateInitializing, StateUninitialized)
}

// BeginShutdown initiates the shutdown process from any open state.
// Returns ErrAlreadyClosed if already shutting down or closed.
func (m *Manager) BeginShutdown() error {
	for {
		cur := m.State()
		if cur == StateShuttingDown || cur == StateClosed {
			return ErrAlreadyClosed
		}
		if m.transition(cur, StateShuttingDown) {
			break
		}
	}

	m.cancel()

	if m.metrics != nil {
		m.metrics.RecordDuration("loopmetrics.client.uptime", m.Uptime())
	}
	return nil
}

// CompleteShutdown marks the shutdown as complete.
func (m *Manager) CompleteShutdown() {
	m.transition(StateShuttingDown, StateClosed)

	// Wait for idle detector to stop
	m.wg.Wait()
}

// Stats returns current lifecycle statistics.
func (m *Manager) Stats() Stats {
	return Stats{
		State:        m.State(),
		CreatedAt:    m.createdAt,
		LastActivity: m.LastActivity(),
		Uptime:       m.Uptime(),
		IdleDuration: m.IdleDuration(),
	}
}
