package loopmetrics

import (
	"github.com/loopmetrics/loopmetrics-go/pkg/lifecycle"
)

// ClientState is the lifecycle state of a Client.
type ClientState = lifecycle.ClientState

// Client states.
const (
	StateUninitialized = lifecycle.StateUninitialized
	StateInitializing  = lifecycle.StateInitializing
	StateInitialized   = lifecycle.StateInitialized
	StateReady         = lifecycle.StateReady
	StateShuttingDown  = lifecycle.StateShuttingDown
	StateClosed        = lifecycle.StateClosed
)

// LifecycleStats contains lifecycle statistics.
type LifecycleStats = lifecycle.Stats

func (c *Client) newLifecycle() *lifecycle.Manager {
	s := c.settings
	return lifecycle.NewManager(&lifecycle.Config{
		IdleWarningDuration: s.IdleWarningDuration,
		Clock:               s.Clock,
		Logger:              s.Logger,
		Metrics:             s.Metrics,
		OnStateChange: func(old, new ClientState) {
			s.Logger.Debug("loopmetrics: state change", "from", old.String(), "to", new.String())
		},
	})
}

// State returns the current lifecycle state.
func (c *Client) State() ClientState {
	return c.lifecycle.State()
}

// Ready reports whether Init completed with a registered user, so events
// are delivered.
func (c *Client) Ready() bool {
	return c.lifecycle.IsReady()
}

// LifecycleStats returns lifecycle statistics.
func (c *Client) LifecycleStats() LifecycleStats {
	return c.lifecycle.Stats()
}
