package loopmetrics

import (
	"time"
)

// Metrics is an optional interface for SDK telemetry.
// pkg/metrics provides a Prometheus implementation.
type Metrics interface {
	// IncrementCounter increments a counter metric.
	IncrementCounter(name string, value int64)
	// RecordDuration records a duration metric.
	RecordDuration(name string, duration time.Duration)
	// SetGauge sets a gauge metric.
	SetGauge(name string, value float64)
}

// Metric names recorded by the client.
const (
	MetricEventsSent       = "loopmetrics.events.sent"
	MetricEventsDropped    = "loopmetrics.events.dropped"
	MetricEventsFailed     = "loopmetrics.events.failed"
	MetricEventsQueued     = "loopmetrics.events.queued"
	MetricErrors           = "loopmetrics.errors"
	MetricInitDuration     = "loopmetrics.init.duration"
	MetricDispatchInFlight = "loopmetrics.dispatch.inflight"
	MetricUpdatesSent      = "loopmetrics.updates.sent"
)

// ClientStats is a snapshot of client counters.
type ClientStats struct {
	State       ClientState `json:"state"`
	StateString string      `json:"state_string"`
	Uptime      string      `json:"uptime"`

	EventsSent    int64 `json:"events_sent"`
	EventsDropped int64 `json:"events_dropped"`
	EventsFailed  int64 `json:"events_failed"`
	EventsQueued  int   `json:"events_queued"`
	UpdatesSent   int64 `json:"updates_sent"`

	InFlight int64 `json:"in_flight"`
	Pending  int   `json:"pending"`
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	queued := len(c.queue)
	c.mu.Unlock()

	state := c.lifecycle.State()
	return ClientStats{
		State:         state,
		StateString:   state.String(),
		Uptime:        c.lifecycle.Uptime().String(),
		EventsSent:    c.eventsSent.Load(),
		EventsDropped: c.eventsDropped.Load(),
		EventsFailed:  c.eventsFailed.Load(),
		EventsQueued:  queued,
		UpdatesSent:   c.updatesSent.Load(),
		InFlight:      c.dispatcher.InFlight(),
		Pending:       c.dispatcher.Pending(),
	}
}

func (c *Client) incr(name string) {
	if c.settings.Metrics != nil {
		c.settings.Metrics.IncrementCounter(name, 1)
	}
}

func (c *Client) gauge(name string, v float64) {
	if c.settings.Metrics != nil {
		c.settings.Metrics.SetGauge(name, v)
	}
}
