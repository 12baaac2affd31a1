package loopmetrics

// queuedEvent is an event held by TrackOnInit until Init completes.
type queuedEvent struct {
	name       string
	properties Properties
	callback   func()
}

// TrackOnInit tracks an event once Init has completed. Events given before
// then are held in memory and sent, in the order they were given, right
// after Init succeeds. After Init it behaves exactly like Track.
//
// Held events are not persisted; they are lost if the process exits or
// Shutdown is called before Init succeeds.
func (c *Client) TrackOnInit(name string, properties Properties, callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lifecycle.IsInitDone() || c.lifecycle.IsClosing() {
		c.trackLocked(name, properties, callback)
		return
	}

	c.queue = append(c.queue, queuedEvent{
		name:       name,
		properties: properties.clone(),
		callback:   callback,
	})
	c.lifecycle.RecordActivity()
	c.gauge(MetricEventsQueued, float64(len(c.queue)))
	c.settings.Logger.Debug("loopmetrics: event queued until init", "event", name, "queued", len(c.queue))
}

// flushQueueLocked tracks and clears the held events. c.mu must be held.
func (c *Client) flushQueueLocked() {
	if len(c.queue) == 0 {
		return
	}
	queue := c.queue
	c.queue = nil
	for _, ev := range queue {
		c.trackLocked(ev.name, ev.properties, ev.callback)
	}
	c.gauge(MetricEventsQueued, 0)
}
