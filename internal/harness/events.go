package harness

import "sync"

// EventCollector accumulates events in emission order and fans them out
// to listeners.
//
// Thread-safety: Events and Clear may be called from any goroutine.
type EventCollector struct {
	mu        sync.Mutex
	events    []Event
	listeners []func(Event)
}

// NewEventCollector creates an empty collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{}
}

// Listen registers fn to receive every event emitted from now on.
func (c *EventCollector) Listen(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Emit records ev and passes it to the listeners.
func (c *EventCollector) Emit(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	listeners := c.listeners
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Events returns a copy of the recorded events.
func (c *EventCollector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Len returns the number of recorded events.
func (c *EventCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Clear drops the recorded events. Listeners stay registered.
func (c *EventCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
