package testutil

import (
	"sync"
	"time"
)

// Epoch is the default reading of a DeterministicClock:
// 2026-01-15 12:30 UTC, serial 46037.520833.
var Epoch = time.Date(2026, time.January, 15, 12, 30, 0, 0, time.UTC)

// DeterministicClock is a wall clock that only moves when told to.
//
// It satisfies engine.Clock, so TODAY, NOW and report timings are stable
// across runs. Each call to Now advances the reading by Step, which is
// zero unless set.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock reading Epoch.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch)
}

// NewDeterministicClockAt creates a clock reading start.
func NewDeterministicClockAt(start time.Time) *DeterministicClock {
	return &DeterministicClock{now: start}
}

// Now returns the current reading, then advances it by the step.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.now
	c.now = c.now.Add(c.step)
	return out
}

// SetStep makes every Now call advance the clock by d.
func (c *DeterministicClock) SetStep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = d
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset moves the clock back to Epoch and clears the step.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
	c.step = 0
}
