package testutil

import (
	"sync"
	"time"
)

// FakeClock implements loop.Clock with manually controlled time. It lets
// tests exercise timer-dependent code without waiting on the wall clock.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []fakeTimer
}

type fakeTimer struct {
	at time.Time
	ch chan time.Time
}

// NewFakeClock creates a FakeClock starting at the given time.
// If zero time is provided, uses current time.
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that delivers once Advance moves the clock past d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	at := c.now.Add(d)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.pending = append(c.pending, fakeTimer{at: at, ch: ch})
	return ch
}

// Advance moves the fake clock forward, firing any timers whose deadline
// passes.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.pending[:0]
	for _, ft := range c.pending {
		if !ft.at.After(c.now) {
			ft.ch <- c.now
		} else {
			kept = append(kept, ft)
		}
	}
	c.pending = kept
}
