package loop

import "time"

// Clock abstracts the scheduler's notion of time so alternate carriers and
// tests can drive the loop without waiting on the wall clock.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that delivers once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// WallClock returns the real-time clock used by default.
func WallClock() Clock { return wallClock{} }
