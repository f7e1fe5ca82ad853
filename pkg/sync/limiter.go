package sync

import (
	"time"

	"github.com/vnykmshr/goloop/pkg/common/validation"
	"github.com/vnykmshr/goloop/pkg/loop"
)

// Limiter is a token bucket rate limiter for tasks. Tokens accrue at a
// fixed rate up to a burst capacity; Wait suspends the calling task on the
// timer wheel until a token is available instead of busy-waiting.
type Limiter struct {
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter that admits rate events per second with the
// given burst capacity. The bucket starts full.
func NewLimiter(rate float64, burst int) (*Limiter, error) {
	if err := validation.ValidatePositiveFloat("sync", "rate", rate); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("sync", "burst", burst); err != nil {
		return nil, err
	}
	return &Limiter{rate: rate, burst: float64(burst), tokens: float64(burst)}, nil
}

// Allow reports whether one event may happen now, consuming a token if so.
// Never suspends.
func (l *Limiter) Allow(tk *loop.Task) bool {
	l.advance(tk.Scheduler().Clock().Now())
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait suspends tk until a token is available, then consumes it. Returns
// ErrCancelled if tk is cancelled while waiting.
func (l *Limiter) Wait(tk *loop.Task) error {
	clock := tk.Scheduler().Clock()
	for {
		l.advance(clock.Now())
		if l.tokens >= 1 {
			l.tokens--
			return nil
		}
		need := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		if err := tk.Sleep(need); err != nil {
			return err
		}
	}
}

// Tokens returns the number of currently available tokens.
func (l *Limiter) Tokens(tk *loop.Task) float64 {
	l.advance(tk.Scheduler().Clock().Now())
	return l.tokens
}

func (l *Limiter) advance(now time.Time) {
	if l.last.IsZero() {
		l.last = now
		return
	}
	elapsed := now.Sub(l.last)
	if elapsed <= 0 {
		return
	}
	l.last = now
	l.tokens += elapsed.Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
}
