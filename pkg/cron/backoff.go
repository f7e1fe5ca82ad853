package cron

import (
	"time"

	"github.com/vnykmshr/goloop/pkg/loop"
)

// BackoffProc wraps a proc with exponential-backoff retry. Retries sleep on
// the loop's timer wheel, so other tasks keep running between attempts.
type BackoffProc struct {
	Proc         loop.Proc
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Run executes the wrapped proc with retries. Cancellation during a backoff
// sleep unwinds immediately with ErrCancelled.
func (bp BackoffProc) Run(tk *loop.Task) (interface{}, error) {
	var lastErr error
	delay := bp.InitialDelay

	for attempt := 0; attempt <= bp.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := tk.Sleep(delay); err != nil {
				return nil, err
			}
		}

		var value interface{}
		value, lastErr = bp.Proc(tk)
		if lastErr == nil {
			return value, nil
		}

		// Double delay for next attempt
		delay *= 2
		if delay > bp.MaxDelay {
			delay = bp.MaxDelay
		}
	}

	return nil, lastErr
}
