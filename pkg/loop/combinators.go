package loop

import (
	"fmt"
	"time"

	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
)

// Outcome is one positional result from GatherAll.
type Outcome struct {
	Value interface{}
	Err   error
}

// Gather waits for every task to settle, fail-fast. If all complete
// normally the results are returned in input order, regardless of the order
// in which the tasks finished. On the first failure (first by input order
// among settled tasks, not by time) the remaining unsettled tasks are
// cancelled, the combinator waits for them to settle, and the failure is
// returned. Cancellation of tk cancels the remaining tasks and returns
// ErrCancelled.
func Gather(tk *Task, tasks ...*Task) ([]interface{}, error) {
	s := tk.s
	cancelledRest := false
	selfCancelled := false

	for {
		s.mu.Lock()
		allSettled := true
		failed := false
		for _, c := range tasks {
			if !c.state.Terminal() {
				allSettled = false
			} else if c.err != nil {
				failed = true
			}
		}

		if allSettled {
			for _, c := range tasks {
				c.observed = true
			}
			if selfCancelled {
				s.mu.Unlock()
				return nil, glerrors.ErrCancelled
			}
			// Prefer a real failure over a cancellation: siblings we
			// cancelled ourselves settle with ErrCancelled and must not
			// mask the error that triggered the fail-fast.
			for _, c := range tasks {
				if c.err != nil && !glerrors.IsCancelled(c.err) {
					err := c.err
					s.mu.Unlock()
					return nil, err
				}
			}
			for _, c := range tasks {
				if c.err != nil {
					err := c.err
					s.mu.Unlock()
					return nil, err
				}
			}
			results := make([]interface{}, len(tasks))
			for i, c := range tasks {
				results[i] = c.result
			}
			s.mu.Unlock()
			return results, nil
		}

		for _, c := range tasks {
			if !c.state.Terminal() {
				c.addObserver(tk)
			}
		}
		s.mu.Unlock()

		if (failed || selfCancelled) && !cancelledRest {
			cancelledRest = true
			for _, c := range tasks {
				c.Cancel()
			}
		}

		if k := tk.park(Suspension{Kind: WaitChild}); k == wakeCancel {
			selfCancelled = true
			if !cancelledRest {
				cancelledRest = true
				for _, c := range tasks {
					c.Cancel()
				}
			}
		}
	}
}

// GatherAll waits for every task to settle and returns each outcome
// positionally, failures and cancellations included. The error is non-nil
// only when tk itself is cancelled while waiting; the remaining tasks are
// cancelled in that case and outcomes are still returned once they settle.
func GatherAll(tk *Task, tasks ...*Task) ([]Outcome, error) {
	s := tk.s
	selfCancelled := false

	for {
		s.mu.Lock()
		allSettled := true
		for _, c := range tasks {
			if !c.state.Terminal() {
				allSettled = false
				break
			}
		}

		if allSettled {
			outcomes := make([]Outcome, len(tasks))
			for i, c := range tasks {
				c.observed = true
				outcomes[i] = Outcome{Value: c.result, Err: c.err}
			}
			s.mu.Unlock()
			if selfCancelled {
				return outcomes, glerrors.ErrCancelled
			}
			return outcomes, nil
		}

		for _, c := range tasks {
			if !c.state.Terminal() {
				c.addObserver(tk)
			}
		}
		s.mu.Unlock()

		if k := tk.park(Suspension{Kind: WaitChild}); k == wakeCancel {
			selfCancelled = true
			for _, c := range tasks {
				c.Cancel()
			}
		}
	}
}

// WithTimeout spawns proc and waits at most d for it to settle. If the
// timer fires first the inner task is cancelled, the combinator waits for it
// to settle, and ErrDeadlineExceeded is returned instead of the task's own
// outcome. Cancellation of tk likewise cancels the inner task and returns
// ErrCancelled.
func WithTimeout(tk *Task, d time.Duration, proc Proc) (interface{}, error) {
	s := tk.s
	inner := s.Spawn(proc)
	deadline := s.clock.Now().Add(d)
	selfCancelled := false

	for {
		s.mu.Lock()
		if inner.state.Terminal() {
			inner.observed = true
			v, err := inner.result, inner.err
			s.mu.Unlock()
			if selfCancelled {
				return nil, glerrors.ErrCancelled
			}
			return v, err
		}
		if !selfCancelled && !s.clock.Now().Before(deadline) {
			s.mu.Unlock()
			inner.Cancel()
			settle(tk, inner)
			return nil, fmt.Errorf("with timeout after %v: %w", d, glerrors.ErrDeadlineExceeded)
		}
		inner.addObserver(tk)
		s.timers.push(timerEntry{deadline: deadline, task: tk, gen: tk.parkGen + 1})
		s.mu.Unlock()
		s.gaugeTimers()

		if k := tk.park(Suspension{Kind: WaitChild, Child: inner}); k == wakeCancel {
			selfCancelled = true
			inner.Cancel()
		}
	}
}

// WaitTimeout waits until every task settles or the timeout elapses,
// whichever comes first, and returns the settled and still-pending
// partitions in input order. Pending tasks are NOT cancelled; callers that
// do not cancel or await them leak running tasks. The error is non-nil only
// when tk itself is cancelled while waiting.
func WaitTimeout(tk *Task, tasks []*Task, d time.Duration) (settled, pending []*Task, err error) {
	s := tk.s
	deadline := s.clock.Now().Add(d)

	partition := func() (done, rest []*Task) {
		for _, c := range tasks {
			if c.state.Terminal() {
				c.observed = true
				done = append(done, c)
			} else {
				rest = append(rest, c)
			}
		}
		return done, rest
	}

	for {
		s.mu.Lock()
		done, rest := partition()
		if len(rest) == 0 || !s.clock.Now().Before(deadline) {
			for _, c := range rest {
				c.removeObserver(tk)
			}
			s.mu.Unlock()
			return done, rest, nil
		}
		for _, c := range rest {
			c.addObserver(tk)
		}
		s.timers.push(timerEntry{deadline: deadline, task: tk, gen: tk.parkGen + 1})
		s.mu.Unlock()
		s.gaugeTimers()

		if k := tk.park(Suspension{Kind: WaitChild}); k == wakeCancel {
			s.mu.Lock()
			done, rest := partition()
			for _, c := range rest {
				c.removeObserver(tk)
			}
			s.mu.Unlock()
			return done, rest, glerrors.ErrCancelled
		}
	}
}

// settle waits for c to reach a terminal state, absorbing further
// cancellation wakes of tk so cleanup can finish.
func settle(tk *Task, c *Task) {
	s := tk.s
	for {
		s.mu.Lock()
		if c.state.Terminal() {
			c.observed = true
			s.mu.Unlock()
			return
		}
		c.addObserver(tk)
		s.mu.Unlock()
		tk.park(Suspension{Kind: WaitChild, Child: c})
	}
}
