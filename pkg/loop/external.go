package loop

import (
	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
)

// Completion tracks one pending external wake for a task. It is created by
// Task.External before blocking work is handed to another goroutine, and
// resolved exactly once when that work finishes. While a completion is
// outstanding the scheduler will not terminate its run, even with an empty
// ready queue and timer wheel.
type Completion struct {
	t        *Task
	resolved bool
	value    interface{}
	err      error
}

// External registers an outstanding external completion for the task. The
// caller hands the returned Completion to whatever goroutine performs the
// blocking work, then parks on it with Wait.
func (t *Task) External() *Completion {
	s := t.s
	s.mu.Lock()
	s.extWaits++
	c := &Completion{t: t}
	s.mu.Unlock()
	return c
}

// Resolve records the outcome of the external work and wakes the waiting
// task. It must be called exactly once and is safe from any goroutine.
// Resolving twice is a consistency fault.
func (c *Completion) Resolve(value interface{}, err error) {
	s := c.t.s
	s.mu.Lock()
	if c.resolved {
		s.mu.Unlock()
		glerrors.Faultf("resolve", "completion for task %d resolved twice", c.t.id)
	}
	c.resolved = true
	c.value = value
	c.err = err
	s.extWaits--

	t := c.t
	switch {
	case t.state == StateSuspended && !t.queued && t.suspension.Kind == WaitExternal && t.suspension.comp == c:
		t.queued = true
		t.wakeReason = wakeNormal
		s.ready.push(t)
	case t.state == StateRunning:
		// The task has not parked yet; flag the wake so the imminent
		// external park returns immediately.
		t.pendingWake = true
	}
	s.mu.Unlock()
	s.notify()
}

// Wait parks the task until the completion is resolved, then returns the
// recorded outcome. Returns ErrCancelled if the task is cancelled first; the
// external work keeps running in that case and its eventual result is
// discarded.
func (c *Completion) Wait() (interface{}, error) {
	t := c.t
	s := t.s
	for {
		s.mu.Lock()
		if c.resolved {
			v, err := c.value, c.err
			t.pendingWake = false
			s.mu.Unlock()
			return v, err
		}
		s.mu.Unlock()

		if k := t.park(Suspension{Kind: WaitExternal, comp: c}); k == wakeCancel {
			return nil, glerrors.ErrCancelled
		}
	}
}
