package sync

import (
	"github.com/vnykmshr/goloop/pkg/loop"
)

// Event is a one-shot signal flag. Wait suspends until the event is set;
// Set wakes every waiter and stays signaled for future callers until Clear.
//
// An Event is the usual vehicle for graceful stops: a worker loops until
// the stop event is set, finishing its current step cleanly, while Cancel
// remains available for hard stops. The two mechanisms compose and stay
// independent.
type Event struct {
	signaled bool
	waiters  []*loop.Task
}

// NewEvent creates an unsignaled event.
func NewEvent() *Event {
	return &Event{}
}

// Wait suspends tk until the event is set. Returns immediately if it
// already is. Returns ErrCancelled if tk is cancelled first. A waiter woken
// by Set proceeds even if the event was cleared again before it ran.
func (e *Event) Wait(tk *loop.Task) error {
	if e.signaled {
		return nil
	}
	e.waiters = append(e.waiters, tk)
	for {
		if err := tk.ParkPrimitive("event"); err != nil {
			e.remove(tk)
			return err
		}
		if !e.contains(tk) {
			// Removed from the list by Set: the signal was delivered.
			return nil
		}
	}
}

// Set signals the event and wakes all current waiters. Future waiters
// return immediately until Clear is called.
func (e *Event) Set() {
	e.signaled = true
	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		w.Scheduler().Wake(w)
	}
}

// Clear resets the event to unsignaled. Waiters already woken by Set are
// not affected.
func (e *Event) Clear() {
	e.signaled = false
}

// IsSet reports whether the event is currently signaled.
func (e *Event) IsSet() bool { return e.signaled }

func (e *Event) contains(tk *loop.Task) bool {
	for _, w := range e.waiters {
		if w == tk {
			return true
		}
	}
	return false
}

func (e *Event) remove(tk *loop.Task) {
	for i, w := range e.waiters {
		if w == tk {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return
		}
	}
}
