package sync

import (
	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/loop"
)

// Cond is a condition variable bound to a Lock. A task must hold the lock
// to wait or notify. Wait releases the lock and suspends in one carrier
// step, so no other task can change the condition and signal in between;
// the lock is re-acquired before Wait returns on every path.
type Cond struct {
	L       *Lock
	waiters []*loop.Task
}

// NewCond creates a condition variable bound to l.
func NewCond(l *Lock) *Cond {
	return &Cond{L: l}
}

// Wait atomically releases the lock, suspends tk until notified, and
// re-acquires the lock before returning. Callers must re-check their
// condition in a loop, as with sync.Cond. Returns ErrNotOwner if tk does
// not hold the lock. On cancellation the lock is still re-acquired before
// ErrCancelled is returned, so cleanup runs under the lock.
func (c *Cond) Wait(tk *loop.Task) error {
	if !c.L.HeldBy(tk) {
		return glerrors.ErrNotOwner
	}
	c.waiters = append(c.waiters, tk)
	c.L.handoff()

	var werr error
	for {
		if err := tk.ParkPrimitive("cond"); err != nil {
			if !c.contains(tk) {
				// Notify already removed tk, so a signal was spent on
				// it; hand it to the next waiter instead of losing it.
				if len(c.waiters) > 0 {
					next := c.waiters[0]
					c.waiters = c.waiters[1:]
					next.Scheduler().Wake(next)
				}
			} else {
				c.remove(tk)
			}
			werr = err
			break
		}
		if !c.contains(tk) {
			// Removed by Notify: the signal was delivered.
			break
		}
	}

	if err := c.L.Acquire(tk); err != nil {
		// Cancelled again while re-acquiring; the caller does not hold
		// the lock and must not touch the protected state.
		return err
	}
	return werr
}

// Notify wakes the longest-waiting task, if any. Returns ErrNotOwner if tk
// does not hold the lock. The woken task still re-acquires the lock before
// its Wait returns.
func (c *Cond) Notify(tk *loop.Task) error {
	if !c.L.HeldBy(tk) {
		return glerrors.ErrNotOwner
	}
	if len(c.waiters) > 0 {
		next := c.waiters[0]
		c.waiters = c.waiters[1:]
		next.Scheduler().Wake(next)
	}
	return nil
}

// NotifyAll wakes every waiting task. Returns ErrNotOwner if tk does not
// hold the lock.
func (c *Cond) NotifyAll(tk *loop.Task) error {
	if !c.L.HeldBy(tk) {
		return glerrors.ErrNotOwner
	}
	waiters := c.waiters
	c.waiters = nil
	for _, w := range waiters {
		w.Scheduler().Wake(w)
	}
	return nil
}

// Waiters returns the number of tasks suspended on the condition.
func (c *Cond) Waiters() int { return len(c.waiters) }

func (c *Cond) contains(tk *loop.Task) bool {
	for _, w := range c.waiters {
		if w == tk {
			return true
		}
	}
	return false
}

func (c *Cond) remove(tk *loop.Task) {
	for i, w := range c.waiters {
		if w == tk {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}
