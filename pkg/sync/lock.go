package sync

import (
	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/loop"
	"github.com/vnykmshr/goloop/pkg/metrics"
)

// Lock is a mutual-exclusion lock for tasks. At most one task owns it at a
// time; Release hands ownership directly to the longest-waiting task so no
// acquirer can starve.
type Lock struct {
	in      *instrument
	owner   *loop.Task
	waiters []*loop.Task
}

// NewLock creates an unlocked Lock.
func NewLock() *Lock {
	return &Lock{}
}

// NewLockWithMetrics creates a Lock that reports its wait list under the
// given primitive name.
func NewLockWithMetrics(name string, cfg metrics.Config) *Lock {
	return &Lock{in: newInstrument("lock", name, cfg)}
}

// Acquire suspends tk until it owns the lock. Returns ErrCancelled if tk is
// cancelled while waiting; tk is removed from the wait list and does not
// own the lock in that case. Acquiring a lock the task already holds fails
// immediately with ErrAlreadyOwner.
func (l *Lock) Acquire(tk *loop.Task) error {
	if l.owner == tk {
		return glerrors.ErrAlreadyOwner
	}
	if l.owner == nil && len(l.waiters) == 0 {
		l.owner = tk
		return nil
	}

	l.waiters = append(l.waiters, tk)
	l.in.waiters(len(l.waiters))
	for {
		if err := tk.ParkPrimitive("lock"); err != nil {
			if l.owner == tk {
				// Ownership was handed over in the same step the
				// cancellation arrived; pass it on.
				l.handoff()
			} else {
				l.remove(tk)
			}
			return err
		}
		if l.owner == tk {
			return nil
		}
	}
}

// Release transfers the lock to the head of the wait list, or unlocks it if
// no task is waiting. Only the owner may release; any other caller gets
// ErrNotOwner.
func (l *Lock) Release(tk *loop.Task) error {
	if l.owner != tk {
		return glerrors.ErrNotOwner
	}
	l.handoff()
	return nil
}

// Held reports whether any task currently owns the lock.
func (l *Lock) Held() bool { return l.owner != nil }

// HeldBy reports whether tk currently owns the lock.
func (l *Lock) HeldBy(tk *loop.Task) bool { return l.owner == tk }

// Waiters returns the number of tasks suspended on the lock.
func (l *Lock) Waiters() int { return len(l.waiters) }

// handoff passes ownership to the longest waiter, or clears it.
func (l *Lock) handoff() {
	if len(l.waiters) == 0 {
		l.owner = nil
		return
	}
	next := l.waiters[0]
	l.waiters = l.waiters[1:]
	l.owner = next
	l.in.waiters(len(l.waiters))
	l.in.wakeup()
	next.Scheduler().Wake(next)
}

func (l *Lock) remove(tk *loop.Task) {
	for i, w := range l.waiters {
		if w == tk {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			break
		}
	}
	l.in.waiters(len(l.waiters))
}

// WithLock runs fn while tk holds l, releasing on every exit path including
// cancellation unwind inside fn.
func WithLock(tk *loop.Task, l *Lock, fn func() error) error {
	if err := l.Acquire(tk); err != nil {
		return err
	}
	defer func() { _ = l.Release(tk) }()
	return fn()
}
