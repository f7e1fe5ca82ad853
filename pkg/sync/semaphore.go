package sync

import (
	"github.com/vnykmshr/goloop/pkg/loop"
	"github.com/vnykmshr/goloop/pkg/metrics"
)

// Semaphore is a counting semaphore for tasks. Permits never go negative;
// a release either returns a permit to the pool or hands the unit directly
// to the longest waiter, never both for the same unit.
type Semaphore struct {
	in      *instrument
	permits int
	waiters []*loop.Task
}

// NewSemaphore creates a semaphore with the given number of permits.
// Negative permit counts are clamped to zero.
func NewSemaphore(permits int) *Semaphore {
	if permits < 0 {
		permits = 0
	}
	return &Semaphore{permits: permits}
}

// NewSemaphoreWithMetrics creates a semaphore that reports its wait list
// under the given primitive name.
func NewSemaphoreWithMetrics(permits int, name string, cfg metrics.Config) *Semaphore {
	s := NewSemaphore(permits)
	s.in = newInstrument("semaphore", name, cfg)
	return s
}

// Acquire takes one permit, suspending tk while none are available.
// Waiters proceed strictly in arrival order. Returns ErrCancelled if tk is
// cancelled while waiting; a unit that was already handed to tk is passed
// on so it is not lost.
func (s *Semaphore) Acquire(tk *loop.Task) error {
	if s.permits > 0 && len(s.waiters) == 0 {
		s.permits--
		return nil
	}
	s.waiters = append(s.waiters, tk)
	s.in.waiters(len(s.waiters))
	for {
		if err := tk.ParkPrimitive("semaphore"); err != nil {
			if !s.contains(tk) {
				// The unit was handed over in the same step the
				// cancellation arrived; pass it on.
				s.Release()
			} else {
				s.remove(tk)
			}
			return err
		}
		if !s.contains(tk) {
			// Removed by Release: the unit is ours.
			return nil
		}
	}
}

// TryAcquire takes one permit without suspending. Returns false when none
// are available or tasks are already waiting.
func (s *Semaphore) TryAcquire() bool {
	if s.permits > 0 && len(s.waiters) == 0 {
		s.permits--
		return true
	}
	return false
}

// Release returns one unit. If tasks are waiting the unit is handed
// directly to the head of the wait list without touching the permit count;
// otherwise the permit count is incremented.
func (s *Semaphore) Release() {
	if len(s.waiters) > 0 {
		next := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.in.waiters(len(s.waiters))
		s.in.wakeup()
		next.Scheduler().Wake(next)
		return
	}
	s.permits++
}

// Permits returns the number of free permits.
func (s *Semaphore) Permits() int { return s.permits }

// Waiters returns the number of tasks suspended on the semaphore.
func (s *Semaphore) Waiters() int { return len(s.waiters) }

func (s *Semaphore) contains(tk *loop.Task) bool {
	for _, w := range s.waiters {
		if w == tk {
			return true
		}
	}
	return false
}

func (s *Semaphore) remove(tk *loop.Task) {
	for i, w := range s.waiters {
		if w == tk {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			break
		}
	}
	s.in.waiters(len(s.waiters))
}

// WithPermit runs fn while tk holds one permit, releasing on every exit
// path including cancellation unwind inside fn.
func WithPermit(tk *loop.Task, s *Semaphore, fn func() error) error {
	if err := s.Acquire(tk); err != nil {
		return err
	}
	defer s.Release()
	return fn()
}
