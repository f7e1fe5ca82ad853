package loop

import (
	"fmt"
	"runtime/debug"
	"time"

	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
)

// State describes where a task is in its lifecycle.
type State int32

// Task lifecycle states. Completed, Cancelled and Failed are terminal and
// disjoint; exactly one terminal transition occurs per task.
const (
	StatePending State = iota
	StateRunning
	StateSuspended
	StateCompleted
	StateCancelled
	StateFailed
)

// Terminal returns true for Completed, Cancelled and Failed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Proc is the body of a task. It runs on the task's own goroutine but is
// strictly alternated with the scheduler, so at most one proc makes progress
// at any instant. A proc suspends by calling the blocking methods on its
// Task (Sleep, Await, ParkPrimitive, Completion.Wait); between two suspension
// points it runs uninterrupted.
type Proc func(tk *Task) (interface{}, error)

// WaitKind identifies what a suspended task is waiting for.
type WaitKind int

// Suspension point kinds. A suspended task has exactly one outstanding
// suspension point.
const (
	WaitNone WaitKind = iota
	WaitTimer
	WaitPrimitive
	WaitExternal
	WaitChild
)

// Suspension describes the single outstanding wait of a suspended task.
type Suspension struct {
	Kind      WaitKind
	Deadline  time.Time // WaitTimer
	Primitive string    // WaitPrimitive
	Child     *Task     // WaitChild; nil when waiting on several tasks
	comp      *Completion
}

type wakeKind int

const (
	wakeNone wakeKind = iota
	wakeNormal
	wakeCancel
)

type observer struct {
	task *Task
	fn   func(*Task)
}

// Task is a resumable unit of scheduled computation. Handles are created by
// Scheduler.Spawn and stay valid for the task's lifetime. All blocking
// methods must be called from the task's own proc; Cancel and the read-only
// accessors are safe from any goroutine.
type Task struct {
	id   uint64
	s    *Scheduler
	proc Proc

	// Guarded by s.mu. The proc goroutine may read its own fields without
	// the lock only between park calls, while it holds the carrier.
	state       State
	result      interface{}
	err         error
	cancelled   bool
	cancelSent  bool
	suppress    bool
	queued      bool
	wakeReason  wakeKind
	pendingWake bool
	parkGen     uint64
	suspension  Suspension
	observers   []observer
	observed    bool

	started  bool
	resumeCh chan wakeKind
	yieldCh  chan bool
}

// ID returns the task's unique identifier.
func (t *Task) ID() uint64 { return t.id }

// Scheduler returns the scheduler that owns this task.
func (t *Task) Scheduler() *Scheduler { return t.s }

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.state
}

// Result returns the task's result value. It is meaningful only once the
// task has reached StateCompleted.
func (t *Task) Result() interface{} {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.result
}

// Err returns the task's terminal error: nil for Completed, ErrCancelled for
// Cancelled, the computation error for Failed.
func (t *Task) Err() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.err
}

// Cancelled reports whether cancellation has been requested on this task.
func (t *Task) Cancelled() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.cancelled
}

// Cancel requests cancellation. If the task is suspended it is moved to the
// ready queue with a cancellation wake instead of its normal wake reason; the
// proc observes ErrCancelled from its next (or current) suspension point and
// unwinds. Cancelling a terminal task is a no-op. Safe from any goroutine.
func (t *Task) Cancel() {
	s := t.s
	s.mu.Lock()
	if t.state.Terminal() {
		s.mu.Unlock()
		return
	}
	t.cancelled = true
	if t.state == StateSuspended && !t.queued {
		t.queued = true
		t.wakeReason = wakeCancel
		s.ready.push(t)
		s.mu.Unlock()
		s.notify()
		return
	}
	if t.queued {
		t.wakeReason = wakeCancel
	}
	s.mu.Unlock()
}

// SuppressCancel marks a delivered cancellation as absorbed, allowing the
// proc to settle Completed after observing ErrCancelled. Without it a
// cancelled task settles Cancelled even when its proc returns normally.
// Must be called from the task's own proc.
func (t *Task) SuppressCancel() {
	s := t.s
	s.mu.Lock()
	t.suppress = true
	s.mu.Unlock()
}

// OnDone registers a callback invoked exactly once after the task reaches a
// terminal state, in registration order relative to other observers. If the
// task is already terminal the callback runs immediately.
func (t *Task) OnDone(fn func(*Task)) {
	s := t.s
	s.mu.Lock()
	if t.state.Terminal() {
		s.mu.Unlock()
		fn(t)
		return
	}
	t.observers = append(t.observers, observer{fn: fn})
	s.mu.Unlock()
}

// Sleep suspends the task until d has elapsed on the scheduler's clock.
// Returns ErrCancelled if the task is cancelled before the deadline.
func (t *Task) Sleep(d time.Duration) error {
	s := t.s
	if d < 0 {
		d = 0
	}
	deadline := s.clock.Now().Add(d)
	for {
		s.mu.Lock()
		// The entry is tagged with the generation the upcoming park will
		// use, so a fire after the park has returned is ignored.
		s.timers.push(timerEntry{deadline: deadline, task: t, gen: t.parkGen + 1})
		s.mu.Unlock()
		s.gaugeTimers()

		if k := t.park(Suspension{Kind: WaitTimer, Deadline: deadline}); k == wakeCancel {
			return glerrors.ErrCancelled
		}
		// Wakes can be spurious; sleep again until the deadline has passed.
		if !s.clock.Now().Before(deadline) {
			return nil
		}
	}
}

// Await suspends the task until child reaches a terminal state, then returns
// the child's result and error. Returns ErrCancelled if this task is
// cancelled first; the child is left running in that case.
func (t *Task) Await(child *Task) (interface{}, error) {
	if child == t {
		return nil, fmt.Errorf("await: task %d cannot await itself", t.id)
	}
	s := t.s
	s.mu.Lock()
	for !child.state.Terminal() {
		child.addObserver(t)
		s.mu.Unlock()
		if k := t.park(Suspension{Kind: WaitChild, Child: child}); k == wakeCancel {
			s.mu.Lock()
			child.removeObserver(t)
			s.mu.Unlock()
			return nil, glerrors.ErrCancelled
		}
		s.mu.Lock()
	}
	child.observed = true
	v, err := child.result, child.err
	s.mu.Unlock()
	return v, err
}

// ParkPrimitive suspends the task on the named primitive until another task
// wakes it through Scheduler.Wake. Returns ErrCancelled if the wake was a
// cancellation. Callers own their membership in the primitive's wait list:
// on error they must remove themselves, and on success they must re-validate
// the condition they were waiting for (wakes may be spurious).
func (t *Task) ParkPrimitive(name string) error {
	if k := t.park(Suspension{Kind: WaitPrimitive, Primitive: name}); k == wakeCancel {
		return glerrors.ErrCancelled
	}
	return nil
}

// park suspends the calling task until the scheduler resumes it. Must be
// called from the task's own proc while it holds the carrier.
func (t *Task) park(sp Suspension) wakeKind {
	s := t.s
	s.mu.Lock()
	if t.state != StateRunning || s.current != t {
		st := t.state
		s.mu.Unlock()
		glerrors.Faultf("park", "task %d parked in state %s while not the running task", t.id, st)
	}
	if t.cancelled && !t.cancelSent {
		// Cancellation is observed at the next suspension point.
		t.cancelSent = true
		s.mu.Unlock()
		return wakeCancel
	}
	if t.pendingWake && sp.Kind == WaitExternal {
		// The offloaded call finished before we managed to park.
		t.pendingWake = false
		s.mu.Unlock()
		return wakeNormal
	}
	t.state = StateSuspended
	t.suspension = sp
	t.parkGen++
	s.mu.Unlock()

	t.yieldCh <- false
	k := <-t.resumeCh

	if k == wakeCancel {
		s.mu.Lock()
		t.cancelSent = true
		s.mu.Unlock()
	}
	return k
}

// run is the task goroutine's entry point.
func (t *Task) run() {
	var v interface{}
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(glerrors.ConsistencyFault); ok {
					panic(r)
				}
				err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}()
		v, err = t.proc(t)
	}()
	t.finish(v, err)
	t.yieldCh <- true
}

// finish applies the single terminal transition and notifies observers.
func (t *Task) finish(v interface{}, err error) {
	s := t.s
	s.mu.Lock()
	if t.state.Terminal() {
		st := t.state
		s.mu.Unlock()
		glerrors.Faultf("finish", "task %d second terminal transition from %s", t.id, st)
	}
	switch {
	case err != nil && glerrors.IsCancelled(err):
		t.state = StateCancelled
		t.err = err
	case err != nil:
		t.state = StateFailed
		t.err = err
	case t.cancelled && !t.suppress:
		// A cancelled proc that returns normally still settles Cancelled
		// unless it explicitly suppressed the cancellation.
		t.state = StateCancelled
		t.err = glerrors.ErrCancelled
	default:
		t.state = StateCompleted
		t.result = v
	}
	if t.state == StateFailed {
		s.failed = append(s.failed, t)
	}
	obs := t.observers
	t.observers = nil
	s.mu.Unlock()

	s.countTerminal(t)
	for _, o := range obs {
		if o.task != nil {
			s.wake(o.task, wakeNormal)
		}
		if o.fn != nil {
			o.fn(t)
		}
	}
}

// addObserver registers t as a task observer at most once. Caller holds s.mu.
func (c *Task) addObserver(t *Task) {
	for _, o := range c.observers {
		if o.task == t {
			return
		}
	}
	c.observers = append(c.observers, observer{task: t})
}

// removeObserver drops every entry for t from the observer list. Caller
// holds s.mu.
func (c *Task) removeObserver(t *Task) {
	kept := c.observers[:0]
	for _, o := range c.observers {
		if o.task != t {
			kept = append(kept, o)
		}
	}
	c.observers = kept
}
