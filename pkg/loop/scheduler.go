package loop

import (
	"fmt"
	"sync"
	"time"

	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/metrics"
)

// Config holds scheduler configuration.
type Config struct {
	// Name labels this scheduler instance in metrics and hooks.
	Name string

	// Clock provides the scheduler's time source. Defaults to WallClock().
	Clock Clock

	// Metrics enables Prometheus instrumentation for this scheduler.
	Metrics metrics.Config

	// OnTaskStart is called on the carrier just before a task is resumed.
	OnTaskStart func(t *Task)

	// OnTaskFinish is called on the carrier after a task reaches a terminal state.
	OnTaskFinish func(t *Task)

	// OnUnobservedFailure is called when Run returns and a failed task's
	// error was never delivered to a joiner. If nil, such failures are
	// silently dropped.
	OnUnobservedFailure func(t *Task, err error)
}

// Scheduler is a cooperative event loop. It owns a FIFO ready queue and a
// deadline-ordered timer wheel, and drives tasks to completion one resume
// step at a time. Tasks interleave only at suspension points, so state
// shared between tasks of one scheduler needs protection only across those
// points. A scheduler instance must never share tasks or primitives with
// another scheduler.
type Scheduler struct {
	name         string
	clock        Clock
	reg          *metrics.Registry
	onTaskStart  func(*Task)
	onTaskFinish func(*Task)
	onUnobserved func(*Task, error)

	mu       sync.Mutex
	ready    readyQueue
	timers   timerWheel
	extWaits int
	nextID   uint64
	running  bool
	current  *Task
	failed   []*Task
	wakeCh   chan struct{}
}

// New creates a scheduler with default configuration.
func New() *Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = WallClock()
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	return &Scheduler{
		name:         name,
		clock:        clock,
		reg:          cfg.Metrics.Resolve(),
		onTaskStart:  cfg.OnTaskStart,
		onTaskFinish: cfg.OnTaskFinish,
		onUnobserved: cfg.OnUnobservedFailure,
		wakeCh:       make(chan struct{}, 1),
	}
}

// Name returns the scheduler's instance name.
func (s *Scheduler) Name() string { return s.name }

// Clock returns the scheduler's time source.
func (s *Scheduler) Clock() Clock { return s.clock }

// Spawn creates a task for proc and places it on the ready queue without
// running it. Safe to call from task procs and from outside the loop.
func (s *Scheduler) Spawn(proc Proc) *Task {
	s.mu.Lock()
	s.nextID++
	t := &Task{
		id:         s.nextID,
		s:          s,
		proc:       proc,
		state:      StatePending,
		queued:     true,
		wakeReason: wakeNormal,
		resumeCh:   make(chan wakeKind, 1),
		yieldCh:    make(chan bool, 1),
	}
	s.ready.push(t)
	s.mu.Unlock()

	if s.reg != nil {
		s.reg.TasksSpawned.WithLabelValues(s.name).Inc()
	}
	s.gaugeReady()
	s.notify()
	return t
}

// Wake moves a suspended task back to the ready queue with a normal wake
// reason. It is idempotent: waking a task that is already ready, running or
// terminal is a no-op. Safe from any goroutine.
func (s *Scheduler) Wake(t *Task) {
	s.wake(t, wakeNormal)
}

func (s *Scheduler) wake(t *Task, k wakeKind) {
	s.mu.Lock()
	if t.state.Terminal() {
		s.mu.Unlock()
		return
	}
	if t.queued {
		if k == wakeCancel {
			t.wakeReason = wakeCancel
		}
		s.mu.Unlock()
		return
	}
	if t.state != StateSuspended {
		s.mu.Unlock()
		return
	}
	t.queued = true
	t.wakeReason = k
	s.ready.push(t)
	s.mu.Unlock()

	s.gaugeReady()
	s.notify()
}

// Run spawns proc as the root task and drives the loop until it settles.
func (s *Scheduler) Run(proc Proc) (interface{}, error) {
	return s.RunTask(s.Spawn(proc))
}

// RunTask drives the loop until root reaches a terminal state, then returns
// its result, its computation error, or ErrCancelled. The loop blocks the
// calling goroutine, which acts as the single carrier; at most one RunTask
// may be active per scheduler.
func (s *Scheduler) RunTask(root *Task) (interface{}, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		glerrors.Faultf("run", "scheduler %q is already running", s.name)
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if root.state.Terminal() {
			root.observed = true
			v, err := root.result, root.err
			s.mu.Unlock()
			s.reportUnobserved()
			return v, err
		}

		if t, ok := s.ready.pop(); ok {
			s.mu.Unlock()
			s.gaugeReady()
			s.step(t)
			continue
		}

		if e, ok := s.timers.peek(); ok {
			s.mu.Unlock()
			s.idleUntil(e.deadline)
			s.expireTimers()
			continue
		}

		if s.extWaits > 0 {
			s.mu.Unlock()
			<-s.wakeCh
			continue
		}

		s.mu.Unlock()
		s.reportUnobserved()
		return nil, fmt.Errorf("run: %w", glerrors.ErrStalled)
	}
}

// step resumes one task until it suspends again or terminates.
func (s *Scheduler) step(t *Task) {
	s.mu.Lock()
	if t.state == StateRunning {
		s.mu.Unlock()
		glerrors.Faultf("resume", "task %d resumed while already running", t.id)
	}
	if t.state.Terminal() {
		s.mu.Unlock()
		return
	}
	reason := t.wakeReason
	t.wakeReason = wakeNone
	t.queued = false

	// A cancelled task that never started does not get to run its proc.
	if !t.started && t.cancelled {
		s.mu.Unlock()
		t.finish(nil, glerrors.ErrCancelled)
		return
	}

	t.state = StateRunning
	t.suspension = Suspension{}
	s.current = t
	s.mu.Unlock()

	if s.onTaskStart != nil {
		s.onTaskStart(t)
	}
	start := time.Now()

	if !t.started {
		t.started = true
		go t.run()
	} else {
		t.resumeCh <- reason
	}
	terminal := <-t.yieldCh

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.reg != nil {
		s.reg.StepDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	}
	if terminal && s.onTaskFinish != nil {
		s.onTaskFinish(t)
	}
}

// idleUntil blocks the carrier until the deadline or an external wake.
func (s *Scheduler) idleUntil(deadline time.Time) {
	d := deadline.Sub(s.clock.Now())
	if d <= 0 {
		return
	}
	select {
	case <-s.clock.After(d):
	case <-s.wakeCh:
	}
}

// expireTimers moves every entry whose deadline has passed to the ready queue.
func (s *Scheduler) expireTimers() {
	now := s.clock.Now()
	s.mu.Lock()
	for {
		e, ok := s.timers.peek()
		if !ok || e.deadline.After(now) {
			break
		}
		s.timers.pop()
		t := e.task
		// Skip stale entries: the park they were registered for is over.
		if t.state != StateSuspended || t.queued || t.parkGen != e.gen {
			continue
		}
		t.queued = true
		t.wakeReason = wakeNormal
		s.ready.push(t)
	}
	s.mu.Unlock()
	s.gaugeReady()
	s.gaugeTimers()
}

// notify nudges an idle carrier. Never blocks.
func (s *Scheduler) notify() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// reportUnobserved delivers failures nobody joined to the diagnostic hook.
func (s *Scheduler) reportUnobserved() {
	s.mu.Lock()
	var unobserved []*Task
	for _, t := range s.failed {
		if !t.observed {
			unobserved = append(unobserved, t)
		}
	}
	s.failed = nil
	s.mu.Unlock()

	if s.onUnobserved == nil {
		return
	}
	for _, t := range unobserved {
		s.onUnobserved(t, t.Err())
	}
}

func (s *Scheduler) countTerminal(t *Task) {
	if s.reg == nil {
		return
	}
	switch t.State() {
	case StateCompleted:
		s.reg.TasksCompleted.WithLabelValues(s.name).Inc()
	case StateCancelled:
		s.reg.TasksCancelled.WithLabelValues(s.name).Inc()
	case StateFailed:
		s.reg.TasksFailed.WithLabelValues(s.name).Inc()
	}
}

func (s *Scheduler) gaugeReady() {
	if s.reg == nil {
		return
	}
	s.mu.Lock()
	depth := s.ready.len()
	s.mu.Unlock()
	s.reg.ReadyQueueDepth.WithLabelValues(s.name).Set(float64(depth))
}

func (s *Scheduler) gaugeTimers() {
	if s.reg == nil {
		return
	}
	s.mu.Lock()
	n := s.timers.len()
	s.mu.Unlock()
	s.reg.TimerEntries.WithLabelValues(s.name).Set(float64(n))
}
