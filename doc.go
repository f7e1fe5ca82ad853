/*
Package goloop provides a cooperative scheduling runtime for Go: a
single-carrier event loop that drives many logical tasks, suspends them at
well-defined points, and resumes them without preemption, together with
loop-aware synchronization primitives and cancellation/timeout support.

Event Loop (pkg/loop):
  - Scheduler: FIFO ready queue, deadline-ordered timer wheel, Run/Spawn
  - Task: resumable unit of computation with Pending/Running/Suspended and
    Completed/Cancelled/Failed terminal states
  - Combinators: Gather, WithTimeout, WaitTimeout

Synchronization (pkg/sync):
  - Lock: FIFO mutual exclusion with direct ownership handoff
  - Queue: bounded/unbounded FIFO queue with put/get suspension
  - Event: one-shot signal flag, broadcast wakeup
  - Cond: condition variable bound to a Lock
  - Semaphore: counting semaphore with direct permit handoff
  - Limiter: token bucket that suspends instead of busy-waiting
  - distributed: Redis-backed Lock and Semaphore for multi-instance use

Blocking Work (pkg/executor):
  - Pool: background worker pool for blocking calls
  - Bridge: offloads a blocking call and resumes the waiting task

Cron (pkg/cron):
  - cron and interval driven task spawning on top of the loop

Example usage:

	import (
		"github.com/vnykmshr/goloop/pkg/loop"
		gosync "github.com/vnykmshr/goloop/pkg/sync"
	)

	s := loop.New()
	result, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		q := gosync.NewQueue(8)
		producer := s.Spawn(func(tk *loop.Task) (interface{}, error) {
			return nil, q.Put(tk, "hello")
		})
		v, err := q.Get(tk)
		if err != nil {
			return nil, err
		}
		if _, err := tk.Await(producer); err != nil {
			return nil, err
		}
		return v, nil
	})
	_ = result
	_ = err
*/
package goloop
