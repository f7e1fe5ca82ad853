/*
Package loop implements a cooperative event loop: a single-carrier scheduler
that drives resumable tasks, a FIFO ready queue, and a deadline-ordered
timer wheel.

A task's proc runs on its own goroutine, but the scheduler and the procs
hand a single carrier back and forth, so exactly one proc makes progress at
any instant. Between two suspension points a proc runs uninterrupted; state
shared among tasks of one scheduler only needs protection across suspension
points, never against parallel access.

Basic usage:

	s := loop.New()
	result, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		child := s.Spawn(func(tk *loop.Task) (interface{}, error) {
			if err := tk.Sleep(100 * time.Millisecond); err != nil {
				return nil, err
			}
			return 42, nil
		})
		return tk.Await(child)
	})

Suspension happens only at:

  - tk.Sleep (timer wait)
  - a primitive wait in pkg/sync (tk.ParkPrimitive)
  - an external wait (Completion.Wait, used by pkg/executor)
  - a child join (tk.Await, Gather, WithTimeout, WaitTimeout)

A proc that performs a long synchronous operation without suspending starves
every other task and every timer. Hand such work to pkg/executor instead.

Cancellation is asynchronous relative to the target's control flow: it is
observed as ErrCancelled at the target's next suspension point, never in the
middle of a run step. A cancelled task settles Cancelled; a failed task
stores its error until a joiner retrieves it. Run re-raises the root task's
outcome to the caller.

Timeouts compose the same way: WithTimeout cancels the wrapped task when the
deadline fires and surfaces ErrDeadlineExceeded to the caller.
*/
package loop
