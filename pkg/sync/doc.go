/*
Package sync provides synchronization primitives that are aware of the
goloop scheduler: waiting on them suspends only the calling task, never the
carrier goroutine, and wakes hand control back through the scheduler's ready
queue.

The primitives exist despite single-carrier execution because task state is
only safe between suspension points. A "read, await, write" sequence
interleaves with other tasks at the await, and a Lock (or Semaphore, or
Cond) protects exactly that window. None of these types protect against
parallel memory access; tasks and primitives of one scheduler must stay on
that scheduler.

All waits are FIFO among waiters of the same kind, and all of them return
ErrCancelled when the waiting task is cancelled, after removing the task
from the wait list. A woken task re-validates its condition before
proceeding, so wakes may safely be spurious.

Scoped helpers (WithLock, WithPermit) guarantee release on every exit path
of the borrowed scope, including cancellation unwind. Prefer them over
manual Acquire/Release pairs.
*/
package sync
