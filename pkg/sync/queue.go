package sync

import (
	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/loop"
	"github.com/vnykmshr/goloop/pkg/metrics"
)

// Queue is a FIFO queue for passing items between tasks. A bounded queue
// suspends producers at capacity; consumers suspend while the queue is
// empty. Items are delivered in insertion order with no loss or
// duplication.
type Queue struct {
	in         *instrument
	items      []interface{}
	capacity   int // <= 0 means unbounded
	putWaiters []*loop.Task
	getWaiters []*loop.Task
	closed     bool
}

// NewQueue creates a queue. A capacity of 0 or less means unbounded;
// unbounded queues never suspend producers.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// NewQueueWithMetrics creates a queue that reports its wait lists under the
// given primitive name.
func NewQueueWithMetrics(capacity int, name string, cfg metrics.Config) *Queue {
	return &Queue{capacity: capacity, in: newInstrument("queue", name, cfg)}
}

// Put appends item, suspending tk while the queue is at capacity. Returns
// ErrQueueClosed once the queue is closed and ErrCancelled if tk is
// cancelled while waiting for space.
func (q *Queue) Put(tk *loop.Task, item interface{}) error {
	for {
		if q.closed {
			return glerrors.ErrQueueClosed
		}
		if q.capacity <= 0 || len(q.items) < q.capacity {
			break
		}
		q.putWaiters = append(q.putWaiters, tk)
		q.gauge()
		if err := tk.ParkPrimitive("queue"); err != nil {
			q.removePut(tk)
			// Pass a missed wake on so space does not go unclaimed.
			if q.closed || len(q.items) < q.capacity {
				q.wakeOne(&q.putWaiters)
			}
			return err
		}
		q.removePut(tk)
	}
	q.items = append(q.items, item)
	q.wakeOne(&q.getWaiters)
	return nil
}

// Get removes and returns the oldest item, suspending tk while the queue is
// empty. A get that arrives when items are available never suspends.
// Returns ErrQueueClosed once the queue is closed and drained, and
// ErrCancelled if tk is cancelled while waiting.
func (q *Queue) Get(tk *loop.Task) (interface{}, error) {
	for len(q.items) == 0 {
		if q.closed {
			return nil, glerrors.ErrQueueClosed
		}
		q.getWaiters = append(q.getWaiters, tk)
		q.gauge()
		if err := tk.ParkPrimitive("queue"); err != nil {
			q.removeGet(tk)
			if q.closed || len(q.items) > 0 {
				q.wakeOne(&q.getWaiters)
			}
			return nil, err
		}
		q.removeGet(tk)
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.wakeOne(&q.putWaiters)
	return item, nil
}

// TryPut appends item without suspending. Returns false when the queue is
// at capacity, and ErrQueueClosed when closed.
func (q *Queue) TryPut(item interface{}) (bool, error) {
	if q.closed {
		return false, glerrors.ErrQueueClosed
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return false, nil
	}
	q.items = append(q.items, item)
	q.wakeOne(&q.getWaiters)
	return true, nil
}

// TryGet removes the oldest item without suspending. Returns ok=false when
// the queue is empty, and ErrQueueClosed when closed and drained.
func (q *Queue) TryGet() (interface{}, bool, error) {
	if len(q.items) == 0 {
		if q.closed {
			return nil, false, glerrors.ErrQueueClosed
		}
		return nil, false, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.wakeOne(&q.putWaiters)
	return item, true, nil
}

// Close marks the queue closed and wakes every waiter. Pending items remain
// retrievable; puts fail immediately, gets fail once the queue is drained.
func (q *Queue) Close() {
	if q.closed {
		return
	}
	q.closed = true
	for _, w := range q.putWaiters {
		w.Scheduler().Wake(w)
	}
	for _, w := range q.getWaiters {
		w.Scheduler().Wake(w)
	}
	q.putWaiters = nil
	q.getWaiters = nil
	q.gauge()
}

// Len returns the number of queued items.
func (q *Queue) Len() int { return len(q.items) }

// Cap returns the capacity bound, or 0 for unbounded.
func (q *Queue) Cap() int {
	if q.capacity <= 0 {
		return 0
	}
	return q.capacity
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool { return q.closed }

func (q *Queue) wakeOne(list *[]*loop.Task) {
	if len(*list) == 0 {
		return
	}
	next := (*list)[0]
	*list = (*list)[1:]
	q.gauge()
	q.in.wakeup()
	next.Scheduler().Wake(next)
}

func (q *Queue) removePut(tk *loop.Task) {
	for i, w := range q.putWaiters {
		if w == tk {
			q.putWaiters = append(q.putWaiters[:i], q.putWaiters[i+1:]...)
			break
		}
	}
	q.gauge()
}

func (q *Queue) removeGet(tk *loop.Task) {
	for i, w := range q.getWaiters {
		if w == tk {
			q.getWaiters = append(q.getWaiters[:i], q.getWaiters[i+1:]...)
			break
		}
	}
	q.gauge()
}

func (q *Queue) gauge() {
	q.in.waiters(len(q.putWaiters) + len(q.getWaiters))
}
