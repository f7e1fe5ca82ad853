package loop

// readyQueue is a FIFO ring buffer of tasks eligible to run now. Insertion
// order is the fairness policy. Owned exclusively by the scheduler; callers
// hold s.mu.
type readyQueue struct {
	buf   []*Task
	head  int
	count int
}

func (q *readyQueue) len() int { return q.count }

func (q *readyQueue) push(t *Task) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = t
	q.count++
}

func (q *readyQueue) pop() (*Task, bool) {
	if q.count == 0 {
		return nil, false
	}
	t := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return t, true
}

func (q *readyQueue) grow() {
	size := len(q.buf) * 2
	if size == 0 {
		size = 8
	}
	buf := make([]*Task, size)
	for i := 0; i < q.count; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
