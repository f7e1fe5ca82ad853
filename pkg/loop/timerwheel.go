package loop

import "time"

// timerEntry is one pending wake request. Entries for the same deadline fire
// in insertion order, so timer scheduling stays deterministic.
type timerEntry struct {
	deadline time.Time
	seq      uint64
	task     *Task
	gen      uint64
}

// timerWheel is a min-heap of timer entries ordered by (deadline, seq).
// Owned exclusively by the scheduler; callers hold s.mu.
type timerWheel struct {
	entries []timerEntry
	nextSeq uint64
}

func (w *timerWheel) len() int { return len(w.entries) }

func (w *timerWheel) push(e timerEntry) {
	w.nextSeq++
	e.seq = w.nextSeq
	w.entries = append(w.entries, e)
	w.up(len(w.entries) - 1)
}

// peek returns the entry with the minimum deadline without removing it.
func (w *timerWheel) peek() (timerEntry, bool) {
	if len(w.entries) == 0 {
		return timerEntry{}, false
	}
	return w.entries[0], true
}

func (w *timerWheel) pop() (timerEntry, bool) {
	if len(w.entries) == 0 {
		return timerEntry{}, false
	}
	min := w.entries[0]
	last := len(w.entries) - 1
	w.entries[0] = w.entries[last]
	w.entries[last] = timerEntry{}
	w.entries = w.entries[:last]
	if len(w.entries) > 0 {
		w.down(0)
	}
	return min, true
}

func (w *timerWheel) less(i, j int) bool {
	a, b := w.entries[i], w.entries[j]
	if a.deadline.Equal(b.deadline) {
		return a.seq < b.seq
	}
	return a.deadline.Before(b.deadline)
}

func (w *timerWheel) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !w.less(i, parent) {
			break
		}
		w.entries[i], w.entries[parent] = w.entries[parent], w.entries[i]
		i = parent
	}
}

func (w *timerWheel) down(i int) {
	n := len(w.entries)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && w.less(left, smallest) {
			smallest = left
		}
		if right < n && w.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		w.entries[i], w.entries[smallest] = w.entries[smallest], w.entries[i]
		i = smallest
	}
}
