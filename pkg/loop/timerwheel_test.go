package loop

import (
	"testing"
	"time"
)

func TestTimerWheelOrdering(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var w timerWheel

	a := &Task{id: 1}
	b := &Task{id: 2}
	c := &Task{id: 3}

	w.push(timerEntry{deadline: base.Add(30 * time.Millisecond), task: c})
	w.push(timerEntry{deadline: base.Add(10 * time.Millisecond), task: a})
	w.push(timerEntry{deadline: base.Add(20 * time.Millisecond), task: b})

	want := []*Task{a, b, c}
	for i, wt := range want {
		e, ok := w.pop()
		if !ok {
			t.Fatalf("pop %d: wheel empty", i)
		}
		if e.task != wt {
			t.Errorf("pop %d: got task %d, want %d", i, e.task.id, wt.id)
		}
	}
	if _, ok := w.pop(); ok {
		t.Error("pop on empty wheel should report false")
	}
}

func TestTimerWheelEqualDeadlinesKeepInsertionOrder(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline := base.Add(5 * time.Millisecond)
	var w timerWheel

	for i := uint64(1); i <= 4; i++ {
		w.push(timerEntry{deadline: deadline, task: &Task{id: i}})
	}
	for i := uint64(1); i <= 4; i++ {
		e, ok := w.pop()
		if !ok {
			t.Fatalf("pop %d: wheel empty", i)
		}
		if e.task.id != i {
			t.Errorf("got task %d, want %d", e.task.id, i)
		}
	}
}

func TestTimerWheelPeek(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var w timerWheel

	if _, ok := w.peek(); ok {
		t.Fatal("peek on empty wheel should report false")
	}
	w.push(timerEntry{deadline: base.Add(time.Second), task: &Task{id: 1}})
	w.push(timerEntry{deadline: base, task: &Task{id: 2}})

	e, ok := w.peek()
	if !ok {
		t.Fatal("peek reported empty wheel")
	}
	if e.task.id != 2 {
		t.Errorf("peek returned task %d, want 2", e.task.id)
	}
	if w.len() != 2 {
		t.Errorf("peek changed length to %d", w.len())
	}
}
