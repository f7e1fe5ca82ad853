package loop

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/goloop/internal/testutil"
	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "pending"},
		{StateRunning, "running"},
		{StateSuspended, "suspended"},
		{StateCompleted, "completed"},
		{StateCancelled, "cancelled"},
		{StateFailed, "failed"},
		{State(99), "state(99)"},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, tt.state.String(), tt.want)
	}
}

func TestStateTerminal(t *testing.T) {
	for _, st := range []State{StatePending, StateRunning, StateSuspended} {
		testutil.AssertEqual(t, st.Terminal(), false)
	}
	for _, st := range []State{StateCompleted, StateCancelled, StateFailed} {
		testutil.AssertEqual(t, st.Terminal(), true)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := New()
	var pendingSeen, suspendedSeen bool
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		child := s.Spawn(func(tk *Task) (interface{}, error) {
			return "done", tk.Sleep(5 * time.Millisecond)
		})
		pendingSeen = child.State() == StatePending
		if err := tk.Sleep(time.Millisecond); err != nil {
			return nil, err
		}
		suspendedSeen = child.State() == StateSuspended
		return tk.Await(child)
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, pendingSeen, true)
	testutil.AssertEqual(t, suspendedSeen, true)
}

func TestCancelSuspendedTask(t *testing.T) {
	s := New()
	start := time.Now()
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		child := s.Spawn(func(tk *Task) (interface{}, error) {
			return nil, tk.Sleep(time.Minute)
		})
		if err := tk.Sleep(5 * time.Millisecond); err != nil {
			return nil, err
		}
		child.Cancel()
		_, err := tk.Await(child)
		if child.State() != StateCancelled {
			t.Errorf("child state = %v, want cancelled", child.State())
		}
		if !glerrors.IsCancelled(err) {
			t.Errorf("child err = %v, want ErrCancelled", err)
		}
		return nil, nil
	})
	testutil.AssertNoError(t, err)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancel did not interrupt the sleep, took %v", elapsed)
	}
}

func TestCancelTerminalTaskIsNoop(t *testing.T) {
	s := New()
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		child := s.Spawn(func(tk *Task) (interface{}, error) {
			return "v", nil
		})
		v, err := tk.Await(child)
		if err != nil {
			return nil, err
		}
		child.Cancel()
		if child.State() != StateCompleted {
			t.Errorf("child state = %v, want completed", child.State())
		}
		return v, nil
	})
	testutil.AssertNoError(t, err)
}

func TestCancelledProcSettlesCancelled(t *testing.T) {
	s := New()
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		child := s.Spawn(func(tk *Task) (interface{}, error) {
			// Swallows the cancellation and returns normally anyway.
			_ = tk.Sleep(time.Minute)
			return "ignored", nil
		})
		if err := tk.Sleep(time.Millisecond); err != nil {
			return nil, err
		}
		child.Cancel()
		_, err := tk.Await(child)
		if child.State() != StateCancelled {
			t.Errorf("child state = %v, want cancelled", child.State())
		}
		if !glerrors.IsCancelled(err) {
			t.Errorf("child err = %v, want ErrCancelled", err)
		}
		return nil, nil
	})
	testutil.AssertNoError(t, err)
}

func TestSuppressCancel(t *testing.T) {
	s := New()
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		child := s.Spawn(func(tk *Task) (interface{}, error) {
			if err := tk.Sleep(time.Minute); glerrors.IsCancelled(err) {
				tk.SuppressCancel()
				return "partial result", nil
			}
			return nil, errors.New("sleep was not cancelled")
		})
		if err := tk.Sleep(time.Millisecond); err != nil {
			return nil, err
		}
		child.Cancel()
		v, err := tk.Await(child)
		if err != nil {
			t.Errorf("await after suppress: %v", err)
		}
		if child.State() != StateCompleted {
			t.Errorf("child state = %v, want completed", child.State())
		}
		if v != "partial result" {
			t.Errorf("value = %v, want partial result", v)
		}
		return nil, nil
	})
	testutil.AssertNoError(t, err)
}

func TestPanicBecomesFailure(t *testing.T) {
	s := New()
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		child := s.Spawn(func(tk *Task) (interface{}, error) {
			panic("kaboom")
		})
		_, err := tk.Await(child)
		if child.State() != StateFailed {
			t.Errorf("child state = %v, want failed", child.State())
		}
		if err == nil || !strings.Contains(err.Error(), "kaboom") {
			t.Errorf("err = %v, want panic message", err)
		}
		return nil, nil
	})
	testutil.AssertNoError(t, err)
}

func TestAwaitSelf(t *testing.T) {
	s := New()
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		return tk.Await(tk)
	})
	testutil.AssertError(t, err)
}

func TestOnDone(t *testing.T) {
	s := New()
	var calls []string
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		child := s.Spawn(func(tk *Task) (interface{}, error) {
			return nil, tk.Sleep(time.Millisecond)
		})
		child.OnDone(func(*Task) { calls = append(calls, "first") })
		child.OnDone(func(*Task) { calls = append(calls, "second") })
		if _, err := tk.Await(child); err != nil {
			return nil, err
		}
		// Terminal task invokes the callback immediately.
		child.OnDone(func(*Task) { calls = append(calls, "late") })
		return nil, nil
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(calls), 3)
	testutil.AssertEqual(t, calls[0], "first")
	testutil.AssertEqual(t, calls[1], "second")
	testutil.AssertEqual(t, calls[2], "late")
}

func TestSleepZeroAndNegative(t *testing.T) {
	s := New()
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		if err := tk.Sleep(0); err != nil {
			return nil, err
		}
		return nil, tk.Sleep(-time.Second)
	})
	testutil.AssertNoError(t, err)
}

func TestErrByTerminalState(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		ok := s.Spawn(func(tk *Task) (interface{}, error) { return 1, nil })
		bad := s.Spawn(func(tk *Task) (interface{}, error) { return nil, boom })
		gone := s.Spawn(func(tk *Task) (interface{}, error) {
			return nil, tk.Sleep(time.Minute)
		})
		gone.Cancel()
		outcomes, err := GatherAll(tk, ok, bad, gone)
		if err != nil {
			return nil, err
		}
		if outcomes[0].Err != nil || ok.Err() != nil {
			t.Errorf("completed task reported error: %v", outcomes[0].Err)
		}
		if !errors.Is(bad.Err(), boom) {
			t.Errorf("bad.Err() = %v, want %v", bad.Err(), boom)
		}
		if !glerrors.IsCancelled(gone.Err()) {
			t.Errorf("gone.Err() = %v, want ErrCancelled", gone.Err())
		}
		return nil, nil
	})
	testutil.AssertNoError(t, err)
}
