package loop

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/goloop/internal/testutil"
	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
)

func TestCompletionFromGoroutine(t *testing.T) {
	s := New()
	v, err := s.Run(func(tk *Task) (interface{}, error) {
		comp := tk.External()
		go func() {
			time.Sleep(10 * time.Millisecond)
			comp.Resolve("external result", nil)
		}()
		return comp.Wait()
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(string), "external result")
}

func TestCompletionError(t *testing.T) {
	s := New()
	boom := errors.New("remote failure")
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		comp := tk.External()
		go func() {
			comp.Resolve(nil, boom)
		}()
		return comp.Wait()
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestCompletionResolvedBeforeWait(t *testing.T) {
	s := New()
	v, err := s.Run(func(tk *Task) (interface{}, error) {
		comp := tk.External()
		comp.Resolve(7, nil)
		return comp.Wait()
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(int), 7)
}

func TestCompletionKeepsLoopAlive(t *testing.T) {
	// With an empty ready queue and no timers, an outstanding completion
	// must hold the loop open instead of stalling it.
	s := New()
	v, err := s.Run(func(tk *Task) (interface{}, error) {
		comp := tk.External()
		go func() {
			time.Sleep(20 * time.Millisecond)
			comp.Resolve(true, nil)
		}()
		return comp.Wait()
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.(bool), true)
}

func TestCancelDuringExternalWait(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		waiter := s.Spawn(func(tk *Task) (interface{}, error) {
			comp := tk.External()
			wg.Add(1)
			go func() {
				defer wg.Done()
				time.Sleep(50 * time.Millisecond)
				comp.Resolve("late", nil)
			}()
			return comp.Wait()
		})
		if err := tk.Sleep(5 * time.Millisecond); err != nil {
			return nil, err
		}
		waiter.Cancel()
		_, err := tk.Await(waiter)
		if !glerrors.IsCancelled(err) {
			t.Errorf("waiter err = %v, want ErrCancelled", err)
		}
		return nil, nil
	})
	testutil.AssertNoError(t, err)
	// The discarded resolution must still be safe after the run ends.
	wg.Wait()
}

func TestDoubleResolveFaults(t *testing.T) {
	s := New()
	var faulted bool
	_, err := s.Run(func(tk *Task) (interface{}, error) {
		comp := tk.External()
		comp.Resolve(1, nil)
		func() {
			defer func() {
				if r := recover(); r != nil {
					_, faulted = r.(glerrors.ConsistencyFault)
				}
			}()
			comp.Resolve(2, nil)
		}()
		return comp.Wait()
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, faulted, true)
}
