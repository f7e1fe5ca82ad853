package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/goloop/internal/testutil"
	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
)

func TestNewWithConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{WorkerCount: 2, QueueSize: 10}, false},
		{"zero workers", Config{WorkerCount: 0, QueueSize: 10}, true},
		{"negative workers", Config{WorkerCount: -1, QueueSize: 10}, true},
		{"negative queue", Config{WorkerCount: 2, QueueSize: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewWithConfig(tt.config)
			if tt.wantErr {
				testutil.AssertError(t, err)
				return
			}
			testutil.AssertNoError(t, err)
			<-p.Shutdown()
		})
	}
}

func TestPoolExecutesSubmissions(t *testing.T) {
	p := New(3, 10)
	defer func() { <-p.Shutdown() }()

	var wg sync.WaitGroup
	var sum int64
	for i := 1; i <= 10; i++ {
		i := i
		wg.Add(1)
		err := p.Submit(func(ctx context.Context) (interface{}, error) {
			return i, nil
		}, func(v interface{}, err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("submission %d: %v", i, err)
				return
			}
			atomic.AddInt64(&sum, int64(v.(int)))
		})
		testutil.AssertNoError(t, err)
	}
	wg.Wait()
	testutil.AssertEqual(t, atomic.LoadInt64(&sum), int64(55))
	testutil.AssertEqual(t, p.TotalSubmitted(), int64(10))
	testutil.AssertEqual(t, p.TotalCompleted(), int64(10))
}

func TestPoolNilArguments(t *testing.T) {
	p := New(1, 1)
	defer func() { <-p.Shutdown() }()

	err := p.Submit(nil, func(interface{}, error) {})
	testutil.AssertError(t, err)
	err = p.Submit(func(ctx context.Context) (interface{}, error) { return nil, nil }, nil)
	testutil.AssertError(t, err)
}

func TestPoolPanicRecovery(t *testing.T) {
	var recovered interface{}
	p, err := NewWithConfig(Config{
		WorkerCount: 1,
		QueueSize:   1,
		PanicHandler: func(r interface{}) {
			recovered = r
		},
	})
	testutil.AssertNoError(t, err)
	defer func() { <-p.Shutdown() }()

	done := make(chan error, 1)
	err = p.Submit(func(ctx context.Context) (interface{}, error) {
		panic("worker panic")
	}, func(v interface{}, err error) {
		done <- err
	})
	testutil.AssertNoError(t, err)

	callErr := <-done
	testutil.AssertError(t, callErr)
	if !strings.Contains(callErr.Error(), "worker panic") {
		t.Errorf("error %q does not mention the panic", callErr)
	}
	testutil.AssertEqual(t, recovered.(string), "worker panic")
}

func TestPoolCallTimeout(t *testing.T) {
	p, err := NewWithConfig(Config{
		WorkerCount: 1,
		QueueSize:   1,
		CallTimeout: 10 * time.Millisecond,
	})
	testutil.AssertNoError(t, err)
	defer func() { <-p.Shutdown() }()

	done := make(chan error, 1)
	err = p.Submit(func(ctx context.Context) (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return nil, errors.New("timeout never fired")
		}
	}, func(v interface{}, err error) {
		done <- err
	})
	testutil.AssertNoError(t, err)

	if callErr := <-done; !errors.Is(callErr, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", callErr)
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := New(1, 1)
	<-p.Shutdown()

	err := p.Submit(func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, func(interface{}, error) {})
	if !errors.Is(err, glerrors.ErrShutdown) {
		t.Fatalf("got %v, want ErrShutdown", err)
	}
}

func TestPoolShutdownSettlesQueuedWork(t *testing.T) {
	p := New(1, 4)

	block := make(chan struct{})
	var settled int64
	// Occupy the single worker, then queue more work behind it.
	_ = p.Submit(func(ctx context.Context) (interface{}, error) {
		<-block
		return nil, nil
	}, func(interface{}, error) { atomic.AddInt64(&settled, 1) })
	for i := 0; i < 3; i++ {
		_ = p.Submit(func(ctx context.Context) (interface{}, error) {
			return nil, nil
		}, func(v interface{}, err error) { atomic.AddInt64(&settled, 1) })
	}

	shutdownDone := p.Shutdown()
	close(block)
	<-shutdownDone

	// Every accepted submission gets its callback, run or failed.
	testutil.AssertEqual(t, atomic.LoadInt64(&settled), int64(4))
}

func TestPoolAccessors(t *testing.T) {
	p := New(2, 8)
	defer func() { <-p.Shutdown() }()

	testutil.AssertEqual(t, p.Size(), 2)
	testutil.AssertEqual(t, p.QueueSize(), 0)
	testutil.AssertEqual(t, p.ActiveWorkers(), 0)
}

func TestNewPanicsOnInvalidArguments(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New with zero workers should panic")
		}
	}()
	New(0, 1)
}
