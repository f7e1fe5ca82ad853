package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/common/validation"
)

// New creates a worker pool with the given worker count and queue size.
// Panics on invalid parameters; use NewWithConfig for error handling.
func New(workerCount, queueSize int) Pool {
	pool, err := NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
	if err != nil {
		panic(err)
	}
	return pool
}

// NewWithConfig creates a worker pool with custom configuration.
func NewWithConfig(config Config) (Pool, error) {
	if err := validation.ValidatePositive("executor", "workerCount", config.WorkerCount); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("executor", "queueSize", config.QueueSize); err != nil {
		return nil, err
	}

	p := &workerPool{
		config:     config,
		queue:      make(chan submission, config.QueueSize),
		shutdownCh: make(chan struct{}),
	}

	p.workers = make([]*worker, config.WorkerCount)
	for i := range p.workers {
		w := &worker{
			id:     i,
			pool:   p,
			stopCh: make(chan struct{}),
		}
		p.workers[i] = w
		p.workerWg.Add(1)
		go w.run()
	}

	return p, nil
}

// Submit queues call for execution with its completion callback.
func (p *workerPool) Submit(call Call, done func(interface{}, error)) error {
	if call == nil {
		return fmt.Errorf("submit: call cannot be nil")
	}
	if done == nil {
		return fmt.Errorf("submit: done callback cannot be nil")
	}

	p.mu.RLock()
	isShutdown := p.isShutdown
	p.mu.RUnlock()
	if isShutdown {
		return fmt.Errorf("submit: %w", glerrors.ErrShutdown)
	}

	atomic.AddInt64(&p.submitted, 1)
	select {
	case p.queue <- submission{call: call, done: done}:
		return nil
	case <-p.shutdownCh:
		atomic.AddInt64(&p.submitted, -1)
		return fmt.Errorf("submit: %w", glerrors.ErrShutdown)
	}
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	done := make(chan struct{})

	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		close(p.shutdownCh)
		for i := range p.workers {
			close(p.workers[i].stopCh)
		}

		go func() {
			p.workerWg.Wait()
			// Fail anything still queued so every submission settles.
			for {
				select {
				case sub := <-p.queue:
					sub.done(nil, glerrors.ErrShutdown)
					atomic.AddInt64(&p.completed, 1)
				default:
					close(done)
					return
				}
			}
		}()
	})

	return done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued calls.
func (p *workerPool) QueueSize() int {
	return len(p.queue)
}

// ActiveWorkers returns the number of workers currently executing calls.
func (p *workerPool) ActiveWorkers() int {
	return int(atomic.LoadInt64(&p.active))
}

// TotalSubmitted returns the total number of calls submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return atomic.LoadInt64(&p.submitted)
}

// TotalCompleted returns the total number of calls completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return atomic.LoadInt64(&p.completed)
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	defer func() {
		if w.pool.config.OnWorkerStop != nil {
			w.pool.config.OnWorkerStop(w.id)
		}
	}()

	for {
		select {
		case <-w.stopCh:
			return
		case sub := <-w.pool.queue:
			w.execute(sub)
		}
	}
}

// execute runs a single call, recovering panics into the reported error.
func (w *worker) execute(sub submission) {
	atomic.AddInt64(&w.pool.active, 1)
	defer atomic.AddInt64(&w.pool.active, -1)

	var value interface{}
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if w.pool.config.PanicHandler != nil {
					w.pool.config.PanicHandler(r)
				}
				err = fmt.Errorf("call panicked: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}()

		ctx := context.Background()
		if w.pool.config.CallTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, w.pool.config.CallTimeout)
			defer cancel()
		}
		value, err = sub.call(ctx)
	}()

	atomic.AddInt64(&w.pool.completed, 1)
	sub.done(value, err)
}
