package executor

import (
	"context"
	"sync"
	"time"
)

// Call represents a blocking unit of work executed on a pool worker.
// It should respect context cancellation and return any error encountered.
type Call func(ctx context.Context) (interface{}, error)

// Pool represents a worker pool that executes blocking calls concurrently.
type Pool interface {
	// Submit queues call for execution. done is invoked exactly once with
	// the call's outcome, from the worker goroutine that ran it. Returns
	// an error if the pool is shut down or the submission cannot be queued.
	Submit(call Call, done func(value interface{}, err error)) error

	// Shutdown initiates a graceful shutdown of the pool. No new calls are
	// accepted; calls already picked up complete, and calls still queued
	// are failed with ErrShutdown. Returns a channel that closes when
	// shutdown is complete.
	Shutdown() <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued calls waiting for a worker.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing calls.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of calls submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of calls completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of calls that can be queued.
	// If 0, submissions block until a worker is free.
	QueueSize int

	// CallTimeout is the default deadline applied to each call's context.
	// Zero means no timeout.
	CallTimeout time.Duration

	// PanicHandler is called when a call panics during execution.
	// The panic is always recovered and reported through done as an error;
	// the handler is for additional diagnostics.
	PanicHandler func(recovered interface{})

	// OnWorkerStart is called when a worker starts.
	// Useful for per-worker initialization (e.g., database connections).
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	// Useful for per-worker cleanup.
	OnWorkerStop func(workerID int)
}

type submission struct {
	call Call
	done func(interface{}, error)
}

// workerPool is the default Pool implementation.
type workerPool struct {
	config Config

	queue      chan submission
	shutdownCh chan struct{}

	mu           sync.RWMutex
	isShutdown   bool
	shutdownOnce sync.Once

	workers  []*worker
	workerWg sync.WaitGroup

	active    int64
	submitted int64
	completed int64
}

type worker struct {
	id     int
	pool   *workerPool
	stopCh chan struct{}
}
