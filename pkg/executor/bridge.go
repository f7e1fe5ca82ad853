package executor

import (
	"github.com/vnykmshr/goloop/pkg/loop"
	"github.com/vnykmshr/goloop/pkg/metrics"
)

// Bridge hands blocking calls from tasks to a worker pool and resumes the
// originating task when the call completes. It is the only point where the
// loop touches real OS-level concurrency.
type Bridge struct {
	s    *loop.Scheduler
	pool Pool

	reg      *metrics.Registry
	poolName string
}

// NewBridge creates a bridge between the scheduler and the pool. The caller
// keeps ownership of the pool and its lifecycle.
func NewBridge(s *loop.Scheduler, pool Pool) *Bridge {
	return &Bridge{s: s, pool: pool}
}

// NewBridgeWithMetrics creates a bridge that counts offloads under the
// given pool name.
func NewBridgeWithMetrics(s *loop.Scheduler, pool Pool, poolName string, cfg metrics.Config) *Bridge {
	return &Bridge{s: s, pool: pool, reg: cfg.Resolve(), poolName: poolName}
}

// Pool returns the bridge's worker pool.
func (b *Bridge) Pool() Pool { return b.pool }

// Offload runs call on the bridge's pool and suspends tk until it
// finishes, then returns the call's outcome. Exactly one resumption occurs
// per call; a panic inside the call comes back as an error, not a crash.
// If tk is cancelled while the call is in flight, Offload returns
// ErrCancelled immediately and the call's eventual result is discarded
// (the call itself keeps running on its worker).
func (b *Bridge) Offload(tk *loop.Task, call Call) (interface{}, error) {
	if b.reg != nil {
		b.reg.ExecutorOffloads.WithLabelValues(b.poolName).Inc()
	}

	comp := tk.External()
	if err := b.pool.Submit(call, func(value interface{}, err error) {
		comp.Resolve(value, err)
	}); err != nil {
		// Settle the completion ourselves so the loop's external-wait
		// accounting stays balanced.
		comp.Resolve(nil, err)
	}
	return comp.Wait()
}

// Proc wraps a blocking call as a task proc, so callers can spawn offloaded
// work directly:
//
//	t := s.Spawn(bridge.Proc(fetch))
func (b *Bridge) Proc(call Call) loop.Proc {
	return func(tk *loop.Task) (interface{}, error) {
		return b.Offload(tk, call)
	}
}
