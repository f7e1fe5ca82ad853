package executor

import (
	"github.com/vnykmshr/goloop/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool Pool
	name string
	reg  *metrics.Registry
}

// NewWithMetrics creates a new worker pool with metrics enabled.
func NewWithMetrics(workerCount int, name string) Pool {
	return NewPoolWithMetrics(New(workerCount, 0), name, metrics.DefaultConfig())
}

// NewPoolWithMetrics wraps an existing pool with metrics collection.
func NewPoolWithMetrics(pool Pool, name string, cfg metrics.Config) Pool {
	reg := cfg.Resolve()
	if reg == nil {
		return pool
	}
	mp := &MetricsPool{pool: pool, name: name, reg: reg}
	mp.update()
	return mp
}

// update refreshes the current state gauges.
func (mp *MetricsPool) update() {
	mp.reg.PoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	mp.reg.PoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	mp.reg.PoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Submit queues call for execution.
func (mp *MetricsPool) Submit(call Call, done func(interface{}, error)) error {
	err := mp.pool.Submit(call, func(value interface{}, callErr error) {
		done(value, callErr)
		mp.update()
	})
	mp.update()
	return err
}

// Shutdown initiates a graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// Size returns the number of workers in the pool.
func (mp *MetricsPool) Size() int { return mp.pool.Size() }

// QueueSize returns the current number of queued calls.
func (mp *MetricsPool) QueueSize() int { return mp.pool.QueueSize() }

// ActiveWorkers returns the number of workers currently executing calls.
func (mp *MetricsPool) ActiveWorkers() int { return mp.pool.ActiveWorkers() }

// TotalSubmitted returns the total number of calls submitted to the pool.
func (mp *MetricsPool) TotalSubmitted() int64 { return mp.pool.TotalSubmitted() }

// TotalCompleted returns the total number of calls completed by the pool.
func (mp *MetricsPool) TotalCompleted() int64 { return mp.pool.TotalCompleted() }
