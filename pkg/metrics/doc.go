// Package metrics provides Prometheus instrumentation for goloop components.
//
// This package enables monitoring and observability for goloop's event loop,
// synchronization primitives, and executor bridge through Prometheus metrics.
//
// # Overview
//
// The metrics package provides automatic instrumentation for:
//   - Scheduler activity (tasks spawned, completed, failed, cancelled)
//   - Ready queue depth and timer wheel size
//   - Task run-step durations
//   - Primitive wait lists (waiters per primitive, wakeups)
//   - Executor bridge offloads and worker pool state
//
// # Quick Start
//
// Enable metrics by passing a metrics config to the scheduler:
//
//	s := loop.NewWithConfig(loop.Config{
//		Metrics: metrics.DefaultConfig(),
//	})
//
//	// Worker pool with metrics
//	pool := executor.NewWithMetrics(5, "blocking_io")
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	config := metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//	s := loop.NewWithConfig(loop.Config{Metrics: config})
//
// # Available Metrics
//
// ## Scheduler Metrics
//
//   - goloop_scheduler_tasks_spawned_total: Total number of tasks spawned
//   - goloop_scheduler_tasks_completed_total: Tasks that reached Completed
//   - goloop_scheduler_tasks_failed_total: Tasks that reached Failed
//   - goloop_scheduler_tasks_cancelled_total: Tasks that reached Cancelled
//   - goloop_scheduler_ready_queue_depth: Tasks currently eligible to run
//   - goloop_scheduler_timer_entries: Entries pending in the timer wheel
//   - goloop_scheduler_step_duration_seconds: Duration of one resume step
//
// ## Primitive Metrics
//
//   - goloop_sync_waiters: Tasks suspended on a primitive
//   - goloop_sync_wakeups_total: Wakeups issued by primitives
//
// ## Executor Metrics
//
//   - goloop_executor_offloads_total: Blocking calls handed to the bridge
//   - goloop_executor_pool_size: Current worker pool size
//   - goloop_executor_active_workers: Workers currently executing calls
//   - goloop_executor_queued_calls: Calls queued and not yet picked up
//
// # Labels
//
//   - scheduler_name: User-provided name for the scheduler instance
//   - primitive_type: "lock", "queue", "event", "cond", "semaphore", "limiter"
//   - primitive_name: User-provided name for the primitive instance
//   - pool_name: User-provided name for the worker pool instance
package metrics
