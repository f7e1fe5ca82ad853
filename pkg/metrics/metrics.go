package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for goloop components.
type Registry struct {
	// Scheduler Metrics
	TasksSpawned     *prometheus.CounterVec
	TasksCompleted   *prometheus.CounterVec
	TasksFailed      *prometheus.CounterVec
	TasksCancelled   *prometheus.CounterVec
	ReadyQueueDepth  *prometheus.GaugeVec
	TimerEntries     *prometheus.GaugeVec
	StepDuration     *prometheus.HistogramVec

	// Primitive Metrics
	PrimitiveWaiters *prometheus.GaugeVec
	PrimitiveWakeups *prometheus.CounterVec

	// Executor Metrics
	ExecutorOffloads *prometheus.CounterVec
	PoolSize         *prometheus.GaugeVec
	PoolActive       *prometheus.GaugeVec
	PoolQueued       *prometheus.GaugeVec
}

// DefaultRegistry is the default metrics registry used by goloop components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Scheduler Metrics
		TasksSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goloop",
				Subsystem: "scheduler",
				Name:      "tasks_spawned_total",
				Help:      "Total number of tasks spawned",
			},
			[]string{"scheduler_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goloop",
				Subsystem: "scheduler",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks that completed normally",
			},
			[]string{"scheduler_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goloop",
				Subsystem: "scheduler",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that terminated with an error",
			},
			[]string{"scheduler_name"},
		),

		TasksCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goloop",
				Subsystem: "scheduler",
				Name:      "tasks_cancelled_total",
				Help:      "Total number of tasks that terminated cancelled",
			},
			[]string{"scheduler_name"},
		),

		ReadyQueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goloop",
				Subsystem: "scheduler",
				Name:      "ready_queue_depth",
				Help:      "Number of tasks currently eligible to run",
			},
			[]string{"scheduler_name"},
		),

		TimerEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goloop",
				Subsystem: "scheduler",
				Name:      "timer_entries",
				Help:      "Number of entries pending in the timer wheel",
			},
			[]string{"scheduler_name"},
		),

		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "goloop",
				Subsystem: "scheduler",
				Name:      "step_duration_seconds",
				Help:      "Duration of a single task resume step",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scheduler_name"},
		),

		// Primitive Metrics
		PrimitiveWaiters: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goloop",
				Subsystem: "sync",
				Name:      "waiters",
				Help:      "Number of tasks suspended on a primitive",
			},
			[]string{"primitive_type", "primitive_name"},
		),

		PrimitiveWakeups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goloop",
				Subsystem: "sync",
				Name:      "wakeups_total",
				Help:      "Total number of wakeups issued by primitives",
			},
			[]string{"primitive_type", "primitive_name"},
		),

		// Executor Metrics
		ExecutorOffloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goloop",
				Subsystem: "executor",
				Name:      "offloads_total",
				Help:      "Total number of blocking calls handed to the bridge",
			},
			[]string{"pool_name"},
		),

		PoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goloop",
				Subsystem: "executor",
				Name:      "pool_size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		PoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goloop",
				Subsystem: "executor",
				Name:      "active_workers",
				Help:      "Number of workers currently executing calls",
			},
			[]string{"pool_name"},
		),

		PoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "goloop",
				Subsystem: "executor",
				Name:      "queued_calls",
				Help:      "Number of calls queued and not yet picked up",
			},
			[]string{"pool_name"},
		),
	}
}
