// Package metrics provides Prometheus instrumentation for adaptsched components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "adaptsched"

// Registry holds all metric instances for adaptsched components.
type Registry struct {
	// Scheduler Metrics
	TasksSubmitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TaskPanics     *prometheus.CounterVec
	TasksSkipped   *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	Runs           *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	ActiveTasks    *prometheus.GaugeVec
	QueueClaims    *prometheus.CounterVec
	LoadFairness   *prometheus.GaugeVec
	WorkerTasks    *prometheus.GaugeVec

	// Worker Pool Metrics
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolActive *prometheus.GaugeVec
	WorkerPoolRuns   *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by adaptsched components.
var DefaultRegistry *Registry

var (
	registriesMu sync.Mutex
	registries   = map[prometheus.Registerer]*Registry{}
)

func init() {
	DefaultRegistry = RegistryFor(prometheus.DefaultRegisterer)
}

// RegistryFor returns the Registry bound to reg, creating it on first use.
// Collectors can only be registered once per registerer, so components sharing
// a registerer share the Registry and are told apart by their name label.
func RegistryFor(reg prometheus.Registerer) *Registry {
	registriesMu.Lock()
	defer registriesMu.Unlock()

	if r, ok := registries[reg]; ok {
		return r
	}
	r := NewRegistry(reg)
	registries[reg] = r
	return r
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// It panics if the collectors are already registered with reg; use RegistryFor
// when the registerer may be shared.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Scheduler Metrics
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks submitted",
			},
			[]string{"scheduler_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks whose function returned",
			},
			[]string{"scheduler_name"},
		),

		TaskPanics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "task_panics_total",
				Help:      "Total number of tasks that panicked",
			},
			[]string{"scheduler_name"},
		),

		TasksSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "tasks_skipped_total",
				Help:      "Total number of tasks not started because their run was canceled",
			},
			[]string{"scheduler_name"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"scheduler_name", "weight"},
		),

		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "runs_total",
				Help:      "Total number of runs",
			},
			[]string{"scheduler_name", "policy"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "run_duration_seconds",
				Help:      "Wall time of a run from dispatch to the last worker returning",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scheduler_name", "policy"},
		),

		ActiveTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "active_tasks",
				Help:      "Number of submitted tasks not yet completed",
			},
			[]string{"scheduler_name"},
		),

		QueueClaims: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "queue_claims_total",
				Help:      "Total number of claims on shared task cursors",
			},
			[]string{"scheduler_name"},
		),

		LoadFairness: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "load_fairness",
				Help:      "100 * min / mean tasks per worker, cumulative since the last reset",
			},
			[]string{"scheduler_name"},
		),

		WorkerTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "worker_tasks",
				Help:      "Tasks executed per worker, cumulative since the last reset",
			},
			[]string{"scheduler_name", "worker"},
		),

		// Worker Pool Metrics
		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of workers currently inside a run",
			},
			[]string{"pool_name"},
		),

		WorkerPoolRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "workerpool",
				Name:      "runs_total",
				Help:      "Total number of runs dispatched to the pool",
			},
			[]string{"pool_name"},
		),
	}
}
