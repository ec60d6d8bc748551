package workerpool

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool Pool
	name string

	mu       sync.RWMutex
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a new worker pool with metrics enabled on a
// dedicated Prometheus registry.
func NewWithMetrics(workerCount int, name string) *MetricsPool {
	return NewWithConfigAndMetrics(Config{WorkerCount: workerCount}, name, metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	})
}

// NewWithConfigAndMetrics creates a new worker pool with custom config and metrics.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) *MetricsPool {
	mp := &MetricsPool{
		pool: NewWithConfig(config),
		name: name,
	}
	_ = mp.EnableMetrics(metricsConfig)
	return mp
}

// Run executes body on every worker, tracking active workers and run counts.
func (mp *MetricsPool) Run(ctx context.Context, body Body) error {
	reg, ok := mp.current()
	if !ok {
		return mp.pool.Run(ctx, body)
	}

	active := reg.WorkerPoolActive.WithLabelValues(mp.name)
	err := mp.pool.Run(ctx, func(ctx context.Context, workerID int) {
		active.Inc()
		defer active.Dec()
		body(ctx, workerID)
	})
	if err == nil {
		reg.WorkerPoolRuns.WithLabelValues(mp.name).Inc()
	}
	return err
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	if reg, ok := mp.current(); ok {
		reg.WorkerPoolSize.WithLabelValues(mp.name).Set(0)
	}
	return mp.pool.Shutdown()
}

// Size returns the number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// ActiveWorkers returns the number of workers currently executing a body.
func (mp *MetricsPool) ActiveWorkers() int {
	return mp.pool.ActiveWorkers()
}

// TotalRuns returns the number of completed runs.
func (mp *MetricsPool) TotalRuns() int64 {
	return mp.pool.TotalRuns()
}

// EnableMetrics enables metrics collection.
func (mp *MetricsPool) EnableMetrics(config metrics.Config) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.enabled = config.Enabled
	mp.registry = config.Resolve()

	if mp.enabled {
		mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	}
	return nil
}

// DisableMetrics disables metrics collection.
func (mp *MetricsPool) DisableMetrics() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mp *MetricsPool) MetricsEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}

// Registry returns the metrics registry in use.
func (mp *MetricsPool) Registry() *metrics.Registry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.registry
}

func (mp *MetricsPool) current() (*metrics.Registry, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.registry, mp.enabled
}

var (
	_ Pool                   = (*MetricsPool)(nil)
	_ metrics.Instrumentable = (*MetricsPool)(nil)
)
