package scheduler

import (
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/stats"
)

// Metrics returns a snapshot of the aggregated run metrics. After Wait has
// returned, the snapshot includes every task of the preceding runs.
// Metrics accumulate across runs until ResetMetrics.
func (s *Scheduler) Metrics() (stats.Snapshot, error) {
	if s.State() == Destroyed {
		return stats.Snapshot{}, aserrors.NewOperationError("scheduler", "Metrics", aserrors.ErrUseAfterDestroy).WithContext(s.name)
	}
	return s.agg.Snapshot(), nil
}

// ResetMetrics zeroes the aggregated metrics. It is rejected during a run.
func (s *Scheduler) ResetMetrics() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUsable("ResetMetrics"); err != nil {
		return err
	}
	s.agg.Reset()
	return nil
}

// EnableMetrics enables Prometheus metrics collection.
func (s *Scheduler) EnableMetrics(config metrics.Config) error {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()

	if err := s.pool.EnableMetrics(config); err != nil {
		return err
	}
	s.metricsOn = config.Enabled
	if !s.metricsOn {
		return nil
	}
	s.registry = config.Resolve()
	s.registry.ActiveTasks.WithLabelValues(s.name).Set(float64(s.Pending()))
	return nil
}

// DisableMetrics disables Prometheus metrics collection.
func (s *Scheduler) DisableMetrics() {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metricsOn = false
	s.pool.DisableMetrics()
}

// MetricsEnabled returns true if metrics are currently enabled.
func (s *Scheduler) MetricsEnabled() bool {
	s.metricsMu.RLock()
	defer s.metricsMu.RUnlock()
	return s.metricsOn
}

func (s *Scheduler) currentMetrics() (*metrics.Registry, bool) {
	s.metricsMu.RLock()
	defer s.metricsMu.RUnlock()
	return s.registry, s.metricsOn && s.registry != nil
}

var _ metrics.Instrumentable = (*Scheduler)(nil)
