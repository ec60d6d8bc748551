// Package metrics provides Prometheus instrumentation for adaptsched components.
//
// # Overview
//
// The scheduler and the worker pool report through a shared Registry of
// collectors:
//   - Task flow (submitted, completed, panicked, skipped tasks and durations)
//   - Runs (count and wall time per policy)
//   - Load distribution (per-worker task counts and fairness)
//   - Worker pools (pool size, active workers, runs)
//
// # Quick Start
//
//	sched, _ := scheduler.NewWithConfig(scheduler.Config{
//		Name:    "batch",
//		Threads: 8,
//		Capacity: 1000,
//		Policy:  policy.Guided,
//		Metrics: metrics.DefaultConfig(),
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Custom Registry
//
// Collectors are registered once per registerer. RegistryFor caches the
// Registry per registerer so several schedulers can share one:
//
//	reg := prometheus.NewRegistry()
//	cfg := metrics.Config{Enabled: true, Registry: reg}
//
// # Available Metrics
//
//   - adaptsched_scheduler_tasks_submitted_total{scheduler_name}
//   - adaptsched_scheduler_tasks_completed_total{scheduler_name}
//   - adaptsched_scheduler_task_panics_total{scheduler_name}
//   - adaptsched_scheduler_tasks_skipped_total{scheduler_name}
//   - adaptsched_scheduler_task_duration_seconds{scheduler_name,weight}
//   - adaptsched_scheduler_runs_total{scheduler_name,policy}
//   - adaptsched_scheduler_run_duration_seconds{scheduler_name,policy}
//   - adaptsched_scheduler_active_tasks{scheduler_name}
//   - adaptsched_scheduler_queue_claims_total{scheduler_name}
//   - adaptsched_scheduler_load_fairness{scheduler_name}
//   - adaptsched_scheduler_worker_tasks{scheduler_name,worker}
//   - adaptsched_workerpool_size{pool_name}
//   - adaptsched_workerpool_active_workers{pool_name}
//   - adaptsched_workerpool_runs_total{pool_name}
//
// # Runtime Control
//
// Components implementing Instrumentable can be switched at runtime:
//
//	sched.DisableMetrics()
//	_ = sched.EnableMetrics(cfg)
package metrics
