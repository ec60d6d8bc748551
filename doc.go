/*
Package adaptsched is an adaptive task execution engine. It runs batches of
weighted tasks across a fixed set of workers under a chosen partitioning
policy and reports how evenly the work was spread.

Engine (pkg/scheduling):
  - scheduler: submit, run, wait and destroy with a checked lifecycle
  - policy: Static, Dynamic, Guided, Heterogeneous and Adaptive
  - workerpool: persistent, optionally CPU-pinned workers
  - stats: completed tasks, execution and idle time, load balance
  - recurring: cron and interval triggers

Support (pkg):
  - metrics: Prometheus collectors
  - common/errors, common/validation, common/context

The adaptsched command (cmd/adaptsched) sweeps thread counts, policies and
workloads and writes CSV reports, optionally publishing them to Redis.

Example usage:

	import (
		"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
		"github.com/vnykmshr/adaptsched/pkg/scheduling/scheduler"
		"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
	)

	s, _ := scheduler.New(8, 10000, policy.Adaptive)
	defer s.Destroy()

	s.Submit(work, task.Heavy)
	s.Run()
	s.Wait()
*/
package adaptsched
