/*
Package scheduler provides the adaptive task-execution engine: a bounded
queue of weighted tasks, a fixed worker pool, one partitioning policy and a
metrics aggregator, tied together by a strict lifecycle.

Basic Usage:

	sched, err := scheduler.New(4, 1000, policy.Guided)
	if err != nil {
		return err
	}
	defer sched.Destroy()

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		if _, err := sched.Submit(func() { counter.Add(1) }, task.Light); err != nil {
			return err
		}
	}

	if err := sched.Run(); err != nil {
		return err
	}
	if err := sched.Wait(); err != nil {
		return err
	}

	snap, _ := sched.Metrics()
	fmt.Println(snap.Completed, snap.AvgExecTime())

Lifecycle:

	Ready --Submit--> Ready --Run--> Running --workers done--> Idle
	Idle --Submit--> Ready
	Ready|Idle --Destroy--> Destroyed

Submit and Destroy fail with ErrConcurrentRun while a run is in progress, as
does a second concurrent Run. After Destroy every call fails with
ErrUseAfterDestroy. Each Run consumes the whole queue; the next batch starts
again at id 0 with full capacity.

Policies:

The policy is fixed at construction (see package policy): Static, Dynamic,
Guided, Heterogeneous, or Adaptive, which runs as Heterogeneous unless
PolicyOptions.SelectByVariance asks it to pick one of the others per batch
from the weight distribution.

Completion Barrier:

Wait blocks until every submitted task has completed. The worker whose
completion brings the pending count to zero closes a channel the waiters
select on, so once Wait returns every metric update made by those tasks is
visible. With nothing pending Wait returns immediately; with tasks queued
but no run, it blocks until a run completes them or its context ends.

Panics and Cancellation:

A panicking task is recovered, logged, passed to Config.PanicHandler and
counted in Snapshot.Panics; it still counts as completed so Wait cannot hang.
RunContext checks its context between tasks. Tasks that never started are
counted as skipped and the returned error wraps ctx.Err().

Metrics:

Metrics returns a stats.Snapshot accumulated across runs until ResetMetrics.
With Config.Metrics enabled the scheduler also reports to Prometheus, see
package metrics.
*/
package scheduler
