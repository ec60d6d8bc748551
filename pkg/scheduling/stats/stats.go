package stats

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"
)

// Aggregator collects run metrics from concurrently executing workers.
//
// Every mutation is a single atomic operation, so readers polling Snapshot
// during a run see each counter move monotonically forward. A consistent view
// across counters is only guaranteed once the scheduler's completion barrier
// has been observed.
type Aggregator struct {
	completed atomic.Int64
	_         cpu.CacheLinePad
	execNanos atomic.Int64
	_         cpu.CacheLinePad
	claims    atomic.Int64
	_         cpu.CacheLinePad
	idleNanos atomic.Int64
	panics    atomic.Int64
	skipped   atomic.Int64
	runs      atomic.Int64
	runNanos  atomic.Int64

	workers []workerSlot
}

type workerSlot struct {
	executed  atomic.Int64
	busyNanos atomic.Int64
	_         cpu.CacheLinePad
}

// NewAggregator creates an aggregator with one slot per worker.
func NewAggregator(workers int) *Aggregator {
	if workers < 0 {
		workers = 0
	}
	return &Aggregator{workers: make([]workerSlot, workers)}
}

// Workers returns the number of per-worker slots.
func (a *Aggregator) Workers() int {
	return len(a.workers)
}

// Record accounts for one finished task executed by worker in d.
func (a *Aggregator) Record(worker int, d time.Duration) {
	a.execNanos.Add(int64(d))
	a.completed.Add(1)
	if worker >= 0 && worker < len(a.workers) {
		s := &a.workers[worker]
		s.busyNanos.Add(int64(d))
		s.executed.Add(1)
	}
}

// AddClaim counts one claim on a shared cursor.
func (a *Aggregator) AddClaim() {
	a.claims.Add(1)
}

// AddIdle accounts for time a worker spent not executing tasks.
func (a *Aggregator) AddIdle(d time.Duration) {
	if d > 0 {
		a.idleNanos.Add(int64(d))
	}
}

// RecordPanic counts a task whose function panicked.
func (a *Aggregator) RecordPanic() {
	a.panics.Add(1)
}

// AddSkipped counts tasks that never started because their run was canceled.
func (a *Aggregator) AddSkipped(n int) {
	if n > 0 {
		a.skipped.Add(int64(n))
	}
}

// AddRun counts one completed run and its wall time.
func (a *Aggregator) AddRun(elapsed time.Duration) {
	a.runs.Add(1)
	a.runNanos.Add(int64(elapsed))
}

// Busy returns the accumulated execution time of one worker.
func (a *Aggregator) Busy(worker int) time.Duration {
	if worker < 0 || worker >= len(a.workers) {
		return 0
	}
	return time.Duration(a.workers[worker].busyNanos.Load())
}

// Reset zeroes every counter. It must not race with a run.
func (a *Aggregator) Reset() {
	a.completed.Store(0)
	a.execNanos.Store(0)
	a.claims.Store(0)
	a.idleNanos.Store(0)
	a.panics.Store(0)
	a.skipped.Store(0)
	a.runs.Store(0)
	a.runNanos.Store(0)
	for i := range a.workers {
		a.workers[i].executed.Store(0)
		a.workers[i].busyNanos.Store(0)
	}
}

// Snapshot returns a copy of the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	s := Snapshot{
		Completed: a.completed.Load(),
		ExecTime:  time.Duration(a.execNanos.Load()),
		IdleTime:  time.Duration(a.idleNanos.Load()),
		Claims:    a.claims.Load(),
		Panics:    a.panics.Load(),
		Skipped:   a.skipped.Load(),
		Runs:      a.runs.Load(),
		RunTime:   time.Duration(a.runNanos.Load()),
		Workers:   make([]WorkerStats, len(a.workers)),
	}
	for i := range a.workers {
		s.Workers[i] = WorkerStats{
			Executed: a.workers[i].executed.Load(),
			Busy:     time.Duration(a.workers[i].busyNanos.Load()),
		}
	}
	return s
}
