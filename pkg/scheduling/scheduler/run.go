package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// Run executes every queued task and returns once all workers are done.
func (s *Scheduler) Run() error {
	return s.RunContext(context.Background())
}

// RunContext executes every queued task across the worker pool using the
// configured policy. Workers stop between tasks once ctx is done; tasks that
// never started are counted as skipped, released from the pending count and
// reported through an error wrapping ctx.Err().
func (s *Scheduler) RunContext(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if err := s.checkUsable("Run"); err != nil {
		s.mu.Unlock()
		return err
	}
	batch := s.queue.Drain()
	s.state = Running
	s.mu.Unlock()

	if len(batch) == 0 {
		s.setState(Idle)
		return nil
	}

	plan := s.policy.Plan(batch, s.threads)
	reg, instrumented := s.currentMetrics()
	exec := newExecutor(s, reg, instrumented)

	s.logger.Debug().
		Int("tasks", len(batch)).
		Int("threads", s.threads).
		Str("plan", plan.Kind().String()).
		Msg("run started")

	start := time.Now()
	err := s.pool.Run(ctx, func(ctx context.Context, workerID int) {
		began := time.Now()
		plan.Work(ctx, workerID, exec)
		s.agg.AddIdle(time.Since(began) - exec.busy[workerID])
	})
	elapsed := time.Since(start)
	s.agg.AddRun(elapsed)

	executed := int(exec.executed.Load())
	skipped := len(batch) - executed
	if skipped > 0 {
		s.agg.AddSkipped(skipped)
		s.pending.doneN(skipped)
	}

	s.setState(Idle)

	if instrumented {
		s.publishRun(reg, plan.Kind(), elapsed, exec, skipped)
	}

	s.logger.Debug().
		Int("executed", executed).
		Int("skipped", skipped).
		Dur("elapsed", elapsed).
		Msg("run finished")

	if err != nil {
		return aserrors.NewOperationError("scheduler", "Run", err).WithContext(s.name)
	}
	if skipped > 0 {
		cause := ctx.Err()
		if cause == nil {
			cause = fmt.Errorf("%d tasks did not start", skipped)
		}
		return aserrors.NewOperationError("scheduler", "Run", cause).
			WithContext(fmt.Sprintf("%s: %d of %d tasks skipped", s.name, skipped, len(batch)))
	}
	return nil
}

// Wait blocks until every submitted task has completed.
func (s *Scheduler) Wait() error {
	return s.WaitContext(context.Background())
}

// WaitContext blocks until every submitted task has completed or ctx is
// done. When it returns nil, all metric updates made by the completed tasks
// are visible to the caller. With nothing pending it returns immediately.
func (s *Scheduler) WaitContext(ctx context.Context) error {
	if s.State() == Destroyed {
		return aserrors.NewOperationError("scheduler", "Wait", aserrors.ErrUseAfterDestroy).WithContext(s.name)
	}

	if err := s.pending.wait(ctx); err != nil {
		return aserrors.NewOperationError("scheduler", "Wait", err).
			WithContext(fmt.Sprintf("%s: %d tasks pending", s.name, s.Pending()))
	}

	if s.State() == Destroyed {
		return aserrors.NewOperationError("scheduler", "Wait", aserrors.ErrUseAfterDestroy).WithContext(s.name)
	}
	return nil
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// executor implements policy.Executor for one run.
type executor struct {
	s *Scheduler

	// busy[w] is only touched by worker w.
	busy []time.Duration

	executed atomic.Int64
	claims   atomic.Int64
	panics   atomic.Int64

	durations [4]prometheus.Observer
}

func newExecutor(s *Scheduler, reg *metrics.Registry, instrumented bool) *executor {
	e := &executor{
		s:    s,
		busy: make([]time.Duration, s.threads),
	}
	if instrumented {
		for _, w := range task.Weights() {
			e.durations[w] = reg.TaskDuration.WithLabelValues(s.name, w.String())
		}
	}
	return e
}

// Execute runs one task: time it, record it, release it.
func (e *executor) Execute(workerID int, rec task.Record) {
	start := time.Now()
	panicked := e.invoke(workerID, rec)
	d := time.Since(start)

	e.s.agg.Record(workerID, d)
	if panicked {
		e.s.agg.RecordPanic()
		e.panics.Add(1)
	}
	e.busy[workerID] += d
	e.executed.Add(1)

	if rec.Weight.Valid() && e.durations[rec.Weight] != nil {
		e.durations[rec.Weight].Observe(d.Seconds())
	}

	e.s.pending.done()
}

func (e *executor) Claimed(int) {
	e.s.agg.AddClaim()
	e.claims.Add(1)
}

// invoke calls the task function and reports whether it panicked.
func (e *executor) invoke(workerID int, rec task.Record) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			e.s.logger.Error().
				Int("worker", workerID).
				Int("task", rec.ID).
				Str("weight", rec.Weight.String()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("task panicked")
			e.s.handlePanic(rec, r)
		}
	}()

	rec.Fn()
	return false
}

// handlePanic forwards to the configured handler, containing any panic it raises.
func (s *Scheduler) handlePanic(rec task.Record, recovered interface{}) {
	if s.panicHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("panic handler panicked")
		}
	}()
	s.panicHandler(rec, recovered)
}

// publishRun pushes the per-run totals to Prometheus.
func (s *Scheduler) publishRun(reg *metrics.Registry, kind policy.Kind, elapsed time.Duration, exec *executor, skipped int) {
	reg.Runs.WithLabelValues(s.name, kind.String()).Inc()
	reg.RunDuration.WithLabelValues(s.name, kind.String()).Observe(elapsed.Seconds())
	reg.TasksCompleted.WithLabelValues(s.name).Add(float64(exec.executed.Load()))
	reg.QueueClaims.WithLabelValues(s.name).Add(float64(exec.claims.Load()))
	if n := exec.panics.Load(); n > 0 {
		reg.TaskPanics.WithLabelValues(s.name).Add(float64(n))
	}
	if skipped > 0 {
		reg.TasksSkipped.WithLabelValues(s.name).Add(float64(skipped))
	}
	reg.ActiveTasks.WithLabelValues(s.name).Set(float64(s.Pending()))

	snap := s.agg.Snapshot()
	reg.LoadFairness.WithLabelValues(s.name).Set(snap.LoadBalance().Fairness)
	for i, w := range snap.Workers {
		reg.WorkerTasks.WithLabelValues(s.name, strconv.Itoa(i)).Set(float64(w.Executed))
	}
}
