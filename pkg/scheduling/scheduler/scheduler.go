package scheduler

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/common/validation"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/stats"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/workerpool"
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	// Ready accepts submissions and runs.
	Ready State = iota
	// Running means a run is executing on the worker pool.
	Running
	// Idle follows a completed run. Submitting moves back to Ready.
	Idle
	// Destroyed is terminal. Every operation fails with ErrUseAfterDestroy.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Idle:
		return "idle"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds scheduler configuration.
type Config struct {
	// Name labels log lines and metrics. Default "scheduler".
	Name string

	// Threads is the number of workers. Must be positive.
	Threads int

	// Capacity is the maximum number of queued tasks per run. Must be positive.
	Capacity int

	// Policy selects the partitioning policy.
	Policy policy.Kind

	// PolicyOptions tune Guided and Adaptive. Zero values select defaults.
	PolicyOptions policy.Options

	// PinWorkers pins each worker to an OS thread and CPU.
	PinWorkers bool

	// PanicHandler is called with the record and recovered value when a task
	// panics. The task still counts as completed.
	PanicHandler func(rec task.Record, recovered interface{})

	// Logger receives debug run events and recovered panics. Nil discards.
	Logger *zerolog.Logger

	// Metrics configures Prometheus instrumentation. Disabled by default.
	Metrics metrics.Config
}

// Scheduler executes batches of submitted tasks across a fixed worker pool
// using one partitioning policy.
//
// Submit, Run and Destroy may be called from different goroutines but never
// overlap with a run: Submit and Destroy fail with ErrConcurrentRun while a
// run is in progress and a second Run fails the same way.
type Scheduler struct {
	name         string
	threads      int
	policy       policy.Policy
	queue        *task.Queue
	agg          *stats.Aggregator
	pool         *workerpool.MetricsPool
	logger       zerolog.Logger
	panicHandler func(task.Record, interface{})

	mu      sync.Mutex
	state   State
	pending *barrier

	metricsMu sync.RWMutex
	registry  *metrics.Registry
	metricsOn bool
}

// New creates a scheduler with threads workers, room for capacity tasks per
// run and the given policy.
func New(threads, capacity int, kind policy.Kind) (*Scheduler, error) {
	return NewWithConfig(Config{
		Threads:  threads,
		Capacity: capacity,
		Policy:   kind,
	})
}

// NewWithConfig creates a scheduler from cfg. It fails with an error
// wrapping ErrInvalidConfiguration before any worker is started if the
// configuration is invalid.
func NewWithConfig(cfg Config) (*Scheduler, error) {
	if cfg.Name == "" {
		cfg.Name = "scheduler"
	}
	if err := validation.ValidatePositive("scheduler", "threads", cfg.Threads); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("scheduler", "capacity", cfg.Capacity); err != nil {
		return nil, err
	}

	pol, err := policy.New(cfg.Policy, cfg.PolicyOptions)
	if err != nil {
		return nil, err
	}

	queue, err := task.NewQueue(cfg.Capacity)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().
		Str("scheduler", cfg.Name).
		Str("policy", pol.Kind().String()).
		Logger()

	s := &Scheduler{
		name:         cfg.Name,
		threads:      cfg.Threads,
		policy:       pol,
		queue:        queue,
		agg:          stats.NewAggregator(cfg.Threads),
		logger:       logger,
		panicHandler: cfg.PanicHandler,
		state:        Ready,
		pending:      newBarrier(),
	}

	// Pool collectors are toggled together with the scheduler's in EnableMetrics.
	s.pool = workerpool.NewWithConfigAndMetrics(workerpool.Config{
		WorkerCount: cfg.Threads,
		PinWorkers:  cfg.PinWorkers,
		PanicHandler: func(workerID int, recovered interface{}) {
			s.logger.Error().Int("worker", workerID).Interface("panic", recovered).Msg("worker body panicked")
		},
		OnPinError: func(workerID int, err error) {
			s.logger.Warn().Err(err).Int("worker", workerID).Msg("cpu pinning failed")
		},
	}, cfg.Name, metrics.Config{})

	if err := s.EnableMetrics(cfg.Metrics); err != nil {
		<-s.pool.Shutdown()
		return nil, err
	}

	return s, nil
}

// Submit queues fn with the given weight and returns its id within the next
// run. It fails with ErrCapacityExceeded when the queue is full, leaving the
// queue unchanged.
func (s *Scheduler) Submit(fn task.Func, weight task.Weight) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUsable("Submit"); err != nil {
		return -1, err
	}

	id, err := s.queue.Append(fn, weight)
	if err != nil {
		return -1, aserrors.NewOperationError("scheduler", "Submit", err).WithContext(s.name)
	}

	s.pending.add()
	s.state = Ready

	if reg, ok := s.currentMetrics(); ok {
		reg.TasksSubmitted.WithLabelValues(s.name).Inc()
		reg.ActiveTasks.WithLabelValues(s.name).Inc()
	}
	return id, nil
}

// Destroy shuts down the worker pool and frees the queue. Tasks still queued
// are dropped and counted as skipped. Destroy fails with ErrConcurrentRun
// during a run and with ErrUseAfterDestroy when repeated.
func (s *Scheduler) Destroy() error {
	s.mu.Lock()
	if err := s.checkUsable("Destroy"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = Destroyed
	dropped := s.queue.Drain()
	s.queue.Release()
	s.mu.Unlock()

	if n := len(dropped); n > 0 {
		s.agg.AddSkipped(n)
		s.pending.doneN(n)
		s.logger.Debug().Int("tasks", n).Msg("dropped queued tasks on destroy")
	}

	<-s.pool.Shutdown()

	if reg, ok := s.currentMetrics(); ok {
		reg.ActiveTasks.WithLabelValues(s.name).Set(0)
		if n := len(dropped); n > 0 {
			reg.TasksSkipped.WithLabelValues(s.name).Add(float64(n))
		}
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of submitted tasks that have not completed.
func (s *Scheduler) Pending() int {
	return int(s.pending.count())
}

// Queued returns the number of tasks waiting for the next run.
func (s *Scheduler) Queued() int {
	return s.queue.Len()
}

// Capacity returns the per-run queue capacity.
func (s *Scheduler) Capacity() int {
	return s.queue.Cap()
}

// Threads returns the worker count.
func (s *Scheduler) Threads() int {
	return s.threads
}

// Policy returns the configured policy kind.
func (s *Scheduler) Policy() policy.Kind {
	return s.policy.Kind()
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string {
	return s.name
}

// checkUsable rejects operations on a destroyed or running scheduler.
// Callers hold s.mu.
func (s *Scheduler) checkUsable(op string) error {
	switch s.state {
	case Destroyed:
		return aserrors.NewOperationError("scheduler", op, aserrors.ErrUseAfterDestroy).WithContext(s.name)
	case Running:
		return aserrors.NewOperationError("scheduler", op, aserrors.ErrConcurrentRun).WithContext(s.name)
	}
	return nil
}
