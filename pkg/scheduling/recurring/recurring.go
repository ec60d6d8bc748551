package recurring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/common/validation"
)

var (
	// ErrJobExists is returned when scheduling an id that is already in use.
	ErrJobExists = errors.New("job already exists")
	// ErrJobNotFound is returned for operations on an unknown id.
	ErrJobNotFound = errors.New("job not found")
)

const maxIDLength = 255

// Job is one unit of recurring work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

// Entry describes a scheduled job.
type Entry struct {
	ID       string
	NextRun  time.Time
	Interval time.Duration // zero for one-shot and cron jobs
	CronExpr string
	Runs     int
	Created  time.Time
}

// Options tune how a job is triggered.
type Options struct {
	// MaxRuns removes the job after this many triggers. Zero is unlimited.
	MaxRuns int

	// SkipIfStillRunning drops a trigger while the previous one is executing.
	SkipIfStillRunning bool

	// StopOnError removes the job after a failed execution.
	StopOnError bool

	// OnError is called after a failed execution.
	OnError func(id string, err error)

	// OnSkip is called when a trigger is dropped.
	OnSkip func(id string)
}

// Config holds recurring scheduler configuration.
type Config struct {
	Location     *time.Location // cron evaluation zone (default: time.Local)
	TickInterval time.Duration  // how often due jobs are collected (default: 50ms)
	MaxJobs      int            // maximum number of scheduled jobs (default: 1000)
	Logger       *zerolog.Logger
}

type entry struct {
	id       string
	job      Job
	opts     Options
	runAt    time.Time
	interval time.Duration
	cronExpr string
	schedule cron.Schedule
	runs     int
	created  time.Time
	running  atomic.Bool
}

// Scheduler triggers jobs at fixed times, fixed intervals or on cron
// schedules. Each trigger runs the job in its own goroutine; Stop cancels
// their context and waits for them.
type Scheduler struct {
	location     *time.Location
	tickInterval time.Duration
	maxJobs      int
	parser       cron.Parser
	logger       zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	running bool
	stopped bool
	cancel  context.CancelFunc
	loopEnd chan struct{}
	jobs    sync.WaitGroup
}

// New creates a scheduler with default configuration.
func New() *Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) *Scheduler {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 1000
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Scheduler{
		location:     location,
		tickInterval: tick,
		maxJobs:      maxJobs,
		parser:       newParser(),
		logger:       logger.With().Str("component", "recurring").Logger(),
		entries:      make(map[string]*entry),
	}
}

// Schedule runs job once at runAt.
func (s *Scheduler) Schedule(id string, job Job, runAt time.Time) error {
	if runAt.IsZero() {
		return aserrors.NewValidationError("recurring", "runAt", runAt, "must not be zero")
	}
	return s.add(&entry{id: id, job: job, runAt: runAt})
}

// ScheduleAfter runs job once after delay.
func (s *Scheduler) ScheduleAfter(id string, job Job, delay time.Duration) error {
	return s.Schedule(id, job, time.Now().Add(delay))
}

// ScheduleRepeating runs job now and then every interval.
func (s *Scheduler) ScheduleRepeating(id string, job Job, interval time.Duration) error {
	return s.ScheduleRepeatingWithOptions(id, job, interval, Options{})
}

// ScheduleRepeatingWithOptions is ScheduleRepeating with trigger options.
func (s *Scheduler) ScheduleRepeatingWithOptions(id string, job Job, interval time.Duration, opts Options) error {
	if err := validation.ValidatePositive("recurring", "interval", interval); err != nil {
		return err
	}
	return s.add(&entry{id: id, job: job, opts: opts, runAt: time.Now(), interval: interval})
}

func (s *Scheduler) add(e *entry) error {
	if err := validation.ValidateNotEmpty("recurring", "id", e.id); err != nil {
		return err
	}
	if err := validation.ValidateMaxLen("recurring", "id", e.id, maxIDLength); err != nil {
		return err
	}
	if err := validation.ValidateNotNil("recurring", "job", e.job); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("recurring", "MaxRuns", e.opts.MaxRuns); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.id]; exists {
		return fmt.Errorf("job %q: %w", e.id, ErrJobExists)
	}
	if len(s.entries) >= s.maxJobs {
		return fmt.Errorf("%d jobs scheduled: %w", s.maxJobs, aserrors.ErrCapacityExceeded)
	}

	e.created = time.Now()
	s.entries[e.id] = e
	return nil
}

// Cancel removes a job. Executions already started keep running.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		delete(s.entries, id)
		return true
	}
	return false
}

// CancelAll removes every job.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// List returns the scheduled jobs ordered by next run.
func (s *Scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, Entry{
			ID:       e.id,
			NextRun:  e.runAt,
			Interval: e.interval,
			CronExpr: e.cronExpr,
			Runs:     e.runs,
			Created:  e.created,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].NextRun.Equal(out[j].NextRun) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextRun.Before(out[j].NextRun)
	})
	return out
}

// Next returns the next trigger time of a job.
func (s *Scheduler) Next(id string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return time.Time{}, fmt.Errorf("job %q: %w", id, ErrJobNotFound)
	}
	return e.runAt, nil
}

// Start begins triggering jobs. Jobs receive a context derived from ctx.
// A stopped scheduler cannot be restarted.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("cannot start: recurring scheduler stopped: %w", aserrors.ErrClosed)
	}
	if s.running {
		return fmt.Errorf("recurring scheduler already running, call Stop() first")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.loopEnd = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.loopEnd)
	return nil
}

// Stop halts triggering, cancels running jobs and returns a channel that is
// closed once every job goroutine has returned.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	loopEnd := s.loopEnd
	if s.running {
		s.running = false
		s.cancel()
	}
	s.stopped = true
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if loopEnd != nil {
			<-loopEnd
		}
		s.jobs.Wait()
	}()
	return stopped
}

func (s *Scheduler) loop(ctx context.Context, end chan struct{}) {
	defer close(end)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.dispatchDue(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.dispatchDue(ctx, now)
		}
	}
}

// dispatchDue starts every job whose trigger time has passed and computes
// its next trigger.
func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []trigger
	for id, e := range s.entries {
		if now.Before(e.runAt) {
			continue
		}
		e.runs++
		due = append(due, trigger{entry: e, run: e.runs})

		switch {
		case e.opts.MaxRuns > 0 && e.runs >= e.opts.MaxRuns:
			delete(s.entries, id)
		case e.interval > 0:
			e.runAt = now.Add(e.interval)
		case e.schedule != nil:
			e.runAt = e.schedule.Next(now.In(s.location))
		default:
			delete(s.entries, id)
		}
	}
	// Add under the lock so Stop's Wait cannot start before these are counted.
	s.jobs.Add(len(due))
	s.mu.Unlock()

	for _, t := range due {
		go s.execute(ctx, t.entry, t.run)
	}
}

type trigger struct {
	entry *entry
	run   int
}

func (s *Scheduler) execute(ctx context.Context, e *entry, run int) {
	defer s.jobs.Done()

	if e.opts.SkipIfStillRunning && !e.running.CompareAndSwap(false, true) {
		s.logger.Debug().Str("job", e.id).Msg("previous execution still running, skipped")
		if e.opts.OnSkip != nil {
			e.opts.OnSkip(e.id)
		}
		return
	}
	if e.opts.SkipIfStillRunning {
		defer e.running.Store(false)
	}

	err := s.invoke(ctx, e)
	if err == nil {
		return
	}

	s.logger.Warn().Err(err).Str("job", e.id).Int("run", run).Msg("job failed")
	if e.opts.OnError != nil {
		e.opts.OnError(e.id, err)
	}
	if e.opts.StopOnError {
		s.mu.Lock()
		if s.entries[e.id] == e {
			delete(s.entries, e.id)
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) invoke(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", e.id, r)
		}
	}()
	return e.job(ctx)
}
