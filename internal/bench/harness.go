// Package bench runs benchmark sweeps over thread counts, policies and
// workloads and computes speedup, efficiency, fairness and latency tables.
package bench

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vnykmshr/adaptsched/internal/config"
	"github.com/vnykmshr/adaptsched/internal/workload"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/scheduler"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/stats"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// Options configure a Harness beyond the sweep itself.
type Options struct {
	// Logger receives one line per measured cell. Nil discards.
	Logger *zerolog.Logger

	// Metrics instruments every scheduler the sweep creates.
	Metrics metrics.Config

	// OnResult is called for each cell in sweep order once the speedups of
	// its workload are known.
	OnResult func(Result)
}

// Harness runs a configured sweep. A Harness may run several sweeps but not
// concurrently.
type Harness struct {
	cfg     config.BenchConfig
	kinds   []policy.Kind
	gens    []workload.Generator
	logger  zerolog.Logger
	metrics metrics.Config
	onCell  func(Result)
}

// New validates cfg and returns a harness for it.
func New(cfg config.BenchConfig, opts Options) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kinds, _ := cfg.Kinds()
	gens, _ := cfg.Generators()

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Harness{
		cfg:     cfg,
		kinds:   kinds,
		gens:    gens,
		logger:  logger,
		metrics: opts.Metrics,
		onCell:  opts.OnResult,
	}, nil
}

// ModeName is the report label of a policy.
func ModeName(k policy.Kind) string {
	return strings.ToUpper(k.String())
}

// Run executes the sweep. Every cell's workload is verified after its run;
// a failed check aborts the sweep.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	rep := &Report{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Env:     currentEnvironment(),
	}
	log := h.logger.With().Str("run_id", rep.ID).Logger()
	log.Info().
		Ints("threads", h.cfg.Threads).
		Strs("policies", h.cfg.Policies).
		Strs("workloads", h.cfg.Workloads).
		Int("repeats", h.cfg.Repeats).
		Msg("sweep started")

	histogramSet := false
	for _, g := range h.gens {
		size := h.cfg.SizeFor(g)
		tasks := g.Tasks(size)
		first := len(rep.Results)

		for _, threads := range h.cfg.Threads {
			if h.cfg.LockBaseline {
				c, err := h.repeat(ctx, func() (cell, error) { return lockBased(ctx, threads, tasks) })
				if err != nil {
					return nil, fmt.Errorf("%s %s T=%d: %w", g.Name(), ModeLockBased, threads, err)
				}
				h.record(rep, &log, g.Name(), ModeLockBased, threads, tasks, c, &histogramSet)
			}

			for _, k := range h.kinds {
				k := k
				c, err := h.repeat(ctx, func() (cell, error) { return h.runCell(ctx, g, size, k, threads) })
				if err != nil {
					return nil, fmt.Errorf("%s %s T=%d: %w", g.Name(), ModeName(k), threads, err)
				}
				h.record(rep, &log, g.Name(), ModeName(k), threads, tasks, c, &histogramSet)
			}
		}

		applySpeedup(rep.Results[first:])
		if h.onCell != nil {
			for _, r := range rep.Results[first:] {
				h.onCell(r)
			}
		}
	}
	h.sortFairness(rep.Fairness)

	rep.Elapsed = time.Since(rep.Started)
	log.Info().Int("cells", len(rep.Results)).Dur("elapsed", rep.Elapsed).Msg("sweep finished")
	return rep, nil
}

// repeat measures a cell cfg.Repeats times. The duration is the mean; load
// and latencies come from the last repeat.
func (h *Harness) repeat(ctx context.Context, measure func() (cell, error)) (cell, error) {
	var (
		total time.Duration
		last  cell
	)
	for i := 0; i < h.cfg.Repeats; i++ {
		if err := ctx.Err(); err != nil {
			return cell{}, err
		}
		c, err := measure()
		if err != nil {
			return cell{}, err
		}
		total += c.duration
		last = c
	}
	last.duration = total / time.Duration(h.cfg.Repeats)
	return last, nil
}

func (h *Harness) record(rep *Report, log *zerolog.Logger, wl, mode string, threads, tasks int, c cell, histogramSet *bool) {
	r := Result{
		Workload: wl,
		Mode:     mode,
		Threads:  threads,
		Tasks:    tasks,
		Duration: c.duration,
	}
	if secs := c.duration.Seconds(); secs > 0 {
		r.Throughput = float64(tasks) / secs
	}
	rep.Results = append(rep.Results, r)

	rep.Fairness = append(rep.Fairness, FairnessRow{
		Workload:    wl,
		Mode:        mode,
		Threads:     threads,
		LoadBalance: stats.Balance(c.counts),
	})

	if !*histogramSet {
		rep.Latency = NewHistogram(fmt.Sprintf("%s/%s/T=%d", wl, mode, threads), c.latencies)
		*histogramSet = true
	}

	log.Info().
		Str("workload", wl).
		Str("mode", mode).
		Int("threads", threads).
		Dur("duration", c.duration).
		Float64("throughput", r.Throughput).
		Msg("cell measured")
}

// runCell measures one scheduler run: init, submit, run, wait, read
// metrics, destroy.
func (h *Harness) runCell(ctx context.Context, g workload.Generator, size int, kind policy.Kind, threads int) (cell, error) {
	tasks := g.Tasks(size)
	s, err := scheduler.NewWithConfig(scheduler.Config{
		Name:          "bench-" + g.Name(),
		Threads:       threads,
		Capacity:      max(tasks, 1),
		Policy:        kind,
		PolicyOptions: h.cfg.PolicyOptions(),
		PinWorkers:    h.cfg.PinWorkers,
		Logger:        &h.logger,
		Metrics:       h.metrics,
	})
	if err != nil {
		return cell{}, err
	}

	c, runErr := measureScheduler(ctx, s, g, size, tasks)
	if err := s.Destroy(); err != nil && runErr == nil {
		runErr = err
	}
	return c, runErr
}

func measureScheduler(ctx context.Context, s *scheduler.Scheduler, g workload.Generator, size, tasks int) (cell, error) {
	ts := &timedSubmitter{s: s, slots: make([]*time.Duration, 0, tasks)}
	check, err := g.Populate(ts, size)
	if err != nil {
		return cell{}, err
	}

	start := time.Now()
	if err := s.RunContext(ctx); err != nil {
		return cell{}, err
	}
	if err := s.WaitContext(ctx); err != nil {
		return cell{}, err
	}
	elapsed := time.Since(start)

	if err := check(); err != nil {
		return cell{}, err
	}

	snap, err := s.Metrics()
	if err != nil {
		return cell{}, err
	}

	c := cell{
		duration:  elapsed,
		counts:    make([]int64, len(snap.Workers)),
		latencies: make([]time.Duration, len(ts.slots)),
	}
	for i, w := range snap.Workers {
		c.counts[i] = w.Executed
	}
	for i, l := range ts.slots {
		c.latencies[i] = *l
	}
	return c, nil
}

// timedSubmitter wraps each task to capture its latency. Submission is
// single-goroutine; each slot is written by exactly one task and read after
// Wait.
type timedSubmitter struct {
	s     workload.Submitter
	slots []*time.Duration
}

func (t *timedSubmitter) Submit(fn task.Func, w task.Weight) (int, error) {
	lat := new(time.Duration)
	id, err := t.s.Submit(func() {
		began := time.Now()
		defer func() { *lat = time.Since(began) }()
		fn()
	}, w)
	if err != nil {
		return id, err
	}
	t.slots = append(t.slots, lat)
	return id, nil
}

// applySpeedup fills speedup and efficiency for one workload's rows against
// its static cell at the smallest thread count, falling back to the first
// row when no static cell was measured.
func applySpeedup(rows []Result) {
	if len(rows) == 0 {
		return
	}
	static := ModeName(policy.Static)
	base := rows[0]
	found := false
	for _, r := range rows {
		if r.Mode != static {
			continue
		}
		if !found || r.Threads < base.Threads {
			base, found = r, true
		}
	}

	for i := range rows {
		if rows[i].Duration <= 0 {
			continue
		}
		rows[i].Speedup = base.Duration.Seconds() / rows[i].Duration.Seconds()
		rows[i].Efficiency = rows[i].Speedup / float64(rows[i].Threads) * 100
	}
}

// sortFairness orders rows by workload, then mode in sweep order, then
// thread count in sweep order.
func (h *Harness) sortFairness(rows []FairnessRow) {
	modeRank := map[string]int{ModeLockBased: -1}
	for i, k := range h.kinds {
		modeRank[ModeName(k)] = i
	}
	wlRank := map[string]int{}
	for i, g := range h.gens {
		wlRank[g.Name()] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Workload != rows[j].Workload {
			return wlRank[rows[i].Workload] < wlRank[rows[j].Workload]
		}
		return modeRank[rows[i].Mode] < modeRank[rows[j].Mode]
	})
}
