package bench

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/vnykmshr/adaptsched/internal/config"
	"github.com/vnykmshr/adaptsched/internal/testutil"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
)

func smallConfig() config.BenchConfig {
	cfg := config.Default()
	cfg.Threads = []int{1, 2}
	cfg.Workloads = []string{"counter"}
	cfg.Tasks = 60
	return cfg
}

func TestHistogramBins(t *testing.T) {
	h := NewHistogram("test", []time.Duration{
		0,
		999 * time.Microsecond,
		time.Millisecond,
		3 * time.Millisecond,
		7 * time.Millisecond,
		15 * time.Millisecond,
		30 * time.Millisecond,
		99 * time.Millisecond,
		100 * time.Millisecond,
		time.Second,
	})
	testutil.AssertEqual(t, h.Bins, [8]int{2, 1, 1, 1, 1, 1, 1, 2})
	testutil.AssertEqual(t, h.Total(), 10)
	testutil.AssertEqual(t, len(BinLabels), len(h.Bins))
}

func TestApplySpeedup(t *testing.T) {
	rows := []Result{
		{Mode: ModeLockBased, Threads: 1, Duration: 2 * time.Second},
		{Mode: "STATIC", Threads: 1, Duration: time.Second},
		{Mode: "DYNAMIC", Threads: 4, Duration: 250 * time.Millisecond},
		{Mode: "STATIC", Threads: 4, Duration: 500 * time.Millisecond},
	}
	applySpeedup(rows)

	testutil.AssertEqual(t, rows[0].Speedup, 0.5)
	testutil.AssertEqual(t, rows[1].Speedup, 1.0)
	testutil.AssertEqual(t, rows[1].Efficiency, 100.0)
	testutil.AssertEqual(t, rows[2].Speedup, 4.0)
	testutil.AssertEqual(t, rows[2].Efficiency, 100.0)
	testutil.AssertEqual(t, rows[3].Speedup, 2.0)
	testutil.AssertEqual(t, rows[3].Efficiency, 50.0)
}

func TestApplySpeedupWithoutStatic(t *testing.T) {
	rows := []Result{
		{Mode: "GUIDED", Threads: 2, Duration: time.Second},
		{Mode: "GUIDED", Threads: 4, Duration: 500 * time.Millisecond},
	}
	applySpeedup(rows)
	testutil.AssertEqual(t, rows[0].Speedup, 1.0)
	testutil.AssertEqual(t, rows[1].Speedup, 2.0)
	testutil.AssertEqual(t, rows[1].Efficiency, 50.0)
}

func TestLockBased(t *testing.T) {
	c, err := lockBased(context.Background(), 3, 10)
	testutil.AssertNoError(t, err)

	// ceil(10/3) = 4 per worker, the last gets the remainder
	testutil.AssertEqual(t, c.counts[0], int64(4))
	testutil.AssertEqual(t, c.counts[1], int64(4))
	testutil.AssertEqual(t, c.counts[2], int64(2))
	for i, l := range c.latencies {
		if l <= 0 {
			t.Errorf("latency %d not recorded", i)
		}
	}
	if c.duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestLockBasedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lockBased(ctx, 2, 100)
	testutil.AssertErrorIs(t, err, context.Canceled)
}

func TestHarnessRun(t *testing.T) {
	cfg := smallConfig()

	var seen []Result
	w := testutil.NewMockWriter()
	logger := zerolog.New(w)
	h, err := New(cfg, Options{Logger: &logger, OnResult: func(r Result) { seen = append(seen, r) }})
	testutil.AssertNoError(t, err)

	rep, err := h.Run(context.Background())
	testutil.AssertNoError(t, err)

	// 2 thread counts × (baseline + 4 policies)
	testutil.AssertEqual(t, len(rep.Results), 10)
	testutil.AssertEqual(t, len(rep.Fairness), 10)
	testutil.AssertEqual(t, len(seen), 10)
	testutil.AssertEqual(t, len(rep.ID), 36)

	testutil.AssertEqual(t, rep.Results[0].Mode, ModeLockBased)
	testutil.AssertEqual(t, rep.Results[1].Mode, "STATIC")
	testutil.AssertEqual(t, rep.Results[1].Threads, 1)
	testutil.AssertEqual(t, rep.Results[1].Speedup, 1.0)
	testutil.AssertEqual(t, rep.Results[5].Threads, 2)

	for _, r := range rep.Results {
		testutil.AssertEqual(t, r.Tasks, 60)
		if r.Throughput <= 0 || r.Speedup <= 0 {
			t.Errorf("%s T=%d: throughput %v speedup %v", r.Mode, r.Threads, r.Throughput, r.Speedup)
		}
		if math.Abs(r.Efficiency-r.Speedup/float64(r.Threads)*100) > 1e-9 {
			t.Errorf("%s T=%d: efficiency %v inconsistent with speedup %v", r.Mode, r.Threads, r.Efficiency, r.Speedup)
		}
	}

	// fairness grouped by mode, threads ascending within a mode
	testutil.AssertEqual(t, rep.Fairness[0].Mode, ModeLockBased)
	testutil.AssertEqual(t, rep.Fairness[1].Mode, ModeLockBased)
	testutil.AssertEqual(t, rep.Fairness[1].Threads, 2)
	testutil.AssertEqual(t, rep.Fairness[2].Mode, "STATIC")
	for _, f := range rep.Fairness {
		if f.Threads == 1 {
			testutil.AssertEqual(t, f.Min, int64(60))
			testutil.AssertEqual(t, f.Fairness, 100.0)
		}
	}

	testutil.AssertEqual(t, rep.Latency.Source, "counter/LOCK_BASED/T=1")
	testutil.AssertEqual(t, rep.Latency.Total(), 60)

	if !strings.Contains(w.String(), `"message":"sweep finished"`) {
		t.Errorf("sweep not logged: %s", w.String())
	}
}

func TestHarnessWithoutBaseline(t *testing.T) {
	cfg := smallConfig()
	cfg.LockBaseline = false
	cfg.Threads = []int{2}
	cfg.Policies = []string{"guided", "adaptive"}
	cfg.Workloads = []string{"reduction", "matrix"}
	cfg.MatrixSize = 8
	cfg.Repeats = 2

	h, err := New(cfg, Options{})
	testutil.AssertNoError(t, err)
	rep, err := h.Run(context.Background())
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, len(rep.Results), 4)
	testutil.AssertEqual(t, rep.Results[0].Workload, "reduction")
	testutil.AssertEqual(t, rep.Results[0].Tasks, 60)
	testutil.AssertEqual(t, rep.Results[2].Workload, "matrix")
	testutil.AssertEqual(t, rep.Results[2].Tasks, 8)
	testutil.AssertEqual(t, rep.Results[0].Speedup, 1.0)
	testutil.AssertEqual(t, rep.Latency.Source, "reduction/GUIDED/T=2")
}

func TestHarnessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := smallConfig()
	cfg.LockBaseline = false
	cfg.Threads = []int{2}
	cfg.Policies = []string{"dynamic"}

	h, err := New(cfg, Options{Metrics: metrics.Config{Enabled: true, Registry: reg}})
	testutil.AssertNoError(t, err)
	_, err = h.Run(context.Background())
	testutil.AssertNoError(t, err)

	r := metrics.RegistryFor(reg)
	testutil.AssertEqual(t, promtestutil.ToFloat64(r.TasksCompleted.WithLabelValues("bench-counter")), 60.0)
	testutil.AssertEqual(t, promtestutil.ToFloat64(r.Runs.WithLabelValues("bench-counter", "dynamic")), 1.0)
}

func TestHarnessInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Repeats = 0
	_, err := New(cfg, Options{})
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)
}

func TestHarnessCancelled(t *testing.T) {
	h, err := New(smallConfig(), Options{})
	testutil.AssertNoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Run(ctx)
	testutil.AssertErrorIs(t, err, context.Canceled)
}

func TestModeName(t *testing.T) {
	testutil.AssertEqual(t, ModeName(policy.Heterogeneous), "HETEROGENEOUS")
}
