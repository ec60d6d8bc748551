package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vnykmshr/adaptsched/internal/bench"
	"github.com/vnykmshr/adaptsched/internal/testutil"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/stats"
)

func sampleReport() *bench.Report {
	return &bench.Report{
		ID:      "3f1c2a7e-0000-4000-8000-000000000001",
		Started: time.Now().Add(-time.Minute),
		Elapsed: 1500 * time.Millisecond,
		Env:     bench.Environment{GoVersion: "go1.23.0", GOOS: "linux", GOARCH: "amd64", NumCPU: 8, GOMAXPROCS: 8},
		Results: []bench.Result{
			{Workload: "mixed", Mode: "LOCK_BASED", Threads: 1, Tasks: 1000, Duration: 20 * time.Millisecond, Throughput: 50000, Speedup: 0.5, Efficiency: 50},
			{Workload: "mixed", Mode: "STATIC", Threads: 1, Tasks: 1000, Duration: 10 * time.Millisecond, Throughput: 100000, Speedup: 1, Efficiency: 100},
			{Workload: "mixed", Mode: "DYNAMIC", Threads: 2, Tasks: 1000, Duration: 6 * time.Millisecond, Throughput: 166666.67, Speedup: 1.6667, Efficiency: 83.33},
		},
		Fairness: []bench.FairnessRow{
			{Workload: "mixed", Mode: "LOCK_BASED", Threads: 1, LoadBalance: stats.LoadBalance{Min: 1000, Max: 1000, Mean: 1000, Fairness: 100}},
			{Workload: "mixed", Mode: "DYNAMIC", Threads: 2, LoadBalance: stats.LoadBalance{Min: 480, Max: 520, Mean: 500, StdDev: 20, Fairness: 96}},
		},
		Latency: bench.Histogram{Source: "mixed/LOCK_BASED/T=1", Bins: [8]int{990, 8, 2, 0, 0, 0, 0, 0}},
	}
}

func TestCSVSink(t *testing.T) {
	w := testutil.NewMockWriter()
	testutil.AssertNoError(t, NewCSVSink(w).Write(context.Background(), sampleReport()))

	want := `=== MIXED_WORKLOAD_RESULTS ===
Workload,Mode,Threads,Duration_sec,Throughput,Speedup,Efficiency
mixed,LOCK_BASED,1,0.02000,50000.00,0.500,50.00
mixed,STATIC,1,0.01000,100000.00,1.000,100.00
mixed,DYNAMIC,2,0.00600,166666.67,1.667,83.33
=== PER_THREAD_FAIRNESS ===
Mode,Threads,MinTasks,MaxTasks,MeanTasks,SD_Tasks,Fairness
LOCK_BASED,1,1000,1000,1000.00,0.00,100.00
DYNAMIC,2,480,520,500.00,20.00,96.00
=== TASK_LATENCY_HISTOGRAM ===
Bin_0_1ms,Bin_1_2ms,Bin_2_5ms,Bin_5_10ms,Bin_10_20ms,Bin_20_50ms,Bin_50_100ms,Bin_100pms
990,8,2,0,0,0,0,0
`
	testutil.AssertEqual(t, w.String(), want)
}

func TestCSVSinkPerWorkloadSections(t *testing.T) {
	rep := sampleReport()
	rep.Results = append(rep.Results, bench.Result{Workload: "matrix", Mode: "GUIDED", Threads: 4})
	rep.Fairness = append(rep.Fairness, bench.FairnessRow{Workload: "matrix", Mode: "GUIDED", Threads: 4})

	w := testutil.NewMockWriter()
	testutil.AssertNoError(t, NewCSVSink(w).Write(context.Background(), rep))

	out := w.String()
	testutil.AssertEqual(t, strings.Count(out, "=== PER_THREAD_FAIRNESS ==="), 2)
	if !strings.Contains(out, "=== MATRIX_WORKLOAD_RESULTS ===\n") {
		t.Errorf("missing matrix section:\n%s", out)
	}
	if strings.Index(out, "MATRIX") < strings.Index(out, "MIXED") {
		t.Error("sections not in sweep order")
	}
}

func TestCSVSinkWriteError(t *testing.T) {
	w := testutil.NewMockWriter()
	w.SetAlwaysError(errors.New("disk full"))
	testutil.AssertError(t, NewCSVSink(w).Write(context.Background(), sampleReport()))
}

func TestTextSink(t *testing.T) {
	w := testutil.NewMockWriter()
	testutil.AssertNoError(t, NewTextSink(w).Write(context.Background(), sampleReport()))

	out := w.String()
	for _, want := range []string{
		"run 3f1c2a7e-0000-4000-8000-000000000001",
		"GOMAXPROCS=8",
		"1 minute ago",
		"100,000",
		"1.67x",
		"fastest mixed: DYNAMIC at 2 threads",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

type failingSink struct{ err error }

func (f failingSink) Write(context.Context, *bench.Report) error { return f.err }

func TestMultiSink(t *testing.T) {
	w := testutil.NewMockWriter()
	errA := errors.New("a")
	errB := errors.New("b")

	err := MultiSink{failingSink{errA}, NewCSVSink(w), failingSink{errB}}.Write(context.Background(), sampleReport())
	testutil.AssertErrorIs(t, err, errA)
	testutil.AssertErrorIs(t, err, errB)
	if w.Len() == 0 {
		t.Error("healthy sink skipped after a failure")
	}

	testutil.AssertNoError(t, MultiSink{}.Write(context.Background(), sampleReport()))
}

func TestNewRedisSink(t *testing.T) {
	_, err := NewRedisSink(RedisConfig{})
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	_, err = NewRedisSink(RedisConfig{Redis: client, KeyTTL: -time.Second})
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)

	s, err := NewRedisSink(RedisConfig{Redis: client})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, s.IndexKey(), "adaptsched:bench:runs")
	testutil.AssertEqual(t, s.RunKeys("abc")["results"], "adaptsched:bench:abc:results")
}

func TestRedisFields(t *testing.T) {
	rep := sampleReport()

	r := resultFields(rep.Results[2])
	testutil.AssertEqual(t, r["duration_sec"], interface{}("0.00600"))
	testutil.AssertEqual(t, r["speedup"], interface{}("1.667"))

	f := fairnessFields(rep.Fairness[1])
	testutil.AssertEqual(t, f["min"], interface{}(int64(480)))

	l := latencyFields(rep.Latency)
	testutil.AssertEqual(t, l["Bin_0_1ms"], interface{}(990))
	testutil.AssertEqual(t, len(l), 9)
}

func TestRedisSinkLive(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping live test")
	}

	s, err := NewRedisSink(RedisConfig{Redis: client, Prefix: "adaptsched:test", KeyTTL: time.Minute})
	testutil.AssertNoError(t, err)

	rep := sampleReport()
	keys := s.RunKeys(rep.ID)
	t.Cleanup(func() {
		for _, k := range keys {
			client.Del(context.Background(), k)
		}
		client.ZRem(context.Background(), s.IndexKey(), rep.ID)
	})

	testutil.AssertNoError(t, s.Write(context.Background(), rep))

	n, err := client.XLen(ctx, keys["results"]).Result()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, int64(3))

	cells, err := client.HGet(ctx, keys["summary"], "cells").Result()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cells, "3")

	ttl, err := client.TTL(ctx, keys["fairness"]).Result()
	testutil.AssertNoError(t, err)
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("fairness ttl = %v", ttl)
	}

	score, err := client.ZScore(ctx, s.IndexKey(), rep.ID).Result()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, int64(score), rep.Started.Unix())
}
