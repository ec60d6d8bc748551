package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/vnykmshr/adaptsched/internal/bench"
	"github.com/vnykmshr/adaptsched/internal/config"
	"github.com/vnykmshr/adaptsched/internal/report"
	ascontext "github.com/vnykmshr/adaptsched/pkg/common/context"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/recurring"
)

// defaultRedisAddr returns ADAPTSCHED_REDIS_ADDR, empty when unset.
func defaultRedisAddr() string {
	return os.Getenv("ADAPTSCHED_REDIS_ADDR")
}

type benchFlags struct {
	configPath  string
	threads     []int
	policies    []string
	workloads   []string
	tasks       int
	matrixSize  int
	repeats     int
	noBaseline  bool
	pin         bool
	csv         string
	summary     bool
	schedule    string
	metricsAddr string
	redisAddr   string
	timeout     time.Duration
}

func newBenchCmd() *cobra.Command {
	var f benchFlags

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Sweep thread counts, policies and workloads",
		Long: `bench measures every policy at every thread count for each workload and
writes the results, fairness and latency tables as CSV.

Examples:
  # The default sweep: mixed workload, 1-16 threads, all core policies
  adaptsched bench

  # From a config file, repeated every 30 minutes, with /metrics exposed
  adaptsched bench --config bench.yaml --schedule "@every 30m" --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := benchConfig(cmd, f)
			if err != nil {
				return err
			}
			return runBench(cmd, cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML sweep configuration")
	fl.IntSliceVar(&f.threads, "threads", nil, "Thread counts (overrides config)")
	fl.StringSliceVar(&f.policies, "policies", nil, "Policies (overrides config)")
	fl.StringSliceVar(&f.workloads, "workloads", nil, "Workloads: mixed, matrix, reduction, counter (overrides config)")
	fl.IntVar(&f.tasks, "tasks", 0, "Tasks per cell (overrides config)")
	fl.IntVar(&f.matrixSize, "matrix-size", 0, "Matrix dimension (overrides config)")
	fl.IntVar(&f.repeats, "repeats", 0, "Runs per cell (overrides config)")
	fl.BoolVar(&f.noBaseline, "no-baseline", false, "Skip the lock-based baseline")
	fl.BoolVar(&f.pin, "pin", false, "Pin workers to CPUs")
	fl.StringVar(&f.csv, "csv", "", `CSV output path, "-" for stdout (overrides config)`)
	fl.BoolVar(&f.summary, "summary", false, "Also print a text summary to stderr")
	fl.StringVar(&f.schedule, "schedule", "", "Repeat the sweep on a cron expression until interrupted")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fl.DurationVar(&f.timeout, "timeout", 0, "Abort a single sweep after this long (0 = no limit)")
	fl.StringVar(&f.redisAddr, "redis-addr", defaultRedisAddr(), "Publish reports to Redis (or ADAPTSCHED_REDIS_ADDR env)")

	return cmd
}

// benchConfig loads the config file, if any, and applies changed flags.
func benchConfig(cmd *cobra.Command, f benchFlags) (config.BenchConfig, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("threads") {
		cfg.Threads = f.threads
	}
	if changed("policies") {
		cfg.Policies = f.policies
	}
	if changed("workloads") {
		cfg.Workloads = f.workloads
	}
	if changed("tasks") {
		cfg.Tasks = f.tasks
	}
	if changed("matrix-size") {
		cfg.MatrixSize = f.matrixSize
	}
	if changed("repeats") {
		cfg.Repeats = f.repeats
	}
	if f.noBaseline {
		cfg.LockBaseline = false
	}
	if f.pin {
		cfg.PinWorkers = true
	}
	if changed("csv") {
		cfg.Output.CSV = f.csv
	}
	if changed("schedule") {
		cfg.Schedule = f.schedule
	}
	if f.redisAddr != "" {
		cfg.Output.Redis.Addr = f.redisAddr
	}

	return cfg, cfg.Validate()
}

func runBench(cmd *cobra.Command, cfg config.BenchConfig, f benchFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mcfg := metrics.Config{}
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
		mcfg = metrics.Config{Enabled: true, Registry: reg}

		shutdown, err := serveMetrics(f.metricsAddr, reg)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	sink, closeSinks, err := buildSinks(ctx, cmd, cfg, f.summary)
	if err != nil {
		return err
	}
	defer closeSinks()

	h, err := bench.New(cfg, bench.Options{Logger: &logger, Metrics: mcfg})
	if err != nil {
		return err
	}

	sweep := func(parent context.Context) error {
		ctx, cancel := ascontext.WithTimeoutOrCancel(parent, f.timeout)
		defer cancel()

		rep, err := h.Run(ctx)
		if err != nil {
			if ascontext.IsTimedOut(ctx) {
				return aserrors.NewOperationError("bench", "Sweep", aserrors.ErrTimeout).
					WithContext(fmt.Sprintf("timeout=%s", f.timeout))
			}
			return err
		}
		return sink.Write(parent, rep)
	}

	if cfg.Schedule == "" {
		return sweep(ctx)
	}
	return runScheduled(ctx, cfg.Schedule, sweep)
}

// runScheduled repeats sweep on a cron schedule until ctx is done.
func runScheduled(ctx context.Context, expr string, sweep recurring.Job) error {
	s := recurring.NewWithConfig(recurring.Config{Logger: &logger, MaxJobs: 1})
	err := s.ScheduleCronWithOptions("sweep", expr, recurring.WithRetry(sweep, 2, time.Second, 30*time.Second), recurring.Options{
		SkipIfStillRunning: true,
		OnError: func(id string, err error) {
			logger.Error().Err(err).Str("job", id).Msg("scheduled sweep failed")
		},
	})
	if err != nil {
		return err
	}

	next, _ := s.Next("sweep")
	logger.Info().Str("schedule", expr).Time("next", next).Msg("sweeps scheduled")

	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	<-s.Stop()
	return nil
}

func buildSinks(ctx context.Context, cmd *cobra.Command, cfg config.BenchConfig, summary bool) (report.Sink, func(), error) {
	var (
		sinks   report.MultiSink
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	switch cfg.Output.CSV {
	case "":
	case "-":
		sinks = append(sinks, report.NewCSVSink(cmd.OutOrStdout()))
	default:
		file, err := os.Create(cfg.Output.CSV)
		if err != nil {
			return nil, closeAll, fmt.Errorf("create csv output: %w", err)
		}
		closers = append(closers, file)
		sinks = append(sinks, report.NewCSVSink(file))
	}

	if summary {
		sinks = append(sinks, report.NewTextSink(cmd.ErrOrStderr()))
	}

	if rc := cfg.Output.Redis; rc.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: rc.Addr, DB: rc.DB})
		closers = append(closers, client)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("connect to redis %s: %w", rc.Addr, err)
		}

		rs, err := report.NewRedisSink(report.RedisConfig{Redis: client, Prefix: rc.Prefix, KeyTTL: rc.TTL})
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, rs)
	}

	return sinks, closeAll, nil
}

// serveMetrics exposes reg on addr/metrics and returns a shutdown func.
func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
