package report

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vnykmshr/adaptsched/internal/bench"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/common/validation"
)

// RedisConfig configures a RedisSink.
type RedisConfig struct {
	Redis redis.UniversalClient

	// Prefix namespaces every key. Default "adaptsched:bench".
	Prefix string

	// KeyTTL expires the per-run keys. Zero keeps them forever.
	KeyTTL time.Duration

	// Timeout bounds one Write. Default 5s.
	Timeout time.Duration
}

// DefaultRedisConfig returns the defaults without a client.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:  "adaptsched:bench",
		KeyTTL:  24 * time.Hour,
		Timeout: 5 * time.Second,
	}
}

// RedisSink publishes a report as Redis streams and a summary hash:
//
//	<prefix>:runs                  sorted set of run ids scored by start time
//	<prefix>:<id>:summary          hash of run metadata
//	<prefix>:<id>:results          stream, one entry per result row
//	<prefix>:<id>:fairness         stream, one entry per fairness row
//	<prefix>:<id>:latency          hash of histogram bins
type RedisSink struct {
	cfg RedisConfig
}

// NewRedisSink validates cfg and returns a sink.
func NewRedisSink(cfg RedisConfig) (*RedisSink, error) {
	if err := validation.ValidateNotNil("report", "redis", cfg.Redis); err != nil {
		return nil, err
	}
	def := DefaultRedisConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if err := validation.ValidateNonNegative("report", "key_ttl", cfg.KeyTTL); err != nil {
		return nil, err
	}
	return &RedisSink{cfg: cfg}, nil
}

// RunKeys returns the keys a report with id is written to.
func (s *RedisSink) RunKeys(id string) map[string]string {
	base := s.cfg.Prefix + ":" + id
	return map[string]string{
		"summary":  base + ":summary",
		"results":  base + ":results",
		"fairness": base + ":fairness",
		"latency":  base + ":latency",
	}
}

// IndexKey is the sorted set of run ids.
func (s *RedisSink) IndexKey() string {
	return s.cfg.Prefix + ":runs"
}

func (s *RedisSink) Write(ctx context.Context, rep *bench.Report) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	keys := s.RunKeys(rep.ID)
	pipe := s.cfg.Redis.TxPipeline()

	pipe.HSet(ctx, keys["summary"], summaryFields(rep))
	for _, r := range rep.Results {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: keys["results"], Values: resultFields(r)})
	}
	for _, f := range rep.Fairness {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: keys["fairness"], Values: fairnessFields(f)})
	}
	pipe.HSet(ctx, keys["latency"], latencyFields(rep.Latency))
	pipe.ZAdd(ctx, s.IndexKey(), redis.Z{Score: float64(rep.Started.Unix()), Member: rep.ID})

	if s.cfg.KeyTTL > 0 {
		for _, k := range keys {
			pipe.Expire(ctx, k, s.cfg.KeyTTL)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return aserrors.NewOperationError("report", "RedisWrite", err).WithContext(rep.ID)
	}
	return nil
}

func summaryFields(rep *bench.Report) map[string]interface{} {
	return map[string]interface{}{
		"id":         rep.ID,
		"started":    rep.Started.UTC().Format(time.RFC3339Nano),
		"elapsed_ns": rep.Elapsed.Nanoseconds(),
		"cells":      len(rep.Results),
		"go_version": rep.Env.GoVersion,
		"goos":       rep.Env.GOOS,
		"goarch":     rep.Env.GOARCH,
		"num_cpu":    rep.Env.NumCPU,
		"gomaxprocs": rep.Env.GOMAXPROCS,
	}
}

func resultFields(r bench.Result) map[string]interface{} {
	return map[string]interface{}{
		"workload":     r.Workload,
		"mode":         r.Mode,
		"threads":      r.Threads,
		"tasks":        r.Tasks,
		"duration_sec": fmt.Sprintf("%.5f", r.Duration.Seconds()),
		"throughput":   fmt.Sprintf("%.2f", r.Throughput),
		"speedup":      fmt.Sprintf("%.3f", r.Speedup),
		"efficiency":   fmt.Sprintf("%.2f", r.Efficiency),
	}
}

func fairnessFields(f bench.FairnessRow) map[string]interface{} {
	return map[string]interface{}{
		"workload": f.Workload,
		"mode":     f.Mode,
		"threads":  f.Threads,
		"min":      f.Min,
		"max":      f.Max,
		"mean":     fmt.Sprintf("%.2f", f.Mean),
		"sd":       fmt.Sprintf("%.2f", f.StdDev),
		"fairness": fmt.Sprintf("%.2f", f.Fairness),
	}
}

func latencyFields(h bench.Histogram) map[string]interface{} {
	fields := map[string]interface{}{"source": h.Source}
	for i, label := range bench.BinLabels {
		fields[label] = h.Bins[i]
	}
	return fields
}
