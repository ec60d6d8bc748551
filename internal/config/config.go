// Package config loads benchmark sweep configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vnykmshr/adaptsched/internal/workload"
	"github.com/vnykmshr/adaptsched/pkg/common/validation"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"gopkg.in/yaml.v3"
)

// BenchConfig describes one benchmark sweep.
type BenchConfig struct {
	Threads   []int    `yaml:"threads"`
	Policies  []string `yaml:"policies"`
	Workloads []string `yaml:"workloads"`

	Tasks      int `yaml:"tasks"`       // tasks per cell for mixed and counter; array size for reduction
	MatrixSize int `yaml:"matrix_size"` // n for the n×n matrix workload
	Repeats    int `yaml:"repeats"`     // runs per cell, durations are averaged

	LockBaseline bool `yaml:"lock_baseline"`
	PinWorkers   bool `yaml:"pin_workers"`

	MinChunk          int     `yaml:"min_chunk"`
	VarianceThreshold float64 `yaml:"variance_threshold"`
	AdaptiveSelect    bool    `yaml:"adaptive_select"` // adaptive picks a policy per batch instead of running heterogeneous

	// Schedule repeats the sweep on a cron expression when set.
	Schedule string `yaml:"schedule"`

	Output OutputConfig `yaml:"output"`
}

// OutputConfig selects where reports go.
type OutputConfig struct {
	CSV   string      `yaml:"csv"` // file path, "-" for stdout
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig enables the Redis report sink when Addr is set.
type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	DB     int           `yaml:"db"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// Default returns the reference sweep: the mixed workload
// at 1, 2, 4, 8, 12 and 16 threads for every core policy, 1000 tasks, once,
// with the lock-based baseline.
func Default() BenchConfig {
	return BenchConfig{
		Threads:      []int{1, 2, 4, 8, 12, 16},
		Policies:     []string{"static", "dynamic", "guided", "heterogeneous"},
		Workloads:    []string{"mixed"},
		Tasks:        1000,
		MatrixSize:   50,
		Repeats:      1,
		LockBaseline: true,
		MinChunk:     policy.DefaultMinChunk,

		VarianceThreshold: policy.DefaultVarianceThreshold,

		Output: OutputConfig{
			CSV: "-",
			Redis: RedisConfig{
				Prefix: "adaptsched:bench",
				TTL:    24 * time.Hour,
			},
		},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (BenchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BenchConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return BenchConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (BenchConfig, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return BenchConfig{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return BenchConfig{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c BenchConfig) Validate() error {
	if err := validation.ValidateList("config", "threads", c.Threads, func(t int) error {
		return validation.ValidatePositive("config", "threads", t)
	}); err != nil {
		return err
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	if _, err := c.Generators(); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "tasks", c.Tasks); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "matrix_size", c.MatrixSize); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "repeats", c.Repeats); err != nil {
		return err
	}
	opts := c.PolicyOptions()
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("config", "output.redis.ttl", c.Output.Redis.TTL); err != nil {
		return err
	}
	return nil
}

// Kinds parses the configured policy names.
func (c BenchConfig) Kinds() ([]policy.Kind, error) {
	if err := validation.ValidateList[string]("config", "policies", c.Policies, nil); err != nil {
		return nil, err
	}
	kinds := make([]policy.Kind, 0, len(c.Policies))
	for _, name := range c.Policies {
		k, err := policy.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Generators resolves the configured workload names.
func (c BenchConfig) Generators() ([]workload.Generator, error) {
	if err := validation.ValidateList[string]("config", "workloads", c.Workloads, nil); err != nil {
		return nil, err
	}
	gens := make([]workload.Generator, 0, len(c.Workloads))
	for _, name := range c.Workloads {
		g, err := workload.ByName(name)
		if err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, nil
}

// SizeFor returns the problem size passed to a workload generator.
func (c BenchConfig) SizeFor(g workload.Generator) int {
	if g.Name() == "matrix" {
		return c.MatrixSize
	}
	return c.Tasks
}

// PolicyOptions returns the tuning for Guided and Adaptive.
func (c BenchConfig) PolicyOptions() policy.Options {
	return policy.Options{
		MinChunk:          c.MinChunk,
		VarianceThreshold: c.VarianceThreshold,
		SelectByVariance:  c.AdaptiveSelect,
	}
}
