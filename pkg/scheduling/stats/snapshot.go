package stats

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Snapshot is a point-in-time copy of an Aggregator.
type Snapshot struct {
	Completed int64
	ExecTime  time.Duration
	IdleTime  time.Duration
	Claims    int64
	Panics    int64
	Skipped   int64
	Runs      int64
	RunTime   time.Duration
	Workers   []WorkerStats
}

// WorkerStats holds the per-worker share of a snapshot.
type WorkerStats struct {
	Executed int64
	Busy     time.Duration
}

// AvgExecTime is the mean task execution time.
func (s Snapshot) AvgExecTime() time.Duration {
	if s.Completed == 0 {
		return 0
	}
	return s.ExecTime / time.Duration(s.Completed)
}

// Efficiency is exec / (exec + idle), or 0 when nothing was measured.
func (s Snapshot) Efficiency() float64 {
	total := s.ExecTime + s.IdleTime
	if total <= 0 {
		return 0
	}
	return float64(s.ExecTime) / float64(total)
}

// IdleRatio is idle / (exec + idle).
func (s Snapshot) IdleRatio() float64 {
	total := s.ExecTime + s.IdleTime
	if total <= 0 {
		return 0
	}
	return float64(s.IdleTime) / float64(total)
}

// Throughput returns completed tasks per second over elapsed. A zero elapsed
// falls back to the accumulated run time.
func (s Snapshot) Throughput(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		elapsed = s.RunTime
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Completed) / elapsed.Seconds()
}

// LoadBalance summarises how evenly tasks were spread over workers.
func (s Snapshot) LoadBalance() LoadBalance {
	counts := make([]int64, len(s.Workers))
	for i, w := range s.Workers {
		counts[i] = w.Executed
	}
	return Balance(counts)
}

func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tasks completed: %s\n", humanize.Comma(s.Completed))
	fmt.Fprintf(&b, "total exec time: %s\n", s.ExecTime)
	fmt.Fprintf(&b, "avg task time:   %s\n", s.AvgExecTime())
	fmt.Fprintf(&b, "idle ratio:      %.3f\n", s.IdleRatio())
	fmt.Fprintf(&b, "queue claims:    %s", humanize.Comma(s.Claims))
	if s.Panics > 0 {
		fmt.Fprintf(&b, "\npanics:          %s", humanize.Comma(s.Panics))
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "\nskipped:         %s", humanize.Comma(s.Skipped))
	}
	return b.String()
}

// LoadBalance describes the distribution of executed task counts.
type LoadBalance struct {
	Min, Max int64
	Mean     float64
	StdDev   float64
	// Fairness is 100 * Min / Mean, 0 when Mean is 0.
	Fairness float64
}

// Balance computes a LoadBalance over per-worker task counts using the
// population standard deviation.
func Balance(counts []int64) LoadBalance {
	if len(counts) == 0 {
		return LoadBalance{}
	}

	lb := LoadBalance{Min: counts[0], Max: counts[0]}
	var sum int64
	for _, c := range counts {
		if c < lb.Min {
			lb.Min = c
		}
		if c > lb.Max {
			lb.Max = c
		}
		sum += c
	}
	lb.Mean = float64(sum) / float64(len(counts))

	var sq float64
	for _, c := range counts {
		d := float64(c) - lb.Mean
		sq += d * d
	}
	lb.StdDev = math.Sqrt(sq / float64(len(counts)))

	if lb.Mean > 0 {
		lb.Fairness = 100 * float64(lb.Min) / lb.Mean
	}
	return lb
}
