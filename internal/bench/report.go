package bench

import (
	"runtime"
	"time"

	"github.com/vnykmshr/adaptsched/pkg/scheduling/stats"
)

// ModeLockBased labels the mutex-guarded baseline rows.
const ModeLockBased = "LOCK_BASED"

// Report is the outcome of one sweep.
type Report struct {
	ID       string
	Started  time.Time
	Elapsed  time.Duration
	Env      Environment
	Results  []Result
	Fairness []FairnessRow
	Latency  Histogram
}

// Environment records where the sweep ran.
type Environment struct {
	GoVersion  string
	GOOS       string
	GOARCH     string
	NumCPU     int
	GOMAXPROCS int
}

func currentEnvironment() Environment {
	return Environment{
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
}

// Result is one cell of the sweep.
type Result struct {
	Workload   string
	Mode       string
	Threads    int
	Tasks      int
	Duration   time.Duration // mean over repeats
	Throughput float64       // tasks per second
	Speedup    float64       // against the workload's static single-thread cell
	Efficiency float64       // speedup / threads · 100
}

// FairnessRow summarizes how evenly one cell spread its tasks.
type FairnessRow struct {
	Workload string
	Mode     string
	Threads  int
	stats.LoadBalance
}

// Histogram bin upper bounds in milliseconds. The last bin is open.
var binBounds = [...]float64{1, 2, 5, 10, 20, 50, 100}

// BinLabels are the column names of the latency histogram.
var BinLabels = [...]string{
	"Bin_0_1ms", "Bin_1_2ms", "Bin_2_5ms", "Bin_5_10ms",
	"Bin_10_20ms", "Bin_20_50ms", "Bin_50_100ms", "Bin_100pms",
}

// Histogram counts task latencies of one cell.
type Histogram struct {
	Source string
	Bins   [len(BinLabels)]int
}

// NewHistogram bins latencies.
func NewHistogram(source string, latencies []time.Duration) Histogram {
	h := Histogram{Source: source}
	for _, l := range latencies {
		h.Add(l)
	}
	return h
}

// Add counts one latency.
func (h *Histogram) Add(l time.Duration) {
	ms := float64(l) / float64(time.Millisecond)
	for i, bound := range binBounds {
		if ms < bound {
			h.Bins[i]++
			return
		}
	}
	h.Bins[len(h.Bins)-1]++
}

// Total returns the number of binned latencies.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h.Bins {
		n += c
	}
	return n
}
