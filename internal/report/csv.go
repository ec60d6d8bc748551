package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vnykmshr/adaptsched/internal/bench"
)

// CSVSink writes the results, fairness and latency sections:
//
//	=== MIXED_WORKLOAD_RESULTS ===
//	Workload,Mode,Threads,Duration_sec,Throughput,Speedup,Efficiency
//	=== PER_THREAD_FAIRNESS ===
//	Mode,Threads,MinTasks,MaxTasks,MeanTasks,SD_Tasks,Fairness
//	=== TASK_LATENCY_HISTOGRAM ===
//	Bin_0_1ms,...,Bin_100pms
//
// A results and a fairness section is written per workload.
type CSVSink struct {
	w io.Writer
}

// NewCSVSink returns a sink writing to w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: w}
}

func (s *CSVSink) Write(_ context.Context, rep *bench.Report) error {
	bw := bufio.NewWriter(s.w)

	for _, wl := range workloads(rep) {
		fmt.Fprintf(bw, "=== %s_WORKLOAD_RESULTS ===\n", strings.ToUpper(wl))
		fmt.Fprintln(bw, "Workload,Mode,Threads,Duration_sec,Throughput,Speedup,Efficiency")
		for _, r := range rep.Results {
			if r.Workload != wl {
				continue
			}
			fmt.Fprintf(bw, "%s,%s,%d,%.5f,%.2f,%.3f,%.2f\n",
				r.Workload, r.Mode, r.Threads, r.Duration.Seconds(), r.Throughput, r.Speedup, r.Efficiency)
		}

		fmt.Fprintln(bw, "=== PER_THREAD_FAIRNESS ===")
		fmt.Fprintln(bw, "Mode,Threads,MinTasks,MaxTasks,MeanTasks,SD_Tasks,Fairness")
		for _, f := range rep.Fairness {
			if f.Workload != wl {
				continue
			}
			fmt.Fprintf(bw, "%s,%d,%d,%d,%.2f,%.2f,%.2f\n",
				f.Mode, f.Threads, f.Min, f.Max, f.Mean, f.StdDev, f.Fairness)
		}
	}

	fmt.Fprintln(bw, "=== TASK_LATENCY_HISTOGRAM ===")
	fmt.Fprintln(bw, strings.Join(bench.BinLabels[:], ","))
	bins := make([]string, len(rep.Latency.Bins))
	for i, c := range rep.Latency.Bins {
		bins[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(bw, strings.Join(bins, ","))

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

// workloads returns the workload names of rep in first-seen order.
func workloads(rep *bench.Report) []string {
	var names []string
	seen := map[string]bool{}
	for _, r := range rep.Results {
		if !seen[r.Workload] {
			seen[r.Workload] = true
			names = append(names, r.Workload)
		}
	}
	return names
}
