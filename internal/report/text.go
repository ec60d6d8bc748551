package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/vnykmshr/adaptsched/internal/bench"
)

// TextSink writes an aligned human-readable summary.
type TextSink struct {
	w io.Writer
}

// NewTextSink returns a sink writing to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Write(_ context.Context, rep *bench.Report) error {
	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "run %s  %s/%s  %d CPUs  GOMAXPROCS=%d  %s\n",
		rep.ID, rep.Env.GOOS, rep.Env.GOARCH, rep.Env.NumCPU, rep.Env.GOMAXPROCS, rep.Env.GoVersion)
	fmt.Fprintf(tw, "started %s, took %s\n\n", humanize.Time(rep.Started), rep.Elapsed.Round(1e6))

	fmt.Fprintln(tw, "WORKLOAD\tMODE\tTHREADS\tTASKS\tDURATION\tTASKS/S\tSPEEDUP\tEFFICIENCY")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%.2fx\t%.1f%%\n",
			r.Workload, r.Mode, r.Threads, humanize.Comma(int64(r.Tasks)), r.Duration.Round(1e3),
			humanize.CommafWithDigits(r.Throughput, 0), r.Speedup, r.Efficiency)
	}

	best := bestPerWorkload(rep)
	if len(best) > 0 {
		fmt.Fprintln(tw)
		for _, r := range best {
			fmt.Fprintf(tw, "fastest %s: %s at %d threads (%.2fx)\n", r.Workload, r.Mode, r.Threads, r.Speedup)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func bestPerWorkload(rep *bench.Report) []bench.Result {
	var out []bench.Result
	for _, wl := range workloads(rep) {
		var best *bench.Result
		for i := range rep.Results {
			r := &rep.Results[i]
			if r.Workload == wl && (best == nil || r.Duration < best.Duration) {
				best = r
			}
		}
		if best != nil {
			out = append(out, *best)
		}
	}
	return out
}
