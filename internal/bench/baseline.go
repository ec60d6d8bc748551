package bench

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"golang.org/x/sync/errgroup"
)

// baselineIterations is the busy loop of one lock-based task.
const baselineIterations = 10000

// cell is the raw measurement of one run.
type cell struct {
	duration  time.Duration
	counts    []int64
	latencies []time.Duration
}

// lockBased splits n fixed tasks statically over threads goroutines. Each
// task spins, then bumps a mutex-guarded shared counter.
func lockBased(ctx context.Context, threads, n int) (cell, error) {
	var (
		mu      sync.Mutex
		counter int
	)
	c := cell{
		counts:    make([]int64, threads),
		latencies: make([]time.Duration, n),
	}

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < threads; w++ {
		w := w
		g.Go(func() error {
			lo, hi := policy.StaticRange(n, threads, w)
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				began := time.Now()
				spin(baselineIterations)
				c.counts[w]++
				mu.Lock()
				counter++
				mu.Unlock()
				c.latencies[i] = time.Since(began)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cell{}, err
	}
	c.duration = time.Since(start)
	return c, nil
}

var spinSink atomic.Uint64

func spin(iterations int) {
	sum := 0.0
	for j := 0; j < iterations; j++ {
		sum += float64(j) * 0.001
	}
	spinSink.Store(math.Float64bits(sum))
}
