package policy

import (
	"sync/atomic"

	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// StaticRange returns worker's half-open range [lo, hi) when n tasks are split
// into ceil(n/workers) sized chunks. Trailing workers get empty ranges when
// n < workers.
func StaticRange(n, workers, worker int) (lo, hi int) {
	if n <= 0 || workers <= 0 || worker < 0 {
		return 0, 0
	}
	chunk := (n + workers - 1) / workers
	lo = worker * chunk
	if lo > n {
		lo = n
	}
	hi = lo + chunk
	if hi > n {
		hi = n
	}
	return lo, hi
}

// Cursor hands out indices in [0, n) to concurrent claimers. Every index is
// returned by exactly one successful claim.
type Cursor struct {
	next atomic.Int64
	n    int64
}

// NewCursor creates a cursor over n indices.
func NewCursor(n int) *Cursor {
	return &Cursor{n: int64(n)}
}

// Next claims a single index with one fetch-and-add.
func (c *Cursor) Next() (int, bool) {
	i := c.next.Add(1) - 1
	if i >= c.n {
		return 0, false
	}
	return int(i), true
}

// NextChunk claims [lo, hi) where hi-lo is max(minChunk, remaining/workers)
// clipped to what is left.
func (c *Cursor) NextChunk(workers, minChunk int) (lo, hi int, ok bool) {
	if workers < 1 {
		workers = 1
	}
	if minChunk < 1 {
		minChunk = 1
	}
	for {
		cur := c.next.Load()
		if cur >= c.n {
			return 0, 0, false
		}
		remaining := c.n - cur
		size := remaining / int64(workers)
		if size < int64(minChunk) {
			size = int64(minChunk)
		}
		if size > remaining {
			size = remaining
		}
		if c.next.CompareAndSwap(cur, cur+size) {
			return int(cur), int(cur + size), true
		}
	}
}

// Remaining returns how many indices have not been claimed.
func (c *Cursor) Remaining() int {
	r := c.n - c.next.Load()
	if r < 0 {
		return 0
	}
	return int(r)
}

// PartitionByWeight stably reorders tasks into Light, then Medium, then Heavy
// with one counting pass and one placement pass. counts holds the bucket
// sizes in that order. Records with an unknown weight are treated as Heavy.
func PartitionByWeight(tasks []task.Record) (sorted []task.Record, counts [3]int) {
	for _, rec := range tasks {
		counts[bucket(rec.Weight)]++
	}

	offsets := [3]int{0, counts[0], counts[0] + counts[1]}
	sorted = make([]task.Record, len(tasks))
	for _, rec := range tasks {
		b := bucket(rec.Weight)
		sorted[offsets[b]] = rec
		offsets[b]++
	}
	return sorted, counts
}

func bucket(w task.Weight) int {
	switch w {
	case task.Light:
		return 0
	case task.Medium:
		return 1
	default:
		return 2
	}
}
