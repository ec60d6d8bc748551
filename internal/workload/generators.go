package workload

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// Matrix multiplies two n×n matrices filled with 1.5 and 2.0. Each output
// row is one Heavy task; every cell of the result must equal 3.0·n.
type Matrix struct{}

func (Matrix) Name() string { return "matrix" }

func (Matrix) Tasks(n int) int { return n }

func (m Matrix) Populate(s Submitter, n int) (Check, error) {
	a := filled(n, 1.5)
	b := filled(n, 2.0)
	c := filled(n, 0)

	fns := make([]task.Func, n)
	for row := range fns {
		row := row
		fns[row] = func() {
			for j := 0; j < n; j++ {
				sum := 0.0
				for k := 0; k < n; k++ {
					sum += a[row][k] * b[k][j]
				}
				c[row][j] = sum
			}
		}
	}
	if err := submitAll(s, m.Name(), fns, func(int) task.Weight { return task.Heavy }); err != nil {
		return nil, err
	}

	want := 3.0 * float64(n)
	return func() error {
		for i := range c {
			for j := range c[i] {
				if c[i][j] != want {
					return fmt.Errorf("matrix: C[%d][%d] = %g, want %g", i, j, c[i][j], want)
				}
			}
		}
		return nil
	}, nil
}

func filled(n int, v float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = v
		}
	}
	return m
}

// Reduction sums an array of n ones in 100 chunks of Light tasks sharing
// one atomic accumulator. The sum must equal n.
type Reduction struct{}

func (Reduction) Name() string { return "reduction" }

func reductionChunk(n int) int {
	if chunk := n / 100; chunk > 0 {
		return chunk
	}
	return 1
}

func (Reduction) Tasks(n int) int {
	if n <= 0 {
		return 0
	}
	chunk := reductionChunk(n)
	return (n + chunk - 1) / chunk
}

func (r Reduction) Populate(s Submitter, n int) (Check, error) {
	data := make([]int64, n)
	for i := range data {
		data[i] = 1
	}

	var total atomic.Int64
	chunk := reductionChunk(n)
	fns := make([]task.Func, 0, r.Tasks(n))
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		fns = append(fns, func() {
			var sum int64
			for _, v := range data[lo:hi] {
				sum += v
			}
			total.Add(sum)
		})
	}
	if err := submitAll(s, r.Name(), fns, func(int) task.Weight { return task.Light }); err != nil {
		return nil, err
	}

	return func() error {
		if got := total.Load(); got != int64(n) {
			return fmt.Errorf("reduction: sum = %d, want %d", got, n)
		}
		return nil
	}, nil
}

// Mixed cycles Light, Medium and Heavy busy loops of 1e3, 1e4 and 1e5
// iterations.
type Mixed struct{}

func (Mixed) Name() string { return "mixed" }

func (Mixed) Tasks(n int) int { return n }

// sink keeps the busy loops from being optimized away.
var sink atomic.Uint64

func lightLoop() {
	sum := 0
	for i := 0; i < 1000; i++ {
		sum += i
	}
	sink.Add(uint64(sum))
}

func mediumLoop() {
	sum := 0.0
	for i := 0; i < 10000; i++ {
		sum += math.Sqrt(float64(i))
	}
	sink.Add(math.Float64bits(sum) & 1)
}

func heavyLoop() {
	sum := 0.0
	for i := 0; i < 100000; i++ {
		sum += math.Sin(float64(i)) * math.Cos(float64(i))
	}
	sink.Add(math.Float64bits(sum) & 1)
}

func (m Mixed) Populate(s Submitter, n int) (Check, error) {
	var done atomic.Int64
	loops := [...]func(){lightLoop, mediumLoop, heavyLoop}

	fns := make([]task.Func, n)
	for i := range fns {
		loop := loops[i%3]
		fns[i] = func() {
			loop()
			done.Add(1)
		}
	}
	if err := submitAll(s, m.Name(), fns, func(i int) task.Weight { return task.Weights()[i%3] }); err != nil {
		return nil, err
	}
	return countCheck(m.Name(), &done, n), nil
}

// Counter submits n trivial increments of a shared counter, cycling weights.
// The counter must equal n.
type Counter struct{}

func (Counter) Name() string { return "counter" }

func (Counter) Tasks(n int) int { return n }

func (c Counter) Populate(s Submitter, n int) (Check, error) {
	var count atomic.Int64
	fns := make([]task.Func, n)
	for i := range fns {
		fns[i] = func() { count.Add(1) }
	}
	if err := submitAll(s, c.Name(), fns, func(i int) task.Weight { return task.Weights()[i%3] }); err != nil {
		return nil, err
	}
	return countCheck(c.Name(), &count, n), nil
}

func countCheck(name string, got *atomic.Int64, want int) Check {
	return func() error {
		if n := got.Load(); n != int64(want) {
			return fmt.Errorf("%s: %d tasks ran, want %d", name, n, want)
		}
		return nil
	}
}
