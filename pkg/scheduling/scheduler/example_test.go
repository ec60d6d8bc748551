package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/metrics"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/scheduler"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// Example demonstrates basic scheduler usage.
func Example() {
	s, err := scheduler.New(4, 100, policy.Dynamic)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Destroy()

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		if _, err := s.Submit(func() { counter.Add(1) }, task.Light); err != nil {
			log.Fatal(err)
		}
	}

	if err := s.Run(); err != nil {
		log.Fatal(err)
	}
	if err := s.Wait(); err != nil {
		log.Fatal(err)
	}

	snap, _ := s.Metrics()
	fmt.Println("counter:", counter.Load())
	fmt.Println("completed:", snap.Completed)
	fmt.Println("state:", s.State())

	// Output:
	// counter: 100
	// completed: 100
	// state: idle
}

// Example_heterogeneous runs a mixed batch where light tasks are split
// statically and heavier ones are balanced dynamically.
func Example_heterogeneous() {
	s, err := scheduler.New(3, 30, policy.Heterogeneous)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Destroy()

	var units atomic.Int64
	for i := 0; i < 30; i++ {
		w := task.Weights()[i%3]
		_, _ = s.Submit(func() { units.Add(int64(w)) }, w)
	}

	_ = s.Run()
	_ = s.Wait()

	fmt.Println("weight units:", units.Load())

	// Output:
	// weight units: 60
}

// Example_capacity shows the error returned when the queue is full.
func Example_capacity() {
	s, _ := scheduler.New(2, 2, policy.Static)
	defer s.Destroy()

	_, _ = s.Submit(func() {}, task.Light)
	_, _ = s.Submit(func() {}, task.Light)
	_, err := s.Submit(func() {}, task.Light)

	fmt.Println(errors.Is(err, aserrors.ErrCapacityExceeded))
	fmt.Println("queued:", s.Queued())

	// Output:
	// true
	// queued: 2
}

// Example_cancellation stops a run early; tasks that never started are skipped.
func Example_cancellation() {
	s, _ := scheduler.New(1, 10, policy.Dynamic)
	defer s.Destroy()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i := 0; i < 10; i++ {
		_, _ = s.Submit(task.Func(cancel), task.Light)
	}

	err := s.RunContext(ctx)
	snap, _ := s.Metrics()

	fmt.Println(errors.Is(err, context.Canceled))
	fmt.Println("completed:", snap.Completed, "skipped:", snap.Skipped)

	// Output:
	// true
	// completed: 1 skipped: 9
}

// Example_config configures a named, instrumented adaptive scheduler.
func Example_config() {
	s, err := scheduler.NewWithConfig(scheduler.Config{
		Name:     "batch",
		Threads:  2,
		Capacity: 16,
		Policy:   policy.Adaptive,
		PolicyOptions: policy.Options{
			MinChunk:          2,
			VarianceThreshold: 0.25,
			SelectByVariance:  true,
		},
		Metrics: metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer s.Destroy()

	for i := 0; i < 16; i++ {
		_, _ = s.Submit(func() { time.Sleep(time.Microsecond) }, task.Heavy)
	}
	_ = s.Run()
	_ = s.Wait()

	snap, _ := s.Metrics()
	fmt.Println(s.Name(), s.Policy(), snap.Completed)

	// Output:
	// batch adaptive 16
}
