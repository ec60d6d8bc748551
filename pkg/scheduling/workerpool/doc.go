/*
Package workerpool provides the fixed set of long-lived workers the scheduler
executes its runs on.

Unlike a queue-fed pool, a run here is a single Body handed to every worker at
once. Each worker calls the body with its own id and the run ends when all of
them have returned. The workers survive between runs, so the cost of starting
goroutines (and pinning them) is paid once per pool rather than once per run.

Basic usage:

	pool := workerpool.New(4)
	defer func() { <-pool.Shutdown() }()

	var sum atomic.Int64
	err := pool.Run(ctx, func(ctx context.Context, workerID int) {
		sum.Add(int64(workerID))
	})

Configuration Options:

	config := workerpool.Config{
		WorkerCount: runtime.NumCPU(),
		PinWorkers:  true,
		PanicHandler: func(workerID int, recovered interface{}) {
			log.Printf("worker %d panicked: %v", workerID, recovered)
		},
		OnWorkerStart: func(workerID int) {
			scratch[workerID] = make([]float64, 1024)
		},
	}
	pool := workerpool.NewWithConfig(config)

CPU Pinning:

With PinWorkers set, every worker locks itself to an OS thread. On Linux the
thread is additionally bound to CPU workerID % NumCPU with sched_setaffinity;
failures are reported through OnPinError and the worker keeps running
unpinned.

Runs and Shutdown:

Runs are serialized: a second Run blocks until the first returns. Shutdown
waits for the in-flight run, then stops every worker. A body must not call Run
or Shutdown on its own pool.

Monitoring and Metrics:

	pool.Size()          // number of workers
	pool.ActiveWorkers() // workers currently inside a body
	pool.TotalRuns()     // completed runs

NewWithMetrics and NewWithConfigAndMetrics wrap a pool with Prometheus
collectors (pool size, active workers and run count), see package metrics.
*/
package workerpool
