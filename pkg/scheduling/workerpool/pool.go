package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
)

// Body is the per-worker function of a run. It is called once on every
// worker with that worker's id in [0, Size()).
type Body func(ctx context.Context, workerID int)

// Pool is a fixed set of long-lived workers that execute runs together.
// Workers are created once and reused by every run until Shutdown.
type Pool interface {
	// Run hands body to every worker and returns after all of them have
	// returned from it. Runs are serialized. Run must not be called from
	// inside a body.
	Run(ctx context.Context, body Body) error

	// Shutdown stops the workers after any in-flight run finishes.
	// Returns a channel that closes when every worker has exited.
	Shutdown() <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// ActiveWorkers returns the number of workers currently inside a body.
	ActiveWorkers() int

	// TotalRuns returns the number of runs completed by the pool.
	TotalRuns() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// PinWorkers locks each worker to its own OS thread and, where the
	// platform supports it, to CPU workerID % NumCPU.
	PinWorkers bool

	// PanicHandler is called when a body panics. The worker survives and the
	// run still completes. If nil, the panic is swallowed.
	PanicHandler func(workerID int, recovered interface{})

	// OnPinError is called when a worker could not be pinned to a CPU.
	OnPinError func(workerID int, err error)

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config

	workers      []worker
	shutdownOnce sync.Once

	// runMu serializes runs and lets Shutdown wait for the current one.
	runMu      sync.Mutex
	isShutdown bool

	activeWorkers atomic.Int32
	totalRuns     atomic.Int64

	workerWg sync.WaitGroup
}

// job is one worker's share of a run.
type job struct {
	ctx  context.Context
	body Body
	wg   *sync.WaitGroup
}

// worker represents a single worker in the pool.
type worker struct {
	id     int
	pool   *workerPool
	jobs   chan job
	stopCh chan struct{}
}

// New creates a new worker pool with the specified number of workers.
func New(workerCount int) Pool {
	return NewWithConfig(Config{WorkerCount: workerCount})
}

// NewWithConfig creates a new worker pool with the specified configuration.
func NewWithConfig(config Config) Pool {
	if config.WorkerCount <= 0 {
		panic("worker count must be positive")
	}

	pool := &workerPool{config: config}

	pool.workers = make([]worker, config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		pool.workers[i] = worker{
			id:     i,
			pool:   pool,
			jobs:   make(chan job, 1),
			stopCh: make(chan struct{}),
		}
		pool.workerWg.Add(1)
		go pool.workers[i].run()
	}

	return pool
}
