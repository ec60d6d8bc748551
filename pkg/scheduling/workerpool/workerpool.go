package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
)

// Run dispatches body to every worker and waits for all of them.
func (p *workerPool) Run(ctx context.Context, body Body) error {
	if body == nil {
		return fmt.Errorf("body cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.isShutdown {
		return fmt.Errorf("cannot run: worker pool has been shut down: %w", aserrors.ErrClosed)
	}

	var wg sync.WaitGroup
	wg.Add(len(p.workers))
	for i := range p.workers {
		// Each worker is idle between runs, so its one-slot mailbox is empty.
		p.workers[i].jobs <- job{ctx: ctx, body: body, wg: &wg}
	}
	wg.Wait()

	p.totalRuns.Add(1)
	return nil
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	done := make(chan struct{})

	p.shutdownOnce.Do(func() {
		// Wait for an in-flight run so no dispatched job is abandoned.
		p.runMu.Lock()
		p.isShutdown = true
		p.runMu.Unlock()

		for i := range p.workers {
			close(p.workers[i].stopCh)
		}

		go func() {
			p.workerWg.Wait()
			close(done)
		}()
	})

	return done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// ActiveWorkers returns the number of workers currently executing a body.
func (p *workerPool) ActiveWorkers() int {
	return int(p.activeWorkers.Load())
}

// TotalRuns returns the number of completed runs.
func (p *workerPool) TotalRuns() int64 {
	return p.totalRuns.Load()
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	cfg := &w.pool.config
	if cfg.PinWorkers {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinToCPU(w.id); err != nil && cfg.OnPinError != nil {
			cfg.OnPinError(w.id, err)
		}
	}

	if cfg.OnWorkerStart != nil {
		cfg.OnWorkerStart(w.id)
	}
	if cfg.OnWorkerStop != nil {
		defer cfg.OnWorkerStop(w.id)
	}

	for {
		select {
		case <-w.stopCh:
			return
		case j := <-w.jobs:
			w.execute(j)
		}
	}
}

// execute runs one worker's share of a run with panic recovery.
func (w *worker) execute(j job) {
	defer j.wg.Done()

	w.pool.activeWorkers.Add(1)
	defer w.pool.activeWorkers.Add(-1)

	defer func() {
		if r := recover(); r != nil && w.pool.config.PanicHandler != nil {
			w.pool.config.PanicHandler(w.id, r)
		}
	}()

	j.body(j.ctx, w.id)
}
