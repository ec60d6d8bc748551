package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
)

// barrier counts pending tasks and lets waiters block until the count is
// zero. The goroutine whose decrement reaches zero closes the current zero
// channel; that close orders every write made before the decrement ahead of
// the waiter's return.
type barrier struct {
	pending atomic.Int64

	mu   sync.Mutex
	zero chan struct{}
}

func newBarrier() *barrier {
	b := &barrier{zero: make(chan struct{})}
	close(b.zero)
	return b
}

// add registers one pending task. It is only called while no run is in
// progress, so it never races with a decrement reaching zero.
func (b *barrier) add() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending.Add(1) == 1 {
		b.zero = make(chan struct{})
	}
}

// done releases one pending task.
func (b *barrier) done() {
	b.doneN(1)
}

// doneN releases n pending tasks at once.
func (b *barrier) doneN(n int) {
	if n <= 0 {
		return
	}
	if b.pending.Add(-int64(n)) == 0 {
		b.mu.Lock()
		close(b.zero)
		b.mu.Unlock()
	}
}

func (b *barrier) count() int64 {
	return b.pending.Load()
}

// wait blocks until the pending count reaches zero or ctx is done.
func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	ch := b.zero
	b.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
