package task

import (
	"fmt"
	"sync"

	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/common/validation"
)

// Queue is a bounded, append-only sequence of Records.
//
// Appends happen only while no run is in progress, so the slice handed out by
// Snapshot or Drain is read concurrently by workers without further locking.
// The mutex only serializes Append against Len and Drain on the submitting
// side.
type Queue struct {
	mu       sync.Mutex
	records  []Record
	capacity int
}

// NewQueue allocates storage for capacity records.
func NewQueue(capacity int) (*Queue, error) {
	if err := validation.ValidatePositive("queue", "capacity", capacity); err != nil {
		return nil, err
	}
	return &Queue{
		records:  make([]Record, 0, capacity),
		capacity: capacity,
	}, nil
}

// Append adds a record at the tail and returns its id. The queue is left
// unchanged when it is full or the record is invalid.
func (q *Queue) Append(fn Func, weight Weight) (int, error) {
	if err := validation.ValidateNotNil("queue", "fn", fn); err != nil {
		return -1, err
	}
	if !weight.Valid() {
		return -1, aserrors.NewValidationError("queue", "weight", int(weight), "unrecognized value").
			WithHint("use task.Light, task.Medium or task.Heavy")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.records == nil {
		return -1, aserrors.ErrClosed
	}
	if len(q.records) >= q.capacity {
		return -1, fmt.Errorf("queue holds %d of %d tasks: %w", len(q.records), q.capacity, aserrors.ErrCapacityExceeded)
	}

	id := len(q.records)
	q.records = append(q.records, Record{ID: id, Weight: weight, Fn: fn})
	return id, nil
}

// Snapshot returns the records queued since the last Drain in insertion
// order. Callers must treat the result as read-only.
func (q *Queue) Snapshot() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.records[:len(q.records):len(q.records)]
}

// Drain returns the queued records and resets the queue so that the next
// batch starts at id 0 with full capacity available. The returned slice is
// not reused by later appends.
func (q *Queue) Drain() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.records
	if q.records != nil {
		q.records = make([]Record, 0, q.capacity)
	}
	return out
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return q.capacity
}

// Release frees the queue storage. Further appends fail with ErrClosed.
func (q *Queue) Release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = nil
}
