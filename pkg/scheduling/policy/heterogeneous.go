package policy

import (
	"context"

	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// HeterogeneousPolicy partitions the batch by weight. Light tasks are split
// statically; Medium and Heavy tasks go to a shared single-task cursor. A
// worker moves on to the cursor as soon as its light slice is done, so both
// phases overlap within one pass of the pool.
type HeterogeneousPolicy struct{}

func (HeterogeneousPolicy) Kind() Kind { return Heterogeneous }

func (HeterogeneousPolicy) Plan(tasks []task.Record, workers int) Plan {
	sorted, counts := PartitionByWeight(tasks)
	light := counts[0]
	return &heterogeneousPlan{
		light:   sorted[:light],
		rest:    sorted[light:],
		workers: workers,
		cursor:  NewCursor(len(sorted) - light),
	}
}

type heterogeneousPlan struct {
	light   []task.Record
	rest    []task.Record
	workers int
	cursor  *Cursor
}

func (p *heterogeneousPlan) Kind() Kind { return Heterogeneous }

func (p *heterogeneousPlan) Work(ctx context.Context, workerID int, exec Executor) {
	lo, hi := StaticRange(len(p.light), p.workers, workerID)
	if !runRange(ctx, workerID, p.light[lo:hi], exec) {
		return
	}
	drainCursor(ctx, workerID, p.rest, p.cursor, exec)
}
