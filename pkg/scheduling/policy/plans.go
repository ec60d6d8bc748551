package policy

import (
	"context"

	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// StaticPolicy assigns each worker one contiguous range. Workers never
// coordinate after partitioning.
type StaticPolicy struct{}

func (StaticPolicy) Kind() Kind { return Static }

func (StaticPolicy) Plan(tasks []task.Record, workers int) Plan {
	return &staticPlan{tasks: tasks, workers: workers}
}

type staticPlan struct {
	tasks   []task.Record
	workers int
}

func (p *staticPlan) Kind() Kind { return Static }

func (p *staticPlan) Work(ctx context.Context, workerID int, exec Executor) {
	lo, hi := StaticRange(len(p.tasks), p.workers, workerID)
	runRange(ctx, workerID, p.tasks[lo:hi], exec)
}

// DynamicPolicy claims tasks one at a time from a shared cursor.
type DynamicPolicy struct{}

func (DynamicPolicy) Kind() Kind { return Dynamic }

func (DynamicPolicy) Plan(tasks []task.Record, _ int) Plan {
	return &dynamicPlan{tasks: tasks, cursor: NewCursor(len(tasks))}
}

type dynamicPlan struct {
	tasks  []task.Record
	cursor *Cursor
}

func (p *dynamicPlan) Kind() Kind { return Dynamic }

func (p *dynamicPlan) Work(ctx context.Context, workerID int, exec Executor) {
	drainCursor(ctx, workerID, p.tasks, p.cursor, exec)
}

// drainCursor claims single indices of tasks until the cursor is exhausted.
func drainCursor(ctx context.Context, workerID int, tasks []task.Record, c *Cursor, exec Executor) {
	for ctx.Err() == nil {
		i, ok := c.Next()
		if !ok {
			return
		}
		exec.Claimed(workerID)
		exec.Execute(workerID, tasks[i])
	}
}

// GuidedPolicy claims chunks that shrink as the batch drains.
type GuidedPolicy struct {
	MinChunk int
}

func (GuidedPolicy) Kind() Kind { return Guided }

func (g GuidedPolicy) Plan(tasks []task.Record, workers int) Plan {
	return &guidedPlan{
		tasks:    tasks,
		workers:  workers,
		minChunk: g.MinChunk,
		cursor:   NewCursor(len(tasks)),
	}
}

type guidedPlan struct {
	tasks    []task.Record
	workers  int
	minChunk int
	cursor   *Cursor
}

func (p *guidedPlan) Kind() Kind { return Guided }

func (p *guidedPlan) Work(ctx context.Context, workerID int, exec Executor) {
	for ctx.Err() == nil {
		lo, hi, ok := p.cursor.NextChunk(p.workers, p.minChunk)
		if !ok {
			return
		}
		exec.Claimed(workerID)
		if !runRange(ctx, workerID, p.tasks[lo:hi], exec) {
			return
		}
	}
}
