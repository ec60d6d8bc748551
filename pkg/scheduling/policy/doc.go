// Package policy implements the partitioning policies that map a batch of
// queued tasks onto a fixed set of workers.
//
// A Policy turns a batch into a Plan; the scheduler then calls Plan.Work once
// on every worker of its pool. The plans differ only in how a worker finds
// its next task:
//
//   - Static: contiguous ranges of ceil(n/workers) tasks, no coordination.
//   - Dynamic: one atomic fetch-and-add per task on a shared Cursor.
//   - Guided: CAS-claimed chunks of max(MinChunk, remaining/workers).
//   - Heterogeneous: a stable O(n) partition by weight; Light tasks run as
//     static slices, Medium and Heavy tasks through a dynamic cursor.
//   - Adaptive: runs as Heterogeneous; with Options.SelectByVariance it
//     picks Static, Guided or Heterogeneous from the batch's weight variance.
//
// Every plan executes each task exactly once and reports each successful
// cursor claim to the Executor.
package policy
