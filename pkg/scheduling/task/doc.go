// Package task defines the unit of schedulable work and the bounded queue the
// scheduler fills before a run.
//
// A Record pairs a closure with a coarse Weight (Light, Medium, Heavy) and a
// submission id. Only the heterogeneous and adaptive partitioning policies
// look at the weight; the others use the id order.
//
//	q, _ := task.NewQueue(100)
//	id, err := q.Append(func() { work() }, task.Heavy)
package task
