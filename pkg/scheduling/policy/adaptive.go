package policy

import (
	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// AdaptivePolicy runs every batch under Heterogeneous unless
// SelectByVariance is set. With SelectByVariance it inspects the weights of
// each batch and delegates to the policy that suits it:
//
//   - every task has the same weight: Static
//   - weight variance at most VarianceThreshold: Guided
//   - otherwise: Heterogeneous
type AdaptivePolicy struct {
	MinChunk          int
	VarianceThreshold float64
	SelectByVariance  bool
}

func (AdaptivePolicy) Kind() Kind { return Adaptive }

// Choose returns the policy kind Plan would delegate to for tasks.
func (a AdaptivePolicy) Choose(tasks []task.Record) Kind {
	if !a.SelectByVariance {
		return Heterogeneous
	}
	if len(tasks) == 0 {
		return Static
	}

	uniform := true
	for _, rec := range tasks[1:] {
		if rec.Weight != tasks[0].Weight {
			uniform = false
			break
		}
	}
	if uniform {
		return Static
	}

	if WeightVariance(tasks) <= a.VarianceThreshold {
		return Guided
	}
	return Heterogeneous
}

func (a AdaptivePolicy) Plan(tasks []task.Record, workers int) Plan {
	switch a.Choose(tasks) {
	case Static:
		return StaticPolicy{}.Plan(tasks, workers)
	case Guided:
		return GuidedPolicy{MinChunk: a.MinChunk}.Plan(tasks, workers)
	default:
		return HeterogeneousPolicy{}.Plan(tasks, workers)
	}
}

// WeightVariance is the population variance of the numeric weights.
func WeightVariance(tasks []task.Record) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var sum float64
	for _, rec := range tasks {
		sum += float64(rec.Weight)
	}
	mean := sum / float64(len(tasks))

	var sq float64
	for _, rec := range tasks {
		d := float64(rec.Weight) - mean
		sq += d * d
	}
	return sq / float64(len(tasks))
}
