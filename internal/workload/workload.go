// Package workload generates the benchmark and correctness task sets.
//
// Each generator submits its tasks to a Submitter and returns a Check that
// verifies, after the run, that every task produced its effect.
package workload

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vnykmshr/adaptsched/pkg/common/validation"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// Submitter accepts tasks. *scheduler.Scheduler implements it.
type Submitter interface {
	Submit(fn task.Func, weight task.Weight) (int, error)
}

// Check verifies a workload after its run has completed.
type Check func() error

// Generator builds one kind of workload.
type Generator interface {
	// Name identifies the workload in configs and reports.
	Name() string
	// Tasks returns how many tasks Populate submits for size n.
	Tasks(n int) int
	// Populate submits the workload for size n.
	Populate(s Submitter, n int) (Check, error)
}

var registry = map[string]Generator{
	"matrix":    Matrix{},
	"reduction": Reduction{},
	"mixed":     Mixed{},
	"counter":   Counter{},
}

// Names returns the registered workload names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the generator registered under name.
func ByName(name string) (Generator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	g, ok := registry[name]
	if !ok {
		return nil, validation.ValidateOneOf("workload", "name", name, Names())
	}
	return g, nil
}

func submitAll(s Submitter, name string, fns []task.Func, weight func(i int) task.Weight) error {
	for i, fn := range fns {
		if _, err := s.Submit(fn, weight(i)); err != nil {
			return fmt.Errorf("%s workload: submit task %d of %d: %w", name, i, len(fns), err)
		}
	}
	return nil
}
