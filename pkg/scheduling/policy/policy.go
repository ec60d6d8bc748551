package policy

import (
	"context"
	"fmt"
	"strings"

	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
	"github.com/vnykmshr/adaptsched/pkg/common/validation"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/task"
)

// Kind identifies a partitioning policy.
type Kind int

const (
	// Static splits the batch into contiguous, near-equal per-worker ranges.
	Static Kind = iota
	// Dynamic lets workers claim one task at a time from a shared cursor.
	Dynamic
	// Guided claims shrinking chunks of remaining/workers tasks.
	Guided
	// Heterogeneous runs Light tasks statically and Medium+Heavy dynamically.
	Heterogeneous
	// Adaptive runs as Heterogeneous, or picks one of the above from the
	// batch's weight distribution when Options.SelectByVariance is set.
	Adaptive
)

var kindNames = [...]string{"static", "dynamic", "guided", "heterogeneous", "adaptive"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k names a known policy.
func (k Kind) Valid() bool {
	return k >= Static && k <= Adaptive
}

// Kinds returns every policy kind.
func Kinds() []Kind {
	return []Kind{Static, Dynamic, Guided, Heterogeneous, Adaptive}
}

// KindNames returns the lowercase names of every policy kind.
func KindNames() []string {
	return append([]string(nil), kindNames[:]...)
}

// ParseKind converts a case-insensitive policy name into a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, validation.ValidateOneOf("policy", "kind", s, kindNames[:])
}

// Executor runs claimed tasks on behalf of a plan. The scheduler supplies
// the implementation; it times the task, updates metrics and releases the
// task from the pending count.
type Executor interface {
	// Execute runs one task on workerID.
	Execute(workerID int, rec task.Record)

	// Claimed records one successful claim on a shared cursor.
	Claimed(workerID int)
}

// Plan is one run's assignment of tasks to workers. Work is called exactly
// once per worker, concurrently, and executes that worker's share. Workers
// stop between tasks once ctx is done.
type Plan interface {
	// Kind is the policy that actually partitions the batch. For Adaptive
	// this is the policy it selected.
	Kind() Kind

	Work(ctx context.Context, workerID int, exec Executor)
}

// Policy builds plans for batches of tasks.
type Policy interface {
	Kind() Kind

	// Plan partitions tasks over workers. The slice must not be modified
	// until every worker's Work has returned.
	Plan(tasks []task.Record, workers int) Plan
}

// Options tune the policies. Zero values select the defaults.
type Options struct {
	// MinChunk is the smallest chunk a Guided claim returns. Default 1.
	MinChunk int

	// VarianceThreshold is the largest weight variance for which Adaptive
	// still picks Guided over Heterogeneous. Default 0.25.
	VarianceThreshold float64

	// SelectByVariance makes Adaptive choose a policy per batch instead of
	// always running Heterogeneous.
	SelectByVariance bool
}

const (
	// DefaultMinChunk is the Guided chunk floor.
	DefaultMinChunk = 1
	// DefaultVarianceThreshold is the Adaptive switch point.
	DefaultVarianceThreshold = 0.25
)

// DefaultOptions returns the default policy options.
func DefaultOptions() Options {
	return Options{
		MinChunk:          DefaultMinChunk,
		VarianceThreshold: DefaultVarianceThreshold,
	}
}

// Validate checks the options and fills in defaults for zero values.
func (o *Options) Validate() error {
	if o.MinChunk < 0 {
		return aserrors.NewValidationError("policy", "min_chunk", o.MinChunk, "cannot be negative").
			WithHint("use 0 for the default of 1")
	}
	if err := validation.ValidateNonNegative("policy", "variance_threshold", o.VarianceThreshold); err != nil {
		return err
	}
	if o.MinChunk == 0 {
		o.MinChunk = DefaultMinChunk
	}
	if o.VarianceThreshold == 0 {
		o.VarianceThreshold = DefaultVarianceThreshold
	}
	return nil
}

// New builds the policy for kind.
func New(kind Kind, opts Options) (Policy, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	switch kind {
	case Static:
		return StaticPolicy{}, nil
	case Dynamic:
		return DynamicPolicy{}, nil
	case Guided:
		return GuidedPolicy{MinChunk: opts.MinChunk}, nil
	case Heterogeneous:
		return HeterogeneousPolicy{}, nil
	case Adaptive:
		return AdaptivePolicy{
			MinChunk:          opts.MinChunk,
			VarianceThreshold: opts.VarianceThreshold,
			SelectByVariance:  opts.SelectByVariance,
		}, nil
	}
	return nil, aserrors.NewValidationError("policy", "kind", int(kind), "unrecognized value").
		WithHint("use one of " + strings.Join(kindNames[:], ", "))
}

// runRange executes recs in order on workerID, stopping early when ctx is done.
func runRange(ctx context.Context, workerID int, recs []task.Record, exec Executor) bool {
	for _, rec := range recs {
		if ctx.Err() != nil {
			return false
		}
		exec.Execute(workerID, rec)
	}
	return true
}
