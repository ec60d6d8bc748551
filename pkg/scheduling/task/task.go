package task

import (
	"fmt"
	"strings"
)

// Func is one unit of schedulable work. It captures its own state; the
// scheduler never inspects or releases anything the closure holds.
type Func func()

// Weight is the caller's coarse cost estimate for a task.
type Weight int

const (
	// Light tasks are cheap and balance naturally under static slicing.
	Light Weight = iota + 1
	// Medium tasks have moderate cost.
	Medium
	// Heavy tasks dominate run time and benefit most from dynamic claiming.
	Heavy
)

// Weights lists every valid weight in ascending order.
func Weights() []Weight {
	return []Weight{Light, Medium, Heavy}
}

// Valid reports whether w is one of Light, Medium or Heavy.
func (w Weight) Valid() bool {
	return w >= Light && w <= Heavy
}

func (w Weight) String() string {
	switch w {
	case Light:
		return "light"
	case Medium:
		return "medium"
	case Heavy:
		return "heavy"
	default:
		return fmt.Sprintf("weight(%d)", int(w))
	}
}

// ParseWeight converts a case-insensitive name into a Weight.
func ParseWeight(s string) (Weight, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return Light, nil
	case "medium":
		return Medium, nil
	case "heavy":
		return Heavy, nil
	}
	return 0, fmt.Errorf("unknown task weight %q", s)
}

// Record is a submitted task. ID is the 0-based submission position within
// the current run. A Record is never modified after it is queued.
type Record struct {
	ID     int
	Weight Weight
	Fn     Func
}
