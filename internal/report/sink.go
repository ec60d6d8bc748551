// Package report writes benchmark reports as CSV, as a text summary or to
// Redis.
package report

import (
	"context"
	"errors"

	"github.com/vnykmshr/adaptsched/internal/bench"
)

// Sink consumes a finished report.
type Sink interface {
	Write(ctx context.Context, rep *bench.Report) error
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, rep *bench.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
