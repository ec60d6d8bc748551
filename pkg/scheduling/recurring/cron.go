package recurring

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
)

// newParser accepts an optional leading seconds field and @descriptors:
//
//	"*/30 * * * * *"  every 30 seconds
//	"0 */5 * * *"     every 5 minutes
//	"@hourly"         once an hour
func newParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ScheduleCron runs job on a cron schedule.
func (s *Scheduler) ScheduleCron(id, expr string, job Job) error {
	return s.ScheduleCronWithOptions(id, expr, job, Options{})
}

// ScheduleCronWithOptions runs job on a cron schedule with trigger options.
func (s *Scheduler) ScheduleCronWithOptions(id, expr string, job Job, opts Options) error {
	schedule, err := s.parse(expr)
	if err != nil {
		return err
	}
	return s.add(&entry{
		id:       id,
		job:      job,
		opts:     opts,
		runAt:    schedule.Next(time.Now().In(s.location)),
		cronExpr: expr,
		schedule: schedule,
	})
}

// UpdateCron replaces the schedule of an existing cron job.
func (s *Scheduler) UpdateCron(id, expr string) error {
	schedule, err := s.parse(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.schedule == nil {
		return fmt.Errorf("cron job %q: %w", id, ErrJobNotFound)
	}
	e.cronExpr = expr
	e.schedule = schedule
	e.runAt = schedule.Next(time.Now().In(s.location))
	return nil
}

// ValidateCron reports whether expr parses.
func (s *Scheduler) ValidateCron(expr string) error {
	_, err := s.parse(expr)
	return err
}

func (s *Scheduler) parse(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, aserrors.NewValidationError("recurring", "cron", expr, "cannot be empty")
	}
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return nil, aserrors.NewValidationError("recurring", "cron", expr, err.Error())
	}
	return schedule, nil
}

// CronDescription summarizes a cron expression.
type CronDescription struct {
	Expression  string
	Description string
	NextRuns    []time.Time
	TimeZone    string
}

// DescribeCron parses expr and returns its next five trigger times.
func (s *Scheduler) DescribeCron(expr string) (CronDescription, error) {
	schedule, err := s.parse(expr)
	if err != nil {
		return CronDescription{}, err
	}

	next := make([]time.Time, 5)
	current := time.Now().In(s.location)
	for i := range next {
		current = schedule.Next(current)
		next[i] = current
	}

	return CronDescription{
		Expression:  expr,
		Description: describe(expr),
		NextRuns:    next,
		TimeZone:    s.location.String(),
	}, nil
}

func describe(expr string) string {
	switch expr {
	case "@yearly", "@annually":
		return "once a year"
	case "@monthly":
		return "once a month"
	case "@weekly":
		return "once a week"
	case "@daily", "@midnight":
		return "once a day"
	case "@hourly":
		return "once an hour"
	}
	if len(expr) > 7 && expr[:7] == "@every " {
		return "every " + expr[7:]
	}
	return "custom schedule: " + expr
}
