/*
Package recurring triggers jobs at a fixed time, on a fixed interval or on a
cron schedule.

It drives repeated benchmark sweeps: the CLI schedules a sweep with a cron
expression and each trigger runs it in its own goroutine.

	s := recurring.New()
	_ = s.ScheduleCronWithOptions("sweep", "@every 30s", sweep,
		recurring.Options{SkipIfStillRunning: true})
	_ = s.Start(ctx)
	defer func() { <-s.Stop() }()

Cron expressions take an optional leading seconds field and the usual
descriptors (@hourly, @daily, @every 5m). WithRetry adds exponential
backoff around a job.

Jobs that panic are recovered and reported as failures. Stop cancels the
context passed to running jobs and its channel closes only after they
return.
*/
package recurring
