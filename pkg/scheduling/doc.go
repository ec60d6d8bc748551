/*
Package scheduling groups the task execution engine.

  - task: task records, weights and the bounded per-run queue
  - policy: Static, Dynamic, Guided, Heterogeneous and Adaptive partitioning
  - workerpool: persistent workers that run one body per run, optionally pinned
  - stats: lock-free metrics aggregation and derived figures
  - scheduler: submit, run, wait and destroy on top of the above
  - recurring: interval and cron triggers for repeated sweeps

A typical batch:

	s, _ := scheduler.New(4, 1000, policy.Heterogeneous)
	defer s.Destroy()

	for _, job := range jobs {
		s.Submit(job.Fn, job.Weight)
	}
	s.Run()
	s.Wait()

	snap, _ := s.Metrics()
	fmt.Print(snap)

All components are safe for concurrent use and take a context for
cancellation where an operation can block.
*/
package scheduling
