package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnykmshr/adaptsched/internal/workload"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/scheduler"
)

func newVerifyCmd() *cobra.Command {
	var (
		tasks    int
		threads  []int
		policies []string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every policy runs each task exactly once",
		Long: `verify submits counter tasks under every policy and thread count and
fails if any run loses or repeats a task.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]policy.Kind, 0, len(policies))
			for _, name := range policies {
				k, err := policy.ParseKind(name)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}

			out := cmd.OutOrStdout()
			failures := 0
			for _, k := range kinds {
				for _, t := range threads {
					if err := verifyOnce(k, t, tasks); err != nil {
						failures++
						fmt.Fprintf(out, "FAIL  %-13s T=%-3d %v\n", k, t, err)
						logger.Error().Err(err).Str("policy", k.String()).Int("threads", t).Msg("verification failed")
						continue
					}
					fmt.Fprintf(out, "ok    %-13s T=%-3d %d tasks\n", k, t, tasks)
				}
			}

			if failures > 0 {
				return fmt.Errorf("%d of %d checks failed", failures, len(kinds)*len(threads))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tasks, "tasks", 1000, "Tasks per check")
	cmd.Flags().IntSliceVar(&threads, "threads", []int{1, 2, 4, 8, 16}, "Thread counts")
	cmd.Flags().StringSliceVar(&policies, "policies", policy.KindNames(), "Policies")

	return cmd
}

func verifyOnce(kind policy.Kind, threads, tasks int) error {
	s, err := scheduler.NewWithConfig(scheduler.Config{
		Name:     "verify",
		Threads:  threads,
		Capacity: tasks,
		Policy:   kind,
		Logger:   &logger,
	})
	if err != nil {
		return err
	}
	defer s.Destroy()

	check, err := workload.Counter{}.Populate(s, tasks)
	if err != nil {
		return err
	}
	if err := s.Run(); err != nil {
		return err
	}
	if err := s.Wait(); err != nil {
		return err
	}
	if err := check(); err != nil {
		return err
	}

	snap, err := s.Metrics()
	if err != nil {
		return err
	}
	if snap.Completed != int64(tasks) {
		return fmt.Errorf("metrics report %d completed, want %d", snap.Completed, tasks)
	}
	var perWorker int64
	for _, w := range snap.Workers {
		perWorker += w.Executed
	}
	if perWorker != int64(tasks) {
		return fmt.Errorf("workers executed %d tasks, want %d", perWorker, tasks)
	}
	return nil
}
