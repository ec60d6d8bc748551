package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vnykmshr/adaptsched/internal/workload"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/policy"
	"github.com/vnykmshr/adaptsched/pkg/scheduling/scheduler"
)

func newRunCmd() *cobra.Command {
	var (
		threads    int
		policyName string
		workName   string
		size       int
		pin        bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one workload once and print its metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := policy.ParseKind(policyName)
			if err != nil {
				return err
			}
			g, err := workload.ByName(workName)
			if err != nil {
				return err
			}

			s, err := scheduler.NewWithConfig(scheduler.Config{
				Name:       "run",
				Threads:    threads,
				Capacity:   max(g.Tasks(size), 1),
				Policy:     kind,
				PinWorkers: pin,
				Logger:     &logger,
			})
			if err != nil {
				return err
			}
			defer s.Destroy()

			check, err := g.Populate(s, size)
			if err != nil {
				return err
			}

			start := time.Now()
			if err := s.RunContext(cmd.Context()); err != nil {
				return err
			}
			if err := s.WaitContext(cmd.Context()); err != nil {
				return err
			}
			elapsed := time.Since(start)

			if err := check(); err != nil {
				return fmt.Errorf("workload check: %w", err)
			}

			snap, err := s.Metrics()
			if err != nil {
				return err
			}
			lb := snap.LoadBalance()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s workload, %s policy, %d threads, %s\n", g.Name(), kind, threads, elapsed.Round(time.Microsecond))
			fmt.Fprint(out, snap.String())
			fmt.Fprintf(out, "throughput:       %.2f tasks/s\n", snap.Throughput(elapsed))
			fmt.Fprintf(out, "load:             min %d, max %d, sd %.2f, fairness %.2f%%\n", lb.Min, lb.Max, lb.StdDev, lb.Fairness)
			return nil
		},
	}

	cmd.Flags().IntVarP(&threads, "threads", "t", 4, "Worker count")
	cmd.Flags().StringVarP(&policyName, "policy", "p", "heterogeneous", "Policy")
	cmd.Flags().StringVarP(&workName, "workload", "w", "mixed", "Workload")
	cmd.Flags().IntVarP(&size, "size", "n", 1000, "Workload size")
	cmd.Flags().BoolVar(&pin, "pin", false, "Pin workers to CPUs")

	return cmd
}
