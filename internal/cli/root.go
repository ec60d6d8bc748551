// Package cli implements the adaptsched command.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/vnykmshr/adaptsched/internal/logging"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger = zerolog.Nop()
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adaptsched",
		Short: "Adaptive task scheduler benchmarks and checks",
		Long: "adaptsched runs weighted task batches under static, dynamic, guided,\n" +
			"heterogeneous and adaptive partitioning and reports how they scale.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			l, err := logging.NewLogger(flagLogLevel, flagLogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", logging.FormatConsole, "Log format (console, json)")

	root.AddCommand(
		newBenchCmd(),
		newVerifyCmd(),
		newRunCmd(),
	)

	return root
}
