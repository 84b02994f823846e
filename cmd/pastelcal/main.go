package main

import (
	"os"

	"github.com/spf13/cobra"

	appLog "pastelcal/internal/log"
)

const version = "0.1.0"

// rootFlags holds persistent CLI flag values.
type rootFlags struct {
	configPath string
	verbosity  int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "pastelcal",
		Short:         "Personal calendar event service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// -v forces debug regardless of the configured level.
			if flags.verbosity > 0 {
				appLog.SetLevel(appLog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "./pastelcal.yaml", "Path to config file")
	root.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", "Enable debug logging")

	root.AddCommand(
		newServeCmd(flags),
		newParseCmd(),
	)
	return root
}
