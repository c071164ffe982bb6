package cmd

import (
	"clusterdash/internal/app"

	"github.com/spf13/cobra"
)

var noTUI bool

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard [seed-address]",
		Short: "Show the live cluster dashboard",
		Long: `Connects to the seed node and keeps the cluster view synchronized.
It can run in two modes:

1. Interactive TUI Mode (default):
   - Shows every node of the cluster in a table, with its runtimes, last
     heartbeat and trip time.
   - Streams each node's logs into a tab of its own; / filters the active tab.
   - Enter opens a dialog to run a command on the selected node.

2. Non-TUI / CLI Mode (using --no-tui flag):
   - Runs the same synchronization and prints snapshots, log lines and
     channel state changes to the console until interrupted (Ctrl+C).

Arguments:
  [seed-address]: (Optional) host:port of the seed node's web endpoint.
                  Overrides the seed from the configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDashboard,
	}
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI and print updates to the console")
	return cmd
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(seedArg(args), configPath, noTUI, debugMode)
	cfg.Version = rootCmd.Version

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}
	return application.Run(cmd.Context())
}

func seedArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
