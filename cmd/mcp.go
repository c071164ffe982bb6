package cmd

import (
	"clusterdash/internal/app"

	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [seed-address]",
		Short: "Serve the cluster view to AI agents over MCP (stdio)",
		Long: `Runs the synchronization headless and serves MCP tools on stdin/stdout:

  list_nodes       every node of the latest snapshot and its channel state
  get_logs         buffered log records of one node, optionally filtered
  execute_command  run a command on a node and wait for its result
  resync           ask the seed node for a fresh snapshot

Logs go to stderr so stdout stays reserved for the protocol.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.NewConfig(seedArg(args), configPath, true, debugMode)
			cfg.MCP = true
			cfg.Version = rootCmd.Version

			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
}
