package commands

import (
	"github.com/penwyp/go-cfs-perfmon/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analyzer as MCP tools over stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout with the tools
load_log, get_statistics, get_events, set_plot_enabled, get_summary and set_note.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	return mcpserver.New(env.analyzer, appFs, Version).ServeStdio()
}
