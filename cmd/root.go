// Package cmd implements the dialtools command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dialtools",
	Short: "Tool-execution layer for DIAL conversational agents",
	Long: `dialtools hosts the tool side of a DIAL conversation: deployment-backed
tools, external MCP tool servers, a Python code interpreter, and a
document-retrieval tool with per-conversation caching.

Configuration is read from ~/.dialtools/config.yaml and DIALTOOLS_*
environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
