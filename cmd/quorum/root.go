package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Multi-agent conversation server",
	Long: `Quorum runs conversations through a team of specialist agents.

Each user message is decomposed into research, analysis, and code tasks that
execute in parallel, then a synthesis agent merges the results into a single
answer streamed back word by word over WebSocket.

With no arguments, starts the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
