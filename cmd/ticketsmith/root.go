package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ticketsmith",
	Short: "Sync a YAML project plan to GitHub issues",
	Long: `Ticketsmith reconciles a YAML implementation plan against the issues
already present in a GitHub repository, drafts tickets for the plan
subtasks that have no matching issue, and creates them.

The plan is the source of truth: only plan subtasks can become tickets,
existing issues are never modified, and a dry run reports what would be
created without writing anything.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
