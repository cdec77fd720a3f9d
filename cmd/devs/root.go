package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "devs",
	Short: "Multi-agent task orchestrator",
	Long: `devs turns a free-text work request into tasks, assembles a team of
agents for them, and runs the agents against the Anthropic API.

Simple requests run as a single task. Larger requests are broken down into a
dependency graph of subtasks that run in parallel batches, with a validator
agent reviewing each result and asking for refinements when needed.

Tasks, requirements, artifacts and agents are stored in a local SQLite
database so runs can be inspected with 'devs status' and resumed later.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: ~/.config/devs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs to stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(versionCmd)
}
