package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codename-co/devs-sub002/internal/signals"
)

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the running orchestration",
	Long: `Signal a 'devs run' in progress to stop. Running agents are canceled and
their tasks are marked failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := signals.SendKill(cfg.SignalsDir()); err != nil {
			return fmt.Errorf("send kill signal: %w", err)
		}
		printStatus("✓", "Kill signal sent", color.FgYellow)
		return nil
	},
}
