package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codename-co/devs-sub002/internal/config"
	"github.com/codename-co/devs-sub002/internal/state"
	"github.com/codename-co/devs-sub002/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage the agent registry",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, func(ctx context.Context, _ *config.Config, reg *state.AgentRegistry) error {
			agents, err := reg.FindAll(ctx)
			if err != nil {
				return fmt.Errorf("list agents: %w", err)
			}
			printAgents(os.Stdout, agents)
			return nil
		})
	},
}

var agentsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the agent catalog",
	Long: `Register every agent of the catalog, replacing stored profiles with the
same ID. The built-in catalog is used unless agents.catalog_path is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, func(ctx context.Context, cfg *config.Config, reg *state.AgentRegistry) error {
			n, err := seedCatalog(ctx, cfg, reg)
			if err != nil {
				return err
			}
			printStatus("✓", fmt.Sprintf("Registered %d agents", n), color.FgGreen)
			return nil
		})
	},
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsSeedCmd)
}

// withRegistry opens the database for the duration of fn.
func withRegistry(cmd *cobra.Command, fn func(context.Context, *config.Config, *state.AgentRegistry) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := state.OpenAndMigrate(ctx, cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(ctx, cfg, state.NewAgentRegistry(db))
}

func printAgents(w io.Writer, agents []*models.Agent) {
	if len(agents) == 0 {
		fmt.Fprintln(w, "No agents registered. Run 'devs agents seed'.")
		return
	}
	bold := color.New(color.Bold)
	for _, a := range agents {
		fmt.Fprintf(w, "%s  %s\n", bold.Sprintf("%-12s", a.ID), a.Name)
		if a.Role != "" {
			fmt.Fprintf(w, "              %s\n", a.Role)
		}
		if len(a.Tags) > 0 {
			fmt.Fprintf(w, "              %s\n", color.HiBlackString(strings.Join(a.Tags, ", ")))
		}
	}
}
