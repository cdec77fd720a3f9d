package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codename-co/devs-sub002/internal/server"
	"github.com/codename-co/devs-sub002/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the orchestrator over MCP on stdio",
	Long: `Start an MCP server on stdin/stdout exposing the "orchestrate" and
"task_status" tools. Configure it in an MCP client as:

  {"command": "devs", "args": ["serve"]}

Debug logs go to logging.debug_log; stdout is reserved for the protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a, err := newApp(context.Background(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		s := server.New(server.Deps{
			Orchestrator: a.orch,
			Tasks:        a.db,
			Artifacts:    a.db,
		}, version.Get())
		return server.ServeStdio(s)
	},
}
