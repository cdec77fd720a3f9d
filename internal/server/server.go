// Package server exposes the orchestrator as MCP tools so that an MCP client
// can submit work requests and follow their tasks.
//
// Each tool follows the same pattern:
//   - a struct with its dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
package server

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// Orchestrator runs work requests.
type Orchestrator interface {
	Orchestrate(ctx context.Context, prompt, existingTaskID string) (*models.OrchestrationResult, error)
}

// TaskReader reads tasks.
type TaskReader interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasksByParent(ctx context.Context, parentID string) ([]*models.Task, error)
}

// ArtifactReader reads artifacts.
type ArtifactReader interface {
	ListArtifactsByTask(ctx context.Context, taskID string) ([]*models.Artifact, error)
}

// Deps are the collaborators the tools need.
type Deps struct {
	Orchestrator Orchestrator
	Tasks        TaskReader
	Artifacts    ArtifactReader
}

// New creates the MCP server with every tool registered.
func New(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"devs",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	orchestrate := NewOrchestrateTool(deps.Orchestrator)
	s.AddTool(orchestrate.Definition(), orchestrate.Handle)

	status := NewTaskStatusTool(deps.Tasks, deps.Artifacts)
	s.AddTool(status.Definition(), status.Handle)

	return s
}

// ServeStdio serves s over stdin and stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `devs runs work requests with a team of agents.

Use "orchestrate" with a free-text prompt to run a request. Simple requests run
as one task; larger ones are split into subtasks handled by several agents.
The result lists the task IDs and the artifacts produced.

Use "task_status" with a task ID to see a task's status, requirements,
subtasks and artifacts. Passing the ID of a finished task to "orchestrate"
returns its artifacts again without re-running it.`
