package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codename-co/devs-sub002/internal/orchestrator"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// contentPreview bounds artifact content included in tool results.
const contentPreview = 2000

// OrchestrateTool handles the orchestrate MCP tool.
type OrchestrateTool struct {
	orch Orchestrator
}

// NewOrchestrateTool creates an OrchestrateTool.
func NewOrchestrateTool(orch Orchestrator) *OrchestrateTool {
	return &OrchestrateTool{orch: orch}
}

// Definition returns the MCP tool definition for orchestrate.
func (t *OrchestrateTool) Definition() mcp.Tool {
	return mcp.NewTool("orchestrate",
		mcp.WithDescription(
			"Run a work request with a team of agents and return the produced artifacts. "+
				"Pass task_id to resume a pending task or to fetch the results of a finished one.",
		),
		mcp.WithString("prompt",
			mcp.Description("The work request in natural language"),
		),
		mcp.WithString("task_id",
			mcp.Description("ID of an existing task to resume or replay"),
		),
	)
}

// Handle processes the orchestrate tool call.
func (t *OrchestrateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt := strings.TrimSpace(req.GetString("prompt", ""))
	taskID := strings.TrimSpace(req.GetString("task_id", ""))
	if prompt == "" && taskID == "" {
		return mcp.NewToolResultError("'prompt' or 'task_id' is required"), nil
	}

	result, err := t.orch.Orchestrate(ctx, prompt, taskID)
	switch {
	case errors.Is(err, orchestrator.ErrAlreadyInProgress):
		return mcp.NewToolResultError("this request is already running; check it with task_status"), nil
	case errors.Is(err, orchestrator.ErrNoProviderConfigured):
		return mcp.NewToolResultError("no inference provider is configured; set ANTHROPIC_API_KEY or enable Bedrock"), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("orchestration failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Orchestration Result\n\n")
	fmt.Fprintf(&sb, "- **Workflow**: %s\n", result.WorkflowID)
	fmt.Fprintf(&sb, "- **Main task**: %s\n", result.MainTaskID)
	if len(result.SubTaskIDs) > 0 {
		fmt.Fprintf(&sb, "- **Subtasks** (%d): %s\n", len(result.SubTaskIDs), strings.Join(result.SubTaskIDs, ", "))
	}
	writeErrors(&sb, result.Errors)
	writeArtifacts(&sb, result.Artifacts)
	return mcp.NewToolResultText(sb.String()), nil
}

// TaskStatusTool handles the task_status MCP tool.
type TaskStatusTool struct {
	tasks     TaskReader
	artifacts ArtifactReader
}

// NewTaskStatusTool creates a TaskStatusTool.
func NewTaskStatusTool(tasks TaskReader, artifacts ArtifactReader) *TaskStatusTool {
	return &TaskStatusTool{tasks: tasks, artifacts: artifacts}
}

// Definition returns the MCP tool definition for task_status.
func (t *TaskStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("task_status",
		mcp.WithDescription("Show a task's status, requirements, subtasks and artifacts."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task"),
		),
		mcp.WithBoolean("content",
			mcp.Description("Include artifact content (default: false)"),
		),
	)
}

// Handle processes the task_status tool call.
func (t *TaskStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("task_id", ""))
	if id == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}
	withContent := boolArg(req, "content", false)

	task, err := t.tasks.GetTask(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load task: %v", err)), nil
	}
	if task == nil {
		return mcp.NewToolResultError(fmt.Sprintf("task %s not found", id)), nil
	}
	children, err := t.tasks.ListTasksByParent(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list subtasks: %v", err)), nil
	}
	artifacts, err := t.artifacts.ListArtifactsByTask(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list artifacts: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", task.Title)
	fmt.Fprintf(&sb, "- **ID**: %s\n", task.ID)
	fmt.Fprintf(&sb, "- **Status**: %s\n", task.Status)
	fmt.Fprintf(&sb, "- **Complexity**: %s\n", task.Complexity)
	if task.AssignedAgentID != "" {
		fmt.Fprintf(&sb, "- **Agent**: %s\n", task.AssignedAgentID)
	}
	fmt.Fprintf(&sb, "- **Passes**: %d\n", task.ActualPasses)
	if task.Error != "" {
		fmt.Fprintf(&sb, "- **Error**: %s\n", task.Error)
	}

	if len(task.Requirements) > 0 {
		fmt.Fprintf(&sb, "\n### Requirements (%.0f%% satisfied)\n\n", models.SatisfactionRate(task.Requirements))
		for _, r := range task.Requirements {
			mark := " "
			if r.Status == models.RequirementSatisfied {
				mark = "x"
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", mark, r.Description)
		}
	}

	if len(children) > 0 {
		sb.WriteString("\n### Subtasks\n\n")
		for _, c := range children {
			fmt.Fprintf(&sb, "- %s **%s** (%s)\n", c.ID, c.Title, c.Status)
		}
	}

	if withContent {
		writeArtifacts(&sb, artifacts)
	} else if len(artifacts) > 0 {
		sb.WriteString("\n### Artifacts\n\n")
		for _, a := range artifacts {
			fmt.Fprintf(&sb, "- %s **%s** (%s, v%d)\n", a.ID, a.Title, a.Type, a.Version)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func writeErrors(sb *strings.Builder, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n### Errors (%d)\n\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(sb, "- %s\n", e)
	}
}

func writeArtifacts(sb *strings.Builder, artifacts []*models.Artifact) {
	if len(artifacts) == 0 {
		sb.WriteString("\nNo artifacts were produced.\n")
		return
	}
	fmt.Fprintf(sb, "\n### Artifacts (%d)\n", len(artifacts))
	for _, a := range artifacts {
		content := a.Content
		if r := []rune(content); len(r) > contentPreview {
			content = string(r[:contentPreview]) + "\n[truncated]"
		}
		fmt.Fprintf(sb, "\n#### %s (%s, v%d)\n\n%s\n", a.Title, a.Type, a.Version, content)
	}
}
