package server

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codename-co/devs-sub002/internal/orchestrator"
	"github.com/codename-co/devs-sub002/internal/state"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type fakeOrchestrator struct {
	result *models.OrchestrationResult
	err    error

	prompt, taskID string
}

func (f *fakeOrchestrator) Orchestrate(_ context.Context, prompt, taskID string) (*models.OrchestrationResult, error) {
	f.prompt, f.taskID = prompt, taskID
	return f.result, f.err
}

func TestOrchestrateTool_Definition(t *testing.T) {
	def := NewOrchestrateTool(&fakeOrchestrator{}).Definition()
	if def.Name != "orchestrate" {
		t.Errorf("tool name = %q", def.Name)
	}
	for _, p := range []string{"prompt", "task_id"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
}

func TestOrchestrateTool_Handle(t *testing.T) {
	orch := &fakeOrchestrator{result: &models.OrchestrationResult{
		Success:    true,
		WorkflowID: "wf-1",
		MainTaskID: "main-1",
		SubTaskIDs: []string{"sub-1"},
		Artifacts:  []*models.Artifact{{Title: "Plan", Type: models.ArtifactPlan, Version: 1, Content: "Step one"}},
		Errors:     []string{"subtask sub-2 failed"},
	}}

	res, err := NewOrchestrateTool(orch).Handle(context.Background(), makeReq(map[string]interface{}{
		"prompt": "  Plan the launch  ",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}
	if orch.prompt != "Plan the launch" || orch.taskID != "" {
		t.Errorf("orchestrated %q/%q", orch.prompt, orch.taskID)
	}
	text := resultText(res)
	for _, want := range []string{"wf-1", "main-1", "sub-1", "Plan (plan, v1)", "Step one", "subtask sub-2 failed"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestOrchestrateTool_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		err  error
		want string
	}{
		{"no input", map[string]interface{}{}, nil, "required"},
		{"in progress", map[string]interface{}{"prompt": "x"}, orchestrator.ErrAlreadyInProgress, "already running"},
		{"no provider", map[string]interface{}{"prompt": "x"}, orchestrator.ErrNoProviderConfigured, "ANTHROPIC_API_KEY"},
		{"other", map[string]interface{}{"task_id": "t"}, fmt.Errorf("load: %w", orchestrator.ErrTaskNotFound), "orchestration failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewOrchestrateTool(&fakeOrchestrator{err: tt.err}).Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError || !strings.Contains(resultText(res), tt.want) {
				t.Errorf("got error=%v %q, want %q", res.IsError, resultText(res), tt.want)
			}
		})
	}
}

func TestTaskStatusTool_Handle(t *testing.T) {
	ctx := context.Background()
	db, err := state.OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "devs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	main := &models.Task{
		Title:  "Launch plan",
		Status: models.TaskStatusCompleted,
		Requirements: []models.Requirement{
			{Description: "Covers pricing", Status: models.RequirementSatisfied},
			{Description: "Names a date"},
		},
	}
	if err := db.CreateTask(ctx, main); err != nil {
		t.Fatal(err)
	}
	child := &models.Task{Title: "Pricing", ParentTaskID: main.ID}
	if err := db.CreateTask(ctx, child); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateArtifact(ctx, &models.Artifact{TaskID: main.ID, Title: "Launch plan", Content: "Full text"}); err != nil {
		t.Fatal(err)
	}

	tool := NewTaskStatusTool(db, db)

	res, err := tool.Handle(ctx, makeReq(map[string]interface{}{"task_id": main.ID}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(res)
	for _, want := range []string{"Launch plan", "completed", "50% satisfied", "[x] Covers pricing", "[ ] Names a date", "Pricing", "(document, v1)"} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Full text") {
		t.Error("content should be omitted by default")
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"task_id": main.ID, "content": true}))
	if !strings.Contains(resultText(res), "Full text") {
		t.Error("content requested but not included")
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"task_id": "missing"}))
	if !res.IsError {
		t.Error("unknown task should be a tool error")
	}
}
