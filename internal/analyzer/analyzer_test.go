package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codename-co/devs-sub002/pkg/models"
)

type fakeInference struct {
	reply string
	err   error
	calls int
	user  string
}

func (f *fakeInference) Generate(_ context.Context, _, user string, _ []models.Attachment) (string, error) {
	f.calls++
	f.user = user
	return f.reply, f.err
}

func TestAnalyze_DecodesReply(t *testing.T) {
	inf := &fakeInference{reply: "Here you go:\n```json\n" + `{
		"complexity": "Complex",
		"requirements": [
			{"type": "", "description": "Covers pricing", "priority": "HIGH"},
			{"description": "  "}
		],
		"suggested_agents": [{"name": "Marketer", "role": "plans campaigns", "required_skills": ["marketing"]}],
		"estimated_passes": 0
	}` + "\n```"}

	got, err := New(inf).Analyze(context.Background(), "Plan the launch")
	if err != nil {
		t.Fatal(err)
	}
	if got.Complexity != models.ComplexityComplex {
		t.Errorf("Complexity = %q", got.Complexity)
	}
	if len(got.Requirements) != 1 {
		t.Fatalf("Requirements = %+v", got.Requirements)
	}
	r := got.Requirements[0]
	if r.Type != "functional" || r.Priority != "high" || r.Status != models.RequirementPending {
		t.Errorf("requirement = %+v", r)
	}
	if len(got.SuggestedAgentSpecs) != 1 || got.SuggestedAgentSpecs[0].Name != "Marketer" {
		t.Errorf("specs = %+v", got.SuggestedAgentSpecs)
	}
	if got.EstimatedPasses != 1 {
		t.Errorf("EstimatedPasses = %d, want 1", got.EstimatedPasses)
	}
	if !strings.Contains(inf.user, "Plan the launch") {
		t.Errorf("prompt does not carry the request: %q", inf.user)
	}
}

func TestAnalyze_FallsBackToHeuristics(t *testing.T) {
	const prompt = "Summarize this article. It must fit in one paragraph."
	tests := []struct {
		name string
		inf  Inference
	}{
		{"no inference", nil},
		{"inference error", &fakeInference{err: errors.New("overloaded")}},
		{"no json", &fakeInference{reply: "It is a simple request."}},
		{"unknown complexity", &fakeInference{reply: `{"complexity": "medium"}`}},
	}
	want := NewHeuristic().Analyze(prompt)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.inf).Analyze(context.Background(), prompt)
			if err != nil {
				t.Fatal(err)
			}
			if got.Complexity != want.Complexity || len(got.Requirements) != len(want.Requirements) {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&fakeInference{err: context.Canceled}).Analyze(ctx, "anything")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBreakdown_ResolvesDependencyTitles(t *testing.T) {
	inf := &fakeInference{reply: `{
		"main_task": {"title": "Launch", "description": "Everything for the launch"},
		"subtasks": [
			{"title": "Research market", "description": "Find competitors", "depends_on": [], "acceptance_criteria": "Three competitors named"},
			{"title": "Write copy", "description": "Landing page copy", "depends_on": ["research market"]},
			{"title": "Design page", "depends_on": ["Research market", "Write copy"]}
		]
	}`}
	analysis := &models.Analysis{Requirements: []models.Requirement{{Description: "Mentions pricing"}}}

	b, err := New(inf).Breakdown(context.Background(), "Prepare the launch", analysis, "wf-1")
	if err != nil {
		t.Fatal(err)
	}
	if b.MainTask == nil || b.MainTask.Title != "Launch" {
		t.Errorf("MainTask = %+v", b.MainTask)
	}
	if len(b.SubTasks) != 3 {
		t.Fatalf("got %d subtasks", len(b.SubTasks))
	}
	research, write, design := b.SubTasks[0], b.SubTasks[1], b.SubTasks[2]
	if len(research.Requirements) != 1 || research.Requirements[0].Description != "Three competitors named" {
		t.Errorf("acceptance criteria not carried: %+v", research.Requirements)
	}
	if len(write.Dependencies) != 1 || write.Dependencies[0] != research.ID {
		t.Errorf("write deps = %v", write.Dependencies)
	}
	if len(design.Dependencies) != 2 || design.Description != "Design page" {
		t.Errorf("design = %+v", design)
	}
	for _, st := range b.SubTasks {
		if st.ID == "" || st.WorkflowID != "wf-1" || st.Status != models.TaskStatusPending {
			t.Errorf("subtask not initialized: %+v", st)
		}
	}
	if !strings.Contains(inf.user, "Mentions pricing") {
		t.Errorf("prompt does not list requirements: %q", inf.user)
	}
}

func TestParseBreakdown_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no object", "sorry"},
		{"no subtasks", `{"subtasks": []}`},
		{"blank titles", `{"subtasks": [{"title": " "}]}`},
		{"duplicate title", `{"subtasks": [{"title": "A"}, {"title": "a"}]}`},
		{"unknown dependency", `{"subtasks": [{"title": "A", "depends_on": ["B"]}]}`},
		{"cycle", `{"subtasks": [{"title": "A", "depends_on": ["B"]}, {"title": "B", "depends_on": ["A"]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseBreakdown(tt.reply, "wf"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBreakdown_FallsBackToListItems(t *testing.T) {
	prompt := "Prepare the release:\n1. Draft the changelog\n2. Then publish the blog post\n3. Email customers"
	b, err := New(&fakeInference{reply: "no plan"}).Breakdown(context.Background(), prompt, nil, "wf")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.SubTasks) != 3 {
		t.Fatalf("got %d subtasks", len(b.SubTasks))
	}
	if b.SubTasks[1].Title != "Publish the blog post" {
		t.Errorf("title = %q", b.SubTasks[1].Title)
	}
	if deps := b.SubTasks[1].Dependencies; len(deps) != 1 || deps[0] != b.SubTasks[0].ID {
		t.Errorf("sequenced item deps = %v", deps)
	}
	if len(b.SubTasks[0].Dependencies) != 0 || len(b.SubTasks[2].Dependencies) != 0 {
		t.Error("unsequenced items should have no dependencies")
	}
}
