package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codename-co/devs-sub002/pkg/models"
)

type mockFinder struct {
	agent *models.Agent
	err   error
}

func (m *mockFinder) FindByID(context.Context, string) (*models.Agent, error) {
	return m.agent, m.err
}

type mockInference struct {
	reply  string
	err    error
	prompt string
}

func (m *mockInference) Generate(_ context.Context, _, user string, _ []models.Attachment) (string, error) {
	m.prompt = user
	return m.reply, m.err
}

var reviewer = &models.Agent{ID: "validator", Instructions: "You review work."}

func TestValidateTask(t *testing.T) {
	task := &models.Task{
		ID:           "t1",
		Title:        "Write release notes",
		Requirements: []models.Requirement{{ID: "r1", Description: "List breaking changes"}},
	}
	artifacts := []*models.Artifact{{Title: "Notes", Content: "v2 drops the legacy API", Type: models.ArtifactDocument, Version: 1}}

	tests := []struct {
		name       string
		finder     *mockFinder
		llm        *mockInference
		wantPassed bool
		wantSource string
		wantReason string
	}{
		{
			name:       "json pass",
			finder:     &mockFinder{agent: reviewer},
			llm:        &mockInference{reply: `{"validation_passed": true, "reason": "complete"}`},
			wantPassed: true,
			wantSource: SourceJSON,
			wantReason: "complete",
		},
		{
			name:       "embedded json fail",
			finder:     &mockFinder{agent: reviewer},
			llm:        &mockInference{reply: "Review:\n{\"validation_passed\": false, \"reason\": \"missing migration guide\"}\nThanks"},
			wantPassed: false,
			wantSource: SourceJSON,
			wantReason: "missing migration guide",
		},
		{
			name:       "heuristic",
			finder:     &mockFinder{agent: reviewer},
			llm:        &mockInference{reply: "Looks good, validation PASSED."},
			wantPassed: true,
			wantSource: SourceHeuristic,
		},
		{
			name:       "missing validator",
			finder:     &mockFinder{},
			llm:        &mockInference{reply: `{"validation_passed": false}`},
			wantPassed: true,
			wantSource: SourceVacuous,
		},
		{
			name:       "lookup error",
			finder:     &mockFinder{err: errors.New("db locked")},
			llm:        &mockInference{},
			wantPassed: true,
			wantSource: SourceVacuous,
		},
		{
			name:       "inference error",
			finder:     &mockFinder{agent: reviewer},
			llm:        &mockInference{err: errors.New("overloaded")},
			wantPassed: true,
			wantSource: SourceVacuous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.finder, tt.llm)
			got, err := v.ValidateTask(context.Background(), task, artifacts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Passed != tt.wantPassed || got.Source != tt.wantSource {
				t.Errorf("verdict = %+v, want passed=%v source=%s", got, tt.wantPassed, tt.wantSource)
			}
			if tt.wantReason != "" && got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidateTask_PromptIncludesRequirementsAndPreview(t *testing.T) {
	llm := &mockInference{reply: `{"validation_passed": true}`}
	task := &models.Task{Title: "Report", Requirements: []models.Requirement{{Description: "Cite sources"}}}
	long := strings.Repeat("é", 700)

	if _, err := NewValidator(&mockFinder{agent: reviewer}, llm).ValidateTask(context.Background(), task, []*models.Artifact{{Title: "Draft", Content: long}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(llm.prompt, "- Cite sources") {
		t.Errorf("prompt missing requirement:\n%s", llm.prompt)
	}
	if strings.Contains(llm.prompt, strings.Repeat("é", 601)) || !strings.Contains(llm.prompt, strings.Repeat("é", 600)+"...") {
		t.Error("artifact preview should be cut at 600 runes")
	}
}

func TestValidateTask_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewValidator(&mockFinder{agent: reviewer}, &mockInference{err: context.Canceled})
	if _, err := v.ValidateTask(ctx, &models.Task{ID: "t"}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestValidateTask_NoInference(t *testing.T) {
	got, err := NewValidator(&mockFinder{agent: reviewer}, nil).ValidateTask(context.Background(), &models.Task{}, nil)
	if err != nil || !got.Passed || got.Source != SourceVacuous {
		t.Errorf("got %+v, %v", got, err)
	}
}
