package orchestrator

import (
	"context"

	"github.com/codename-co/devs-sub002/internal/validation"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// InferenceService turns a system and user prompt into text.
type InferenceService interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, attachments []models.Attachment) (string, error)
}

// PromptAnalyzer classifies requests and breaks complex ones into subtasks.
type PromptAnalyzer interface {
	Analyze(ctx context.Context, prompt string) (*models.Analysis, error)
	Breakdown(ctx context.Context, prompt string, analysis *models.Analysis, workflowID string) (*models.Breakdown, error)
}

// AgentRegistry stores agents.
type AgentRegistry interface {
	FindByID(ctx context.Context, id string) (*models.Agent, error)
	FindAll(ctx context.Context) ([]*models.Agent, error)
	Create(ctx context.Context, a *models.Agent) error
}

// TaskStore persists tasks and their requirements.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	ListTasksByParent(ctx context.Context, parentID string) ([]*models.Task, error)
	ValidateAndUpdateRequirements(ctx context.Context, taskID string) (*models.RequirementReport, error)
	MarkRequirementSatisfied(ctx context.Context, taskID, reqID, evidence string) error
}

// ArtifactStore persists artifacts.
type ArtifactStore interface {
	CreateArtifact(ctx context.Context, a *models.Artifact) error
	ListArtifactsByTask(ctx context.Context, taskID string) ([]*models.Artifact, error)
}

// ContextBroker shares short-lived notes between agents.
type ContextBroker interface {
	Publish(ctx context.Context, c *models.SharedContext) error
	RelevantFor(ctx context.Context, agentID string, keywords []string) ([]*models.SharedContext, error)
}

// TaskExecutor runs one task with one agent. Failures are reported in the
// result, never returned.
type TaskExecutor interface {
	ExecuteWithAgent(ctx context.Context, task *models.Task, agent *models.Agent, prompt string) *models.ExecutionResult
}

// TeamBuilder resolves agent specs to agents.
type TeamBuilder interface {
	Resolve(ctx context.Context, spec models.AgentSpec) (*models.Agent, error)
	BuildTeam(ctx context.Context, specs []models.AgentSpec) ([]*models.Agent, error)
}

// TaskValidator reviews the artifacts produced for a task.
type TaskValidator interface {
	ValidateTask(ctx context.Context, task *models.Task, artifacts []*models.Artifact) (validation.Verdict, error)
}
