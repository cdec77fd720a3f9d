// Package agent runs a single task with a single agent: it gathers shared
// context, prompts the inference service, stores the resulting artifact and
// publishes a completion note for later tasks.
package agent

import (
	"context"
	"time"

	"github.com/codename-co/devs-sub002/internal/logging"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// DefaultContextTTL is how long a completion note stays visible.
const DefaultContextTTL = 24 * time.Hour

// Inference generates text for a system and user prompt.
type Inference interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, attachments []models.Attachment) (string, error)
}

// TaskStore reads and writes tasks.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
}

// ArtifactStore records produced artifacts.
type ArtifactStore interface {
	CreateArtifact(ctx context.Context, a *models.Artifact) error
	ListArtifactsByTask(ctx context.Context, taskID string) ([]*models.Artifact, error)
}

// ContextBroker shares short-lived findings between agents.
type ContextBroker interface {
	Publish(ctx context.Context, c *models.SharedContext) error
	RelevantFor(ctx context.Context, agentID string, keywords []string) ([]*models.SharedContext, error)
}

// Executor runs tasks with agents.
type Executor struct {
	inference Inference
	tasks     TaskStore
	artifacts ArtifactStore
	contexts  ContextBroker
	logger    *logging.DebugLogger

	contextTTL time.Duration
	timeout    time.Duration
	now        func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(e *Executor) { e.logger = l.With("agent") }
}

// WithContextTTL sets how long published completion notes stay visible.
func WithContextTTL(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.contextTTL = d
		}
	}
}

// WithTimeout bounds each inference call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithClock overrides the time source (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an executor. contexts may be nil, in which case no
// shared context is read or published.
func NewExecutor(inference Inference, tasks TaskStore, artifacts ArtifactStore, contexts ContextBroker, opts ...Option) *Executor {
	e := &Executor{
		inference:  inference,
		tasks:      tasks,
		artifacts:  artifacts,
		contexts:   contexts,
		logger:     logging.NopLogger(),
		contextTTL: DefaultContextTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
