package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/codename-co/devs-sub002/internal/logging"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// DefaultValidatorID is the registry ID of the reviewing agent.
const DefaultValidatorID = "validator"

// AgentFinder looks up the validator agent.
type AgentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Agent, error)
}

// Inference generates text for a system and user prompt.
type Inference interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, attachments []models.Attachment) (string, error)
}

// Verdict sources.
const (
	SourceJSON      = "json"
	SourceHeuristic = "heuristic"
	SourceVacuous   = "vacuous"
)

// Verdict is the outcome of a task-level review.
type Verdict struct {
	// Passed reports whether the artifacts meet the task's requirements.
	Passed bool
	// Reason is the reviewer's explanation, passed verbatim to refinement.
	Reason string
	// Source records how the verdict was reached.
	Source string
}

// Validator reviews task output with the validator agent.
type Validator struct {
	agents      AgentFinder
	inference   Inference
	validatorID string
	logger      *logging.DebugLogger
}

// Option configures a Validator.
type Option func(*Validator)

// WithValidatorID sets the registry ID of the reviewing agent.
func WithValidatorID(id string) Option {
	return func(v *Validator) {
		if id != "" {
			v.validatorID = id
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(v *Validator) { v.logger = l.With("validation") }
}

// NewValidator creates a validator.
func NewValidator(agents AgentFinder, inference Inference, opts ...Option) *Validator {
	v := &Validator{
		agents:      agents,
		inference:   inference,
		validatorID: DefaultValidatorID,
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateTask asks the validator agent whether artifacts satisfy the task.
//
// A missing validator agent or a failing inference call yields a passing
// verdict, so a broken reviewer never blocks completion. The only error
// returned is the context's, when the call was canceled.
func (v *Validator) ValidateTask(ctx context.Context, task *models.Task, artifacts []*models.Artifact) (Verdict, error) {
	if v.inference == nil {
		return vacuous("no inference service"), nil
	}

	reviewer, err := v.agents.FindByID(ctx, v.validatorID)
	if err != nil {
		v.logger.Log("lookup validator %q failed for task %s: %v", v.validatorID, task.ID, err)
		return vacuous("validator lookup failed"), nil
	}
	if reviewer == nil {
		v.logger.Log("validator %q not registered, passing task %s", v.validatorID, task.ID)
		return vacuous("no validator agent"), nil
	}

	reply, err := v.inference.Generate(ctx, reviewer.Instructions, buildValidationPrompt(task, artifacts), nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return Verdict{}, fmt.Errorf("validate task %s: %w", task.ID, err)
		}
		v.logger.Log("validator inference failed for task %s: %v", task.ID, err)
		return vacuous("validator unavailable"), nil
	}

	verdict := ParseVerdict(reply)
	v.logger.Log("task %s validation passed=%v source=%s reason=%q", task.ID, verdict.Passed, verdict.Source, verdict.Reason)
	return verdict, nil
}

func vacuous(reason string) Verdict {
	return Verdict{Passed: true, Reason: reason, Source: SourceVacuous}
}
