// Package analyzer turns a free-text work request into an analysis
// (complexity, requirements, suggested agents) and, for complex requests, a
// subtask breakdown. It asks the inference service first and falls back to
// keyword heuristics when no service is set or the reply cannot be decoded.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codename-co/devs-sub002/internal/extract"
	"github.com/codename-co/devs-sub002/internal/logging"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// maxSuggestedAgents bounds the specs returned by an analysis.
const maxSuggestedAgents = 4

// Inference generates text for a system and user prompt.
type Inference interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, attachments []models.Attachment) (string, error)
}

// Analyzer implements prompt analysis and breakdown.
type Analyzer struct {
	inference Inference
	heuristic *Heuristic
	logger    *logging.DebugLogger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(a *Analyzer) { a.logger = l.With("analyzer") }
}

// New creates an analyzer. inference may be nil, in which case only the
// heuristics run.
func New(inference Inference, opts ...Option) *Analyzer {
	a := &Analyzer{
		inference: inference,
		heuristic: NewHeuristic(),
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const analysisSystem = `You are a planning assistant. You classify work requests and list their acceptance criteria. Reply with JSON only.`

const analysisPrompt = `Analyze this work request.

Request:
%s

Respond with a JSON object in this exact format:
{
  "complexity": "simple" or "complex",
  "requirements": [
    {"type": "functional", "description": "what must hold for the result", "priority": "high" | "medium" | "low"}
  ],
  "suggested_agents": [
    {"name": "short name", "role": "what the agent does", "required_skills": ["skill"]}
  ],
  "estimated_passes": 1
}

Rules:
- "simple" means one agent can finish the request in a single pass
- "complex" means the request has several parts that are better handled separately
- List at most %d suggested agents`

type analysisJSON struct {
	Complexity   string `json:"complexity"`
	Requirements []struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
	} `json:"requirements"`
	SuggestedAgents []struct {
		Name           string   `json:"name"`
		Role           string   `json:"role"`
		RequiredSkills []string `json:"required_skills"`
	} `json:"suggested_agents"`
	EstimatedPasses int `json:"estimated_passes"`
}

// errBadComplexity is returned when the reply names an unknown complexity.
var errBadComplexity = errors.New("unknown complexity")

// Analyze classifies prompt. It only returns an error when ctx is done.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (*models.Analysis, error) {
	if a.inference == nil {
		return a.heuristic.Analyze(prompt), nil
	}

	reply, err := a.inference.Generate(ctx, analysisSystem, fmt.Sprintf(analysisPrompt, prompt, maxSuggestedAgents), nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("analyze prompt: %w", ctxErr)
		}
		a.logger.Log("analysis inference failed, using heuristics: %v", err)
		return a.heuristic.Analyze(prompt), nil
	}

	analysis, err := parseAnalysis(reply)
	if err != nil {
		a.logger.Log("analysis reply unusable, using heuristics: %v (%s)", err, extract.Truncate(reply, 200))
		return a.heuristic.Analyze(prompt), nil
	}
	a.logger.Log("analysis: complexity=%s requirements=%d agents=%d",
		analysis.Complexity, len(analysis.Requirements), len(analysis.SuggestedAgentSpecs))
	return analysis, nil
}

// parseAnalysis decodes an analysis reply.
func parseAnalysis(reply string) (*models.Analysis, error) {
	var raw analysisJSON
	if err := extract.Decode(reply, &raw); err != nil {
		return nil, err
	}

	analysis := &models.Analysis{EstimatedPasses: max(raw.EstimatedPasses, 1)}
	switch models.Complexity(strings.ToLower(strings.TrimSpace(raw.Complexity))) {
	case models.ComplexitySimple:
		analysis.Complexity = models.ComplexitySimple
	case models.ComplexityComplex:
		analysis.Complexity = models.ComplexityComplex
	default:
		return nil, fmt.Errorf("%w %q", errBadComplexity, raw.Complexity)
	}

	for _, r := range raw.Requirements {
		desc := strings.TrimSpace(r.Description)
		if desc == "" {
			continue
		}
		analysis.Requirements = append(analysis.Requirements, models.Requirement{
			Type:        defaultString(r.Type, "functional"),
			Description: desc,
			Priority:    defaultString(strings.ToLower(r.Priority), "medium"),
			Status:      models.RequirementPending,
		})
	}

	for _, s := range raw.SuggestedAgents {
		if strings.TrimSpace(s.Name) == "" && len(s.RequiredSkills) == 0 {
			continue
		}
		analysis.SuggestedAgentSpecs = append(analysis.SuggestedAgentSpecs, models.AgentSpec{
			Name:           strings.TrimSpace(s.Name),
			Role:           strings.TrimSpace(s.Role),
			RequiredSkills: s.RequiredSkills,
		})
		if len(analysis.SuggestedAgentSpecs) == maxSuggestedAgents {
			break
		}
	}
	return analysis, nil
}

func defaultString(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
