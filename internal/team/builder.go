// Package team assembles agents for a set of capability specs, reusing
// registered agents when they match and recruiting new ones when not.
package team

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/codename-co/devs-sub002/internal/extract"
	"github.com/codename-co/devs-sub002/internal/logging"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// DefaultRecruiterID is the registry ID of the recruiting agent.
const DefaultRecruiterID = "recruiter"

// Registry looks up and registers agents.
type Registry interface {
	FindByID(ctx context.Context, id string) (*models.Agent, error)
	FindAll(ctx context.Context) ([]*models.Agent, error)
	Create(ctx context.Context, a *models.Agent) error
}

// Inference generates text for a system and user prompt.
type Inference interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, attachments []models.Attachment) (string, error)
}

// Builder resolves agent specs to agents.
type Builder struct {
	registry    Registry
	inference   Inference
	recruiterID string
	reserved    map[string]bool
	logger      *logging.DebugLogger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecruiterID sets the registry ID of the recruiting agent.
func WithRecruiterID(id string) Option {
	return func(b *Builder) {
		if id != "" {
			b.recruiterID = id
		}
	}
}

// WithReservedIDs excludes agents from team matching. The recruiter is
// always excluded.
func WithReservedIDs(ids ...string) Option {
	return func(b *Builder) {
		for _, id := range ids {
			if id != "" {
				b.reserved[id] = true
			}
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(b *Builder) { b.logger = l.With("team") }
}

// NewBuilder creates a builder. inference may be nil, in which case every
// unmatched spec gets a synthesized agent.
func NewBuilder(registry Registry, inference Inference, opts ...Option) *Builder {
	b := &Builder{
		registry:    registry,
		inference:   inference,
		recruiterID: DefaultRecruiterID,
		reserved:    make(map[string]bool),
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MatchScore rates how well an agent fits a spec. Each required skill adds
// one point when it equals one of the agent's tags and one more when it
// appears in the agent's role or instructions, ignoring case. Zero means no
// match.
func MatchScore(agent *models.Agent, spec models.AgentSpec) int {
	haystack := strings.ToLower(agent.Role + "\n" + agent.Instructions)
	score := 0
	for _, skill := range spec.RequiredSkills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if agent.HasTag(skill) {
			score++
		}
		if strings.Contains(haystack, strings.ToLower(skill)) {
			score++
		}
	}
	return score
}

// BestMatch returns the highest scoring agent, preferring the earliest on
// ties, or nil when no agent scores above zero.
func BestMatch(agents []*models.Agent, spec models.AgentSpec) (*models.Agent, int) {
	var best *models.Agent
	bestScore := 0
	for _, a := range agents {
		if s := MatchScore(a, spec); s > bestScore {
			best, bestScore = a, s
		}
	}
	return best, bestScore
}

// Resolve returns a registered agent matching spec, or recruits one. It only
// fails when the registry cannot be read or ctx is done; recruitment
// problems fall back to a synthesized agent.
func (b *Builder) Resolve(ctx context.Context, spec models.AgentSpec) (*models.Agent, error) {
	agents, err := b.registry.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	if best, score := BestMatch(b.candidates(agents), spec); best != nil {
		b.logger.Log("spec %q matched %s (score %d)", spec.Name, best.ID, score)
		return best, nil
	}

	agent, err := b.recruit(ctx, spec)
	if err == nil {
		return agent, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	b.logger.Log("AgentRecruitmentFailed spec=%q: %v", spec.Name, err)
	return b.fallback(ctx, spec), nil
}

// candidates drops the recruiter and reserved agents.
func (b *Builder) candidates(agents []*models.Agent) []*models.Agent {
	out := agents[:0:0]
	for _, a := range agents {
		if a.ID == b.recruiterID || b.reserved[a.ID] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// BuildTeam resolves every spec concurrently. The team has one agent per
// spec, in spec order; the same agent may appear more than once.
func (b *Builder) BuildTeam(ctx context.Context, specs []models.AgentSpec) ([]*models.Agent, error) {
	team := make([]*models.Agent, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			agent, err := b.Resolve(gctx, spec)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", spec.Name, err)
			}
			team[i] = agent
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return team, nil
}

type recruitedProfile struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Instructions string `json:"instructions"`
}

// recruit asks the recruiter agent to design a new agent for spec.
func (b *Builder) recruit(ctx context.Context, spec models.AgentSpec) (*models.Agent, error) {
	if b.inference == nil {
		return nil, fmt.Errorf("no inference service")
	}
	recruiter, err := b.registry.FindByID(ctx, b.recruiterID)
	if err != nil {
		return nil, fmt.Errorf("find recruiter: %w", err)
	}
	if recruiter == nil {
		return nil, fmt.Errorf("recruiter agent %q is not registered", b.recruiterID)
	}

	specYAML, err := yaml.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode spec: %w", err)
	}

	reply, err := b.inference.Generate(ctx, recruiter.Instructions, recruitPrompt(string(specYAML)), nil)
	if err != nil {
		return nil, fmt.Errorf("recruiter inference: %w", err)
	}

	var profile recruitedProfile
	if err := extract.Decode(reply, &profile); err != nil {
		return nil, fmt.Errorf("parse recruiter reply: %w", err)
	}
	if strings.TrimSpace(profile.Name) == "" || strings.TrimSpace(profile.Instructions) == "" {
		return nil, fmt.Errorf("recruiter returned an incomplete profile: %s", extract.Truncate(reply, 200))
	}

	role := profile.Role
	if role == "" {
		role = spec.Role
	}
	agent := &models.Agent{
		Name:         profile.Name,
		Role:         role,
		Instructions: profile.Instructions,
		Tags:         append([]string(nil), spec.RequiredSkills...),
	}
	if err := b.registry.Create(ctx, agent); err != nil {
		return nil, fmt.Errorf("register recruited agent: %w", err)
	}
	b.logger.Log("recruited %s (%s) for spec %q", agent.Name, agent.ID, spec.Name)
	return agent, nil
}

// fallback synthesizes an agent straight from the spec. If the registry
// refuses it, an unsaved agent is returned so execution can continue.
func (b *Builder) fallback(ctx context.Context, spec models.AgentSpec) *models.Agent {
	agent := FallbackAgent(spec)
	if err := b.registry.Create(ctx, agent); err != nil {
		b.logger.Log("AgentRecruitmentFailed spec=%q: register fallback: %v", spec.Name, err)
		agent.ID = uuid.NewString()
		agent.CreatedAt = time.Now()
	}
	return agent
}

// FallbackAgent builds an agent profile from the spec alone.
func FallbackAgent(spec models.AgentSpec) *models.Agent {
	name := spec.Name
	if name == "" {
		name = models.GenericAgentSpec().Name
	}
	role := spec.Role
	if role == "" {
		role = models.GenericAgentSpec().Role
	}
	instructions := spec.Instructions
	if instructions == "" {
		instructions = fmt.Sprintf("You are %s, a %s.", name, role)
		if len(spec.RequiredSkills) > 0 {
			instructions += " You are skilled in " + strings.Join(spec.RequiredSkills, ", ") + "."
		}
		instructions += " Complete the task you are given thoroughly and return the finished deliverable."
	}
	return &models.Agent{
		Name:         name,
		Role:         role,
		Instructions: instructions,
		Tags:         append([]string(nil), spec.RequiredSkills...),
	}
}

func recruitPrompt(specYAML string) string {
	return "Design an agent for the following capability specification:\n\n```yaml\n" + specYAML + "```\n\n" +
		"Respond with a single JSON object with the fields \"name\", \"role\" and \"instructions\". " +
		"The instructions become the agent's system prompt, so write them in the second person."
}
