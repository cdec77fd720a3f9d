package orchestrator

import (
	"time"

	"github.com/codename-co/devs-sub002/internal/logging"
)

// RequiredConfig contains the collaborators an Orchestrator cannot run
// without. All fields are required and have no defaults.
type RequiredConfig struct {
	// Tasks persists tasks and requirements.
	Tasks TaskStore
	// Artifacts persists produced artifacts.
	Artifacts ArtifactStore
	// Agents is the agent registry used for matching and recruitment.
	Agents AgentRegistry
	// Analyzer classifies prompts and produces breakdowns.
	Analyzer PromptAnalyzer
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	inference           InferenceService
	contexts            ContextBroker
	logger              *logging.DebugLogger
	events              *EventEmitter
	maxRefinementPasses int
	maxParallel         int
	strictCompletion    bool
	recruiterID         string
	validatorID         string
	contextTTL          time.Duration
	inferenceTimeout    time.Duration
	now                 func() time.Time

	// Injectable collaborators for testing
	executor  TaskExecutor
	team      TeamBuilder
	validator TaskValidator
}

func defaultOptions() *orchestratorOptions {
	return &orchestratorOptions{
		logger:              logging.NopLogger(),
		maxRefinementPasses: 1,
		now:                 time.Now,
	}
}

// WithInference sets the inference service. Without one, Orchestrate
// returns ErrNoProviderConfigured.
func WithInference(s InferenceService) Option {
	return func(o *orchestratorOptions) { o.inference = s }
}

// WithContextBroker sets the shared context broker. Without one, agents run
// without shared context.
func WithContextBroker(b ContextBroker) Option {
	return func(o *orchestratorOptions) { o.contexts = b }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithEventEmitter sets the emitter that receives progress events.
func WithEventEmitter(e *EventEmitter) Option {
	return func(o *orchestratorOptions) { o.events = e }
}

// WithMaxRefinementPasses sets how many refinement tasks may follow a failed
// review (default 1).
func WithMaxRefinementPasses(n int) Option {
	return func(o *orchestratorOptions) { o.maxRefinementPasses = n }
}

// WithMaxParallel caps the tasks dispatched per scheduler batch. Zero means
// the team size is the only cap.
func WithMaxParallel(n int) Option {
	return func(o *orchestratorOptions) { o.maxParallel = n }
}

// WithStrictCompletion marks the main task failed when any subtask or
// refinement error was collected.
func WithStrictCompletion(b bool) Option {
	return func(o *orchestratorOptions) { o.strictCompletion = b }
}

// WithRecruiterID sets the registry ID of the recruiting agent.
func WithRecruiterID(id string) Option {
	return func(o *orchestratorOptions) { o.recruiterID = id }
}

// WithValidatorID sets the registry ID of the reviewing agent.
func WithValidatorID(id string) Option {
	return func(o *orchestratorOptions) { o.validatorID = id }
}

// WithContextTTL sets how long completion notes stay visible.
func WithContextTTL(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.contextTTL = d }
}

// WithInferenceTimeout bounds each task's inference call.
func WithInferenceTimeout(d time.Duration) Option {
	return func(o *orchestratorOptions) { o.inferenceTimeout = d }
}

// WithClock overrides the time source (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) { o.now = now }
}

// WithExecutor sets a custom task executor (mainly for testing).
func WithExecutor(e TaskExecutor) Option {
	return func(o *orchestratorOptions) { o.executor = e }
}

// WithTeamBuilder sets a custom team builder (mainly for testing).
func WithTeamBuilder(t TeamBuilder) Option {
	return func(o *orchestratorOptions) { o.team = t }
}

// WithValidator sets a custom task validator (mainly for testing).
func WithValidator(v TaskValidator) Option {
	return func(o *orchestratorOptions) { o.validator = v }
}
