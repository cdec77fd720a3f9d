package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codename-co/devs-sub002/internal/agent"
	"github.com/codename-co/devs-sub002/internal/logging"
	"github.com/codename-co/devs-sub002/internal/team"
	"github.com/codename-co/devs-sub002/internal/validation"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// Orchestrator turns a work request into executed, validated tasks.
// It wires together: analyzer -> strategy -> team -> scheduler -> validator.
type Orchestrator struct {
	tasks     TaskStore
	artifacts ArtifactStore
	agents    AgentRegistry
	analyzer  PromptAnalyzer
	inference InferenceService

	executor  TaskExecutor
	team      TeamBuilder
	validator TaskValidator
	scheduler *Scheduler
	retry     *validation.RetryHandler

	strictCompletion bool
	logger           *logging.DebugLogger
	events           *EventEmitter
	now              func() time.Time

	inflight *inFlight
}

// New creates an orchestrator from its required collaborators and options.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Tasks == nil || req.Artifacts == nil || req.Agents == nil || req.Analyzer == nil {
		return nil, fmt.Errorf("orchestrator: tasks, artifacts, agents and analyzer are required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	orch := &Orchestrator{
		tasks:            req.Tasks,
		artifacts:        req.Artifacts,
		agents:           req.Agents,
		analyzer:         req.Analyzer,
		inference:        o.inference,
		executor:         o.executor,
		team:             o.team,
		validator:        o.validator,
		retry:            validation.NewRetryHandler(validation.RetryConfig{MaxPasses: o.maxRefinementPasses}),
		strictCompletion: o.strictCompletion,
		logger:           o.logger.With("orchestrator"),
		events:           o.events,
		now:              o.now,
		inflight:         newInFlight(),
	}

	if orch.executor == nil {
		var contexts agent.ContextBroker
		if o.contexts != nil {
			contexts = o.contexts
		}
		orch.executor = agent.NewExecutor(o.inference, req.Tasks, req.Artifacts, contexts,
			agent.WithLogger(o.logger),
			agent.WithContextTTL(o.contextTTL),
			agent.WithTimeout(o.inferenceTimeout),
		)
	}
	if orch.team == nil {
		var llm team.Inference
		if o.inference != nil {
			llm = o.inference
		}
		orch.team = team.NewBuilder(req.Agents, llm,
			team.WithRecruiterID(o.recruiterID),
			team.WithReservedIDs(validatorIDOrDefault(o.validatorID)),
			team.WithLogger(o.logger),
		)
	}
	if orch.validator == nil {
		var llm validation.Inference
		if o.inference != nil {
			llm = o.inference
		}
		orch.validator = validation.NewValidator(req.Agents, llm,
			validation.WithValidatorID(o.validatorID),
			validation.WithLogger(o.logger),
		)
	}

	orch.scheduler = NewScheduler(orch.executor, o.maxParallel)
	orch.scheduler.SetLogger(o.logger)
	orch.scheduler.SetEventEmitter(o.events)

	return orch, nil
}

func validatorIDOrDefault(id string) string {
	if id == "" {
		return validation.DefaultValidatorID
	}
	return id
}

// Orchestrate runs prompt to completion. When existingTaskID is set, that
// task is adopted as the main task; if it is no longer pending, its recorded
// artifacts are returned without executing anything.
//
// At most one orchestration per task ID, or per prompt when no ID is given,
// runs at a time; a concurrent call fails with ErrAlreadyInProgress.
func (o *Orchestrator) Orchestrate(ctx context.Context, prompt, existingTaskID string) (*models.OrchestrationResult, error) {
	if o.inference == nil {
		return nil, ErrNoProviderConfigured
	}

	release, err := o.inflight.acquire(orchestrationKey(prompt, existingTaskID))
	if err != nil {
		return nil, err
	}
	defer release()

	var existing *models.Task
	if existingTaskID != "" {
		existing, err = o.tasks.GetTask(ctx, existingTaskID)
		if err != nil {
			return nil, fmt.Errorf("load task %s: %w", existingTaskID, err)
		}
		if existing == nil {
			return nil, fmt.Errorf("orchestrate %s: %w", existingTaskID, ErrTaskNotFound)
		}
		if existing.Status != models.TaskStatusPending {
			o.logger.Log("task %s is %s, replaying recorded artifacts", existing.ID, existing.Status)
			return o.replay(ctx, existing)
		}
		if prompt == "" {
			prompt = TaskPrompt(existing)
		}
	}

	analysis, err := o.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze prompt: %w", err)
	}

	workflowID := uuid.NewString()
	if existing != nil && existing.WorkflowID != "" {
		workflowID = existing.WorkflowID
	}
	o.logger.Log("workflow %s: complexity=%s requirements=%d specs=%d",
		workflowID, analysis.Complexity, len(analysis.Requirements), len(analysis.SuggestedAgentSpecs))
	o.events.Emit(OrchestratorEvent{
		Type:       EventOrchestrationStarted,
		WorkflowID: workflowID,
		Message:    string(analysis.Complexity),
	})

	var result *models.OrchestrationResult
	if analysis.Complexity == models.ComplexitySimple {
		result, err = o.runSinglePass(ctx, prompt, analysis, existing, workflowID)
	} else {
		result, err = o.runMultiPass(ctx, prompt, analysis, existing, workflowID)
	}
	if err != nil {
		return nil, err
	}

	o.events.Emit(OrchestratorEvent{
		Type:       EventOrchestrationDone,
		WorkflowID: workflowID,
		TaskID:     result.MainTaskID,
		Message:    fmt.Sprintf("%d artifacts, %d errors", len(result.Artifacts), len(result.Errors)),
	})
	return result, nil
}

// InProgress reports whether an orchestration for the task ID or prompt is
// running.
func (o *Orchestrator) InProgress(prompt, existingTaskID string) bool {
	return o.inflight.running(orchestrationKey(prompt, existingTaskID))
}

// replay returns the artifacts already recorded for task and its
// descendants.
func (o *Orchestrator) replay(ctx context.Context, task *models.Task) (*models.OrchestrationResult, error) {
	result := &models.OrchestrationResult{
		Success:    true,
		WorkflowID: task.WorkflowID,
		MainTaskID: task.ID,
	}

	children, err := o.tasks.ListTasksByParent(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks of %s: %w", task.ID, err)
	}
	for _, c := range children {
		result.SubTaskIDs = append(result.SubTaskIDs, c.ID)
	}

	queue := []string{task.ID}
	seen := map[string]bool{task.ID: true}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		arts, err := o.artifacts.ListArtifactsByTask(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list artifacts of %s: %w", id, err)
		}
		result.Artifacts = append(result.Artifacts, arts...)

		kids := children
		if id != task.ID {
			if kids, err = o.tasks.ListTasksByParent(ctx, id); err != nil {
				return nil, fmt.Errorf("list subtasks of %s: %w", id, err)
			}
		}
		for _, k := range kids {
			if !seen[k.ID] {
				seen[k.ID] = true
				queue = append(queue, k.ID)
			}
		}
	}
	return result, nil
}

// adoptOrCreateMain prepares the main task: the existing task when given,
// otherwise base (or a task built from the prompt) is created. Analyzer
// requirements are merged in, skipping duplicate descriptions.
func (o *Orchestrator) adoptOrCreateMain(ctx context.Context, prompt string, analysis *models.Analysis, existing, base *models.Task, workflowID string) (*models.Task, error) {
	now := o.now()
	reqs := make([]models.Requirement, len(analysis.Requirements))
	for i, r := range analysis.Requirements {
		r.ID = ""
		r.Status = models.RequirementPending
		r.DetectedAt = now
		reqs[i] = r
	}

	if existing != nil {
		if existing.WorkflowID == "" {
			existing.WorkflowID = workflowID
		}
		existing.Complexity = analysis.Complexity
		existing.MergeRequirements(reqs)
		for i := range existing.Requirements {
			if existing.Requirements[i].ID == "" {
				existing.Requirements[i].ID = uuid.NewString()
			}
		}
		if err := o.tasks.UpdateTask(ctx, existing); err != nil {
			return nil, fmt.Errorf("update main task: %w", err)
		}
		return existing, nil
	}

	main := base
	if main == nil {
		main = &models.Task{Title: titleFromPrompt(prompt), Description: prompt}
	}
	main.ID = ""
	main.WorkflowID = workflowID
	main.ParentTaskID = ""
	main.Complexity = analysis.Complexity
	main.Status = models.TaskStatusPending
	if main.Description == "" {
		main.Description = prompt
	}
	if main.EstimatedPasses == 0 {
		main.EstimatedPasses = analysis.EstimatedPasses
	}
	main.MergeRequirements(reqs)
	if err := o.tasks.CreateTask(ctx, main); err != nil {
		return nil, fmt.Errorf("create main task: %w", err)
	}
	return main, nil
}

// finishRequirements runs requirement-level validation for task and persists
// every newly satisfied requirement.
func (o *Orchestrator) finishRequirements(ctx context.Context, taskID string) (*models.RequirementReport, error) {
	before, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}
	if before == nil {
		return nil, fmt.Errorf("requirements of %s: %w", taskID, ErrTaskNotFound)
	}
	satisfied := make(map[string]bool)
	for _, r := range before.Requirements {
		if r.Status == models.RequirementSatisfied {
			satisfied[r.ID] = true
		}
	}

	report, err := o.tasks.ValidateAndUpdateRequirements(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("validate requirements of %s: %w", taskID, err)
	}
	for _, res := range report.Results {
		if res.Status != models.RequirementSatisfied || satisfied[res.ID] {
			continue
		}
		if err := o.tasks.MarkRequirementSatisfied(ctx, taskID, res.ID, res.Evidence); err != nil {
			return nil, err
		}
	}
	o.logger.Log("task %s requirements %.0f%% satisfied", taskID, report.SatisfactionRate)
	return report, nil
}

// completeTask reloads task and marks it completed, or failed when fail is set.
func (o *Orchestrator) completeTask(ctx context.Context, taskID string, fail bool, reason string) error {
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task == nil {
		return fmt.Errorf("complete %s: %w", taskID, ErrTaskNotFound)
	}
	if fail {
		task.Status = models.TaskStatusFailed
		task.Error = reason
	} else {
		task.MarkCompleted(o.now())
	}
	if err := o.tasks.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	return nil
}

// failTask records err on the task even when ctx is already canceled.
func (o *Orchestrator) failTask(ctx context.Context, task *models.Task, err error) {
	task.Status = models.TaskStatusFailed
	task.Error = err.Error()
	if uerr := o.tasks.UpdateTask(context.WithoutCancel(ctx), task); uerr != nil {
		o.logger.Log("task %s: could not persist failure: %v", task.ID, uerr)
	}
}

// titleFromPrompt returns the first line of prompt, shortened.
func titleFromPrompt(prompt string) string {
	title := prompt
	for i, r := range prompt {
		if r == '\n' {
			title = prompt[:i]
			break
		}
	}
	runes := []rune(title)
	if len(runes) > 80 {
		title = string(runes[:77]) + "..."
	}
	if title == "" {
		title = "Untitled request"
	}
	return title
}
