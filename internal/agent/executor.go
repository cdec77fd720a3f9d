package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codename-co/devs-sub002/internal/extract"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// ContextTypeCompletion marks notes published when a task finishes.
const ContextTypeCompletion = "completion"

// completionExcerpt bounds the artifact text copied into a completion note.
const completionExcerpt = 1500

// ErrEmptyOutput indicates the inference service returned only whitespace.
var ErrEmptyOutput = errors.New("agent produced no output")

// ExecuteWithAgent runs task with agent. prompt is the instruction for this
// pass; refinement passes carry the validator's feedback in it.
//
// Failures never propagate: the task is marked failed with the error
// recorded, and the result reports Success false.
func (e *Executor) ExecuteWithAgent(ctx context.Context, task *models.Task, agent *models.Agent, prompt string) *models.ExecutionResult {
	result := &models.ExecutionResult{TaskID: task.ID, AgentID: agent.ID}

	task.Status = models.TaskStatusInProgress
	task.AssignedAgentID = agent.ID
	task.Error = ""
	if err := e.tasks.UpdateTask(ctx, task); err != nil {
		return e.fail(ctx, task, result, fmt.Errorf("mark in progress: %w", err))
	}
	e.logger.Log("task %s assigned to %s (%s)", task.ID, agent.Name, agent.ID)

	var related []*models.SharedContext
	if e.contexts != nil {
		entries, err := e.contexts.RelevantFor(ctx, agent.ID, ExtractKeywords(prompt))
		if err != nil {
			return e.fail(ctx, task, result, fmt.Errorf("fetch shared context: %w", err))
		}
		related = entries
	}

	content, err := e.generate(ctx, systemPrompt(agent, task), buildPrompt(prompt, related, task), task.Attachments)
	if err != nil {
		return e.fail(ctx, task, result, err)
	}

	artifact, err := e.recordArtifact(ctx, task, agent, content)
	if err != nil {
		return e.fail(ctx, task, result, err)
	}
	result.Artifacts = append(result.Artifacts, artifact)

	if e.contexts != nil {
		note := &models.SharedContext{
			TaskID:      task.ID,
			AgentID:     agent.ID,
			ContextType: ContextTypeCompletion,
			Title:       "Completed: " + task.Title,
			Content:     extract.Truncate(content, completionExcerpt),
			ExpiryDate:  e.now().Add(e.contextTTL),
		}
		if err := e.contexts.Publish(ctx, note); err != nil {
			return e.fail(ctx, task, result, fmt.Errorf("publish completion: %w", err))
		}
		result.Contexts = append(result.Contexts, note)
	}

	if !task.HasArtifact(artifact.ID) {
		task.Artifacts = append(task.Artifacts, artifact.ID)
	}
	task.ActualPasses++
	if err := e.tasks.UpdateTask(ctx, task); err != nil {
		return e.fail(ctx, task, result, fmt.Errorf("record artifact on task: %w", err))
	}

	e.logger.Log("task %s produced %s artifact %s v%d", task.ID, artifact.Type, artifact.ID, artifact.Version)
	result.Success = true
	return result
}

// generate calls inference, bounded by the configured timeout.
func (e *Executor) generate(ctx context.Context, system, user string, attachments []models.Attachment) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	content, err := e.inference.Generate(ctx, system, user, attachments)
	if err != nil {
		return "", fmt.Errorf("inference: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyOutput
	}
	return content, nil
}

// recordArtifact classifies, versions and stores the output.
func (e *Executor) recordArtifact(ctx context.Context, task *models.Task, agent *models.Agent, content string) (*models.Artifact, error) {
	versionSource := task.ID
	if task.ParentTaskID != "" {
		versionSource = task.ParentTaskID
	}
	prior, err := e.artifacts.ListArtifactsByTask(ctx, versionSource)
	if err != nil {
		return nil, fmt.Errorf("list prior artifacts: %w", err)
	}
	version := 1
	for _, a := range prior {
		if a.Version >= version {
			version = a.Version + 1
		}
	}

	var deps []string
	for _, depID := range task.Dependencies {
		dep, err := e.tasks.GetTask(ctx, depID)
		if err != nil {
			return nil, fmt.Errorf("load dependency %s: %w", depID, err)
		}
		if dep != nil {
			deps = append(deps, dep.Artifacts...)
		}
	}

	artifact := &models.Artifact{
		TaskID:       task.ID,
		AgentID:      agent.ID,
		Title:        task.Title,
		Content:      content,
		Type:         ClassifyArtifact(content),
		Version:      version,
		Status:       models.ArtifactDraft,
		Dependencies: deps,
		Validates:    CoveredRequirements(task.Requirements, content),
		CreatedAt:    e.now(),
	}
	if err := e.artifacts.CreateArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return artifact, nil
}

// fail records err on the task and result. The write uses a context that
// survives cancellation so an aborted run still leaves the task failed.
func (e *Executor) fail(ctx context.Context, task *models.Task, result *models.ExecutionResult, err error) *models.ExecutionResult {
	e.logger.Log("task %s failed: %v", task.ID, err)
	task.Status = models.TaskStatusFailed
	task.Error = err.Error()
	if uerr := e.tasks.UpdateTask(context.WithoutCancel(ctx), task); uerr != nil {
		e.logger.Log("task %s: could not persist failure: %v", task.ID, uerr)
	}
	result.Success = false
	result.Errors = append(result.Errors, err.Error())
	return result
}
