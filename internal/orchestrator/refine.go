package orchestrator

import (
	"context"
	"fmt"

	"github.com/codename-co/devs-sub002/internal/validation"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// refineOutcome collects what a review-and-refine cycle produced.
type refineOutcome struct {
	artifacts []*models.Artifact
	errors    []string
	taskIDs   []string
}

// validateAndRefine reviews the artifacts of task and, while the verdict
// fails and the refinement budget allows, runs refinement tasks with the same
// agent. Each refinement depends on and descends from the task it reworks.
//
// With a budget of one pass the single refinement is accepted as is. With a
// larger budget every refinement is reviewed again; one still failing when
// the budget runs out is marked failed and its reason is reported.
//
// Only cancellation and store failures are returned as errors.
func (o *Orchestrator) validateAndRefine(ctx context.Context, task *models.Task, ag *models.Agent, artifacts []*models.Artifact) (*refineOutcome, error) {
	out := &refineOutcome{}

	verdict, err := o.validator.ValidateTask(ctx, task, artifacts)
	if err != nil {
		return out, err
	}
	if verdict.Passed {
		return out, nil
	}
	o.emitVerdict(task, verdict)

	revalidate := o.retry.MaxPasses() > 1
	prev := task
	for pass := 0; o.retry.ShouldRetry(pass); pass++ {
		if err := o.syncRequirements(ctx, prev); err != nil {
			return out, err
		}
		child := o.retry.RefinementTask(prev)
		if err := o.tasks.CreateTask(ctx, child); err != nil {
			return out, fmt.Errorf("create refinement of %s: %w", prev.ID, err)
		}
		out.taskIDs = append(out.taskIDs, child.ID)
		o.logger.Log("refining %s as %s (pass %d/%d): %s", prev.ID, child.ID, pass+1, o.retry.MaxPasses(), verdict.Reason)
		o.events.Emit(OrchestratorEvent{
			Type:       EventRefinementStarted,
			WorkflowID: child.WorkflowID,
			TaskID:     child.ID,
			TaskTitle:  child.Title,
			ParentID:   prev.ID,
			AgentID:    ag.ID,
			Message:    verdict.Reason,
		})

		res := o.executor.ExecuteWithAgent(ctx, child, ag, o.retry.RefinementPrompt(prev, verdict, pass+1))
		emitTaskResult(o.events, child, res)
		out.artifacts = append(out.artifacts, res.Artifacts...)
		if !res.Success {
			out.errors = append(out.errors, res.Errors...)
			return out, nil
		}

		if !revalidate {
			return out, o.settleRefinement(ctx, child.ID, false, "")
		}
		verdict, err = o.validator.ValidateTask(ctx, child, res.Artifacts)
		if err != nil {
			return out, err
		}
		if verdict.Passed {
			return out, o.settleRefinement(ctx, child.ID, false, "")
		}
		o.emitVerdict(child, verdict)

		if o.retry.ShouldRetry(pass + 1) {
			// Superseded by the next refinement.
			if err := o.settleRefinement(ctx, child.ID, false, ""); err != nil {
				return out, err
			}
		}
		prev = child
	}

	out.errors = append(out.errors, fmt.Sprintf("task %q still fails review after %d refinement passes: %s",
		task.Title, o.retry.MaxPasses(), verdict.Reason))
	return out, o.settleRefinement(ctx, prev.ID, true, verdict.Reason)
}

// syncRequirements records requirement results for task and reloads them,
// so a refinement inherits only what is still unmet.
func (o *Orchestrator) syncRequirements(ctx context.Context, task *models.Task) error {
	if _, err := o.finishRequirements(ctx, task.ID); err != nil {
		return err
	}
	stored, err := o.tasks.GetTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", task.ID, err)
	}
	task.Requirements = stored.Requirements
	return nil
}

// settleRefinement records requirement results for a refinement task and
// closes it.
func (o *Orchestrator) settleRefinement(ctx context.Context, taskID string, failed bool, reason string) error {
	if _, err := o.finishRequirements(ctx, taskID); err != nil {
		return err
	}
	return o.completeTask(ctx, taskID, failed, reason)
}

func (o *Orchestrator) emitVerdict(task *models.Task, verdict validation.Verdict) {
	o.logger.Log("task %s failed review (%s): %s", task.ID, verdict.Source, verdict.Reason)
	o.events.Emit(OrchestratorEvent{
		Type:       EventValidationFailed,
		WorkflowID: task.WorkflowID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		ParentID:   task.ParentTaskID,
		Message:    verdict.Reason,
	})
}
