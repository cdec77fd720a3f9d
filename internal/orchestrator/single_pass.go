package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// runSinglePass executes a simple request as one task with one agent.
func (o *Orchestrator) runSinglePass(ctx context.Context, prompt string, analysis *models.Analysis, existing *models.Task, workflowID string) (*models.OrchestrationResult, error) {
	main, err := o.adoptOrCreateMain(ctx, prompt, analysis, existing, nil, workflowID)
	if err != nil {
		return nil, err
	}
	result := &models.OrchestrationResult{WorkflowID: workflowID, MainTaskID: main.ID}

	spec := models.GenericAgentSpec()
	if len(analysis.SuggestedAgentSpecs) > 0 {
		spec = analysis.SuggestedAgentSpecs[0]
	}
	ag, err := o.team.Resolve(ctx, spec)
	if err != nil {
		o.failTask(ctx, main, err)
		return nil, fmt.Errorf("resolve agent: %w", err)
	}
	o.events.Emit(OrchestratorEvent{
		Type:       EventTeamAssembled,
		WorkflowID: workflowID,
		AgentID:    ag.ID,
		Message:    ag.Name,
	})

	o.events.Emit(OrchestratorEvent{
		Type:       EventTaskStarted,
		WorkflowID: workflowID,
		TaskID:     main.ID,
		TaskTitle:  main.Title,
		AgentID:    ag.ID,
	})
	res := o.executor.ExecuteWithAgent(ctx, main, ag, prompt)
	emitTaskResult(o.events, main, res)
	result.Artifacts = append(result.Artifacts, res.Artifacts...)
	result.Errors = append(result.Errors, res.Errors...)

	if res.Success {
		out, err := o.validateAndRefine(ctx, main, ag, res.Artifacts)
		result.Artifacts = append(result.Artifacts, out.artifacts...)
		result.Errors = append(result.Errors, out.errors...)
		result.SubTaskIDs = append(result.SubTaskIDs, out.taskIDs...)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", main.ID, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("orchestrate %s: %w", main.ID, err)
	}

	if _, err := o.finishRequirements(ctx, main.ID); err != nil {
		return nil, err
	}
	strictFail := o.strictCompletion && len(result.Errors) > 0
	if err := o.completeTask(ctx, main.ID, strictFail, strings.Join(result.Errors, "; ")); err != nil {
		return nil, err
	}

	result.Success = true
	return result, nil
}
