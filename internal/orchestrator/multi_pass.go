package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codename-co/devs-sub002/internal/agent"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// runMultiPass breaks a complex request into subtasks, builds a team and
// runs the subtask graph through the scheduler.
func (o *Orchestrator) runMultiPass(ctx context.Context, prompt string, analysis *models.Analysis, existing *models.Task, workflowID string) (*models.OrchestrationResult, error) {
	breakdown, err := o.analyzer.Breakdown(ctx, prompt, analysis, workflowID)
	if err != nil {
		return nil, fmt.Errorf("break down prompt: %w", err)
	}
	if breakdown == nil {
		breakdown = &models.Breakdown{}
	}

	main, err := o.adoptOrCreateMain(ctx, prompt, analysis, existing, breakdown.MainTask, workflowID)
	if err != nil {
		return nil, err
	}
	result := &models.OrchestrationResult{WorkflowID: workflowID, MainTaskID: main.ID}

	subtasks := breakdown.SubTasks
	if len(subtasks) == 0 {
		o.logger.Log("breakdown of %s produced no subtasks, running it as one", main.ID)
		subtasks = []*models.Task{{
			Title:        main.Title,
			Description:  prompt,
			Requirements: main.UnsatisfiedRequirements(),
			Attachments:  main.Attachments,
		}}
	}
	for _, st := range subtasks {
		st.WorkflowID = workflowID
		st.ParentTaskID = main.ID
		st.Status = models.TaskStatusPending
		if st.Complexity == "" {
			st.Complexity = models.ComplexitySimple
		}
		if err := o.tasks.CreateTask(ctx, st); err != nil {
			o.failTask(ctx, main, err)
			return nil, fmt.Errorf("create subtask %q: %w", st.Title, err)
		}
		result.SubTaskIDs = append(result.SubTaskIDs, st.ID)
	}

	specs := analysis.SuggestedAgentSpecs
	if len(specs) == 0 {
		specs = []models.AgentSpec{models.GenericAgentSpec()}
	}
	members, err := o.team.BuildTeam(ctx, specs)
	if err != nil {
		o.failTask(ctx, main, err)
		return nil, fmt.Errorf("build team: %w", err)
	}
	o.events.Emit(OrchestratorEvent{
		Type:       EventTeamAssembled,
		WorkflowID: workflowID,
		TaskID:     main.ID,
		Message:    teamNames(members),
	})

	results, err := o.scheduler.CoordinateTeamExecution(ctx, subtasks, members)
	if err != nil {
		o.failTask(ctx, main, err)
		return nil, err
	}

	byID := make(map[string]*models.Task, len(subtasks))
	for _, st := range subtasks {
		byID[st.ID] = st
	}

	outcomes := make([]*refineOutcome, len(results))
	var eg errgroup.Group
	for i, res := range results {
		result.Artifacts = append(result.Artifacts, res.Artifacts...)
		result.Errors = append(result.Errors, res.Errors...)
		if !res.Success {
			continue
		}
		task := byID[res.TaskID]
		ag := memberFor(members, task.AssignedAgentID)
		eg.Go(func() error {
			out, err := o.validateAndRefine(ctx, task, ag, res.Artifacts)
			outcomes[i] = out
			if err != nil {
				return fmt.Errorf("validate %s: %w", task.ID, err)
			}
			return nil
		})
	}
	verr := eg.Wait()
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		result.Artifacts = append(result.Artifacts, out.artifacts...)
		result.Errors = append(result.Errors, out.errors...)
		result.SubTaskIDs = append(result.SubTaskIDs, out.taskIDs...)
	}
	if verr != nil {
		return nil, verr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("orchestrate %s: %w", main.ID, err)
	}

	for _, st := range subtasks {
		if _, err := o.finishRequirements(ctx, st.ID); err != nil {
			return nil, err
		}
	}
	if err := o.rollUpRequirements(ctx, main.ID, result.Artifacts); err != nil {
		return nil, err
	}
	if _, err := o.finishRequirements(ctx, main.ID); err != nil {
		return nil, err
	}

	for _, res := range results {
		if !res.Success {
			continue
		}
		if err := o.completeTask(ctx, res.TaskID, false, ""); err != nil {
			return nil, err
		}
	}
	strictFail := o.strictCompletion && len(result.Errors) > 0
	if err := o.completeTask(ctx, main.ID, strictFail, strings.Join(result.Errors, "; ")); err != nil {
		return nil, err
	}

	result.Success = true
	return result, nil
}

// rollUpRequirements marks main task requirements satisfied when the
// combined subtask output covers them. The main task produces no artifact of
// its own, so its requirements are judged against the whole workflow.
func (o *Orchestrator) rollUpRequirements(ctx context.Context, mainID string, artifacts []*models.Artifact) error {
	main, err := o.tasks.GetTask(ctx, mainID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", mainID, err)
	}
	if main == nil || len(artifacts) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, a := range artifacts {
		sb.WriteString(a.Content)
		sb.WriteString("\n")
	}
	for _, id := range agent.CoveredRequirements(main.UnsatisfiedRequirements(), sb.String()) {
		evidence := fmt.Sprintf("covered by %d subtask artifacts", len(artifacts))
		if err := o.tasks.MarkRequirementSatisfied(ctx, mainID, id, evidence); err != nil {
			return err
		}
	}
	return nil
}

// memberFor returns the team member with id, or the first member.
func memberFor(members []*models.Agent, id string) *models.Agent {
	for _, m := range members {
		if m.ID == id {
			return m
		}
	}
	return members[0]
}

func teamNames(members []*models.Agent) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}
