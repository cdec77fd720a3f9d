package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/codename-co/devs-sub002/internal/graph"
	"github.com/codename-co/devs-sub002/internal/logging"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// Scheduler runs a task graph in dependency-ordered batches.
type Scheduler struct {
	// executor runs each task.
	executor TaskExecutor
	// maxParallel caps a batch; zero leaves the team size as the cap.
	maxParallel int
	logger      *logging.DebugLogger
	events      *EventEmitter
}

// NewScheduler creates a scheduler dispatching to executor.
func NewScheduler(executor TaskExecutor, maxParallel int) *Scheduler {
	return &Scheduler{
		executor:    executor,
		maxParallel: maxParallel,
		logger:      logging.NopLogger(),
	}
}

// SetLogger sets the debug logger.
func (s *Scheduler) SetLogger(l *logging.DebugLogger) {
	s.logger = l.With("scheduler")
}

// SetEventEmitter sets the emitter for task events.
func (s *Scheduler) SetEventEmitter(e *EventEmitter) {
	s.events = e
}

// CoordinateTeamExecution executes tasks so that every task runs after all
// of its dependencies. Each round takes the ready tasks in input order, caps
// them at the team size and maxParallel, assigns team members round-robin and
// runs the batch concurrently. Results are returned in dispatch order.
//
// A failed task still counts as executed, so its dependents run. If tasks
// remain but none is ready, ErrCircularDependency is returned with the IDs of
// the unresolved tasks. Cancellation is checked between batches.
func (s *Scheduler) CoordinateTeamExecution(ctx context.Context, tasks []*models.Task, team []*models.Agent) ([]*models.ExecutionResult, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	if len(team) == 0 {
		return nil, ErrEmptyTeam
	}

	g := graph.New(tasks)
	g.SetDebugLog(s.logger.Log)
	executed := make(map[string]bool, len(tasks))
	results := make([]*models.ExecutionResult, 0, len(tasks))

	for len(executed) < g.Size() {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("scheduler stopped: %w", err)
		}

		ready := g.Ready(executed)
		if len(ready) == 0 {
			pending := g.Pending(executed)
			return results, fmt.Errorf("%w: unresolved tasks %v", ErrCircularDependency, pending)
		}

		batch := ready[:min(len(ready), s.batchLimit(len(team)))]
		s.logger.Log("dispatching batch of %d (%d ready, %d/%d executed)", len(batch), len(ready), len(executed), g.Size())

		batchResults := make([]*models.ExecutionResult, len(batch))
		var eg errgroup.Group
		for i, task := range batch {
			agent := team[i%len(team)]
			eg.Go(func() error {
				s.events.Emit(OrchestratorEvent{
					Type:       EventTaskStarted,
					WorkflowID: task.WorkflowID,
					TaskID:     task.ID,
					TaskTitle:  task.Title,
					ParentID:   task.ParentTaskID,
					AgentID:    agent.ID,
				})
				res := s.executor.ExecuteWithAgent(ctx, task, agent, TaskPrompt(task))
				emitTaskResult(s.events, task, res)
				batchResults[i] = res
				return nil
			})
		}
		_ = eg.Wait()

		for i, task := range batch {
			executed[task.ID] = true
			results = append(results, batchResults[i])
		}
	}
	return results, nil
}

func (s *Scheduler) batchLimit(teamSize int) int {
	if s.maxParallel > 0 && s.maxParallel < teamSize {
		return s.maxParallel
	}
	return teamSize
}

// emitTaskResult reports a finished execution to events.
func emitTaskResult(events *EventEmitter, task *models.Task, res *models.ExecutionResult) {
	ev := OrchestratorEvent{
		Type:       EventTaskCompleted,
		WorkflowID: task.WorkflowID,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		ParentID:   task.ParentTaskID,
		AgentID:    res.AgentID,
	}
	if !res.Success {
		ev.Type = EventTaskFailed
		ev.Message = firstError(res.Errors)
	}
	events.Emit(ev)
}

// TaskPrompt is the instruction given to an agent for a subtask.
func TaskPrompt(task *models.Task) string {
	if task.Description == "" || task.Description == task.Title {
		return task.Title
	}
	return task.Title + "\n\n" + task.Description
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0]
}
