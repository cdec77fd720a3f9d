package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventOrchestrationStarted indicates a request was analyzed and a strategy chosen.
	EventOrchestrationStarted EventType = "orchestration_started"
	// EventTeamAssembled indicates agents were resolved for the request.
	EventTeamAssembled EventType = "team_assembled"
	// EventTaskStarted indicates a task has been dispatched to an agent.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task produced an artifact.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventValidationFailed indicates a review rejected a task's output.
	EventValidationFailed EventType = "validation_failed"
	// EventRefinementStarted indicates a refinement task was created.
	EventRefinementStarted EventType = "refinement_started"
	// EventOrchestrationDone indicates the request finished.
	EventOrchestrationDone EventType = "orchestration_done"
)

// OrchestratorEvent represents an event emitted by the orchestrator.
// The CLI renders these as progress lines.
type OrchestratorEvent struct {
	// Type is the kind of event.
	Type EventType
	// WorkflowID groups events of one orchestration.
	WorkflowID string
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// TaskTitle is the title of the related task, if applicable.
	TaskTitle string
	// ParentID is the ID of the parent task, if applicable.
	ParentID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
