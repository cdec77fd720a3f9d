package models

// ExecutionResult contains the outcome of a single task execution.
// It is transient and only folded into task and artifact state.
type ExecutionResult struct {
	Success   bool             `json:"success"`
	TaskID    string           `json:"task_id"`
	AgentID   string           `json:"agent_id"`
	Artifacts []*Artifact      `json:"artifacts,omitempty"`
	Contexts  []*SharedContext `json:"contexts,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

// Analysis is the prompt analyzer's view of a work request.
type Analysis struct {
	Complexity          Complexity    `json:"complexity"`
	Requirements        []Requirement `json:"requirements"`
	SuggestedAgentSpecs []AgentSpec   `json:"suggested_agent_specs"`
	EstimatedPasses     int           `json:"estimated_passes"`
}

// Breakdown is a main task with its dependent subtasks.
type Breakdown struct {
	MainTask *Task   `json:"main_task"`
	SubTasks []*Task `json:"sub_tasks"`
}

// OrchestrationResult is the return value of an orchestration run.
type OrchestrationResult struct {
	// Success reports whether the orchestrator completed its control flow.
	// Individual subtask failures are listed in Errors.
	Success    bool        `json:"success"`
	WorkflowID string      `json:"workflow_id"`
	MainTaskID string      `json:"main_task_id"`
	SubTaskIDs []string    `json:"sub_task_ids,omitempty"`
	Artifacts  []*Artifact `json:"artifacts,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
}
