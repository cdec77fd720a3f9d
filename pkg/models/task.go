package models

import (
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is assigned and being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task finished.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Complexity is the analyzer's classification of a work request.
type Complexity string

const (
	// ComplexitySimple requests run through a single execution pass.
	ComplexitySimple Complexity = "simple"
	// ComplexityComplex requests are broken down into a subtask graph.
	ComplexityComplex Complexity = "complex"
)

// RequirementStatus represents the satisfaction state of a requirement.
type RequirementStatus string

const (
	RequirementPending   RequirementStatus = "pending"
	RequirementSatisfied RequirementStatus = "satisfied"
	RequirementFailed    RequirementStatus = "failed"
)

// Requirement is an individual acceptance criterion attached to a task.
type Requirement struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Priority    string            `json:"priority"`
	Status      RequirementStatus `json:"status"`
	DetectedAt  time.Time         `json:"detected_at"`
	Evidence    string            `json:"evidence,omitempty"`
}

// Attachment is a file supplied with a task.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Data      []byte `json:"data"`
}

// IsText reports whether the attachment can be inlined as text.
func (a Attachment) IsText() bool {
	mt := strings.ToLower(a.MediaType)
	return strings.HasPrefix(mt, "text/") ||
		mt == "application/json" ||
		mt == "application/yaml" ||
		mt == "application/xml"
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.MediaType), "image/")
}

// Task represents a unit of work in the system.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// WorkflowID groups a main task with its subtasks and refinements.
	WorkflowID string `json:"workflow_id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Complexity is the strategy classification of the task.
	Complexity Complexity `json:"complexity"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Dependencies lists task IDs that must execute before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// Requirements are the acceptance criteria for the task.
	Requirements []Requirement `json:"requirements,omitempty"`
	// Artifacts lists the IDs of artifacts produced for this task.
	Artifacts []string `json:"artifacts,omitempty"`
	// ParentTaskID is the ID of the main task or the refined task, if any.
	ParentTaskID string `json:"parent_task_id,omitempty"`
	// AssignedAgentID is the ID of the agent working on this task.
	AssignedAgentID string `json:"assigned_agent_id,omitempty"`
	// EstimatedPasses is the analyzer's estimate of execution passes.
	EstimatedPasses int `json:"estimated_passes"`
	// ActualPasses counts the executions performed for this task.
	ActualPasses int `json:"actual_passes"`
	// DueDate is when the task is expected to finish.
	DueDate *time.Time `json:"due_date,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task was completed, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Attachments are files supplied with the task.
	Attachments []Attachment `json:"attachments,omitempty"`
	// Error contains the error message if the last execution failed.
	Error string `json:"error,omitempty"`
}

// UnsatisfiedRequirements returns copies of the requirements not yet satisfied.
func (t *Task) UnsatisfiedRequirements() []Requirement {
	var out []Requirement
	for _, r := range t.Requirements {
		if r.Status != RequirementSatisfied {
			out = append(out, r)
		}
	}
	return out
}

// MergeRequirements appends requirements whose description is not already
// present on the task. Existing requirements are never replaced.
func (t *Task) MergeRequirements(reqs []Requirement) int {
	seen := make(map[string]bool, len(t.Requirements))
	for _, r := range t.Requirements {
		seen[normalizeDescription(r.Description)] = true
	}
	added := 0
	for _, r := range reqs {
		key := normalizeDescription(r.Description)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		t.Requirements = append(t.Requirements, r)
		added++
	}
	return added
}

// HasArtifact reports whether the artifact id is already recorded.
func (t *Task) HasArtifact(id string) bool {
	for _, a := range t.Artifacts {
		if a == id {
			return true
		}
	}
	return false
}

// MarkCompleted sets the completed status and timestamp.
func (t *Task) MarkCompleted(now time.Time) {
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
}

func normalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// SatisfactionRate returns the percentage of satisfied requirements.
// It is 0 when there are no requirements.
func SatisfactionRate(reqs []Requirement) float64 {
	if len(reqs) == 0 {
		return 0
	}
	satisfied := 0
	for _, r := range reqs {
		if r.Status == RequirementSatisfied {
			satisfied++
		}
	}
	return float64(satisfied) / float64(len(reqs)) * 100
}

// RequirementResult is the outcome of checking one requirement.
type RequirementResult struct {
	ID       string            `json:"id"`
	Status   RequirementStatus `json:"status"`
	Evidence string            `json:"evidence,omitempty"`
}

// RequirementReport summarizes a requirement-level validation pass.
type RequirementReport struct {
	SatisfactionRate float64             `json:"satisfaction_rate"`
	Results          []RequirementResult `json:"results"`
}
