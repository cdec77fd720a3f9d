package validation

import (
	"fmt"
	"strings"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// RetryConfig configures refinement after a failed review.
type RetryConfig struct {
	// MaxPasses is the number of refinement tasks allowed per task (default: 1).
	MaxPasses int
}

// DefaultRetryConfig returns the default refinement budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxPasses: 1}
}

// RetryHandler plans refinement tasks from failed verdicts.
type RetryHandler struct {
	config RetryConfig
}

// NewRetryHandler creates a retry handler. A non-positive budget is raised
// to one pass.
func NewRetryHandler(config RetryConfig) *RetryHandler {
	if config.MaxPasses < 1 {
		config.MaxPasses = 1
	}
	return &RetryHandler{config: config}
}

// MaxPasses returns the refinement budget.
func (h *RetryHandler) MaxPasses() int {
	return h.config.MaxPasses
}

// ShouldRetry reports whether another refinement may follow the given
// number of completed refinement passes.
func (h *RetryHandler) ShouldRetry(passes int) bool {
	return passes < h.config.MaxPasses
}

// RefinementTask builds the child task that reworks prev. It depends on and
// descends from prev, stays in the same workflow and carries over only the
// requirements prev has not satisfied.
func (h *RetryHandler) RefinementTask(prev *models.Task) *models.Task {
	var reqs []models.Requirement
	for _, r := range prev.UnsatisfiedRequirements() {
		r.Status = models.RequirementPending
		r.Evidence = ""
		reqs = append(reqs, r)
	}

	title := prev.Title
	if !strings.HasPrefix(title, "Refine: ") {
		title = "Refine: " + title
	}

	return &models.Task{
		WorkflowID:      prev.WorkflowID,
		Title:           title,
		Description:     prev.Description,
		Complexity:      models.ComplexitySimple,
		Status:          models.TaskStatusPending,
		Dependencies:    []string{prev.ID},
		Requirements:    reqs,
		ParentTaskID:    prev.ID,
		AssignedAgentID: prev.AssignedAgentID,
		EstimatedPasses: 1,
		Attachments:     prev.Attachments,
	}
}

// RefinementPrompt tells the agent what the reviewer found wrong. The
// reviewer's reason is included verbatim.
func (h *RetryHandler) RefinementPrompt(prev *models.Task, verdict Verdict, pass int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Refinement pass %d of %d for: %s\n\n", pass, h.config.MaxPasses, prev.Title)
	sb.WriteString("The previous attempt did not pass review.\n\n")
	sb.WriteString("Reviewer feedback:\n")
	sb.WriteString(verdict.Reason)
	sb.WriteString("\n\n")

	if unmet := prev.UnsatisfiedRequirements(); len(unmet) > 0 {
		sb.WriteString("Requirements still to satisfy:\n")
		for _, r := range unmet {
			fmt.Fprintf(&sb, "- %s\n", r.Description)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Produce a complete, corrected deliverable that addresses the feedback. ")
	sb.WriteString("Do not only describe the changes.\n")
	return sb.String()
}
