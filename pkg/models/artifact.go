package models

import "time"

// ArtifactType classifies a produced deliverable.
type ArtifactType string

const (
	ArtifactCode     ArtifactType = "code"
	ArtifactAnalysis ArtifactType = "analysis"
	ArtifactDesign   ArtifactType = "design"
	ArtifactPlan     ArtifactType = "plan"
	ArtifactReport   ArtifactType = "report"
	ArtifactDocument ArtifactType = "document"
)

// ArtifactStatus is the lifecycle state of an artifact.
type ArtifactStatus string

const (
	ArtifactDraft ArtifactStatus = "draft"
	ArtifactFinal ArtifactStatus = "final"
)

// Artifact is a deliverable produced by one agent execution.
type Artifact struct {
	ID      string         `json:"id"`
	TaskID  string         `json:"task_id"`
	AgentID string         `json:"agent_id"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Type    ArtifactType   `json:"type"`
	Version int            `json:"version"`
	Status  ArtifactStatus `json:"status"`
	// Dependencies are artifact IDs this artifact builds upon.
	Dependencies []string `json:"dependencies,omitempty"`
	// Validates are the requirement IDs this artifact claims to satisfy.
	Validates []string  `json:"validates,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SharedContext is a short-lived finding published for later tasks.
type SharedContext struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	AgentID     string `json:"agent_id"`
	ContextType string `json:"context_type"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	// RelevantAgents restricts visibility; empty means every agent.
	RelevantAgents []string  `json:"relevant_agents,omitempty"`
	ExpiryDate     time.Time `json:"expiry_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the entry is no longer visible at now.
func (c *SharedContext) Expired(now time.Time) bool {
	return !c.ExpiryDate.IsZero() && !now.Before(c.ExpiryDate)
}

// VisibleTo reports whether the entry targets the given agent.
func (c *SharedContext) VisibleTo(agentID string) bool {
	if len(c.RelevantAgents) == 0 {
		return true
	}
	for _, id := range c.RelevantAgents {
		if id == agentID {
			return true
		}
	}
	return false
}
