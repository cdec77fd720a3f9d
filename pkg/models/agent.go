package models

import (
	"strings"
	"time"
)

// Agent is a capability profile bound to inference calls.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id" yaml:"id"`
	// Name is the display name of the agent.
	Name string `json:"name" yaml:"name"`
	// Role is a short description of what the agent does.
	Role string `json:"role" yaml:"role"`
	// Instructions become the system prompt of the agent's inference calls.
	Instructions string `json:"instructions" yaml:"instructions"`
	// Tags are the skills the agent advertises.
	Tags []string `json:"tags,omitempty" yaml:"tags"`
	// CreatedAt is when the agent was registered.
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// HasTag reports whether the agent carries the tag, ignoring case.
func (a *Agent) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AgentSpec describes the capabilities a task needs from an agent.
type AgentSpec struct {
	Name           string   `json:"name" yaml:"name"`
	Role           string   `json:"role" yaml:"role"`
	RequiredSkills []string `json:"required_skills" yaml:"required_skills"`
	Instructions   string   `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// GenericAgentSpec is used when the analyzer suggests no agent.
func GenericAgentSpec() AgentSpec {
	return AgentSpec{
		Name:           "Generalist",
		Role:           "general-purpose assistant",
		RequiredSkills: []string{"general"},
	}
}
