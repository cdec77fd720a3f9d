package agent

import (
	"fmt"
	"strings"

	"github.com/codename-co/devs-sub002/internal/extract"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// contextExcerpt bounds each shared context entry injected into a prompt.
const contextExcerpt = 800

// systemPrompt combines the agent's standing instructions with the task goal.
func systemPrompt(agent *models.Agent, task *models.Task) string {
	var sb strings.Builder

	if agent.Instructions != "" {
		sb.WriteString(agent.Instructions)
	} else {
		fmt.Fprintf(&sb, "You are %s, a %s.", agent.Name, agent.Role)
	}

	sb.WriteString("\n\n## Current Goal\n\n")
	sb.WriteString(task.Title)
	sb.WriteString("\n")
	if task.Description != "" && task.Description != task.Title {
		sb.WriteString("\n")
		sb.WriteString(task.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\nProduce the complete deliverable in your answer. Do not describe what you would do; do it.\n")

	return sb.String()
}

// buildPrompt enriches the pass instruction with shared context, an
// attachment summary and the acceptance requirements.
func buildPrompt(prompt string, related []*models.SharedContext, task *models.Task) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n")

	if len(related) > 0 {
		sb.WriteString("\n## Relevant context\n\n")
		sb.WriteString("Other agents recorded the following while working on this request:\n\n")
		for _, c := range related {
			fmt.Fprintf(&sb, "### %s\n%s\n\n", c.Title, extract.Truncate(c.Content, contextExcerpt))
		}
	}

	if len(task.Attachments) > 0 {
		sb.WriteString("\n## Attachments\n\n")
		for _, a := range task.Attachments {
			fmt.Fprintf(&sb, "- %s (%s, %d bytes)\n", a.Name, a.MediaType, len(a.Data))
		}
	}

	if len(task.Requirements) > 0 {
		sb.WriteString("\n## Requirements\n\n")
		sb.WriteString("Your answer must satisfy each of these:\n\n")
		for _, r := range task.Requirements {
			if r.Priority != "" {
				fmt.Fprintf(&sb, "- [%s] %s\n", r.Priority, r.Description)
			} else {
				fmt.Fprintf(&sb, "- %s\n", r.Description)
			}
		}
	}

	return sb.String()
}
