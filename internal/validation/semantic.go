package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// previewRunes bounds each artifact shown to the validator.
const previewRunes = 600

// Preview returns the first 600 runes of content.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	return string([]rune(content)[:previewRunes]) + "..."
}

func buildValidationPrompt(task *models.Task, artifacts []*models.Artifact) string {
	var sb strings.Builder

	sb.WriteString("# Task Validation\n\n")
	sb.WriteString("Decide whether the work produced for this task satisfies its requirements.\n\n")

	sb.WriteString("## Task\n\n")
	fmt.Fprintf(&sb, "**Title**: %s\n\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&sb, "**Description**:\n%s\n\n", task.Description)
	}

	sb.WriteString("## Requirements\n\n")
	if len(task.Requirements) == 0 {
		sb.WriteString("No explicit requirements. Judge whether the task goal is met.\n")
	}
	for _, r := range task.Requirements {
		fmt.Fprintf(&sb, "- %s\n", r.Description)
	}
	sb.WriteString("\n")

	sb.WriteString("## Artifacts\n\n")
	if len(artifacts) == 0 {
		sb.WriteString("No artifacts were produced.\n\n")
	}
	for _, a := range artifacts {
		fmt.Fprintf(&sb, "### %s (%s, v%d)\n```\n%s\n```\n\n", a.Title, a.Type, a.Version, Preview(a.Content))
	}

	sb.WriteString("## Your Answer\n\n")
	sb.WriteString("Respond with a single JSON object:\n")
	sb.WriteString("{\"validation_passed\": true|false, \"reason\": \"what is missing or why it passes\"}\n\n")
	sb.WriteString("Fail the task only for concrete gaps against the requirements. ")
	sb.WriteString("When failing, the reason is handed to the agent that refines the work, so make it actionable.\n")

	return sb.String()
}
