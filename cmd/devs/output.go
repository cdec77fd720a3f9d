package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"

	"github.com/codename-co/devs-sub002/internal/orchestrator"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// previewRunes bounds artifact content printed without --full.
const previewRunes = 600

var (
	labelColor = map[orchestrator.EventType]*color.Color{
		orchestrator.EventOrchestrationStarted: color.New(color.FgCyan, color.Bold),
		orchestrator.EventTeamAssembled:        color.New(color.FgCyan),
		orchestrator.EventTaskStarted:          color.New(color.FgBlue),
		orchestrator.EventTaskCompleted:        color.New(color.FgGreen),
		orchestrator.EventTaskFailed:           color.New(color.FgRed, color.Bold),
		orchestrator.EventValidationFailed:     color.New(color.FgYellow),
		orchestrator.EventRefinementStarted:    color.New(color.FgMagenta),
		orchestrator.EventOrchestrationDone:    color.New(color.FgGreen, color.Bold),
	}
	labelText = map[orchestrator.EventType]string{
		orchestrator.EventOrchestrationStarted: "START",
		orchestrator.EventTeamAssembled:        "TEAM",
		orchestrator.EventTaskStarted:          "STARTED",
		orchestrator.EventTaskCompleted:        "DONE",
		orchestrator.EventTaskFailed:           "FAILED",
		orchestrator.EventValidationFailed:     "REVIEW",
		orchestrator.EventRefinementStarted:    "REFINE",
		orchestrator.EventOrchestrationDone:    "FINISHED",
	}
	unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// consumeEvents prints progress events until the channel is closed.
func consumeEvents(w io.Writer, events <-chan orchestrator.OrchestratorEvent) {
	for event := range events {
		fmt.Fprintln(w, formatEvent(event))
	}
}

// formatEvent renders one progress line.
func formatEvent(event orchestrator.OrchestratorEvent) string {
	label, ok := labelText[event.Type]
	if !ok {
		label = strings.ToUpper(string(event.Type))
	}
	if c, ok := labelColor[event.Type]; ok {
		label = c.Sprint(label)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", label)

	switch event.Type {
	case orchestrator.EventOrchestrationStarted:
		fmt.Fprintf(&sb, " %s request", event.Message)
		if event.TaskTitle != "" {
			fmt.Fprintf(&sb, ": %s", event.TaskTitle)
		}
	case orchestrator.EventTeamAssembled:
		fmt.Fprintf(&sb, " %s", event.Message)
	default:
		if event.TaskTitle != "" {
			fmt.Fprintf(&sb, " %s", event.TaskTitle)
		} else if event.TaskID != "" {
			fmt.Fprintf(&sb, " %s", shortID(event.TaskID))
		}
		if event.AgentID != "" && event.Type == orchestrator.EventTaskStarted {
			fmt.Fprintf(&sb, " (agent: %s)", event.AgentID)
		}
		if event.Message != "" {
			fmt.Fprintf(&sb, ": %s", event.Message)
		}
	}
	if event.Error != nil {
		fmt.Fprintf(&sb, ": %v", event.Error)
	}
	return sb.String()
}

// printResult prints the artifacts and errors of a run.
func printResult(w io.Writer, result *models.OrchestrationResult, full bool) {
	bold := color.New(color.Bold)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Task:"), result.MainTaskID)
	if len(result.SubTaskIDs) > 0 {
		fmt.Fprintf(w, "%s %d\n", bold.Sprint("Subtasks:"), len(result.SubTaskIDs))
	}

	if len(result.Artifacts) == 0 {
		fmt.Fprintln(w, color.YellowString("No artifacts were produced."))
	}
	for _, a := range result.Artifacts {
		fmt.Fprintf(w, "\n%s %s\n\n", color.GreenString("■"), bold.Sprintf("%s (%s, v%d)", a.Title, a.Type, a.Version))
		content := a.Content
		if r := []rune(content); !full && len(r) > previewRunes {
			content = string(r[:previewRunes]) + color.HiBlackString("\n[... use --full or --output to see everything]")
		}
		fmt.Fprintln(w, content)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.RedString("Errors (%d):", len(result.Errors)))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}

// writeArtifactFiles writes each artifact to dir as markdown and returns
// the written paths.
func writeArtifactFiles(dir string, artifacts []*models.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	used := make(map[string]int)
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		name := artifactFileName(a)
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		path := filepath.Join(dir, name+".md")
		if err := os.WriteFile(path, []byte(a.Content), 0644); err != nil {
			return paths, fmt.Errorf("write artifact %s: %w", a.ID, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// artifactFileName is a filesystem-safe slug of the artifact title.
func artifactFileName(a *models.Artifact) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(a.Title), "-"), "-")
	if r := []rune(slug); len(r) > 60 {
		slug = strings.TrimRight(string(r[:60]), "-")
	}
	if slug == "" {
		slug = "artifact"
	}
	if a.Version > 1 {
		slug = fmt.Sprintf("%s-v%d", slug, a.Version)
	}
	return slug
}

// shortID shortens a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
