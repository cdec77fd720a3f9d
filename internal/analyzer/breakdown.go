package analyzer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/codename-co/devs-sub002/internal/extract"
	"github.com/codename-co/devs-sub002/internal/graph"
	"github.com/codename-co/devs-sub002/pkg/models"
)

// maxTitleRunes bounds generated subtask titles.
const maxTitleRunes = 80

const breakdownSystem = `You are a planning assistant. You split work requests into subtasks for a team of agents. Reply with JSON only.`

const breakdownPrompt = `Break this work request into subtasks. Each subtask should be sized for a single agent to complete.

Request:
%s
%s
Respond with a JSON object in this exact format:
{
  "main_task": {"title": "Short title for the whole request", "description": "What the finished work is"},
  "subtasks": [
    {
      "title": "Short subtask title",
      "description": "Detailed subtask description",
      "depends_on": ["title of dependency 1", "title of dependency 2"],
      "acceptance_criteria": "Criteria to verify this subtask is complete"
    }
  ]
}

Guidelines:
- Subtasks should be as independent as possible to allow parallel execution
- Only add dependencies when one subtask needs the output of another
- Subtask titles must be unique
- Use empty array [] for depends_on if there are no dependencies`

type breakdownJSON struct {
	MainTask *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"main_task"`
	Subtasks []struct {
		Title              string   `json:"title"`
		Description        string   `json:"description"`
		DependsOn          []string `json:"depends_on"`
		AcceptanceCriteria string   `json:"acceptance_criteria"`
	} `json:"subtasks"`
}

var (
	errNoSubtasks     = errors.New("no subtasks")
	errDuplicateTitle = errors.New("duplicate subtask title")
	errUnknownTitle   = errors.New("unknown dependency title")
)

// Breakdown splits prompt into a main task and dependent subtasks. Subtasks
// carry fresh IDs so their dependencies can reference each other before they
// are stored. It only returns an error when ctx is done.
func (a *Analyzer) Breakdown(ctx context.Context, prompt string, analysis *models.Analysis, workflowID string) (*models.Breakdown, error) {
	if a.inference == nil {
		return a.heuristic.Breakdown(prompt, workflowID), nil
	}

	reply, err := a.inference.Generate(ctx, breakdownSystem, fmt.Sprintf(breakdownPrompt, prompt, requirementHint(analysis)), nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("break down prompt: %w", ctxErr)
		}
		a.logger.Log("breakdown inference failed, using heuristics: %v", err)
		return a.heuristic.Breakdown(prompt, workflowID), nil
	}

	b, err := parseBreakdown(reply, workflowID)
	if err != nil {
		a.logger.Log("breakdown reply unusable, using heuristics: %v (%s)", err, extract.Truncate(reply, 200))
		return a.heuristic.Breakdown(prompt, workflowID), nil
	}
	a.logger.Log("breakdown: %d subtasks", len(b.SubTasks))
	return b, nil
}

// requirementHint lists the analysis requirements for the breakdown prompt.
func requirementHint(analysis *models.Analysis) string {
	if analysis == nil || len(analysis.Requirements) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nThe finished work must meet these requirements:\n")
	for _, r := range analysis.Requirements {
		fmt.Fprintf(&sb, "- %s\n", r.Description)
	}
	return sb.String()
}

// parseBreakdown decodes a breakdown reply, resolving dependency titles to
// subtask IDs. The result is rejected when the dependencies form a cycle.
func parseBreakdown(reply, workflowID string) (*models.Breakdown, error) {
	var raw breakdownJSON
	if err := extract.Decode(reply, &raw); err != nil {
		return nil, err
	}
	if len(raw.Subtasks) == 0 {
		return nil, errNoSubtasks
	}

	b := &models.Breakdown{}
	if raw.MainTask != nil && strings.TrimSpace(raw.MainTask.Title) != "" {
		b.MainTask = &models.Task{
			Title:       strings.TrimSpace(raw.MainTask.Title),
			Description: strings.TrimSpace(raw.MainTask.Description),
		}
	}

	titleToID := make(map[string]string, len(raw.Subtasks))
	for _, st := range raw.Subtasks {
		title := strings.TrimSpace(st.Title)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, dup := titleToID[key]; dup {
			return nil, fmt.Errorf("%w %q", errDuplicateTitle, title)
		}
		task := newSubtask(workflowID, title, st.Description)
		if c := strings.TrimSpace(st.AcceptanceCriteria); c != "" {
			task.Requirements = []models.Requirement{{
				Type:        "acceptance",
				Description: c,
				Priority:    "high",
				Status:      models.RequirementPending,
			}}
		}
		titleToID[key] = task.ID
		b.SubTasks = append(b.SubTasks, task)
	}
	if len(b.SubTasks) == 0 {
		return nil, errNoSubtasks
	}

	i := 0
	for _, st := range raw.Subtasks {
		if strings.TrimSpace(st.Title) == "" {
			continue
		}
		for _, dep := range st.DependsOn {
			id, ok := titleToID[strings.ToLower(strings.TrimSpace(dep))]
			if !ok {
				return nil, fmt.Errorf("%w %q for %q", errUnknownTitle, dep, st.Title)
			}
			b.SubTasks[i].Dependencies = append(b.SubTasks[i].Dependencies, id)
		}
		i++
	}

	if _, err := graph.Build(b.SubTasks); err != nil {
		return nil, err
	}
	return b, nil
}

var (
	listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	sequencer  = regexp.MustCompile(`(?i)^(?:and\s+)?(then|after that|afterwards|after|finally|next)\b[\s,:]*`)
)

// listItems returns the bulleted or numbered lines of text, without markers.
func listItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if !listMarker.MatchString(line) {
			continue
		}
		if item := strings.TrimSpace(listMarker.ReplaceAllString(line, "")); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Breakdown splits the enumerated items of request into subtasks. An item
// opening with "then", "after" or "finally" depends on the item before it.
// Without at least two items the request stays one subtask.
func (h *Heuristic) Breakdown(request, workflowID string) *models.Breakdown {
	items := listItems(request)
	if len(items) < 2 {
		return &models.Breakdown{SubTasks: []*models.Task{
			h.subtask(workflowID, request),
		}}
	}

	b := &models.Breakdown{}
	var prev *models.Task
	for _, item := range items {
		task := h.subtask(workflowID, item)
		if prev != nil && sequencer.MatchString(item) {
			task.Dependencies = []string{prev.ID}
		}
		b.SubTasks = append(b.SubTasks, task)
		prev = task
	}
	return b
}

func (h *Heuristic) subtask(workflowID, text string) *models.Task {
	task := newSubtask(workflowID, subtaskTitle(text), text)
	task.Requirements = h.Requirements(text)
	return task
}

func newSubtask(workflowID, title, description string) *models.Task {
	description = strings.TrimSpace(description)
	if description == "" {
		description = title
	}
	return &models.Task{
		ID:              uuid.NewString(),
		WorkflowID:      workflowID,
		Title:           title,
		Description:     description,
		Complexity:      models.ComplexitySimple,
		Status:          models.TaskStatusPending,
		EstimatedPasses: 1,
	}
}

// subtaskTitle derives a title from the first line of text, without a
// leading sequencing word or trailing punctuation.
func subtaskTitle(text string) string {
	title := strings.TrimSpace(text)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(sequencer.ReplaceAllString(title, ""))
	title = strings.TrimRight(title, ".;:!, ")
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes-3]) + "..."
	}
	if title == "" {
		return "Untitled subtask"
	}
	r := []rune(title)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
