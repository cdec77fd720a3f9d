package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codename-co/devs-sub002/internal/state"
	"github.com/codename-co/devs-sub002/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show recent requests or one task in detail",
	Long: `Display the state of stored tasks.

Without arguments, lists the most recent requests.
With a task ID, shows the task's requirements, subtasks and artifacts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 20, "Number of requests to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.Storage.DBPath); os.IsNotExist(err) {
		fmt.Println("No requests yet. Run 'devs run <prompt>' to start.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := state.OpenAndMigrate(ctx, cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if len(args) == 0 {
		return listRequests(ctx, os.Stdout, db, statusLimit)
	}
	return showTask(ctx, os.Stdout, db, args[0])
}

// listRequests prints the most recent main tasks.
func listRequests(ctx context.Context, w io.Writer, db *state.DB, limit int) error {
	tasks, err := db.ListRootTasks(ctx, limit)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No requests yet. Run 'devs run <prompt>' to start.")
		return nil
	}

	fmt.Fprintln(w, color.New(color.Bold).Sprint("Recent requests"))
	for _, t := range tasks {
		fmt.Fprintf(w, "  %s  %-11s  %-7s  %s  %s\n",
			shortID(t.ID),
			statusLabel(t.Status),
			t.Complexity,
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			t.Title,
		)
	}
	return nil
}

// showTask prints one task with its requirements, subtasks and artifacts.
func showTask(ctx context.Context, w io.Writer, db *state.DB, id string) error {
	task, err := db.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return fmt.Errorf("task %s not found", id)
	}
	children, err := db.ListTasksByParent(ctx, id)
	if err != nil {
		return fmt.Errorf("list subtasks: %w", err)
	}
	artifacts, err := db.ListArtifactsByTask(ctx, id)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}

	bold := color.New(color.Bold)
	fmt.Fprintln(w, bold.Sprint(task.Title))
	fmt.Fprintf(w, "  ID:         %s\n", task.ID)
	fmt.Fprintf(w, "  Status:     %s\n", statusLabel(task.Status))
	fmt.Fprintf(w, "  Complexity: %s\n", task.Complexity)
	if task.ParentTaskID != "" {
		fmt.Fprintf(w, "  Parent:     %s\n", task.ParentTaskID)
	}
	if task.AssignedAgentID != "" {
		fmt.Fprintf(w, "  Agent:      %s\n", task.AssignedAgentID)
	}
	fmt.Fprintf(w, "  Passes:     %d/%d\n", task.ActualPasses, task.EstimatedPasses)
	fmt.Fprintf(w, "  Created:    %s\n", task.CreatedAt.Local().Format(time.RFC1123))
	if task.CompletedAt != nil {
		fmt.Fprintf(w, "  Completed:  %s\n", task.CompletedAt.Local().Format(time.RFC1123))
	}
	if task.Error != "" {
		fmt.Fprintf(w, "  Error:      %s\n", color.RedString(task.Error))
	}

	if len(task.Requirements) > 0 {
		fmt.Fprintf(w, "\n%s (%.0f%% satisfied)\n", bold.Sprint("Requirements"), models.SatisfactionRate(task.Requirements))
		for _, r := range task.Requirements {
			fmt.Fprintf(w, "  %s %s\n", requirementMark(r.Status), r.Description)
		}
	}

	if len(children) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold.Sprint("Subtasks"))
		for _, c := range children {
			fmt.Fprintf(w, "  %s  %-11s  %s\n", shortID(c.ID), statusLabel(c.Status), c.Title)
		}
	}

	if len(artifacts) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold.Sprint("Artifacts"))
		for _, a := range artifacts {
			fmt.Fprintf(w, "  %s  %s (%s, v%d, %s)\n", shortID(a.ID), a.Title, a.Type, a.Version, a.Status)
		}
	}
	return nil
}

// statusLabel colors a task status.
func statusLabel(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusCompleted:
		return color.GreenString(string(s))
	case models.TaskStatusFailed:
		return color.RedString(string(s))
	case models.TaskStatusInProgress:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

func requirementMark(s models.RequirementStatus) string {
	switch s {
	case models.RequirementSatisfied:
		return color.GreenString("✓")
	case models.RequirementFailed:
		return color.RedString("✗")
	default:
		return "○"
	}
}
