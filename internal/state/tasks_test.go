package state

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/codename-co/devs-sub002/pkg/models"
)

func TestCreateAndGetTask(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	task := &models.Task{
		WorkflowID:   "wf-1",
		Title:        "Write report",
		Description:  "Quarterly numbers",
		Complexity:   models.ComplexityComplex,
		Dependencies: []string{"dep-1"},
		DueDate:      &due,
		Attachments:  []models.Attachment{{Name: "a.txt", MediaType: "text/plain", Data: []byte("hello")}},
		Requirements: []models.Requirement{
			{Description: "include a summary", Priority: "high"},
			{ID: "r-2", Description: "cite sources"},
		},
	}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.ID == "" || task.Status != models.TaskStatusPending {
		t.Fatalf("defaults not applied: id=%q status=%q", task.ID, task.Status)
	}
	if task.Requirements[0].ID == "" {
		t.Error("requirement ID should be assigned")
	}

	got, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != task.Title || got.WorkflowID != "wf-1" || got.Complexity != models.ComplexityComplex {
		t.Errorf("unexpected task: %+v", got)
	}
	if !reflect.DeepEqual(got.Dependencies, []string{"dep-1"}) {
		t.Errorf("Dependencies = %v", got.Dependencies)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if len(got.Attachments) != 1 || string(got.Attachments[0].Data) != "hello" {
		t.Errorf("Attachments = %+v", got.Attachments)
	}
	if len(got.Requirements) != 2 || got.Requirements[1].ID != "r-2" {
		t.Fatalf("Requirements = %+v", got.Requirements)
	}
	if got.Requirements[0].Status != models.RequirementPending {
		t.Errorf("requirement status = %q, want pending", got.Requirements[0].Status)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestUpdateTask_ReplacesRequirements(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.Task{Title: "t", Requirements: []models.Requirement{{ID: "r1", Description: "first"}}}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	now := time.Now()
	task.Status = models.TaskStatusInProgress
	task.AssignedAgentID = "agent-1"
	task.Artifacts = []string{"art-1"}
	task.ActualPasses = 2
	task.Error = "boom"
	task.CompletedAt = &now
	task.Requirements = append(task.Requirements, models.Requirement{ID: "r2", Description: "second"})
	if err := db.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	got, _ := db.GetTask(ctx, task.ID)
	if got.Status != models.TaskStatusInProgress || got.AssignedAgentID != "agent-1" || got.ActualPasses != 2 {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.Error != "boom" || got.CompletedAt == nil {
		t.Errorf("error/completed_at not persisted: %+v", got)
	}
	if !reflect.DeepEqual(got.Artifacts, []string{"art-1"}) {
		t.Errorf("Artifacts = %v", got.Artifacts)
	}
	if len(got.Requirements) != 2 {
		t.Errorf("expected 2 requirements, got %d", len(got.Requirements))
	}
}

func TestUpdateTask_Missing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.UpdateTask(context.Background(), &models.Task{ID: "nope", Title: "x"}); err == nil {
		t.Error("expected error updating a missing task")
	}
}

func TestListTasksByParent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	parent := &models.Task{Title: "parent"}
	if err := db.CreateTask(ctx, parent); err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"one", "two", "three"} {
		child := &models.Task{Title: title, ParentTaskID: parent.ID, Requirements: []models.Requirement{{Description: title + " done"}}}
		if err := db.CreateTask(ctx, child); err != nil {
			t.Fatal(err)
		}
	}

	children, err := db.ListTasksByParent(ctx, parent.ID)
	if err != nil {
		t.Fatalf("ListTasksByParent failed: %v", err)
	}
	var titles []string
	for _, c := range children {
		titles = append(titles, c.Title)
		if len(c.Requirements) != 1 {
			t.Errorf("child %s has %d requirements", c.Title, len(c.Requirements))
		}
	}
	if !reflect.DeepEqual(titles, []string{"one", "two", "three"}) {
		t.Errorf("titles = %v", titles)
	}
}

func TestListRootTasks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var roots []*models.Task
	for i, title := range []string{"old", "mid", "new"} {
		task := &models.Task{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.CreateTask(ctx, task); err != nil {
			t.Fatal(err)
		}
		roots = append(roots, task)
	}
	if err := db.CreateTask(ctx, &models.Task{Title: "child", ParentTaskID: roots[0].ID, CreatedAt: base.Add(5 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListRootTasks(ctx, 2)
	if err != nil {
		t.Fatalf("ListRootTasks failed: %v", err)
	}
	var titles []string
	for _, task := range got {
		titles = append(titles, task.Title)
	}
	if !reflect.DeepEqual(titles, []string{"new", "mid"}) {
		t.Errorf("titles = %v, want [new mid]", titles)
	}
}

func TestValidateAndUpdateRequirements(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.Task{
		Title: "t",
		Requirements: []models.Requirement{
			{ID: "covered", Description: "covered"},
			{ID: "missed", Description: "missed"},
		},
	}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	// Nothing produced yet: everything stays pending.
	report, err := db.ValidateAndUpdateRequirements(ctx, task.ID)
	if err != nil {
		t.Fatalf("ValidateAndUpdateRequirements failed: %v", err)
	}
	if report.SatisfactionRate != 0 {
		t.Errorf("rate = %v, want 0", report.SatisfactionRate)
	}
	for _, r := range report.Results {
		if r.Status != models.RequirementPending {
			t.Errorf("%s = %s, want pending", r.ID, r.Status)
		}
	}

	art := &models.Artifact{TaskID: task.ID, Title: "output", Validates: []string{"covered"}}
	if err := db.CreateArtifact(ctx, art); err != nil {
		t.Fatal(err)
	}
	task.Status = models.TaskStatusInProgress
	task.Artifacts = []string{art.ID}
	if err := db.UpdateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	report, err = db.ValidateAndUpdateRequirements(ctx, task.ID)
	if err != nil {
		t.Fatalf("ValidateAndUpdateRequirements failed: %v", err)
	}
	if report.SatisfactionRate != 50 {
		t.Errorf("rate = %v, want 50", report.SatisfactionRate)
	}
	statuses := map[string]models.RequirementStatus{}
	for _, r := range report.Results {
		statuses[r.ID] = r.Status
	}
	if statuses["covered"] != models.RequirementSatisfied || statuses["missed"] != models.RequirementFailed {
		t.Errorf("statuses = %v", statuses)
	}

	// Failed status is persisted; satisfied waits for MarkRequirementSatisfied.
	got, _ := db.GetTask(ctx, task.ID)
	if got.Requirements[1].Status != models.RequirementFailed {
		t.Errorf("missed status = %s, want failed", got.Requirements[1].Status)
	}
	if got.Requirements[0].Status != models.RequirementPending {
		t.Errorf("covered status = %s, want pending until marked", got.Requirements[0].Status)
	}
}

func TestMarkRequirementSatisfied(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.Task{Title: "t", Requirements: []models.Requirement{{ID: "r1", Description: "d"}}}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	if err := db.MarkRequirementSatisfied(ctx, task.ID, "r1", "artifact x"); err != nil {
		t.Fatalf("MarkRequirementSatisfied failed: %v", err)
	}
	got, _ := db.GetTask(ctx, task.ID)
	if got.Requirements[0].Status != models.RequirementSatisfied || got.Requirements[0].Evidence != "artifact x" {
		t.Errorf("requirement = %+v", got.Requirements[0])
	}

	err := db.MarkRequirementSatisfied(ctx, task.ID, "unknown", "")
	if !errors.Is(err, ErrRequirementNotFound) {
		t.Errorf("expected ErrRequirementNotFound, got %v", err)
	}
}

func TestTaskStatusIsChecked(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateTask(ctx, &models.Task{Title: "t", Status: "paused"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("CreateTask err = %v, want ErrInvalidStatus", err)
	}

	task := &models.Task{Title: "t"}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	task.Status = "done"
	if err := db.UpdateTask(ctx, task); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("UpdateTask err = %v, want ErrInvalidStatus", err)
	}
	got, _ := db.GetTask(ctx, task.ID)
	if got.Status != models.TaskStatusPending {
		t.Errorf("status = %s, want unchanged pending", got.Status)
	}
}

func TestRecoverInterrupted(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	stale := &models.Task{Title: "stale", Status: models.TaskStatusInProgress, CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := &models.Task{Title: "fresh", Status: models.TaskStatusInProgress}
	done := &models.Task{Title: "done", Status: models.TaskStatusCompleted, CreatedAt: time.Now().Add(-2 * time.Hour)}
	// Created long ago but started just now, like a subtask late in a long run.
	live := &models.Task{Title: "live", CreatedAt: time.Now().Add(-2 * time.Hour)}
	for _, task := range []*models.Task{stale, fresh, done, live} {
		if err := db.CreateTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}
	live.Status = models.TaskStatusInProgress
	if err := db.UpdateTask(ctx, live); err != nil {
		t.Fatal(err)
	}

	ids, err := db.RecoverInterrupted(ctx, time.Hour)
	if err != nil {
		t.Fatalf("RecoverInterrupted failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{stale.ID}) {
		t.Errorf("recovered = %v, want [%s]", ids, stale.ID)
	}
	got, _ := db.GetTask(ctx, stale.ID)
	if got.Status != models.TaskStatusFailed || got.Error != InterruptedError {
		t.Errorf("stale task = %+v", got)
	}
	if got, _ := db.GetTask(ctx, live.ID); got.Status != models.TaskStatusInProgress {
		t.Errorf("live task = %s, want in_progress", got.Status)
	}
}
