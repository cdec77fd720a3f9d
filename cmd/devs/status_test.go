package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codename-co/devs-sub002/internal/state"
	"github.com/codename-co/devs-sub002/pkg/models"
)

func openTestDB(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "devs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var buf bytes.Buffer
	if err := listRequests(ctx, &buf, db, 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No requests yet") {
		t.Errorf("empty listing = %q", buf.String())
	}

	root := &models.Task{Title: "Launch plan", Status: models.TaskStatusCompleted, Complexity: models.ComplexityComplex}
	if err := db.CreateTask(ctx, root); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateTask(ctx, &models.Task{Title: "Hidden subtask", ParentTaskID: root.ID}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	if err := listRequests(ctx, &buf, db, 10); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{shortID(root.ID), "completed", "complex", "Launch plan"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hidden subtask") {
		t.Error("subtasks should not be listed as requests")
	}
}

func TestShowTask(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	root := &models.Task{
		Title:  "Launch plan",
		Status: models.TaskStatusFailed,
		Error:  "subtask timed out",
		Requirements: []models.Requirement{
			{Description: "Covers pricing", Status: models.RequirementSatisfied},
			{Description: "Names a date"},
		},
	}
	if err := db.CreateTask(ctx, root); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateTask(ctx, &models.Task{Title: "Pricing", ParentTaskID: root.ID}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateArtifact(ctx, &models.Artifact{TaskID: root.ID, Title: "Launch plan"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := showTask(ctx, &buf, db, root.ID); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Launch plan", "failed", "subtask timed out", "50% satisfied", "✓ Covers pricing", "○ Names a date", "Pricing", "(document, v1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if err := showTask(ctx, &buf, db, "missing"); err == nil {
		t.Error("unknown task should fail")
	}
}
