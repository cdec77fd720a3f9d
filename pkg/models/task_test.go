package models

import (
	"testing"
	"time"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"in_progress is valid", TaskStatusInProgress, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("done"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestSatisfactionRate(t *testing.T) {
	tests := []struct {
		name string
		reqs []Requirement
		want float64
	}{
		{"no requirements", nil, 0},
		{"none satisfied", []Requirement{{Status: RequirementPending}, {Status: RequirementFailed}}, 0},
		{"half satisfied", []Requirement{{Status: RequirementSatisfied}, {Status: RequirementPending}}, 50},
		{"all satisfied", []Requirement{{Status: RequirementSatisfied}}, 100},
		{
			"one of three",
			[]Requirement{{Status: RequirementSatisfied}, {Status: RequirementFailed}, {Status: RequirementPending}},
			100.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SatisfactionRate(tt.reqs); got != tt.want {
				t.Errorf("SatisfactionRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTask_UnsatisfiedRequirements(t *testing.T) {
	task := &Task{Requirements: []Requirement{
		{ID: "r1", Status: RequirementSatisfied},
		{ID: "r2", Status: RequirementPending},
		{ID: "r3", Status: RequirementFailed},
	}}

	got := task.UnsatisfiedRequirements()
	if len(got) != 2 {
		t.Fatalf("expected 2 unsatisfied, got %d", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r3" {
		t.Errorf("unexpected ids: %s, %s", got[0].ID, got[1].ID)
	}

	// Returned slice must not alias the task's requirements.
	got[0].Status = RequirementSatisfied
	if task.Requirements[1].Status != RequirementPending {
		t.Error("UnsatisfiedRequirements should return copies")
	}
}

func TestTask_MergeRequirements(t *testing.T) {
	task := &Task{Requirements: []Requirement{
		{ID: "r1", Description: "Write unit tests", Status: RequirementSatisfied},
	}}

	added := task.MergeRequirements([]Requirement{
		{ID: "r2", Description: "write  UNIT tests"},
		{ID: "r3", Description: "Document the API"},
		{ID: "r4", Description: "   "},
	})

	if added != 1 {
		t.Errorf("expected 1 added, got %d", added)
	}
	if len(task.Requirements) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(task.Requirements))
	}
	if task.Requirements[0].Status != RequirementSatisfied {
		t.Error("existing requirement should be kept as is")
	}
	if task.Requirements[1].ID != "r3" {
		t.Errorf("expected r3 appended, got %s", task.Requirements[1].ID)
	}
}

func TestTask_MarkCompleted(t *testing.T) {
	task := &Task{Status: TaskStatusInProgress}
	now := time.Now()
	task.MarkCompleted(now)

	if task.Status != TaskStatusCompleted {
		t.Errorf("Status = %s, want completed", task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", task.CompletedAt, now)
	}
}

func TestAttachment_Kinds(t *testing.T) {
	tests := []struct {
		mediaType string
		text      bool
		image     bool
	}{
		{"text/plain", true, false},
		{"text/markdown", true, false},
		{"application/json", true, false},
		{"image/png", false, true},
		{"IMAGE/JPEG", false, true},
		{"application/pdf", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			a := Attachment{MediaType: tt.mediaType}
			if a.IsText() != tt.text {
				t.Errorf("IsText() = %v, want %v", a.IsText(), tt.text)
			}
			if a.IsImage() != tt.image {
				t.Errorf("IsImage() = %v, want %v", a.IsImage(), tt.image)
			}
		})
	}
}

func TestSharedContext_Visibility(t *testing.T) {
	now := time.Now()
	entry := &SharedContext{ExpiryDate: now.Add(time.Minute)}

	if entry.Expired(now) {
		t.Error("entry should not be expired before its expiry date")
	}
	if !entry.Expired(now.Add(time.Minute)) {
		t.Error("entry should be expired at its expiry date")
	}
	if !entry.VisibleTo("anyone") {
		t.Error("entry without relevant agents should be visible to everyone")
	}

	entry.RelevantAgents = []string{"a1"}
	if entry.VisibleTo("a2") {
		t.Error("entry should be hidden from agents not listed")
	}
	if !entry.VisibleTo("a1") {
		t.Error("entry should be visible to listed agent")
	}
}
