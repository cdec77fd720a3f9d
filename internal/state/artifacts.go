package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// CreateArtifact stores an artifact. Missing ID, version, status and creation
// time are filled in on a.
func (db *DB) CreateArtifact(ctx context.Context, a *models.Artifact) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Version <= 0 {
		a.Version = 1
	}
	if a.Status == "" {
		a.Status = models.ArtifactDraft
	}
	if a.Type == "" {
		a.Type = models.ArtifactDocument
	}

	deps, err := encodeJSON(a.Dependencies)
	if err != nil {
		return fmt.Errorf("encode artifact dependencies: %w", err)
	}
	validates, err := encodeJSON(a.Validates)
	if err != nil {
		return fmt.Errorf("encode artifact validates: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO artifacts (id, task_id, agent_id, title, content, type, version, status, dependencies, validates, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.AgentID, a.Title, a.Content, string(a.Type), a.Version, string(a.Status), deps, validates, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	return nil
}

// ListArtifactsByTask lists a task's artifacts in creation order.
func (db *DB) ListArtifactsByTask(ctx context.Context, taskID string) ([]*models.Artifact, error) {
	rows, err := db.Query(ctx, `
		SELECT id, task_id, agent_id, title, content, type, version, status, dependencies, validates, created_at
		FROM artifacts WHERE task_id = ? ORDER BY rowid
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.Artifact
	for rows.Next() {
		var a models.Artifact
		var deps, validates, createdAt string
		err := rows.Scan(&a.ID, &a.TaskID, &a.AgentID, &a.Title, &a.Content, &a.Type, &a.Version, &a.Status, &deps, &validates, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Dependencies = decodeStrings(deps)
		a.Validates = decodeStrings(validates)
		a.CreatedAt, _ = parseTime(createdAt)
		artifacts = append(artifacts, &a)
	}
	return artifacts, rows.Err()
}
