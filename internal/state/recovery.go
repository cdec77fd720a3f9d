package state

import (
	"context"
	"fmt"
	"time"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// InterruptedError is recorded on tasks left in progress by a previous run.
const InterruptedError = "interrupted: the previous run exited before the task finished"

// RecoverInterrupted marks tasks left in_progress and not written for
// olderThan as failed. It runs before a new orchestration so stale tasks are
// not mistaken for live work, and returns the IDs it changed.
func (db *DB) RecoverInterrupted(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	rows, err := db.Query(ctx, `
		SELECT id FROM tasks WHERE status = ? AND updated_at < ? ORDER BY rowid
	`, string(models.TaskStatusInProgress), cutoff)
	if err != nil {
		return nil, fmt.Errorf("find interrupted tasks: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan interrupted task: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		_, err := db.Exec(ctx, `UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(models.TaskStatusFailed), InterruptedError, formatTime(time.Now()), id)
		if err != nil {
			return nil, fmt.Errorf("reset interrupted task %s: %w", id, err)
		}
	}
	return ids, nil
}
