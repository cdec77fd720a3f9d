package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codename-co/devs-sub002/pkg/models"
)

var (
	// ErrRequirementNotFound indicates the requirement does not belong to the task.
	ErrRequirementNotFound = errors.New("requirement not found")
	// ErrInvalidStatus indicates a task status outside the known set.
	ErrInvalidStatus = errors.New("invalid task status")
)

const taskColumns = `id, workflow_id, parent_id, title, description, complexity, status,
	depends_on, artifacts, assigned_to, estimated_passes, actual_passes,
	attachments, error, due_date, created_at, completed_at`

// CreateTask inserts a task and its requirements. Missing IDs, creation time
// and status are filled in on t.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if !t.Status.Valid() {
		return fmt.Errorf("create task: %w: %q", ErrInvalidStatus, t.Status)
	}
	prepareRequirements(t)

	cols, err := taskValues(t)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append(append([]any{t.ID}, cols...), formatTime(t.CreatedAt))...)
		if err != nil {
			return err
		}
		return insertRequirements(ctx, tx, t)
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task with its requirements. It returns nil, nil when
// the task does not exist.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	reqs, err := db.listRequirements(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	t.Requirements = reqs
	return t, nil
}

// UpdateTask writes every field of t, replaces its requirements and stamps
// the update time.
func (db *DB) UpdateTask(ctx context.Context, t *models.Task) error {
	if !t.Status.Valid() {
		return fmt.Errorf("update task: %w: %q", ErrInvalidStatus, t.Status)
	}
	prepareRequirements(t)
	cols, err := taskValues(t)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET workflow_id = ?, parent_id = ?, title = ?, description = ?,
				complexity = ?, status = ?, depends_on = ?, artifacts = ?, assigned_to = ?,
				estimated_passes = ?, actual_passes = ?, attachments = ?, error = ?,
				due_date = ?, created_at = ?, completed_at = ?, updated_at = ?
			WHERE id = ?
		`, append(cols, formatTime(time.Now()), t.ID)...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("task %s does not exist", t.ID)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM requirements WHERE task_id = ?", t.ID); err != nil {
			return err
		}
		return insertRequirements(ctx, tx, t)
	})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasksByParent lists the direct children of a task in creation order.
func (db *DB) ListTasksByParent(ctx context.Context, parentID string) ([]*models.Task, error) {
	rows, err := db.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE parent_id = ? ORDER BY rowid`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by parent: %w", err)
	}
	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, t := range tasks {
		if t.Requirements, err = db.listRequirements(ctx, t.ID); err != nil {
			return nil, fmt.Errorf("list tasks by parent: %w", err)
		}
	}
	return tasks, nil
}

// ListRootTasks lists tasks without a parent, newest first, at most limit.
func (db *DB) ListRootTasks(ctx context.Context, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE parent_id = '' ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list root tasks: %w", err)
	}
	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if t.Requirements, err = db.listRequirements(ctx, t.ID); err != nil {
			return nil, fmt.Errorf("list root tasks: %w", err)
		}
	}
	return tasks, nil
}

// ValidateAndUpdateRequirements checks every requirement of a task against
// the artifacts recorded for it. A requirement claimed by an artifact is
// reported satisfied; one left unclaimed after the task produced artifacts is
// marked failed; everything else stays pending. Satisfied results are
// persisted by MarkRequirementSatisfied.
func (db *DB) ValidateAndUpdateRequirements(ctx context.Context, taskID string) (*models.RequirementReport, error) {
	task, err := db.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("validate requirements: task %s does not exist", taskID)
	}
	artifacts, err := db.ListArtifactsByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	claims := make(map[string]*models.Artifact)
	for _, a := range artifacts {
		for _, reqID := range a.Validates {
			if _, ok := claims[reqID]; !ok {
				claims[reqID] = a
			}
		}
	}
	finished := len(artifacts) > 0 && task.Status != models.TaskStatusPending

	report := &models.RequirementReport{}
	evaluated := make([]models.Requirement, 0, len(task.Requirements))
	for _, req := range task.Requirements {
		result := models.RequirementResult{ID: req.ID, Status: req.Status, Evidence: req.Evidence}
		switch {
		case req.Status == models.RequirementSatisfied:
		case claims[req.ID] != nil:
			a := claims[req.ID]
			result.Status = models.RequirementSatisfied
			result.Evidence = fmt.Sprintf("artifact %q (%s)", a.Title, a.ID)
		case finished:
			result.Status = models.RequirementFailed
			result.Evidence = "no artifact claims this requirement"
		default:
			result.Status = models.RequirementPending
		}

		if result.Status != models.RequirementSatisfied && result.Status != req.Status {
			_, err := db.Exec(ctx, `
				UPDATE requirements SET status = ?, evidence = ? WHERE task_id = ? AND id = ?
			`, string(result.Status), result.Evidence, taskID, req.ID)
			if err != nil {
				return nil, fmt.Errorf("update requirement %s: %w", req.ID, err)
			}
		}

		req.Status = result.Status
		evaluated = append(evaluated, req)
		report.Results = append(report.Results, result)
	}
	report.SatisfactionRate = models.SatisfactionRate(evaluated)
	return report, nil
}

// MarkRequirementSatisfied records a requirement as satisfied with evidence.
func (db *DB) MarkRequirementSatisfied(ctx context.Context, taskID, reqID, evidence string) error {
	res, err := db.Exec(ctx, `
		UPDATE requirements SET status = ?, evidence = ? WHERE task_id = ? AND id = ?
	`, string(models.RequirementSatisfied), evidence, taskID, reqID)
	if err != nil {
		return fmt.Errorf("mark requirement satisfied: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark requirement %s on task %s: %w", reqID, taskID, ErrRequirementNotFound)
	}
	return nil
}

// prepareRequirements fills in IDs, detection time and status.
func prepareRequirements(t *models.Task) {
	now := time.Now()
	for i := range t.Requirements {
		r := &t.Requirements[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.DetectedAt.IsZero() {
			r.DetectedAt = now
		}
		if r.Status == "" {
			r.Status = models.RequirementPending
		}
	}
}

func insertRequirements(ctx context.Context, tx *sql.Tx, t *models.Task) error {
	for i, r := range t.Requirements {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO requirements (task_id, id, position, type, description, priority, status, detected_at, evidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, r.ID, i, r.Type, r.Description, r.Priority, string(r.Status), formatTime(r.DetectedAt), r.Evidence)
		if err != nil {
			return fmt.Errorf("insert requirement %s: %w", r.ID, err)
		}
	}
	return nil
}

func (db *DB) listRequirements(ctx context.Context, taskID string) ([]models.Requirement, error) {
	rows, err := db.Query(ctx, `
		SELECT id, type, description, priority, status, detected_at, evidence
		FROM requirements WHERE task_id = ? ORDER BY position
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()

	var reqs []models.Requirement
	for rows.Next() {
		var r models.Requirement
		var detectedAt string
		if err := rows.Scan(&r.ID, &r.Type, &r.Description, &r.Priority, &r.Status, &detectedAt, &r.Evidence); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		r.DetectedAt, _ = parseTime(detectedAt)
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// taskValues returns every task column value after id, in taskColumns order.
func taskValues(t *models.Task) ([]any, error) {
	deps, err := encodeJSON(t.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("encode dependencies: %w", err)
	}
	arts, err := encodeJSON(t.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("encode artifacts: %w", err)
	}
	atts, err := encodeJSON(t.Attachments)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	return []any{
		t.WorkflowID, t.ParentTaskID, t.Title, t.Description, string(t.Complexity), string(t.Status),
		deps, arts, t.AssignedAgentID, t.EstimatedPasses, t.ActualPasses,
		atts, t.Error, formatNullableTime(t.DueDate), formatTime(t.CreatedAt), formatNullableTime(t.CompletedAt),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var deps, arts, atts, createdAt string
	var dueDate, completedAt sql.NullString
	err := row.Scan(&t.ID, &t.WorkflowID, &t.ParentTaskID, &t.Title, &t.Description, &t.Complexity, &t.Status,
		&deps, &arts, &t.AssignedAgentID, &t.EstimatedPasses, &t.ActualPasses,
		&atts, &t.Error, &dueDate, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.Dependencies = decodeStrings(deps)
	t.Artifacts = decodeStrings(arts)
	if atts != "" && atts != "[]" {
		if err := json.Unmarshal([]byte(atts), &t.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	t.CreatedAt, _ = parseTime(createdAt)
	t.DueDate = parseNullableTime(dueDate)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}
