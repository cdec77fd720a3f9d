package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// AgentRegistry stores agent profiles.
type AgentRegistry struct {
	db *DB
}

// NewAgentRegistry creates a registry backed by db.
func NewAgentRegistry(db *DB) *AgentRegistry {
	return &AgentRegistry{db: db}
}

// FindByID returns the agent with the given ID, or nil, nil if none exists.
func (r *AgentRegistry) FindByID(ctx context.Context, id string) (*models.Agent, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, role, instructions, tags, created_at FROM agents WHERE id = ?
	`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find agent: %w", err)
	}
	return a, nil
}

// FindAll returns every agent in registration order.
func (r *AgentRegistry) FindAll(ctx context.Context) ([]*models.Agent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, role, instructions, tags, created_at FROM agents ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// Create registers an agent, assigning an ID and creation time when missing.
func (r *AgentRegistry) Create(ctx context.Context, a *models.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	tags, err := encodeJSON(a.Tags)
	if err != nil {
		return fmt.Errorf("encode agent tags: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO agents (id, name, role, instructions, tags, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Role, a.Instructions, tags, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// Upsert creates the agent or replaces the profile stored under its ID.
func (r *AgentRegistry) Upsert(ctx context.Context, a *models.Agent) error {
	if a.ID == "" {
		return r.Create(ctx, a)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	tags, err := encodeJSON(a.Tags)
	if err != nil {
		return fmt.Errorf("encode agent tags: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO agents (id, name, role, instructions, tags, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role,
			instructions = excluded.instructions, tags = excluded.tags
	`, a.ID, a.Name, a.Role, a.Instructions, tags, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var a models.Agent
	var tags, createdAt string
	if err := row.Scan(&a.ID, &a.Name, &a.Role, &a.Instructions, &tags, &createdAt); err != nil {
		return nil, err
	}
	a.Tags = decodeStrings(tags)
	a.CreatedAt, _ = parseTime(createdAt)
	return &a, nil
}
