package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// DefaultContextLimit bounds how many entries RelevantFor returns.
const DefaultContextLimit = 5

// ContextBroker publishes and retrieves time-bounded shared context entries.
type ContextBroker struct {
	db    *DB
	limit int
	now   func() time.Time
}

// NewContextBroker creates a broker backed by db. A non-positive limit uses
// DefaultContextLimit.
func NewContextBroker(db *DB, limit int) *ContextBroker {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	return &ContextBroker{db: db, limit: limit, now: time.Now}
}

// Publish stores an entry. Entries are write-once.
func (b *ContextBroker) Publish(ctx context.Context, c *models.SharedContext) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = b.now()
	}
	agents, err := encodeJSON(c.RelevantAgents)
	if err != nil {
		return fmt.Errorf("encode relevant agents: %w", err)
	}
	var expires int64
	if !c.ExpiryDate.IsZero() {
		expires = c.ExpiryDate.UnixNano()
	}
	_, err = b.db.Exec(ctx, `
		INSERT INTO shared_context (id, task_id, agent_id, context_type, title, content, relevant_agents, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.TaskID, c.AgentID, c.ContextType, c.Title, c.Content, agents, expires, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("publish context: %w", err)
	}
	return nil
}

// RelevantFor returns unexpired entries visible to agentID whose title or
// content mentions one of the keywords, newest first. With no keywords every
// visible entry qualifies.
func (b *ContextBroker) RelevantFor(ctx context.Context, agentID string, keywords []string) ([]*models.SharedContext, error) {
	rows, err := b.db.Query(ctx, `
		SELECT id, task_id, agent_id, context_type, title, content, relevant_agents, expires_at, created_at
		FROM shared_context
		WHERE expires_at = 0 OR expires_at > ?
		ORDER BY created_at DESC, rowid DESC
	`, b.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	defer rows.Close()

	var out []*models.SharedContext
	for rows.Next() && len(out) < b.limit {
		var c models.SharedContext
		var agents, createdAt string
		var expires int64
		err := rows.Scan(&c.ID, &c.TaskID, &c.AgentID, &c.ContextType, &c.Title, &c.Content, &agents, &expires, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan context: %w", err)
		}
		c.RelevantAgents = decodeStrings(agents)
		if expires > 0 {
			c.ExpiryDate = time.Unix(0, expires)
		}
		c.CreatedAt, _ = parseTime(createdAt)

		if !c.VisibleTo(agentID) || !mentionsAny(c.Title+"\n"+c.Content, keywords) {
			continue
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// PurgeExpiredContext deletes expired entries and returns how many were removed.
func (b *ContextBroker) PurgeExpiredContext(ctx context.Context) (int64, error) {
	result, err := b.db.Exec(ctx, `
		DELETE FROM shared_context WHERE expires_at > 0 AND expires_at <= ?
	`, b.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge expired context: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

func mentionsAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
