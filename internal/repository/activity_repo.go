package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/osmo/osmo/internal/models"
)

// ActivityRepository stores the audit trail.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts an activity entry.
func (r *ActivityRepository) Create(ctx context.Context, tx *sql.Tx, e *models.ActivityEntry) error {
	stamp(&e.CreatedAt)

	_, err := getQuerier(r.db, tx).ExecContext(ctx, `
		INSERT INTO activity_log (id, actor, action, entity_type, entity_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Actor, e.Action, e.EntityType, e.EntityID, e.Detail, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. An empty entityType
// matches every entity.
func (r *ActivityRepository) List(ctx context.Context, entityType, entityID string, limit int) ([]*models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, action, entity_type, entity_id, detail, created_at
		FROM activity_log
		WHERE (? = '' OR entity_type = ?) AND (? = '' OR entity_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		entityType, entityType, entityID, entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity log: %w", err)
	}
	defer rows.Close()

	var entries []*models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		var createdStr string
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &e.Detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.CreatedAt = parseTime(createdStr)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
