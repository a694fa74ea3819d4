// Package activity records the audit trail of stock-changing operations.
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/repository"
	"github.com/osmo/osmo/internal/util"
)

// Recorder receives activity entries after a successful commit. Recording
// never fails the operation that produced the entry.
type Recorder interface {
	Record(ctx context.Context, entry models.ActivityEntry)
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, models.ActivityEntry) {}

// Service persists activity entries.
type Service struct {
	repo        *repository.ActivityRepository
	idGenerator *util.IDGenerator
	clock       util.Clock
}

// NewService creates a new activity service.
func NewService(db *database.DB, clock util.Clock) *Service {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Service{
		repo:        repository.NewActivityRepository(db.DB),
		idGenerator: util.NewIDGenerator(),
		clock:       clock,
	}
}

// Record stores entry, logging failures at Warn.
func (s *Service) Record(ctx context.Context, entry models.ActivityEntry) {
	if entry.ID == "" {
		entry.ID = s.idGenerator.NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	if entry.Actor == "" {
		entry.Actor = "system"
	}

	if err := s.repo.Create(ctx, nil, &entry); err != nil {
		slog.Warn("recording activity failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

// Recent returns the latest entries across all entities.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.ActivityEntry, error) {
	entries, err := s.repo.List(ctx, "", "", limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}

// ForEntity returns the latest entries about one entity.
func (s *Service) ForEntity(ctx context.Context, entityType, entityID string, limit int) ([]*models.ActivityEntry, error) {
	entries, err := s.repo.List(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity for %s %s: %w", entityType, entityID, err)
	}
	return entries, nil
}
