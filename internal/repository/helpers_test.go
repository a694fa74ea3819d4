package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/testutil"
)

func setupTestDB(t *testing.T) *testutil.TestDB {
	t.Helper()

	db := testutil.NewTestDB(t)

	migrationsDir := filepath.Join("..", "database", "migrations")
	db.RunMigrations(t, migrationsDir)

	return db
}

// seedMaterial inserts a category and a raw material and returns the material.
func seedMaterial(t *testing.T, repo *MaterialRepository, overrides ...func(*models.RawMaterial)) *models.RawMaterial {
	t.Helper()
	ctx := context.Background()

	cat := testutil.FixtureMaterialCategory()
	if err := repo.CreateCategory(ctx, nil, cat); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	m := testutil.FixtureRawMaterial(cat.ID, overrides...)
	if err := repo.Create(ctx, nil, m); err != nil {
		t.Fatalf("failed to create material: %v", err)
	}
	return m
}
