package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/testutil"
)

func TestMaterialRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close(t)

	repo := NewMaterialRepository(db.DB)
	ctx := context.Background()

	m := seedMaterial(t, repo, func(m *models.RawMaterial) {
		m.Name = "Flour"
		m.CriticalThreshold = decimal.RequireFromString("2.5")
	})

	t.Run("Get existing material", func(t *testing.T) {
		found, err := repo.GetByID(ctx, nil, m.ID)
		if err != nil {
			t.Fatalf("failed to get material: %v", err)
		}
		if found.Name != "Flour" {
			t.Errorf("expected name Flour, got %s", found.Name)
		}
		if found.Unit != models.UnitKilogram {
			t.Errorf("expected unit kg, got %s", found.Unit)
		}
		if !found.CriticalThreshold.Equal(decimal.RequireFromString("2.5")) {
			t.Errorf("expected threshold 2.5, got %s", found.CriticalThreshold)
		}
		if found.Category == nil || found.Category.ID != m.CategoryID {
			t.Errorf("expected joined category %s, got %+v", m.CategoryID, found.Category)
		}
	})

	t.Run("Missing material wraps ErrNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, nil, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Duplicate name returns error", func(t *testing.T) {
		dup := testutil.FixtureRawMaterial(m.CategoryID, func(d *models.RawMaterial) { d.Name = "Flour" })
		if err := repo.Create(ctx, nil, dup); err == nil {
			t.Error("expected error for duplicate name, got nil")
		}
	})

	t.Run("Update material", func(t *testing.T) {
		m.CriticalThreshold = decimal.NewFromInt(4)
		if err := repo.Update(ctx, nil, m); err != nil {
			t.Fatalf("failed to update material: %v", err)
		}
		found, _ := repo.GetByID(ctx, nil, m.ID)
		if !found.CriticalThreshold.Equal(decimal.NewFromInt(4)) {
			t.Errorf("expected threshold 4, got %s", found.CriticalThreshold)
		}
	})

	t.Run("Category in use", func(t *testing.T) {
		n, err := repo.CountMaterialsInCategory(ctx, nil, m.CategoryID)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 material in category, got %d", n)
		}
	})
}

func TestMaterialRepository_BatchesFIFO(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close(t)

	repo := NewMaterialRepository(db.DB)
	ctx := context.Background()
	m := seedMaterial(t, repo)

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	// Inserted out of date order; the two January lots tie on date.
	febLot := testutil.FixtureBatch(m.ID, func(b *models.Batch) { b.BatchNumber = "FEB"; b.ReceivedDate = feb })
	janA := testutil.FixtureBatch(m.ID, func(b *models.Batch) { b.BatchNumber = "JAN-A"; b.ReceivedDate = jan })
	janB := testutil.FixtureBatch(m.ID, func(b *models.Batch) { b.BatchNumber = "JAN-B"; b.ReceivedDate = jan })
	empty := testutil.FixtureBatch(m.ID, func(b *models.Batch) {
		b.BatchNumber = "EMPTY"
		b.ReceivedDate = jan.AddDate(0, 0, -10)
		b.QuantityOnHand = decimal.Zero
	})

	for _, b := range []*models.Batch{febLot, janA, janB, empty} {
		if err := repo.CreateBatch(ctx, nil, b); err != nil {
			t.Fatalf("failed to create batch %s: %v", b.BatchNumber, err)
		}
	}

	if janB.ReceiptSeq <= janA.ReceiptSeq {
		t.Errorf("expected increasing receipt sequence, got %d then %d", janA.ReceiptSeq, janB.ReceiptSeq)
	}

	t.Run("All lots in FIFO order", func(t *testing.T) {
		batches, err := repo.ListBatches(ctx, nil, models.BatchFilter{RawMaterialID: m.ID})
		if err != nil {
			t.Fatalf("failed to list batches: %v", err)
		}
		want := []string{"EMPTY", "JAN-A", "JAN-B", "FEB"}
		if len(batches) != len(want) {
			t.Fatalf("expected %d batches, got %d", len(want), len(batches))
		}
		for i, b := range batches {
			if b.BatchNumber != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], b.BatchNumber)
			}
		}
	})

	t.Run("Available lots skip empty ones", func(t *testing.T) {
		batches, err := repo.ListBatches(ctx, nil, models.BatchFilter{RawMaterialID: m.ID, OnlyAvailable: true})
		if err != nil {
			t.Fatalf("failed to list batches: %v", err)
		}
		if len(batches) != 3 || batches[0].BatchNumber != "JAN-A" {
			t.Errorf("expected 3 available lots starting with JAN-A, got %d", len(batches))
		}
	})

	t.Run("Guarded update", func(t *testing.T) {
		if err := repo.UpdateBatchQuantity(ctx, nil, janA.ID, decimal.NewFromInt(10), decimal.NewFromInt(3)); err != nil {
			t.Fatalf("failed to update batch: %v", err)
		}

		// The lot no longer holds 10.
		err := repo.UpdateBatchQuantity(ctx, nil, janA.ID, decimal.NewFromInt(10), decimal.NewFromInt(1))
		if !errors.Is(err, ErrStaleWrite) {
			t.Errorf("expected ErrStaleWrite, got %v", err)
		}

		current, err := repo.GetBatch(ctx, nil, janA.ID)
		if err != nil {
			t.Fatalf("failed to get batch: %v", err)
		}
		if !current.QuantityOnHand.Equal(decimal.NewFromInt(3)) {
			t.Errorf("expected 3 after failed write, got %s", current.QuantityOnHand)
		}
	})

	t.Run("Receipt date round-trips", func(t *testing.T) {
		found, err := repo.GetBatch(ctx, nil, febLot.ID)
		if err != nil {
			t.Fatalf("failed to get batch: %v", err)
		}
		if !found.ReceivedDate.Equal(feb) {
			t.Errorf("expected received date %v, got %v", feb, found.ReceivedDate)
		}
		if found.MaterialName != m.Name {
			t.Errorf("expected material name %s, got %s", m.Name, found.MaterialName)
		}
	})
}

func TestMaterialRepository_ListStock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close(t)

	repo := NewMaterialRepository(db.DB)
	ctx := context.Background()

	m := seedMaterial(t, repo, func(m *models.RawMaterial) {
		m.Name = "Sugar"
		m.CriticalThreshold = decimal.NewFromInt(5)
	})

	lots := []*models.Batch{
		testutil.FixtureBatch(m.ID, func(b *models.Batch) { b.QuantityOnHand = decimal.NewFromInt(2) }),
		testutil.FixtureBatch(m.ID, func(b *models.Batch) {
			b.QuantityOnHand = decimal.NewFromInt(500)
			b.Unit = models.UnitGram
		}),
		testutil.FixtureBatch(m.ID, func(b *models.Batch) { b.QuantityOnHand = decimal.Zero }),
	}
	for _, b := range lots {
		if err := repo.CreateBatch(ctx, nil, b); err != nil {
			t.Fatalf("failed to create batch: %v", err)
		}
	}

	stock, err := repo.ListStock(ctx, nil)
	if err != nil {
		t.Fatalf("failed to list stock: %v", err)
	}
	if len(stock) != 1 {
		t.Fatalf("expected 1 stock line, got %d", len(stock))
	}

	s := stock[0]
	if !s.OnHand.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected 2.5 kg on hand, got %s", s.OnHand)
	}
	if s.LotCount != 2 {
		t.Errorf("expected 2 stocked lots, got %d", s.LotCount)
	}
	if !s.IsCritical() {
		t.Error("expected sugar to be critical")
	}
}
