package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/testutil"
)

func TestProductRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close(t)

	repo := NewProductRepository(db.DB)
	ctx := context.Background()

	cat := &models.ProductCategory{ID: "pc-1", Name: "Bakery"}
	if err := repo.CreateCategory(ctx, nil, cat); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	code := "BRD-001"
	p := testutil.FixtureProduct(func(p *models.FinishedProduct) {
		p.Name = "Bread"
		p.ProductCode = &code
		p.CategoryID = &cat.ID
		p.PackagingUnitMass = decimal.RequireFromString("0.5")
	})
	if err := repo.Create(ctx, nil, p); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}

	t.Run("Get with joined category", func(t *testing.T) {
		found, err := repo.GetByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatalf("failed to get product: %v", err)
		}
		if found.ProductCode == nil || *found.ProductCode != code {
			t.Errorf("expected product code %s, got %v", code, found.ProductCode)
		}
		if found.Category == nil || found.Category.Name != "Bakery" {
			t.Errorf("expected category Bakery, got %+v", found.Category)
		}
		if !found.PackagingUnitMass.Equal(decimal.RequireFromString("0.5")) {
			t.Errorf("expected unit mass 0.5, got %s", found.PackagingUnitMass)
		}
	})

	t.Run("Product without code or category", func(t *testing.T) {
		plain := testutil.FixtureProduct()
		if err := repo.Create(ctx, nil, plain); err != nil {
			t.Fatalf("failed to create product: %v", err)
		}
		found, err := repo.GetByID(ctx, nil, plain.ID)
		if err != nil {
			t.Fatalf("failed to get product: %v", err)
		}
		if found.ProductCode != nil || found.Category != nil {
			t.Errorf("expected no code and no category, got %v %v", found.ProductCode, found.Category)
		}
	})

	t.Run("Search by code", func(t *testing.T) {
		products, err := repo.List(ctx, nil, models.ProductFilter{SearchTerm: "BRD"})
		if err != nil {
			t.Fatalf("failed to list products: %v", err)
		}
		if len(products) != 1 || products[0].ID != p.ID {
			t.Errorf("expected only Bread, got %d products", len(products))
		}
	})

	t.Run("Stock counters", func(t *testing.T) {
		got, err := repo.AdjustStock(ctx, nil, p.ID, 7)
		if err != nil {
			t.Fatalf("failed to adjust stock: %v", err)
		}
		if got != 7 {
			t.Errorf("expected stock 7, got %d", got)
		}

		if err := repo.ConsumeStock(ctx, nil, p.ID, 5); err != nil {
			t.Fatalf("failed to consume stock: %v", err)
		}
		if err := repo.ConsumeStock(ctx, nil, p.ID, 5); !errors.Is(err, ErrStaleWrite) {
			t.Errorf("expected ErrStaleWrite when consuming more than stocked, got %v", err)
		}

		got, err = repo.AdjustStock(ctx, nil, p.ID, -4)
		if err != nil {
			t.Fatalf("failed to adjust stock: %v", err)
		}
		if got != -2 {
			t.Errorf("expected stock -2, got %d", got)
		}

		if err := repo.SetStock(ctx, nil, p.ID, 12); err != nil {
			t.Fatalf("failed to set stock: %v", err)
		}
		found, _ := repo.GetByID(ctx, nil, p.ID)
		if found.QuantityInStock != 12 {
			t.Errorf("expected stock 12, got %d", found.QuantityInStock)
		}
	})

	t.Run("Missing product", func(t *testing.T) {
		if _, err := repo.AdjustStock(ctx, nil, "missing", 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestProductRepository_RecipeLines(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close(t)

	materials := NewMaterialRepository(db.DB)
	packaging := NewPackagingRepository(db.DB)
	repo := NewProductRepository(db.DB)
	ctx := context.Background()

	flour := seedMaterial(t, materials, func(m *models.RawMaterial) { m.Name = "Flour" })

	dough := testutil.FixtureProduct(func(p *models.FinishedProduct) { p.Name = "Dough" })
	bread := testutil.FixtureProduct(func(p *models.FinishedProduct) { p.Name = "Bread" })
	for _, p := range []*models.FinishedProduct{dough, bread} {
		if err := repo.Create(ctx, nil, p); err != nil {
			t.Fatalf("failed to create product: %v", err)
		}
	}

	bag := testutil.FixturePackaging(func(p *models.Packaging) { p.Name = "Bag" })
	if err := packaging.Create(ctx, nil, bag); err != nil {
		t.Fatalf("failed to create packaging: %v", err)
	}

	lines := []models.RecipeLine{
		testutil.FixtureRecipeLine(models.RawMaterialComponent{MaterialID: flour.ID}, "1", models.UnitKilogram),
		testutil.FixtureRecipeLine(models.SubProductComponent{ProductID: dough.ID}, "250", models.UnitGram),
	}
	if err := repo.ReplaceRecipe(ctx, nil, bread.ID, lines); err != nil {
		t.Fatalf("failed to save recipe: %v", err)
	}
	if err := repo.ReplacePackagingLines(ctx, nil, bread.ID, []models.PackagingLine{testutil.FixturePackagingLine(bag.ID, 2)}); err != nil {
		t.Fatalf("failed to save packaging lines: %v", err)
	}

	full, err := repo.GetWithLines(ctx, nil, bread.ID)
	if err != nil {
		t.Fatalf("failed to load product: %v", err)
	}

	if len(full.Recipe) != 2 {
		t.Fatalf("expected 2 recipe lines, got %d", len(full.Recipe))
	}
	if id, ok := full.Recipe[0].RawMaterialID(); !ok || id != flour.ID || full.Recipe[0].ComponentName != "Flour" {
		t.Errorf("line 1: expected Flour raw material, got %+v", full.Recipe[0])
	}
	if id, ok := full.Recipe[1].SubProductID(); !ok || id != dough.ID || full.Recipe[1].ComponentName != "Dough" {
		t.Errorf("line 2: expected Dough sub-product, got %+v", full.Recipe[1])
	}
	if full.Recipe[1].Position != 2 {
		t.Errorf("expected position 2, got %d", full.Recipe[1].Position)
	}

	if len(full.Packaging) != 1 || full.Packaging[0].QuantityRequired != 2 || full.Packaging[0].PackagingName != "Bag" {
		t.Errorf("unexpected packaging lines: %+v", full.Packaging)
	}

	uses, orders, err := repo.CountReferences(ctx, nil, dough.ID)
	if err != nil {
		t.Fatalf("failed to count references: %v", err)
	}
	if uses != 1 || orders != 0 {
		t.Errorf("expected 1 sub-product use and 0 orders, got %d and %d", uses, orders)
	}

	bagUses, err := packaging.CountLineUses(ctx, nil, bag.ID)
	if err != nil {
		t.Fatalf("failed to count packaging uses: %v", err)
	}
	if bagUses != 1 {
		t.Errorf("expected 1 packaging line use, got %d", bagUses)
	}

	// Deleting the product cascades to its lines.
	if err := repo.Delete(ctx, nil, bread.ID); err != nil {
		t.Fatalf("failed to delete product: %v", err)
	}
	db.AssertRowCount(t, "recipe_lines", 0)
	db.AssertRowCount(t, "packaging_lines", 0)
}

func TestPackagingRepository_Stock(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close(t)

	repo := NewPackagingRepository(db.DB)
	ctx := context.Background()

	box := testutil.FixturePackaging(func(p *models.Packaging) { p.Name = "Box"; p.QuantityInStock = 10 })
	if err := repo.Create(ctx, nil, box); err != nil {
		t.Fatalf("failed to create packaging: %v", err)
	}

	got, err := repo.AdjustStock(ctx, nil, box.ID, -14)
	if err != nil {
		t.Fatalf("failed to adjust stock: %v", err)
	}
	if got != -4 {
		t.Errorf("expected -4, got %d", got)
	}

	if err := repo.Rename(ctx, nil, box.ID, "Carton"); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}
	if err := repo.SetStock(ctx, nil, box.ID, 50); err != nil {
		t.Fatalf("failed to set stock: %v", err)
	}

	found, err := repo.GetByID(ctx, nil, box.ID)
	if err != nil {
		t.Fatalf("failed to get packaging: %v", err)
	}
	if found.Name != "Carton" || found.QuantityInStock != 50 {
		t.Errorf("expected Carton with 50, got %s with %d", found.Name, found.QuantityInStock)
	}

	if err := repo.Delete(ctx, nil, box.ID); err != nil {
		t.Fatalf("failed to delete packaging: %v", err)
	}
	if _, err := repo.GetByID(ctx, nil, box.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
