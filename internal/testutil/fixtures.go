package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/models"
)

// FixtureMaterialCategory creates a material category with a unique name.
func FixtureMaterialCategory(overrides ...func(*models.MaterialCategory)) *models.MaterialCategory {
	id := uuid.New().String()
	c := &models.MaterialCategory{
		ID:   id,
		Name: "Category " + id[:8],
	}
	for _, override := range overrides {
		override(c)
	}
	return c
}

// FixtureRawMaterial creates a raw material stocked in kilograms.
func FixtureRawMaterial(categoryID string, overrides ...func(*models.RawMaterial)) *models.RawMaterial {
	id := uuid.New().String()
	m := &models.RawMaterial{
		ID:                id,
		Name:              "Material " + id[:8],
		CategoryID:        categoryID,
		Unit:              models.UnitKilogram,
		CriticalThreshold: decimal.Zero,
	}
	for _, override := range overrides {
		override(m)
	}
	return m
}

// FixtureBatch creates a 10 kg lot received on 2024-01-01.
func FixtureBatch(materialID string, overrides ...func(*models.Batch)) *models.Batch {
	id := uuid.New().String()
	b := &models.Batch{
		ID:             id,
		RawMaterialID:  materialID,
		BatchNumber:    "LOT-" + id[:6],
		QuantityOnHand: decimal.NewFromInt(10),
		Unit:           models.UnitKilogram,
		ReceivedDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, override := range overrides {
		override(b)
	}
	return b
}

// FixtureProduct creates a count-based finished product with no stock.
func FixtureProduct(overrides ...func(*models.FinishedProduct)) *models.FinishedProduct {
	id := uuid.New().String()
	p := &models.FinishedProduct{
		ID:                id,
		Name:              "Product " + id[:8],
		PackagingUnitMass: decimal.Zero,
		DisplayUnit:       "pcs",
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// FixturePackaging creates a packaging item with 100 units in stock.
func FixturePackaging(overrides ...func(*models.Packaging)) *models.Packaging {
	id := uuid.New().String()
	p := &models.Packaging{
		ID:              id,
		Name:            "Packaging " + id[:8],
		QuantityInStock: 100,
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// FixtureRecipeLine creates a recipe line consuming component.
func FixtureRecipeLine(component models.RecipeComponent, qty string, unit models.Unit) models.RecipeLine {
	return models.RecipeLine{
		ID:               uuid.New().String(),
		Component:        component,
		QuantityRequired: decimal.RequireFromString(qty),
		Unit:             unit,
	}
}

// FixturePackagingLine creates a packaging line requiring qty per unit.
func FixturePackagingLine(packagingID string, qty int) models.PackagingLine {
	return models.PackagingLine{
		ID:               uuid.New().String(),
		PackagingID:      packagingID,
		QuantityRequired: qty,
	}
}
