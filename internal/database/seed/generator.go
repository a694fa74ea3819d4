package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/services/inventory"
)

// Config configures the seed data generator.
type Config struct {
	RandomSeed      int64
	LotsPerMaterial int
	FirstReceipt    time.Time
	// DaysBetweenLots spaces successive receipts of the same material.
	DaysBetweenLots int
}

// DefaultConfig returns a default seed configuration.
func DefaultConfig() Config {
	return Config{
		RandomSeed:      1907,
		LotsPerMaterial: 3,
		FirstReceipt:    time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		DaysBetweenLots: 14,
	}
}

// Summary counts what Generate inserted.
type Summary struct {
	Categories int
	Materials  int
	Lots       int
	Products   int
	Packaging  int
}

// Generator generates seed data. Everything is written through the
// inventory service, so the catalogue passes the same validation as data
// entered by an operator.
type Generator struct {
	cfg       Config
	rng       *rand.Rand
	inventory *inventory.Service

	// Tracking
	materialIDs  map[string]string
	productIDs   map[string]string
	packagingIDs map[string]string
	summary      Summary
}

const seedActor = "seed"

// NewGenerator creates a new seed data generator.
func NewGenerator(db *database.DB, cfg Config) *Generator {
	if cfg.LotsPerMaterial < 1 {
		cfg.LotsPerMaterial = 1
	}
	return &Generator{
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(cfg.RandomSeed)),
		inventory:    inventory.NewService(db, inventory.Options{}),
		materialIDs:  make(map[string]string),
		productIDs:   make(map[string]string),
		packagingIDs: make(map[string]string),
	}
}

// HasData reports whether the catalogue already holds raw materials.
func (g *Generator) HasData(ctx context.Context) (bool, error) {
	materials, err := g.inventory.ListMaterials(ctx)
	if err != nil {
		return false, fmt.Errorf("checking existing materials: %w", err)
	}
	return len(materials) > 0, nil
}

// Generate creates all seed data. Each record is its own transaction; a
// failure leaves what was written so far in place.
func (g *Generator) Generate(ctx context.Context) (Summary, error) {
	slog.Info("starting seed data generation",
		"materials", len(Materials),
		"products", len(Products),
		"lots_per_material", g.cfg.LotsPerMaterial,
	)

	if err := g.generateMaterials(ctx); err != nil {
		return g.summary, fmt.Errorf("generating materials: %w", err)
	}
	if err := g.generatePackaging(ctx); err != nil {
		return g.summary, fmt.Errorf("generating packaging: %w", err)
	}
	if err := g.generateProducts(ctx); err != nil {
		return g.summary, fmt.Errorf("generating products: %w", err)
	}

	slog.Info("seed data generation complete",
		"materials", g.summary.Materials,
		"lots", g.summary.Lots,
		"products", g.summary.Products,
	)
	return g.summary, nil
}

func (g *Generator) generateMaterials(ctx context.Context) error {
	categories := make(map[string]string)

	for _, spec := range Materials {
		catID, ok := categories[spec.Category]
		if !ok {
			cat, err := g.inventory.CreateMaterialCategory(ctx, spec.Category, seedActor)
			if err != nil {
				return err
			}
			catID = cat.ID
			categories[spec.Category] = catID
			g.summary.Categories++
		}

		m, err := g.inventory.CreateMaterial(ctx, inventory.CreateMaterialInput{
			Name:              spec.Name,
			CategoryID:        catID,
			Unit:              string(spec.Unit),
			CriticalThreshold: decimal.RequireFromString(spec.Threshold),
			Actor:             seedActor,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		g.materialIDs[spec.Name] = m.ID
		g.summary.Materials++

		if err := g.generateLots(ctx, m, spec); err != nil {
			return err
		}
	}

	slog.Debug("materials generated", "count", g.summary.Materials, "lots", g.summary.Lots)
	return nil
}

func (g *Generator) generateLots(ctx context.Context, m *models.RawMaterial, spec materialSpec) error {
	for i := 0; i < g.cfg.LotsPerMaterial; i++ {
		qty := spec.MinLot
		if spec.MaxLot > spec.MinLot {
			qty += g.rng.Intn(spec.MaxLot - spec.MinLot + 1)
		}
		received := g.cfg.FirstReceipt.AddDate(0, 0, i*g.cfg.DaysBetweenLots+g.rng.Intn(3))

		number := fmt.Sprintf("%s-%s-%02d", lotPrefix(m.Name), received.Format("0601"), i+1)
		_, err := g.inventory.ReceiveBatch(ctx, inventory.ReceiveBatchInput{
			MaterialID:   m.ID,
			BatchNumber:  number,
			Quantity:     decimal.NewFromInt(int64(qty)),
			Unit:         string(m.Unit),
			ReceivedDate: received,
			Actor:        seedActor,
		})
		if err != nil {
			return fmt.Errorf("receiving lot %s: %w", number, err)
		}
		g.summary.Lots++
	}
	return nil
}

func (g *Generator) generatePackaging(ctx context.Context) error {
	for _, item := range PackagingItems {
		p, err := g.inventory.CreatePackaging(ctx, item.Name, item.Stock, seedActor)
		if err != nil {
			return fmt.Errorf("%s: %w", item.Name, err)
		}
		g.packagingIDs[item.Name] = p.ID
		g.summary.Packaging++
	}
	return nil
}

func (g *Generator) generateProducts(ctx context.Context) error {
	categories := make(map[string]string)

	for _, spec := range Products {
		catID, ok := categories[spec.Category]
		if !ok {
			cat, err := g.inventory.CreateProductCategory(ctx, spec.Category, seedActor)
			if err != nil {
				return err
			}
			catID = cat.ID
			categories[spec.Category] = catID
			g.summary.Categories++
		}

		code := spec.Code
		p, err := g.inventory.CreateProduct(ctx, inventory.ProductInput{
			Name:              spec.Name,
			ProductCode:       &code,
			CategoryID:        &catID,
			PackagingUnitMass: decimal.RequireFromString(spec.UnitMass),
			DisplayUnit:       string(models.UnitPieces),
			Actor:             seedActor,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		g.productIDs[spec.Name] = p.ID
		g.summary.Products++

		recipe, err := g.recipeLines(spec)
		if err != nil {
			return err
		}
		if _, err := g.inventory.SetRecipe(ctx, p.ID, recipe, seedActor); err != nil {
			return fmt.Errorf("%s recipe: %w", spec.Name, err)
		}

		packaging := make([]inventory.PackagingLineInput, 0, len(spec.Packaging))
		for _, pl := range spec.Packaging {
			id, ok := g.packagingIDs[pl.Packaging]
			if !ok {
				return fmt.Errorf("%s: unknown packaging %q", spec.Name, pl.Packaging)
			}
			packaging = append(packaging, inventory.PackagingLineInput{PackagingID: id, Quantity: pl.Quantity})
		}
		if _, err := g.inventory.SetPackagingLines(ctx, p.ID, packaging, seedActor); err != nil {
			return fmt.Errorf("%s packaging: %w", spec.Name, err)
		}
	}
	return nil
}

func (g *Generator) recipeLines(spec productSpec) ([]inventory.RecipeLineInput, error) {
	lines := make([]inventory.RecipeLineInput, 0, len(spec.Recipe))
	for _, ls := range spec.Recipe {
		line := inventory.RecipeLineInput{
			Quantity: decimal.RequireFromString(ls.Quantity),
			Unit:     string(ls.Unit),
		}
		switch {
		case ls.Material != "":
			id, ok := g.materialIDs[ls.Material]
			if !ok {
				return nil, fmt.Errorf("%s: unknown material %q", spec.Name, ls.Material)
			}
			line.MaterialID = id
		default:
			id, ok := g.productIDs[ls.SubProduct]
			if !ok {
				return nil, fmt.Errorf("%s: unknown sub-product %q", spec.Name, ls.SubProduct)
			}
			line.SubProductID = id
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// lotPrefix abbreviates a material name to three upper-case letters.
func lotPrefix(name string) string {
	var prefix []rune
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if r >= 'A' && r <= 'Z' {
			prefix = append(prefix, r)
		}
		if len(prefix) == 3 {
			break
		}
	}
	return string(prefix)
}
