package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/osmo/osmo/internal/models"
)

// ============================================================================
// FINISHED PRODUCTS
// ============================================================================

func normalizeProduct(input ProductInput) (ProductInput, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return input, err
	}
	input.Name = name
	if input.PackagingUnitMass.IsNegative() {
		return input, invalid("packaging unit mass must not be negative")
	}
	if input.ProductCode != nil && strings.TrimSpace(*input.ProductCode) == "" {
		input.ProductCode = nil
	}
	if input.CategoryID != nil && *input.CategoryID == "" {
		input.CategoryID = nil
	}
	if strings.TrimSpace(input.DisplayUnit) == "" {
		input.DisplayUnit = string(models.UnitPieces)
	}
	return input, nil
}

// CreateProduct creates a finished product without a recipe.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*models.FinishedProduct, error) {
	input, err := normalizeProduct(input)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := &models.FinishedProduct{
		ID:                s.idGenerator.NewID(),
		Name:              input.Name,
		ProductCode:       input.ProductCode,
		CategoryID:        input.CategoryID,
		PackagingUnitMass: input.PackagingUnitMass,
		DisplayUnit:       input.DisplayUnit,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.products.Create(ctx, nil, p); err != nil {
		return nil, translate("creating product", err)
	}

	s.record(ctx, input.Actor, models.ActionCreate, models.EntityFinishedProduct, p.ID, p.Name)
	return p, nil
}

// UpdateProduct saves a product's descriptive fields. A product whose
// unit mass is cleared must not be used by weight in another recipe.
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (*models.FinishedProduct, error) {
	input, err := normalizeProduct(input)
	if err != nil {
		return nil, err
	}

	var p *models.FinishedProduct
	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		p, err = s.products.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.IsMassBased() && !input.PackagingUnitMass.IsPositive() {
			if err := s.checkNoMassUses(ctx, tx, p); err != nil {
				return err
			}
		}

		p.Name = input.Name
		p.ProductCode = input.ProductCode
		p.CategoryID = input.CategoryID
		p.PackagingUnitMass = input.PackagingUnitMass
		p.DisplayUnit = input.DisplayUnit
		return s.products.Update(ctx, tx, p)
	})
	if err != nil {
		return nil, translate("updating product", err)
	}

	s.record(ctx, input.Actor, models.ActionUpdate, models.EntityFinishedProduct, p.ID, p.Name)
	return p, nil
}

// checkNoMassUses fails when another recipe measures p by weight.
func (s *Service) checkNoMassUses(ctx context.Context, tx *sql.Tx, p *models.FinishedProduct) error {
	all, err := s.products.List(ctx, tx, models.ProductFilter{})
	if err != nil {
		return err
	}
	for _, other := range all {
		lines, err := s.products.GetRecipe(ctx, tx, other.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if id, ok := line.SubProductID(); ok && id == p.ID && line.Unit.IsMass() {
				return fmt.Errorf("%w: %s uses %s by weight", ErrIncompatibleUnit, other.Name, p.Name)
			}
		}
	}
	return nil
}

// GetProduct retrieves a product with its recipe and packaging lines.
func (s *Service) GetProduct(ctx context.Context, id string) (*models.FinishedProduct, error) {
	return s.products.GetWithLines(ctx, nil, id)
}

// ListProducts returns products matching filter by name.
func (s *Service) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.FinishedProduct, error) {
	return s.products.List(ctx, nil, filter)
}

// DeleteProduct deletes a product that no recipe and no order references.
func (s *Service) DeleteProduct(ctx context.Context, id, actor string) error {
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		uses, orders, err := s.products.CountReferences(ctx, tx, id)
		if err != nil {
			return err
		}
		if uses > 0 || orders > 0 {
			return fmt.Errorf("%w: %d recipe uses, %d production orders", ErrInUse, uses, orders)
		}
		return s.products.Delete(ctx, tx, id)
	})
	if err != nil {
		return translate("deleting product", err)
	}

	s.record(ctx, actor, models.ActionDelete, models.EntityFinishedProduct, id, "")
	return nil
}

// SetProductStock overwrites a product's stock after a stocktake.
func (s *Service) SetProductStock(ctx context.Context, id string, quantity int, actor string) error {
	if quantity < 0 {
		return invalid("stock must not be negative")
	}
	if err := s.products.SetStock(ctx, nil, id, quantity); err != nil {
		return translate("setting product stock", err)
	}

	slog.Info("product stock set", "product_id", id, "stock", quantity)
	s.record(ctx, actor, models.ActionSetStock, models.EntityFinishedProduct, id, fmt.Sprintf("stock %d", quantity))
	return nil
}

// ============================================================================
// RECIPES
// ============================================================================

// SetRecipe replaces a product's recipe. Every line is validated before
// anything is written: units must be recognized and comparable with the
// component, and a product may not contain itself directly or through
// its sub-products.
func (s *Service) SetRecipe(ctx context.Context, productID string, inputs []RecipeLineInput, actor string) ([]models.RecipeLine, error) {
	var lines []models.RecipeLine
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		product, err := s.products.GetByID(ctx, tx, productID)
		if err != nil {
			return err
		}

		lines = make([]models.RecipeLine, 0, len(inputs))
		for i, in := range inputs {
			line, err := s.buildRecipeLine(ctx, tx, product, i+1, in)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		}

		if err := s.checkCycle(ctx, tx, product.ID, lines); err != nil {
			return err
		}
		return s.products.ReplaceRecipe(ctx, tx, product.ID, lines)
	})
	if err != nil {
		return nil, translate("saving recipe", err)
	}

	s.record(ctx, actor, models.ActionUpdate, models.EntityFinishedProduct, productID, fmt.Sprintf("recipe with %d lines", len(lines)))
	return lines, nil
}

func (s *Service) buildRecipeLine(ctx context.Context, tx *sql.Tx, product *models.FinishedProduct, position int, in RecipeLineInput) (models.RecipeLine, error) {
	line := models.RecipeLine{
		ID:               s.idGenerator.NewID(),
		ProductID:        product.ID,
		Position:         position,
		QuantityRequired: in.Quantity,
	}

	if !in.Quantity.IsPositive() {
		return line, invalid("line %d: quantity must be positive", position)
	}
	unit, err := models.ParseUnit(in.Unit)
	if err != nil {
		return line, fmt.Errorf("line %d: %w", position, err)
	}
	line.Unit = unit

	switch {
	case in.MaterialID != "" && in.SubProductID != "":
		return line, invalid("line %d: choose a raw material or a sub-product, not both", position)

	case in.MaterialID != "":
		m, err := s.materials.GetByID(ctx, tx, in.MaterialID)
		if err != nil {
			return line, fmt.Errorf("line %d: %w", position, err)
		}
		if !models.Compatible(m.Unit, unit) {
			return line, fmt.Errorf("%w: line %d: %s is stocked in %s, got %s", ErrIncompatibleUnit, position, m.Name, m.Unit, unit)
		}
		line.Component = models.RawMaterialComponent{MaterialID: m.ID}
		line.ComponentName = m.Name

	case in.SubProductID != "":
		if in.SubProductID == product.ID {
			return line, fmt.Errorf("%w: line %d", ErrRecipeCycle, position)
		}
		sub, err := s.products.GetByID(ctx, tx, in.SubProductID)
		if err != nil {
			return line, fmt.Errorf("line %d: %w", position, err)
		}
		if unit.IsMass() && !sub.IsMassBased() {
			return line, fmt.Errorf("%w: line %d: %s has no unit mass, use %s", ErrIncompatibleUnit, position, sub.Name, models.UnitPieces)
		}
		line.Component = models.SubProductComponent{ProductID: sub.ID}
		line.ComponentName = sub.Name

	default:
		return line, invalid("line %d: a raw material or a sub-product is required", position)
	}
	return line, nil
}

// checkCycle walks the sub-product graph from the new lines and fails if
// it reaches productID again.
func (s *Service) checkCycle(ctx context.Context, tx *sql.Tx, productID string, lines []models.RecipeLine) error {
	visited := make(map[string]bool)
	var queue []string
	for _, line := range lines {
		if id, ok := line.SubProductID(); ok {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == productID {
			return ErrRecipeCycle
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		recipe, err := s.products.GetRecipe(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, line := range recipe {
			if next, ok := line.SubProductID(); ok {
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// SetPackagingLines replaces the packaging consumed per produced unit.
func (s *Service) SetPackagingLines(ctx context.Context, productID string, inputs []PackagingLineInput, actor string) ([]models.PackagingLine, error) {
	var lines []models.PackagingLine
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.products.GetByID(ctx, tx, productID); err != nil {
			return err
		}

		lines = make([]models.PackagingLine, 0, len(inputs))
		for i, in := range inputs {
			if in.Quantity <= 0 {
				return invalid("packaging line %d: quantity must be positive", i+1)
			}
			pkg, err := s.packaging.GetByID(ctx, tx, in.PackagingID)
			if err != nil {
				return fmt.Errorf("packaging line %d: %w", i+1, err)
			}
			lines = append(lines, models.PackagingLine{
				ID:               s.idGenerator.NewID(),
				ProductID:        productID,
				Position:         i + 1,
				PackagingID:      pkg.ID,
				QuantityRequired: in.Quantity,
				PackagingName:    pkg.Name,
			})
		}
		return s.products.ReplacePackagingLines(ctx, tx, productID, lines)
	})
	if err != nil {
		return nil, translate("saving packaging lines", err)
	}

	s.record(ctx, actor, models.ActionUpdate, models.EntityFinishedProduct, productID, fmt.Sprintf("packaging with %d lines", len(lines)))
	return lines, nil
}

// ============================================================================
// PACKAGING
// ============================================================================

// CreatePackaging creates a packaging item with an opening stock.
func (s *Service) CreatePackaging(ctx context.Context, name string, stock int, actor string) (*models.Packaging, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, invalid("stock must not be negative")
	}

	now := s.clock.Now()
	p := &models.Packaging{
		ID:              s.idGenerator.NewID(),
		Name:            name,
		QuantityInStock: stock,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.packaging.Create(ctx, nil, p); err != nil {
		return nil, translate("creating packaging", err)
	}

	s.record(ctx, actor, models.ActionCreate, models.EntityPackaging, p.ID, p.Name)
	return p, nil
}

// GetPackaging retrieves a packaging item.
func (s *Service) GetPackaging(ctx context.Context, id string) (*models.Packaging, error) {
	return s.packaging.GetByID(ctx, nil, id)
}

// ListPackaging returns all packaging items by name.
func (s *Service) ListPackaging(ctx context.Context) ([]*models.Packaging, error) {
	return s.packaging.List(ctx, nil)
}

// RenamePackaging changes a packaging item's name.
func (s *Service) RenamePackaging(ctx context.Context, id, name, actor string) error {
	name, err := requireName(name)
	if err != nil {
		return err
	}
	if err := s.packaging.Rename(ctx, nil, id, name); err != nil {
		return translate("renaming packaging", err)
	}

	s.record(ctx, actor, models.ActionUpdate, models.EntityPackaging, id, name)
	return nil
}

// DeletePackaging deletes a packaging item no product uses.
func (s *Service) DeletePackaging(ctx context.Context, id, actor string) error {
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		uses, err := s.packaging.CountLineUses(ctx, tx, id)
		if err != nil {
			return err
		}
		if uses > 0 {
			return fmt.Errorf("%w: used by %d products", ErrInUse, uses)
		}
		return s.packaging.Delete(ctx, tx, id)
	})
	if err != nil {
		return translate("deleting packaging", err)
	}

	s.record(ctx, actor, models.ActionDelete, models.EntityPackaging, id, "")
	return nil
}

// SetPackagingStock overwrites a packaging item's stock after a stocktake.
func (s *Service) SetPackagingStock(ctx context.Context, id string, quantity int, actor string) error {
	if quantity < 0 {
		return invalid("stock must not be negative")
	}
	if err := s.packaging.SetStock(ctx, nil, id, quantity); err != nil {
		return translate("setting packaging stock", err)
	}

	slog.Info("packaging stock set", "packaging_id", id, "stock", quantity)
	s.record(ctx, actor, models.ActionSetStock, models.EntityPackaging, id, fmt.Sprintf("stock %d", quantity))
	return nil
}
