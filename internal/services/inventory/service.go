// Package inventory manages the plant catalogue and warehouse: material
// and product categories, raw materials and their lots, finished products
// with recipes and packaging, and stock reports.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/repository"
	"github.com/osmo/osmo/internal/services/activity"
	"github.com/osmo/osmo/internal/util"
)

// Service provides catalogue and warehouse operations.
type Service struct {
	db          *database.DB
	materials   *repository.MaterialRepository
	products    *repository.ProductRepository
	packaging   *repository.PackagingRepository
	recorder    activity.Recorder
	idGenerator *util.IDGenerator
	clock       util.Clock
}

// NewService creates a new inventory service.
func NewService(db *database.DB, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = activity.Nop{}
	}
	return &Service{
		db:          db,
		materials:   repository.NewMaterialRepository(db.DB),
		products:    repository.NewProductRepository(db.DB),
		packaging:   repository.NewPackagingRepository(db.DB),
		recorder:    opts.Recorder,
		idGenerator: util.NewIDGenerator(),
		clock:       opts.Clock,
	}
}

func (s *Service) record(ctx context.Context, actor, action, entityType, entityID, detail string) {
	s.recorder.Record(ctx, models.ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	})
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name is required")
	}
	return name, nil
}

// ============================================================================
// CATEGORIES
// ============================================================================

// CreateMaterialCategory creates a new raw material category.
func (s *Service) CreateMaterialCategory(ctx context.Context, name, actor string) (*models.MaterialCategory, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	cat := &models.MaterialCategory{ID: s.idGenerator.NewID(), Name: name, CreatedAt: s.clock.Now()}
	if err := s.materials.CreateCategory(ctx, nil, cat); err != nil {
		return nil, translate("creating material category", err)
	}

	s.record(ctx, actor, models.ActionCreate, models.EntityMaterialCategory, cat.ID, cat.Name)
	return cat, nil
}

// ListMaterialCategories returns all material categories.
func (s *Service) ListMaterialCategories(ctx context.Context) ([]*models.MaterialCategory, error) {
	return s.materials.ListCategories(ctx)
}

// DeleteMaterialCategory deletes an unused material category.
func (s *Service) DeleteMaterialCategory(ctx context.Context, id, actor string) error {
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		n, err := s.materials.CountMaterialsInCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d materials in category", ErrInUse, n)
		}
		return s.materials.DeleteCategory(ctx, tx, id)
	})
	if err != nil {
		return translate("deleting material category", err)
	}

	s.record(ctx, actor, models.ActionDelete, models.EntityMaterialCategory, id, "")
	return nil
}

// CreateProductCategory creates a new finished product category.
func (s *Service) CreateProductCategory(ctx context.Context, name, actor string) (*models.ProductCategory, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	cat := &models.ProductCategory{ID: s.idGenerator.NewID(), Name: name, CreatedAt: s.clock.Now()}
	if err := s.products.CreateCategory(ctx, nil, cat); err != nil {
		return nil, translate("creating product category", err)
	}

	s.record(ctx, actor, models.ActionCreate, models.EntityProductCategory, cat.ID, cat.Name)
	return cat, nil
}

// ListProductCategories returns all product categories.
func (s *Service) ListProductCategories(ctx context.Context) ([]*models.ProductCategory, error) {
	return s.products.ListCategories(ctx)
}

// DeleteProductCategory deletes a product category no product references.
func (s *Service) DeleteProductCategory(ctx context.Context, id, actor string) error {
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		n, err := s.products.CountProductsInCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d products in category", ErrInUse, n)
		}
		return s.products.DeleteCategory(ctx, tx, id)
	})
	if err != nil {
		return translate("deleting product category", err)
	}

	s.record(ctx, actor, models.ActionDelete, models.EntityProductCategory, id, "")
	return nil
}

// ============================================================================
// RAW MATERIALS
// ============================================================================

// CreateMaterial creates a new raw material. The unit must be recognized.
func (s *Service) CreateMaterial(ctx context.Context, input CreateMaterialInput) (*models.RawMaterial, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	unit, err := models.ParseUnit(input.Unit)
	if err != nil {
		return nil, err
	}
	if input.CriticalThreshold.IsNegative() {
		return nil, invalid("critical threshold must not be negative")
	}

	now := s.clock.Now()
	m := &models.RawMaterial{
		ID:                s.idGenerator.NewID(),
		Name:              name,
		CategoryID:        input.CategoryID,
		Unit:              unit,
		CriticalThreshold: input.CriticalThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.materials.Create(ctx, nil, m); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("material category %s: %w", input.CategoryID, ErrNotFound)
		}
		return nil, translate("creating raw material", err)
	}

	s.record(ctx, input.Actor, models.ActionCreate, models.EntityRawMaterial, m.ID, m.Name)
	return m, nil
}

// GetMaterial retrieves a raw material with its category.
func (s *Service) GetMaterial(ctx context.Context, id string) (*models.RawMaterial, error) {
	m, err := s.materials.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("getting raw material: %w", err)
	}

	cat, err := s.materials.GetCategory(ctx, nil, m.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("getting category of %s: %w", m.Name, err)
	}
	m.Category = cat
	return m, nil
}

// ListMaterials returns all raw materials by name.
func (s *Service) ListMaterials(ctx context.Context) ([]*models.RawMaterial, error) {
	return s.materials.List(ctx, nil)
}

// UpdateMaterial saves a raw material. The unit may only change to one
// its existing lots and recipe lines can still be compared with.
func (s *Service) UpdateMaterial(ctx context.Context, input UpdateMaterialInput) (*models.RawMaterial, error) {
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	unit, err := models.ParseUnit(input.Unit)
	if err != nil {
		return nil, err
	}
	if input.CriticalThreshold.IsNegative() {
		return nil, invalid("critical threshold must not be negative")
	}

	var m *models.RawMaterial
	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		m, err = s.materials.GetByID(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if !models.Compatible(m.Unit, unit) {
			lots, lines, err := s.materials.CountReferences(ctx, tx, m.ID)
			if err != nil {
				return err
			}
			if lots+lines > 0 {
				return fmt.Errorf("%w: %s is stocked in %s", ErrIncompatibleUnit, m.Name, m.Unit)
			}
		}

		m.Name = name
		m.CategoryID = input.CategoryID
		m.Unit = unit
		m.CriticalThreshold = input.CriticalThreshold
		return s.materials.Update(ctx, tx, m)
	})
	if err != nil {
		return nil, translate("updating raw material", err)
	}

	s.record(ctx, input.Actor, models.ActionUpdate, models.EntityRawMaterial, m.ID, m.Name)
	return m, nil
}

// DeleteMaterial deletes a raw material with no lots and no recipe uses.
func (s *Service) DeleteMaterial(ctx context.Context, id, actor string) error {
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		lots, lines, err := s.materials.CountReferences(ctx, tx, id)
		if err != nil {
			return err
		}
		if lots > 0 || lines > 0 {
			return fmt.Errorf("%w: %d lots, %d recipe lines", ErrInUse, lots, lines)
		}
		return s.materials.Delete(ctx, tx, id)
	})
	if err != nil {
		return translate("deleting raw material", err)
	}

	s.record(ctx, actor, models.ActionDelete, models.EntityRawMaterial, id, "")
	return nil
}

// ============================================================================
// LOTS
// ============================================================================

// ReceiveBatch books a goods receipt as a new lot. The lot's unit must be
// comparable with the material's unit.
func (s *Service) ReceiveBatch(ctx context.Context, input ReceiveBatchInput) (*models.Batch, error) {
	if !input.Quantity.IsPositive() {
		return nil, invalid("received quantity must be positive")
	}
	number := strings.TrimSpace(input.BatchNumber)
	if number == "" {
		return nil, invalid("batch number is required")
	}
	unit, err := models.ParseUnit(input.Unit)
	if err != nil {
		return nil, err
	}

	received := input.ReceivedDate
	if received.IsZero() {
		received = s.clock.Now()
	}

	var b *models.Batch
	err = s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		m, err := s.materials.GetByID(ctx, tx, input.MaterialID)
		if err != nil {
			return err
		}
		if !models.Compatible(m.Unit, unit) {
			return fmt.Errorf("%w: %s is stocked in %s, got %s", ErrIncompatibleUnit, m.Name, m.Unit, unit)
		}

		now := s.clock.Now()
		b = &models.Batch{
			ID:             s.idGenerator.NewID(),
			RawMaterialID:  m.ID,
			BatchNumber:    number,
			QuantityOnHand: input.Quantity,
			Unit:           unit,
			ReceivedDate:   util.StartOfDay(received),
			CreatedAt:      now,
			UpdatedAt:      now,
			MaterialName:   m.Name,
		}
		return s.materials.CreateBatch(ctx, tx, b)
	})
	if err != nil {
		return nil, translate("receiving batch", err)
	}

	slog.Info("batch received",
		"batch_id", b.ID,
		"material_id", b.RawMaterialID,
		"quantity", models.FormatQuantity(b.QuantityOnHand, b.Unit),
	)
	s.record(ctx, input.Actor, models.ActionReceiveBatch, models.EntityBatch, b.ID,
		fmt.Sprintf("%s %s", b.BatchNumber, models.FormatQuantity(b.QuantityOnHand, b.Unit)))
	return b, nil
}

// ListBatches returns a material's lots oldest first.
func (s *Service) ListBatches(ctx context.Context, materialID string, onlyAvailable bool) ([]*models.Batch, error) {
	return s.materials.ListBatches(ctx, nil, models.BatchFilter{
		RawMaterialID: materialID,
		OnlyAvailable: onlyAvailable,
	})
}

// AdjustBatch corrects a lot's quantity on hand. Once production has drawn
// from a lot its quantity may only be lowered, so the consumption ledger
// keeps adding up.
func (s *Service) AdjustBatch(ctx context.Context, input AdjustBatchInput) (*models.Batch, error) {
	if input.Quantity.IsNegative() {
		return nil, invalid("quantity must not be negative")
	}

	var b *models.Batch
	var previous decimal.Decimal
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = s.materials.GetBatch(ctx, tx, input.BatchID)
		if err != nil {
			return err
		}
		previous = b.QuantityOnHand

		if input.Quantity.GreaterThan(previous) {
			uses, err := s.materials.CountBatchConsumptions(ctx, tx, b.ID)
			if err != nil {
				return err
			}
			if uses > 0 {
				return fmt.Errorf("%w: lot %s", ErrLotIncrease, b.BatchNumber)
			}
		}

		if err := s.materials.UpdateBatchQuantity(ctx, tx, b.ID, previous, input.Quantity); err != nil {
			return err
		}
		b.QuantityOnHand = input.Quantity
		return nil
	})
	if err != nil {
		return nil, translate("adjusting batch", err)
	}

	s.record(ctx, input.Actor, models.ActionAdjustBatch, models.EntityBatch, b.ID,
		fmt.Sprintf("%s %s -> %s", b.BatchNumber, previous.String(), models.FormatQuantity(b.QuantityOnHand, b.Unit)))
	return b, nil
}

// DeleteBatch deletes a lot production has never drawn from.
func (s *Service) DeleteBatch(ctx context.Context, id, actor string) error {
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		uses, err := s.materials.CountBatchConsumptions(ctx, tx, id)
		if err != nil {
			return err
		}
		if uses > 0 {
			return fmt.Errorf("%w: lot consumed by %d production entries", ErrInUse, uses)
		}
		return s.materials.DeleteBatch(ctx, tx, id)
	})
	if err != nil {
		return translate("deleting batch", err)
	}

	s.record(ctx, actor, models.ActionDelete, models.EntityBatch, id, "")
	return nil
}
