// Package production implements production orders: planning a batch
// against current stock, consuming lots oldest first, and reversing the
// consumption when an order is corrected or deleted.
package production

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/repository"
	"github.com/osmo/osmo/internal/services/activity"
	"github.com/osmo/osmo/internal/util"
)

// Service provides production order operations.
type Service struct {
	db          *database.DB
	materials   *repository.MaterialRepository
	products    *repository.ProductRepository
	packaging   *repository.PackagingRepository
	orders      *repository.ProductionRepository
	recorder    activity.Recorder
	idGenerator *util.IDGenerator
	clock       util.Clock
	tolerance   decimal.Decimal
}

// NewService creates a new production service.
func NewService(db *database.DB, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = activity.Nop{}
	}
	if opts.Tolerance.IsNegative() {
		opts.Tolerance = decimal.Zero
	}

	return &Service{
		db:          db,
		materials:   repository.NewMaterialRepository(db.DB),
		products:    repository.NewProductRepository(db.DB),
		packaging:   repository.NewPackagingRepository(db.DB),
		orders:      repository.NewProductionRepository(db.DB),
		recorder:    opts.Recorder,
		idGenerator: util.NewIDGenerator(),
		clock:       opts.Clock,
		tolerance:   opts.Tolerance,
	}
}

// ============================================================================
// PLANNING
// ============================================================================

// PreviewOrder evaluates a batch against current stock without writing.
// Shortages and a non-positive output are reported in the plan, not as
// errors.
func (s *Service) PreviewOrder(ctx context.Context, productID string, batchSize int) (*Plan, error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	plan, err := s.plan(ctx, nil, productID, batchSize)
	if err != nil {
		return nil, classify("previewing production order", err)
	}
	return plan, nil
}

// plan resolves the recipe and evaluates it against the stock visible
// through tx.
func (s *Service) plan(ctx context.Context, tx *sql.Tx, productID string, batchSize int) (*Plan, error) {
	product, lines, err := s.resolveRecipe(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadStock(ctx, tx, lines)
	if err != nil {
		return nil, err
	}

	return buildPlan(product, lines, batchSize, snap, s.tolerance)
}

// resolveRecipe returns the product and its ordered recipe lines.
func (s *Service) resolveRecipe(ctx context.Context, tx *sql.Tx, productID string) (*models.FinishedProduct, []models.RecipeLine, error) {
	product, err := s.products.GetByID(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return nil, nil, err
	}

	lines, err := s.products.GetRecipe(ctx, tx, productID)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoRecipeDefined, product.Name)
	}
	return product, lines, nil
}

// loadStock reads the available lots and sub-products the lines consume.
func (s *Service) loadStock(ctx context.Context, tx *sql.Tx, lines []models.RecipeLine) (stockSnapshot, error) {
	snap := stockSnapshot{
		lots:     make(map[string][]*models.Batch),
		products: make(map[string]*models.FinishedProduct),
	}

	for _, line := range lines {
		if materialID, ok := line.RawMaterialID(); ok {
			if _, loaded := snap.lots[materialID]; loaded {
				continue
			}
			lots, err := s.materials.ListBatches(ctx, tx, models.BatchFilter{
				RawMaterialID: materialID,
				OnlyAvailable: true,
			})
			if err != nil {
				return snap, err
			}
			snap.lots[materialID] = lots
		}
		if productID, ok := line.SubProductID(); ok {
			if _, loaded := snap.products[productID]; loaded {
				continue
			}
			sub, err := s.products.GetByID(ctx, tx, productID)
			if err != nil {
				return snap, err
			}
			snap.products[productID] = sub
		}
	}
	return snap, nil
}

// ============================================================================
// ORDERS
// ============================================================================

// CreateOrder plans the batch, consumes its inputs oldest lot first and
// records the order, all in one transaction. No stock is touched when the
// batch is short or yields nothing.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.ProductionOrder, error) {
	if input.BatchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	var order *models.ProductionOrder
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		plan, err := s.plan(ctx, tx, input.ProductID, input.BatchSize)
		if err != nil {
			return err
		}
		if !plan.Shortage.Empty() {
			return &ShortageError{Report: plan.Shortage}
		}
		if plan.Output <= 0 {
			return &InsufficientYieldError{
				BatchSize: input.BatchSize,
				TotalMass: plan.TotalMass,
				UnitMass:  plan.UnitMass,
			}
		}

		sample, err := s.sampleRequired(ctx, tx, plan)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		order = &models.ProductionOrder{
			ID:              s.idGenerator.NewID(),
			ProductID:       plan.ProductID,
			BatchSize:       input.BatchSize,
			PlannedQuantity: plan.Output,
			SampleRequired:  sample,
			CreatedAt:       now,
			UpdatedAt:       now,
			ProductName:     plan.ProductName,
		}
		if err := s.orders.CreateOrder(ctx, tx, order); err != nil {
			return err
		}

		return s.consume(ctx, tx, order, plan)
	})
	if err != nil {
		err = classify("creating production order", err)
		s.logFailure("production order rejected", err,
			"product_id", input.ProductID,
			"batch_size", input.BatchSize,
		)
		return nil, err
	}

	slog.Info("production order created",
		"order_id", order.ID,
		"product_id", order.ProductID,
		"batch_size", order.BatchSize,
		"planned", order.PlannedQuantity,
		"sample_required", order.SampleRequired,
		"lines", len(order.Logs),
	)
	s.recorder.Record(ctx, models.ActivityEntry{
		Actor:      input.Actor,
		Action:     models.ActionCreateProductionOrder,
		EntityType: models.EntityProductionOrder,
		EntityID:   order.ID,
		Detail:     fmt.Sprintf("%s batch %d, planned %d", order.ProductName, order.BatchSize, order.PlannedQuantity),
	})
	return order, nil
}

// sampleRequired reports whether the order needs a quality sample: the
// product was never produced before, or the lots drawn differ from those
// of its latest order.
func (s *Service) sampleRequired(ctx context.Context, tx *sql.Tx, plan *Plan) (bool, error) {
	last, err := s.orders.LastOrderForProduct(ctx, tx, plan.ProductID, "")
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}

	previous, err := s.orders.ConsumedBatchIDs(ctx, tx, last.ID)
	if err != nil {
		return false, err
	}
	return !sameSet(previous, plan.ConsumedBatchIDs()), nil
}

// consume applies the plan's lot and sub-product takes and writes one log
// entry per take. Each write is guarded on the quantity the plan read.
func (s *Service) consume(ctx context.Context, tx *sql.Tx, order *models.ProductionOrder, plan *Plan) error {
	position := 0
	for _, lp := range plan.Lines {
		for _, a := range lp.Allocations {
			if !a.Quantity.IsPositive() {
				continue
			}
			if err := s.materials.UpdateBatchQuantity(ctx, tx, a.BatchID, a.Before, a.After); err != nil {
				return err
			}

			position++
			batchID := a.BatchID
			log := models.ProductionLog{
				ID:               s.idGenerator.NewID(),
				OrderID:          order.ID,
				Position:         position,
				BatchID:          &batchID,
				QuantityConsumed: a.Quantity,
				Unit:             a.Unit,
				BatchNumber:      a.BatchNumber,
				MaterialName:     lp.Line.ComponentName,
			}
			if err := s.orders.CreateLog(ctx, tx, &log); err != nil {
				return err
			}
			order.Logs = append(order.Logs, log)
		}

		productID, ok := lp.Line.SubProductID()
		if !ok || lp.Packages == 0 {
			continue
		}
		if err := s.products.ConsumeStock(ctx, tx, productID, lp.Packages); err != nil {
			return err
		}

		position++
		log := models.ProductionLog{
			ID:               s.idGenerator.NewID(),
			OrderID:          order.ID,
			Position:         position,
			SubProductID:     &productID,
			QuantityConsumed: decimal.NewFromInt(int64(lp.Packages)),
			Unit:             models.UnitPieces,
			SubProductName:   lp.Line.ComponentName,
		}
		if err := s.orders.CreateLog(ctx, tx, &log); err != nil {
			return err
		}
		order.Logs = append(order.Logs, log)
	}
	return nil
}

// SetProducedQuantity records the actual output of an order. The change
// against the previous produced quantity is added to the product's stock
// and the matching packaging is taken from packaging stock.
func (s *Service) SetProducedQuantity(ctx context.Context, input SetProducedInput) (*models.ProductionOrder, error) {
	if input.ProducedQuantity < 0 {
		return nil, ErrInvalidQuantity
	}

	var order *models.ProductionOrder
	var delta int
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.getOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}

		delta = input.ProducedQuantity - order.ProducedQuantity
		if delta == 0 {
			return nil
		}

		if err := s.orders.UpdateProduced(ctx, tx, order.ID, order.ProducedQuantity, input.ProducedQuantity); err != nil {
			return err
		}
		order.ProducedQuantity = input.ProducedQuantity
		order.UpdatedAt = s.clock.Now()

		return s.applyOutput(ctx, tx, order.ProductID, delta)
	})
	if err != nil {
		err = classify("setting produced quantity", err)
		s.logFailure("setting produced quantity failed", err, "order_id", input.OrderID)
		return nil, err
	}
	if delta == 0 {
		return order, nil
	}

	slog.Info("produced quantity set",
		"order_id", order.ID,
		"product_id", order.ProductID,
		"produced", order.ProducedQuantity,
		"delta", delta,
	)
	s.recorder.Record(ctx, models.ActivityEntry{
		Actor:      input.Actor,
		Action:     models.ActionSetProducedQuantity,
		EntityType: models.EntityProductionOrder,
		EntityID:   order.ID,
		Detail:     fmt.Sprintf("produced %d (%+d)", order.ProducedQuantity, delta),
	})
	return order, nil
}

// applyOutput adds delta packages of the product to stock and takes the
// packaging they need. Counters may go negative; that is logged.
func (s *Service) applyOutput(ctx context.Context, tx *sql.Tx, productID string, delta int) error {
	stock, err := s.products.AdjustStock(ctx, tx, productID, delta)
	if err != nil {
		return err
	}
	if stock < 0 {
		slog.Warn("finished product stock is negative", "product_id", productID, "stock", stock)
	}

	lines, err := s.products.GetPackagingLines(ctx, tx, productID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		left, err := s.packaging.AdjustStock(ctx, tx, line.PackagingID, -line.QuantityRequired*delta)
		if err != nil {
			return err
		}
		if left < 0 {
			slog.Warn("packaging stock is negative", "packaging_id", line.PackagingID, "stock", left)
		}
	}
	return nil
}

// DeleteOrder reverses everything the order did and removes it: consumed
// lots and sub-products are restored from the log, and any recorded
// output is taken back out of product and packaging stock.
func (s *Service) DeleteOrder(ctx context.Context, input DeleteOrderInput) error {
	var order *models.ProductionOrder
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.getOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}

		for _, log := range order.Logs {
			if err := s.restore(ctx, tx, log); err != nil {
				return err
			}
		}

		if order.ProducedQuantity != 0 {
			if err := s.applyOutput(ctx, tx, order.ProductID, -order.ProducedQuantity); err != nil {
				return err
			}
		}

		if err := s.orders.DeleteLogs(ctx, tx, order.ID); err != nil {
			return err
		}
		return s.orders.DeleteOrder(ctx, tx, order.ID)
	})
	if err != nil {
		err = classify("deleting production order", err)
		s.logFailure("deleting production order failed", err, "order_id", input.OrderID)
		return err
	}

	slog.Info("production order deleted",
		"order_id", order.ID,
		"product_id", order.ProductID,
		"restored", len(order.Logs),
	)
	s.recorder.Record(ctx, models.ActivityEntry{
		Actor:      input.Actor,
		Action:     models.ActionDeleteProductionOrder,
		EntityType: models.EntityProductionOrder,
		EntityID:   order.ID,
		Detail:     fmt.Sprintf("%s batch %d", order.ProductName, order.BatchSize),
	})
	return nil
}

// restore gives one logged consumption back to its source.
func (s *Service) restore(ctx context.Context, tx *sql.Tx, log models.ProductionLog) error {
	if log.SubProductID != nil {
		_, err := s.products.AdjustStock(ctx, tx, *log.SubProductID, int(log.QuantityConsumed.IntPart()))
		return err
	}
	if log.BatchID == nil {
		return fmt.Errorf("log %s has no source", log.ID)
	}

	lot, err := s.materials.GetBatch(ctx, tx, *log.BatchID)
	if err != nil {
		return err
	}
	qty, err := models.Convert(log.QuantityConsumed, log.Unit, lot.Unit)
	if err != nil {
		return fmt.Errorf("restoring lot %s: %w", lot.BatchNumber, err)
	}
	return s.materials.UpdateBatchQuantity(ctx, tx, lot.ID, lot.QuantityOnHand, lot.QuantityOnHand.Add(qty))
}

// GetOrder returns an order with its consumption log.
func (s *Service) GetOrder(ctx context.Context, id string) (*models.ProductionOrder, error) {
	order, err := s.getOrder(ctx, nil, id)
	if err != nil {
		return nil, classify("getting production order", err)
	}
	return order, nil
}

func (s *Service) getOrder(ctx context.Context, tx *sql.Tx, id string) (*models.ProductionOrder, error) {
	order, err := s.orders.GetOrder(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, err
	}

	order.Logs, err = s.orders.ListLogs(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns orders newest first.
func (s *Service) ListOrders(ctx context.Context, filter models.OrderFilter, page models.Pagination) (*models.OrderList, error) {
	list, err := s.orders.ListOrders(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("listing production orders: %w", err)
	}
	return list, nil
}

// RecentOrders returns the latest limit orders.
func (s *Service) RecentOrders(ctx context.Context, limit int) ([]*models.ProductionOrder, error) {
	list, err := s.ListOrders(ctx, models.OrderFilter{}, models.Pagination{Page: 1, PageSize: limit})
	if err != nil {
		return nil, err
	}
	return list.Orders, nil
}

// logFailure logs an operation failure at a level matching its kind.
func (s *Service) logFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)

	var persistence *PersistenceError
	switch {
	case errors.As(err, &persistence):
		slog.Error(msg, attrs...)
	case IsRetryable(err):
		slog.Warn(msg, attrs...)
	default:
		slog.Info(msg, attrs...)
	}
}
