package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/osmo/osmo/internal/models"
)

// ProductionRepository handles production orders and their consumption logs.
type ProductionRepository struct {
	db *sql.DB
}

// NewProductionRepository creates a new production repository.
func NewProductionRepository(db *sql.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// ============================================================================
// ORDERS
// ============================================================================

const orderColumns = `
	o.id, o.finished_product_id, o.batch_size, o.planned_quantity, o.produced_quantity,
	o.sample_required, o.created_at, o.updated_at, p.name`

// CreateOrder inserts a production order.
func (r *ProductionRepository) CreateOrder(ctx context.Context, tx *sql.Tx, o *models.ProductionOrder) error {
	stamp(&o.CreatedAt)
	o.UpdatedAt = o.CreatedAt

	_, err := getQuerier(r.db, tx).ExecContext(ctx, `
		INSERT INTO production_orders (
			id, finished_product_id, batch_size, planned_quantity, produced_quantity,
			sample_required, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.ProductID, o.BatchSize, o.PlannedQuantity, o.ProducedQuantity,
		boolToInt(o.SampleRequired), formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting production order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order without its logs.
func (r *ProductionRepository) GetOrder(ctx context.Context, tx *sql.Tx, id string) (*models.ProductionOrder, error) {
	row := getQuerier(r.db, tx).QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM production_orders o
		JOIN finished_products p ON p.id = o.finished_product_id
		WHERE o.id = ?`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("production order not found: %s: %w", id, ErrNotFound)
	}
	return o, err
}

// LastOrderForProduct returns the product's most recent order other than
// excludeID, or nil when there is none.
func (r *ProductionRepository) LastOrderForProduct(ctx context.Context, tx *sql.Tx, productID, excludeID string) (*models.ProductionOrder, error) {
	row := getQuerier(r.db, tx).QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM production_orders o
		JOIN finished_products p ON p.id = o.finished_product_id
		WHERE o.finished_product_id = ? AND o.id <> ?
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT 1`, productID, excludeID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// ListOrders retrieves orders newest first with pagination.
func (r *ProductionRepository) ListOrders(ctx context.Context, filter models.OrderFilter, page models.Pagination) (*models.OrderList, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM production_orders WHERE (? = '' OR finished_product_id = ?)",
		filter.ProductID, filter.ProductID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting production orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM production_orders o
		JOIN finished_products p ON p.id = o.finished_product_id
		WHERE (? = '' OR o.finished_product_id = ?)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT ? OFFSET ?`,
		filter.ProductID, filter.ProductID, page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying production orders: %w", err)
	}
	defer rows.Close()

	list := &models.OrderList{
		Total:      total,
		Page:       page.Page,
		PageSize:   page.Limit(),
		TotalPages: page.TotalPages(total),
	}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list.Orders = append(list.Orders, o)
	}
	return list, rows.Err()
}

// UpdateProduced sets the produced quantity, provided it still equals
// expected. A concurrent edit yields ErrStaleWrite.
func (r *ProductionRepository) UpdateProduced(ctx context.Context, tx *sql.Tx, id string, expected, quantity int) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, `
		UPDATE production_orders
		SET produced_quantity = ?, updated_at = ?
		WHERE id = ? AND produced_quantity = ?`,
		quantity, formatTime(time.Now()), id, expected,
	)
	if err != nil {
		return fmt.Errorf("updating produced quantity: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("updating order %s: %w", id, err)
	}
	return nil
}

// DeleteOrder removes an order. Its logs must be deleted first.
func (r *ProductionRepository) DeleteOrder(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, "DELETE FROM production_orders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting production order: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("deleting order %s: %w", id, err)
	}
	return nil
}

// ============================================================================
// CONSUMPTION LOGS
// ============================================================================

// CreateLog inserts one consumption entry.
func (r *ProductionRepository) CreateLog(ctx context.Context, tx *sql.Tx, l *models.ProductionLog) error {
	_, err := getQuerier(r.db, tx).ExecContext(ctx, `
		INSERT INTO production_logs (
			id, production_order_id, position, raw_material_batch_id, sub_product_id, quantity_consumed, unit
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrderID, l.Position, nullableString(l.BatchID), nullableString(l.SubProductID),
		l.QuantityConsumed, string(l.Unit),
	)
	if err != nil {
		return fmt.Errorf("inserting production log: %w", err)
	}
	return nil
}

// ListLogs returns an order's consumption entries in position order with
// lot numbers and material or sub-product names joined.
func (r *ProductionRepository) ListLogs(ctx context.Context, tx *sql.Tx, orderID string) ([]models.ProductionLog, error) {
	rows, err := getQuerier(r.db, tx).QueryContext(ctx, `
		SELECT l.id, l.production_order_id, l.position, l.raw_material_batch_id, l.sub_product_id,
			l.quantity_consumed, l.unit,
			COALESCE(b.batch_number, ''), COALESCE(m.name, ''), COALESCE(s.name, '')
		FROM production_logs l
		LEFT JOIN raw_material_batches b ON b.id = l.raw_material_batch_id
		LEFT JOIN raw_materials m ON m.id = b.raw_material_id
		LEFT JOIN finished_products s ON s.id = l.sub_product_id
		WHERE l.production_order_id = ?
		ORDER BY l.position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying production logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ProductionLog
	for rows.Next() {
		var l models.ProductionLog
		var batchID, subProductID sql.NullString
		var unit string

		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.Position, &batchID, &subProductID,
			&l.QuantityConsumed, &unit,
			&l.BatchNumber, &l.MaterialName, &l.SubProductName,
		); err != nil {
			return nil, fmt.Errorf("scanning production log: %w", err)
		}

		l.BatchID = stringPtr(batchID)
		l.SubProductID = stringPtr(subProductID)
		l.Unit = models.Unit(unit)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DeleteLogs removes every consumption entry of an order.
func (r *ProductionRepository) DeleteLogs(ctx context.Context, tx *sql.Tx, orderID string) error {
	if _, err := getQuerier(r.db, tx).ExecContext(ctx,
		"DELETE FROM production_logs WHERE production_order_id = ?", orderID,
	); err != nil {
		return fmt.Errorf("deleting production logs: %w", err)
	}
	return nil
}

// ConsumedBatchIDs returns the distinct lots an order consumed.
func (r *ProductionRepository) ConsumedBatchIDs(ctx context.Context, tx *sql.Tx, orderID string) ([]string, error) {
	rows, err := getQuerier(r.db, tx).QueryContext(ctx, `
		SELECT DISTINCT raw_material_batch_id
		FROM production_logs
		WHERE production_order_id = ? AND raw_material_batch_id IS NOT NULL
		ORDER BY raw_material_batch_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying consumed batches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning batch id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanOrder(row rowScanner) (*models.ProductionOrder, error) {
	var o models.ProductionOrder
	var sample int
	var createdStr, updatedStr string

	err := row.Scan(
		&o.ID, &o.ProductID, &o.BatchSize, &o.PlannedQuantity, &o.ProducedQuantity,
		&sample, &createdStr, &updatedStr, &o.ProductName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning production order: %w", err)
	}

	o.SampleRequired = sample != 0
	o.CreatedAt = parseTime(createdStr)
	o.UpdatedAt = parseTime(updatedStr)
	return &o, nil
}
