package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/util"
)

// MaterialRepository handles raw materials, their categories and lots.
type MaterialRepository struct {
	db *sql.DB
}

// NewMaterialRepository creates a new material repository.
func NewMaterialRepository(db *sql.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// ============================================================================
// CATEGORIES
// ============================================================================

// CreateCategory inserts a new material category.
func (r *MaterialRepository) CreateCategory(ctx context.Context, tx *sql.Tx, cat *models.MaterialCategory) error {
	stamp(&cat.CreatedAt)

	_, err := getQuerier(r.db, tx).ExecContext(ctx,
		"INSERT INTO material_categories (id, name, created_at) VALUES (?, ?, ?)",
		cat.ID, cat.Name, formatTime(cat.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting material category: %w", err)
	}
	return nil
}

// GetCategory retrieves a material category by ID.
func (r *MaterialRepository) GetCategory(ctx context.Context, tx *sql.Tx, id string) (*models.MaterialCategory, error) {
	var cat models.MaterialCategory
	var createdStr string

	err := getQuerier(r.db, tx).QueryRowContext(ctx,
		"SELECT id, name, created_at FROM material_categories WHERE id = ?", id,
	).Scan(&cat.ID, &cat.Name, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("material category not found: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning material category: %w", err)
	}

	cat.CreatedAt = parseTime(createdStr)
	return &cat, nil
}

// ListCategories retrieves all material categories by name.
func (r *MaterialRepository) ListCategories(ctx context.Context) ([]*models.MaterialCategory, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, created_at FROM material_categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying material categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.MaterialCategory
	for rows.Next() {
		var cat models.MaterialCategory
		var createdStr string
		if err := rows.Scan(&cat.ID, &cat.Name, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning material category: %w", err)
		}
		cat.CreatedAt = parseTime(createdStr)
		categories = append(categories, &cat)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a material category.
func (r *MaterialRepository) DeleteCategory(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, "DELETE FROM material_categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting material category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("material category not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountMaterialsInCategory returns how many raw materials use a category.
func (r *MaterialRepository) CountMaterialsInCategory(ctx context.Context, tx *sql.Tx, categoryID string) (int, error) {
	var n int
	err := getQuerier(r.db, tx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM raw_materials WHERE category_id = ?", categoryID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting materials in category: %w", err)
	}
	return n, nil
}

// ============================================================================
// RAW MATERIALS
// ============================================================================

const materialColumns = `
	m.id, m.name, m.category_id, m.unit, m.critical_threshold, m.created_at, m.updated_at,
	c.name`

// Create inserts a new raw material.
func (r *MaterialRepository) Create(ctx context.Context, tx *sql.Tx, m *models.RawMaterial) error {
	stamp(&m.CreatedAt)
	m.UpdatedAt = m.CreatedAt

	_, err := getQuerier(r.db, tx).ExecContext(ctx, `
		INSERT INTO raw_materials (id, name, category_id, unit, critical_threshold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.CategoryID, string(m.Unit), m.CriticalThreshold,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting raw material: %w", err)
	}
	return nil
}

// GetByID retrieves a raw material with its category.
func (r *MaterialRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.RawMaterial, error) {
	row := getQuerier(r.db, tx).QueryRowContext(ctx, `
		SELECT `+materialColumns+`
		FROM raw_materials m
		JOIN material_categories c ON c.id = m.category_id
		WHERE m.id = ?`, id)

	m, err := scanMaterial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raw material not found: %s: %w", id, ErrNotFound)
	}
	return m, err
}

// List retrieves every raw material by name.
func (r *MaterialRepository) List(ctx context.Context, tx *sql.Tx) ([]*models.RawMaterial, error) {
	rows, err := getQuerier(r.db, tx).QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM raw_materials m
		JOIN material_categories c ON c.id = m.category_id
		ORDER BY m.name`)
	if err != nil {
		return nil, fmt.Errorf("querying raw materials: %w", err)
	}
	defer rows.Close()

	var materials []*models.RawMaterial
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// Update saves a raw material's name, category, unit and threshold.
func (r *MaterialRepository) Update(ctx context.Context, tx *sql.Tx, m *models.RawMaterial) error {
	m.UpdatedAt = time.Now().UTC()

	result, err := getQuerier(r.db, tx).ExecContext(ctx, `
		UPDATE raw_materials
		SET name = ?, category_id = ?, unit = ?, critical_threshold = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.CategoryID, string(m.Unit), m.CriticalThreshold, formatTime(m.UpdatedAt), m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating raw material: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("raw material not found: %s: %w", m.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a raw material. Callers check references first.
func (r *MaterialRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, "DELETE FROM raw_materials WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting raw material: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("raw material not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountReferences returns how many lots and recipe lines reference a material.
func (r *MaterialRepository) CountReferences(ctx context.Context, tx *sql.Tx, id string) (lots, recipeLines int, err error) {
	err = getQuerier(r.db, tx).QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM raw_material_batches WHERE raw_material_id = ?),
			(SELECT COUNT(*) FROM recipe_lines WHERE raw_material_id = ?)`,
		id, id,
	).Scan(&lots, &recipeLines)
	if err != nil {
		return 0, 0, fmt.Errorf("counting material references: %w", err)
	}
	return lots, recipeLines, nil
}

// ============================================================================
// LOTS
// ============================================================================

const batchColumns = `
	b.id, b.raw_material_id, b.receipt_seq, b.batch_number, b.quantity_on_hand, b.unit,
	b.received_date, b.created_at, b.updated_at, m.name`

// CreateBatch inserts a lot and assigns it the next receipt sequence number.
func (r *MaterialRepository) CreateBatch(ctx context.Context, tx *sql.Tx, b *models.Batch) error {
	stamp(&b.CreatedAt)
	b.UpdatedAt = b.CreatedAt

	err := getQuerier(r.db, tx).QueryRowContext(ctx, `
		INSERT INTO raw_material_batches (
			id, raw_material_id, receipt_seq, batch_number, quantity_on_hand, unit,
			received_date, created_at, updated_at
		) VALUES (?, ?, (SELECT COALESCE(MAX(receipt_seq), 0) + 1 FROM raw_material_batches), ?, ?, ?, ?, ?, ?)
		RETURNING receipt_seq`,
		b.ID, b.RawMaterialID, b.BatchNumber, b.QuantityOnHand, string(b.Unit),
		util.FormatDate(b.ReceivedDate), formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	).Scan(&b.ReceiptSeq)
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a lot by ID.
func (r *MaterialRepository) GetBatch(ctx context.Context, tx *sql.Tx, id string) (*models.Batch, error) {
	row := getQuerier(r.db, tx).QueryRowContext(ctx, `
		SELECT `+batchColumns+`
		FROM raw_material_batches b
		JOIN raw_materials m ON m.id = b.raw_material_id
		WHERE b.id = ?`, id)

	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch not found: %s: %w", id, ErrNotFound)
	}
	return b, err
}

// ListBatches retrieves lots in FIFO order: oldest receipt date first,
// receipt sequence breaking ties.
func (r *MaterialRepository) ListBatches(ctx context.Context, tx *sql.Tx, filter models.BatchFilter) ([]*models.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM raw_material_batches b
		JOIN raw_materials m ON m.id = b.raw_material_id
		WHERE (? = '' OR b.raw_material_id = ?)
		ORDER BY b.received_date ASC, b.receipt_seq ASC`

	rows, err := getQuerier(r.db, tx).QueryContext(ctx, query, filter.RawMaterialID, filter.RawMaterialID)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		// Quantities are decimal TEXT, so positivity is checked here
		// rather than in SQL.
		if filter.OnlyAvailable && !b.QuantityOnHand.IsPositive() {
			continue
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// UpdateBatchQuantity sets a lot's quantity on hand, provided it still
// holds expected. A lot changed by someone else yields ErrStaleWrite.
func (r *MaterialRepository) UpdateBatchQuantity(ctx context.Context, tx *sql.Tx, id string, expected, quantity decimal.Decimal) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, `
		UPDATE raw_material_batches
		SET quantity_on_hand = ?, updated_at = ?
		WHERE id = ? AND quantity_on_hand = ?`,
		quantity, formatTime(time.Now()), id, expected,
	)
	if err != nil {
		return fmt.Errorf("updating batch quantity: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("updating batch %s: %w", id, err)
	}
	return nil
}

// DeleteBatch removes a lot.
func (r *MaterialRepository) DeleteBatch(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, "DELETE FROM raw_material_batches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("batch not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountBatchConsumptions returns how many production log entries reference a lot.
func (r *MaterialRepository) CountBatchConsumptions(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var n int
	err := getQuerier(r.db, tx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM production_logs WHERE raw_material_batch_id = ?", id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting batch consumptions: %w", err)
	}
	return n, nil
}

// ============================================================================
// STOCK
// ============================================================================

// ListStock totals every material's lots in the material's own unit.
// Lots in a unit incompatible with the material are skipped.
func (r *MaterialRepository) ListStock(ctx context.Context, tx *sql.Tx) ([]models.MaterialStock, error) {
	materials, err := r.List(ctx, tx)
	if err != nil {
		return nil, err
	}
	batches, err := r.ListBatches(ctx, tx, models.BatchFilter{})
	if err != nil {
		return nil, err
	}

	byMaterial := make(map[string][]*models.Batch)
	for _, b := range batches {
		byMaterial[b.RawMaterialID] = append(byMaterial[b.RawMaterialID], b)
	}

	stock := make([]models.MaterialStock, 0, len(materials))
	for _, m := range materials {
		s := models.MaterialStock{Material: *m, OnHand: decimal.Zero}
		for _, b := range byMaterial[m.ID] {
			qty, err := models.Convert(b.QuantityOnHand, b.Unit, m.Unit)
			if err != nil {
				continue
			}
			s.OnHand = s.OnHand.Add(qty)
			if b.QuantityOnHand.IsPositive() {
				s.LotCount++
			}
		}
		stock = append(stock, s)
	}

	sort.SliceStable(stock, func(i, j int) bool {
		return stock[i].Material.Name < stock[j].Material.Name
	})
	return stock, nil
}

// ============================================================================
// HELPERS
// ============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (*models.RawMaterial, error) {
	var m models.RawMaterial
	var unit, createdStr, updatedStr, categoryName string

	err := row.Scan(
		&m.ID, &m.Name, &m.CategoryID, &unit, &m.CriticalThreshold, &createdStr, &updatedStr,
		&categoryName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning raw material: %w", err)
	}

	m.Unit = models.Unit(unit)
	m.CreatedAt = parseTime(createdStr)
	m.UpdatedAt = parseTime(updatedStr)
	m.Category = &models.MaterialCategory{ID: m.CategoryID, Name: categoryName}

	return &m, nil
}

func scanBatch(row rowScanner) (*models.Batch, error) {
	var b models.Batch
	var unit, receivedStr, createdStr, updatedStr string

	err := row.Scan(
		&b.ID, &b.RawMaterialID, &b.ReceiptSeq, &b.BatchNumber, &b.QuantityOnHand, &unit,
		&receivedStr, &createdStr, &updatedStr, &b.MaterialName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning batch: %w", err)
	}

	b.Unit = models.Unit(unit)
	b.ReceivedDate, _ = util.ParseDate(receivedStr)
	b.CreatedAt = parseTime(createdStr)
	b.UpdatedAt = parseTime(updatedStr)

	return &b, nil
}
