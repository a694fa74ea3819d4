package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/osmo/osmo/internal/models"
)

// ProductRepository handles finished products, their recipes and packaging lines.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ============================================================================
// CATEGORIES
// ============================================================================

// CreateCategory inserts a new product category.
func (r *ProductRepository) CreateCategory(ctx context.Context, tx *sql.Tx, cat *models.ProductCategory) error {
	stamp(&cat.CreatedAt)

	_, err := getQuerier(r.db, tx).ExecContext(ctx,
		"INSERT INTO product_categories (id, name, created_at) VALUES (?, ?, ?)",
		cat.ID, cat.Name, formatTime(cat.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting product category: %w", err)
	}
	return nil
}

// ListCategories retrieves all product categories by name.
func (r *ProductRepository) ListCategories(ctx context.Context) ([]*models.ProductCategory, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, created_at FROM product_categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying product categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.ProductCategory
	for rows.Next() {
		var cat models.ProductCategory
		var createdStr string
		if err := rows.Scan(&cat.ID, &cat.Name, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning product category: %w", err)
		}
		cat.CreatedAt = parseTime(createdStr)
		categories = append(categories, &cat)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a product category.
func (r *ProductRepository) DeleteCategory(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, "DELETE FROM product_categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting product category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("product category not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountProductsInCategory returns how many products use a category.
func (r *ProductRepository) CountProductsInCategory(ctx context.Context, tx *sql.Tx, categoryID string) (int, error) {
	var n int
	err := getQuerier(r.db, tx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM finished_products WHERE category_id = ?", categoryID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting products in category: %w", err)
	}
	return n, nil
}

// ============================================================================
// PRODUCTS
// ============================================================================

const productColumns = `
	p.id, p.name, p.product_code, p.category_id, p.packaging_unit_mass, p.display_unit,
	p.quantity_in_stock, p.created_at, p.updated_at, c.name`

// Create inserts a new finished product. Recipe and packaging lines are
// saved separately.
func (r *ProductRepository) Create(ctx context.Context, tx *sql.Tx, p *models.FinishedProduct) error {
	stamp(&p.CreatedAt)
	p.UpdatedAt = p.CreatedAt

	_, err := getQuerier(r.db, tx).ExecContext(ctx, `
		INSERT INTO finished_products (
			id, name, product_code, category_id, packaging_unit_mass, display_unit,
			quantity_in_stock, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, nullableString(p.ProductCode), nullableString(p.CategoryID),
		p.PackagingUnitMass, p.DisplayUnit, p.QuantityInStock,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

// GetByID retrieves a product without its recipe.
func (r *ProductRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.FinishedProduct, error) {
	row := getQuerier(r.db, tx).QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM finished_products p
		LEFT JOIN product_categories c ON c.id = p.category_id
		WHERE p.id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product not found: %s: %w", id, ErrNotFound)
	}
	return p, err
}

// GetWithLines retrieves a product with its recipe and packaging lines.
func (r *ProductRepository) GetWithLines(ctx context.Context, tx *sql.Tx, id string) (*models.FinishedProduct, error) {
	p, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Recipe, err = r.GetRecipe(ctx, tx, id); err != nil {
		return nil, err
	}
	if p.Packaging, err = r.GetPackagingLines(ctx, tx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// List retrieves products matching filter, ordered by name.
func (r *ProductRepository) List(ctx context.Context, tx *sql.Tx, filter models.ProductFilter) ([]*models.FinishedProduct, error) {
	var conditions []string
	var args []any

	if filter.CategoryID != "" {
		conditions = append(conditions, "p.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.SearchTerm != "" {
		conditions = append(conditions, "(p.name LIKE ? OR p.product_code LIKE ?)")
		term := "%" + filter.SearchTerm + "%"
		args = append(args, term, term)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := getQuerier(r.db, tx).QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM finished_products p
		LEFT JOIN product_categories c ON c.id = p.category_id
		`+whereClause+`
		ORDER BY p.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []*models.FinishedProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update saves a product's descriptive fields. Stock is changed only
// through the stock methods.
func (r *ProductRepository) Update(ctx context.Context, tx *sql.Tx, p *models.FinishedProduct) error {
	p.UpdatedAt = time.Now().UTC()

	result, err := getQuerier(r.db, tx).ExecContext(ctx, `
		UPDATE finished_products
		SET name = ?, product_code = ?, category_id = ?, packaging_unit_mass = ?, display_unit = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, nullableString(p.ProductCode), nullableString(p.CategoryID),
		p.PackagingUnitMass, p.DisplayUnit, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("product not found: %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a product; its recipe and packaging lines cascade.
func (r *ProductRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, "DELETE FROM finished_products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("product not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountReferences returns how many other recipes use the product as a
// sub-product and how many production orders exist for it.
func (r *ProductRepository) CountReferences(ctx context.Context, tx *sql.Tx, id string) (subProductUses, orders int, err error) {
	err = getQuerier(r.db, tx).QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM recipe_lines WHERE sub_product_id = ?),
			(SELECT COUNT(*) FROM production_orders WHERE finished_product_id = ?)`,
		id, id,
	).Scan(&subProductUses, &orders)
	if err != nil {
		return 0, 0, fmt.Errorf("counting product references: %w", err)
	}
	return subProductUses, orders, nil
}

// ============================================================================
// STOCK
// ============================================================================

// AdjustStock adds delta to the product's stock and returns the new count.
// The counter is allowed to go negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, tx *sql.Tx, id string, delta int) (int, error) {
	var stock int
	err := getQuerier(r.db, tx).QueryRowContext(ctx, `
		UPDATE finished_products
		SET quantity_in_stock = quantity_in_stock + ?, updated_at = ?
		WHERE id = ?
		RETURNING quantity_in_stock`,
		delta, formatTime(time.Now()), id,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("product not found: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("adjusting product stock: %w", err)
	}
	return stock, nil
}

// ConsumeStock removes quantity packages, failing with ErrStaleWrite when
// fewer remain.
func (r *ProductRepository) ConsumeStock(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, `
		UPDATE finished_products
		SET quantity_in_stock = quantity_in_stock - ?, updated_at = ?
		WHERE id = ? AND quantity_in_stock >= ?`,
		quantity, formatTime(time.Now()), id, quantity,
	)
	if err != nil {
		return fmt.Errorf("consuming product stock: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("consuming product %s: %w", id, err)
	}
	return nil
}

// SetStock overwrites the product's stock count.
func (r *ProductRepository) SetStock(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx,
		"UPDATE finished_products SET quantity_in_stock = ?, updated_at = ? WHERE id = ?",
		quantity, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("setting product stock: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("product not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// ============================================================================
// RECIPE AND PACKAGING LINES
// ============================================================================

// GetRecipe returns the product's recipe lines in position order with
// component names joined.
func (r *ProductRepository) GetRecipe(ctx context.Context, tx *sql.Tx, productID string) ([]models.RecipeLine, error) {
	rows, err := getQuerier(r.db, tx).QueryContext(ctx, `
		SELECT l.id, l.finished_product_id, l.position, l.raw_material_id, l.sub_product_id,
			l.quantity_required, l.unit, COALESCE(m.name, s.name, '')
		FROM recipe_lines l
		LEFT JOIN raw_materials m ON m.id = l.raw_material_id
		LEFT JOIN finished_products s ON s.id = l.sub_product_id
		WHERE l.finished_product_id = ?
		ORDER BY l.position`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying recipe lines: %w", err)
	}
	defer rows.Close()

	var lines []models.RecipeLine
	for rows.Next() {
		var l models.RecipeLine
		var materialID, subProductID sql.NullString
		var unit string

		if err := rows.Scan(
			&l.ID, &l.ProductID, &l.Position, &materialID, &subProductID,
			&l.QuantityRequired, &unit, &l.ComponentName,
		); err != nil {
			return nil, fmt.Errorf("scanning recipe line: %w", err)
		}

		l.Unit = models.Unit(unit)
		switch {
		case materialID.Valid:
			l.Component = models.RawMaterialComponent{MaterialID: materialID.String}
		case subProductID.Valid:
			l.Component = models.SubProductComponent{ProductID: subProductID.String}
		default:
			return nil, fmt.Errorf("recipe line %s has no component", l.ID)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ReplaceRecipe deletes the product's recipe lines and inserts lines in
// their slice order.
func (r *ProductRepository) ReplaceRecipe(ctx context.Context, tx *sql.Tx, productID string, lines []models.RecipeLine) error {
	q := getQuerier(r.db, tx)

	if _, err := q.ExecContext(ctx, "DELETE FROM recipe_lines WHERE finished_product_id = ?", productID); err != nil {
		return fmt.Errorf("clearing recipe lines: %w", err)
	}

	for i := range lines {
		l := &lines[i]
		l.ProductID = productID
		l.Position = i + 1

		var materialID, subProductID sql.NullString
		switch c := l.Component.(type) {
		case models.RawMaterialComponent:
			materialID = sql.NullString{String: c.MaterialID, Valid: true}
		case models.SubProductComponent:
			subProductID = sql.NullString{String: c.ProductID, Valid: true}
		default:
			return fmt.Errorf("recipe line %d has no component", l.Position)
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO recipe_lines (
				id, finished_product_id, position, raw_material_id, sub_product_id, quantity_required, unit
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.ID, productID, l.Position, materialID, subProductID, l.QuantityRequired, string(l.Unit),
		)
		if err != nil {
			return fmt.Errorf("inserting recipe line %d: %w", l.Position, err)
		}
	}
	return nil
}

// GetPackagingLines returns the product's packaging lines in position order.
func (r *ProductRepository) GetPackagingLines(ctx context.Context, tx *sql.Tx, productID string) ([]models.PackagingLine, error) {
	rows, err := getQuerier(r.db, tx).QueryContext(ctx, `
		SELECT l.id, l.finished_product_id, l.position, l.packaging_id, l.quantity_required, p.name
		FROM packaging_lines l
		JOIN packaging p ON p.id = l.packaging_id
		WHERE l.finished_product_id = ?
		ORDER BY l.position`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying packaging lines: %w", err)
	}
	defer rows.Close()

	var lines []models.PackagingLine
	for rows.Next() {
		var l models.PackagingLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Position, &l.PackagingID, &l.QuantityRequired, &l.PackagingName); err != nil {
			return nil, fmt.Errorf("scanning packaging line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ReplacePackagingLines deletes the product's packaging lines and inserts
// lines in their slice order.
func (r *ProductRepository) ReplacePackagingLines(ctx context.Context, tx *sql.Tx, productID string, lines []models.PackagingLine) error {
	q := getQuerier(r.db, tx)

	if _, err := q.ExecContext(ctx, "DELETE FROM packaging_lines WHERE finished_product_id = ?", productID); err != nil {
		return fmt.Errorf("clearing packaging lines: %w", err)
	}

	for i := range lines {
		l := &lines[i]
		l.ProductID = productID
		l.Position = i + 1

		_, err := q.ExecContext(ctx, `
			INSERT INTO packaging_lines (id, finished_product_id, position, packaging_id, quantity_required)
			VALUES (?, ?, ?, ?, ?)`,
			l.ID, productID, l.Position, l.PackagingID, l.QuantityRequired,
		)
		if err != nil {
			return fmt.Errorf("inserting packaging line %d: %w", l.Position, err)
		}
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func scanProduct(row rowScanner) (*models.FinishedProduct, error) {
	var p models.FinishedProduct
	var code, categoryID, categoryName sql.NullString
	var createdStr, updatedStr string

	err := row.Scan(
		&p.ID, &p.Name, &code, &categoryID, &p.PackagingUnitMass, &p.DisplayUnit,
		&p.QuantityInStock, &createdStr, &updatedStr, &categoryName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}

	p.ProductCode = stringPtr(code)
	p.CategoryID = stringPtr(categoryID)
	if categoryID.Valid {
		p.Category = &models.ProductCategory{ID: categoryID.String, Name: categoryName.String}
	}
	p.CreatedAt = parseTime(createdStr)
	p.UpdatedAt = parseTime(updatedStr)

	return &p, nil
}
