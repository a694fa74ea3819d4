package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/osmo/osmo/internal/models"
)

// PackagingRepository handles packaging SKUs and their stock counters.
type PackagingRepository struct {
	db *sql.DB
}

// NewPackagingRepository creates a new packaging repository.
func NewPackagingRepository(db *sql.DB) *PackagingRepository {
	return &PackagingRepository{db: db}
}

// Create inserts a packaging item.
func (r *PackagingRepository) Create(ctx context.Context, tx *sql.Tx, p *models.Packaging) error {
	stamp(&p.CreatedAt)
	p.UpdatedAt = p.CreatedAt

	_, err := getQuerier(r.db, tx).ExecContext(ctx, `
		INSERT INTO packaging (id, name, quantity_in_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.QuantityInStock, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting packaging: %w", err)
	}
	return nil
}

// GetByID retrieves a packaging item.
func (r *PackagingRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Packaging, error) {
	p, err := scanPackaging(getQuerier(r.db, tx).QueryRowContext(ctx,
		"SELECT id, name, quantity_in_stock, created_at, updated_at FROM packaging WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("packaging not found: %s: %w", id, ErrNotFound)
	}
	return p, err
}

// List retrieves every packaging item by name.
func (r *PackagingRepository) List(ctx context.Context, tx *sql.Tx) ([]*models.Packaging, error) {
	rows, err := getQuerier(r.db, tx).QueryContext(ctx,
		"SELECT id, name, quantity_in_stock, created_at, updated_at FROM packaging ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("querying packaging: %w", err)
	}
	defer rows.Close()

	var items []*models.Packaging
	for rows.Next() {
		p, err := scanPackaging(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Rename changes a packaging item's name.
func (r *PackagingRepository) Rename(ctx context.Context, tx *sql.Tx, id, name string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx,
		"UPDATE packaging SET name = ?, updated_at = ? WHERE id = ?",
		name, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("renaming packaging: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("packaging not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a packaging item.
func (r *PackagingRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx, "DELETE FROM packaging WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting packaging: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("packaging not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountLineUses returns how many packaging lines reference the item.
func (r *PackagingRepository) CountLineUses(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var n int
	err := getQuerier(r.db, tx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM packaging_lines WHERE packaging_id = ?", id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting packaging line uses: %w", err)
	}
	return n, nil
}

// AdjustStock adds delta to the item's stock and returns the new count.
// The counter is allowed to go negative.
func (r *PackagingRepository) AdjustStock(ctx context.Context, tx *sql.Tx, id string, delta int) (int, error) {
	var stock int
	err := getQuerier(r.db, tx).QueryRowContext(ctx, `
		UPDATE packaging
		SET quantity_in_stock = quantity_in_stock + ?, updated_at = ?
		WHERE id = ?
		RETURNING quantity_in_stock`,
		delta, formatTime(time.Now()), id,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("packaging not found: %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("adjusting packaging stock: %w", err)
	}
	return stock, nil
}

// SetStock overwrites the item's stock count.
func (r *PackagingRepository) SetStock(ctx context.Context, tx *sql.Tx, id string, quantity int) error {
	result, err := getQuerier(r.db, tx).ExecContext(ctx,
		"UPDATE packaging SET quantity_in_stock = ?, updated_at = ? WHERE id = ?",
		quantity, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("setting packaging stock: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("packaging not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanPackaging(row rowScanner) (*models.Packaging, error) {
	var p models.Packaging
	var createdStr, updatedStr string

	if err := row.Scan(&p.ID, &p.Name, &p.QuantityInStock, &createdStr, &updatedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning packaging: %w", err)
	}

	p.CreatedAt = parseTime(createdStr)
	p.UpdatedAt = parseTime(updatedStr)
	return &p, nil
}
