package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/osmo/osmo/internal/models"
)

// StockLevels returns every material's total on hand in its own unit.
func (s *Service) StockLevels(ctx context.Context) ([]models.MaterialStock, error) {
	stock, err := s.materials.ListStock(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing stock levels: %w", err)
	}
	return stock, nil
}

// CriticalStock returns the materials at or below their critical threshold.
func (s *Service) CriticalStock(ctx context.Context) ([]models.MaterialStock, error) {
	stock, err := s.StockLevels(ctx)
	if err != nil {
		return nil, err
	}

	var critical []models.MaterialStock
	for _, ms := range stock {
		if ms.IsCritical() {
			critical = append(critical, ms)
		}
	}
	return critical, nil
}

// InventorySheet returns a stocktake snapshot read in one transaction.
func (s *Service) InventorySheet(ctx context.Context) (*models.InventorySheet, error) {
	sheet := &models.InventorySheet{}
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		sheet.Materials, err = s.materials.ListStock(ctx, tx)
		if err != nil {
			return err
		}

		products, err := s.products.List(ctx, tx, models.ProductFilter{})
		if err != nil {
			return err
		}
		for _, p := range products {
			ps := models.ProductStock{
				ProductID:   p.ID,
				Name:        p.Name,
				DisplayUnit: p.DisplayUnit,
				Quantity:    p.QuantityInStock,
				UnitMass:    p.PackagingUnitMass,
			}
			if p.ProductCode != nil {
				ps.ProductCode = *p.ProductCode
			}
			sheet.Products = append(sheet.Products, ps)
		}

		packaging, err := s.packaging.List(ctx, tx)
		if err != nil {
			return err
		}
		for _, p := range packaging {
			sheet.Packaging = append(sheet.Packaging, *p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building inventory sheet: %w", err)
	}
	return sheet, nil
}
