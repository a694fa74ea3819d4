package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/services/production"
	"github.com/osmo/osmo/internal/util"
)

type createOrderRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	BatchSize int    `json:"batch_size" binding:"required,gt=0"`
}

type setProducedRequest struct {
	ProducedQuantity *int `json:"produced_quantity" binding:"required"`
}

type createProductRequest struct {
	Name              string          `json:"name" binding:"required"`
	ProductCode       *string         `json:"product_code"`
	CategoryID        *string         `json:"category_id"`
	PackagingUnitMass decimal.Decimal `json:"packaging_unit_mass_kg"`
	DisplayUnit       string          `json:"display_unit"`
}

type receiveBatchRequest struct {
	BatchNumber  string          `json:"batch_number" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit" binding:"required"`
	ReceivedDate string          `json:"received_date"`
}

type adjustBatchRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
}

type recipeLineRequest struct {
	MaterialID   string          `json:"material_id"`
	SubProductID string          `json:"sub_product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit" binding:"required"`
}

type setRecipeRequest struct {
	Lines []recipeLineRequest `json:"lines" binding:"dive"`
}

type packagingLineRequest struct {
	PackagingID string `json:"packaging_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"gt=0"`
}

type setPackagingLinesRequest struct {
	Lines []packagingLineRequest `json:"lines" binding:"dive"`
}

type setStockRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

type createPackagingRequest struct {
	Name  string `json:"name" binding:"required"`
	Stock int    `json:"quantity_in_stock" binding:"gte=0"`
}

type shortageJSON struct {
	Name      string          `json:"name"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Unit      string          `json:"unit"`
}

type logJSON struct {
	ID           string          `json:"id"`
	Position     int             `json:"position"`
	BatchID      *string         `json:"batch_id,omitempty"`
	BatchNumber  string          `json:"batch_number,omitempty"`
	SubProductID *string         `json:"sub_product_id,omitempty"`
	Source       string          `json:"source"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
}

type orderJSON struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	ProductName      string    `json:"product_name"`
	BatchSize        int       `json:"batch_size"`
	PlannedQuantity  int       `json:"planned_quantity"`
	ProducedQuantity int       `json:"produced_quantity"`
	Status           string    `json:"status"`
	SampleRequired   bool      `json:"sample_required"`
	CreatedAt        time.Time `json:"created_at"`
	Logs             []logJSON `json:"logs,omitempty"`
}

type allocationJSON struct {
	BatchID      string          `json:"batch_id"`
	BatchNumber  string          `json:"batch_number"`
	ReceivedDate string          `json:"received_date"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
}

type planLineJSON struct {
	Component   string           `json:"component"`
	Required    decimal.Decimal  `json:"required"`
	Available   decimal.Decimal  `json:"available"`
	Unit        string           `json:"unit"`
	Allocations []allocationJSON `json:"allocations,omitempty"`
}

type planJSON struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	BatchSize   int             `json:"batch_size"`
	Output      int             `json:"output"`
	TotalMass   decimal.Decimal `json:"total_mass_g"`
	Feasible    bool            `json:"feasible"`
	Lines       []planLineJSON  `json:"lines"`
	Shortages   []shortageJSON  `json:"shortages"`
}

type productJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ProductCode     *string         `json:"product_code,omitempty"`
	UnitMass        decimal.Decimal `json:"packaging_unit_mass_kg"`
	DisplayUnit     string          `json:"display_unit"`
	QuantityInStock int             `json:"quantity_in_stock"`
}

type batchJSON struct {
	ID             string          `json:"id"`
	MaterialID     string          `json:"material_id"`
	BatchNumber    string          `json:"batch_number"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	Unit           string          `json:"unit"`
	ReceivedDate   string          `json:"received_date"`
}

type recipeLineJSON struct {
	Position     int             `json:"position"`
	MaterialID   string          `json:"material_id,omitempty"`
	SubProductID string          `json:"sub_product_id,omitempty"`
	Component    string          `json:"component"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
}

type packagingLineJSON struct {
	Position    int    `json:"position"`
	PackagingID string `json:"packaging_id"`
	Packaging   string `json:"packaging"`
	Quantity    int    `json:"quantity"`
}

type materialJSON struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	CategoryID        string          `json:"category_id"`
	Category          string          `json:"category,omitempty"`
	Unit              string          `json:"unit"`
	CriticalThreshold decimal.Decimal `json:"critical_threshold"`
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type materialStockJSON struct {
	MaterialID string          `json:"material_id"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	OnHand     decimal.Decimal `json:"on_hand"`
	Threshold  decimal.Decimal `json:"critical_threshold"`
	LotCount   int             `json:"lot_count"`
	Critical   bool            `json:"critical"`
}

type packagingJSON struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	QuantityInStock int    `json:"quantity_in_stock"`
}

type productStockJSON struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	ProductCode string          `json:"product_code,omitempty"`
	DisplayUnit string          `json:"display_unit"`
	Quantity    int             `json:"quantity"`
	UnitMass    decimal.Decimal `json:"unit_mass_kg"`
}

type inventoryJSON struct {
	Materials []materialStockJSON `json:"materials"`
	Products  []productStockJSON  `json:"products"`
	Packaging []packagingJSON     `json:"packaging"`
}

func toShortages(r models.ShortageReport) []shortageJSON {
	out := make([]shortageJSON, 0, len(r.Shortages))
	for _, s := range r.Shortages {
		out = append(out, shortageJSON{Name: s.Name, Shortfall: s.Shortfall.Round(3), Unit: string(s.Unit)})
	}
	return out
}

func toOrder(o *models.ProductionOrder) orderJSON {
	out := orderJSON{
		ID:               o.ID,
		ProductID:        o.ProductID,
		ProductName:      o.ProductName,
		BatchSize:        o.BatchSize,
		PlannedQuantity:  o.PlannedQuantity,
		ProducedQuantity: o.ProducedQuantity,
		Status:           o.Status().String(),
		SampleRequired:   o.SampleRequired,
		CreatedAt:        o.CreatedAt,
	}
	for _, l := range o.Logs {
		out.Logs = append(out.Logs, logJSON{
			ID:           l.ID,
			Position:     l.Position,
			BatchID:      l.BatchID,
			BatchNumber:  l.BatchNumber,
			SubProductID: l.SubProductID,
			Source:       l.SourceName(),
			Quantity:     l.QuantityConsumed,
			Unit:         string(l.Unit),
		})
	}
	return out
}

func toPlan(p *production.Plan) planJSON {
	out := planJSON{
		ProductID:   p.ProductID,
		ProductName: p.ProductName,
		BatchSize:   p.BatchSize,
		Output:      p.Output,
		TotalMass:   p.TotalMass,
		Feasible:    p.Feasible(),
		Lines:       make([]planLineJSON, 0, len(p.Lines)),
		Shortages:   toShortages(p.Shortage),
	}
	for _, lp := range p.Lines {
		line := planLineJSON{
			Component: lp.Line.ComponentName,
			Required:  lp.Required,
			Available: lp.Available.Round(3),
			Unit:      string(lp.Unit),
		}
		for _, a := range lp.Allocations {
			line.Allocations = append(line.Allocations, allocationJSON{
				BatchID:      a.BatchID,
				BatchNumber:  a.BatchNumber,
				ReceivedDate: a.ReceivedDate,
				Quantity:     a.Quantity,
				Unit:         string(a.Unit),
			})
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func toProduct(p *models.FinishedProduct) productJSON {
	return productJSON{
		ID:              p.ID,
		Name:            p.Name,
		ProductCode:     p.ProductCode,
		UnitMass:        p.PackagingUnitMass,
		DisplayUnit:     p.DisplayUnit,
		QuantityInStock: p.QuantityInStock,
	}
}

func toMaterial(m *models.RawMaterial) materialJSON {
	out := materialJSON{
		ID:                m.ID,
		Name:              m.Name,
		CategoryID:        m.CategoryID,
		Unit:              m.Unit.String(),
		CriticalThreshold: m.CriticalThreshold,
	}
	if m.Category != nil {
		out.Category = m.Category.Name
	}
	return out
}

func toBatch(b *models.Batch) batchJSON {
	return batchJSON{
		ID:             b.ID,
		MaterialID:     b.RawMaterialID,
		BatchNumber:    b.BatchNumber,
		QuantityOnHand: b.QuantityOnHand,
		Unit:           string(b.Unit),
		ReceivedDate:   util.FormatDate(b.ReceivedDate),
	}
}

func toRecipe(lines []models.RecipeLine) []recipeLineJSON {
	out := make([]recipeLineJSON, 0, len(lines))
	for _, l := range lines {
		item := recipeLineJSON{
			Position:  l.Position,
			Component: l.ComponentName,
			Quantity:  l.QuantityRequired,
			Unit:      string(l.Unit),
		}
		if id, ok := l.RawMaterialID(); ok {
			item.MaterialID = id
		}
		if id, ok := l.SubProductID(); ok {
			item.SubProductID = id
		}
		out = append(out, item)
	}
	return out
}

func toPackagingLines(lines []models.PackagingLine) []packagingLineJSON {
	out := make([]packagingLineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, packagingLineJSON{
			Position:    l.Position,
			PackagingID: l.PackagingID,
			Packaging:   l.PackagingName,
			Quantity:    l.QuantityRequired,
		})
	}
	return out
}

func toMaterialStock(ms models.MaterialStock) materialStockJSON {
	return materialStockJSON{
		MaterialID: ms.Material.ID,
		Name:       ms.Material.Name,
		Unit:       string(ms.Material.Unit),
		OnHand:     ms.OnHand.Round(3),
		Threshold:  ms.Material.CriticalThreshold,
		LotCount:   ms.LotCount,
		Critical:   ms.IsCritical(),
	}
}

func toInventory(sheet *models.InventorySheet) inventoryJSON {
	out := inventoryJSON{
		Materials: make([]materialStockJSON, 0, len(sheet.Materials)),
		Products:  make([]productStockJSON, 0, len(sheet.Products)),
		Packaging: make([]packagingJSON, 0, len(sheet.Packaging)),
	}
	for _, ms := range sheet.Materials {
		out.Materials = append(out.Materials, toMaterialStock(ms))
	}
	for _, ps := range sheet.Products {
		out.Products = append(out.Products, productStockJSON{
			ProductID:   ps.ProductID,
			Name:        ps.Name,
			ProductCode: ps.ProductCode,
			DisplayUnit: ps.DisplayUnit,
			Quantity:    ps.Quantity,
			UnitMass:    ps.UnitMass,
		})
	}
	for _, p := range sheet.Packaging {
		out.Packaging = append(out.Packaging, packagingJSON{ID: p.ID, Name: p.Name, QuantityInStock: p.QuantityInStock})
	}
	return out
}
