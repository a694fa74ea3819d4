package models

import "github.com/shopspring/decimal"

// InventorySheet is a stocktake snapshot of every stocked item.
type InventorySheet struct {
	Materials []MaterialStock
	Products  []ProductStock
	Packaging []Packaging
}

// ProductStock is a finished product's stock line on the inventory sheet.
type ProductStock struct {
	ProductID   string
	Name        string
	ProductCode string
	DisplayUnit string
	Quantity    int
	UnitMass    decimal.Decimal
}
