package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is derived from the produced quantity; it is not stored.
type OrderStatus string

const (
	OrderStatusPlanned  OrderStatus = "PLANNED"
	OrderStatusProduced OrderStatus = "PRODUCED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// ProductionOrder records one production run and what it consumed.
type ProductionOrder struct {
	ID               string
	ProductID        string
	BatchSize        int
	PlannedQuantity  int
	ProducedQuantity int
	SampleRequired   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Joined fields
	ProductName string
	Logs        []ProductionLog
}

// Status returns PLANNED until a produced quantity has been recorded.
func (o *ProductionOrder) Status() OrderStatus {
	if o.ProducedQuantity > 0 {
		return OrderStatusProduced
	}
	return OrderStatusPlanned
}

// ProductionLog is one consumption entry of an order: a quantity taken
// from a lot, or a number of sub-product packages.
type ProductionLog struct {
	ID               string
	OrderID          string
	Position         int
	BatchID          *string
	SubProductID     *string
	QuantityConsumed decimal.Decimal // in the lot's own unit, or pcs for sub-products
	Unit             Unit

	// Joined fields
	BatchNumber    string
	MaterialName   string
	SubProductName string
}

// IsSubProduct reports whether the entry consumed sub-product stock.
func (l *ProductionLog) IsSubProduct() bool {
	return l.SubProductID != nil
}

// SourceName returns the material or sub-product the entry consumed.
func (l *ProductionLog) SourceName() string {
	if l.IsSubProduct() {
		return l.SubProductName
	}
	return l.MaterialName
}

// Shortage is one recipe line whose available stock cannot cover the requirement.
type Shortage struct {
	Name      string
	Shortfall decimal.Decimal
	Unit      Unit
}

func (s Shortage) String() string {
	return fmt.Sprintf("%s: short by %s", s.Name, FormatQuantity(s.Shortfall, s.Unit))
}

// ShortageReport lists every short line in recipe order.
type ShortageReport struct {
	Shortages []Shortage
}

// Empty reports whether nothing is short.
func (r ShortageReport) Empty() bool {
	return len(r.Shortages) == 0
}

// Messages renders one line per shortage.
func (r ShortageReport) Messages() []string {
	msgs := make([]string, len(r.Shortages))
	for i, s := range r.Shortages {
		msgs[i] = s.String()
	}
	return msgs
}

func (r ShortageReport) String() string {
	return strings.Join(r.Messages(), "; ")
}

// OrderFilter defines filters for querying production orders.
type OrderFilter struct {
	ProductID string
}

// OrderList represents a paginated list of production orders.
type OrderList struct {
	Orders     []*ProductionOrder
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}
