package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialCategory groups raw materials (flour, dairy, spices).
type MaterialCategory struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// RawMaterial is an input ingredient tracked in lots.
type RawMaterial struct {
	ID                string
	Name              string
	CategoryID        string
	Unit              Unit // stock unit; every lot must be Compatible with it
	CriticalThreshold decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Joined fields
	Category *MaterialCategory
}

// Batch is a lot of a raw material received on one date.
type Batch struct {
	ID             string
	RawMaterialID  string
	ReceiptSeq     int64 // insertion order, breaks ReceivedDate ties
	BatchNumber    string
	QuantityOnHand decimal.Decimal
	Unit           Unit
	ReceivedDate   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Joined fields
	MaterialName string
}

// BaseQuantity returns the quantity on hand in base units.
func (b *Batch) BaseQuantity() decimal.Decimal {
	return Normalize(b.QuantityOnHand, b.Unit)
}

// IsDepleted reports whether nothing is left in the lot.
func (b *Batch) IsDepleted() bool {
	return !b.QuantityOnHand.IsPositive()
}

// BeforeFIFO reports whether b is consumed before other.
func (b *Batch) BeforeFIFO(other *Batch) bool {
	if !b.ReceivedDate.Equal(other.ReceivedDate) {
		return b.ReceivedDate.Before(other.ReceivedDate)
	}
	return b.ReceiptSeq < other.ReceiptSeq
}

// MaterialStock aggregates a material's lots.
type MaterialStock struct {
	Material RawMaterial
	OnHand   decimal.Decimal // in Material.Unit
	LotCount int
}

// IsCritical reports whether on-hand stock is at or below the threshold.
// A zero threshold disables the check.
func (s MaterialStock) IsCritical() bool {
	if !s.Material.CriticalThreshold.IsPositive() {
		return false
	}
	return s.OnHand.LessThanOrEqual(s.Material.CriticalThreshold)
}

// BatchFilter defines filters for querying lots.
type BatchFilter struct {
	RawMaterialID string
	OnlyAvailable bool
}
