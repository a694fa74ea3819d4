package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/services/activity"
	"github.com/osmo/osmo/internal/util"
)

// Options configures an inventory service.
type Options struct {
	Clock    util.Clock
	Recorder activity.Recorder
}

// CreateMaterialInput contains data for creating a raw material.
type CreateMaterialInput struct {
	Name              string
	CategoryID        string
	Unit              string
	CriticalThreshold decimal.Decimal
	Actor             string
}

// UpdateMaterialInput contains the editable fields of a raw material.
type UpdateMaterialInput struct {
	ID                string
	Name              string
	CategoryID        string
	Unit              string
	CriticalThreshold decimal.Decimal
	Actor             string
}

// ReceiveBatchInput records a goods receipt.
type ReceiveBatchInput struct {
	MaterialID   string
	BatchNumber  string
	Quantity     decimal.Decimal
	Unit         string
	ReceivedDate time.Time // zero means today
	Actor        string
}

// AdjustBatchInput sets a lot's quantity on hand after a count.
type AdjustBatchInput struct {
	BatchID  string
	Quantity decimal.Decimal
	Actor    string
}

// ProductInput contains the descriptive fields of a finished product.
type ProductInput struct {
	Name              string
	ProductCode       *string
	CategoryID        *string
	PackagingUnitMass decimal.Decimal // kg, zero for counted products
	DisplayUnit       string
	Actor             string
}

// RecipeLineInput is one authored recipe line. Exactly one of MaterialID
// and SubProductID is set.
type RecipeLineInput struct {
	MaterialID   string
	SubProductID string
	Quantity     decimal.Decimal
	Unit         string
}

// PackagingLineInput is one authored packaging line.
type PackagingLineInput struct {
	PackagingID string
	Quantity    int
}
