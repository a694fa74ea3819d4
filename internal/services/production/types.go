package production

import (
	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/services/activity"
	"github.com/osmo/osmo/internal/util"
)

// Options configures a production service.
type Options struct {
	// Tolerance is the largest shortfall, in a line's unit, still treated
	// as covered. Zero means exact.
	Tolerance decimal.Decimal
	Clock     util.Clock
	Recorder  activity.Recorder
}

// CreateOrderInput contains data for creating a production order.
type CreateOrderInput struct {
	ProductID string
	BatchSize int
	Actor     string
}

// SetProducedInput records the actual output of an order.
type SetProducedInput struct {
	OrderID          string
	ProducedQuantity int
	Actor            string
}

// DeleteOrderInput identifies an order to reverse and remove.
type DeleteOrderInput struct {
	OrderID string
	Actor   string
}
