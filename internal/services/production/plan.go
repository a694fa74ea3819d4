package production

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/util"
)

// Allocation is a quantity taken from one lot, in the lot's unit.
type Allocation struct {
	BatchID      string
	BatchNumber  string
	ReceivedDate string
	Quantity     decimal.Decimal
	Unit         models.Unit

	// Before and After are the lot's on-hand quantity around this take.
	Before decimal.Decimal
	After  decimal.Decimal
}

// LinePlan is the evaluation of one recipe line for a batch size.
type LinePlan struct {
	Line models.RecipeLine

	// Required and Available are in the line's unit for raw materials and
	// in packages for sub-products.
	Required  decimal.Decimal
	Available decimal.Decimal
	Unit      models.Unit

	Allocations []Allocation // raw-material lines
	Packages    int          // sub-product lines
	StockBefore int          // sub-product lines
}

// Short reports whether the line cannot be covered.
func (lp *LinePlan) Short(tolerance decimal.Decimal) bool {
	return lp.Required.Sub(lp.Available).GreaterThan(tolerance)
}

// Plan is the full evaluation of a production order before any write.
type Plan struct {
	ProductID   string
	ProductName string
	BatchSize   int
	UnitMass    decimal.Decimal // kg
	Lines       []LinePlan
	TotalMass   decimal.Decimal // grams
	Output      int
	Shortage    models.ShortageReport
}

// Feasible reports whether the order can be created as planned.
func (p *Plan) Feasible() bool {
	return p.Shortage.Empty() && p.Output > 0
}

// ConsumedBatchIDs returns the distinct lots the plan draws from, sorted.
func (p *Plan) ConsumedBatchIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, lp := range p.Lines {
		for _, a := range lp.Allocations {
			if a.Quantity.IsPositive() && !seen[a.BatchID] {
				seen[a.BatchID] = true
				ids = append(ids, a.BatchID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// stockSnapshot is the stock visible to a plan: available lots per
// material in FIFO order, and the sub-products referenced by the recipe.
type stockSnapshot struct {
	lots     map[string][]*models.Batch
	products map[string]*models.FinishedProduct
}

// buildPlan evaluates every line of the recipe against snap. Lines are
// evaluated in order against a running copy of stock, so two lines on the
// same material cannot both count the same quantity. Every shortage is
// collected; nothing short-circuits.
func buildPlan(product *models.FinishedProduct, lines []models.RecipeLine, batchSize int, snap stockSnapshot, tolerance decimal.Decimal) (*Plan, error) {
	plan := &Plan{
		ProductID:   product.ID,
		ProductName: product.Name,
		BatchSize:   batchSize,
		UnitMass:    product.PackagingUnitMass,
	}

	remaining := make(map[string]decimal.Decimal)
	for _, lots := range snap.lots {
		for _, b := range lots {
			remaining[b.ID] = b.QuantityOnHand
		}
	}
	subStock := make(map[string]int)
	for id, p := range snap.products {
		subStock[id] = p.QuantityInStock
	}

	for _, line := range lines {
		var lp LinePlan
		var err error
		if materialID, ok := line.RawMaterialID(); ok {
			lp = allocateFIFO(line, batchSize, snap.lots[materialID], remaining)
		} else if productID, ok := line.SubProductID(); ok {
			sub := snap.products[productID]
			if sub == nil {
				return nil, fmt.Errorf("%w: sub-product %s of line %d not found", ErrInvalidRecipe, productID, line.Position)
			}
			lp, err = planSubProduct(line, batchSize, sub, subStock)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, fmt.Errorf("%w: line %d has no component", ErrInvalidRecipe, line.Position)
		}

		if lp.Short(tolerance) {
			plan.Shortage.Shortages = append(plan.Shortage.Shortages, models.Shortage{
				Name:      line.ComponentName,
				Shortfall: lp.Required.Sub(lp.Available),
				Unit:      lp.Unit,
			})
		}
		plan.Lines = append(plan.Lines, lp)
	}

	plan.TotalMass = totalMass(lines, batchSize)
	plan.Output = computeOutput(plan.TotalMass, product.PackagingUnitMass, batchSize)
	return plan, nil
}

// allocateFIFO takes the line's requirement from lots oldest first.
// Lots in units incompatible with the line are skipped. remaining holds
// the running on-hand quantity per lot and is updated in place.
func allocateFIFO(line models.RecipeLine, batchSize int, lots []*models.Batch, remaining map[string]decimal.Decimal) LinePlan {
	required := line.Required(batchSize)
	lp := LinePlan{
		Line:     line,
		Required: required,
		Unit:     line.Unit,
	}

	need := models.Normalize(required, line.Unit)
	available := decimal.Zero
	for _, b := range lots {
		if !models.Compatible(b.Unit, line.Unit) {
			continue
		}
		onHand := remaining[b.ID]
		if !onHand.IsPositive() {
			continue
		}
		onHandBase := models.Normalize(onHand, b.Unit)
		available = available.Add(onHandBase)

		if !need.IsPositive() {
			continue
		}
		take := onHand
		if need.LessThan(onHandBase) {
			take = decimal.Min(models.FromBaseCeil(need, b.Unit), onHand)
		}
		takeBase := models.Normalize(take, b.Unit)
		after := onHand.Sub(take)
		lp.Allocations = append(lp.Allocations, Allocation{
			BatchID:      b.ID,
			BatchNumber:  b.BatchNumber,
			ReceivedDate: util.FormatDate(b.ReceivedDate),
			Quantity:     take,
			Unit:         b.Unit,
			Before:       onHand,
			After:        after,
		})
		remaining[b.ID] = after
		need = need.Sub(takeBase)
	}

	lp.Available = models.FromBase(available, line.Unit)
	return lp
}

// planSubProduct converts the line's requirement to whole packages of the
// sub-product and reserves them from subStock.
func planSubProduct(line models.RecipeLine, batchSize int, sub *models.FinishedProduct, subStock map[string]int) (LinePlan, error) {
	packages, err := packagesRequired(line, batchSize, sub)
	if err != nil {
		return LinePlan{}, err
	}

	stock := subStock[sub.ID]
	lp := LinePlan{
		Line:        line,
		Required:    decimal.NewFromInt(int64(packages)),
		Available:   decimal.NewFromInt(int64(max(stock, 0))),
		Unit:        models.UnitPieces,
		Packages:    packages,
		StockBefore: stock,
	}
	subStock[sub.ID] = stock - packages
	return lp, nil
}

// packagesRequired returns how many whole packages of sub the line needs.
func packagesRequired(line models.RecipeLine, batchSize int, sub *models.FinishedProduct) (int, error) {
	required := line.Required(batchSize)
	if line.Unit.IsMass() {
		if !sub.IsMassBased() {
			return 0, fmt.Errorf("%w: %s is measured in %s but %s has no unit mass",
				ErrInvalidRecipe, line.ComponentName, line.Unit, sub.Name)
		}
		required = models.Normalize(required, line.Unit).Div(sub.UnitMassGrams())
	}
	return int(required.Ceil().IntPart()), nil
}

// totalMass sums the normalized requirement of every mass-like line, in
// grams. Count lines do not contribute.
func totalMass(lines []models.RecipeLine, batchSize int) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if !line.Unit.IsMass() {
			continue
		}
		total = total.Add(models.Normalize(line.Required(batchSize), line.Unit))
	}
	return total
}

// computeOutput returns the number of packages a batch fills. Products
// without a unit mass are counted: one package per batch unit.
func computeOutput(totalGrams, unitMassKg decimal.Decimal, batchSize int) int {
	if !unitMassKg.IsPositive() {
		return batchSize
	}
	unitGrams := models.Normalize(unitMassKg, models.UnitKilogram)
	return int(totalGrams.Div(unitGrams).Floor().IntPart())
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
