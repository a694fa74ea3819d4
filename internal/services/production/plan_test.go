package production

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/repository"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeOutput(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		unitMass string
		batch    int
		want     int
	}{
		{"exact", "4000", "2", 9, 2},
		{"floors", "12500", "2", 5, 6},
		{"below one package", "999", "1", 1, 0},
		{"count based", "100", "0", 40, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, computeOutput(d(tt.total), d(tt.unitMass), tt.batch))
		})
	}
}

func TestPackagesRequired(t *testing.T) {
	massSub := &models.FinishedProduct{Name: "Dough", PackagingUnitMass: d("0.4")}
	countSub := &models.FinishedProduct{Name: "Lid"}

	tests := []struct {
		name    string
		sub     *models.FinishedProduct
		qty     string
		unit    models.Unit
		batch   int
		want    int
		wantErr bool
	}{
		{"mass rounds up", massSub, "500", models.UnitGram, 1, 2, false},
		{"mass exact", massSub, "0.2", models.UnitKilogram, 4, 2, false},
		{"pieces rounds up", countSub, "0.5", models.UnitPieces, 3, 2, false},
		{"mass on count product", countSub, "1", models.UnitKilogram, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := models.RecipeLine{QuantityRequired: d(tt.qty), Unit: tt.unit, ComponentName: tt.sub.Name}
			got, err := packagesRequired(line, tt.batch, tt.sub)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecipe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTotalMassSkipsCountLines(t *testing.T) {
	lines := []models.RecipeLine{
		{QuantityRequired: d("1.5"), Unit: models.UnitKilogram},
		{QuantityRequired: d("250"), Unit: models.UnitMillilitre},
		{QuantityRequired: d("2"), Unit: models.UnitPieces},
	}
	assert.Equal(t, "3500", totalMass(lines, 2).String())
}

func TestAllocateFIFO_SkipsIncompatibleLots(t *testing.T) {
	lots := []*models.Batch{
		{ID: "a", QuantityOnHand: d("3"), Unit: models.UnitPieces},
		{ID: "b", QuantityOnHand: d("2"), Unit: models.UnitKilogram},
	}
	remaining := map[string]decimal.Decimal{"a": d("3"), "b": d("2")}
	line := models.RecipeLine{QuantityRequired: d("500"), Unit: models.UnitGram}

	lp := allocateFIFO(line, 1, lots, remaining)

	require.Len(t, lp.Allocations, 1)
	assert.Equal(t, "b", lp.Allocations[0].BatchID)
	assert.Equal(t, "0.5", lp.Allocations[0].Quantity.String())
	assert.Equal(t, "1.5", remaining["b"].String())
	assert.Equal(t, "2000", lp.Available.String())
}

func TestAllocateFIFO_CrossUnitTakeMatchesLoggedQuantity(t *testing.T) {
	lots := []*models.Batch{
		{ID: "a", QuantityOnHand: d("1"), Unit: models.UnitKilogram},
		{ID: "b", QuantityOnHand: d("1"), Unit: models.UnitKilogram},
	}
	remaining := map[string]decimal.Decimal{"a": d("1"), "b": d("1")}
	line := models.RecipeLine{QuantityRequired: d("0.12345678901234567"), Unit: models.UnitGram}

	lp := allocateFIFO(line, 1, lots, remaining)

	require.Len(t, lp.Allocations, 1, "rounding must not spill onto the next lot")
	a := lp.Allocations[0]
	assert.Equal(t, "0.0001234567890124", a.Quantity.String())
	assert.True(t, a.Before.Sub(a.Quantity).Equal(a.After))
	assert.True(t, remaining["a"].Equal(a.After))
	assert.True(t, models.Normalize(a.Quantity, a.Unit).GreaterThanOrEqual(line.QuantityRequired))
	assert.Equal(t, "1", remaining["b"].String())
}

func TestClassify(t *testing.T) {
	stale := fmt.Errorf("updating batch x: %w", repository.ErrStaleWrite)
	assert.ErrorIs(t, classify("op", stale), ErrConcurrencyConflict)

	shortage := &ShortageError{}
	assert.Same(t, shortage, classify("op", shortage))

	assert.ErrorIs(t, classify("op", ErrNoRecipeDefined), ErrNoRecipeDefined)

	var persistence *PersistenceError
	assert.ErrorAs(t, classify("op", errors.New("disk I/O error")), &persistence)
	assert.ErrorAs(t, classify("op", database.ErrClosed), &persistence)
	assert.Nil(t, classify("op", nil))
}
