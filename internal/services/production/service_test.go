package production

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/repository"
	"github.com/osmo/osmo/internal/testutil"
	"github.com/osmo/osmo/internal/util"
)

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *database.DB
	svc       *Service
	clock     *util.FixedClock
	materials *repository.MaterialRepository
	products  *repository.ProductRepository
	packaging *repository.PackagingRepository
	category  *models.MaterialCategory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewMigratedDB(t)
	clock := util.NewFixedClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		clock:     clock,
		materials: repository.NewMaterialRepository(db.DB),
		products:  repository.NewProductRepository(db.DB),
		packaging: repository.NewPackagingRepository(db.DB),
		category:  testutil.FixtureMaterialCategory(),
	}
	f.svc = NewService(db, Options{
		Tolerance: decimal.RequireFromString("0.001"),
		Clock:     clock,
	})
	require.NoError(t, f.materials.CreateCategory(f.ctx, nil, f.category))
	return f
}

func (f *fixture) material(name string, unit models.Unit) *models.RawMaterial {
	m := testutil.FixtureRawMaterial(f.category.ID, func(m *models.RawMaterial) {
		m.Name = name
		m.Unit = unit
	})
	require.NoError(f.t, f.materials.Create(f.ctx, nil, m))
	return m
}

func (f *fixture) lot(materialID, qty string, unit models.Unit, received string) *models.Batch {
	date, err := util.ParseDate(received)
	require.NoError(f.t, err)
	b := testutil.FixtureBatch(materialID, func(b *models.Batch) {
		b.QuantityOnHand = decimal.RequireFromString(qty)
		b.Unit = unit
		b.ReceivedDate = date
	})
	require.NoError(f.t, f.materials.CreateBatch(f.ctx, nil, b))
	return b
}

func (f *fixture) product(name, unitMassKg string, stock int) *models.FinishedProduct {
	p := testutil.FixtureProduct(func(p *models.FinishedProduct) {
		p.Name = name
		p.PackagingUnitMass = decimal.RequireFromString(unitMassKg)
		p.QuantityInStock = stock
	})
	require.NoError(f.t, f.products.Create(f.ctx, nil, p))
	return p
}

func (f *fixture) recipe(productID string, lines ...models.RecipeLine) {
	require.NoError(f.t, f.products.ReplaceRecipe(f.ctx, nil, productID, lines))
}

func (f *fixture) lotQty(id string) string {
	b, err := f.materials.GetBatch(f.ctx, nil, id)
	require.NoError(f.t, err)
	return b.QuantityOnHand.String()
}

func (f *fixture) productStock(id string) int {
	p, err := f.products.GetByID(f.ctx, nil, id)
	require.NoError(f.t, err)
	return p.QuantityInStock
}

func (f *fixture) packagingStock(id string) int {
	p, err := f.packaging.GetByID(f.ctx, nil, id)
	require.NoError(f.t, err)
	return p.QuantityInStock
}

func (f *fixture) create(productID string, batch int) (*models.ProductionOrder, error) {
	return f.svc.CreateOrder(f.ctx, CreateOrderInput{ProductID: productID, BatchSize: batch, Actor: "test"})
}

func raw(id string) models.RecipeComponent { return models.RawMaterialComponent{MaterialID: id} }
func sub(id string) models.RecipeComponent { return models.SubProductComponent{ProductID: id} }

// ============================================================================
// CREATE
// ============================================================================

func TestCreateOrder_FlourTakesOldestLotFirst(t *testing.T) {
	f := newFixture(t)
	flour := f.material("Flour", models.UnitKilogram)
	jan := f.lot(flour.ID, "5", models.UnitKilogram, "2024-01-01")
	feb := f.lot(flour.ID, "5", models.UnitKilogram, "2024-02-01")
	bread := f.product("Bread", "1", 0)
	f.recipe(bread.ID, testutil.FixtureRecipeLine(raw(flour.ID), "1", models.UnitKilogram))

	order, err := f.create(bread.ID, 8)
	require.NoError(t, err)

	assert.Equal(t, 8, order.PlannedQuantity)
	assert.Equal(t, 0, order.ProducedQuantity)
	assert.True(t, order.SampleRequired)
	assert.Equal(t, "0", f.lotQty(jan.ID))
	assert.Equal(t, "2", f.lotQty(feb.ID))

	stored, err := f.svc.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Logs, 2)
	assert.Equal(t, jan.ID, *stored.Logs[0].BatchID)
	assert.Equal(t, "5", stored.Logs[0].QuantityConsumed.String())
	assert.Equal(t, feb.ID, *stored.Logs[1].BatchID)
	assert.Equal(t, "3", stored.Logs[1].QuantityConsumed.String())
	assert.Equal(t, "Flour", stored.Logs[1].MaterialName)
}

func TestCreateOrder_FIFOLeavesNewerLotsUntouched(t *testing.T) {
	f := newFixture(t)
	sugar := f.material("Sugar", models.UnitKilogram)
	first := f.lot(sugar.ID, "5", models.UnitKilogram, "2024-01-01")
	second := f.lot(sugar.ID, "5", models.UnitKilogram, "2024-01-02")
	third := f.lot(sugar.ID, "5", models.UnitKilogram, "2024-01-03")
	syrup := f.product("Syrup", "0", 0)
	f.recipe(syrup.ID, testutil.FixtureRecipeLine(raw(sugar.ID), "7", models.UnitKilogram))

	_, err := f.create(syrup.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, "0", f.lotQty(first.ID))
	assert.Equal(t, "3", f.lotQty(second.ID))
	assert.Equal(t, "5", f.lotQty(third.ID))
}

func TestCreateOrder_SameDayLotsFollowReceiptOrder(t *testing.T) {
	f := newFixture(t)
	salt := f.material("Salt", models.UnitKilogram)
	early := f.lot(salt.ID, "2", models.UnitKilogram, "2024-01-01")
	late := f.lot(salt.ID, "2", models.UnitKilogram, "2024-01-01")
	brine := f.product("Brine", "0", 0)
	f.recipe(brine.ID, testutil.FixtureRecipeLine(raw(salt.ID), "3", models.UnitKilogram))

	_, err := f.create(brine.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, "0", f.lotQty(early.ID))
	assert.Equal(t, "1", f.lotQty(late.ID))
}

func TestCreateOrder_NormalizesLotUnits(t *testing.T) {
	f := newFixture(t)
	milk := f.material("Milk", models.UnitLitre)
	lot := f.lot(milk.ID, "2000", models.UnitMillilitre, "2024-01-01")
	cheese := f.product("Cheese", "0.5", 0)
	f.recipe(cheese.ID, testutil.FixtureRecipeLine(raw(milk.ID), "1.5", models.UnitLitre))

	order, err := f.create(cheese.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, order.PlannedQuantity)
	assert.Equal(t, "500", f.lotQty(lot.ID))
	require.Len(t, order.Logs, 1)
	assert.Equal(t, "1500", order.Logs[0].QuantityConsumed.String())
	assert.Equal(t, models.UnitMillilitre, order.Logs[0].Unit)
}

func TestCreateOrder_ReportsEveryShortage(t *testing.T) {
	f := newFixture(t)
	flour := f.material("Flour", models.UnitKilogram)
	yeast := f.material("Yeast", models.UnitGram)
	water := f.material("Water", models.UnitLitre)
	flourLot := f.lot(flour.ID, "5", models.UnitKilogram, "2024-01-01")
	f.lot(yeast.ID, "100", models.UnitGram, "2024-01-01")
	f.lot(water.ID, "50", models.UnitLitre, "2024-01-01")
	bread := f.product("Bread", "1", 0)
	f.recipe(bread.ID,
		testutil.FixtureRecipeLine(raw(flour.ID), "1", models.UnitKilogram),
		testutil.FixtureRecipeLine(raw(water.ID), "0.5", models.UnitLitre),
		testutil.FixtureRecipeLine(raw(yeast.ID), "20", models.UnitGram),
	)

	_, err := f.create(bread.ID, 8)
	require.Error(t, err)

	var shortage *ShortageError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, []string{
		"Flour: short by 3 kg",
		"Yeast: short by 60 g",
	}, shortage.Report.Messages())

	_, again := f.create(bread.ID, 8)
	require.Error(t, again)
	assert.Equal(t, err.Error(), again.Error())

	assert.Equal(t, "5", f.lotQty(flourLot.ID))
	list, err := f.svc.ListOrders(f.ctx, models.OrderFilter{}, models.DefaultPagination())
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestCreateOrder_LinesOnSameMaterialShareStock(t *testing.T) {
	f := newFixture(t)
	butter := f.material("Butter", models.UnitKilogram)
	f.lot(butter.ID, "5", models.UnitKilogram, "2024-01-01")
	pastry := f.product("Pastry", "0", 0)
	f.recipe(pastry.ID,
		testutil.FixtureRecipeLine(raw(butter.ID), "3", models.UnitKilogram),
		testutil.FixtureRecipeLine(raw(butter.ID), "3000", models.UnitGram),
	)

	_, err := f.create(pastry.ID, 1)

	var shortage *ShortageError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, []string{"Butter: short by 1000 g"}, shortage.Report.Messages())
}

func TestCreateOrder_OutputFromMass(t *testing.T) {
	tests := []struct {
		name     string
		unitMass string
		qty      string
		unit     models.Unit
		batch    int
		want     int
	}{
		{"floor of total mass", "2", "2.5", models.UnitKilogram, 5, 6},
		{"grams per package", "0.25", "100", models.UnitGram, 10, 4},
		{"count product uses batch size", "0", "0.1", models.UnitKilogram, 40, 40},
		{"count line on count product", "0", "2", models.UnitPieces, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			m := f.material("Input", tt.unit)
			f.lot(m.ID, "1000", tt.unit, "2024-01-01")
			p := f.product("Output", tt.unitMass, 0)
			f.recipe(p.ID, testutil.FixtureRecipeLine(raw(m.ID), tt.qty, tt.unit))

			order, err := f.create(p.ID, tt.batch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, order.PlannedQuantity)
		})
	}
}

func TestCreateOrder_InsufficientYield(t *testing.T) {
	f := newFixture(t)
	cocoa := f.material("Cocoa", models.UnitGram)
	lot := f.lot(cocoa.ID, "1000", models.UnitGram, "2024-01-01")
	bar := f.product("Bar", "1", 0)
	f.recipe(bar.ID, testutil.FixtureRecipeLine(raw(cocoa.ID), "100", models.UnitGram))

	_, err := f.create(bar.ID, 1)

	var yield *InsufficientYieldError
	require.ErrorAs(t, err, &yield)
	assert.Equal(t, "100", yield.TotalMass.String())
	assert.Equal(t, "1000", f.lotQty(lot.ID))
}

func TestCreateOrder_InputErrors(t *testing.T) {
	f := newFixture(t)
	empty := f.product("Empty", "1", 0)

	_, err := f.create(empty.ID, 1)
	assert.ErrorIs(t, err, ErrNoRecipeDefined)

	_, err = f.create("missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.create(empty.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestCreateOrder_SubProductConsumesWholePackages(t *testing.T) {
	f := newFixture(t)
	dough := f.product("Dough", "0.5", 10)
	pizza := f.product("Pizza", "0", 0)
	f.recipe(pizza.ID, testutil.FixtureRecipeLine(sub(dough.ID), "1.2", models.UnitKilogram))

	order, err := f.create(pizza.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, f.productStock(dough.ID))
	require.Len(t, order.Logs, 1)
	assert.True(t, order.Logs[0].IsSubProduct())
	assert.Equal(t, "3", order.Logs[0].QuantityConsumed.String())
	assert.Equal(t, models.UnitPieces, order.Logs[0].Unit)

	require.NoError(t, f.svc.DeleteOrder(f.ctx, DeleteOrderInput{OrderID: order.ID}))
	assert.Equal(t, 10, f.productStock(dough.ID))
}

func TestCreateOrder_SubProductShortage(t *testing.T) {
	f := newFixture(t)
	base := f.product("Base", "0", 2)
	cake := f.product("Cake", "0", 0)
	f.recipe(cake.ID, testutil.FixtureRecipeLine(sub(base.ID), "1", models.UnitPieces))

	_, err := f.create(cake.ID, 3)

	var shortage *ShortageError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, []string{"Base: short by 1 pcs"}, shortage.Report.Messages())
	assert.Equal(t, 2, f.productStock(base.ID))
}

func TestCreateOrder_SampleRequiredWhenLotsChange(t *testing.T) {
	f := newFixture(t)
	hops := f.material("Hops", models.UnitKilogram)
	f.lot(hops.ID, "10", models.UnitKilogram, "2024-01-01")
	beer := f.product("Beer", "0", 0)
	f.recipe(beer.ID, testutil.FixtureRecipeLine(raw(hops.ID), "1", models.UnitKilogram))

	first, err := f.create(beer.ID, 2)
	require.NoError(t, err)
	assert.True(t, first.SampleRequired, "first order of a product")

	f.clock.Advance(time.Minute)
	second, err := f.create(beer.ID, 2)
	require.NoError(t, err)
	assert.False(t, second.SampleRequired, "same lot as the previous order")

	f.lot(hops.ID, "10", models.UnitKilogram, "2024-02-01")
	f.clock.Advance(time.Minute)
	third, err := f.create(beer.ID, 7)
	require.NoError(t, err)
	assert.True(t, third.SampleRequired, "a new lot was drawn")
}

func TestCreateOrder_RollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	oats := f.material("Oats", models.UnitKilogram)
	lot := f.lot(oats.ID, "10", models.UnitKilogram, "2024-01-01")
	granola := f.product("Granola", "0", 0)
	f.recipe(granola.ID, testutil.FixtureRecipeLine(raw(oats.ID), "1", models.UnitKilogram))

	_, err := f.db.ExecContext(f.ctx, `
		CREATE TRIGGER fail_logs BEFORE INSERT ON production_logs
		BEGIN SELECT RAISE(ABORT, 'log storage unavailable'); END`)
	require.NoError(t, err)

	_, err = f.create(granola.ID, 4)

	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, "10", f.lotQty(lot.ID))
	list, err := f.svc.ListOrders(f.ctx, models.OrderFilter{}, models.DefaultPagination())
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestCreateOrder_ConcurrentOrdersNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	rice := f.material("Rice", models.UnitKilogram)
	lot := f.lot(rice.ID, "10", models.UnitKilogram, "2024-01-01")
	pudding := f.product("Pudding", "0", 0)
	f.recipe(pudding.ID, testutil.FixtureRecipeLine(raw(rice.ID), "1", models.UnitKilogram))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.create(pudding.ID, 3)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		var shortage *ShortageError
		if !errors.As(err, &shortage) {
			assert.True(t, IsRetryable(err), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, created)
	assert.Equal(t, "1", f.lotQty(lot.ID))
}

// ============================================================================
// EDIT AND DELETE
// ============================================================================

func setupPackagedProduct(f *fixture) (*models.FinishedProduct, *models.Packaging, *models.Batch) {
	honey := f.material("Honey", models.UnitKilogram)
	lot := f.lot(honey.ID, "100", models.UnitKilogram, "2024-01-01")
	jar := testutil.FixturePackaging(func(p *models.Packaging) { p.Name = "Jar" })
	require.NoError(f.t, f.packaging.Create(f.ctx, nil, jar))

	p := f.product("Honey jar", "0.5", 0)
	f.recipe(p.ID, testutil.FixtureRecipeLine(raw(honey.ID), "0.5", models.UnitKilogram))
	require.NoError(f.t, f.products.ReplacePackagingLines(f.ctx, nil, p.ID, []models.PackagingLine{
		testutil.FixturePackagingLine(jar.ID, 2),
	}))
	return p, jar, lot
}

func TestSetProducedQuantity_AppliesDelta(t *testing.T) {
	f := newFixture(t)
	product, jar, _ := setupPackagedProduct(f)

	order, err := f.create(product.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, f.productStock(product.ID), "creation does not touch output stock")

	updated, err := f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: order.ID, ProducedQuantity: 10})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProduced, updated.Status())
	assert.Equal(t, 10, f.productStock(product.ID))
	assert.Equal(t, 80, f.packagingStock(jar.ID))

	_, err = f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: order.ID, ProducedQuantity: 15})
	require.NoError(t, err)
	assert.Equal(t, 15, f.productStock(product.ID))
	assert.Equal(t, 70, f.packagingStock(jar.ID))

	_, err = f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: order.ID, ProducedQuantity: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, f.productStock(product.ID))
	assert.Equal(t, 76, f.packagingStock(jar.ID))

	same, err := f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: order.ID, ProducedQuantity: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, same.ProducedQuantity)
	assert.Equal(t, 12, f.productStock(product.ID))
}

func TestSetProducedQuantity_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: "missing", ProducedQuantity: 1})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: "missing", ProducedQuantity: -1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDeleteOrder_RestoresEverything(t *testing.T) {
	f := newFixture(t)
	product, jar, lot := setupPackagedProduct(f)

	order, err := f.create(product.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, "90", f.lotQty(lot.ID))

	_, err = f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: order.ID, ProducedQuantity: 19})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteOrder(f.ctx, DeleteOrderInput{OrderID: order.ID}))

	assert.Equal(t, "100", f.lotQty(lot.ID))
	assert.Equal(t, 0, f.productStock(product.ID))
	assert.Equal(t, 100, f.packagingStock(jar.ID))

	_, err = f.svc.GetOrder(f.ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, f.svc.DeleteOrder(f.ctx, DeleteOrderInput{OrderID: order.ID}), ErrOrderNotFound)
}

func TestSetProducedQuantity_RollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	product, jar, _ := setupPackagedProduct(f)

	order, err := f.create(product.ID, 20)
	require.NoError(t, err)

	_, err = f.db.ExecContext(f.ctx, `
		CREATE TRIGGER fail_packaging BEFORE UPDATE ON packaging
		BEGIN SELECT RAISE(ABORT, 'packaging storage unavailable'); END`)
	require.NoError(t, err)

	_, err = f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: order.ID, ProducedQuantity: 10})

	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	got, err := f.svc.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ProducedQuantity)
	assert.Equal(t, 0, f.productStock(product.ID))
	assert.Equal(t, 100, f.packagingStock(jar.ID))
}

func TestDeleteOrder_RollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	product, jar, lot := setupPackagedProduct(f)

	order, err := f.create(product.ID, 20)
	require.NoError(t, err)
	_, err = f.svc.SetProducedQuantity(f.ctx, SetProducedInput{OrderID: order.ID, ProducedQuantity: 10})
	require.NoError(t, err)

	_, err = f.db.ExecContext(f.ctx, `
		CREATE TRIGGER fail_order_delete BEFORE DELETE ON production_orders
		BEGIN SELECT RAISE(ABORT, 'order storage unavailable'); END`)
	require.NoError(t, err)

	err = f.svc.DeleteOrder(f.ctx, DeleteOrderInput{OrderID: order.ID})

	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.Equal(t, "90", f.lotQty(lot.ID))
	assert.Equal(t, 10, f.productStock(product.ID))
	assert.Equal(t, 80, f.packagingStock(jar.ID))

	got, err := f.svc.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ProducedQuantity)
	assert.Len(t, got.Logs, 1)
}

func TestLedger_ConservesLotQuantities(t *testing.T) {
	f := newFixture(t)
	flour := f.material("Flour", models.UnitKilogram)
	lots := []*models.Batch{
		f.lot(flour.ID, "4.5", models.UnitKilogram, "2024-01-01"),
		f.lot(flour.ID, "3000", models.UnitGram, "2024-01-05"),
		f.lot(flour.ID, "7.25", models.UnitKilogram, "2024-01-09"),
	}
	bread := f.product("Bread", "0", 0)
	f.recipe(bread.ID, testutil.FixtureRecipeLine(raw(flour.ID), "0.75", models.UnitKilogram))

	var orders []*models.ProductionOrder
	for _, batch := range []int{3, 5, 1, 4} {
		order, err := f.create(bread.ID, batch)
		require.NoError(t, err)
		orders = append(orders, order)
		f.clock.Advance(time.Minute)
	}

	consumed := make(map[string]decimal.Decimal)
	for _, o := range orders {
		stored, err := f.svc.GetOrder(f.ctx, o.ID)
		require.NoError(t, err)
		for _, l := range stored.Logs {
			consumed[*l.BatchID] = consumed[*l.BatchID].Add(l.QuantityConsumed)
		}
	}

	initial := map[string]string{lots[0].ID: "4.5", lots[1].ID: "3000", lots[2].ID: "7.25"}
	for _, lot := range lots {
		current, err := f.materials.GetBatch(f.ctx, nil, lot.ID)
		require.NoError(t, err)
		assert.False(t, current.QuantityOnHand.IsNegative())
		total := current.QuantityOnHand.Add(consumed[lot.ID])
		assert.True(t, total.Equal(decimal.RequireFromString(initial[lot.ID])),
			"lot %s: %s on hand + %s consumed", lot.BatchNumber, current.QuantityOnHand, consumed[lot.ID])
	}

	// 13 batch units at 0.75 kg.
	assert.Equal(t, "5", f.lotQty(lots[2].ID))

	for _, o := range orders {
		require.NoError(t, f.svc.DeleteOrder(f.ctx, DeleteOrderInput{OrderID: o.ID}))
	}
	for _, lot := range lots {
		assert.Equal(t, initial[lot.ID], f.lotQty(lot.ID))
	}
}

// ============================================================================
// PREVIEW
// ============================================================================

func TestPreviewOrder_DoesNotWrite(t *testing.T) {
	f := newFixture(t)
	flour := f.material("Flour", models.UnitKilogram)
	lot := f.lot(flour.ID, "5", models.UnitKilogram, "2024-01-01")
	bread := f.product("Bread", "1", 0)
	f.recipe(bread.ID, testutil.FixtureRecipeLine(raw(flour.ID), "1", models.UnitKilogram))

	plan, err := f.svc.PreviewOrder(f.ctx, bread.ID, 3)
	require.NoError(t, err)
	assert.True(t, plan.Feasible())
	assert.Equal(t, 3, plan.Output)
	require.Len(t, plan.Lines, 1)
	require.Len(t, plan.Lines[0].Allocations, 1)
	assert.Equal(t, "3", plan.Lines[0].Allocations[0].Quantity.String())
	assert.Equal(t, []string{lot.ID}, plan.ConsumedBatchIDs())

	short, err := f.svc.PreviewOrder(f.ctx, bread.ID, 6)
	require.NoError(t, err)
	assert.False(t, short.Feasible())
	assert.Equal(t, "Flour: short by 1 kg", short.Shortage.String())

	assert.Equal(t, "5", f.lotQty(lot.ID))
}
