// Package seed fills an empty database with a demonstration bakery
// catalogue: materials with lots, products with recipes and packaging.
package seed

import "github.com/osmo/osmo/internal/models"

type materialSpec struct {
	Name      string
	Category  string
	Unit      models.Unit
	Threshold string
	// Lot sizes are drawn between MinLot and MaxLot in the material's unit.
	MinLot int
	MaxLot int
}

type lineSpec struct {
	Material   string
	SubProduct string
	Quantity   string
	Unit       models.Unit
}

type packagingLineSpec struct {
	Packaging string
	Quantity  int
}

type productSpec struct {
	Name      string
	Code      string
	Category  string
	UnitMass  string // kg
	Recipe    []lineSpec
	Packaging []packagingLineSpec
}

// Materials is the demo raw material catalogue.
var Materials = []materialSpec{
	{"Wheat flour T-500", "Dry goods", models.UnitKilogram, "50", 40, 120},
	{"Rye flour", "Dry goods", models.UnitKilogram, "20", 20, 60},
	{"Sugar", "Dry goods", models.UnitKilogram, "25", 25, 80},
	{"Salt", "Dry goods", models.UnitKilogram, "5", 10, 25},
	{"Cocoa powder", "Dry goods", models.UnitKilogram, "3", 5, 15},
	{"Dry yeast", "Dry goods", models.UnitGram, "500", 1000, 3000},
	{"Hazelnuts", "Dry goods", models.UnitKilogram, "2", 4, 12},
	{"Butter", "Dairy", models.UnitKilogram, "10", 10, 30},
	{"Whole milk", "Dairy", models.UnitLitre, "20", 30, 90},
	{"Eggs", "Dairy", models.UnitPieces, "120", 180, 540},
	{"Honey", "Sweeteners", models.UnitKilogram, "4", 6, 20},
	{"Vanilla extract", "Flavourings", models.UnitMillilitre, "250", 500, 1500},
}

// PackagingItems is the demo packaging catalogue with opening stock.
var PackagingItems = []struct {
	Name  string
	Stock int
}{
	{"Paper bag", 2000},
	{"Cake box", 300},
	{"Cookie tin", 400},
	{"Product label", 5000},
}

// Products is the demo product catalogue. Sub-products are listed before
// the products that use them.
var Products = []productSpec{
	{
		Name: "Sponge base", Code: "SB-500", Category: "Semi-finished", UnitMass: "0.5",
		Recipe: []lineSpec{
			{Material: "Wheat flour T-500", Quantity: "0.15", Unit: models.UnitKilogram},
			{Material: "Sugar", Quantity: "150", Unit: models.UnitGram},
			{Material: "Eggs", Quantity: "4", Unit: models.UnitPieces},
			{Material: "Whole milk", Quantity: "200", Unit: models.UnitMillilitre},
		},
	},
	{
		Name: "White bread 500 g", Code: "WB-500", Category: "Bread", UnitMass: "0.5",
		Recipe: []lineSpec{
			{Material: "Wheat flour T-500", Quantity: "0.3", Unit: models.UnitKilogram},
			{Material: "Whole milk", Quantity: "0.19", Unit: models.UnitLitre},
			{Material: "Salt", Quantity: "6", Unit: models.UnitGram},
			{Material: "Dry yeast", Quantity: "4", Unit: models.UnitGram},
		},
		Packaging: []packagingLineSpec{{"Paper bag", 1}, {"Product label", 1}},
	},
	{
		Name: "Rye bread 750 g", Code: "RB-750", Category: "Bread", UnitMass: "0.75",
		Recipe: []lineSpec{
			{Material: "Rye flour", Quantity: "0.3", Unit: models.UnitKilogram},
			{Material: "Wheat flour T-500", Quantity: "0.15", Unit: models.UnitKilogram},
			{Material: "Whole milk", Quantity: "0.29", Unit: models.UnitLitre},
			{Material: "Salt", Quantity: "8", Unit: models.UnitGram},
			{Material: "Dry yeast", Quantity: "2", Unit: models.UnitGram},
		},
		Packaging: []packagingLineSpec{{"Paper bag", 1}, {"Product label", 1}},
	},
	{
		Name: "Chocolate cake", Code: "CC-01", Category: "Cakes", UnitMass: "0",
		Recipe: []lineSpec{
			{SubProduct: "Sponge base", Quantity: "2", Unit: models.UnitPieces},
			{Material: "Cocoa powder", Quantity: "80", Unit: models.UnitGram},
			{Material: "Butter", Quantity: "0.2", Unit: models.UnitKilogram},
			{Material: "Sugar", Quantity: "0.12", Unit: models.UnitKilogram},
		},
		Packaging: []packagingLineSpec{{"Cake box", 1}, {"Product label", 1}},
	},
	{
		Name: "Honey cookies 250 g", Code: "HC-250", Category: "Cookies", UnitMass: "0.25",
		Recipe: []lineSpec{
			{Material: "Wheat flour T-500", Quantity: "0.12", Unit: models.UnitKilogram},
			{Material: "Honey", Quantity: "50", Unit: models.UnitGram},
			{Material: "Butter", Quantity: "40", Unit: models.UnitGram},
			{Material: "Hazelnuts", Quantity: "30", Unit: models.UnitGram},
			{Material: "Vanilla extract", Quantity: "10", Unit: models.UnitMillilitre},
		},
		Packaging: []packagingLineSpec{{"Cookie tin", 1}, {"Product label", 1}},
	},
}
