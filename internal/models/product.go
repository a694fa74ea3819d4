package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory groups finished products.
type ProductCategory struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// FinishedProduct is a packaged good produced from a recipe.
type FinishedProduct struct {
	ID          string
	Name        string
	ProductCode *string
	CategoryID  *string
	// PackagingUnitMass is the mass of one package in kg. Zero means the
	// product is counted, not weighed.
	PackagingUnitMass decimal.Decimal
	DisplayUnit       string
	QuantityInStock   int
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Joined fields
	Category  *ProductCategory
	Recipe    []RecipeLine
	Packaging []PackagingLine
}

// IsMassBased reports whether output is derived from consumed mass.
func (p *FinishedProduct) IsMassBased() bool {
	return p.PackagingUnitMass.IsPositive()
}

// UnitMassGrams returns the package mass in grams.
func (p *FinishedProduct) UnitMassGrams() decimal.Decimal {
	return Normalize(p.PackagingUnitMass, UnitKilogram)
}

// RecipeComponent is what a recipe line consumes: a raw material or a
// sub-product. The unexported method closes the set.
type RecipeComponent interface {
	ComponentID() string
	isRecipeComponent()
}

// RawMaterialComponent consumes lots of a raw material.
type RawMaterialComponent struct {
	MaterialID string
}

func (c RawMaterialComponent) ComponentID() string { return c.MaterialID }
func (RawMaterialComponent) isRecipeComponent()    {}

// SubProductComponent consumes packages of another finished product.
type SubProductComponent struct {
	ProductID string
}

func (c SubProductComponent) ComponentID() string { return c.ProductID }
func (SubProductComponent) isRecipeComponent()    {}

// RecipeLine is one input of a bill of materials, per unit of batch size.
type RecipeLine struct {
	ID               string
	ProductID        string
	Position         int
	Component        RecipeComponent
	QuantityRequired decimal.Decimal
	Unit             Unit

	// Joined fields
	ComponentName string
}

// Required returns the quantity needed for batchSize, in the line's unit.
func (l *RecipeLine) Required(batchSize int) decimal.Decimal {
	return l.QuantityRequired.Mul(decimal.NewFromInt(int64(batchSize)))
}

// RawMaterialID returns the material id when the line consumes a raw material.
func (l *RecipeLine) RawMaterialID() (string, bool) {
	c, ok := l.Component.(RawMaterialComponent)
	return c.MaterialID, ok
}

// SubProductID returns the product id when the line consumes a sub-product.
func (l *RecipeLine) SubProductID() (string, bool) {
	c, ok := l.Component.(SubProductComponent)
	return c.ProductID, ok
}

// PackagingLine ties a product to the packaging consumed per produced unit.
type PackagingLine struct {
	ID               string
	ProductID        string
	Position         int
	PackagingID      string
	QuantityRequired int

	// Joined fields
	PackagingName string
}

// ProductFilter defines filters for querying products.
type ProductFilter struct {
	CategoryID string
	SearchTerm string
}
