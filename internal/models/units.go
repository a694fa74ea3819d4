package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a unit of measure for recipe lines, lots and materials.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitMillilitre Unit = "ml"
	UnitLitre      Unit = "l"
	UnitPieces     Unit = "pcs"
)

// BaseMassUnit is the canonical unit every mass-like quantity normalizes to.
const BaseMassUnit = UnitGram

// ErrUnknownUnit is returned by ParseUnit for unrecognized unit strings.
var ErrUnknownUnit = errors.New("unknown unit")

// Liquids are treated as mass with a density of 1.
var massFactors = map[Unit]decimal.Decimal{
	UnitKilogram:   decimal.NewFromInt(1000),
	UnitGram:       decimal.NewFromInt(1),
	UnitMillilitre: decimal.NewFromInt(1),
	UnitLitre:      decimal.NewFromInt(1000),
}

// ParseUnit validates a unit string. Unknown units fail closed.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if u.IsKnown() {
		return u, nil
	}
	if u == "pc" || u == "kom" {
		return UnitPieces, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// AllUnits lists the recognized units in display order.
func AllUnits() []Unit {
	return []Unit{UnitKilogram, UnitGram, UnitLitre, UnitMillilitre, UnitPieces}
}

func (u Unit) String() string {
	return string(u)
}

// IsMass reports whether u converts to grams.
func (u Unit) IsMass() bool {
	_, ok := massFactors[u]
	return ok
}

// IsKnown reports whether u is one of the recognized units.
func (u Unit) IsKnown() bool {
	return u.IsMass() || u == UnitPieces
}

// Base returns the unit a quantity in u normalizes to.
func (u Unit) Base() Unit {
	if u.IsMass() {
		return BaseMassUnit
	}
	return u
}

// Compatible reports whether quantities in a and b can be compared.
func Compatible(a, b Unit) bool {
	if a.IsMass() && b.IsMass() {
		return true
	}
	return a == b
}

// Normalize converts q from u into u.Base(). Units without a conversion
// factor pass through unchanged, so callers comparing two quantities must
// check Compatible first.
func Normalize(q decimal.Decimal, u Unit) decimal.Decimal {
	if f, ok := massFactors[u]; ok {
		return q.Mul(f)
	}
	return q
}

// FromBase converts a base-unit quantity back into u.
func FromBase(q decimal.Decimal, u Unit) decimal.Decimal {
	if f, ok := massFactors[u]; ok {
		return q.Div(f)
	}
	return q
}

// FromBaseCeil is FromBase rounded up at decimal.DivisionPrecision, so
// that Normalize of the result is never less than q.
func FromBaseCeil(q decimal.Decimal, u Unit) decimal.Decimal {
	f, ok := massFactors[u]
	if !ok {
		return q
	}
	precision := int32(decimal.DivisionPrecision)
	quo, rem := q.QuoRem(f, precision)
	if rem.IsPositive() {
		quo = quo.Add(decimal.New(1, -precision))
	}
	return quo
}

// Convert expresses q (in from) in the unit to. Incompatible units are an error.
func Convert(q decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	if !Compatible(from, to) {
		return decimal.Zero, fmt.Errorf("cannot convert %s to %s", from, to)
	}
	return FromBase(Normalize(q, from), to), nil
}

// FormatQuantity renders q with u, trimming trailing zeros.
func FormatQuantity(q decimal.Decimal, u Unit) string {
	return q.Round(3).String() + " " + string(u)
}
