package models

import "time"

// Packaging is a packaging SKU with a scalar stock counter.
type Packaging struct {
	ID              string
	Name            string
	QuantityInStock int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
