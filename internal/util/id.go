// Package util provides identifier and clock helpers shared across osmo.
package util

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator hands out time-ordered UUIDv7 identifiers.
//
// UUIDv7 ordering doubles as the insertion order of rows that share a
// timestamp, which keeps listings stable without an extra sequence column.
type IDGenerator struct{}

// NewIDGenerator creates a new ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewID generates a new UUIDv7 identifier from this generator.
func (g *IDGenerator) NewID() string {
	return NewID()
}

// NewID generates a new UUIDv7 identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source is broken.
		return uuid.New().String()
	}
	return id.String()
}

// ParseID validates and normalizes a UUID string.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return id.String(), nil
}

// IsValidID checks if a string is a valid UUID.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
