package production

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/repository"
)

var (
	// ErrNoRecipeDefined is returned when the product has no recipe lines.
	ErrNoRecipeDefined = errors.New("no recipe defined")

	// ErrConcurrencyConflict means stock changed underneath the operation.
	// Nothing was applied and the caller may retry.
	ErrConcurrencyConflict = errors.New("stock changed concurrently, retry the operation")

	ErrOrderNotFound    = errors.New("production order not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrInvalidQuantity  = errors.New("produced quantity must not be negative")

	// ErrInvalidRecipe is returned when a stored recipe line cannot be
	// evaluated, e.g. a mass line on a sub-product without a unit mass.
	ErrInvalidRecipe = errors.New("invalid recipe")
)

// ShortageError carries every recipe line that stock cannot cover.
type ShortageError struct {
	Report models.ShortageReport
}

func (e *ShortageError) Error() string {
	return "insufficient stock: " + e.Report.String()
}

// InsufficientYieldError is returned when a batch is too small to fill a
// single package.
type InsufficientYieldError struct {
	BatchSize int
	TotalMass decimal.Decimal // grams
	UnitMass  decimal.Decimal // kg
}

func (e *InsufficientYieldError) Error() string {
	return fmt.Sprintf("batch of %d yields %s g, less than one %s kg package",
		e.BatchSize, e.TotalMass.Round(3).String(), e.UnitMass.String())
}

// PersistenceError wraps a database failure during an operation. The
// transaction was rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a concurrency conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// classify turns a failure from inside a transaction into the error
// returned to callers. Domain errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var shortage *ShortageError
	var yield *InsufficientYieldError
	var persistence *PersistenceError
	switch {
	case errors.As(err, &shortage), errors.As(err, &yield), errors.As(err, &persistence):
		return err
	case errors.Is(err, ErrNoRecipeDefined),
		errors.Is(err, ErrConcurrencyConflict),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrInvalidBatchSize),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidRecipe):
		return err
	case errors.Is(err, repository.ErrStaleWrite), database.IsBusy(err):
		return fmt.Errorf("%s: %w", op, errors.Join(ErrConcurrencyConflict, err))
	default:
		return &PersistenceError{Op: op, Err: err}
	}
}
