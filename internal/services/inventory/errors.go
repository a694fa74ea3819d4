package inventory

import (
	"errors"
	"fmt"

	"github.com/osmo/osmo/internal/database"
	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/repository"
)

var (
	ErrUnknownUnit      = models.ErrUnknownUnit
	ErrNotFound         = repository.ErrNotFound
	ErrDuplicateName    = errors.New("name already in use")
	ErrInUse            = errors.New("still referenced")
	ErrIncompatibleUnit = errors.New("incompatible unit")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRecipeCycle      = errors.New("recipe would contain itself")

	// ErrLotIncrease is returned when a lot that production already drew
	// from is adjusted upward. Such lots may only move toward zero.
	ErrLotIncrease = errors.New("a consumed lot can only be reduced")
)

// translate maps constraint failures onto inventory errors.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicateName)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, ErrInUse)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
