package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osmo/osmo/internal/services/inventory"
	"github.com/osmo/osmo/internal/services/production"
)

// writeError maps service errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var shortage *production.ShortageError
	if errors.As(err, &shortage) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "shortage",
			"shortages": toShortages(shortage.Report),
			"messages":  shortage.Report.Messages(),
		})
		return
	}

	var yield *production.InsufficientYieldError
	if errors.As(err, &yield) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "insufficient_yield",
			"message": yield.Error(),
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, production.ErrNoRecipeDefined):
		status, code = http.StatusUnprocessableEntity, "no_recipe"
	case errors.Is(err, production.ErrInvalidRecipe):
		status, code = http.StatusUnprocessableEntity, "invalid_recipe"
	case errors.Is(err, production.ErrOrderNotFound),
		errors.Is(err, production.ErrProductNotFound),
		errors.Is(err, inventory.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, production.ErrConcurrencyConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, inventory.ErrInUse):
		status, code = http.StatusConflict, "in_use"
	case errors.Is(err, inventory.ErrLotIncrease):
		status, code = http.StatusConflict, "lot_increase"
	case errors.Is(err, inventory.ErrDuplicateName):
		status, code = http.StatusConflict, "duplicate"
	case errors.Is(err, production.ErrInvalidBatchSize),
		errors.Is(err, production.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidInput),
		errors.Is(err, inventory.ErrUnknownUnit),
		errors.Is(err, inventory.ErrIncompatibleUnit),
		errors.Is(err, inventory.ErrRecipeCycle):
		status, code = http.StatusBadRequest, "invalid_input"
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
}
