package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osmo/osmo/internal/services/inventory"
	"github.com/osmo/osmo/internal/util"
)

// ============================================================================
// PRODUCTS
// ============================================================================

// CreateProduct creates a finished product without a recipe.
func (h *Handler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.inventory.CreateProduct(c.Request.Context(), inventory.ProductInput{
		Name:              req.Name,
		ProductCode:       req.ProductCode,
		CategoryID:        req.CategoryID,
		PackagingUnitMass: req.PackagingUnitMass,
		DisplayUnit:       req.DisplayUnit,
		Actor:             h.operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProduct(p))
}

// DeleteProduct deletes a product no recipe or order references.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.inventory.DeleteProduct(c.Request.Context(), id, h.operator); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetRecipe replaces a product's recipe.
func (h *Handler) SetRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inputs := make([]inventory.RecipeLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		inputs = append(inputs, inventory.RecipeLineInput{
			MaterialID:   l.MaterialID,
			SubProductID: l.SubProductID,
			Quantity:     l.Quantity,
			Unit:         l.Unit,
		})
	}

	lines, err := h.inventory.SetRecipe(c.Request.Context(), id, inputs, h.operator)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": toRecipe(lines)})
}

// SetPackagingLines replaces the packaging a product consumes per unit.
func (h *Handler) SetPackagingLines(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setPackagingLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inputs := make([]inventory.PackagingLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		inputs = append(inputs, inventory.PackagingLineInput{PackagingID: l.PackagingID, Quantity: l.Quantity})
	}

	lines, err := h.inventory.SetPackagingLines(c.Request.Context(), id, inputs, h.operator)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": toPackagingLines(lines)})
}

// SetProductStock overwrites a product's stock after a stocktake.
func (h *Handler) SetProductStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.inventory.SetProductStock(c.Request.Context(), id, *req.Quantity, h.operator); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// PACKAGING
// ============================================================================

// CreatePackaging creates a packaging item with an opening stock.
func (h *Handler) CreatePackaging(c *gin.Context) {
	var req createPackagingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.inventory.CreatePackaging(c.Request.Context(), req.Name, req.Stock, h.operator)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, packagingJSON{ID: p.ID, Name: p.Name, QuantityInStock: p.QuantityInStock})
}

// DeletePackaging deletes a packaging item no product uses.
func (h *Handler) DeletePackaging(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.inventory.DeletePackaging(c.Request.Context(), id, h.operator); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPackagingStock overwrites a packaging item's stock after a stocktake.
func (h *Handler) SetPackagingStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.inventory.SetPackagingStock(c.Request.Context(), id, *req.Quantity, h.operator); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// LOTS
// ============================================================================

// ListBatches returns a material's lots oldest first. ?available=true
// hides depleted lots.
func (h *Handler) ListBatches(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	batches, err := h.inventory.ListBatches(c.Request.Context(), id, c.Query("available") == "true")
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]batchJSON, 0, len(batches))
	for _, b := range batches {
		items = append(items, toBatch(b))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ReceiveBatch books a goods receipt against a material.
func (h *Handler) ReceiveBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req receiveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var received time.Time
	if req.ReceivedDate != "" {
		var err error
		if received, err = util.ParseDate(req.ReceivedDate); err != nil {
			badRequest(c, err)
			return
		}
	}

	b, err := h.inventory.ReceiveBatch(c.Request.Context(), inventory.ReceiveBatchInput{
		MaterialID:   id,
		BatchNumber:  req.BatchNumber,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		ReceivedDate: received,
		Actor:        h.operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBatch(b))
}

// AdjustBatch corrects a lot's quantity on hand.
func (h *Handler) AdjustBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req adjustBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	b, err := h.inventory.AdjustBatch(c.Request.Context(), inventory.AdjustBatchInput{
		BatchID:  id,
		Quantity: *req.Quantity,
		Actor:    h.operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatch(b))
}

// DeleteBatch deletes a lot production has never drawn from.
func (h *Handler) DeleteBatch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.inventory.DeleteBatch(c.Request.Context(), id, h.operator); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
