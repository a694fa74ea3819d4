// Package api exposes production and inventory over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/osmo/osmo/internal/models"
	"github.com/osmo/osmo/internal/services/inventory"
	"github.com/osmo/osmo/internal/services/production"
	"github.com/osmo/osmo/internal/util"
)

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves the API routes.
type Handler struct {
	production *production.Service
	inventory  *inventory.Service
	health     HealthChecker
	operator   string
}

// NewHandler creates a handler. operator is recorded as the actor of
// changes made through the API.
func NewHandler(prod *production.Service, inv *inventory.Service, health HealthChecker, operator string) *Handler {
	return &Handler{
		production: prod,
		inventory:  inv,
		health:     health,
		operator:   operator,
	}
}

// Health reports store reachability.
func (h *Handler) Health(c *gin.Context) {
	if err := h.health.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ============================================================================
// PRODUCTS
// ============================================================================

// ListProducts returns products, optionally filtered by a search term.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.inventory.ListProducts(c.Request.Context(), models.ProductFilter{
		CategoryID: c.Query("category_id"),
		SearchTerm: c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]productJSON, 0, len(products))
	for _, p := range products {
		items = append(items, toProduct(p))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Availability previews a batch of the product without writing.
func (h *Handler) Availability(c *gin.Context) {
	batch, err := strconv.Atoi(c.DefaultQuery("batch_size", "1"))
	if err != nil {
		badRequest(c, err)
		return
	}

	plan, err := h.production.PreviewOrder(c.Request.Context(), c.Param("id"), batch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlan(plan))
}

// ============================================================================
// PRODUCTION ORDERS
// ============================================================================

// ListOrders returns orders newest first.
func (h *Handler) ListOrders(c *gin.Context) {
	page := models.DefaultPagination()
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		page.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil {
		page.PageSize = v
	}

	filter := models.OrderFilter{ProductID: c.Query("product_id")}
	if filter.ProductID != "" && !util.IsValidID(filter.ProductID) {
		badRequest(c, errors.New("product_id must be a UUID"))
		return
	}

	list, err := h.production.ListOrders(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]orderJSON, 0, len(list.Orders))
	for _, o := range list.Orders {
		items = append(items, toOrder(o))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"total":       list.Total,
		"page":        list.Page,
		"page_size":   list.PageSize,
		"total_pages": list.TotalPages,
	})
}

// GetOrder returns one order with its consumption log.
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.production.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(order))
}

// CreateOrder creates a production order.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.production.CreateOrder(c.Request.Context(), production.CreateOrderInput{
		ProductID: req.ProductID,
		BatchSize: req.BatchSize,
		Actor:     h.operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrder(order))
}

// SetProduced records an order's actual output.
func (h *Handler) SetProduced(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setProducedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.production.SetProducedQuantity(c.Request.Context(), production.SetProducedInput{
		OrderID:          id,
		ProducedQuantity: *req.ProducedQuantity,
		Actor:            h.operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(order))
}

// DeleteOrder reverses and removes an order.
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.production.DeleteOrder(c.Request.Context(), production.DeleteOrderInput{
		OrderID: id,
		Actor:   h.operator,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// CATALOGUE
// ============================================================================

// ListUnits returns the units recipes and lots may be recorded in.
func (h *Handler) ListUnits(c *gin.Context) {
	units := models.AllUnits()
	items := make([]gin.H, 0, len(units))
	for _, u := range units {
		items = append(items, gin.H{"unit": u.String(), "base": u.Base().String()})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListCategories returns material and product categories.
func (h *Handler) ListCategories(c *gin.Context) {
	ctx := c.Request.Context()

	materialCats, err := h.inventory.ListMaterialCategories(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	productCats, err := h.inventory.ListProductCategories(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	materials := make([]categoryJSON, 0, len(materialCats))
	for _, cat := range materialCats {
		materials = append(materials, categoryJSON{ID: cat.ID, Name: cat.Name})
	}
	products := make([]categoryJSON, 0, len(productCats))
	for _, cat := range productCats {
		products = append(products, categoryJSON{ID: cat.ID, Name: cat.Name})
	}
	c.JSON(http.StatusOK, gin.H{"materials": materials, "products": products})
}

// ListPackaging returns packaging items with their stock.
func (h *Handler) ListPackaging(c *gin.Context) {
	packaging, err := h.inventory.ListPackaging(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]packagingJSON, 0, len(packaging))
	for _, p := range packaging {
		items = append(items, packagingJSON{ID: p.ID, Name: p.Name, QuantityInStock: p.QuantityInStock})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListMaterials returns raw materials by name.
func (h *Handler) ListMaterials(c *gin.Context) {
	materials, err := h.inventory.ListMaterials(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]materialJSON, 0, len(materials))
	for _, m := range materials {
		items = append(items, toMaterial(m))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetMaterial returns one raw material with its category.
func (h *Handler) GetMaterial(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	m, err := h.inventory.GetMaterial(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMaterial(m))
}

// ============================================================================
// REPORTS
// ============================================================================

// CriticalMaterials lists materials at or below their threshold.
func (h *Handler) CriticalMaterials(c *gin.Context) {
	critical, err := h.inventory.CriticalStock(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]materialStockJSON, 0, len(critical))
	for _, ms := range critical {
		items = append(items, toMaterialStock(ms))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// InventorySheet returns the stocktake snapshot.
func (h *Handler) InventorySheet(c *gin.Context) {
	sheet, err := h.inventory.InventorySheet(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toInventory(sheet))
}

// pathID reads the :id path parameter, answering 400 when it is not a UUID.
func pathID(c *gin.Context) (string, bool) {
	id, err := util.ParseID(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return "", false
	}
	return id, true
}
