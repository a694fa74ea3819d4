package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osmo/osmo/internal/config"
)

// NewRouter wires the gin engine with the API routes and middlewares.
func NewRouter(h *Handler, mode config.ServerMode) *gin.Engine {
	if mode != "" {
		gin.SetMode(string(mode))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	api := r.Group("/api")
	api.GET("/health", h.Health)

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.POST("", h.CreateProduct)
	products.DELETE("/:id", h.DeleteProduct)
	products.GET("/:id/availability", h.Availability)
	products.PUT("/:id/recipe", h.SetRecipe)
	products.PUT("/:id/packaging", h.SetPackagingLines)
	products.PUT("/:id/stock", h.SetProductStock)

	orders := api.Group("/production-orders")
	orders.GET("", h.ListOrders)
	orders.POST("", h.CreateOrder)
	orders.GET("/:id", h.GetOrder)
	orders.PATCH("/:id", h.SetProduced)
	orders.DELETE("/:id", h.DeleteOrder)

	api.GET("/units", h.ListUnits)
	api.GET("/categories", h.ListCategories)

	packaging := api.Group("/packaging")
	packaging.GET("", h.ListPackaging)
	packaging.POST("", h.CreatePackaging)
	packaging.DELETE("/:id", h.DeletePackaging)
	packaging.PUT("/:id/stock", h.SetPackagingStock)

	materials := api.Group("/materials")
	materials.GET("", h.ListMaterials)
	materials.GET("/critical", h.CriticalMaterials)
	materials.GET("/:id", h.GetMaterial)
	materials.GET("/:id/batches", h.ListBatches)
	materials.POST("/:id/batches", h.ReceiveBatch)

	api.PATCH("/batches/:id", h.AdjustBatch)
	api.DELETE("/batches/:id", h.DeleteBatch)
	api.GET("/reports/inventory", h.InventorySheet)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}
