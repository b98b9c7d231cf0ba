package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fincontrol-ledger/internal/api_gateway/handler"
	"github.com/fincontrol-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	planHandler *handler.PlanHandler,
	entryHandler *handler.EntryHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		plans := v1.Group("/plans")
		{
			plans.POST("", planHandler.Create)
			plans.GET("/:id", planHandler.GetByID)
			plans.POST("/:id/cancel", planHandler.Cancel)
			plans.POST("/:id/pay-all", planHandler.PayAll)
		}

		entries := v1.Group("/entries")
		{
			entries.PATCH("/:id/status", entryHandler.UpdateStatus)
			entries.POST("/import", entryHandler.Import)
		}

		// Derived values, recomputed from the ledger on every call
		v1.GET("/accounts/:id/balance", reconciliationHandler.AccountBalance)
		v1.GET("/cards/:id/used-limit", reconciliationHandler.CardUsedLimit)

		reconciliations := v1.Group("/reconciliations")
		{
			reconciliations.POST("", reconciliationHandler.Request)
			reconciliations.GET("/:kind/:id/history", reconciliationHandler.History)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
