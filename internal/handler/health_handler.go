package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retailradar/retailradar/internal/service"
	"github.com/retailradar/retailradar/internal/utils"
)

var startTime = time.Now()

// HealthHandler provides health endpoints.
type HealthHandler struct {
	catalogService *service.CatalogService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(catalogService *service.CatalogService) *HealthHandler {
	return &HealthHandler{catalogService: catalogService}
}

// GetHealth responds with service status and every data source's health.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	sources := h.catalogService.HealthStatus(c.Request.Context())

	// Degraded only when every source is down; one live source keeps the
	// fallback chain usable.
	status := "degraded"
	for _, s := range sources {
		if s.Healthy {
			status = "healthy"
			break
		}
	}
	if len(sources) == 0 {
		status = "healthy"
	}

	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":  status,
		"version": "1.0.0",
		"uptime":  int(time.Since(startTime).Seconds()),
		"sources": sources,
	})
}
