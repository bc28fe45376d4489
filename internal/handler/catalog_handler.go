package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/service"
	"github.com/retailradar/retailradar/internal/utils"
)

// CatalogHandler handles below-retail catalog HTTP endpoints.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// GetBelowRetail returns one page of the brand's below-retail products.
// Query parameters are validated before any source is touched.
func (h *CatalogHandler) GetBelowRetail(c *gin.Context) {
	brand := c.Param("brandName")
	if brand == "" {
		utils.Error(c, 400, "VALIDATION_ERROR", "Brand name is required")
		return
	}

	q, errMsg := parseBrandQuery(c)
	if errMsg != "" {
		utils.Error(c, 400, "VALIDATION_ERROR", errMsg)
		return
	}

	page, err := h.catalogService.GetBelowRetail(c.Request.Context(), brand, q)
	if err != nil {
		if errors.Is(err, utils.ErrAllSourcesFailed) {
			utils.Error(c, 502, "ALL_SOURCES_FAILED", err.Error())
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get below-retail products")
		return
	}

	utils.Success(c, 200, "Below-retail products retrieved successfully", page)
}

// GetAdapterStats returns circuit breaker stats for every data source.
func (h *CatalogHandler) GetAdapterStats(c *gin.Context) {
	utils.Success(c, 200, "Adapter stats retrieved successfully", gin.H{
		"adapters": h.catalogService.AdapterStats(),
	})
}

// GetSourceHealth probes every data source's health.
func (h *CatalogHandler) GetSourceHealth(c *gin.Context) {
	utils.Success(c, 200, "Source health retrieved successfully", gin.H{
		"sources": h.catalogService.HealthStatus(c.Request.Context()),
	})
}

// ResetCircuitBreakers forces every source breaker back to CLOSED.
func (h *CatalogHandler) ResetCircuitBreakers(c *gin.Context) {
	h.catalogService.ResetCircuitBreakers()
	utils.Success(c, 200, "Circuit breakers reset successfully", gin.H{
		"adapters": h.catalogService.AdapterStats(),
	})
}

// parseBrandQuery validates and builds the query. Returns a non-empty message
// on the first invalid parameter.
func parseBrandQuery(c *gin.Context) (*models.BrandQuery, string) {
	q := &models.BrandQuery{Limit: 20}

	if v := c.Query("minDiscount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, "minDiscount must be a number between 0 and 1"
		}
		q.MinDiscount = &f
	}
	if v := c.Query("maxPrice"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, "maxPrice must be a positive number"
		}
		q.MaxPrice = &f
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return nil, "limit must be an integer between 1 and 100"
		}
		q.Limit = n
	}
	q.Size = c.Query("size")
	q.Cursor = c.Query("cursor")

	return q, ""
}
