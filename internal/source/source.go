// Package source contains the product data sources and the orchestration
// layer that provides fallback across them.
package source

import (
	"context"
	"strings"

	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/utils"
)

// DataSource is one backend capable of producing candidate product listings
// for a brand.
type DataSource interface {
	// FetchBrandProducts returns candidate products for a brand. It returns
	// an error on transport or parsing failure.
	FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error)
	// IsHealthy probes the backend. It never returns an error; an unreachable
	// backend is simply unhealthy.
	IsHealthy(ctx context.Context) bool
}

// countableError reports whether err should count against a source's circuit
// breaker. Validation failures and upstream client rejections (400/401/403)
// are the caller's problem, not the source's.
func countableError(err error) bool {
	if utils.IsClientError(err) {
		return false
	}
	msg := err.Error()
	return !strings.Contains(msg, "validation") &&
		!strings.Contains(msg, "400") &&
		!strings.Contains(msg, "401") &&
		!strings.Contains(msg, "403")
}
