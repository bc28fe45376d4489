package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/breaker"
	"github.com/retailradar/retailradar/internal/models"
)

// ProtectedSource wraps one DataSource with one circuit breaker sharing the
// source's name. A fetch that yields zero products is raised as a failure so
// the breaker counts it: an empty result from a source that should have data
// is as suspect as an error.
type ProtectedSource struct {
	source  DataSource
	name    string
	breaker *breaker.CircuitBreaker

	retryCount int
	retryDelay time.Duration
}

// NewProtectedSource wraps source with a breaker using the given policy.
func NewProtectedSource(source DataSource, name string, opts breaker.Options, retryCount int, retryDelay time.Duration) *ProtectedSource {
	if retryCount < 1 {
		retryCount = 1
	}
	return &ProtectedSource{
		source:     source,
		name:       name,
		breaker:    breaker.New(name, opts),
		retryCount: retryCount,
		retryDelay: retryDelay,
	}
}

// Name returns the source's name.
func (p *ProtectedSource) Name() string {
	return p.name
}

// FetchBrandProducts delegates through the breaker. Empty results become
// failures before the breaker records the outcome.
func (p *ProtectedSource) FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error) {
	var products []models.Product
	err := p.breaker.Execute(func() error {
		log.Info().Str("source", p.name).Str("brand", brand).Msg("Fetching brand products")
		out, err := p.source.FetchBrandProducts(ctx, brand)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return fmt.Errorf("%s returned no products for %s", p.name, brand)
		}
		products = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// IsHealthy delegates the health probe through the breaker. Any error,
// including a circuit-open rejection, is swallowed into false: health checks
// never fail loudly.
func (p *ProtectedSource) IsHealthy(ctx context.Context) bool {
	healthy := false
	err := p.breaker.Execute(func() error {
		healthy = p.source.IsHealthy(ctx)
		return nil
	})
	if err != nil {
		log.Warn().Str("source", p.name).Err(err).Msg("Health check rejected")
		return false
	}
	return healthy
}

// BreakerStats returns the underlying breaker's stats snapshot.
func (p *ProtectedSource) BreakerStats() breaker.Stats {
	return p.breaker.Stats()
}

// ResetBreaker forces the underlying breaker back to CLOSED.
func (p *ProtectedSource) ResetBreaker() {
	p.breaker.Reset()
}
