package service

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/breaker"
	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/repository"
	"github.com/retailradar/retailradar/internal/source"
)

// ProductFetcher is the slice of the source orchestrator the catalog needs.
type ProductFetcher interface {
	FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error)
	Stats() []breaker.Stats
	HealthStatus(ctx context.Context) []source.HealthStatus
	ResetAllBreakers()
}

// CatalogStore is the slice of the catalog repository the service needs.
type CatalogStore interface {
	FindBelowRetail(brand string, q *models.BrandQuery) ([]models.CatalogEntry, error)
	CountBelowRetail(brand string, q *models.BrandQuery) (int, error)
	Upsert(entry *models.CatalogEntry) error
}

// PageStore caches rendered product pages.
type PageStore interface {
	Key(brand string, q *models.BrandQuery) string
	GetPage(ctx context.Context, key string) (*models.ProductPage, error)
	SetPage(ctx context.Context, key string, page *models.ProductPage) error
}

// CatalogService serves below-retail product pages. On a cache miss it
// refreshes the catalog through the source orchestrator, reconciles the
// results into storage, and pages over the persisted catalog.
type CatalogService struct {
	sources      ProductFetcher
	repo         CatalogStore
	cache        PageStore
	fetchTimeout time.Duration
}

// NewCatalogService creates a new CatalogService. fetchTimeout caps one
// orchestrated refresh, covering every source attempt and its retries.
func NewCatalogService(sources ProductFetcher, repo CatalogStore, cache PageStore, fetchTimeout time.Duration) *CatalogService {
	return &CatalogService{
		sources:      sources,
		repo:         repo,
		cache:        cache,
		fetchTimeout: fetchTimeout,
	}
}

// GetBelowRetail returns one page of the brand's below-retail products.
// A cached page is authoritative for its TTL; on a miss the catalog is
// refreshed from the sources before querying. Cache failures are logged and
// swallowed so Redis outages degrade performance, not availability.
func (s *CatalogService) GetBelowRetail(ctx context.Context, brand string, q *models.BrandQuery) (*models.ProductPage, error) {
	key := s.cache.Key(brand, q)

	cached, err := s.cache.GetPage(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Page cache read failed")
	}
	if cached != nil {
		log.Debug().Str("key", key).Msg("Serving below-retail page from cache")
		return cached, nil
	}

	refreshCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	if _, err := s.RefreshBrand(refreshCtx, brand); err != nil {
		return nil, err
	}

	page, err := s.queryPage(brand, q)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetPage(ctx, key, page); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Page cache write failed")
	}
	return page, nil
}

// RefreshBrand fetches the brand's products through the orchestrator and
// reconciles the below-retail ones into the catalog. Discounts are recomputed
// from the fetched prices before persisting. Returns the number of entries
// reconciled.
func (s *CatalogService) RefreshBrand(ctx context.Context, brand string) (int, error) {
	products, err := s.sources.FetchBrandProducts(ctx, brand)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range products {
		p := &products[i]
		if !p.BelowRetail() || p.RetailPrice <= 0 {
			continue
		}
		p.DiscountPercentage = calculateDiscount(p.RetailPrice, p.CurrentPrice)

		entry := dtoToEntry(p)
		if err := s.repo.Upsert(entry); err != nil {
			log.Error().Err(err).Str("stockxUrl", p.StockxURL).Msg("Failed to reconcile product")
			continue
		}
		count++
	}

	log.Info().Str("brand", brand).Int("count", count).Msg("Reconciled below-retail products")
	return count, nil
}

// queryPage reads one page from storage and builds the pagination metadata.
// One extra row is requested so HasNext reflects the actual next page, not a
// guess from the total.
func (s *CatalogService) queryPage(brand string, q *models.BrandQuery) (*models.ProductPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	probe := *q
	probe.Limit = limit + 1
	entries, err := s.repo.FindBelowRetail(brand, &probe)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountBelowRetail(brand, q)
	if err != nil {
		return nil, err
	}

	hasNext := len(entries) > limit
	if hasNext {
		entries = entries[:limit]
	}

	page := &models.ProductPage{
		Data: make([]models.Product, 0, len(entries)),
		Pagination: models.PageInfo{
			HasNext: hasNext,
			Total:   total,
		},
	}
	for i := range entries {
		page.Data = append(page.Data, entryToDTO(&entries[i]))
	}
	if page.Pagination.HasNext {
		page.Pagination.Cursor = repository.GenerateCursor(&entries[len(entries)-1])
	}
	return page, nil
}

// AdapterStats returns breaker stats for every source in priority order.
func (s *CatalogService) AdapterStats() []breaker.Stats {
	return s.sources.Stats()
}

// HealthStatus probes every source's health.
func (s *CatalogService) HealthStatus(ctx context.Context) []source.HealthStatus {
	return s.sources.HealthStatus(ctx)
}

// ResetCircuitBreakers forces every source breaker back to CLOSED.
func (s *CatalogService) ResetCircuitBreakers() {
	s.sources.ResetAllBreakers()
}

// calculateDiscount computes (retail - current) / retail rounded to four
// decimal places. A non-positive retail price yields zero.
func calculateDiscount(retail, current float64) float64 {
	if retail <= 0 {
		return 0
	}
	return math.Round((retail-current)/retail*10000) / 10000
}

func dtoToEntry(p *models.Product) *models.CatalogEntry {
	entry := &models.CatalogEntry{
		Name:               p.Name,
		Brand:              p.Brand,
		Colorway:           p.Colorway,
		RetailPrice:        p.RetailPrice,
		CurrentPrice:       p.CurrentPrice,
		DiscountPercentage: p.DiscountPercentage,
		StockxURL:          p.StockxURL,
	}
	if p.Size != "" {
		entry.Size = &p.Size
	}
	if p.SKU != "" {
		entry.SKU = &p.SKU
	}
	if p.ImageURL != "" {
		entry.ImageURL = &p.ImageURL
	}
	return entry
}

func entryToDTO(e *models.CatalogEntry) models.Product {
	p := models.Product{
		ID:                 e.ID,
		Name:               e.Name,
		Brand:              e.Brand,
		Colorway:           e.Colorway,
		RetailPrice:        e.RetailPrice,
		CurrentPrice:       e.CurrentPrice,
		DiscountPercentage: e.DiscountPercentage,
		StockxURL:          e.StockxURL,
		LastUpdated:        e.UpdatedAt,
	}
	if e.Size != nil {
		p.Size = *e.Size
	}
	if e.SKU != nil {
		p.SKU = *e.SKU
	}
	if e.ImageURL != nil {
		p.ImageURL = *e.ImageURL
	}
	return p
}
