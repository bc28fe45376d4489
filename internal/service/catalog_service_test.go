package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailradar/retailradar/internal/breaker"
	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/source"
	"github.com/retailradar/retailradar/internal/utils"
)

type fakeFetcher struct {
	products []models.Product
	err      error
	calls    int
}

func (f *fakeFetcher) FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeFetcher) Stats() []breaker.Stats                              { return nil }
func (f *fakeFetcher) HealthStatus(ctx context.Context) []source.HealthStatus { return nil }
func (f *fakeFetcher) ResetAllBreakers()                                   {}

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*models.CatalogEntry
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*models.CatalogEntry)}
}

func (s *fakeStore) Upsert(entry *models.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[entry.StockxURL]; ok {
		existing.CurrentPrice = entry.CurrentPrice
		existing.DiscountPercentage = entry.DiscountPercentage
		existing.UpdatedAt = time.Now()
		*entry = *existing
		return nil
	}

	s.seq++
	entry.ID = entry.StockxURL
	entry.CreatedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
	entry.UpdatedAt = entry.CreatedAt
	stored := *entry
	s.entries[entry.StockxURL] = &stored
	return nil
}

func (s *fakeStore) matching(brand string, q *models.BrandQuery) []models.CatalogEntry {
	var out []models.CatalogEntry
	for _, e := range s.entries {
		if !strings.EqualFold(e.Brand, brand) || e.CurrentPrice >= e.RetailPrice {
			continue
		}
		if q.MinDiscount != nil && e.DiscountPercentage < *q.MinDiscount {
			continue
		}
		if q.MaxPrice != nil && e.CurrentPrice > *q.MaxPrice {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DiscountPercentage != out[j].DiscountPercentage {
			return out[i].DiscountPercentage > out[j].DiscountPercentage
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *fakeStore) FindBelowRetail(brand string, q *models.BrandQuery) ([]models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.matching(brand, q)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) CountBelowRetail(brand string, q *models.BrandQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matching(brand, q)), nil
}

type fakeCache struct {
	pages    map[string]*models.ProductPage
	writeErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: make(map[string]*models.ProductPage)}
}

func (c *fakeCache) Key(brand string, q *models.BrandQuery) string {
	return strings.ToLower(brand) + "-below-retail:" + q.Cursor
}

func (c *fakeCache) GetPage(ctx context.Context, key string) (*models.ProductPage, error) {
	return c.pages[key], nil
}

func (c *fakeCache) SetPage(ctx context.Context, key string, page *models.ProductPage) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.pages[key] = page
	return nil
}

func product(name, url string, retail, current float64) models.Product {
	return models.Product{
		Name:         name,
		Brand:        "Supreme",
		RetailPrice:  retail,
		CurrentPrice: current,
		StockxURL:    url,
	}
}

func TestCalculateDiscount(t *testing.T) {
	assert.Equal(t, 0.2, calculateDiscount(100, 80))
	assert.Equal(t, 0.3333, calculateDiscount(3, 2))
	assert.Equal(t, 0.0, calculateDiscount(0, 50))
	assert.Equal(t, 0.0, calculateDiscount(-10, 5))
}

func TestGetBelowRetailOrdersByDiscount(t *testing.T) {
	fetcher := &fakeFetcher{products: []models.Product{
		product("Box Logo Tee", "https://stockx.com/a", 100, 80),
		product("Box Logo Hoodie", "https://stockx.com/b", 200, 150),
		product("Hyped Collab", "https://stockx.com/c", 100, 120),
	}}
	svc := NewCatalogService(fetcher, newFakeStore(), newFakeCache(), time.Minute)

	page, err := svc.GetBelowRetail(context.Background(), "Supreme", &models.BrandQuery{})
	require.NoError(t, err)

	require.Len(t, page.Data, 2)
	assert.Equal(t, "Box Logo Hoodie", page.Data[0].Name)
	assert.Equal(t, 0.25, page.Data[0].DiscountPercentage)
	assert.Equal(t, "Box Logo Tee", page.Data[1].Name)
	assert.Equal(t, 0.2, page.Data[1].DiscountPercentage)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.False(t, page.Pagination.HasNext)
}

func TestGetBelowRetailPaginates(t *testing.T) {
	fetcher := &fakeFetcher{products: []models.Product{
		product("Tee", "https://stockx.com/a", 100, 80),
		product("Hoodie", "https://stockx.com/b", 200, 150),
		product("Jacket", "https://stockx.com/c", 300, 210),
	}}
	svc := NewCatalogService(fetcher, newFakeStore(), newFakeCache(), time.Minute)

	page, err := svc.GetBelowRetail(context.Background(), "Supreme", &models.BrandQuery{Limit: 2})
	require.NoError(t, err)

	assert.Len(t, page.Data, 2)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)
	assert.NotEmpty(t, page.Pagination.Cursor)
}

func TestGetBelowRetailServesCachedPage(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := newFakeCache()
	svc := NewCatalogService(fetcher, newFakeStore(), cache, time.Minute)

	q := &models.BrandQuery{}
	cached := &models.ProductPage{Data: []models.Product{product("Cached", "https://stockx.com/x", 100, 50)}}
	cache.pages[cache.Key("Supreme", q)] = cached

	page, err := svc.GetBelowRetail(context.Background(), "Supreme", q)
	require.NoError(t, err)
	assert.Equal(t, cached, page)
	assert.Equal(t, 0, fetcher.calls, "cache hit must not touch the sources")
}

func TestGetBelowRetailPropagatesSourceFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: utils.ErrAllSourcesFailed}
	svc := NewCatalogService(fetcher, newFakeStore(), newFakeCache(), time.Minute)

	_, err := svc.GetBelowRetail(context.Background(), "Supreme", &models.BrandQuery{})
	assert.ErrorIs(t, err, utils.ErrAllSourcesFailed)
}

func TestGetBelowRetailSwallowsCacheWriteFailure(t *testing.T) {
	fetcher := &fakeFetcher{products: []models.Product{
		product("Box Logo Tee", "https://stockx.com/a", 100, 80),
	}}
	cache := newFakeCache()
	cache.writeErr = errors.New("redis down")
	svc := NewCatalogService(fetcher, newFakeStore(), cache, time.Minute)

	page, err := svc.GetBelowRetail(context.Background(), "Supreme", &models.BrandQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
}

func TestRefreshBrandReconcilesByURL(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{products: []models.Product{
		product("Box Logo Tee", "https://stockx.com/a", 100, 80),
	}}
	svc := NewCatalogService(fetcher, store, newFakeCache(), time.Minute)

	count, err := svc.RefreshBrand(context.Background(), "Supreme")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same URL at a new ask updates the row in place.
	fetcher.products[0].CurrentPrice = 70
	count, err = svc.RefreshBrand(context.Background(), "Supreme")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, store.entries, 1)
	entry := store.entries["https://stockx.com/a"]
	assert.Equal(t, 70.0, entry.CurrentPrice)
	assert.Equal(t, 0.3, entry.DiscountPercentage)
}

func TestRefreshBrandSkipsAtOrAboveRetail(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{products: []models.Product{
		product("At Retail", "https://stockx.com/a", 100, 100),
		product("Above Retail", "https://stockx.com/b", 100, 150),
		product("Below Retail", "https://stockx.com/c", 100, 60),
	}}
	svc := NewCatalogService(fetcher, store, newFakeCache(), time.Minute)

	count, err := svc.RefreshBrand(context.Background(), "Supreme")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, store.entries, 1)
	assert.Contains(t, store.entries, "https://stockx.com/c")
}
