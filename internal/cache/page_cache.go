package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retailradar/retailradar/internal/models"
)

// PageCache stores rendered below-retail pages keyed by brand + normalized
// query parameters. Entries expire after the configured TTL; within the TTL
// the cached page is authoritative.
type PageCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewPageCache creates a new PageCache.
func NewPageCache(redis *RedisClient, ttl time.Duration) *PageCache {
	return &PageCache{
		redis: redis,
		ttl:   ttl,
	}
}

// Key builds a deterministic cache key for a brand and query. Parameters are
// serialized in sorted order so equivalent queries share one entry.
func (c *PageCache) Key(brand string, q *models.BrandQuery) string {
	params := url.Values{}
	if q.MinDiscount != nil {
		params.Set("minDiscount", strconv.FormatFloat(*q.MinDiscount, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		params.Set("maxPrice", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.Size != "" {
		params.Set("size", q.Size)
	}
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	params.Set("limit", strconv.Itoa(limit))

	// url.Values.Encode sorts keys, giving a stable serialization.
	return fmt.Sprintf("%s-below-retail:%s", strings.ToLower(brand), params.Encode())
}

// GetPage retrieves a cached page. A missing key returns (nil, nil); only
// transport or decode failures produce an error.
func (c *PageCache) GetPage(ctx context.Context, key string) (*models.ProductPage, error) {
	raw, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache read failed: %w", err)
	}

	var page models.ProductPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached page: %w", err)
	}
	return &page, nil
}

// SetPage stores a page with the configured TTL.
func (c *PageCache) SetPage(ctx context.Context, key string, page *models.ProductPage) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	return c.redis.Set(ctx, key, string(raw), c.ttl)
}
