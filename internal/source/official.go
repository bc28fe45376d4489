package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/utils"
	"github.com/retailradar/retailradar/pkg/stockx"
)

const (
	officialSourceName = "official-stockx-api"
	officialPageSize   = 100
	officialMaxFetch   = 1000
)

// OfficialSource fetches products from the official StockX catalog API.
type OfficialSource struct {
	client *stockx.Client
}

// NewOfficialSource constructs an OfficialSource.
func NewOfficialSource(client *stockx.Client) *OfficialSource {
	return &OfficialSource{client: client}
}

// FetchBrandProducts pages through the catalog search until the brand's
// candidates are exhausted or the fetch cap is reached. Records with a
// non-positive retail or current price are dropped; only below-retail
// candidates are returned.
func (s *OfficialSource) FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error) {
	var all []models.Product
	cursor := ""

	for len(all) < officialMaxFetch {
		resp, err := s.client.SearchCatalog(ctx, strings.ToLower(brand), "sneakers", officialPageSize, cursor)
		if err != nil {
			return nil, s.wrapError(err)
		}

		page := resp.Data.Products
		if len(page) == 0 {
			break
		}
		all = append(all, s.transform(page, brand)...)

		if !resp.Data.Pagination.HasNext {
			break
		}
		cursor = resp.Data.Pagination.Cursor
	}

	log.Info().
		Str("brand", brand).
		Int("count", len(all)).
		Msg("Official API returned below-retail candidates")
	return all, nil
}

// IsHealthy probes the catalog health endpoint.
func (s *OfficialSource) IsHealthy(ctx context.Context) bool {
	if err := s.client.Health(ctx); err != nil {
		log.Warn().Err(err).Msg("Official StockX API health check failed")
		return false
	}
	return true
}

func (s *OfficialSource) transform(items []stockx.CatalogProduct, brand string) []models.Product {
	now := time.Now()
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		if !strings.EqualFold(item.Brand, brand) {
			continue
		}

		current := item.Market.LowestAsk
		if current <= 0 {
			current = item.Market.LastSale
		}
		if item.RetailPrice <= 0 || current <= 0 {
			continue
		}
		if current >= item.RetailPrice {
			continue
		}

		p := models.Product{
			ID:           item.ID,
			Name:         item.Name,
			Brand:        item.Brand,
			Colorway:     item.Colorway,
			RetailPrice:  item.RetailPrice,
			CurrentPrice: current,
			ImageURL:     item.Media.ImageURL,
			StockxURL:    "https://stockx.com/" + item.URLKey,
			LastUpdated:  now,
		}
		p.DiscountPercentage = (p.RetailPrice - p.CurrentPrice) / p.RetailPrice
		for _, trait := range item.Traits {
			if strings.EqualFold(trait.Name, "Style") {
				p.SKU = trait.Value
			}
		}
		products = append(products, p)
	}
	return products
}

// wrapError maps API status codes to the shared external-error type so the
// breaker's expected-error predicate can classify them.
func (s *OfficialSource) wrapError(err error) error {
	var statusErr *stockx.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == 401:
			return utils.NewExternalAPIError(officialSourceName, 401, "invalid StockX API credentials")
		case statusErr.StatusCode == 429:
			return utils.NewExternalAPIError(officialSourceName, 429, "StockX API rate limit exceeded")
		case statusErr.StatusCode >= 500:
			return utils.NewExternalAPIError(officialSourceName, statusErr.StatusCode, "StockX API server error")
		default:
			return utils.NewExternalAPIError(officialSourceName, statusErr.StatusCode, "StockX API request rejected")
		}
	}
	return utils.NewExternalAPIError(officialSourceName, 0, err.Error())
}
