package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/utils"
	"github.com/retailradar/retailradar/pkg/rapidapi"
)

const rapidAPISourceName = "rapidapi-stockx"

// RapidAPISource fetches products from the RapidAPI StockX proxy.
type RapidAPISource struct {
	client *rapidapi.Client
}

// NewRapidAPISource constructs a RapidAPISource.
func NewRapidAPISource(client *rapidapi.Client) *RapidAPISource {
	return &RapidAPISource{client: client}
}

// FetchBrandProducts queries the proxy and returns the brand's below-retail
// candidates. Records with missing prices are dropped.
func (s *RapidAPISource) FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error) {
	resp, err := s.client.Search(ctx, strings.ToLower(brand), "shoes", 100)
	if err != nil {
		var statusErr *rapidapi.StatusError
		if errors.As(err, &statusErr) {
			return nil, utils.NewExternalAPIError(rapidAPISourceName, statusErr.StatusCode, "failed to fetch products from RapidAPI")
		}
		return nil, utils.NewExternalAPIError(rapidAPISourceName, 0, err.Error())
	}

	products := s.transform(resp.Data.Products, brand)
	log.Info().
		Str("brand", brand).
		Int("count", len(products)).
		Msg("RapidAPI returned below-retail candidates")
	return products, nil
}

// IsHealthy probes the proxy's ping endpoint.
func (s *RapidAPISource) IsHealthy(ctx context.Context) bool {
	if err := s.client.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("RapidAPI health check failed")
		return false
	}
	return true
}

func (s *RapidAPISource) transform(items []rapidapi.SearchProduct, brand string) []models.Product {
	now := time.Now()
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		if !strings.EqualFold(item.Brand, brand) {
			continue
		}

		var current float64
		if item.Market != nil {
			current = item.Market.LowestAsk
			if current <= 0 {
				current = item.Market.LastSale
			}
		}
		if item.RetailPrice <= 0 || current <= 0 {
			continue
		}
		if current >= item.RetailPrice {
			continue
		}

		p := models.Product{
			ID:           item.ID,
			Name:         item.Title,
			Brand:        item.Brand,
			Colorway:     item.Colorway,
			RetailPrice:  item.RetailPrice,
			CurrentPrice: current,
			StockxURL:    "https://stockx.com/" + item.URLKey,
			LastUpdated:  now,
		}
		p.DiscountPercentage = (p.RetailPrice - p.CurrentPrice) / p.RetailPrice
		if item.Image != nil {
			p.ImageURL = item.Image.Small
		}
		products = append(products, p)
	}
	return products
}
