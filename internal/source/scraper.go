package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"
	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/utils"
)

const scraperSourceName = "html-scraper"

// Selector fallback chain for product tiles; the marketplace reshuffles its
// markup regularly so each candidate is tried in order.
var tileSelectors = []string{
	"[data-testid='ProductTile']",
	"div[class*='ProductTile']",
	"div.tile.browse-tile",
}

var moneyPattern = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{2})?)`)

// ScraperSource extracts product listings directly from the marketplace's
// search pages. It is the lowest-fidelity source and sits last in the
// priority chain.
type ScraperSource struct {
	userAgent  string
	delay      time.Duration
	httpClient *http.Client
}

// NewScraperSource constructs a ScraperSource.
func NewScraperSource(userAgent string, delay time.Duration) *ScraperSource {
	if userAgent == "" {
		userAgent = "RetailRadar/1.0.0"
	}
	return &ScraperSource{
		userAgent:  userAgent,
		delay:      delay,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchBrandProducts scrapes the brand's search results page and extracts
// below-retail candidates from the product tiles.
func (s *ScraperSource) FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error) {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowedDomains("stockx.com", "www.stockx.com"),
	)
	c.SetRequestTimeout(30 * time.Second)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*stockx.*", Delay: s.delay})

	var (
		mu       sync.Mutex
		products []models.Product
		visitErr error
	)

	for _, selector := range tileSelectors {
		c.OnHTML(selector, func(e *colly.HTMLElement) {
			if p, ok := s.extractTile(e.DOM, brand); ok {
				mu.Lock()
				products = append(products, p)
				mu.Unlock()
			}
		})
	}

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		visitErr = utils.NewExternalAPIError(scraperSourceName, r.StatusCode, err.Error())
		mu.Unlock()
	})

	searchURL := fmt.Sprintf("https://stockx.com/search?s=%s", url.QueryEscape(strings.ToLower(brand)))
	if err := c.Visit(searchURL); err != nil {
		return nil, utils.NewExternalAPIError(scraperSourceName, 0, err.Error())
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}

	deduped := dedupeByURL(products)
	log.Info().
		Str("brand", brand).
		Int("count", len(deduped)).
		Msg("Scraper returned below-retail candidates")
	return deduped, nil
}

// IsHealthy probes the marketplace's landing page.
func (s *ScraperSource) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://stockx.com", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Scraper health check failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

// extractTile pulls a product out of one tile. Tiles carry the current ask
// prominently and the retail price behind a "Retail" label; both must parse
// to positive amounts and the ask must sit below retail.
func (s *ScraperSource) extractTile(sel *goquery.Selection, brand string) (models.Product, bool) {
	name := strings.TrimSpace(sel.Find("[data-testid='product-tile-title'], p.name, .title").First().Text())
	if name == "" {
		return models.Product{}, false
	}

	href, ok := sel.Find("a").First().Attr("href")
	if !ok || href == "" {
		return models.Product{}, false
	}
	if strings.HasPrefix(href, "/") {
		href = "https://stockx.com" + href
	}

	text := sel.Text()
	current := parseMoney(moneyPattern.FindString(text))

	retail := 0.0
	if idx := strings.Index(text, "Retail"); idx >= 0 {
		retail = parseMoney(moneyPattern.FindString(text[idx:]))
	}

	if retail <= 0 || current <= 0 || current >= retail {
		return models.Product{}, false
	}

	p := models.Product{
		Name:         name,
		Brand:        brand,
		RetailPrice:  retail,
		CurrentPrice: current,
		StockxURL:    href,
		LastUpdated:  time.Now(),
	}
	p.DiscountPercentage = (retail - current) / retail
	return p, true
}

func parseMoney(raw string) float64 {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// dedupeByURL keeps the first record per source URL; the selector fallback
// chain can match the same tile more than once.
func dedupeByURL(products []models.Product) []models.Product {
	seen := make(map[string]bool, len(products))
	out := products[:0]
	for _, p := range products {
		if seen[p.StockxURL] {
			continue
		}
		seen[p.StockxURL] = true
		out = append(out, p)
	}
	return out
}
