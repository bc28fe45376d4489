package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/service"
)

// RefreshWorker periodically refreshes the catalog for the configured brands
// so interactive requests mostly hit warm data.
type RefreshWorker struct {
	catalogService *service.CatalogService
	interval       time.Duration
	brands         []string
	fetchTimeout   time.Duration
}

// NewRefreshWorker constructs a RefreshWorker.
func NewRefreshWorker(catalogService *service.CatalogService, interval time.Duration, brands []string, fetchTimeout time.Duration) *RefreshWorker {
	return &RefreshWorker{
		catalogService: catalogService,
		interval:       interval,
		brands:         brands,
		fetchTimeout:   fetchTimeout,
	}
}

// Start begins the periodic refresh loop and listens for context cancellation.
func (w *RefreshWorker) Start(ctx context.Context) {
	if len(w.brands) == 0 {
		log.Info().Msg("No refresh brands configured, refresh worker idle")
		return
	}

	log.Info().
		Dur("interval", w.interval).
		Strs("brands", w.brands).
		Msg("Starting refresh worker")

	// Run immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Refresh worker stopped")
			return
		}
	}
}

func (w *RefreshWorker) run(ctx context.Context) {
	for _, brand := range w.brands {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
		count, err := w.catalogService.RefreshBrand(fetchCtx, brand)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("brand", brand).Msg("Failed to refresh brand")
			continue
		}

		log.Info().
			Str("brand", brand).
			Int("count", count).
			Dur("duration", time.Since(start)).
			Msg("Brand refresh completed")
	}
}
