package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/breaker"
	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/utils"
)

// SourceConfig describes one data source handed to the orchestrator.
type SourceConfig struct {
	Source     DataSource
	Name       string
	Priority   int // lower = tried first
	RetryCount int
	RetryDelay time.Duration
}

// HealthStatus is the result of one source's health probe.
type HealthStatus struct {
	Name         string        `json:"name"`
	Healthy      bool          `json:"healthy"`
	BreakerState breaker.State `json:"circuitBreakerState"`
}

// Orchestrator tries sources strictly in priority order and returns the first
// non-empty product list. Priority order is fixed at construction; only each
// breaker's open/closed state decides whether a source is skipped.
type Orchestrator struct {
	sources []*ProtectedSource

	// sleep is swapped out in tests so backoff is instantaneous.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wraps each configured source in a circuit breaker with a
// fixed policy (threshold 3, 60s cooldown) and sorts them ascending by priority.
func NewOrchestrator(configs []SourceConfig) *Orchestrator {
	sorted := make([]SourceConfig, len(configs))
	copy(sorted, configs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	sources := make([]*ProtectedSource, 0, len(sorted))
	for _, cfg := range sorted {
		opts := breaker.Options{
			FailureThreshold: 3,
			Timeout:          60 * time.Second,
			MonitoringPeriod: 30 * time.Second,
			ExpectedErrors:   countableError,
		}
		sources = append(sources, NewProtectedSource(cfg.Source, cfg.Name, opts, cfg.RetryCount, cfg.RetryDelay))
	}

	return &Orchestrator{
		sources: sources,
		sleep:   sleepContext,
	}
}

// FetchBrandProducts walks the sources in priority order: unhealthy sources
// are skipped with a recorded reason, transient failures are retried with
// exponential backoff, and the first source returning at least one product
// wins. Results are never merged across sources. When every source has been
// exhausted, one aggregate error carrying every recorded message is returned.
func (o *Orchestrator) FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error) {
	var failures []string

	for _, src := range o.sources {
		log.Info().Str("source", src.Name()).Str("brand", brand).Msg("Attempting to fetch products")

		if !src.IsHealthy(ctx) {
			log.Warn().Str("source", src.Name()).Msg("Source is unhealthy, skipping")
			failures = append(failures, fmt.Sprintf("%s source is unhealthy", src.Name()))
			continue
		}

		var products []models.Product
		err := o.withRetry(ctx, src.Name(), src.retryCount, src.retryDelay, func() error {
			out, err := src.FetchBrandProducts(ctx, brand)
			if err != nil {
				return err
			}
			products = out
			return nil
		})
		if err != nil {
			log.Error().Str("source", src.Name()).Err(err).Msg("Source failed after retries")
			failures = append(failures, err.Error())
			continue
		}

		if len(products) == 0 {
			// ProtectedSource already converts empty fetches to errors; this
			// guard keeps the invariant explicit.
			failures = append(failures, fmt.Sprintf("%s returned no products", src.Name()))
			continue
		}

		log.Info().
			Str("source", src.Name()).
			Int("count", len(products)).
			Msg("Successfully fetched products")
		return products, nil
	}

	log.Error().Strs("failures", failures).Msg("All sources failed to fetch products")
	return nil, fmt.Errorf("%w: %s", utils.ErrAllSourcesFailed, strings.Join(failures, "; "))
}

// withRetry attempts operation up to maxRetries times, sleeping
// baseDelay * 2^(attempt-1) between attempts. The final attempt's error is
// propagated un-retried.
func (o *Orchestrator) withRetry(ctx context.Context, name string, maxRetries int, baseDelay time.Duration, operation func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		delay := baseDelay << (attempt - 1)
		log.Warn().
			Str("source", name).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(lastErr).
			Msg("Attempt failed, retrying")
		if err := o.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// Stats returns breaker stats for every source in priority order.
func (o *Orchestrator) Stats() []breaker.Stats {
	stats := make([]breaker.Stats, 0, len(o.sources))
	for _, src := range o.sources {
		stats = append(stats, src.BreakerStats())
	}
	return stats
}

// HealthStatus probes every source concurrently. Probes are side-effect-free
// and order-independent; one failing probe never aborts the others.
func (o *Orchestrator) HealthStatus(ctx context.Context) []HealthStatus {
	statuses := make([]HealthStatus, len(o.sources))

	var wg sync.WaitGroup
	for i, src := range o.sources {
		wg.Add(1)
		go func(i int, src *ProtectedSource) {
			defer wg.Done()
			statuses[i] = HealthStatus{
				Name:         src.Name(),
				Healthy:      src.IsHealthy(ctx),
				BreakerState: src.BreakerStats().State,
			}
		}(i, src)
	}
	wg.Wait()

	return statuses
}

// ResetAllBreakers forces every breaker back to CLOSED.
func (o *Orchestrator) ResetAllBreakers() {
	for _, src := range o.sources {
		src.ResetBreaker()
		log.Info().Str("source", src.Name()).Msg("Reset circuit breaker")
	}
}

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
