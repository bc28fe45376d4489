package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailradar/retailradar/internal/breaker"
	"github.com/retailradar/retailradar/internal/models"
	"github.com/retailradar/retailradar/internal/utils"
)

type scriptedSource struct {
	healthy    bool
	fetch      func() ([]models.Product, error)
	fetchCalls int
}

func (s *scriptedSource) FetchBrandProducts(ctx context.Context, brand string) ([]models.Product, error) {
	s.fetchCalls++
	return s.fetch()
}

func (s *scriptedSource) IsHealthy(ctx context.Context) bool {
	return s.healthy
}

func fixedProducts(names ...string) []models.Product {
	out := make([]models.Product, 0, len(names))
	for _, name := range names {
		out = append(out, models.Product{
			Name:         name,
			Brand:        "Supreme",
			RetailPrice:  100,
			CurrentPrice: 80,
			StockxURL:    "https://stockx.com/" + name,
		})
	}
	return out
}

func noSleep(o *Orchestrator) {
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
}

func TestFetchSkipsUnhealthySource(t *testing.T) {
	primary := &scriptedSource{healthy: false, fetch: func() ([]models.Product, error) {
		return fixedProducts("never"), nil
	}}
	secondary := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return fixedProducts("fallback"), nil
	}}
	tertiary := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return fixedProducts("unused"), nil
	}}

	o := NewOrchestrator([]SourceConfig{
		{Source: tertiary, Name: "scraper", Priority: 3, RetryCount: 1},
		{Source: primary, Name: "official", Priority: 1, RetryCount: 1},
		{Source: secondary, Name: "rapidapi", Priority: 2, RetryCount: 1},
	})
	noSleep(o)

	products, err := o.FetchBrandProducts(context.Background(), "Supreme")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "fallback", products[0].Name)
	assert.Equal(t, 0, primary.fetchCalls)
	assert.Equal(t, 0, tertiary.fetchCalls, "lower-priority source must not be touched once one succeeds")
}

func TestFetchTreatsEmptyResultAsFailure(t *testing.T) {
	primary := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return nil, nil
	}}
	secondary := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return fixedProducts("fallback"), nil
	}}

	o := NewOrchestrator([]SourceConfig{
		{Source: primary, Name: "official", Priority: 1, RetryCount: 1},
		{Source: secondary, Name: "rapidapi", Priority: 2, RetryCount: 1},
	})
	noSleep(o)

	products, err := o.FetchBrandProducts(context.Background(), "Supreme")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "fallback", products[0].Name)
}

func TestFetchAggregatesAllFailures(t *testing.T) {
	primary := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return nil, errors.New("official exploded")
	}}
	secondary := &scriptedSource{healthy: false}

	o := NewOrchestrator([]SourceConfig{
		{Source: primary, Name: "official", Priority: 1, RetryCount: 1},
		{Source: secondary, Name: "rapidapi", Priority: 2, RetryCount: 1},
	})
	noSleep(o)

	_, err := o.FetchBrandProducts(context.Background(), "Supreme")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrAllSourcesFailed)
	assert.Contains(t, err.Error(), "official exploded")
	assert.Contains(t, err.Error(), "rapidapi source is unhealthy")
}

func TestFetchRetriesWithExponentialBackoff(t *testing.T) {
	attempts := 0
	src := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return fixedProducts("eventually"), nil
	}}

	o := NewOrchestrator([]SourceConfig{
		{Source: src, Name: "official", Priority: 1, RetryCount: 3, RetryDelay: 100 * time.Millisecond},
	})

	var delays []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	products, err := o.FetchBrandProducts(context.Background(), "Supreme")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestFetchOpensBreakerAfterRepeatedFailures(t *testing.T) {
	src := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return nil, errors.New("down")
	}}

	o := NewOrchestrator([]SourceConfig{
		{Source: src, Name: "official", Priority: 1, RetryCount: 3},
	})
	noSleep(o)

	_, err := o.FetchBrandProducts(context.Background(), "Supreme")
	require.Error(t, err)

	stats := o.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, breaker.StateOpen, stats[0].State)

	// The open breaker now rejects the health probe, so the source is skipped
	// without another fetch attempt.
	calls := src.fetchCalls
	_, err = o.FetchBrandProducts(context.Background(), "Supreme")
	require.Error(t, err)
	assert.Equal(t, calls, src.fetchCalls)
	assert.Contains(t, err.Error(), "unhealthy")
}

func TestFetchDoesNotCountClientErrors(t *testing.T) {
	src := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return nil, utils.NewExternalAPIError("official-stockx-api", 401, "invalid credentials")
	}}

	o := NewOrchestrator([]SourceConfig{
		{Source: src, Name: "official", Priority: 1, RetryCount: 3},
	})
	noSleep(o)

	_, err := o.FetchBrandProducts(context.Background(), "Supreme")
	require.Error(t, err)

	stats := o.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, breaker.StateClosed, stats[0].State)
	assert.Equal(t, 0, stats[0].FailureCount)
}

func TestHealthStatusProbesEverySource(t *testing.T) {
	healthy := &scriptedSource{healthy: true}
	unhealthy := &scriptedSource{healthy: false}

	o := NewOrchestrator([]SourceConfig{
		{Source: healthy, Name: "official", Priority: 1, RetryCount: 1},
		{Source: unhealthy, Name: "rapidapi", Priority: 2, RetryCount: 1},
	})

	statuses := o.HealthStatus(context.Background())
	require.Len(t, statuses, 2)
	assert.Equal(t, "official", statuses[0].Name)
	assert.True(t, statuses[0].Healthy)
	assert.Equal(t, "rapidapi", statuses[1].Name)
	assert.False(t, statuses[1].Healthy)
}

func TestResetAllBreakersClosesOpenBreakers(t *testing.T) {
	src := &scriptedSource{healthy: true, fetch: func() ([]models.Product, error) {
		return nil, errors.New("down")
	}}

	o := NewOrchestrator([]SourceConfig{
		{Source: src, Name: "official", Priority: 1, RetryCount: 3},
	})
	noSleep(o)

	_, _ = o.FetchBrandProducts(context.Background(), "Supreme")
	require.Equal(t, breaker.StateOpen, o.Stats()[0].State)

	o.ResetAllBreakers()
	assert.Equal(t, breaker.StateClosed, o.Stats()[0].State)
}
