package breaker

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for deterministic transition tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock, threshold int) *CircuitBreaker {
	return New("test-source", Options{
		FailureThreshold: threshold,
		Timeout:          time.Minute,
		MonitoringPeriod: 30 * time.Second,
		Clock:            clock.Now,
	})
}

func failingOp(err error) func() error {
	return func() error { return err }
}

func TestBreakerOpensAfterThresholdFailures(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 3)
	boom := errors.New("connection refused")

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, b.Execute(failingOp(boom)), boom)
		assert.Equal(t, StateClosed, b.State())
	}

	require.ErrorIs(t, b.Execute(failingOp(boom)), boom)
	assert.Equal(t, StateOpen, b.State())

	stats := b.Stats()
	assert.Equal(t, 3, stats.FailureCount)
	require.NotNil(t, stats.NextAttempt)
	assert.Equal(t, clock.Now().Add(time.Minute), *stats.NextAttempt)
}

func TestOpenBreakerRejectsWithoutInvokingOperation(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 1)
	require.Error(t, b.Execute(failingOp(errors.New("down"))))
	require.Equal(t, StateOpen, b.State())

	invoked := false
	err := b.Execute(func() error {
		invoked = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, IsOpenError(err))
	assert.False(t, invoked, "operation must not run while circuit is open")
}

func TestHalfOpenProbeSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 1)
	require.Error(t, b.Execute(failingOp(errors.New("down"))))

	clock.Advance(time.Minute)

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Stats().FailureCount)
	assert.Nil(t, b.Stats().NextAttempt)
}

func TestHalfOpenProbeFailureReopensAndRestartsCooldown(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 1)
	require.Error(t, b.Execute(failingOp(errors.New("down"))))

	clock.Advance(time.Minute)
	require.Error(t, b.Execute(failingOp(errors.New("still down"))))

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 2, b.Stats().FailureCount)
	require.NotNil(t, b.Stats().NextAttempt)
	assert.Equal(t, clock.Now().Add(time.Minute), *b.Stats().NextAttempt)

	// Before the fresh cooldown elapses the probe stays rejected.
	clock.Advance(30 * time.Second)
	err := b.Execute(func() error { return nil })
	assert.True(t, IsOpenError(err))
}

func TestExpectedErrorPredicateSkipsCounting(t *testing.T) {
	clock := newFakeClock()
	b := New("api", Options{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		Clock:            clock.Now,
		ExpectedErrors: func(err error) bool {
			return !strings.Contains(err.Error(), "validation")
		},
	})

	validationErr := errors.New("request validation failed")
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Execute(failingOp(validationErr)), validationErr)
	}

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Stats().FailureCount)

	// A systemic error still counts.
	systemic := errors.New("502 bad gateway")
	require.ErrorIs(t, b.Execute(failingOp(systemic)), systemic)
	assert.Equal(t, 1, b.Stats().FailureCount)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 3)

	require.Error(t, b.Execute(failingOp(errors.New("blip"))))
	require.Error(t, b.Execute(failingOp(errors.New("blip"))))
	require.NoError(t, b.Execute(func() error { return nil }))

	assert.Equal(t, 0, b.Stats().FailureCount)

	// The count starts over, so two more failures do not trip a threshold of 3.
	require.Error(t, b.Execute(failingOp(errors.New("blip"))))
	require.Error(t, b.Execute(failingOp(errors.New("blip"))))
	assert.Equal(t, StateClosed, b.State())
}

func TestResetForcesClosed(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock, 1)
	require.Error(t, b.Execute(failingOp(errors.New("down"))))
	require.Equal(t, StateOpen, b.State())

	b.Reset()

	stats := b.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 0, stats.FailureCount)
	assert.Nil(t, stats.LastFailureTime)
	assert.Nil(t, stats.NextAttempt)

	require.NoError(t, b.Execute(func() error { return nil }))
}
