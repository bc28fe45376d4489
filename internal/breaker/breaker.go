// Package breaker provides a per-source circuit breaker for external data sources.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State represents the state of a circuit breaker.
type State string

const (
	// StateClosed means calls pass through to the wrapped operation.
	StateClosed State = "CLOSED"
	// StateOpen means calls are rejected without invoking the operation.
	StateOpen State = "OPEN"
	// StateHalfOpen means a single probe call is allowed through.
	StateHalfOpen State = "HALF_OPEN"
)

// OpenError is returned when a call is rejected because the circuit is open.
// The wrapped operation is never invoked in that case.
type OpenError struct {
	Name        string
	NextAttempt time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %s is OPEN", e.Name)
}

// IsOpenError reports whether err is a circuit-open rejection.
func IsOpenError(err error) bool {
	_, ok := err.(*OpenError)
	return ok
}

// Options configures a circuit breaker.
type Options struct {
	// FailureThreshold is the number of counted consecutive failures before
	// the circuit opens. Must be >= 1.
	FailureThreshold int
	// Timeout is the cooldown the circuit stays open before allowing a probe.
	Timeout time.Duration
	// MonitoringPeriod is informational and surfaced in stats only.
	MonitoringPeriod time.Duration
	// ExpectedErrors returns false for errors that must NOT count against the
	// breaker (e.g. request validation, 4xx client errors). Such errors still
	// propagate to the caller. A nil predicate counts every error.
	ExpectedErrors func(error) bool
	// Clock overrides the wall clock, for deterministic transition tests.
	Clock func() time.Time
}

// Stats is a snapshot of a breaker's observable state.
type Stats struct {
	Name             string     `json:"name"`
	State            State      `json:"state"`
	FailureCount     int        `json:"failureCount"`
	LastFailureTime  *time.Time `json:"lastFailureTime,omitempty"`
	NextAttempt      *time.Time `json:"nextAttempt,omitempty"`
	MonitoringPeriod string     `json:"monitoringPeriod,omitempty"`
}

// CircuitBreaker guards one external source. It is safe for concurrent use;
// all state transitions happen under the mutex.
type CircuitBreaker struct {
	name string
	opts Options
	now  func() time.Time

	mu           sync.Mutex
	state        State
	failureCount int
	lastFailure  time.Time
	nextAttempt  time.Time
}

// New creates a closed circuit breaker named after the source it protects.
func New(name string, opts Options) *CircuitBreaker {
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		name:  name,
		opts:  opts,
		now:   now,
		state: StateClosed,
	}
}

// Execute runs operation under the breaker. When the circuit is open and the
// cooldown has not elapsed, the operation is not invoked and an *OpenError is
// returned. Otherwise the operation's error (or nil) is returned unchanged
// after the outcome is recorded.
func (b *CircuitBreaker) Execute(operation func() error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := operation()
	b.afterCall(err)
	return err
}

func (b *CircuitBreaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}

	if b.now().Before(b.nextAttempt) {
		return &OpenError{Name: b.name, NextAttempt: b.nextAttempt}
	}

	// Cooldown elapsed: allow exactly one probe.
	b.state = StateHalfOpen
	log.Info().Str("breaker", b.name).Msg("Circuit breaker moved to HALF_OPEN state")
	return nil
}

func (b *CircuitBreaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.onSuccess()
		return
	}
	b.onFailure(err)
}

func (b *CircuitBreaker) onSuccess() {
	b.failureCount = 0
	b.lastFailure = time.Time{}

	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.nextAttempt = time.Time{}
		log.Info().Str("breaker", b.name).Msg("Circuit breaker moved to CLOSED state")
	}
}

func (b *CircuitBreaker) onFailure(err error) {
	if b.opts.ExpectedErrors != nil && !b.opts.ExpectedErrors(err) {
		// Non-systemic failure (validation, client error): propagate without
		// moving the counter.
		return
	}

	b.failureCount++
	b.lastFailure = b.now()

	log.Warn().
		Str("breaker", b.name).
		Int("failure_count", b.failureCount).
		Int("threshold", b.opts.FailureThreshold).
		Err(err).
		Msg("Circuit breaker recorded failure")

	// A half-open probe failure reopens immediately; a closed breaker opens
	// once the threshold is reached.
	if b.state == StateHalfOpen || b.failureCount >= b.opts.FailureThreshold {
		b.state = StateOpen
		b.nextAttempt = b.now().Add(b.opts.Timeout)
		log.Error().
			Str("breaker", b.name).
			Int("failure_count", b.failureCount).
			Time("next_attempt", b.nextAttempt).
			Msg("Circuit breaker moved to OPEN state")
	}
}

// Name returns the breaker's identity.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns an observability snapshot.
func (b *CircuitBreaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Name:         b.name,
		State:        b.state,
		FailureCount: b.failureCount,
	}
	if b.opts.MonitoringPeriod > 0 {
		s.MonitoringPeriod = b.opts.MonitoringPeriod.String()
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		s.LastFailureTime = &t
	}
	if !b.nextAttempt.IsZero() {
		t := b.nextAttempt
		s.NextAttempt = &t
	}
	return s
}

// Reset forces the breaker back to CLOSED with zero failures. Operator escape
// hatch; also used by tests.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.lastFailure = time.Time{}
	b.nextAttempt = time.Time{}

	log.Info().Str("breaker", b.name).Msg("Circuit breaker has been reset")
}
