// Package reliability implements the Reliability Wrapper (spec.md §4.7):
// a circuit breaker around backend calls, a health probe aggregating
// circuit state/sync outcome/pending-change count/capability flags, and
// memory-pressure handling that drives cache and reactive-layer eviction.
// The breaker delegates entirely to sony/gobreaker/v2, adapted directly
// from the teacher's infrastructure/resilience/resilience.go adapter,
// keeping its narrow Execute(ctx, fn) error call shape.
package reliability

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/unfazed-dev/nexus-store/pkg/storeerrors"
)

// BreakerState mirrors gobreaker's three states under engine-native names.
type BreakerState int

const (
	StateClosed   BreakerState = BreakerState(gobreaker.StateClosed)
	StateHalfOpen BreakerState = BreakerState(gobreaker.StateHalfOpen)
	StateOpen     BreakerState = BreakerState(gobreaker.StateOpen)
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the circuit breaker (spec.md §4.7).
type BreakerConfig struct {
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	OnStateChange func(from, to BreakerState)
}

// DefaultBreakerConfig mirrors the teacher's DefaultConfig.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second, HalfOpenMax: 3}
}

// Breaker wraps gobreaker.CircuitBreaker[any], translating its sentinel
// errors into storeerrors.CircuitOpenErr() so the rest of the engine only
// ever sees the engine's own typed errors (spec.md §7).
type Breaker struct {
	gb *gobreaker.CircuitBreaker[any]
}

// NewBreaker builds a Breaker from cfg, defaulting any zero field.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}

	maxFailures := uint32(cfg.MaxFailures)
	settings := gobreaker.Settings{
		MaxRequests: uint32(cfg.HalfOpenMax),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(BreakerState(from), BreakerState(to))
		}
	}

	return &Breaker{gb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState { return BreakerState(b.gb.State()) }

// Execute runs fn with circuit-breaker protection (spec.md §4.7 "Wraps
// each backend call"). ctx is accepted for call-shape symmetry with the
// rest of the engine; gobreaker itself is not context-aware, so callers
// enforce cancellation on fn.
func (b *Breaker) Execute(_ context.Context, fn func() error) error {
	_, err := b.gb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return storeerrors.CircuitOpenErr()
	}
	return err
}
