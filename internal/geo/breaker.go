package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/seniorchoi/gigagig/internal/monitoring"
	"github.com/sony/gobreaker"
)

// BreakerConfig holds circuit breaker settings for the geocoder
type BreakerConfig struct {
	// MaxRequests allowed through while half-open
	MaxRequests uint32
	// Interval after which closed-state counts are cleared
	Interval time.Duration
	// Timeout spent open before probing again
	Timeout time.Duration
	// FailureThreshold is the consecutive failures that open the circuit
	FailureThreshold uint32
}

// DefaultBreakerConfig returns default circuit breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakingGeocoder fails fast while the wrapped provider keeps failing
type BreakingGeocoder struct {
	next Geocoder
	cb   *gobreaker.CircuitBreaker
}

// NewBreakingGeocoder wraps next with a circuit breaker
func NewBreakingGeocoder(next Geocoder, cfg BreakerConfig) *BreakingGeocoder {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoder",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			monitoring.SetCircuitBreakerState(name, stateValue(to))
			log.Info().
				Str("circuit_breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// unknown addresses and caller cancellation say nothing about provider health
			return err == nil || errors.Is(err, ErrNoResults) || errors.Is(err, context.Canceled)
		},
	})
	return &BreakingGeocoder{next: next, cb: cb}
}

// Geocode delegates to the wrapped geocoder unless the circuit is open
func (b *BreakingGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Geocode(ctx, address)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			monitoring.RecordGeocode("open")
			return Point{}, fmt.Errorf("%w: %w", ErrGeocodeFailed, err)
		}
		return Point{}, err
	}
	return result.(Point), nil
}

// State exposes the breaker state for health reporting
func (b *BreakingGeocoder) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}
