// Package circuitbreaker wraps sony/gobreaker with application defaults.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dexter-bot/dexter/internal/apperror"
)

// Config holds circuit breaker settings.
type Config struct {
	Name        string
	MaxRequests uint32        // requests allowed in half-open state
	Interval    time.Duration // cyclic period for clearing counts
	Timeout     time.Duration // open state duration before half-open
	MinRequests uint32        // minimum requests before tripping
	FailureRate float64       // failure ratio that trips the breaker
}

// DefaultConfig returns settings suitable for RPC-style calls.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		MinRequests: 5,
		FailureRate: 0.6,
	}
}

// CircuitBreaker guards calls returning T.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a CircuitBreaker from the given config.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker, translating breaker states into
// application error codes.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			var zero T
			return zero, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithContext(c.cb.Name()), apperror.WithCause(err))
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			var zero T
			return zero, apperror.New(apperror.CodeCircuitHalfOpen,
				apperror.WithContext(c.cb.Name()), apperror.WithCause(err))
		}
	}
	return result, err
}

// State returns the breaker's current state string.
func (c *CircuitBreaker[T]) State() string {
	return c.cb.State().String()
}
