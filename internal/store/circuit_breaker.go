// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"context"
	"errors"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/metrics"
	"github.com/tomtom215/waymark/internal/models"
)

// minRequestsToTrip is the sample size needed before the failure ratio counts.
const minRequestsToTrip = 10

// CircuitBreakerBackend wraps a Backend with the circuit breaker pattern so
// that a failing content store is not hammered by every save.
//
// Not-found, version mismatch and caller cancellation are normal outcomes and
// do not count as failures. While the circuit is open every call fails fast
// with an *models.UpstreamError carrying status 503.
type CircuitBreakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewCircuitBreakerBackend wraps next using the breaker settings in cfg.
func NewCircuitBreakerBackend(next Backend, cfg config.StoreConfig) *CircuitBreakerBackend {
	cbName := "store-" + next.Name()

	maxRequests := cfg.BreakerMaxRequests
	if maxRequests == 0 {
		maxRequests = 3
	}

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: maxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequestsToTrip {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("breaker", cbName).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: isExpectedOutcome,

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerBackend{next: next, cb: cb, name: cbName}
}

// Name implements Backend.
func (b *CircuitBreakerBackend) Name() string {
	return b.next.Name()
}

// State returns "closed", "half-open" or "open".
func (b *CircuitBreakerBackend) State() string {
	return stateToString(b.cb.State())
}

// Get implements Backend.
func (b *CircuitBreakerBackend) Get(ctx context.Context, path string) (*Object, error) {
	return castResult[Object](b.execute("get", func() (interface{}, error) {
		return b.next.Get(ctx, path)
	}))
}

// Put implements Backend.
func (b *CircuitBreakerBackend) Put(ctx context.Context, path string, content []byte, baseVersion, message string) (*PutResult, error) {
	return castResult[PutResult](b.execute("put", func() (interface{}, error) {
		return b.next.Put(ctx, path, content, baseVersion, message)
	}))
}

// Close closes the wrapped backend.
func (b *CircuitBreakerBackend) Close() error {
	return Close(b.next)
}

func (b *CircuitBreakerBackend) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if isExpectedOutcome(err) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return result, err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, &models.UpstreamError{
			Service:   models.ServiceStore,
			Operation: operation,
			Status:    http.StatusServiceUnavailable,
			Message:   "document store temporarily unavailable",
			Cause:     err,
		}
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	return nil, err
}

// isExpectedOutcome reports whether err is a normal result rather than a
// backend failure.
func isExpectedOutcome(err error) bool {
	return err == nil ||
		errors.Is(err, ErrObjectNotFound) ||
		errors.Is(err, ErrVersionMismatch) ||
		errors.Is(err, context.Canceled)
}

// castResult type-casts the circuit breaker result.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type")
	}
	return typed, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
