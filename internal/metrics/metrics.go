// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - API endpoint latency and throughput
// - Login outcomes and session decoding
// - Document store reads and writes
// - Upstream (identity provider, content store) call latency
// - Circuit breaker state

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Authentication Metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of completed login callbacks",
		},
		[]string{"outcome"}, // "editor", "viewer", "denied_by_provider", "failure"
	)

	LoginDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_login_duration_seconds",
			Help:    "Duration of the login callback from code receipt to session issuance",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	SessionDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_session_decode_failures_total",
			Help: "Total number of session cookies rejected as invalid or expired",
		},
	)

	EditDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_edit_denied_total",
			Help: "Total number of write attempts rejected by the editor guard",
		},
		[]string{"reason"}, // "anonymous", "not_editor"
	)

	// Upstream Metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of calls to external services in seconds",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "operation"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of calls to external services",
		},
		[]string{"service", "operation", "status"},
	)

	// Document Store Metrics
	DocumentReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_reads_total",
			Help: "Total number of map document reads",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	DocumentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_writes_total",
			Help: "Total number of map document write attempts",
		},
		[]string{"result"}, // "committed", "skipped", "conflict", "error"
	)

	DocumentWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "document_write_duration_seconds",
			Help:    "Duration of map document writes including the read-before-write",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	DocumentPayloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "document_payload_bytes",
			Help:    "Size of stored map documents in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B .. 4MB
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordLogin records the outcome and duration of a login callback.
func RecordLogin(outcome string, duration time.Duration) {
	LoginAttempts.WithLabelValues(outcome).Inc()
	LoginDuration.Observe(duration.Seconds())
}

// RecordUpstreamCall records one call to an external service. status 0 means
// the service could not be reached.
func RecordUpstreamCall(service, operation string, status int, duration time.Duration) {
	label := "unreachable"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(service, operation, label).Inc()
	UpstreamRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDocumentRead records a document read result: "hit", "miss" or "error".
func RecordDocumentRead(result string) {
	DocumentReads.WithLabelValues(result).Inc()
}

// RecordDocumentWrite records a document write result and its duration.
func RecordDocumentWrite(result string, duration time.Duration) {
	DocumentWrites.WithLabelValues(result).Inc()
	DocumentWriteDuration.Observe(duration.Seconds())
}
