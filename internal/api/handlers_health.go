// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/waymark/internal/models"
)

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.LiveResponse{
		Alive:         true,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// It reports the document store backend and returns 503 while the store's
// circuit breaker is open. It makes no upstream call.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	health := h.maps.Health()

	status := http.StatusOK
	if !health.Ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, &models.ReadyResponse{
		Ready:   health.Ready,
		Backend: health.Backend,
		Breaker: health.Breaker,
	})
}
