// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

// Health describes whether the store can currently serve requests.
type Health struct {
	Backend string `json:"backend"`
	// Breaker is the circuit breaker state, empty when no breaker is configured.
	Breaker string `json:"breaker,omitempty"`
	Ready   bool   `json:"ready"`
}

type breakerStater interface {
	State() string
}

// Health reports the backend name and circuit breaker state. The store is
// not ready while its circuit is open.
func (s *DocumentStore) Health() Health {
	h := Health{Backend: s.backend.Name(), Ready: true}
	if b, ok := s.backend.(breakerStater); ok {
		h.Breaker = b.State()
		h.Ready = h.Breaker != "open"
	}
	return h
}
