// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/waymark/internal/logging"
)

// GarbageCollector reclaims space in a document store. Satisfied by
// *store.BadgerBackend.
type GarbageCollector interface {
	RunGC(discardRatio float64) (int, error)
}

// StoreGCService runs value log garbage collection on a fixed interval.
type StoreGCService struct {
	gc           GarbageCollector
	interval     time.Duration
	discardRatio float64
}

// NewStoreGCService creates the service. interval must be positive.
func NewStoreGCService(gc GarbageCollector, interval time.Duration, discardRatio float64) (*StoreGCService, error) {
	if gc == nil {
		return nil, errors.New("store GC service requires a collector")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("store GC interval must be positive, got %v", interval)
	}
	return &StoreGCService{gc: gc, interval: interval, discardRatio: discardRatio}, nil
}

// Serve implements suture.Service. A failed run is returned so that repeated
// failures put the store layer into backoff.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			rewritten, err := s.gc.RunGC(s.discardRatio)
			if err != nil {
				return fmt.Errorf("store GC: %w", err)
			}
			if rewritten > 0 {
				logging.Info().
					Int("files", rewritten).
					Dur("duration", time.Since(start)).
					Msg("Store value log compacted")
			}
		}
	}
}

// String names the service in supervisor events.
func (s *StoreGCService) String() string {
	return "store-gc"
}
