// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*StoreGCService)(nil)

type fakeCollector struct {
	runs  atomic.Int32
	ratio atomic.Value
	err   error
}

func (f *fakeCollector) RunGC(discardRatio float64) (int, error) {
	f.runs.Add(1)
	f.ratio.Store(discardRatio)
	return 1, f.err
}

func TestNewStoreGCService(t *testing.T) {
	t.Parallel()

	if _, err := NewStoreGCService(nil, time.Minute, 0.5); err == nil {
		t.Error("nil collector: error = nil")
	}
	if _, err := NewStoreGCService(&fakeCollector{}, 0, 0.5); err == nil {
		t.Error("zero interval: error = nil")
	}
	svc, err := NewStoreGCService(&fakeCollector{}, time.Minute, 0.5)
	if err != nil {
		t.Fatalf("NewStoreGCService() error = %v", err)
	}
	if svc.String() != "store-gc" {
		t.Errorf("String() = %q, want %q", svc.String(), "store-gc")
	}
}

func TestStoreGCService_RunsOnInterval(t *testing.T) {
	t.Parallel()

	gc := &fakeCollector{}
	svc, _ := NewStoreGCService(gc, 5*time.Millisecond, 0.7)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for gc.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if gc.runs.Load() < 2 {
		t.Fatalf("runs = %d, want at least 2", gc.runs.Load())
	}
	if got := gc.ratio.Load().(float64); got != 0.7 {
		t.Errorf("discard ratio = %v, want 0.7", got)
	}
}

func TestStoreGCService_ReturnsFailure(t *testing.T) {
	t.Parallel()

	gcErr := errors.New("value log corrupted")
	svc, _ := NewStoreGCService(&fakeCollector{err: gcErr}, time.Millisecond, 0.5)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, gcErr) {
		t.Errorf("Serve() error = %v, want %v", err, gcErr)
	}
}
