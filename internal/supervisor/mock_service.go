// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// errSimulated is returned by MockService while it has failures left.
var errSimulated = errors.New("simulated failure")

// MockService is a suture.Service whose failures can be scripted. It is used
// by the tree tests and by callers testing their own wiring.
type MockService struct {
	name     string
	starts   atomic.Int32
	stops    atomic.Int32
	failures atomic.Int32
	started  chan struct{}
}

// NewMockService returns a service that runs until canceled.
func NewMockService(name string) *MockService {
	return &MockService{name: name, started: make(chan struct{}, 1)}
}

// FailTimes makes the next n calls to Serve return an error immediately.
func (m *MockService) FailTimes(n int) {
	m.failures.Store(int32(n))
}

// Serve implements suture.Service.
func (m *MockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	defer m.stops.Add(1)

	if m.failures.Add(-1) >= 0 {
		return errSimulated
	}

	select {
	case m.started <- struct{}{}:
	default:
	}

	<-ctx.Done()
	return ctx.Err()
}

// Started is signaled the first time Serve runs without failing.
func (m *MockService) Started() <-chan struct{} {
	return m.started
}

// StartCount returns how many times Serve was called.
func (m *MockService) StartCount() int32 {
	return m.starts.Load()
}

// StopCount returns how many times Serve returned.
func (m *MockService) StopCount() int32 {
	return m.stops.Load()
}

// String names the service in suture's log events.
func (m *MockService) String() string {
	return m.name
}
