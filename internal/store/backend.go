// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/waymark/internal/config"
)

var (
	// ErrObjectNotFound is returned by Backend.Get when nothing is stored at a path.
	ErrObjectNotFound = errors.New("object not found")

	// ErrVersionMismatch is returned by Backend.Put when the stored version is
	// not the base version the caller read.
	ErrVersionMismatch = errors.New("version mismatch")

	// ErrDocumentNotFound is returned by DocumentStore.Lookup for a map that
	// has never been saved.
	ErrDocumentNotFound = errors.New("map document not found")
)

// Object is the raw content stored at a path and its version token.
type Object struct {
	Content []byte
	Version string
}

// PutResult describes a successful conditional write.
type PutResult struct {
	Version string
	Commit  string
}

// Backend is a versioned content store addressed by path.
type Backend interface {
	// Get returns the content at path or ErrObjectNotFound.
	Get(ctx context.Context, path string) (*Object, error)

	// Put writes content at path if the stored version equals baseVersion.
	// An empty baseVersion means the path must not exist yet. A failed
	// precondition is ErrVersionMismatch.
	Put(ctx context.Context, path string, content []byte, baseVersion, message string) (*PutResult, error)

	// Name identifies the backend in logs and health output.
	Name() string
}

// NewBackend builds the configured backend, wrapped in a circuit breaker
// when enabled. The caller owns the result and should pass it to Close.
func NewBackend(storeCfg config.StoreConfig, githubCfg config.GitHubConfig) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch strings.ToLower(storeCfg.Backend) {
	case "", "github":
		backend, err = NewGitHubBackend(githubCfg)
	case "badger":
		backend, err = OpenBadgerBackend(storeCfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", storeCfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if storeCfg.BreakerEnabled {
		backend = NewCircuitBreakerBackend(backend, storeCfg)
	}
	return backend, nil
}

// closer is implemented by backends that hold resources.
type closer interface {
	Close() error
}

// Close releases the resources held by backend, if any.
func Close(backend Backend) error {
	if c, ok := backend.(closer); ok {
		return c.Close()
	}
	return nil
}

// GarbageCollector is implemented by backends with reclaimable on-disk state.
type GarbageCollector interface {
	RunGC(discardRatio float64) (int, error)
}

// Collector returns the garbage collector behind backend, looking through a
// circuit breaker wrapper.
func Collector(backend Backend) (GarbageCollector, bool) {
	if cb, ok := backend.(*CircuitBreakerBackend); ok {
		backend = cb.next
	}
	gc, ok := backend.(GarbageCollector)
	return gc, ok
}
