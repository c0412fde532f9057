// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/metrics"
	"github.com/tomtom215/waymark/internal/models"
)

// maxCommitMessageLength bounds commit messages, in characters.
const maxCommitMessageLength = 200

// ErrInvalidPayload is returned by Write when the payload is not a JSON object.
var ErrInvalidPayload = errors.New("payload must be a JSON object")

// WriteStatus is the outcome of a write that did not fail.
type WriteStatus int

const (
	// WriteCommitted means the document was stored under a new version.
	WriteCommitted WriteStatus = iota
	// WriteSkipped means the stored document already had this content.
	WriteSkipped
	// WriteConflict means another writer changed the document first.
	WriteConflict
)

// String returns the metrics label for s.
func (s WriteStatus) String() string {
	switch s {
	case WriteCommitted:
		return "committed"
	case WriteSkipped:
		return "skipped"
	case WriteConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// ReadResult is a loaded map. Missing maps have Exists=false, no version
// and the default empty payload.
type ReadResult struct {
	MapID     string
	Payload   json.RawMessage
	Version   string
	Exists    bool
	UpdatedAt string
}

// WriteRequest is one save of a map's payload.
type WriteRequest struct {
	MapID   string
	Payload json.RawMessage
	// ExpectedVersion is the version the caller last loaded. Empty skips
	// the check and writes against whatever is current.
	ExpectedVersion string
	Message         string
}

// WriteResult reports a write that did not fail.
type WriteResult struct {
	Status     WriteStatus
	MapID      string
	NewVersion string
	Commit     string
	// CurrentVersion is the stored version a conflicting write lost to.
	CurrentVersion string
}

// DocumentStore reads and writes map documents on a Backend.
type DocumentStore struct {
	backend  Backend
	basePath string
	now      func() time.Time
}

// NewDocumentStore creates a store keeping documents under basePath.
func NewDocumentStore(backend Backend, basePath string) *DocumentStore {
	return &DocumentStore{
		backend:  backend,
		basePath: strings.Trim(basePath, "/"),
		now:      time.Now,
	}
}

// Backend returns the backend documents are stored on.
func (s *DocumentStore) Backend() Backend {
	return s.backend
}

// DocumentPath returns the backend path of a map's document.
func (s *DocumentStore) DocumentPath(mapID string) string {
	name := NormalizeMapID(mapID) + ".json"
	if s.basePath == "" {
		return name
	}
	return path.Join(s.basePath, name)
}

// Lookup loads a map and returns ErrDocumentNotFound if it was never saved.
func (s *DocumentStore) Lookup(ctx context.Context, mapID string) (*ReadResult, error) {
	mapID = NormalizeMapID(mapID)

	obj, err := s.backend.Get(ctx, s.DocumentPath(mapID))
	if errors.Is(err, ErrObjectNotFound) {
		metrics.RecordDocumentRead("miss")
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		metrics.RecordDocumentRead("error")
		return nil, fmt.Errorf("read map %s: %w", mapID, err)
	}

	doc, err := decodeStored(obj.Content)
	if err != nil {
		metrics.RecordDocumentRead("error")
		return nil, &models.UpstreamError{
			Service:   models.ServiceStore,
			Operation: "decode_document",
			Message:   "stored document is not a JSON object",
			Cause:     err,
		}
	}

	metrics.RecordDocumentRead("hit")
	return &ReadResult{
		MapID:     mapID,
		Payload:   doc.Payload,
		Version:   obj.Version,
		Exists:    true,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// Read loads a map. A map that was never saved is not an error: it reads
// as the default payload with Exists=false.
func (s *DocumentStore) Read(ctx context.Context, mapID string) (*ReadResult, error) {
	result, err := s.Lookup(ctx, mapID)
	if errors.Is(err, ErrDocumentNotFound) {
		return &ReadResult{
			MapID:   NormalizeMapID(mapID),
			Payload: models.DefaultPayload(),
		}, nil
	}
	return result, err
}

// Write saves a payload with optimistic concurrency:
//
//  1. the payload is rendered into the canonical document envelope
//  2. the current document and its version are read
//  3. if mapId and payload are unchanged the write is skipped
//  4. a stale ExpectedVersion is a conflict
//  5. the document is written conditionally on the version from step 2
//
// Conflicts are reported as WriteConflict, never as an error.
func (s *DocumentStore) Write(ctx context.Context, req WriteRequest) (*WriteResult, error) {
	start := time.Now()
	mapID := NormalizeMapID(req.MapID)
	log := logging.Ctx(ctx)

	if !models.IsJSONObject(req.Payload) {
		return nil, ErrInvalidPayload
	}
	payload, err := decodeValue(req.Payload)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	content, err := encodeEnvelope(mapID, s.now().UTC().Format(updatedAtLayout), payload)
	if err != nil {
		return nil, fmt.Errorf("encode map %s: %w", mapID, err)
	}

	docPath := s.DocumentPath(mapID)
	baseVersion := ""

	current, err := s.backend.Get(ctx, docPath)
	switch {
	case errors.Is(err, ErrObjectNotFound):
	case err != nil:
		metrics.RecordDocumentWrite("error", time.Since(start))
		return nil, fmt.Errorf("read map %s before write: %w", mapID, err)
	default:
		baseVersion = current.Version
		if sameDocument(current.Content, mapID, payload) {
			metrics.RecordDocumentWrite(WriteSkipped.String(), time.Since(start))
			log.Debug().Str("map_id", mapID).Str("version", baseVersion).Msg("Map unchanged, write skipped")
			return &WriteResult{Status: WriteSkipped, MapID: mapID, NewVersion: baseVersion}, nil
		}
	}

	if req.ExpectedVersion != "" && req.ExpectedVersion != baseVersion {
		metrics.RecordDocumentWrite(WriteConflict.String(), time.Since(start))
		log.Info().
			Str("map_id", mapID).
			Str("expected_version", req.ExpectedVersion).
			Str("current_version", baseVersion).
			Msg("Map save rejected: stale version")
		return &WriteResult{Status: WriteConflict, MapID: mapID, CurrentVersion: baseVersion}, nil
	}

	put, err := s.backend.Put(ctx, docPath, content, baseVersion, commitMessage(req.Message, mapID))
	if errors.Is(err, ErrVersionMismatch) {
		metrics.RecordDocumentWrite(WriteConflict.String(), time.Since(start))
		log.Info().Str("map_id", mapID).Str("base_version", baseVersion).Msg("Map save lost a concurrent write")
		return &WriteResult{Status: WriteConflict, MapID: mapID, CurrentVersion: s.currentVersion(ctx, docPath)}, nil
	}
	if err != nil {
		metrics.RecordDocumentWrite("error", time.Since(start))
		return nil, fmt.Errorf("write map %s: %w", mapID, err)
	}

	metrics.RecordDocumentWrite(WriteCommitted.String(), time.Since(start))
	metrics.DocumentPayloadBytes.Observe(float64(len(content)))
	log.Info().
		Str("map_id", mapID).
		Str("version", put.Version).
		Str("commit", put.Commit).
		Int("bytes", len(content)).
		Msg("Map saved")

	return &WriteResult{
		Status:     WriteCommitted,
		MapID:      mapID,
		NewVersion: put.Version,
		Commit:     put.Commit,
	}, nil
}

// currentVersion looks up the version that won a race, for the conflict
// response. It is best effort and returns "" on any failure.
func (s *DocumentStore) currentVersion(ctx context.Context, docPath string) string {
	obj, err := s.backend.Get(ctx, docPath)
	if err != nil {
		return ""
	}
	return obj.Version
}

// commitMessage returns msg, or "Auto-save <mapId>" when empty, capped at
// maxCommitMessageLength characters.
func commitMessage(msg, mapID string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "Auto-save " + mapID
	}
	if utf8.RuneCountInString(msg) <= maxCommitMessageLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:maxCommitMessageLength])
}
