// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/waymark/internal/metrics"
	"github.com/tomtom215/waymark/internal/models"
)

// recordingBackend wraps a Backend and remembers every Put.
type recordingBackend struct {
	Backend
	puts     []recordedPut
	getErr   error
	putErr   error
	onBefore func()
}

type recordedPut struct {
	path        string
	content     string
	baseVersion string
	message     string
}

func (r *recordingBackend) Get(ctx context.Context, path string) (*Object, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.Backend.Get(ctx, path)
}

func (r *recordingBackend) Put(ctx context.Context, path string, content []byte, baseVersion, message string) (*PutResult, error) {
	if r.onBefore != nil {
		r.onBefore()
	}
	r.puts = append(r.puts, recordedPut{path, string(content), baseVersion, message})
	if r.putErr != nil {
		return nil, r.putErr
	}
	return r.Backend.Put(ctx, path, content, baseVersion, message)
}

func newTestDocumentStore(t *testing.T) (*DocumentStore, *recordingBackend) {
	t.Helper()
	backend := &recordingBackend{Backend: newTestBadgerBackend(t)}
	s := NewDocumentStore(backend, "data/maps/")
	s.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC) }
	return s, backend
}

const samplePayload = `{"markers":[{"id":"m1","x":120,"y":44,"label":"Valentine"}],"roads":[],"areas":[]}`

func TestDocumentStore_DocumentPath(t *testing.T) {
	t.Parallel()

	s := NewDocumentStore(nil, "/data/maps/")
	if got := s.DocumentPath("../../etc/passwd"); got != "data/maps/etcpasswd.json" {
		t.Errorf("DocumentPath() = %q, want data/maps/etcpasswd.json", got)
	}
	if got := s.DocumentPath(""); got != "data/maps/rdo_main.json" {
		t.Errorf("DocumentPath(\"\") = %q, want data/maps/rdo_main.json", got)
	}
	if got := NewDocumentStore(nil, "").DocumentPath("m"); got != "m.json" {
		t.Errorf("DocumentPath() without base = %q, want m.json", got)
	}
}

func TestDocumentStore_ReadMissingReturnsDefault(t *testing.T) {
	t.Parallel()

	s, _ := newTestDocumentStore(t)

	result, err := s.Read(context.Background(), "never_saved")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if result.Exists {
		t.Error("Exists = true, want false")
	}
	if result.Version != "" {
		t.Errorf("Version = %q, want empty", result.Version)
	}
	if string(result.Payload) != string(models.DefaultPayload()) {
		t.Errorf("Payload = %s, want default payload", result.Payload)
	}

	if _, err := s.Lookup(context.Background(), "never_saved"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Lookup() error = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentStore_WriteThenRead(t *testing.T) {
	t.Parallel()

	s, backend := newTestDocumentStore(t)
	ctx := context.Background()

	result, err := s.Write(ctx, WriteRequest{MapID: "guarma", Payload: json.RawMessage(samplePayload)})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if result.Status != WriteCommitted {
		t.Fatalf("Status = %v, want committed", result.Status)
	}
	if result.NewVersion == "" || result.Commit == "" {
		t.Errorf("Write() = %+v, want version and commit", result)
	}

	if len(backend.puts) != 1 {
		t.Fatalf("backend puts = %d, want 1", len(backend.puts))
	}
	put := backend.puts[0]
	if put.path != "data/maps/guarma.json" {
		t.Errorf("put path = %q, want data/maps/guarma.json", put.path)
	}
	if put.baseVersion != "" {
		t.Errorf("put baseVersion = %q, want empty for a new document", put.baseVersion)
	}
	if put.message != "Auto-save guarma" {
		t.Errorf("put message = %q, want Auto-save guarma", put.message)
	}
	if !strings.Contains(put.content, "\n  \"mapId\": \"guarma\",\n") {
		t.Errorf("stored content is not the indented envelope:\n%s", put.content)
	}

	read, err := s.Read(ctx, "guarma")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !read.Exists || read.Version != result.NewVersion {
		t.Errorf("Read() = exists %v version %q, want exists at %q", read.Exists, read.Version, result.NewVersion)
	}
	if read.UpdatedAt != "2026-03-04T05:06:07.890Z" {
		t.Errorf("UpdatedAt = %q, want 2026-03-04T05:06:07.890Z", read.UpdatedAt)
	}

	var got, want interface{}
	if err := json.Unmarshal(read.Payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	_ = json.Unmarshal([]byte(samplePayload), &want)
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("payload = %s, want %s", gotJSON, wantJSON)
	}
}

func TestDocumentStore_NoOpWriteIsSkipped(t *testing.T) {
	t.Parallel()

	s, backend := newTestDocumentStore(t)
	ctx := context.Background()

	first, err := s.Write(ctx, WriteRequest{MapID: "m", Payload: json.RawMessage(samplePayload)})
	if err != nil {
		t.Fatalf("first Write() error = %v", err)
	}

	// Later clock and different key order: still the same document.
	s.now = func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) }
	reordered := `{"areas":[],"roads":[],"markers":[{"label":"Valentine","y":44,"x":120,"id":"m1"}]}`

	second, err := s.Write(ctx, WriteRequest{MapID: "m", Payload: json.RawMessage(reordered)})
	if err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	if second.Status != WriteSkipped {
		t.Errorf("Status = %v, want skipped", second.Status)
	}
	if second.NewVersion != first.NewVersion {
		t.Errorf("NewVersion = %q, want unchanged %q", second.NewVersion, first.NewVersion)
	}
	if len(backend.puts) != 1 {
		t.Errorf("backend puts = %d, want 1 (skip must not write)", len(backend.puts))
	}

	read, err := s.Read(ctx, "m")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if read.Version != first.NewVersion {
		t.Errorf("stored version = %q, want %q", read.Version, first.NewVersion)
	}
}

func TestDocumentStore_StaleExpectedVersionConflicts(t *testing.T) {
	t.Parallel()

	s, backend := newTestDocumentStore(t)
	ctx := context.Background()

	base, err := s.Write(ctx, WriteRequest{MapID: "m", Payload: json.RawMessage(`{"markers":[]}`)})
	if err != nil {
		t.Fatalf("Write(base) error = %v", err)
	}

	// Writer A commits on top of base.
	winner, err := s.Write(ctx, WriteRequest{MapID: "m", Payload: json.RawMessage(`{"markers":["a"]}`), ExpectedVersion: base.NewVersion})
	if err != nil || winner.Status != WriteCommitted {
		t.Fatalf("Write(A) = %+v, %v; want committed", winner, err)
	}

	// Writer B still holds base.
	loser, err := s.Write(ctx, WriteRequest{MapID: "m", Payload: json.RawMessage(`{"markers":["b"]}`), ExpectedVersion: base.NewVersion})
	if err != nil {
		t.Fatalf("Write(B) error = %v, conflicts are not errors", err)
	}
	if loser.Status != WriteConflict {
		t.Fatalf("Status = %v, want conflict", loser.Status)
	}
	if loser.CurrentVersion != winner.NewVersion {
		t.Errorf("CurrentVersion = %q, want %q", loser.CurrentVersion, winner.NewVersion)
	}
	if len(backend.puts) != 2 {
		t.Errorf("backend puts = %d, want 2 (stale write must not reach the backend)", len(backend.puts))
	}

	read, err := s.Read(ctx, "m")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !strings.Contains(string(read.Payload), `"a"`) || strings.Contains(string(read.Payload), `"b"`) {
		t.Errorf("stored payload = %s, want writer A's value", read.Payload)
	}
}

func TestDocumentStore_RaceBetweenReadAndWriteConflicts(t *testing.T) {
	t.Parallel()

	s, backend := newTestDocumentStore(t)
	ctx := context.Background()

	if _, err := s.Write(ctx, WriteRequest{MapID: "m", Payload: json.RawMessage(`{"n":1}`)}); err != nil {
		t.Fatalf("Write(base) error = %v", err)
	}

	// Another writer sneaks in between our read and our put.
	var sneakVersion string
	backend.onBefore = func() {
		backend.onBefore = nil
		obj, err := backend.Backend.Get(ctx, "data/maps/m.json")
		if err != nil {
			t.Errorf("Get() error = %v", err)
			return
		}
		res, err := backend.Backend.Put(ctx, "data/maps/m.json", []byte(`{"n":99}`), obj.Version, "other")
		if err != nil {
			t.Errorf("sneak Put() error = %v", err)
			return
		}
		sneakVersion = res.Version
	}

	result, err := s.Write(ctx, WriteRequest{MapID: "m", Payload: json.RawMessage(`{"n":2}`)})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if result.Status != WriteConflict {
		t.Fatalf("Status = %v, want conflict", result.Status)
	}
	if result.CurrentVersion != sneakVersion {
		t.Errorf("CurrentVersion = %q, want %q", result.CurrentVersion, sneakVersion)
	}
}

func TestDocumentStore_ExpectedVersionForMissingDocument(t *testing.T) {
	t.Parallel()

	s, _ := newTestDocumentStore(t)

	result, err := s.Write(context.Background(), WriteRequest{MapID: "new", Payload: json.RawMessage(`{}`), ExpectedVersion: "abc"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if result.Status != WriteConflict {
		t.Errorf("Status = %v, want conflict", result.Status)
	}
}

func TestDocumentStore_InvalidPayload(t *testing.T) {
	t.Parallel()

	s, backend := newTestDocumentStore(t)

	for _, payload := range []string{``, `null`, `[]`, `"text"`, `{"a":`} {
		_, err := s.Write(context.Background(), WriteRequest{MapID: "m", Payload: json.RawMessage(payload)})
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("Write(%q) error = %v, want ErrInvalidPayload", payload, err)
		}
	}
	if len(backend.puts) != 0 {
		t.Errorf("backend puts = %d, want 0", len(backend.puts))
	}
}

func TestDocumentStore_ReadsLegacyDocument(t *testing.T) {
	t.Parallel()

	s, backend := newTestDocumentStore(t)
	ctx := context.Background()

	legacy := `{"markers":[{"id":"old"}],"roads":[],"areas":[]}`
	if _, err := backend.Backend.Put(ctx, "data/maps/legacy.json", []byte(legacy), "", "import"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	read, err := s.Read(ctx, "legacy")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(read.Payload) != legacy {
		t.Errorf("Payload = %s, want legacy document as-is", read.Payload)
	}
	if read.UpdatedAt != "" {
		t.Errorf("UpdatedAt = %q, want empty for legacy document", read.UpdatedAt)
	}

	// Saving the same data upgrades the document to the envelope form.
	result, err := s.Write(ctx, WriteRequest{MapID: "legacy", Payload: json.RawMessage(legacy), ExpectedVersion: read.Version})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if result.Status != WriteCommitted {
		t.Errorf("Status = %v, want committed", result.Status)
	}
}

func TestDocumentStore_MalformedStoredDocument(t *testing.T) {
	t.Parallel()

	s, backend := newTestDocumentStore(t)
	ctx := context.Background()

	if _, err := backend.Backend.Put(ctx, "data/maps/bad.json", []byte(`[1,2]`), "", "bad"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, err := s.Read(ctx, "bad")
	if _, ok := models.AsUpstreamError(err); !ok {
		t.Errorf("Read() error = %v, want *models.UpstreamError", err)
	}
}

func TestDocumentStore_BackendFailures(t *testing.T) {
	t.Parallel()

	upstream := &models.UpstreamError{Service: models.ServiceStore, Operation: "get_contents", Status: 502}

	s, backend := newTestDocumentStore(t)
	backend.getErr = upstream

	if _, err := s.Read(context.Background(), "m"); !errors.Is(err, upstream) {
		t.Errorf("Read() error = %v, want upstream error", err)
	}
	if _, err := s.Write(context.Background(), WriteRequest{MapID: "m", Payload: json.RawMessage(`{}`)}); !errors.Is(err, upstream) {
		t.Errorf("Write() error = %v, want upstream error", err)
	}

	s2, backend2 := newTestDocumentStore(t)
	backend2.putErr = upstream
	if _, err := s2.Write(context.Background(), WriteRequest{MapID: "m", Payload: json.RawMessage(`{}`)}); !errors.Is(err, upstream) {
		t.Errorf("Write() error = %v, want upstream error", err)
	}
}

func TestCommitMessage(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 250)
	tests := []struct {
		msg  string
		want string
	}{
		{"", "Auto-save rdo_main"},
		{"   ", "Auto-save rdo_main"},
		{"Add Fort Wallace", "Add Fort Wallace"},
		{long, strings.Repeat("é", 200)},
	}
	for _, tt := range tests {
		if got := commitMessage(tt.msg, "rdo_main"); got != tt.want {
			t.Errorf("commitMessage(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestDocumentStore_WriteMetrics(t *testing.T) {
	s, _ := newTestDocumentStore(t)
	ctx := context.Background()

	committed := testutil.ToFloat64(metrics.DocumentWrites.WithLabelValues("committed"))
	skipped := testutil.ToFloat64(metrics.DocumentWrites.WithLabelValues("skipped"))

	for i := 0; i < 2; i++ {
		if _, err := s.Write(ctx, WriteRequest{MapID: "metrics", Payload: json.RawMessage(`{"k":1}`)}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if got := testutil.ToFloat64(metrics.DocumentWrites.WithLabelValues("committed")) - committed; got != 1 {
		t.Errorf("committed writes delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DocumentWrites.WithLabelValues("skipped")) - skipped; got != 1 {
		t.Errorf("skipped writes delta = %v, want 1", got)
	}
}
