// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/waymark/internal/logging"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	t.Parallel()

	var capturedID, correlationID string
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		correlationID = logging.CorrelationIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	responseID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if capturedID != responseID {
		t.Errorf("context ID = %q, want %q", capturedID, responseID)
	}
	if correlationID == "" {
		t.Error("correlation ID missing from context")
	}
}

func TestRequestID_UpstreamHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		preserve bool
	}{
		{name: "proxy uuid", header: uuid.New().String(), preserve: true},
		{name: "opaque token", header: "edge-7f3a:42", preserve: true},
		{name: "empty", header: "", preserve: false},
		{name: "contains space", header: "abc def", preserve: false},
		{name: "contains newline", header: "abc\ninjected", preserve: false},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLength+1), preserve: false},
		{name: "max length", header: strings.Repeat("a", maxRequestIDLength), preserve: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var capturedID string
			handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
				capturedID = GetRequestID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/load", nil)
			req.Header[RequestIDHeader] = []string{tt.header}
			rec := httptest.NewRecorder()
			handler(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if tt.preserve && got != tt.header {
				t.Errorf("X-Request-ID = %q, want %q", got, tt.header)
			}
			if !tt.preserve {
				if got == tt.header {
					t.Errorf("X-Request-ID %q was kept, want replacement", got)
				}
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("replacement %q is not a UUID", got)
				}
			}
			if capturedID != got {
				t.Errorf("context ID = %q, want %q", capturedID, got)
			}
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	t.Parallel()

	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		id := rec.Header().Get(RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	t.Parallel()

	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
