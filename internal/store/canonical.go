// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// updatedAtLayout is ISO-8601 in UTC with millisecond precision.
const updatedAtLayout = "2006-01-02T15:04:05.000Z"

// ErrMalformedDocument is returned when stored content is not a JSON object.
var ErrMalformedDocument = errors.New("stored document is not a JSON object")

// storedDocument is a parsed document as read from a backend.
type storedDocument struct {
	MapID     string
	UpdatedAt string
	Payload   json.RawMessage
	// Enveloped is false for legacy documents that hold the payload directly.
	Enveloped bool
}

// decodeValue parses raw JSON into generic values, keeping numbers exact.
func decodeValue(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra interface{}
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// canonicalBytes renders v with sorted object keys and two-space indentation.
func canonicalBytes(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeEnvelope renders the durable form of a document.
func encodeEnvelope(mapID, updatedAt string, payload interface{}) ([]byte, error) {
	return canonicalBytes(map[string]interface{}{
		"mapId":     mapID,
		"updatedAt": updatedAt,
		"payload":   payload,
	})
}

// comparableForm is the part of a document that decides whether a save
// changes anything.
func comparableForm(mapID string, payload interface{}) ([]byte, error) {
	return canonicalBytes(map[string]interface{}{
		"mapId":   mapID,
		"payload": payload,
	})
}

// decodeStored unwraps the document envelope. Content without a payload key
// is treated as a bare payload.
func decodeStored(content []byte) (*storedDocument, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(content, &fields); err != nil || fields == nil {
		return nil, ErrMalformedDocument
	}

	payload, ok := fields["payload"]
	if !ok {
		return &storedDocument{Payload: json.RawMessage(bytes.TrimSpace(content))}, nil
	}

	doc := &storedDocument{Payload: payload, Enveloped: true}
	if raw, ok := fields["mapId"]; ok {
		_ = json.Unmarshal(raw, &doc.MapID)
	}
	if raw, ok := fields["updatedAt"]; ok {
		_ = json.Unmarshal(raw, &doc.UpdatedAt)
	}
	return doc, nil
}

// sameDocument reports whether stored content already holds mapID and payload.
func sameDocument(content []byte, mapID string, payload interface{}) bool {
	stored, err := decodeStored(content)
	if err != nil || !stored.Enveloped || stored.MapID != mapID {
		return false
	}

	storedPayload, err := decodeValue(stored.Payload)
	if err != nil {
		return false
	}

	current, err := comparableForm(stored.MapID, storedPayload)
	if err != nil {
		return false
	}
	next, err := comparableForm(mapID, payload)
	if err != nil {
		return false
	}
	return bytes.Equal(current, next)
}
