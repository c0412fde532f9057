// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package models

import (
	"bytes"

	"github.com/goccy/go-json"
)

// MapDocument is the durable shape of one map, stored as
//
//	{ "mapId": "<id>", "updatedAt": "<RFC 3339>", "payload": { "markers": [...], "roads": [...], "areas": [...] } }
//
// Payload is kept as raw JSON so the store never reinterprets marker data.
type MapDocument struct {
	MapID     string          `json:"mapId"`
	UpdatedAt string          `json:"updatedAt"`
	Payload   json.RawMessage `json:"payload"`
}

// DefaultPayload returns the payload served for a map that has never been saved.
func DefaultPayload() json.RawMessage {
	return json.RawMessage(`{"markers":[],"roads":[],"areas":[]}`)
}

// IsJSONObject reports whether raw is a JSON object (not null, array or scalar).
func IsJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}
