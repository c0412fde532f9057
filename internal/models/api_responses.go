// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package models

import "github.com/goccy/go-json"

// UserSummary is the minimal profile returned to the browser.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// MeResponse is the body of GET /me. It never carries the access token.
//
//	{"loggedIn": true, "editor": true, "user": {"id": "42", "username": "bob"}}
type MeResponse struct {
	LoggedIn bool         `json:"loggedIn"`
	Editor   bool         `json:"editor"`
	User     *UserSummary `json:"user,omitempty"`
}

// LoadResponse is the body of GET /load. Version and UpdatedAt are omitted
// for maps that have never been saved.
type LoadResponse struct {
	OK        bool            `json:"ok"`
	MapID     string          `json:"mapId"`
	Exists    bool            `json:"exists"`
	Version   string          `json:"version,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// SaveRequest is the body of POST /save.
type SaveRequest struct {
	MapID           string          `json:"mapId" validate:"max=256"`
	Payload         json.RawMessage `json:"payload" validate:"required,jsonobject"`
	Message         string          `json:"message" validate:"max=1000"`
	ExpectedVersion string          `json:"expectedVersion" validate:"max=128"`
}

// SaveResponse is the body of a successful or skipped POST /save.
type SaveResponse struct {
	OK         bool   `json:"ok"`
	MapID      string `json:"mapId"`
	Skipped    bool   `json:"skipped"`
	Commit     string `json:"commit,omitempty"`
	NewVersion string `json:"newVersion,omitempty"`
}

// OKResponse is the body of endpoints with nothing else to report (logout).
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every error. Error is stable text for the
// client; Code is the machine-readable kind.
//
//	{"ok": false, "error": "not an editor", "code": "FORBIDDEN"}
type ErrorResponse struct {
	OK        bool                   `json:"ok"`
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// LiveResponse is the body of GET /health/live.
type LiveResponse struct {
	Alive         bool    `json:"alive"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadyResponse is the body of GET /health/ready.
type ReadyResponse struct {
	Ready   bool   `json:"ready"`
	Backend string `json:"backend"`
	Breaker string `json:"breaker,omitempty"`
}
