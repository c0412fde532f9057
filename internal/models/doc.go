// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package models defines the data structures shared across Waymark.

Key Components:

  - MapDocument: the persisted envelope for one map's marker set
  - DefaultPayload: the empty payload served for maps that do not exist yet
  - UpstreamError: a failed call to the identity provider or document store
  - API response bodies for /me, /load, /save and error responses

The marker payload itself is opaque JSON. Nothing in this package inspects
markers, roads or areas beyond requiring the payload to be a JSON object.
*/
package models
