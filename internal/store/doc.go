// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package store persists map documents in a versioned content store.

One JSON document is stored per map at <basePath>/<mapId>.json:

	{
	  "mapId": "rdo_main",
	  "payload": {
	    "areas": [],
	    "markers": [],
	    "roads": []
	  },
	  "updatedAt": "2026-01-01T12:00:00.000Z"
	}

Documents are written pretty-printed with sorted keys so that the content
store's history shows readable diffs.

# Optimistic Concurrency

Every stored document has an opaque version token (the git blob SHA on
GitHub, a UUID on Badger). DocumentStore.Write reads the current version and
writes conditionally on it, so at most one write wins per (mapId, version).
The loser receives WriteConflict and must re-read before saving again.
No locks are taken and nothing is retried.

A write whose mapId and payload match the stored document is skipped
without touching the backend, so repeated saves do not create empty
commits. updatedAt is not part of that comparison.

# Backends

  - GitHubBackend: the GitHub contents API (production)
  - BadgerBackend: an embedded key-value store for local development and tests
  - CircuitBreakerBackend: wraps either and fails fast while the backend is down
*/
package store
