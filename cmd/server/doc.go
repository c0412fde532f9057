// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package main is the Waymark server: the backend of a collaborative map marker
editor. Anyone can load a map's markers; only allow-listed Discord accounts
can save them. Map documents are committed to a GitHub repository, or to an
embedded BadgerDB for local development.

Startup order:

 1. Configuration (koanf: defaults, optional config.yaml, environment)
 2. Logging (zerolog)
 3. Document store backend, wrapped in a circuit breaker
 4. Session manager, Discord client and access policy
 5. Chi router
 6. Supervisor tree (suture): store GC and the HTTP server

Minimal environment:

	SESSION_SECRET=<16+ random chars>
	DISCORD_CLIENT_ID=...
	DISCORD_CLIENT_SECRET=...
	DISCORD_REDIRECT_URI=https://maps.example.org/api/login
	ALLOWED_DISCORD_IDS=80351110224678912,...
	GITHUB_OWNER=org
	GITHUB_REPO=maps
	GITHUB_TOKEN=...

Local development without GitHub:

	STORE_BACKEND=badger BADGER_IN_MEMORY=true SESSION_COOKIE_SECURE=false ./waymark

SIGINT and SIGTERM stop the tree; the HTTP server drains for SHUTDOWN_TIMEOUT
before the store is closed.
*/
package main
