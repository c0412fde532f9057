// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package api provides the HTTP JSON API for the map editor.

Endpoints (each also mounted under /api/):

	GET       /login    OAuth2 login: redirect to the provider, or finish the callback
	GET       /me       {loggedIn, editor, user?}
	GET       /load     ?mapId=<id> -> {ok, mapId, exists, version?, updatedAt?, payload}
	POST      /save     editors only; {mapId?, payload, message?, expectedVersion?}
	GET|POST  /logout   clears the session cookie

	GET       /health/live, /health/ready, /metrics

Every error has the same shape:

	{"ok": false, "error": "not an editor", "code": "FORBIDDEN", "request_id": "..."}

Status codes are decided in one place (respondErr in errors.go):
401 UNAUTHORIZED, 403 FORBIDDEN, 400 VALIDATION_FAILED, 409 CONFLICT,
500 UPSTREAM_FAILURE, 405 METHOD_NOT_ALLOWED, 429 TOO_MANY_REQUESTS.

The handlers hold no per-request state. Identity comes from the signed
session cookie on every request; documents live in the configured store.

Usage Example:

	sessions, _ := auth.NewSessionManager(cfg.Session)
	handler := api.NewHandler(sessions, auth.NewDiscordClient(cfg.Discord),
	    auth.NewPolicy(cfg.Access), documents, cfg.Server)
	router := api.NewRouter(handler, sessions, api.NewChiMiddlewareConfig(cfg.Security))
	srv := &http.Server{Addr: ":3000", Handler: router.SetupChi()}
*/
package api
