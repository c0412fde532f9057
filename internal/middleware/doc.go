// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package middleware provides HTTP middleware used by the API router.

Key Components:

  - RequestID: assigns X-Request-ID and seeds logging context
  - PrometheusMetrics: request count, latency and in-flight gauge per route
  - Compression: gzip for clients that accept it

All three use the http.HandlerFunc signature; internal/api adapts them to
chi with a small wrapper:

	r.With(chiMiddleware(middleware.PrometheusMetrics)).Get("/load", h.Load)

The endpoint label recorded by PrometheusMetrics is the chi route pattern,
so metrics stay bounded no matter which paths clients request.
*/
package middleware
