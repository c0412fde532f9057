// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package metrics defines the Prometheus collectors exposed on /metrics.
//
// Collectors are package-level and registered with the default registry via
// promauto. Callers use the Record* helpers rather than touching the vectors
// directly so that label values stay consistent.
package metrics
