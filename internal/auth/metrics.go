// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package auth

import (
	"time"

	"github.com/tomtom215/waymark/internal/metrics"
	"github.com/tomtom215/waymark/internal/models"
)

// Login outcomes recorded by RecordLoginOutcome.
const (
	LoginOutcomeEditor  = "editor"
	LoginOutcomeViewer  = "viewer"
	LoginOutcomeDenied  = "denied_by_provider"
	LoginOutcomeFailure = "failure"
	editDeniedAnonymous = "anonymous"
	editDeniedNotEditor = "not_editor"
)

// observeUpstream records one identity provider call. status 0 means unreachable.
func observeUpstream(operation string, start time.Time, status int) {
	metrics.RecordUpstreamCall(models.ServiceIdentity, operation, status, time.Since(start))
}

// RecordLoginOutcome records a finished login callback started at start.
func RecordLoginOutcome(outcome string, start time.Time) {
	metrics.RecordLogin(outcome, time.Since(start))
}

func recordEditDenied(reason string) {
	metrics.EditDenied.WithLabelValues(reason).Inc()
}

func recordSessionRejected() {
	metrics.SessionDecodeFailures.Inc()
}
