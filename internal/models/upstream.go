// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package models

import (
	"errors"
	"fmt"
)

// Upstream service names used in UpstreamError.Service and metrics labels.
const (
	ServiceIdentity = "identity"
	ServiceStore    = "store"
)

// UpstreamError describes a failed call to an external service. Message is
// safe to return to clients: it never contains credentials.
type UpstreamError struct {
	Service   string // ServiceIdentity or ServiceStore
	Operation string // e.g. "token_exchange", "get_contents"
	Status    int    // HTTP status from the upstream, 0 when unreachable
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Service, e.Operation)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// AsUpstreamError extracts an *UpstreamError from err's chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr, true
	}
	return nil, false
}
