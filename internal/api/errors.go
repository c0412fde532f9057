// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
	"github.com/tomtom215/waymark/internal/store"
	"github.com/tomtom215/waymark/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed   = validation.ErrorCode
	ErrCodeUpstreamFailure    = "UPSTREAM_FAILURE"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
)

var (
	// ErrLoginDenied is returned when the identity provider reports an error
	// on the login callback (the user declined, or the request was invalid).
	ErrLoginDenied = errors.New("login was not completed")

	// ErrBodyTooLarge is returned when a request body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrMalformedBody is returned when a request body is not valid JSON.
	ErrMalformedBody = errors.New("request body must be a JSON object")
)

// respondErr maps err onto the error taxonomy and writes the response.
// It is the only place that decides status codes for failures.
//
//	ErrNotAuthenticated, ErrLoginDenied -> 401 UNAUTHORIZED
//	ErrNotEditor                        -> 403 FORBIDDEN
//	*RequestValidationError, bad body   -> 400 VALIDATION_FAILED
//	ErrBodyTooLarge                     -> 413 PAYLOAD_TOO_LARGE
//	*UpstreamError                      -> 500 UPSTREAM_FAILURE
//	ErrEmptySecret                      -> 500 CONFIGURATION_ERROR
//	anything else                       -> 500 INTERNAL_ERROR
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *validation.RequestValidationError

	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "not logged in", nil)

	case errors.Is(err, ErrLoginDenied):
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error(), nil)

	case errors.Is(err, auth.ErrNotEditor):
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "not an editor", nil)

	case errors.As(err, &validationErr):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, validationErr.Error(), validationErr.Details())

	case errors.Is(err, ErrMalformedBody), errors.Is(err, store.ErrInvalidPayload):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil)

	case errors.Is(err, ErrBodyTooLarge):
		respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, err.Error(), nil)

	case errors.Is(err, auth.ErrEmptySecret):
		logging.CtxErr(r.Context(), err).Msg("Configuration error reached at request time")
		respondError(w, r, http.StatusInternalServerError, ErrCodeConfiguration, "server is not configured", nil)

	default:
		if upstreamErr, ok := models.AsUpstreamError(err); ok {
			respondUpstreamError(w, r, upstreamErr)
			return
		}
		logging.CtxErr(r.Context(), err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("Unhandled API error")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal error", nil)
	}
}

// respondUpstreamError reports a failed call to the identity provider or the
// document store. Only the sanitized message is returned, never the cause.
func respondUpstreamError(w http.ResponseWriter, r *http.Request, err *models.UpstreamError) {
	logging.Ctx(r.Context()).Error().
		Str("service", err.Service).
		Str("operation", err.Operation).
		Int("status", err.Status).
		Str("error", sanitizeLogValue(logging.SanitizeError(err.Error()))).
		Msg("Upstream call failed")

	respondError(w, r, http.StatusInternalServerError, ErrCodeUpstreamFailure, err.Service+" request failed", map[string]interface{}{
		"service": err.Service,
		"status":  err.Status,
		"message": err.Message,
	})
}
