// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
	"github.com/tomtom215/waymark/internal/store"
	"github.com/tomtom215/waymark/internal/validation"
)

// Load returns a map's payload. Anyone may read; a map that was never saved
// returns the default empty payload with exists=false.
//
// Endpoint: GET /load?mapId=<id>
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	result, err := h.maps.Read(r.Context(), r.URL.Query().Get("mapId"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.LoadResponse{
		OK:        true,
		MapID:     result.MapID,
		Exists:    result.Exists,
		Version:   result.Version,
		UpdatedAt: result.UpdatedAt,
		Payload:   result.Payload,
	})
}

// Save stores a map's payload. Only editors may save.
//
// Endpoint: POST /save
//
// Workflow:
//  1. Reject callers without an editor session (401/403) before the body is read
//  2. Decode and validate {mapId?, payload, message?, expectedVersion?}
//  3. Write through the document store: committed, skipped (unchanged) or
//     409 when another save got there first
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessions.RequireEditor(r)
	if err != nil {
		userID := ""
		if claims != nil {
			userID = claims.UserID
		}
		h.security.LogEditDenied(userID, clientIP(r), r.URL.Path, err.Error())
		respondErr(w, r, err)
		return
	}

	req, err := h.decodeSaveRequest(w, r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	result, err := h.maps.Write(r.Context(), store.WriteRequest{
		MapID:           req.MapID,
		Payload:         req.Payload,
		ExpectedVersion: req.ExpectedVersion,
		Message:         req.Message,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if result.Status == store.WriteConflict {
		logging.Ctx(r.Context()).Info().
			Str("map_id", result.MapID).
			Str("user_id", logging.SanitizeUserID(claims.UserID)).
			Msg("Save conflicted with a newer version")
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "map was changed by someone else", map[string]interface{}{
			"mapId":          result.MapID,
			"currentVersion": result.CurrentVersion,
		})
		return
	}

	respondJSON(w, http.StatusOK, &models.SaveResponse{
		OK:         true,
		MapID:      result.MapID,
		Skipped:    result.Status == store.WriteSkipped,
		Commit:     result.Commit,
		NewVersion: result.NewVersion,
	})
}

// decodeSaveRequest reads the body within the size limit and validates it.
func (h *Handler) decodeSaveRequest(w http.ResponseWriter, r *http.Request) (*models.SaveRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, ErrBodyTooLarge
		}
		return nil, ErrMalformedBody
	}
	if !models.IsJSONObject(body) {
		return nil, ErrMalformedBody
	}

	var req models.SaveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, ErrMalformedBody
	}
	if validationErr := validation.ValidateStruct(&req); validationErr != nil {
		return nil, validationErr
	}
	return &req, nil
}
