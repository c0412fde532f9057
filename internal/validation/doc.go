// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

// Package validation provides request body validation using go-playground/validator v10.
//
// A thread-safe singleton validator reports fields by their JSON names and
// registers one custom tag:
//
//   - jsonobject: the field holds raw JSON that is an object
//
// # Quick Start
//
//	type SaveRequest struct {
//	    Payload json.RawMessage `json:"payload" validate:"required,jsonobject"`
//	    Message string          `json:"message" validate:"max=1000"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // verr.Error() == "payload must be a JSON object"
//	}
//
// Failures map to HTTP 400 with code VALIDATION_FAILED. Error details list
// the field, tag and message of each failure; submitted values are never
// echoed back.
package validation
