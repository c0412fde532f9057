// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package store

import (
	"strings"

	"github.com/tomtom215/waymark/internal/config"
)

// MaxMapIDLength is the longest mapId kept after normalization.
const MaxMapIDLength = 64

// NormalizeMapID restricts a client-supplied map name to [A-Za-z0-9_-],
// truncates it to MaxMapIDLength and falls back to config.DefaultMapID when
// nothing is left. The result is always safe to use as a file name.
func NormalizeMapID(raw string) string {
	var b strings.Builder
	b.Grow(min(len(raw), MaxMapIDLength))

	for i := 0; i < len(raw) && b.Len() < MaxMapIDLength; i++ {
		c := raw[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		}
	}

	if b.Len() == 0 {
		return config.DefaultMapID
	}
	return b.String()
}
