// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package auth

import (
	"slices"
	"strings"

	"github.com/tomtom215/waymark/internal/config"
)

// AuthorizationDecision is the derived edit-rights outcome for one identity.
type AuthorizationDecision struct {
	IdentityID  string
	IDAllowed   bool
	RoleAllowed bool
	CanEdit     bool
}

// Policy decides edit rights from an allow-list of user ids and an optional
// guild role requirement. An empty allow-list denies everyone.
type Policy struct {
	allowedIDs     map[string]struct{}
	guildID        string
	requiredRoleID string
}

// NewPolicy builds a policy from access configuration. Blank ids are ignored.
func NewPolicy(cfg config.AccessConfig) *Policy {
	allowed := make(map[string]struct{}, len(cfg.AllowedUserIDs))
	for _, id := range cfg.AllowedUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = struct{}{}
		}
	}

	p := &Policy{allowedIDs: allowed}
	if cfg.RoleGateEnabled() {
		p.guildID = cfg.GuildID
		p.requiredRoleID = cfg.RequiredRoleID
	}
	return p
}

// RequiresMembership reports whether Decide needs guild membership data.
func (p *Policy) RequiresMembership() bool {
	return p.requiredRoleID != ""
}

// GuildID returns the guild whose roles are checked, or "" without a role gate.
func (p *Policy) GuildID() string {
	return p.guildID
}

// Decide computes the authorization decision. membership may be nil when no
// role gate is configured; with a gate, nil membership means no roles.
func (p *Policy) Decide(profile *Profile, membership *Membership) AuthorizationDecision {
	var d AuthorizationDecision
	if profile == nil {
		return d
	}
	d.IdentityID = profile.ID

	if len(p.allowedIDs) > 0 && profile.ID != "" {
		_, d.IDAllowed = p.allowedIDs[profile.ID]
	}

	d.RoleAllowed = true
	if p.RequiresMembership() {
		d.RoleAllowed = membership != nil && slices.Contains(membership.Roles, p.requiredRoleID)
	}

	d.CanEdit = d.IDAllowed && d.RoleAllowed
	return d
}
