// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/models"
)

const identityProviderName = "discord"

// maxProviderErrorLength bounds the provider error code echoed to the client.
const maxProviderErrorLength = 64

// Login handles both legs of the OAuth2 authorization-code flow.
//
// Endpoint: GET /login
//
// Workflow:
//  1. Without ?code, redirect (302) to the provider authorization URL
//  2. With ?error, the provider refused: 401, no session
//  3. With ?code, exchange it, fetch the profile (and guild membership when
//     a role gate is configured), decide edit rights, issue the session
//     cookie and redirect (302) to the post-login path
//
// Any failure in step 3 returns a JSON error and sets no cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.URL.Query()
	w.Header().Set("Cache-Control", "no-store")

	if providerErr := query.Get("error"); providerErr != "" {
		reason := providerErrorCode(providerErr)
		auth.RecordLoginOutcome(auth.LoginOutcomeDenied, start)
		h.security.LogLoginFailure(identityProviderName, clientIP(r), r.UserAgent(), "provider returned "+reason)
		respondErr(w, r, fmt.Errorf("%w: %s", ErrLoginDenied, reason))
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Redirect(w, r, h.identity.BuildAuthorizationURL(), http.StatusFound)
		return
	}

	claims, err := h.completeLogin(w, r, code)
	if err != nil {
		auth.RecordLoginOutcome(auth.LoginOutcomeFailure, start)
		h.security.LogLoginFailure(identityProviderName, clientIP(r), r.UserAgent(), err.Error())
		respondErr(w, r, err)
		return
	}

	outcome := auth.LoginOutcomeViewer
	if claims.CanEdit {
		outcome = auth.LoginOutcomeEditor
	}
	auth.RecordLoginOutcome(outcome, start)
	h.security.LogLoginSuccess(claims.UserID, claims.Username, identityProviderName, clientIP(r), claims.CanEdit)

	http.Redirect(w, r, h.config.PostLoginPath, http.StatusFound)
}

// completeLogin runs the server-side half of the login and sets the cookie.
func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, code string) (*auth.SessionClaims, error) {
	ctx := r.Context()

	token, err := h.identity.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := h.identity.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	var membership *auth.Membership
	if h.policy.RequiresMembership() {
		membership, err = h.identity.FetchMembership(ctx, token.AccessToken, h.policy.GuildID())
		if err != nil {
			return nil, err
		}
	}

	decision := h.policy.Decide(profile, membership)
	logging.Ctx(ctx).Debug().
		Str("user_id", logging.SanitizeUserID(profile.ID)).
		Bool("id_allowed", decision.IDAllowed).
		Bool("role_allowed", decision.RoleAllowed).
		Msg("Authorization decided")

	return h.sessions.Issue(w, decision, profile, token.AccessToken)
}

// providerErrorCode keeps only the characters an OAuth2 error code may use,
// so the provider's query string is never reflected verbatim.
func providerErrorCode(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw) && len(out) < maxProviderErrorLength; i++ {
		c := raw[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "unknown_error"
	}
	return string(out)
}

// Me reports the caller's login state. It always succeeds: an invalid or
// expired cookie is reported as logged out.
//
// Endpoint: GET /me
//
//	{"loggedIn": true, "editor": false, "user": {"id": "42", "username": "bob"}}
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := h.currentClaims(r)

	resp := models.MeResponse{LoggedIn: claims != nil}
	if claims != nil {
		resp.Editor = claims.CanEdit
		resp.User = &models.UserSummary{ID: claims.UserID, Username: claims.Username}
	}
	respondJSON(w, http.StatusOK, &resp)
}

// Logout clears the session cookie. It succeeds for anonymous callers too.
//
// Endpoint: GET|POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if claims := h.currentClaims(r); claims != nil {
		userID = claims.UserID
	}

	h.sessions.Clear(w)
	h.security.LogLogout(userID, clientIP(r))
	respondJSON(w, http.StatusOK, &models.OKResponse{OK: true})
}

// currentClaims returns the claims placed by the Authenticate middleware,
// decoding the cookie directly when the middleware is not mounted.
func (h *Handler) currentClaims(r *http.Request) *auth.SessionClaims {
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		return claims
	}
	return h.sessions.ReadCurrent(r)
}
