// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/logging"
)

var (
	// ErrNotAuthenticated is returned by RequireEditor when the request has no valid session.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrNotEditor is returned by RequireEditor when the session lacks edit rights.
	ErrNotEditor = errors.New("not an editor")
)

type contextKey string

// ClaimsContextKey is the context key for the request's *SessionClaims.
const ClaimsContextKey contextKey = "session_claims"

// maxClockSkew tolerates small differences between issuing and verifying hosts.
const maxClockSkew = 5 * time.Minute

// SessionManager issues, reads and clears the signed session cookie. It keeps
// no server-side state: every request re-derives identity from its cookie.
type SessionManager struct {
	codec      *TokenCodec
	cookieName string
	maxAge     time.Duration
	secure     bool
	now        func() time.Time
}

// NewSessionManager creates a session manager from session configuration.
func NewSessionManager(cfg config.SessionConfig) (*SessionManager, error) {
	codec, err := NewTokenCodec(cfg.Secret)
	if err != nil {
		return nil, err
	}

	name := cfg.CookieName
	if name == "" {
		name = "session"
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	return &SessionManager{
		codec:      codec,
		cookieName: name,
		maxAge:     maxAge,
		secure:     cfg.CookieSecure,
		now:        time.Now,
	}, nil
}

// CookieName returns the session cookie name.
func (m *SessionManager) CookieName() string {
	return m.cookieName
}

// Issue builds claims from the authorization decision, signs them and sets
// the session cookie. CanEdit is fixed for the life of the token.
func (m *SessionManager) Issue(w http.ResponseWriter, decision AuthorizationDecision, profile *Profile, accessToken string) (*SessionClaims, error) {
	if profile == nil || profile.ID == "" {
		return nil, fmt.Errorf("issue session: missing profile")
	}

	claims := &SessionClaims{
		SchemaVersion:       ClaimsSchemaVersion,
		UserID:              profile.ID,
		Username:            profile.Username,
		CanEdit:             decision.CanEdit && decision.IdentityID == profile.ID,
		ProviderAccessToken: accessToken,
		IssuedAt:            m.now().UnixMilli(),
	}

	token, err := m.codec.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return claims, nil
}

// ReadCurrent returns the request's session claims, or nil for an anonymous
// request. Absent, malformed, mis-signed and expired cookies are all anonymous.
func (m *SessionManager) ReadCurrent(r *http.Request) *SessionClaims {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := m.codec.Decode(cookie.Value)
	if err != nil {
		recordSessionRejected()
		logging.Ctx(r.Context()).Debug().Msg("Ignoring invalid session cookie")
		return nil
	}

	if !m.claimsUsable(claims) {
		recordSessionRejected()
		logging.Ctx(r.Context()).Debug().
			Str("user_id", logging.SanitizeUserID(claims.UserID)).
			Msg("Ignoring expired or unsupported session")
		return nil
	}
	return claims
}

// claimsUsable checks the schema version and that the token is within its
// lifetime. The cookie's Max-Age is only a hint to the browser.
func (m *SessionManager) claimsUsable(claims *SessionClaims) bool {
	if claims.SchemaVersion != ClaimsSchemaVersion || claims.UserID == "" {
		return false
	}
	issued := time.UnixMilli(claims.IssuedAt)
	now := m.now()
	if issued.After(now.Add(maxClockSkew)) {
		return false
	}
	return now.Sub(issued) <= m.maxAge
}

// RequireEditor returns the session claims when the caller may edit.
// It returns ErrNotAuthenticated without a valid session and ErrNotEditor
// when the session was issued without edit rights.
func (m *SessionManager) RequireEditor(r *http.Request) (*SessionClaims, error) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		claims = m.ReadCurrent(r)
	}
	if claims == nil {
		recordEditDenied(editDeniedAnonymous)
		return nil, ErrNotAuthenticated
	}
	if !claims.CanEdit {
		recordEditDenied(editDeniedNotEditor)
		return claims, ErrNotEditor
	}
	return claims, nil
}

// Clear instructs the browser to drop the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate is a middleware that decodes the session cookie once and
// stores the claims in the request context. Anonymous requests pass through
// unchanged.
func (m *SessionManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := m.ReadCurrent(r); claims != nil {
			r = r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the claims stored by Authenticate, or nil.
func ClaimsFromContext(ctx context.Context) *SessionClaims {
	claims, ok := ctx.Value(ClaimsContextKey).(*SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
