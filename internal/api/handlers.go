// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package api

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/store"
)

// IdentityProvider is the OAuth2 identity provider used by the login flow.
// *auth.DiscordClient implements it.
type IdentityProvider interface {
	BuildAuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, accessToken string) (*auth.Profile, error)
	FetchMembership(ctx context.Context, accessToken, guildID string) (*auth.Membership, error)
}

// MapStore loads and saves map documents. *store.DocumentStore implements it.
type MapStore interface {
	Read(ctx context.Context, mapID string) (*store.ReadResult, error)
	Write(ctx context.Context, req store.WriteRequest) (*store.WriteResult, error)
	Health() store.Health
}

var (
	_ IdentityProvider = (*auth.DiscordClient)(nil)
	_ MapStore         = (*store.DocumentStore)(nil)
)

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_auth.go: /login, /me, /logout
//   - handlers_maps.go: /load, /save
//   - handlers_health.go: liveness and readiness probes
//
// Handler keeps no per-request state; identity is re-derived from the
// session cookie on every request.
type Handler struct {
	sessions  *auth.SessionManager
	identity  IdentityProvider
	policy    *auth.Policy
	maps      MapStore
	security  *logging.SecurityLogger
	config    config.ServerConfig
	startTime time.Time
}

// NewHandler creates the API handler.
//
// Example:
//
//	handler := api.NewHandler(sessions, discord, policy, documents, cfg.Server)
//	router := api.NewRouter(handler, sessions, cfg.Security)
//	srv := &http.Server{Handler: router.SetupChi()}
func NewHandler(sessions *auth.SessionManager, identity IdentityProvider, policy *auth.Policy, maps MapStore, cfg config.ServerConfig) *Handler {
	if cfg.PostLoginPath == "" {
		cfg.PostLoginPath = "/"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5 << 20
	}
	return &Handler{
		sessions:  sessions,
		identity:  identity,
		policy:    policy,
		maps:      maps,
		security:  logging.NewSecurityLogger(),
		config:    cfg,
		startTime: time.Now(),
	}
}
