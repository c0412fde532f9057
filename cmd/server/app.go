// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

package main

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/waymark/internal/api"
	"github.com/tomtom215/waymark/internal/auth"
	"github.com/tomtom215/waymark/internal/config"
	"github.com/tomtom215/waymark/internal/logging"
	"github.com/tomtom215/waymark/internal/store"
	"github.com/tomtom215/waymark/internal/supervisor"
	"github.com/tomtom215/waymark/internal/supervisor/services"
)

// idleTimeout caps keep-alive connections between requests.
const idleTimeout = 60 * time.Second

// app holds the components built from configuration.
type app struct {
	cfg     *config.Config
	backend store.Backend
	maps    *store.DocumentStore
	handler http.Handler
}

// newApp wires the store, the session and identity components and the
// router. The caller must call close.
func newApp(cfg *config.Config) (*app, error) {
	sessions, err := auth.NewSessionManager(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	backend, err := store.NewBackend(cfg.Store, cfg.GitHub)
	if err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}
	maps := store.NewDocumentStore(backend, cfg.GitHub.BasePath)

	handler := api.NewHandler(
		sessions,
		auth.NewDiscordClient(cfg.Discord),
		auth.NewPolicy(cfg.Access),
		maps,
		cfg.Server,
	)
	router := api.NewRouter(handler, sessions, api.NewChiMiddlewareConfig(cfg.Security))

	return &app{
		cfg:     cfg,
		backend: backend,
		maps:    maps,
		handler: router.SetupChi(),
	}, nil
}

// httpServer returns the server for the editor API.
func (a *app) httpServer() *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port)),
		Handler:           a.handler,
		ReadTimeout:       a.cfg.Server.Timeout,
		ReadHeaderTimeout: a.cfg.Server.Timeout,
		WriteTimeout:      a.cfg.Server.Timeout,
		IdleTimeout:       idleTimeout,
	}
}

// register adds the app's services to tree.
func (a *app) register(tree *supervisor.SupervisorTree) error {
	if collector, ok := store.Collector(a.backend); ok && a.cfg.Store.GCInterval > 0 {
		gc, err := services.NewStoreGCService(collector, a.cfg.Store.GCInterval, a.cfg.Store.GCDiscardRatio)
		if err != nil {
			return err
		}
		tree.AddStoreService(gc)
		logging.Info().Dur("interval", a.cfg.Store.GCInterval).Msg("Store GC service added")
	}

	server := a.httpServer()
	tree.AddAPIService(services.NewHTTPServerService(server, a.cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
	return nil
}

// close releases the document store.
func (a *app) close() {
	if err := store.Close(a.backend); err != nil {
		logging.Error().Err(err).Msg("Error closing document store")
	}
}
