// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package supervisor runs Waymark's long-lived services under suture v4.

	waymark (root)
	├── store-layer
	│   └── StoreGCService (badger backend on disk only)
	└── api-layer
	    └── HTTPServerService

Supervisor events (restarts, backoff, panics) are logged through log/slog via
sutureslog, which the logging package bridges to zerolog.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

A crashing service is restarted immediately until FailureThreshold failures
accumulate (decaying at FailureDecay per second), after which its supervisor
waits FailureBackoff before trying again.
*/
package supervisor
