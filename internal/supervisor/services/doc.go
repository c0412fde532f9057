// Waymark - Collaborative Map Marker Editor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waymark

/*
Package services adapts Waymark components to suture's Serve(ctx) lifecycle.

  - HTTPServerService: runs the editor API's *http.Server and shuts it down
    gracefully when its context is canceled.
  - StoreGCService: periodically compacts the badger value log when the
    badger backend is on disk.

A service returns an error to ask its supervisor for a restart and returns
ctx.Err() once it has been told to stop.
*/
package services
