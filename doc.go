// Package main provides the entry point for the mytube catalog server.
//
// mytube indexes a directory of video files into a SQLite catalog. Every
// top-level folder under MEDIA_DIR becomes a channel, files placed directly in
// MEDIA_DIR go to the "Uncategorized" channel, and each video gets ffprobe
// metadata and an ffmpeg thumbnail.
//
// # Application Lifecycle
//
//  1. Configuration Loading: defaults, optional TOML file, environment variables,
//     and GOMEMLIMIT from MEMORY_LIMIT
//  2. Database Initialization: opens SQLite and applies goose migrations
//  3. Media Tools: checks ffprobe and ffmpeg
//  4. Component Initialization:
//     - Scanner: startup scan, optional periodic scan
//     - Watcher: optional fsnotify rescans with a debounce
//     - Memory Monitor: pauses scan workers near the memory limit
//     - Metrics Collector: refreshes catalog gauges every minute
//  5. HTTP Server Setup: routes, logging and metrics middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stops every component in order
//
// # HTTP Server
//
// The main server (default port 3001) serves:
//
//   - POST /api/scan: start a scan in the background (?wait=true blocks and returns statistics)
//   - POST /api/scan/cleanup: remove missing videos and empty channels
//   - GET /api/scan/status: catalog counts and the last scan result
//   - GET /health, /healthz, /livez, /readyz, /version
//   - GET /thumbnails/{name}: generated thumbnails
//
// When METRICS_ENABLED is set, a second server (default port 9090) exposes
// Prometheus metrics on /metrics.
//
// # Graceful Shutdown
//
//  1. Shut down the HTTP server (30s timeout)
//  2. Stop the file watcher
//  3. Stop the scanner, cancelling a running scan
//  4. Stop the memory monitor
//  5. Stop the metrics collector
//  6. Shut down the metrics server
//  7. Close the database
//
// See [mytube/internal/startup] for the configuration keys. The catalogctl
// command in cmd/catalogctl runs the same scan and cleanup from a shell.
package main
