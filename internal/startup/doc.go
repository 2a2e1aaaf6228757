// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [ReadConfig] layers three sources, later ones winning:
//
//  1. Built-in defaults ([DefaultConfig])
//  2. An optional TOML file named by CONFIG_FILE
//  3. Environment variables
//
// The result is validated with struct tags, and the media, thumbnail and
// database paths are made absolute. [LoadConfig] additionally prints the
// banner, logs every setting and prepares the directories.
//
// Supported keys (environment / TOML):
//
//   - MEDIA_DIR / media_dir: Root of the channel folders (default: /media)
//   - THUMBNAIL_DIR / thumbnail_dir: Where generated thumbnails are written (default: /thumbnails)
//   - DATABASE_DIR / database_dir: Directory of the SQLite catalog (default: /database)
//   - PORT / port: HTTP server port (default: 3001)
//   - METRICS_PORT / metrics_port: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED / metrics_enabled: Enable the metrics server (default: true)
//   - SCAN_ON_STARTUP / scan_on_startup: Scan in the background at startup (default: true)
//   - SCAN_INTERVAL / scan_interval: Periodic scan interval, 0 disables (default: 0)
//   - WATCH_ENABLED / watch_enabled: Rescan on filesystem events (default: false)
//   - WATCH_DEBOUNCE / watch_debounce: Quiet period before a watch-triggered scan (default: 5s)
//   - CLEANUP_AFTER_SCAN / cleanup_after_scan: Reconcile after every scan (default: false)
//   - SCAN_WORKERS / scan_workers: Files indexed concurrently, 0 = auto (default: 0)
//   - PROBE_TIMEOUT / probe_timeout: ffprobe time limit (default: 30s)
//   - THUMBNAIL_TIMEOUT / thumbnail_timeout: ffmpeg time limit per attempt (default: 60s)
//   - FFPROBE_PATH, FFMPEG_PATH: Tool locations (default: looked up in PATH)
//   - THUMBNAIL_URL_PREFIX / thumbnail_url_prefix: URL prefix stored with videos (default: /thumbnails)
//   - LOG_HTTP / log_http: Log every HTTP request (default: true)
//   - LOG_LEVEL, LOG_FORMAT: Read by the logging package
//
// # Directory Setup
//
//   - Database directory: Required, must be writable
//   - Thumbnail directory: Optional, videos are indexed without thumbnails if unusable
//   - Media directory: Checked, created when missing (should be mounted)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
