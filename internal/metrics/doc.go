// Package metrics provides Prometheus instrumentation for the MyTube catalog.
//
// All metrics are registered on the default registry with promauto and are
// prefixed with "mytube_". The groups are:
//
//   - HTTP: request counts, durations and in-flight requests
//   - Database: query counts and durations by operation
//   - Scanner: runs by outcome, last run time and duration, videos indexed
//     and skipped, channels touched, non-fatal scan errors
//   - External tools: ffprobe and ffmpeg invocations, including each
//     thumbnail seek offset attempted
//   - Reconciler: removed videos and channels, failed existence checks
//   - Filesystem: stale handle retries
//   - Watcher: filesystem events and watched directories
//   - Catalog: current channel and video counts, refreshed by [Collector]
//
// Expose them by mounting promhttp.Handler():
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// Example queries:
//
//	rate(mytube_scan_errors_total[1h])
//	histogram_quantile(0.95, sum(rate(mytube_probe_duration_seconds_bucket[5m])) by (le))
//	mytube_thumbnail_attempts_total{offset="00:00:01",status="success"}
package metrics
