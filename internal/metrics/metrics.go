package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mytube_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mytube_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_scan_runs_total",
			Help: "Total number of media scans by outcome",
		},
		[]string{"status"}, // "completed", "aborted", "cancelled"
	)

	ScanIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_scan_last_run_timestamp",
			Help: "Unix timestamp of the last finished scan",
		},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_scan_last_run_duration_seconds",
			Help: "Duration of the last scan in seconds",
		},
	)

	ScanVideosIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mytube_scan_videos_indexed_total",
			Help: "Total number of videos newly added to the catalog",
		},
	)

	ScanVideosSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mytube_scan_videos_skipped_total",
			Help: "Total number of discovered videos already present in the catalog",
		},
	)

	ScanChannelsTouched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mytube_scan_channels_touched_total",
			Help: "Total number of channels ensured during scans",
		},
	)

	ScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mytube_scan_errors_total",
			Help: "Total number of non-fatal errors recorded during scans",
		},
	)

	ScanTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_scan_triggers_total",
			Help: "Scan triggers by outcome",
		},
		[]string{"result"}, // "started", "already_running"
	)
)

// External tool metrics
var (
	ProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_probe_total",
			Help: "Total number of metadata probes by status",
		},
		[]string{"status"},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mytube_probe_duration_seconds",
			Help:    "Metadata probe duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ThumbnailAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_thumbnail_attempts_total",
			Help: "Thumbnail extraction attempts by seek offset and status",
		},
		[]string{"offset", "status"},
	)

	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_thumbnail_generations_total",
			Help: "Total number of thumbnail generations by status",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mytube_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds, including the fallback attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Reconciler metrics
var (
	ReconcileRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_reconcile_removed_total",
			Help: "Catalog entries removed by reconciliation",
		},
		[]string{"kind"}, // "video", "channel"
	)

	ReconcileCheckErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mytube_reconcile_check_errors_total",
			Help: "Existence checks that failed with something other than not-found",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retry attempts",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_filesystem_stale_errors_total",
			Help: "Stale file handle errors encountered",
		},
		[]string{"operation"},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mytube_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"op"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mytube_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_memory_paused",
			Help: "Whether scan work is paused for memory pressure (1 = paused)",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mytube_memory_pauses_total",
			Help: "Total number of times scan work was paused for memory pressure",
		},
	)
)

// Catalog metrics
var (
	CatalogChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_catalog_channels",
			Help: "Number of channels in the catalog",
		},
	)

	CatalogVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mytube_catalog_videos",
			Help: "Number of videos in the catalog",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mytube_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// InitializeMetrics pre-populates label combinations so every series is
// exported from the first scrape.
func InitializeMetrics() {
	for _, status := range []string{"completed", "aborted", "cancelled"} {
		ScanRunsTotal.WithLabelValues(status)
	}
	for _, result := range []string{"started", "already_running"} {
		ScanTriggersTotal.WithLabelValues(result)
	}
	for _, status := range []string{"success", "error"} {
		ProbeTotal.WithLabelValues(status)
		ThumbnailGenerationsTotal.WithLabelValues(status)
		for _, offset := range []string{"00:00:05", "00:00:01"} {
			ThumbnailAttemptsTotal.WithLabelValues(offset, status)
		}
	}
	for _, kind := range []string{"video", "channel"} {
		ReconcileRemovedTotal.WithLabelValues(kind)
	}
	for _, op := range []string{"stat", "readdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
