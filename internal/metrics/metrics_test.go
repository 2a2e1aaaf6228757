package metrics

import (
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric prometheus.Collector
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"DBQueryTotal", DBQueryTotal},
		{"ScanRunsTotal", ScanRunsTotal},
		{"ScanVideosIndexed", ScanVideosIndexed},
		{"ProbeTotal", ProbeTotal},
		{"ThumbnailAttemptsTotal", ThumbnailAttemptsTotal},
		{"ReconcileRemovedTotal", ReconcileRemovedTotal},
		{"FilesystemStaleErrors", FilesystemStaleErrors},
		{"WatcherEventsTotal", WatcherEventsTotal},
		{"CatalogVideos", CatalogVideos},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.metric)
		})
	}
}

func TestInitializeMetricsPrepopulatesLabels(t *testing.T) {
	InitializeMetrics()

	assert.Equal(t, 3, testutil.CollectAndCount(ScanRunsTotal))
	assert.Equal(t, 4, testutil.CollectAndCount(ThumbnailAttemptsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(ReconcileRemovedTotal))
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", runtime.Version())
	assert.Equal(t, float64(1), testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc123", runtime.Version())))
}
