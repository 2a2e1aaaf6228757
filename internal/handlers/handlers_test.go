package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mytube/internal/indexer"
	"mytube/internal/metrics"
)

type mockScanner struct {
	mock.Mock
}

func (m *mockScanner) TriggerScan() bool {
	return m.Called().Bool(0)
}

func (m *mockScanner) ScanAndIndex(ctx context.Context) indexer.ScanStatistics {
	return m.Called(ctx).Get(0).(indexer.ScanStatistics)
}

func (m *mockScanner) Reconcile(ctx context.Context) (indexer.ReconcileResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(indexer.ReconcileResult), args.Error(1)
}

func (m *mockScanner) IsScanning() bool {
	return m.Called().Bool(0)
}

func (m *mockScanner) LastStats() *indexer.ScanStatistics {
	stats, _ := m.Called().Get(0).(*indexer.ScanStatistics)
	return stats
}

func (m *mockScanner) GetHealthStatus() indexer.HealthStatus {
	return m.Called().Get(0).(indexer.HealthStatus)
}

func (m *mockScanner) MediaDir() string {
	return "/media"
}

type stubCatalog struct {
	stats   metrics.Stats
	err     error
	pingErr error
}

func (c *stubCatalog) CatalogCounts(context.Context) (metrics.Stats, error) { return c.stats, c.err }
func (c *stubCatalog) Ping(context.Context) error                           { return c.pingErr }

func newTestRouter(t *testing.T, catalog Catalog, scanner Scanner) (*mux.Router, *Handlers) {
	t.Helper()
	h := New(catalog, scanner, "/thumbs", "/thumbnails")
	h.fs = afero.NewMemMapFs()
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r, h
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestTriggerScan(t *testing.T) {
	tests := []struct {
		name       string
		started    bool
		wantCode   int
		wantStatus string
	}{
		{"starts in background", true, http.StatusAccepted, "started"},
		{"already running", false, http.StatusOK, "already_running"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &mockScanner{}
			scanner.On("TriggerScan").Return(tt.started).Once()
			r, _ := newTestRouter(t, &stubCatalog{}, scanner)

			rec := serve(r, http.MethodPost, "/api/scan")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantStatus, decode(t, rec)["status"])
			scanner.AssertExpectations(t)
		})
	}
}

func TestTriggerScanWait(t *testing.T) {
	scanner := &mockScanner{}
	stats := indexer.ScanStatistics{
		Channels:   2,
		Videos:     5,
		Skipped:    1,
		Errors:     []string{"metadata /media/A/bad.mp4: probe failed"},
		StartedAt:  time.Unix(1700000000, 0).UTC(),
		FinishedAt: time.Unix(1700000010, 0).UTC(),
	}
	scanner.On("ScanAndIndex", mock.Anything).Return(stats).Once()
	r, _ := newTestRouter(t, &stubCatalog{}, scanner)

	rec := serve(r, http.MethodPost, "/api/scan?wait=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var got indexer.ScanStatistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, stats, got)
	scanner.AssertNotCalled(t, "TriggerScan")
}

func TestTriggerScanRejectsGet(t *testing.T) {
	r, _ := newTestRouter(t, &stubCatalog{}, &mockScanner{})
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodGet, "/api/scan").Code)
}

func TestCleanup(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Reconcile", mock.Anything).
		Return(indexer.ReconcileResult{RemovedVideos: 3, RemovedChannels: 1, Errors: []string{}}, nil).Once()
	r, _ := newTestRouter(t, &stubCatalog{}, scanner)

	rec := serve(r, http.MethodPost, "/api/scan/cleanup")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Cleanup completed", body["message"])
	assert.EqualValues(t, 3, body["removed_videos"])
	assert.EqualValues(t, 1, body["removed_channels"])
	assert.NotContains(t, body, "errors")
}

func TestCleanupFailure(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Reconcile", mock.Anything).
		Return(indexer.ReconcileResult{Errors: []string{}}, errors.New("database is locked")).Once()
	r, _ := newTestRouter(t, &stubCatalog{}, scanner)

	rec := serve(r, http.MethodPost, "/api/scan/cleanup")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to cleanup", decode(t, rec)["error"])
}

func TestScanStatus(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("IsScanning").Return(true)
	scanner.On("LastStats").Return(&indexer.ScanStatistics{Videos: 7, Errors: []string{}})
	r, _ := newTestRouter(t, &stubCatalog{stats: metrics.Stats{Channels: 3, Videos: 12}}, scanner)

	rec := serve(r, http.MethodGet, "/api/scan/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.EqualValues(t, 3, body["channels"])
	assert.EqualValues(t, 12, body["videos"])
	assert.Equal(t, "/media", body["media_path"])
	assert.Equal(t, true, body["scanning"])
	lastScan, ok := body["last_scan"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, lastScan["videos"])
}

func TestScanStatusBeforeFirstScan(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("IsScanning").Return(false)
	scanner.On("LastStats").Return(nil)
	r, _ := newTestRouter(t, &stubCatalog{}, scanner)

	body := decode(t, serve(r, http.MethodGet, "/api/scan/status"))
	assert.NotContains(t, body, "last_scan")
	assert.EqualValues(t, 0, body["videos"])
}

func TestScanStatusDatabaseError(t *testing.T) {
	r, _ := newTestRouter(t, &stubCatalog{err: errors.New("disk I/O error")}, &mockScanner{})

	rec := serve(r, http.MethodGet, "/api/scan/status")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to get status", decode(t, rec)["error"])
}

func TestThumbnails(t *testing.T) {
	r, h := newTestRouter(t, &stubCatalog{}, &mockScanner{})
	require.NoError(t, afero.WriteFile(h.fs, "/thumbs/abc_clip.jpg", []byte("\xff\xd8\xffjpeg"), 0o644))
	require.NoError(t, afero.WriteFile(h.fs, "/thumbs/.hidden.jpg", []byte("x"), 0o644))
	require.NoError(t, h.fs.MkdirAll("/thumbs/sub", 0o755))

	rec := serve(r, http.MethodGet, "/thumbnails/abc_clip.jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "\xff\xd8\xffjpeg", rec.Body.String())

	for _, target := range []string{
		"/thumbnails/missing.jpg",
		"/thumbnails/",
		"/thumbnails/sub",
		"/thumbnails/.hidden.jpg",
		"/thumbnails/sub/abc_clip.jpg",
	} {
		assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, target).Code, target)
	}
}

func TestGetVersion(t *testing.T) {
	r, _ := newTestRouter(t, &stubCatalog{}, &mockScanner{})

	rec := serve(r, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := decode(t, rec)
	assert.NotEmpty(t, body["version"])
	assert.NotEmpty(t, body["goVersion"])
}
