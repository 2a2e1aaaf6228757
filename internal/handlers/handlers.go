package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"mytube/internal/indexer"
	"mytube/internal/metrics"
)

// Scanner is the part of the indexer the API drives.
type Scanner interface {
	TriggerScan() bool
	ScanAndIndex(ctx context.Context) indexer.ScanStatistics
	Reconcile(ctx context.Context) (indexer.ReconcileResult, error)
	IsScanning() bool
	LastStats() *indexer.ScanStatistics
	GetHealthStatus() indexer.HealthStatus
	MediaDir() string
}

// Catalog is the read side of the database used by the API.
type Catalog interface {
	CatalogCounts(ctx context.Context) (metrics.Stats, error)
	Ping(ctx context.Context) error
}

// Handlers serves the HTTP API.
type Handlers struct {
	catalog      Catalog
	scanner      Scanner
	fs           afero.Fs
	thumbnailDir string
	thumbnailURL string
}

// New creates Handlers. Thumbnails in thumbnailDir are served under
// thumbnailURL.
func New(catalog Catalog, scanner Scanner, thumbnailDir, thumbnailURL string) *Handlers {
	return &Handlers{
		catalog:      catalog,
		scanner:      scanner,
		fs:           afero.NewOsFs(),
		thumbnailDir: thumbnailDir,
		thumbnailURL: thumbnailURL,
	}
}

// RegisterRoutes adds every API route to r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scan", h.TriggerScan).Methods(http.MethodPost).Name("scan")
	api.HandleFunc("/scan/cleanup", h.Cleanup).Methods(http.MethodPost).Name("scan-cleanup")
	api.HandleFunc("/scan/status", h.ScanStatus).Methods(http.MethodGet).Name("scan-status")

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead).Name("health")
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	r.PathPrefix(h.thumbnailURL + "/").Handler(h.ThumbnailHandler()).Methods(http.MethodGet, http.MethodHead)
}
