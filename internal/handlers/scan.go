package handlers

import (
	"net/http"
	"strconv"

	"mytube/internal/indexer"
	"mytube/internal/logging"
)

// ScanStatusResponse reports catalog counts and the state of the scanner.
type ScanStatusResponse struct {
	Channels  int                     `json:"channels"`
	Videos    int                     `json:"videos"`
	MediaPath string                  `json:"media_path"`
	Scanning  bool                    `json:"scanning"`
	LastScan  *indexer.ScanStatistics `json:"last_scan,omitempty"`
}

// CleanupResponse reports what a reconciliation pass removed.
type CleanupResponse struct {
	Message         string   `json:"message"`
	RemovedVideos   int      `json:"removed_videos"`
	RemovedChannels int      `json:"removed_channels"`
	Errors          []string `json:"errors,omitempty"`
}

// TriggerScan starts a scan in the background. With ?wait=true it runs the
// scan within the request and returns its statistics.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		stats := h.scanner.ScanAndIndex(r.Context())
		writeJSONStatus(w, http.StatusOK, stats)
		return
	}

	if !h.scanner.TriggerScan() {
		writeJSONStatus(w, http.StatusOK, map[string]string{
			"status":  "already_running",
			"message": "A media scan is already in progress",
		})
		return
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "Media scan started",
	})
}

// Cleanup removes videos whose files are gone, then empty channels.
func (h *Handlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.scanner.Reconcile(r.Context())
	if err != nil {
		logging.Error("Error during cleanup: %v", err)
		writeJSONError(w, "Failed to cleanup", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusOK, CleanupResponse{
		Message:         "Cleanup completed",
		RemovedVideos:   res.RemovedVideos,
		RemovedChannels: res.RemovedChannels,
		Errors:          res.Errors,
	})
}

// ScanStatus returns catalog counts, the media path and the last scan.
func (h *Handlers) ScanStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.catalog.CatalogCounts(r.Context())
	if err != nil {
		logging.Error("Error getting scan status: %v", err)
		writeJSONError(w, "Failed to get status", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusOK, ScanStatusResponse{
		Channels:  counts.Channels,
		Videos:    counts.Videos,
		MediaPath: h.scanner.MediaDir(),
		Scanning:  h.scanner.IsScanning(),
		LastScan:  h.scanner.LastStats(),
	})
}
