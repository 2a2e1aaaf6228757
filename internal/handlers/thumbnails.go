package handlers

import (
	"errors"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"mytube/internal/filesystem"
	"mytube/internal/logging"
	"mytube/internal/mediatypes"
)

// ThumbnailHandler serves files from the thumbnail directory. Only plain
// file names are accepted, so directory listings and traversal are refused.
func (h *Handlers) ThumbnailHandler() http.Handler {
	root := afero.NewBasePathFs(h.fs, h.thumbnailDir)
	files := http.StripPrefix(h.thumbnailURL, http.FileServer(afero.NewHttpFs(root)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, h.thumbnailURL+"/")
		if name == "" || strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
			http.NotFound(w, r)
			return
		}

		info, err := filesystem.StatWithRetry(root, "/"+name, filesystem.DefaultRetryConfig())
		if errors.Is(err, os.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			logging.Error("Failed to stat thumbnail %s: %v", name, err)
			http.Error(w, "Failed to access thumbnail", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", mediatypes.GetMimeType(path.Ext(name)))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}
