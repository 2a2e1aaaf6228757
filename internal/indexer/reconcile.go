package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mytube/internal/filesystem"
	"mytube/internal/logging"
	"mytube/internal/metrics"
)

// ReconcileResult reports what a cleanup pass removed.
type ReconcileResult struct {
	RemovedVideos   int      `json:"removedVideos"`
	RemovedChannels int      `json:"removedChannels"`
	Errors          []string `json:"errors"`
}

// CleanupMissingVideos deletes catalog entries whose file is confirmed
// missing. A failed existence check keeps the record. It returns the number
// of records deleted. Like Reconcile, it waits for a running scan.
func (s *Scanner) CleanupMissingVideos(ctx context.Context) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.release()
	removed, _, err := s.cleanupMissingVideos(ctx)
	return removed, err
}

func (s *Scanner) cleanupMissingVideos(ctx context.Context) (int, []string, error) {
	files, err := s.store.ListVideoFiles(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list videos: %w", err)
	}

	var (
		removed  int
		problems []string
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, problems, err
		}

		exists, err := filesystem.Exists(s.fs, f.FilePath, s.cfg.Retry)
		if err != nil {
			logging.Warn("Could not check %s, keeping record: %v", f.FilePath, err)
			metrics.ReconcileCheckErrors.Inc()
			problems = append(problems, fmt.Sprintf("check %s: %v", f.FilePath, err))
			continue
		}
		if exists {
			continue
		}

		deleted, err := s.store.DeleteVideo(ctx, f.ID)
		if err != nil {
			logging.Error("Failed to remove video %s: %v", f.FilePath, err)
			problems = append(problems, fmt.Sprintf("delete %s: %v", f.FilePath, err))
			continue
		}
		if !deleted {
			continue
		}

		removed++
		metrics.ReconcileRemovedTotal.WithLabelValues("video").Inc()
		logging.Info("Removed missing video: %s", f.FilePath)

		if thumb := s.thumbnailFile(f.ThumbnailPath); thumb != "" {
			s.removeFile(thumb)
		}
	}

	return removed, problems, nil
}

// CleanupEmptyChannels deletes channels that no longer hold any video. It
// waits for a running scan, which may have created a channel not yet given
// its first video.
func (s *Scanner) CleanupEmptyChannels(ctx context.Context) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.release()
	return s.cleanupEmptyChannels(ctx)
}

func (s *Scanner) cleanupEmptyChannels(ctx context.Context) (int, error) {
	n, err := s.store.DeleteEmptyChannels(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete empty channels: %w", err)
	}
	if n > 0 {
		metrics.ReconcileRemovedTotal.WithLabelValues("channel").Add(float64(n))
		logging.Info("Removed %d empty channels", n)
	}
	return n, nil
}

// Reconcile removes missing videos and then empty channels. It waits for a
// running scan to finish first.
func (s *Scanner) Reconcile(ctx context.Context) (ReconcileResult, error) {
	if err := s.acquire(ctx); err != nil {
		return ReconcileResult{Errors: []string{}}, err
	}
	defer s.release()
	return s.reconcile(ctx)
}

// reconcile expects the caller to hold the run lock.
func (s *Scanner) reconcile(ctx context.Context) (ReconcileResult, error) {
	res := ReconcileResult{Errors: []string{}}

	removed, problems, err := s.cleanupMissingVideos(ctx)
	res.RemovedVideos = removed
	res.Errors = append(res.Errors, problems...)
	if err != nil {
		return res, err
	}

	channels, err := s.cleanupEmptyChannels(ctx)
	res.RemovedChannels = channels
	if err != nil {
		return res, err
	}

	logging.Info("Cleanup finished. Videos removed: %d, Channels removed: %d, Errors: %d",
		res.RemovedVideos, res.RemovedChannels, len(res.Errors))
	return res, nil
}

// thumbnailFile maps a stored thumbnail URL back to its file, or "" when the
// URL is not one this scanner produced.
func (s *Scanner) thumbnailFile(url *string) string {
	if url == nil || *url == "" || s.cfg.ThumbnailDir == "" {
		return ""
	}
	prefix := strings.TrimSuffix(s.cfg.ThumbnailURLPrefix, "/") + "/"
	if !strings.HasPrefix(*url, prefix) {
		return ""
	}
	name := strings.TrimPrefix(*url, prefix)
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return ""
	}
	return filepath.Join(s.cfg.ThumbnailDir, name)
}
