package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/afero"

	"mytube/internal/filesystem"
	"mytube/internal/logging"
	"mytube/internal/mediatypes"
)

// ErrMediaRootInaccessible aborts a scan before any work is done.
var ErrMediaRootInaccessible = errors.New("media root inaccessible")

// ChannelDir is a top-level directory of the media root and every video
// found anywhere beneath it.
type ChannelDir struct {
	Name   string
	Path   string
	Videos []string
}

// Layout is the classified content of a media root.
type Layout struct {
	Root string
	// Channels are sorted by name, and their videos by path.
	Channels []ChannelDir
	// RootVideos sit directly in Root and belong to the Uncategorized channel.
	RootVideos []string
	// Errors are directories that could not be read. They do not stop the walk.
	Errors []string
}

// VideoCount returns the number of videos in the layout.
func (l *Layout) VideoCount() int {
	n := len(l.RootVideos)
	for _, c := range l.Channels {
		n += len(c.Videos)
	}
	return n
}

// Walker classifies the media tree into channels and videos.
//
// Directory symlinks are not followed, so a directory is never visited
// twice. Symlinked files are included when they resolve to a regular file.
// Dot-prefixed names are treated like any other entry.
type Walker struct {
	fs         afero.Fs
	retry      filesystem.RetryConfig
	numWorkers int
}

// NewWalker creates a Walker. numWorkers bounds the fastwalk goroutines
// used inside each channel; 0 lets fastwalk choose.
func NewWalker(retry filesystem.RetryConfig, numWorkers int) *Walker {
	return &Walker{
		fs:         afero.NewOsFs(),
		retry:      retry,
		numWorkers: numWorkers,
	}
}

// Discover classifies root. It fails with ErrMediaRootInaccessible when root
// cannot be listed; every other problem is recorded in Layout.Errors.
func (w *Walker) Discover(ctx context.Context, root string) (*Layout, error) {
	info, err := filesystem.StatWithRetry(w.fs, root, w.retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMediaRootInaccessible, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMediaRootInaccessible, root)
	}

	entries, err := filesystem.ReadDirWithRetry(w.fs, root, w.retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMediaRootInaccessible, root, err)
	}

	layout := &Layout{Root: root}
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(root, name)

		switch {
		case entry.IsDir():
			layout.Channels = append(layout.Channels, ChannelDir{Name: name, Path: full})
		case w.isVideo(full, name, entry.Mode()):
			layout.RootVideos = append(layout.RootVideos, full)
		}
	}

	for i := range layout.Channels {
		if err := ctx.Err(); err != nil {
			return layout, err
		}
		ch := &layout.Channels[i]
		videos, errs := w.walkChannel(ctx, ch.Path)
		ch.Videos = videos
		layout.Errors = append(layout.Errors, errs...)
	}

	logging.Debug("Discovered %d channels and %d videos under %s",
		len(layout.Channels), layout.VideoCount(), root)
	return layout, ctx.Err()
}

// walkChannel collects every video below dir. fastwalk calls the callback
// from several goroutines.
func (w *Walker) walkChannel(ctx context.Context, dir string) ([]string, []string) {
	var (
		mu     sync.Mutex
		videos []string
		errs   []string
	)

	conf := fastwalk.Config{Follow: false, NumWorkers: w.numWorkers}
	walkErr := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logging.Warn("Error reading %s: %v", path, err)
			mu.Lock()
			errs = append(errs, fmt.Sprintf("read %s: %v", path, err))
			mu.Unlock()
			return nil
		}
		if path == dir {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if w.isVideo(path, d.Name(), d.Type()) {
			mu.Lock()
			videos = append(videos, path)
			mu.Unlock()
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
		errs = append(errs, fmt.Sprintf("walk %s: %v", dir, walkErr))
	}

	sort.Strings(videos)
	return videos, errs
}

// isVideo reports whether name has a video extension and path is, or links
// to, a regular file.
func (w *Walker) isVideo(path, name string, mode fs.FileMode) bool {
	if !mediatypes.IsVideoFile(name) {
		return false
	}
	if mode&fs.ModeSymlink == 0 {
		return mode.IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
