package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"mytube/internal/logging"
	"mytube/internal/metrics"
)

// Trigger starts a scan, returning false when one is already running.
type Trigger interface {
	TriggerScan() bool
}

// Watcher turns filesystem events under the media root into scans. Bursts
// of events are collapsed into a single scan once the tree has been quiet
// for the debounce period.
type Watcher struct {
	root     string
	debounce time.Duration
	trigger  Trigger
	clock    clockwork.Clock
	watcher  *fsnotify.Watcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a Watcher over root and every directory below it.
func NewWatcher(root string, debounce time.Duration, trigger Trigger, clock clockwork.Clock) (*Watcher, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		trigger:  trigger,
		clock:    clock,
		watcher:  fw,
	}
	n := w.addTree(root)
	metrics.WatchedDirectories.Set(float64(n))
	logging.Debug("Watcher started, watching %d directories", n)
	return w, nil
}

// Start processes events until Stop is called.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop ends event processing and releases the underlying watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if err := w.watcher.Close(); err != nil {
		logging.Error("failed to close file watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var (
		timer  clockwork.Timer
		timerC <-chan time.Time
	)
	arm := func() {
		if timer == nil {
			timer = w.clock.NewTimer(w.debounce)
		} else {
			timer.Stop()
			timer.Reset(w.debounce)
		}
		timerC = timer.Chan()
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.handleEvent(event) {
				arm()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-timerC:
			timerC = nil
			if w.trigger.TriggerScan() {
				logging.Info("Filesystem changes detected, scan started")
			} else {
				logging.Debug("Scan already running, retrying after %v", w.debounce)
				arm()
			}

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent records the event, watches new directories, and reports
// whether the event should schedule a scan.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if !w.relevant(event) {
		return false
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			n := w.addTree(event.Name)
			metrics.WatchedDirectories.Add(float64(n))
		}
	}
	return true
}

// relevant filters out chmod-only events and paths outside the root.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || event.Op == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(filepath.ToSlash(rel), "../")
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) int {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("failed to walk %s for watcher: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Error("failed to walk media directory for watcher: %v", err)
		metrics.WatcherErrors.Inc()
	}
	return count
}

func eventType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return "unknown"
	}
}
