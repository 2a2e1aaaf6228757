package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 5 * time.Second

// stubTrigger refuses the first refusals calls, then accepts.
type stubTrigger struct {
	mu       sync.Mutex
	refusals int
	calls    int
	started  int
}

func (s *stubTrigger) TriggerScan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.refusals {
		return false
	}
	s.started++
	return true
}

func (s *stubTrigger) counts() (calls, started int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.started
}

func startWatcher(t *testing.T, root string, trigger Trigger) *clockwork.FakeClock {
	t.Helper()
	clock := clockwork.NewFakeClock()
	w, err := NewWatcher(root, testDebounce, trigger, clock)
	require.NoError(t, err)
	w.Start()
	t.Cleanup(w.Stop)
	return clock
}

// waitForTimer blocks until the watcher has armed its debounce timer.
func waitForTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "debounce timer was never armed")
	// Let the rest of the event burst drain before the clock moves.
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherDebouncesIntoOneScan(t *testing.T) {
	root := t.TempDir()
	trigger := &stubTrigger{}
	clock := startWatcher(t, root, trigger)

	writeTree(t, root, "a.mp4", "b.mp4")
	waitForTimer(t, clock)

	clock.Advance(testDebounce - time.Second)
	calls, _ := trigger.counts()
	assert.Zero(t, calls, "no scan before the tree is quiet")

	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		_, started := trigger.counts()
		return started == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherRetriesWhenScanRunning(t *testing.T) {
	root := t.TempDir()
	trigger := &stubTrigger{refusals: 1}
	clock := startWatcher(t, root, trigger)

	writeTree(t, root, "a.mp4")
	waitForTimer(t, clock)
	clock.Advance(testDebounce)

	require.Eventually(t, func() bool {
		calls, _ := trigger.counts()
		return calls == 1
	}, 5*time.Second, 10*time.Millisecond)

	waitForTimer(t, clock)
	clock.Advance(testDebounce)
	require.Eventually(t, func() bool {
		_, started := trigger.counts()
		return started == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	trigger := &stubTrigger{}
	clock := startWatcher(t, root, trigger)

	sub := filepath.Join(root, "NewChannel")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitForTimer(t, clock)
	clock.Advance(testDebounce)
	require.Eventually(t, func() bool {
		_, started := trigger.counts()
		return started == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The new directory is now watched, so a file inside it schedules a scan.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(sub, "clip.mp4"), []byte("x"), 0o644)
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		return clock.BlockUntilContext(ctx, 1) == nil
	}, 5*time.Second, 10*time.Millisecond)
	clock.Advance(testDebounce)
	require.Eventually(t, func() bool {
		_, started := trigger.counts()
		return started == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherRelevantEvents(t *testing.T) {
	w := &Watcher{root: "/media"}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"create", fsnotify.Event{Name: "/media/Show/a.mp4", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "/media/Show", Op: fsnotify.Remove}, true},
		{"write", fsnotify.Event{Name: "/media/a.mp4", Op: fsnotify.Write}, true},
		{"chmod only", fsnotify.Event{Name: "/media/a.mp4", Op: fsnotify.Chmod}, false},
		{"dot file", fsnotify.Event{Name: "/media/Show/.a.mp4", Op: fsnotify.Create}, true},
		{"inside dot dir", fsnotify.Event{Name: "/media/.Archive/a.mp4", Op: fsnotify.Create}, true},
		{"outside root", fsnotify.Event{Name: "/other/a.mp4", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
}
