package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mytube/internal/database"
	"mytube/internal/metrics"
)

// deniedFs fails Stat with EACCES for one path.
type deniedFs struct {
	afero.Fs
	denied string
}

func (d *deniedFs) Stat(name string) (os.FileInfo, error) {
	if name == d.denied {
		return nil, &os.PathError{Op: "stat", Path: name, Err: syscall.EACCES}
	}
	return d.Fs.Stat(name)
}

func insertVideo(t *testing.T, db *database.Database, channelID int64, path, thumb string) {
	t.Helper()
	v := &database.Video{ChannelID: channelID, Title: filepath.Base(path), FilePath: path, PublishedAt: publishTime}
	if thumb != "" {
		v.ThumbnailPath = &thumb
	}
	created, err := db.InsertVideo(context.Background(), v)
	require.NoError(t, err)
	require.True(t, created)
}

func TestReconcileWithMemFs(t *testing.T) {
	mem := afero.NewMemMapFs()
	fs := &deniedFs{Fs: mem, denied: "/media/Nfs/unreachable.mp4"}
	f := newScannerFixture(t, 1, WithFs(fs))
	f.scanner.cfg.ThumbnailDir = "/thumbs"
	ctx := context.Background()

	for _, p := range []string{"/media/Kept/here.mp4", "/thumbs/here.jpg", "/thumbs/gone.jpg", "/thumbs/other.jpg"} {
		require.NoError(t, afero.WriteFile(mem, p, []byte("x"), 0o644))
	}

	kept, _, err := f.db.CreateChannel(ctx, "Kept", "/media/Kept", "Channel for Kept")
	require.NoError(t, err)
	emptied, _, err := f.db.CreateChannel(ctx, "Emptied", "/media/Emptied", "Channel for Emptied")
	require.NoError(t, err)
	nfs, _, err := f.db.CreateChannel(ctx, "Nfs", "/media/Nfs", "Channel for Nfs")
	require.NoError(t, err)

	insertVideo(t, f.db, kept.ID, "/media/Kept/here.mp4", "/thumbnails/here.jpg")
	insertVideo(t, f.db, kept.ID, "/media/Kept/gone.mp4", "/thumbnails/gone.jpg")
	insertVideo(t, f.db, emptied.ID, "/media/Emptied/old.mp4", "/elsewhere/other.jpg")
	insertVideo(t, f.db, nfs.ID, "/media/Nfs/unreachable.mp4", "")

	videosBefore := testutil.ToFloat64(metrics.ReconcileRemovedTotal.WithLabelValues("video"))
	checkErrorsBefore := testutil.ToFloat64(metrics.ReconcileCheckErrors)

	res, err := f.scanner.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.RemovedVideos)
	assert.Equal(t, 1, res.RemovedChannels, "only the channel left without videos is removed")
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unreachable.mp4")

	_, err = f.db.GetVideoByPath(ctx, "/media/Nfs/unreachable.mp4")
	assert.NoError(t, err, "an inconclusive check keeps the record")
	_, err = f.db.GetVideoByPath(ctx, "/media/Kept/here.mp4")
	assert.NoError(t, err)
	_, err = f.db.GetVideoByPath(ctx, "/media/Kept/gone.mp4")
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, err = f.db.GetChannelByFolderPath(ctx, "/media/Emptied")
	assert.ErrorIs(t, err, database.ErrNotFound)

	exists, _ := afero.Exists(mem, "/thumbs/gone.jpg")
	assert.False(t, exists, "thumbnail of a removed video is deleted")
	exists, _ = afero.Exists(mem, "/thumbs/here.jpg")
	assert.True(t, exists)
	exists, _ = afero.Exists(mem, "/thumbs/other.jpg")
	assert.True(t, exists, "thumbnails outside the URL prefix are left alone")

	assert.Equal(t, videosBefore+2, testutil.ToFloat64(metrics.ReconcileRemovedTotal.WithLabelValues("video")))
	assert.Equal(t, checkErrorsBefore+1, testutil.ToFloat64(metrics.ReconcileCheckErrors))
}

func TestCleanupOperations(t *testing.T) {
	f := newScannerFixture(t, 1, WithFs(afero.NewMemMapFs()))
	ctx := context.Background()

	ch, _, err := f.db.CreateChannel(ctx, "Show", "/media/Show", "Channel for Show")
	require.NoError(t, err)
	insertVideo(t, f.db, ch.ID, "/media/Show/a.mp4", "")

	// Empty-channel cleanup alone keeps a channel that still has records.
	n, err := f.scanner.CleanupEmptyChannels(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	removed, err := f.scanner.CleanupMissingVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err = f.scanner.CleanupEmptyChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, err = f.scanner.CleanupMissingVideos(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "nothing left to remove")
}

func TestCleanupWaitsForRunningScan(t *testing.T) {
	f := newScannerFixture(t, 1)
	writeTree(t, f.mediaDir, "Show/a.mp4")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.thumbs.hook = func(context.Context) {
		once.Do(func() { close(entered) })
		<-release
	}

	done := make(chan ScanStatistics, 1)
	go func() { done <- f.scanner.ScanAndIndex(context.Background()) }()
	<-entered

	// The channel exists but has no video yet.
	showPath := filepath.Join(f.mediaDir, "Show")
	_, err := f.db.GetChannelByFolderPath(context.Background(), showPath)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	n, err := f.scanner.CleanupEmptyChannels(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, n)
	_, err = f.scanner.CleanupMissingVideos(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	assert.Equal(t, 1, (<-done).Videos)

	n, err = f.scanner.CleanupEmptyChannels(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = f.db.GetChannelByFolderPath(context.Background(), showPath)
	assert.NoError(t, err, "channel survives with its first video")
}

func TestReconcileCancelled(t *testing.T) {
	f := newScannerFixture(t, 1, WithFs(afero.NewMemMapFs()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.scanner.Reconcile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThumbnailFile(t *testing.T) {
	s := &Scanner{cfg: Config{ThumbnailDir: "/thumbs", ThumbnailURLPrefix: "/thumbnails"}}
	str := func(s string) *string { return &s }

	tests := []struct {
		name string
		url  *string
		want string
	}{
		{"nil", nil, ""},
		{"empty", str(""), ""},
		{"owned", str("/thumbnails/abc_clip.jpg"), filepath.Join("/thumbs", "abc_clip.jpg")},
		{"foreign prefix", str("/static/abc.jpg"), ""},
		{"prefix only", str("/thumbnails/"), ""},
		{"traversal", str("/thumbnails/../../etc/passwd"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.thumbnailFile(tt.url))
		})
	}
}
