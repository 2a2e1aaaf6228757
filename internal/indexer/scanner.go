package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"mytube/internal/database"
	"mytube/internal/filesystem"
	"mytube/internal/logging"
	"mytube/internal/media"
	"mytube/internal/metrics"
)

// UncategorizedChannel holds videos found directly in the media root.
const UncategorizedChannel = "Uncategorized"

// Store is the part of the catalog the scanner reads and writes.
type Store interface {
	GetChannelByFolderPath(ctx context.Context, folderPath string) (*database.Channel, error)
	CreateChannel(ctx context.Context, name, folderPath, description string) (*database.Channel, bool, error)
	VideoExistsByPath(ctx context.Context, filePath string) (bool, error)
	InsertVideo(ctx context.Context, v *database.Video) (bool, error)
	ListVideoFiles(ctx context.Context) ([]database.VideoFile, error)
	DeleteVideo(ctx context.Context, id int64) (bool, error)
	DeleteEmptyChannels(ctx context.Context) (int, error)
}

// MetadataProber extracts technical metadata from a video file.
type MetadataProber interface {
	Probe(ctx context.Context, path string) (*media.VideoMetadata, error)
}

// Thumbnailer writes a thumbnail of src to dst.
type Thumbnailer interface {
	Generate(ctx context.Context, src, dst string) (string, error)
}

// Config controls a Scanner.
type Config struct {
	MediaDir     string
	ThumbnailDir string
	// ThumbnailURLPrefix is prepended to thumbnail file names in video records.
	ThumbnailURLPrefix string
	// Workers bounds the files indexed concurrently within one channel.
	Workers          int
	ScanOnStartup    bool
	Interval         time.Duration
	CleanupAfterScan bool
	Retry            filesystem.RetryConfig
}

// ScanStatistics summarizes one scan. Errors holds non-fatal problems.
type ScanStatistics struct {
	Channels   int       `json:"channels"`
	Videos     int       `json:"videos"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration returns how long the scan took.
func (s ScanStatistics) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// scanRun accumulates statistics from concurrent workers.
type scanRun struct {
	channels atomic.Int64
	videos   atomic.Int64
	skipped  atomic.Int64
	mu       sync.Mutex
	errors   []string
}

func (r *scanRun) addError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	metrics.ScanErrors.Inc()
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock sets the clock used for publication timestamps and the periodic scan.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scanner) { s.clock = clock }
}

// WithFs sets the filesystem used for existence checks and thumbnail cleanup.
func WithFs(fs afero.Fs) Option {
	return func(s *Scanner) { s.fs = fs }
}

// Gate holds back file work, for example while memory is short.
type Gate interface {
	Wait(ctx context.Context) error
}

// WithGate makes every scan worker pass through g before indexing a file.
func WithGate(g Gate) Option {
	return func(s *Scanner) { s.gate = g }
}

// WithProgress registers fn to be called once for every video file a scan
// has finished with, whether it was added, skipped or failed.
func WithProgress(fn func(path string)) Option {
	return func(s *Scanner) { s.progress = fn }
}

// Scanner discovers videos under the media root, indexes new ones and
// reconciles the catalog with the filesystem.
//
// Scans are single-flight: concurrent ScanAndIndex calls share one run.
// Scans and reconciliation never overlap.
type Scanner struct {
	cfg    Config
	store  Store
	prober MetadataProber
	thumbs Thumbnailer
	walker *Walker
	fs     afero.Fs
	clock  clockwork.Clock

	progress func(path string)
	gate     Gate

	group singleflight.Group
	// runSem serializes scans and reconciliation.
	runSem chan struct{}
	// waiters counts ScanAndIndex callers; cancelRun stops the shared scan.
	waiters   int
	cancelRun context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu                sync.Mutex
	scanning          bool
	lastStats         *ScanStatistics
	initialScanDone   bool
	initialScanErrors int
	startTime         time.Time
}

// New creates a Scanner.
func New(cfg Config, store Store, prober MetadataProber, thumbs Thumbnailer, opts ...Option) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scanner{
		cfg:    cfg,
		store:  store,
		prober: prober,
		thumbs: thumbs,
		walker: NewWalker(cfg.Retry, cfg.Workers),
		fs:     afero.NewOsFs(),
		clock:  clockwork.NewRealClock(),
		runSem: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startTime = s.clock.Now()
	return s
}

// EnsureChannel returns the channel keyed by folderPath, creating it first
// if needed.
func (s *Scanner) EnsureChannel(ctx context.Context, name, folderPath string) (*database.Channel, error) {
	ch, err := s.store.GetChannelByFolderPath(ctx, folderPath)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("ensure channel %s: %w", name, err)
	}

	ch, created, err := s.store.CreateChannel(ctx, name, folderPath, "Channel for "+name)
	if err != nil {
		return nil, fmt.Errorf("ensure channel %s: %w", name, err)
	}
	if created {
		logging.Info("Created channel: %s", name)
	}
	return ch, nil
}

// IndexVideo catalogs filePath under channelID. It returns true only when
// a new record was created. Metadata and thumbnail failures are logged and
// the video is stored without them.
func (s *Scanner) IndexVideo(ctx context.Context, channelID int64, filePath string) bool {
	added, _ := s.indexVideo(ctx, channelID, filePath, nil)
	return added
}

// indexVideo returns whether a row was created and whether the file was
// skipped as already catalogued. Problems are reported to run when non-nil.
func (s *Scanner) indexVideo(ctx context.Context, channelID int64, filePath string, run *scanRun) (added, skipped bool) {
	report := func(format string, args ...any) {
		if run != nil {
			run.addError(format, args...)
		}
	}

	exists, err := s.store.VideoExistsByPath(ctx, filePath)
	if err != nil {
		logging.Error("Error checking video %s: %v", filePath, err)
		report("index %s: %v", filePath, err)
		return false, false
	}
	if exists {
		logging.Debug("Video already indexed: %s", filePath)
		return false, true
	}

	meta, err := s.prober.Probe(ctx, filePath)
	if err != nil {
		logging.Warn("Could not get metadata for %s: %v", filePath, err)
		report("metadata %s: %v", filePath, err)
		meta = &media.VideoMetadata{}
		if info, statErr := s.fs.Stat(filePath); statErr == nil {
			meta.FileSize = info.Size()
		}
	}

	thumbName := media.ThumbnailName(filePath)
	thumbFile := filepath.Join(s.cfg.ThumbnailDir, thumbName)
	var thumbURL *string
	if _, err := s.thumbs.Generate(ctx, filePath, thumbFile); err != nil {
		logging.Warn("Could not generate thumbnail for %s: %v", filePath, err)
		report("thumbnail %s: %v", filePath, err)
	} else {
		u := path.Join(s.cfg.ThumbnailURLPrefix, thumbName)
		thumbURL = &u
	}

	base := filepath.Base(filePath)
	video := &database.Video{
		ChannelID:     channelID,
		Title:         media.FormatTitle(strings.TrimSuffix(base, filepath.Ext(base))),
		FilePath:      filePath,
		ThumbnailPath: thumbURL,
		Duration:      meta.Duration,
		FileSize:      meta.FileSize,
		Resolution:    meta.Resolution,
		Codec:         meta.Codec,
		PublishedAt:   s.clock.Now(),
	}

	created, err := s.store.InsertVideo(ctx, video)
	if err != nil {
		logging.Error("Error indexing video %s: %v", filePath, err)
		report("index %s: %v", filePath, err)
	}
	if !created && thumbURL != nil {
		// Lost an insert race or failed; the thumbnail has no owner.
		s.removeFile(thumbFile)
	}
	if err != nil || !created {
		return false, err == nil
	}

	logging.Info("Indexed video: %s", video.Title)
	return true, false
}

// ScanAndIndex walks the media root and indexes every video not yet in the
// catalog. It always returns statistics; an inaccessible root yields zero
// counts and a single error. Calls made while a scan is running wait for it
// and receive its statistics.
//
// The scan runs under the Scanner's own context. ctx only bounds how long
// the caller waits; the scan is cancelled once every waiting caller is gone
// or Stop is called.
func (s *Scanner) ScanAndIndex(ctx context.Context) ScanStatistics {
	s.mu.Lock()
	s.waiters++
	s.mu.Unlock()

	ch := s.group.DoChan("scan", func() (any, error) {
		runCtx, cancel := context.WithCancel(s.ctx)
		defer cancel()
		s.mu.Lock()
		s.cancelRun = cancel
		if s.waiters == 0 {
			cancel()
		}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.cancelRun = nil
			s.mu.Unlock()
		}()
		return s.runScan(runCtx), nil
	})

	select {
	case res := <-ch:
		s.leave(false)
		if res.Shared {
			logging.Debug("Scan request joined a running scan")
		}
		return res.Val.(ScanStatistics)
	case <-ctx.Done():
	}

	if s.leave(true) {
		// The scan is cancelled; wait for what it got done.
		return (<-ch).Val.(ScanStatistics)
	}
	logging.Debug("Stopped waiting for the running scan: %v", ctx.Err())
	return ScanStatistics{Errors: []string{fmt.Sprintf("scan cancelled: %v", ctx.Err())}}
}

// leave unregisters a ScanAndIndex caller. When abandon is set and no other
// caller waits, the running scan is cancelled and leave returns true.
func (s *Scanner) leave(abandon bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters--
	if !abandon || s.waiters > 0 {
		return false
	}
	if s.cancelRun != nil {
		s.cancelRun()
	}
	return true
}

// TriggerScan starts a scan in the background. It returns false without
// doing anything when a scan is already running.
func (s *Scanner) TriggerScan() bool {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		metrics.ScanTriggersTotal.WithLabelValues("already_running").Inc()
		return false
	}
	// Claimed here so a second trigger is refused before the goroutine runs.
	s.scanning = true
	s.mu.Unlock()
	metrics.ScanTriggersTotal.WithLabelValues("started").Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.ScanAndIndex(s.ctx)
	}()
	return true
}

func (s *Scanner) runScan(ctx context.Context) ScanStatistics {
	s.setScanning(true)
	defer s.setScanning(false)

	metrics.ScanIsRunning.Set(1)
	defer metrics.ScanIsRunning.Set(0)

	run := &scanRun{}
	started := s.clock.Now()

	if err := s.acquire(ctx); err != nil {
		run.addError("scan cancelled before start: %v", err)
		return s.finishScan(run, started, "cancelled")
	}
	defer s.release()

	logging.Info("Starting media scan at: %s", s.cfg.MediaDir)

	layout, err := s.walker.Discover(ctx, s.cfg.MediaDir)
	if errors.Is(err, ErrMediaRootInaccessible) {
		logging.Error("Media path not accessible: %v", err)
		run.addError("%v", err)
		return s.finishScan(run, started, "aborted")
	}
	if err != nil {
		run.addError("scan cancelled: %v", err)
		return s.finishScan(run, started, "cancelled")
	}
	for _, e := range layout.Errors {
		run.addError("%s", e)
	}

	if err := os.MkdirAll(s.cfg.ThumbnailDir, 0o755); err != nil {
		logging.Error("Failed to create thumbnail directory %s: %v", s.cfg.ThumbnailDir, err)
		run.addError("create thumbnail directory: %v", err)
	}

	for _, ch := range layout.Channels {
		s.scanChannel(ctx, run, ch.Name, ch.Path, ch.Videos)
	}
	if len(layout.RootVideos) > 0 {
		s.scanChannel(ctx, run, UncategorizedChannel, layout.Root, layout.RootVideos)
	}

	if err := ctx.Err(); err != nil {
		run.addError("scan cancelled: %v", err)
		return s.finishScan(run, started, "cancelled")
	}

	if s.cfg.CleanupAfterScan {
		if _, err := s.reconcile(ctx); err != nil {
			run.addError("cleanup: %v", err)
		}
	}

	return s.finishScan(run, started, "completed")
}

// scanChannel ensures the channel and indexes its videos with up to
// cfg.Workers files in flight.
func (s *Scanner) scanChannel(ctx context.Context, run *scanRun, name, folderPath string, videos []string) {
	if ctx.Err() != nil {
		return
	}

	ch, err := s.EnsureChannel(ctx, name, folderPath)
	if err != nil {
		logging.Error("Error ensuring channel %s: %v", name, err)
		run.addError("%v", err)
		return
	}
	run.channels.Add(1)
	metrics.ScanChannelsTouched.Inc()

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, file := range videos {
		if ctx.Err() != nil {
			break
		}
		if s.gate != nil {
			if err := s.gate.Wait(ctx); err != nil {
				break
			}
		}
		g.Go(func() error {
			added, skipped := s.indexVideo(ctx, ch.ID, file, run)
			if s.progress != nil {
				s.progress(file)
			}
			switch {
			case added:
				run.videos.Add(1)
				metrics.ScanVideosIndexed.Inc()
			case skipped:
				run.skipped.Add(1)
				metrics.ScanVideosSkipped.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scanner) finishScan(run *scanRun, started time.Time, status string) ScanStatistics {
	run.mu.Lock()
	errs := append([]string{}, run.errors...)
	run.mu.Unlock()

	stats := ScanStatistics{
		Channels:   int(run.channels.Load()),
		Videos:     int(run.videos.Load()),
		Skipped:    int(run.skipped.Load()),
		Errors:     errs,
		StartedAt:  started,
		FinishedAt: s.clock.Now(),
	}

	metrics.ScanRunsTotal.WithLabelValues(status).Inc()
	metrics.ScanLastRunTimestamp.Set(float64(stats.FinishedAt.Unix()))
	metrics.ScanLastRunDuration.Set(stats.Duration().Seconds())

	s.mu.Lock()
	s.lastStats = &stats
	s.mu.Unlock()

	logging.Info("Media scan %s. Channels: %d, Videos: %d, Skipped: %d, Errors: %d, Duration: %v",
		status, stats.Channels, stats.Videos, stats.Skipped, len(stats.Errors), stats.Duration())
	return stats
}

// acquire takes the run lock shared by scans and reconciliation.
func (s *Scanner) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.runSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scanner) release() {
	<-s.runSem
}

func (s *Scanner) setScanning(v bool) {
	s.mu.Lock()
	s.scanning = v
	s.mu.Unlock()
}

// IsScanning reports whether a scan is in progress.
func (s *Scanner) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// LastStats returns the statistics of the most recent scan, or nil.
func (s *Scanner) LastStats() *ScanStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStats == nil {
		return nil
	}
	stats := *s.lastStats
	return &stats
}

// MediaDir returns the configured media root.
func (s *Scanner) MediaDir() string {
	return s.cfg.MediaDir
}

func (s *Scanner) removeFile(name string) {
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to remove %s: %v", name, err)
	}
}
