package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"mytube/internal/logging"
	"mytube/internal/metrics"
)

// ErrThumbnailGenerationFailed is returned when every seek offset failed.
var ErrThumbnailGenerationFailed = errors.New("thumbnail generation failed")

// ThumbnailWidth is the width of generated thumbnails; height keeps the aspect ratio.
const ThumbnailWidth = 480

// thumbnailOffsets are tried in order. Clips shorter than the first offset
// have no frame there, so the second one catches them.
var thumbnailOffsets = []string{"00:00:05", "00:00:01"}

// ThumbnailGenerator extracts a single JPEG frame with ffmpeg.
type ThumbnailGenerator struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewThumbnailGenerator creates a generator that runs the ffmpeg binary at
// path. The timeout bounds each attempt separately; zero disables it.
func NewThumbnailGenerator(runner Runner, path string, timeout time.Duration) *ThumbnailGenerator {
	if path == "" {
		path = "ffmpeg"
	}
	return &ThumbnailGenerator{runner: runner, path: path, timeout: timeout}
}

// Generate writes a thumbnail of src to dst and returns dst. Both attempts
// write dst directly and rely on ffmpeg's overwrite flag. An attempt counts
// only if ffmpeg exits zero and dst decodes as an image. After a final
// failure dst is removed.
func (g *ThumbnailGenerator) Generate(ctx context.Context, src, dst string) (string, error) {
	start := time.Now()
	defer func() { metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds()) }()

	var errs []error
	for _, offset := range thumbnailOffsets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		err := g.attempt(ctx, src, dst, offset)
		if err == nil {
			metrics.ThumbnailAttemptsTotal.WithLabelValues(offset, "success").Inc()
			metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
			logging.Debug("Thumbnail for %s extracted at %s", src, offset)
			return dst, nil
		}

		metrics.ThumbnailAttemptsTotal.WithLabelValues(offset, "error").Inc()
		logging.Debug("Thumbnail attempt at %s failed for %s: %v", offset, src, err)
		errs = append(errs, fmt.Errorf("offset %s: %w", offset, err))
	}

	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to remove partial thumbnail %s: %v", dst, err)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
	return "", fmt.Errorf("%w for %s: %w", ErrThumbnailGenerationFailed, src, errors.Join(errs...))
}

func (g *ThumbnailGenerator) attempt(ctx context.Context, src, dst, offset string) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	_, stderr, err := g.runner.Run(ctx, g.path,
		"-y",
		"-ss", offset,
		"-i", src,
		"-vframes", "1",
		"-vf", "scale="+strconv.Itoa(ThumbnailWidth)+":-1",
		dst,
	)
	if err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, lastLine(stderr))
	}

	// ffmpeg exits zero without writing a frame when the seek lands past the end.
	if _, err := imaging.Open(dst); err != nil {
		return fmt.Errorf("no decodable frame written: %w", err)
	}
	return nil
}

// ThumbnailName returns a collision-free file name for a thumbnail of src.
func ThumbnailName(src string) string {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return uuid.NewString() + "_" + SanitizeFilename(stem) + ".jpg"
}

func lastLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
