package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"mytube/internal/logging"
	"mytube/internal/metrics"
)

// ErrMetadataExtractionFailed is returned when ffprobe exits non-zero or
// its output is not valid JSON.
var ErrMetadataExtractionFailed = errors.New("metadata extraction failed")

// VideoMetadata is the technical metadata stored with a video. Nil pointers
// mean the value was not reported.
type VideoMetadata struct {
	Duration   int64   `json:"duration"`
	FileSize   int64   `json:"fileSize"`
	Resolution *string `json:"resolution"`
	Codec      *string `json:"codec"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

type probeFormat struct {
	Size     string `json:"size"`
	Duration string `json:"duration"`
}

// Prober extracts metadata with ffprobe.
type Prober struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewProber creates a Prober that runs the ffprobe binary at path. A zero
// timeout disables the per-call limit.
func NewProber(runner Runner, path string, timeout time.Duration) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{runner: runner, path: path, timeout: timeout}
}

// Probe returns the metadata of the file at path. Missing or unparseable
// fields are left at their zero value. The whole call fails only when
// ffprobe fails or its output is not JSON.
func (p *Prober) Probe(ctx context.Context, path string) (*VideoMetadata, error) {
	start := time.Now()
	defer func() { metrics.ProbeDuration.Observe(time.Since(start).Seconds()) }()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	stdout, stderr, err := p.runner.Run(ctx, p.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		metrics.ProbeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: ffprobe %s: %v: %s", ErrMetadataExtractionFailed, path, err, strings.TrimSpace(string(stderr)))
	}

	var out probeOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		metrics.ProbeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: parse ffprobe output for %s: %v", ErrMetadataExtractionFailed, path, err)
	}

	meta := &VideoMetadata{
		Duration: parseDuration(out.Format.Duration),
		FileSize: parseSize(out.Format.Size),
	}

	if meta.FileSize == 0 {
		if info, err := os.Stat(path); err == nil {
			meta.FileSize = info.Size()
		}
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width > 0 && s.Height > 0 {
			res := fmt.Sprintf("%dx%d", s.Width, s.Height)
			meta.Resolution = &res
		}
		if s.CodecName != "" {
			codec := s.CodecName
			meta.Codec = &codec
		}
		break
	}

	metrics.ProbeTotal.WithLabelValues("success").Inc()
	logging.Debug("Probed %s: duration=%ds size=%d", path, meta.Duration, meta.FileSize)
	return meta, nil
}

// parseDuration floors a seconds value such as "12.480000". Invalid,
// negative or out-of-range input yields 0.
func parseDuration(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(math.Floor(f))
}

func parseSize(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
