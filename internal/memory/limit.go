package memory

import (
	"math"
	"runtime/debug"
	"strconv"

	"mytube/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for ffprobe and ffmpeg child processes.
const DefaultMemoryRatio = 0.75

// LimitResult describes how GOMEMLIMIT was resolved.
type LimitResult struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureLimit sets the runtime memory limit from MEMORY_LIMIT (bytes,
// typically from the Kubernetes Downward API) scaled by MEMORY_RATIO.
// An explicit GOMEMLIMIT wins. Call it before significant allocations.
func ConfigureLimit(getenv func(string) string) LimitResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		res := LimitResult{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			res.Configured = true
			res.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return res
	}

	raw := getenv("MEMORY_LIMIT")
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT left unset")
		return LimitResult{Source: "none"}
	}
	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Invalid MEMORY_LIMIT %q, GOMEMLIMIT left unset", raw)
		return LimitResult{Source: "none"}
	}

	ratio := parseRatio(getenv("MEMORY_RATIO"))
	limit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(limit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		FormatBytes(limit), ratio*100, FormatBytes(containerLimit))

	return LimitResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     limit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	r, err := strconv.ParseFloat(raw, 64)
	if err != nil || r <= 0 || r > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return r
}

// FormatBytes renders b with binary units, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
