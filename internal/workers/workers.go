package workers

import (
	"runtime"
)

// Count returns the number of workers for a task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// A positive configured value wins, capped by limit. Otherwise the count is
// GOMAXPROCS scaled by multiplier:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks such as probing files over a network mount
//
// Use 0 for no limit.
func Count(configured int, multiplier float64, limit int) int {
	if configured > 0 {
		if limit > 0 && configured > limit {
			return limit
		}
		return configured
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU) unless
// configured overrides it. The limit caps the result.
func ForIO(configured, limit int) int {
	return Count(configured, 2.0, limit)
}
