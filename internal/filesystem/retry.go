package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"mytube/internal/logging"
	"mytube/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	// ESTALE is errno 116 on Linux
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs op until it succeeds, fails with a non-stale error, or
// exhausts config.MaxRetries.
func withRetry[T any](name, path string, config RetryConfig, op func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err := op()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", name, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(name).Inc()
			}
			return result, nil
		}

		lastErr = err

		// Only retry on NFS stale file handle errors
		if !isNFSStaleError(err) {
			return zero, err
		}

		metrics.FilesystemStaleErrors.WithLabelValues(name).Inc()

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues(name).Inc()
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				name, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", name, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(name).Inc()
	return zero, lastErr
}

// StatWithRetry performs fs.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(fs afero.Fs, path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", path, config, func() (os.FileInfo, error) {
		return fs.Stat(path)
	})
}

// ReadDirWithRetry lists a directory with retry logic for NFS stale file handle errors.
// Entries are sorted by name.
func ReadDirWithRetry(fs afero.Fs, path string, config RetryConfig) ([]os.FileInfo, error) {
	return withRetry("readdir", path, config, func() ([]os.FileInfo, error) {
		return afero.ReadDir(fs, path)
	})
}

// Exists reports whether path is present. It returns (false, nil) only when
// the filesystem positively reports the path as missing. Any other failure,
// such as permission denied or an unreachable mount, is returned as an error
// so callers never mistake an I/O problem for a deletion.
func Exists(fs afero.Fs, path string, config RetryConfig) (bool, error) {
	_, err := StatWithRetry(fs, path, config)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
