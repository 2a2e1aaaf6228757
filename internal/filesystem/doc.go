/*
Package filesystem provides filesystem checks with automatic retry logic
for NFS stale file handle errors.

Media libraries are frequently mounted over NFS or SMB. A stale handle
(ESTALE) during a scan or a reconciliation pass is transient, so stat and
directory listings are retried with exponential backoff before the error is
surfaced. All other errors fail immediately.

Operations take an afero.Fs so that callers can run against the real
filesystem in production and an in-memory filesystem in tests:

	fs := afero.NewOsFs()
	info, err := filesystem.StatWithRetry(fs, "/media/Channel/clip.mp4", filesystem.DefaultRetryConfig())

[Exists] distinguishes a confirmed "not found" from an inconclusive check.
The reconciler relies on that distinction: a catalog row is deleted only when
Exists returns (false, nil).

Defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms
*/
package filesystem
