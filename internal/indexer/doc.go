// Package indexer builds and maintains the video catalog from the media
// directory.
//
// Every top-level directory of the media root is a channel, keyed by its
// absolute path. Videos anywhere below a channel directory belong to that
// channel. Videos placed directly in the root belong to the "Uncategorized"
// channel, keyed by the root path itself. Dot-prefixed names get no special
// treatment.
//
// The Scanner runs in several modes:
//   - Startup scan: in the background when the application starts
//   - Periodic scan: at a configurable interval
//   - File watching: fsnotify events debounced into a scan
//   - Manual trigger: on demand through the API or catalogctl
//
// Scans only add videos. Records of files that disappeared are removed by
// the reconciliation pass (Reconcile), which deletes a record only when the
// file is confirmed missing, then drops channels left without videos.
package indexer
