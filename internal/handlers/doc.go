// Package handlers provides the HTTP API of the mytube catalog service.
//
// It includes handlers for:
//   - Triggering scans, synchronously or in the background
//   - Reconciling the catalog with the media directory
//   - Scan status and catalog counts
//   - Serving generated thumbnails
//   - Health checks, probes and version information
package handlers
