// Package media wraps the external ffmpeg tools used while indexing videos.
//
//   - Prober runs ffprobe and reduces its JSON report to duration, size,
//     resolution and codec.
//   - ThumbnailGenerator runs ffmpeg to grab one 480px-wide JPEG frame,
//     first 5 seconds in and then 1 second in.
//   - FormatTitle and SanitizeFilename derive display titles and
//     thumbnail names from file names.
//
// Both tools run through a Runner so tests can substitute a mock, and every
// invocation is bounded by a timeout.
package media
