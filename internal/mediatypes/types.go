package mediatypes

import (
	"path/filepath"
	"strings"
)

// VideoExtensions maps file extensions to whether they are indexed as videos.
// Keys are lowercase and include the leading dot.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	// Thumbnails
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// IsVideoExt reports whether ext (with leading dot, any case) is a video extension.
func IsVideoExt(ext string) bool {
	return VideoExtensions[strings.ToLower(ext)]
}

// IsVideoFile reports whether the file name carries a recognized video extension.
// Matching is case-insensitive.
func IsVideoFile(name string) bool {
	return IsVideoExt(filepath.Ext(name))
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
