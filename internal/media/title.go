package media

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	separatorRun = regexp.MustCompile(`[-_.]+`)
	unsafeRun    = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// maxSanitizedLength keeps thumbnail names well under filesystem limits.
const maxSanitizedLength = 100

// FormatTitle turns a file name without extension into a display title:
// hyphens, underscores and periods become spaces, whitespace is collapsed
// and trimmed, and every word starts with a capital letter.
//
//	FormatTitle("my_video-file.01") == "My Video File 01"
func FormatTitle(name string) string {
	words := strings.Fields(separatorRun.ReplaceAllString(name, " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// SanitizeFilename reduces name to characters that are safe in a file name
// on any platform. Runs of other characters become a single underscore.
func SanitizeFilename(name string) string {
	s := unsafeRun.ReplaceAllString(name, "_")
	s = strings.Trim(s, "._-")
	if len(s) > maxSanitizedLength {
		s = strings.TrimRight(s[:maxSanitizedLength], "._-")
	}
	if s == "" {
		return "video"
	}
	return s
}
