package medialib

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions is the media extension set from spec §4.G.
func DefaultExtensions() []string {
	return []string{
		"mp3", "flac", "wav", "ogg", "aif", "aiff", "aac", "alac",
		"m4a", "mov", "mp4", "avi", "flv", "mpg", "mpeg", "dv", "qtz",
	}
}

// extensionMatcher answers whether a file name's extension (case
// insensitive) belongs to a configured set, using a doublestar brace
// pattern so the same glob machinery used for filesystem traversal governs
// what counts as media.
type extensionMatcher struct {
	pattern string
}

func newExtensionMatcher(extensions []string) extensionMatcher {
	lowered := make([]string, len(extensions))
	for i, ext := range extensions {
		lowered[i] = strings.ToLower(ext)
	}

	return extensionMatcher{pattern: "*.{" + strings.Join(lowered, ",") + "}"}
}

func (m extensionMatcher) Match(name string) bool {
	ok, err := doublestar.Match(m.pattern, strings.ToLower(name))

	return err == nil && ok
}
