package errors

import "strings"

// PatternMatcher matches a raw OS/IO error message to a Kind using string
// patterns (spec §7's IO/NotFound distinction is drawn this way, since Go's
// os/syscall errors do not carry a machine-checkable code across platforms).
type PatternMatcher interface {
	Match(errorMsg string) Kind
}

// NewPatternMatcher creates a PatternMatcher with the predefined patterns.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		patterns: map[Kind][]string{
			KindNotFound: {
				"no such file or directory",
				"file not found",
				"path does not exist",
			},
			KindIO: {
				"permission denied",
				"access denied",
				"operation not permitted",
				"no space left on device",
				"disk full",
				"quota exceeded",
				"directory not empty",
				"cannot remove",
				"short write",
				"input/output error",
				"i/o error",
			},
		},
	}
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	patterns map[Kind][]string
}

// Match returns the Kind based on pattern matching, or KindUnknown.
func (m *patternMatcher) Match(errorMsg string) Kind {
	lowerMsg := strings.ToLower(errorMsg)

	for kind, patterns := range m.patterns {
		for _, pattern := range patterns {
			if strings.Contains(lowerMsg, pattern) {
				return kind
			}
		}
	}

	return KindUnknown
}
