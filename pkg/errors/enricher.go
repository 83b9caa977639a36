package errors

import (
	"errors"
	"regexp"
	"strings"
)

// Enricher enriches standard errors with a Kind and actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates a new Enricher with the default pattern matcher and
// suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

//nolint:gochecknoglobals // compiled regexes shared across all enricher instances
var pathExtractionPatterns = []*regexp.Regexp{
	// Unix/Linux paths (absolute and relative)
	regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
	// Windows paths with backslashes
	regexp.MustCompile(`\b\w+\s+([A-Za-z]:\\[^\s:]+):`),
	// Windows paths with forward slashes
	regexp.MustCompile(`\b\w+\s+([A-Za-z]:/[^\s:]+):`),
}

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich takes a standard error and enriches it with a Kind and actionable
// suggestions. If err is already an ActionableError, it is returned
// unchanged. If affectedPath is empty, it is extracted from the error
// message when possible.
func (e *enricher) Enrich(err error, affectedPath string) error {
	var actionableErr ActionableError
	if errors.As(err, &actionableErr) {
		return actionableErr
	}

	errMsg := err.Error()

	if affectedPath == "" {
		affectedPath = extractPath(errMsg)
	}

	kind := e.matcher.Match(errMsg)
	suggestions := e.generator.Generate(kind, affectedPath)

	return NewActionableError(errMsg, kind, suggestions, affectedPath)
}

// extractPath attempts to extract a file path from common Go error message
// formats such as "open /path/to/file: permission denied". Returns "" if no
// path is found.
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}
