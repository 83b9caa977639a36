package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on a Kind.
type SuggestionGenerator interface {
	Generate(kind Kind, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on kind and affectedPath.
func (g *suggestionGenerator) Generate(kind Kind, affectedPath string) []string {
	switch kind {
	case KindConfig:
		return g.generateConfigSuggestions()
	case KindFormatMismatch, KindTruncated:
		return g.generateFormatSuggestions(affectedPath)
	case KindNotFound:
		return g.generateNotFoundSuggestions(affectedPath)
	case KindIO:
		return g.generateIOSuggestions(affectedPath)
	case KindWorker:
		return g.generateWorkerSuggestions()
	case KindUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateConfigSuggestions() []string {
	return []string{
		"Check the configured options for a missing required value",
		"A parent crate name may not contain '%%' — rename it",
	}
}

func (g *suggestionGenerator) generateFormatSuggestions(path string) []string {
	suggestions := []string{
		"The file's binary structure did not match the expected layout",
		"Verify the file was not truncated by a previous interrupted write",
	}

	if path != "" {
		suggestions = append(suggestions, "Inspect the file at "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateNotFoundSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
		suggestions = append(suggestions, "Ensure all parent directories exist for "+path)
	} else {
		suggestions = append(suggestions, "Ensure all parent directories exist")
	}

	return suggestions
}

func (g *suggestionGenerator) generateIOSuggestions(path string) []string {
	suggestions := []string{
		"Check available disk space on the destination",
		"Verify read/write permissions for the affected files and directories",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	}

	suggestions = append(suggestions, "Try the operation again - this may be a transient I/O error")

	return suggestions
}

func (g *suggestionGenerator) generateWorkerSuggestions() []string {
	return []string{
		"A single unit of parallel work failed; the rest of the batch continued",
		"Re-run the affected stage alone to reproduce the failure with a clean log",
	}
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
		"Verify file and directory permissions",
		"Ensure sufficient disk space is available",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
