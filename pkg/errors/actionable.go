// Package errors classifies pipeline failures into the Kind taxonomy
// (spec §7) and enriches them with actionable suggestions and a
// stage-aware fatal/recoverable verdict, so the orchestrator (component O)
// can decide, without inspecting error strings itself, whether a failure
// unwinds the whole run or is logged and skipped.
//
// Basic usage:
//
//	enricher := errors.NewEnricher()
//	_, err := os.Open("/restricted/file.txt")
//	if err != nil {
//	    enriched := enricher.Enrich(err, "/restricted/file.txt")
//	    fmt.Println(errors.FormatSuggestions(enriched))
//	}
package errors

import "strings"

// Kind classifies a pipeline error, per spec §7.
type Kind string

// Exported constants.
const (
	KindConfig         Kind = "config"
	KindFormatMismatch Kind = "format_mismatch"
	KindTruncated      Kind = "truncated"
	KindNotFound       Kind = "not_found"
	KindIO             Kind = "io"
	KindWorker         Kind = "worker"
	KindUnknown        Kind = "unknown"
)

// Stage names the pipeline stage an error occurred in. Spec §7's
// fatal/recoverable verdict depends on where an error happened, not just
// its Kind — an IO error is fatal inside the backup copier but merely
// logged inside the crate-path fixer.
type Stage string

// Exported constants.
const (
	StageOrchestratorStart Stage = "orchestrator_start"
	StageCrate             Stage = "crate"
	StageIndexRead         Stage = "index_read"
	StageIndexWrite        Stage = "index_write"
	StageSession           Stage = "session"
	StageCratefix          Stage = "cratefix"
	StageDupemove          Stage = "dupemove"
	StageBackup            Stage = "backup"
	StageWorker            Stage = "worker"
)

// ActionableError represents an error enriched with a Kind, actionable
// suggestions, and the path it affected, if any.
type ActionableError interface {
	error
	OriginalError() string
	Kind() Kind
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError creates a new ActionableError with the given details.
func NewActionableError(originalError string, kind Kind, suggestions []string, affectedPath string) ActionableError {
	return &actionableError{
		originalError: originalError,
		kind:          kind,
		suggestions:   suggestions,
		affectedPath:  affectedPath,
	}
}

// Fatal reports whether an error of kind occurring during stage should
// unwind to the orchestrator's fatal-exit signal, per spec §7's per-kind,
// per-stage bullet list.
func Fatal(kind Kind, stage Stage) bool {
	switch kind {
	case KindConfig:
		return true
	case KindFormatMismatch, KindTruncated:
		return stage == StageIndexRead || stage == StageIndexWrite
	case KindNotFound:
		return stage == StageOrchestratorStart
	case KindIO:
		return stage == StageBackup || stage == StageIndexWrite
	case KindWorker, KindUnknown:
		return false
	default:
		return false
	}
}

// FormatSuggestions formats the suggestions from an ActionableError as a
// bulleted list for display. Returns "" if err is nil or carries none.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	actionable, ok := err.(ActionableError) //nolint:errorlint // deliberate assertion, not chain-unwrapping
	if !ok {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var b strings.Builder

	for i, suggestion := range suggestions {
		if i > 0 {
			b.WriteString("\n")
		}

		b.WriteString("  • ")
		b.WriteString(suggestion)
	}

	return b.String()
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	originalError string
	kind          Kind
	suggestions   []string
	affectedPath  string
}

func (e *actionableError) AffectedPath() string  { return e.affectedPath }
func (e *actionableError) Kind() Kind            { return e.kind }
func (e *actionableError) Error() string         { return e.originalError }
func (e *actionableError) OriginalError() string { return e.originalError }
func (e *actionableError) Suggestions() []string { return e.suggestions }
