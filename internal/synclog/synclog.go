// Package synclog defines the logging collaborator the pipeline (component
// O) and the components it drives are handed at construction time, rather
// than reaching for a process-wide sink. This mirrors the teacher's
// syncengine.EventEmitter dependency-injection style, simplified to the flat
// method set spec §9's DESIGN NOTES calls for: info, error, progress,
// fatal, and a confirm prompt for interactive decisions (library-root
// creation, duplicate-crate-file conflicts).
package synclog

import (
	"fmt"
	"log/slog"
)

// Logger is the interface every component in this module logs through.
type Logger interface {
	// Info records a routine, non-error message.
	Info(msg string)
	// Error records a recoverable failure — the caller continues.
	Error(msg string)
	// Progress reports current/total advancement through a named task.
	Progress(task string, current, total int)
	// Fatal records an unrecoverable failure that ends the run.
	Fatal(msg string)
	// Confirm asks the operator a yes/no question and returns their answer.
	// Non-interactive implementations should default to false.
	Confirm(prompt string) bool
}

// NullLogger discards everything and always declines Confirm. Used by tests
// and by any caller that doesn't want console output.
type NullLogger struct{}

// Info implements Logger.
func (NullLogger) Info(string) {}

// Error implements Logger.
func (NullLogger) Error(string) {}

// Progress implements Logger.
func (NullLogger) Progress(string, int, int) {}

// Fatal implements Logger.
func (NullLogger) Fatal(string) {}

// Confirm implements Logger, always declining.
func (NullLogger) Confirm(string) bool { return false }

// SlogLogger backs Logger with log/slog — no example repo in the corpus
// imports a third-party logging library, so this stage is stdlib-only by
// necessity rather than choice (see DESIGN.md).
type SlogLogger struct {
	logger  *slog.Logger
	confirm func(prompt string) bool
}

// New creates a SlogLogger writing through the given slog.Logger. confirm is
// the callback used to answer Confirm prompts (e.g. reading from stdin); if
// nil, Confirm always returns false.
func New(logger *slog.Logger, confirm func(prompt string) bool) *SlogLogger {
	return &SlogLogger{logger: logger, confirm: confirm}
}

// Info implements Logger.
func (l *SlogLogger) Info(msg string) {
	l.logger.Info(msg)
}

// Error implements Logger.
func (l *SlogLogger) Error(msg string) {
	l.logger.Error(msg)
}

// Progress implements Logger.
func (l *SlogLogger) Progress(task string, current, total int) {
	l.logger.Info(fmt.Sprintf("%s: %d/%d", task, current, total),
		slog.String("task", task), slog.Int("current", current), slog.Int("total", total))
}

// Fatal implements Logger.
func (l *SlogLogger) Fatal(msg string) {
	l.logger.Error(msg, slog.Bool("fatal", true))
}

// Confirm implements Logger.
func (l *SlogLogger) Confirm(prompt string) bool {
	if l.confirm == nil {
		return false
	}

	return l.confirm(prompt)
}
