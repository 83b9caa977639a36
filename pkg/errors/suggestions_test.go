package errors_test

import (
	"testing"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/errors"
)

func TestSuggestionGenerator_IOErrors(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindIO, "/source/file.txt")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for io errors, got none")
	}

	foundIOSuggestion := false

	for _, suggestion := range suggestions {
		if containsSubstring(suggestion, "retry") || containsSubstring(suggestion, "space") ||
			containsSubstring(suggestion, "disk") {
			foundIOSuggestion = true

			break
		}
	}

	if !foundIOSuggestion {
		t.Errorf("expected disk/I/O suggestion, got: %v", suggestions)
	}
}

func TestSuggestionGenerator_IOErrorsWithPath(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindIO, "/path/to/directory")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for io errors, got none")
	}

	foundPathSuggestion := false

	for _, suggestion := range suggestions {
		if containsSubstring(suggestion, "/path/to/directory") || containsSubstring(suggestion, "ls -la") {
			foundPathSuggestion = true

			break
		}
	}

	if !foundPathSuggestion {
		t.Errorf("expected path-specific io suggestion, got: %v", suggestions)
	}
}

func TestSuggestionGenerator_EmptyPath(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindIO, "")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions even with empty path, got none")
	}

	for _, suggestion := range suggestions {
		if suggestion == "" {
			t.Error("suggestion should not be empty string")
		}
	}
}

func TestSuggestionGenerator_NotFoundErrors(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindNotFound, "/missing/path/file.txt")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for not-found errors, got none")
	}

	foundPathSuggestion := false

	for _, suggestion := range suggestions {
		if containsSubstring(suggestion, "path") || containsSubstring(suggestion, "exist") {
			foundPathSuggestion = true

			break
		}
	}

	if !foundPathSuggestion {
		t.Errorf("expected path verification suggestion, got: %v", suggestions)
	}
}

func TestSuggestionGenerator_ConfigErrors(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindConfig, "")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for config errors, got none")
	}
}

func TestSuggestionGenerator_FormatMismatchErrors(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindFormatMismatch, "/path/to/file.crate")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for format mismatch errors, got none")
	}

	foundPathSuggestion := false

	for _, suggestion := range suggestions {
		if containsSubstring(suggestion, "/path/to/file.crate") {
			foundPathSuggestion = true

			break
		}
	}

	if !foundPathSuggestion {
		t.Errorf("expected suggestion referencing the path, got: %v", suggestions)
	}
}

func TestSuggestionGenerator_TruncatedErrors(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindTruncated, "/path/to/file.crate")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for truncated errors, got none")
	}
}

func TestSuggestionGenerator_WorkerErrors(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindWorker, "")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for worker errors, got none")
	}
}

func TestSuggestionGenerator_UnknownErrors(t *testing.T) {
	t.Parallel()

	gen := errors.NewSuggestionGenerator()
	suggestions := gen.Generate(errors.KindUnknown, "/path/to/file.txt")

	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for unknown errors, got none")
	}

	foundGenericSuggestion := false

	for _, suggestion := range suggestions {
		if containsSubstring(suggestion, "check") || containsSubstring(suggestion, "verify") {
			foundGenericSuggestion = true

			break
		}
	}

	if !foundGenericSuggestion {
		t.Errorf("expected generic helpful suggestion, got: %v", suggestions)
	}
}

// containsSubstring reports whether str contains substr, case-insensitive.
func containsSubstring(str, substr string) bool {
	return len(str) >= len(substr) && findSubstring(str, substr)
}

func findSubstring(haystack, needle string) bool {
	for i := 0; i <= len(haystack)-len(needle); i++ {
		match := true

		for j := range len(needle) {
			haystackChar := haystack[i+j]
			needleChar := needle[j]

			if haystackChar >= 'A' && haystackChar <= 'Z' {
				haystackChar = haystackChar - 'A' + 'a'
			}

			if needleChar >= 'A' && needleChar <= 'Z' {
				needleChar = needleChar - 'A' + 'a'
			}

			if haystackChar != needleChar {
				match = false

				break
			}
		}

		if match {
			return true
		}
	}

	return false
}
