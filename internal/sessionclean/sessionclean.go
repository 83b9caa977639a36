// Package sessionclean drives the short-session deletion operation spec
// §4.F describes as "a separate operation": for every *.session file
// under <library>/History/Sessions, parse it, delete the file when its
// summary duration is under a threshold, then scrub the deleted paths'
// oses entries out of <library>/History/history.database in one rewrite.
package sessionclean

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/session"
)

const (
	sessionsDirName     = "Sessions"
	historySubdir       = "History"
	historyDatabaseFile = "history.database"
	filePerm            = 0o644
)

// Result reports what Run changed.
type Result struct {
	SessionsDeleted int
	HistoryScrubbed int
}

// Run walks <library>/History/Sessions, deletes every session whose
// summary duration is below thresholdSeconds, and scrubs the matching
// entries out of history.database. A session file that fails to parse
// is left alone and reported through onError rather than aborting the
// run (spec §4.L's "all-or-nothing is not required" applies here too:
// one malformed session must not block cleanup of the rest).
func Run(library string, thresholdSeconds uint32, onError func(path string, err error)) (Result, error) {
	sessionsDir := filepath.Join(library, historySubdir, sessionsDirName)

	paths, err := filepath.Glob(filepath.Join(sessionsDir, "*.session"))
	if err != nil {
		return Result{}, fmt.Errorf("sessionclean: listing %s: %w", sessionsDir, err)
	}

	deleted := make(map[string]bool, len(paths))

	for _, path := range paths {
		shouldDelete, err := shouldDeleteSession(path, thresholdSeconds)
		if err != nil {
			if onError != nil {
				onError(path, err)
			}

			continue
		}

		if !shouldDelete {
			continue
		}

		if err := os.Remove(path); err != nil {
			if onError != nil {
				onError(path, fmt.Errorf("removing: %w", err))
			}

			continue
		}

		deleted[path] = true
	}

	result := Result{SessionsDeleted: len(deleted)}

	if len(deleted) == 0 {
		return result, nil
	}

	scrubbed, err := scrubHistoryDatabase(library, deleted)
	if err != nil {
		return result, err
	}

	result.HistoryScrubbed = scrubbed

	return result, nil
}

func shouldDeleteSession(path string, thresholdSeconds uint32) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from Glob of a configured library directory
	if err != nil {
		return false, fmt.Errorf("reading: %w", err)
	}

	s, err := session.Parse(data)
	if err != nil {
		return false, fmt.Errorf("parsing: %w", err)
	}

	return s.ShouldDelete(thresholdSeconds), nil
}

func scrubHistoryDatabase(library string, deletedPaths map[string]bool) (int, error) {
	dbPath := filepath.Join(library, historySubdir, historyDatabaseFile)

	data, err := os.ReadFile(dbPath) //nolint:gosec // path built from configured library directory
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("sessionclean: reading %s: %w", dbPath, err)
	}

	scrubbed, removed, err := session.ScrubSessions(data, deletedPaths)
	if err != nil {
		return 0, fmt.Errorf("sessionclean: scrubbing %s: %w", dbPath, err)
	}

	if removed == 0 {
		return 0, nil
	}

	if err := os.WriteFile(dbPath, scrubbed, filePerm); err != nil {
		return 0, fmt.Errorf("sessionclean: writing %s: %w", dbPath, err)
	}

	return removed, nil
}
