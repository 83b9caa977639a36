// Package dupemove implements the duplicate mover (spec §4.L): it groups
// tracks in a scanned media tree by fingerprint, keeps one per group
// according to a mtime policy, and relocates the rest into a timestamped
// quarantine folder.
package dupemove

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/medialib"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/fileops"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"
)

// Mode selects the fingerprint (spec §3 Fingerprint).
type Mode int

const (
	// ModeOff disables duplicate detection entirely.
	ModeOff Mode = iota
	// ModeNameOnly fingerprints by NFC-lowercased leaf filename alone.
	ModeNameOnly
	// ModeNameAndSize fingerprints by leaf filename plus file size.
	ModeNameAndSize
)

// Policy selects which file in a duplicate group is kept in place.
type Policy int

const (
	// KeepNewest keeps the file with the maximum mtime.
	KeepNewest Policy = iota
	// KeepOldest keeps the file with the minimum mtime.
	KeepOldest
)

// Options configures a Run.
type Options struct {
	Tree           *medialib.MediaNode
	MusicRoot      string
	QuarantineRoot string // <library-parent>/<quarantine-folder>
	Mode           Mode
	Policy         Policy
}

// Result reports what Run changed. Moved maps each moved file's original
// absolute path to the absolute path of the file kept in its place, for
// the orchestrator to thread into the index via §4.E.
type Result struct {
	Moved       map[string]string
	MovedCount  int
	SkippedErrs []error
}

type fileEntry struct {
	path string
	size int64
	mod  time.Time
}

// Run scans opts.Tree, groups tracks by fingerprint, and moves every
// non-kept file in each group of size >= 2 into a
// <QuarantineRoot>/<timestamp>/<relative-to-MusicRoot> tree (spec §4.L).
// Individual move failures are recorded in Result.SkippedErrs, not
// returned as an error: "all-or-nothing is not required" (spec §4.L).
func Run(opts Options) (Result, error) {
	result := Result{Moved: make(map[string]string)}

	if opts.Mode == ModeOff {
		return result, nil
	}

	entries, err := statAll(collectTracks(opts.Tree))
	if err != nil {
		return result, err
	}

	groups := groupByFingerprint(entries, opts.Mode)

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	var (
		report       []groupReport
		groupsFound  int
		filesMovedTo int
	)

	for _, key := range sortedKeys(groups) {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		groupsFound++

		sort.Slice(group, func(i, j int) bool { return group[i].mod.Before(group[j].mod) })

		keepIdx := len(group) - 1
		if opts.Policy == KeepOldest {
			keepIdx = 0
		}

		kept := group[keepIdx]
		gr := groupReport{key: key, kept: kept}

		for i, entry := range group {
			if i == keepIdx {
				continue
			}

			dest, err := destinationPath(opts.MusicRoot, opts.QuarantineRoot, timestamp, entry.path)
			if err != nil {
				gr.errors = append(gr.errors, fmt.Sprintf("Failed to move %s: %v", entry.path, err))
				result.SkippedErrs = append(result.SkippedErrs, fmt.Errorf("dupemove: %s: %w", entry.path, err))

				continue
			}

			if err := moveFile(entry.path, dest); err != nil {
				gr.errors = append(gr.errors, fmt.Sprintf("Failed to move %s: %v", entry.path, err))
				result.SkippedErrs = append(result.SkippedErrs, fmt.Errorf("dupemove: moving %s: %w", entry.path, err))

				continue
			}

			result.Moved[entry.path] = kept.path
			result.MovedCount++
			filesMovedTo++
			gr.moved = append(gr.moved, movedFile{entry: entry, dest: dest})
		}

		report = append(report, gr)
	}

	if len(report) > 0 {
		logDir := filepath.Join(opts.QuarantineRoot, timestamp)

		logPath := filepath.Join(logDir, "dupes.log")
		if err := writeLog(logPath, timestamp, groupsFound, filesMovedTo, report); err != nil {
			result.SkippedErrs = append(result.SkippedErrs, fmt.Errorf("dupemove: writing dupes.log: %w", err))
		}
	}

	return result, nil
}

// groupReport holds the outcome of one duplicate group for the report,
// matching ser_sync_dupe_mover.java's processDuplicateGroup bookkeeping.
type groupReport struct {
	key    string
	kept   fileEntry
	moved  []movedFile
	errors []string
}

type movedFile struct {
	entry fileEntry
	dest  string
}

func collectTracks(node *medialib.MediaNode) []string {
	if node == nil {
		return nil
	}

	tracks := make([]string, 0, len(node.Tracks))
	tracks = append(tracks, node.Tracks...)

	for _, child := range node.Children {
		tracks = append(tracks, collectTracks(child)...)
	}

	return tracks
}

func statAll(paths []string) ([]fileEntry, error) {
	entries := make([]fileEntry, 0, len(paths))

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("dupemove: stat %s: %w", p, err)
		}

		entries = append(entries, fileEntry{path: p, size: info.Size(), mod: info.ModTime()})
	}

	return entries, nil
}

func fingerprint(mode Mode, entry fileEntry) string {
	key := pathnorm.NFCLowerFilename(entry.path)
	if mode == ModeNameAndSize {
		key += "|" + strconv.FormatInt(entry.size, 10)
	}

	return key
}

func groupByFingerprint(entries []fileEntry, mode Mode) map[string][]fileEntry {
	groups := make(map[string][]fileEntry)

	for _, entry := range entries {
		key := fingerprint(mode, entry)
		groups[key] = append(groups[key], entry)
	}

	return groups
}

func sortedKeys(groups map[string][]fileEntry) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func destinationPath(musicRoot, quarantineRoot, timestamp, absPath string) (string, error) {
	rel, err := filepath.Rel(musicRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("relativizing %s to %s: %w", absPath, musicRoot, err)
	}

	return filepath.Join(quarantineRoot, timestamp, rel), nil
}

// moveFile renames src to dst, falling back to copy-then-delete when
// rename fails (e.g. across filesystems), per spec §4.L.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil { //nolint:mnd // matches host dir-permission convention
		return fmt.Errorf("creating quarantine directory: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if _, err := fileops.CopyFile(src, dst, nil); err != nil {
		return fmt.Errorf("copying: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing original after copy: %w", err)
	}

	return nil
}

// writeLog writes the full duplicate-scan report in one shot: a header
// block with the run's date and totals, then one section per duplicate
// group listing the kept file and every moved (or failed) file, matching
// ser_sync_dupe_mover.java's writeLogFile format exactly.
func writeLog(path, timestamp string, groupsFound, filesMoved int, report []groupReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil { //nolint:mnd // matches host dir-permission convention
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:mnd,gosec // sibling log file, one per timestamped run
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	var b strings.Builder

	b.WriteString("=== Duplicate File Scan Report ===\n")
	b.WriteString("Date: " + strings.ReplaceAll(timestamp, "_", " ") + "\n")
	b.WriteString("Total duplicate groups found: " + strconv.Itoa(groupsFound) + "\n")
	b.WriteString("Total files moved: " + strconv.Itoa(filesMoved) + "\n")
	b.WriteString("=====================================\n\n")

	for _, gr := range report {
		b.WriteString("Duplicate group: " + gr.key + "\n")
		b.WriteString("  KEPT:  " + gr.kept.path + " (" + gr.kept.mod.Format("2006-01-02") + ")\n")

		for _, m := range gr.moved {
			b.WriteString("  MOVED: " + m.entry.path + " (" + m.entry.mod.Format("2006-01-02") + ")\n")
			b.WriteString("      -> " + m.dest + "\n")
		}

		for _, e := range gr.errors {
			b.WriteString("  ERROR: " + e + "\n")
		}

		b.WriteString("\n")
	}

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("writing: %w", err)
	}

	return nil
}
