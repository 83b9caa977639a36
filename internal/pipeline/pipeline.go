// Package pipeline implements the sync orchestrator (spec §4.O): the fixed
// twelve-step sequence that drives every other component in this module
// against one music root and one host library, classifying every failure
// along the way through pkg/errors's Kind/Stage taxonomy.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/backup"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/config"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/cratebuild"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/cratefix"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/dupemove"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/medialib"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/scancache"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/sessionclean"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/sidebar"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/smartwrite"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/synclog"
	"github.com/cyber-demon-dev/ser-sync-pro/internal/trackindex"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/crate"
	pkgerrors "github.com/cyber-demon-dev/ser-sync-pro/pkg/errors"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/index"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"
)

const (
	indexFileName      = "database V2"
	subcratesDirName   = "Subcrates"
	cratesDirName      = "Crates"
	quarantineDirName  = "DupeQuarantine"
	crateFileSuffix    = ".crate"
	filePerm           = 0o644
	dirPerm            = 0o750
)

// Summary reports the counters spec §6's external interface calls for:
// tracks found, crates updated/skipped, paths fixed, duplicates moved.
type Summary struct {
	TracksFound     int
	CratesUpdated   int
	CratesSkipped   int
	CratesBuilt     int
	TracksAdded     int
	SkippedExisting int
	PathsFixed      int
	CratesFixed     int
	DuplicatesMoved int
	BackupBytes     int64
	SessionsDeleted int
	HistoryScrubbed int
}

// Run drives the fixed sequence in spec §4.O against cfg, logging progress
// and confirmations through logger. A returned error ends the run. Some
// steps (backup, scan, ensure-library, parent-crate validation, clear,
// smart-write) return their failures directly; the index, crate-path-fix
// and sidebar steps return one only when pkg/errors.Fatal reports it fatal
// at their stage, and otherwise log it and continue.
func Run(cfg *config.Config, logger synclog.Logger) (Summary, error) {
	var summary Summary

	enricher := pkgerrors.NewEnricher()

	cache, err := scancache.Open(filepath.Dir(cfg.Library))
	if err != nil {
		cache = nil // scancache is a same-run optimization only; its absence never blocks a sync
	} else {
		defer func() {
			_ = cache.Close()
		}()
	}

	if cfg.Backup {
		if err := runBackup(cfg, logger, enricher, &summary); err != nil {
			return summary, err
		}
	}

	if cfg.CleanSessions {
		runSessionClean(cfg, logger, &summary)
	}

	tree, flat, err := scanAndCheck(cfg, logger, enricher, cache)
	if err != nil {
		return summary, err
	}

	summary.TracksFound = len(flat)

	if cfg.DupeScan && cfg.DupeDetection.Mode != dupemove.ModeOff && cfg.DupeMove.Enabled {
		tree, flat, err = runDupeMove(cfg, logger, enricher, tree, cache, &summary)
		if err != nil {
			return summary, err
		}
	}

	if err := ensureLibrary(cfg, logger, enricher); err != nil {
		return summary, err
	}

	hostIdx, err := loadIndex(cfg, logger, enricher)
	if err != nil {
		return summary, err
	}

	if err := validateParentCrate(cfg, logger); err != nil {
		return summary, err
	}

	trackIdx, err := buildTrackIndex(cfg, hostIdx)
	if err != nil {
		return summary, err
	}

	var encoder crate.FilenameEncoder
	if hostIdx != nil {
		encoder = hostIdx
	}

	built, buildStats := cratebuild.Build(tree, cfg.ParentCrateName, dedupOrNil(cfg, trackIdx), encoder)
	summary.CratesBuilt = buildStats.CratesBuilt
	summary.TracksAdded = buildStats.TracksAdded
	summary.SkippedExisting = buildStats.SkippedExisting

	if cfg.ClearBeforeSync {
		if err := clearLibrary(cfg); err != nil {
			return summary, err
		}
	}

	subcratesDir := filepath.Join(cfg.Library, subcratesDirName)

	writeStats, err := smartwrite.Write(subcratesDir, built)
	if err != nil {
		return summary, err
	}

	summary.CratesUpdated = writeStats.Updated
	summary.CratesSkipped = writeStats.Skipped

	if cfg.FixBrokenPaths {
		if err := runCratefix(cfg, logger, enricher, tree, flat, hostIdx, subcratesDir, &summary); err != nil {
			return summary, err
		}
	}

	if cfg.Sort {
		if err := sidebar.Write(cfg.Library); err != nil {
			enriched := enricher.Enrich(err, cfg.Library)
			logger.Error(enriched.Error())

			if fatal(enriched, pkgerrors.StageCrate) {
				return summary, enriched
			}
		}
	}

	return summary, nil
}

// runBackup implements step 1: backup via N, abort on failure (spec §4.N,
// §4.O item 1). Backup errors are always fatal, matching N's own contract.
func runBackup(cfg *config.Config, logger synclog.Logger, enricher pkgerrors.Enricher, summary *Summary) error {
	logger.Info("backing up library")

	result, err := backup.Run(cfg.Library, cfg.BackupRoot)
	if err != nil {
		enriched := enricher.Enrich(err, cfg.Library)
		logger.Fatal(enriched.Error())

		return enriched
	}

	summary.BackupBytes = result.BytesCopied
	logger.Info(fmt.Sprintf("backed up %d bytes to %s", result.BytesCopied, result.Destination))

	return nil
}

// runSessionClean drives the short-session-deletion operation spec §4.F
// describes as separate from the fixed sync sequence: it deletes session
// files under <library>/History/Sessions shorter than
// cfg.MinSessionSecs and scrubs the deleted paths out of
// history.database. Failures here never block the sync; each is logged
// and the run continues, matching the operation's own "separate
// operation" framing.
func runSessionClean(cfg *config.Config, logger synclog.Logger, summary *Summary) {
	logger.Info("cleaning short history sessions")

	result, err := sessionclean.Run(cfg.Library, cfg.MinSessionSecs, func(path string, err error) {
		logger.Error(fmt.Sprintf("session cleanup %s: %v", path, err))
	})
	if err != nil {
		logger.Error(fmt.Sprintf("session cleanup: %v", err))

		return
	}

	summary.SessionsDeleted = result.SessionsDeleted
	summary.HistoryScrubbed = result.HistoryScrubbed

	if result.SessionsDeleted > 0 {
		logger.Info(fmt.Sprintf("deleted %d short sessions, scrubbed %d history entries",
			result.SessionsDeleted, result.HistoryScrubbed))
	}
}

// scanAndCheck implements step 2: scan via G, abort if track count == 0.
// The flattened (filename -> path) map is stored in cache, keyed by
// musicRoot's mtime, as a same-run hint for a later stage's flatten need
// (cache may be nil: the hint is always optional).
func scanAndCheck(
	cfg *config.Config, logger synclog.Logger, enricher pkgerrors.Enricher, cache *scancache.Store,
) (*medialib.MediaNode, map[string]string, error) {
	logger.Info("scanning music tree")

	tree, err := medialib.Scan(cfg.MusicRoot, medialib.Options{
		OnChildError: func(path string, err error) {
			logger.Error(fmt.Sprintf("scanning %s: %v", path, err))
		},
	})
	if err != nil {
		enriched := enricher.Enrich(err, cfg.MusicRoot)
		logger.Fatal(enriched.Error())

		return nil, nil, enriched
	}

	flat := medialib.Flatten(tree)
	if len(flat) == 0 {
		err := fmt.Errorf("no tracks found under %s", cfg.MusicRoot)
		logger.Fatal(err.Error())

		return nil, nil, err
	}

	if cache != nil {
		if info, statErr := os.Stat(cfg.MusicRoot); statErr == nil {
			_ = cache.Store(cfg.MusicRoot, info.ModTime(), flat)
		}
	}

	return tree, flat, nil
}

// runDupeMove implements step 3: L -> PathFixes -> E -> rescan via G.
func runDupeMove(
	cfg *config.Config, logger synclog.Logger, enricher pkgerrors.Enricher,
	tree *medialib.MediaNode, cache *scancache.Store, summary *Summary,
) (*medialib.MediaNode, map[string]string, error) {
	logger.Info("scanning for duplicate files")

	quarantineRoot := filepath.Join(filepath.Dir(cfg.Library), quarantineDirName)

	result, err := dupemove.Run(dupemove.Options{
		Tree:           tree,
		MusicRoot:      cfg.MusicRoot,
		QuarantineRoot: quarantineRoot,
		Mode:           cfg.DupeDetection.Mode,
		Policy:         cfg.DupeMove.Policy,
	})
	if err != nil {
		enriched := enricher.Enrich(err, cfg.MusicRoot)
		logger.Fatal(enriched.Error())

		return nil, nil, enriched
	}

	for _, skipErr := range result.SkippedErrs {
		logger.Error(skipErr.Error())
	}

	summary.DuplicatesMoved = result.MovedCount

	if len(result.Moved) > 0 {
		hostIdx, _, err := readIndex(cfg)
		if err != nil {
			enriched := enrichIndexError(enricher, err, indexPath(cfg))
			logger.Error(enriched.Error())
		} else if hostIdx != nil {
			fixes := pathFixesForMoves(hostIdx, result.Moved)
			if len(fixes) > 0 {
				if _, err := applyIndexFixes(cfg, fixes); err != nil {
					enriched := enrichIndexError(enricher, err, indexPath(cfg))
					logger.Fatal(enriched.Error())

					if fatal(enriched, pkgerrors.StageIndexWrite) {
						return nil, nil, enriched
					}
				}
			}
		}
	}

	logger.Info("rescanning music tree after duplicate move")

	return scanAndCheck(cfg, logger, enricher, cache)
}

// pathFixesForMoves converts a dupemove.Result.Moved map (moved file's
// original absolute path -> the absolute path of the file kept in its
// place) into PathFixes against the host index's on-record bytes for both
// ends (spec §4.O item 3, threading L's output into E).
func pathFixesForMoves(hostIdx *index.Index, moved map[string]string) []index.PathFix {
	fixes := make([]index.PathFix, 0, len(moved))

	for oldAbs, keptAbs := range moved {
		oldOnRecord, ok := hostIdx.LookupByPath(pathnorm.NFCLowerPath(oldAbs), "")
		if !ok {
			continue
		}

		newOnRecord, ok := hostIdx.LookupByPath(pathnorm.NFCLowerPath(keptAbs), "")
		if !ok {
			newOnRecord = pathnorm.Canonical(keptAbs)
		}

		if oldOnRecord == newOnRecord {
			continue
		}

		fixes = append(fixes, index.PathFix{Old: oldOnRecord, New: newOnRecord})
	}

	sort.Slice(fixes, func(i, j int) bool { return fixes[i].Old < fixes[j].Old })

	return fixes
}

// ensureLibrary implements step 4: ensure <library> exists, prompt/create
// as directed.
func ensureLibrary(cfg *config.Config, logger synclog.Logger, enricher pkgerrors.Enricher) error {
	info, err := os.Stat(cfg.Library)
	if err == nil {
		if !info.IsDir() {
			err := fmt.Errorf("%s exists and is not a directory", cfg.Library)
			logger.Fatal(err.Error())

			return err
		}

		return nil
	}

	if !os.IsNotExist(err) {
		enriched := enricher.Enrich(err, cfg.Library)
		logger.Fatal(enriched.Error())

		return enriched
	}

	if !logger.Confirm(fmt.Sprintf("library %s does not exist; create it?", cfg.Library)) {
		err := fmt.Errorf("library %s does not exist", cfg.Library)
		logger.Fatal(err.Error())

		return err
	}

	if err := os.MkdirAll(cfg.Library, dirPerm); err != nil {
		enriched := enricher.Enrich(err, cfg.Library)
		logger.Fatal(enriched.Error())

		return enriched
	}

	return nil
}

// loadIndex implements step 5: load index via D (may be absent). A
// missing file is not an error; a format failure is classified and
// checked against StageIndexRead's fatal verdict, but a plain IO read
// failure only degrades dedup, since it is not fatal at this stage per
// pkg/errors.Fatal.
func loadIndex(cfg *config.Config, logger synclog.Logger, enricher pkgerrors.Enricher) (*index.Index, error) {
	hostIdx, present, err := readIndex(cfg)
	if err != nil {
		enriched := enrichIndexError(enricher, err, indexPath(cfg))

		if fatal(enriched, pkgerrors.StageIndexRead) {
			logger.Fatal(enriched.Error())

			return nil, enriched
		}

		logger.Error(enriched.Error())

		return nil, nil //nolint:nilnil // absent/degraded index is a valid state, not an error
	}

	if !present {
		return nil, nil //nolint:nilnil // index file absent is expected per spec §4.O item 5
	}

	return hostIdx, nil
}

// readIndex reads and parses <library>/database V2, reporting present=false
// when the file does not exist.
func readIndex(cfg *config.Config) (*index.Index, bool, error) {
	data, err := os.ReadFile(indexPath(cfg)) //nolint:gosec // path built from configured library directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, err
	}

	idx, err := index.Parse(data)
	if err != nil {
		return nil, true, err
	}

	return idx, true, nil
}

func indexPath(cfg *config.Config) string {
	return filepath.Join(cfg.Library, indexFileName)
}

// enrichIndexError classifies an index read/parse failure into the Kind
// taxonomy: a malformed tag is FormatMismatch, a short read is Truncated,
// anything else falls back to the generic pattern-matched Enrich (spec
// §7's Index bullet distinguishes these from a plain IO hiccup).
func enrichIndexError(enricher pkgerrors.Enricher, err error, path string) error {
	var mismatch *binio.FormatMismatchError
	if errors.As(err, &mismatch) {
		return pkgerrors.NewActionableError(err.Error(), pkgerrors.KindFormatMismatch, nil, path)
	}

	if errors.Is(err, binio.ErrTruncated) {
		return pkgerrors.NewActionableError(err.Error(), pkgerrors.KindTruncated, nil, path)
	}

	return enricher.Enrich(err, path)
}

// applyIndexFixes reads the current index bytes, applies fixes, and
// atomically replaces the file (spec §7: "avoid leaving a half-written
// index; if an atomic replace is available, use it").
func applyIndexFixes(cfg *config.Config, fixes []index.PathFix) (int, error) {
	path := indexPath(cfg)

	data, err := os.ReadFile(path) //nolint:gosec // path built from configured library directory
	if err != nil {
		return 0, fmt.Errorf("pipeline: reading %s: %w", path, err)
	}

	newData, applied, err := index.ApplyFixes(data, fixes)
	if err != nil {
		return 0, fmt.Errorf("pipeline: applying index fixes to %s: %w", path, err)
	}

	if applied == 0 {
		return 0, nil
	}

	if err := atomicWriteFile(path, newData, filePerm); err != nil {
		return 0, fmt.Errorf("pipeline: writing %s: %w", path, err)
	}

	return applied, nil
}

// atomicWriteFile writes data to a temp file beside path and renames it
// into place, so a crash mid-write never leaves a half-written index.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".pipeline-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("renaming temp file into place: %w", err)
	}

	return nil
}

// validateParentCrate implements step 6: reject `%%` in the parent-crate
// name, create a stub crate file if missing, reject if more than one
// case-insensitive match exists in Subcrates.
func validateParentCrate(cfg *config.Config, logger synclog.Logger) error {
	if strings.Contains(cfg.ParentCrateName, "%%") {
		err := fmt.Errorf("parent crate name must not contain '%%%%': %q", cfg.ParentCrateName)
		logger.Fatal(err.Error())

		return err
	}

	subcratesDir := filepath.Join(cfg.Library, subcratesDirName)

	if err := os.MkdirAll(subcratesDir, dirPerm); err != nil {
		logger.Fatal(err.Error())

		return err
	}

	entries, err := os.ReadDir(subcratesDir)
	if err != nil {
		logger.Fatal(err.Error())

		return err
	}

	want := strings.ToLower(cfg.ParentCrateName + crateFileSuffix)

	var matches []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		if strings.ToLower(e.Name()) == want {
			matches = append(matches, e.Name())
		}
	}

	switch len(matches) {
	case 0:
		return createStubCrate(filepath.Join(subcratesDir, cfg.ParentCrateName+crateFileSuffix))
	case 1:
		return nil
	default:
		err := fmt.Errorf("more than one crate file matches parent crate %q: %v", cfg.ParentCrateName, matches)
		logger.Fatal(err.Error())

		return err
	}
}

func createStubCrate(path string) error {
	stub := crate.New()

	data, err := stub.Serialize()
	if err != nil {
		return fmt.Errorf("pipeline: serializing stub crate: %w", err)
	}

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("pipeline: writing stub crate %s: %w", path, err)
	}

	return nil
}

// buildTrackIndex implements step 7: build track index via J, if dedup is
// enabled (spec §6.3: skip-existing gates whether J's dedup applies at
// all; the configured mode picks its comparison key).
func buildTrackIndex(cfg *config.Config, hostIdx *index.Index) (*trackindex.Index, error) {
	mode := trackindex.ModeOff
	if cfg.SkipExisting {
		mode = cfg.Dedup.Mode
	}

	if mode == trackindex.ModeOff {
		return trackindex.New(trackindex.ModeOff, nil, nil), nil
	}

	existing, err := existingCrateTracks(filepath.Join(cfg.Library, subcratesDirName))
	if err != nil {
		return nil, err
	}

	return trackindex.New(mode, hostIdx, existing), nil
}

// existingCrateTracks parses every *.crate file already on disk so J can
// treat their tracks as already present; a crate that fails to parse is
// skipped, per spec §7's crate FormatMismatch/Truncated handling ("skip
// the file, mark read-error, continue").
func existingCrateTracks(subcratesDir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(subcratesDir, "*"+crateFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("pipeline: listing %s: %w", subcratesDir, err)
	}

	var tracks []string

	for _, p := range paths {
		data, err := os.ReadFile(p) //nolint:gosec // path from Glob of a configured directory
		if err != nil {
			continue
		}

		c, err := crate.Parse(data)
		if err != nil {
			continue
		}

		tracks = append(tracks, c.Tracks()...)
	}

	return tracks, nil
}

// dedupOrNil adapts trackIdx to cratebuild.Dedup, returning nil when dedup
// is off so cratebuild never counts a skip.
func dedupOrNil(cfg *config.Config, trackIdx *trackindex.Index) cratebuild.Dedup {
	if !cfg.SkipExisting || cfg.Dedup.Mode == trackindex.ModeOff {
		return nil
	}

	return trackIdx
}

// clearLibrary implements step 9: delete all files in <library>/Crates,
// <library>/Subcrates, and delete <library>/database V2.
func clearLibrary(cfg *config.Config) error {
	if err := removeFilesIn(filepath.Join(cfg.Library, cratesDirName)); err != nil {
		return err
	}

	if err := removeFilesIn(filepath.Join(cfg.Library, subcratesDirName)); err != nil {
		return err
	}

	if err := os.Remove(indexPath(cfg)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pipeline: removing %s: %w", indexPath(cfg), err)
	}

	return nil
}

func removeFilesIn(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("pipeline: reading %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("pipeline: removing %s: %w", filepath.Join(dir, e.Name()), err)
		}
	}

	return nil
}

// runCratefix implements step 11: crate-path fixer via K, which may
// mutate both crates and the index.
func runCratefix(
	cfg *config.Config, logger synclog.Logger, enricher pkgerrors.Enricher,
	tree *medialib.MediaNode, flat map[string]string, hostIdx *index.Index, subcratesDir string, summary *Summary,
) error {
	logger.Info("fixing broken crate paths")

	result, err := cratefix.Run(cratefix.Options{
		SubcratesDir: subcratesDir,
		MusicRoot:    cfg.MusicRoot,
		Tree:         tree,
		HostIndex:    hostIdx,
		Flat:         flat,
	})
	if err != nil {
		enriched := enricher.Enrich(err, subcratesDir)
		logger.Error(enriched.Error())

		if fatal(enriched, pkgerrors.StageCratefix) {
			return enriched
		}

		return nil
	}

	summary.CratesFixed = result.CratesFixed
	summary.PathsFixed = len(result.Fixes)

	if len(result.Fixes) == 0 {
		return nil
	}

	if _, err := applyIndexFixes(cfg, result.Fixes); err != nil {
		enriched := enrichIndexError(enricher, err, indexPath(cfg))
		logger.Fatal(enriched.Error())

		if fatal(enriched, pkgerrors.StageIndexWrite) {
			return enriched
		}
	}

	return nil
}

// fatal reports whether err, if it carries a Kind, is fatal at stage per
// pkg/errors.Fatal. Errors that are not ActionableErrors are never fatal,
// at any stage.
func fatal(err error, stage pkgerrors.Stage) bool {
	actionable, ok := err.(pkgerrors.ActionableError) //nolint:errorlint // deliberate assertion
	if !ok {
		return false
	}

	return pkgerrors.Fatal(actionable.Kind(), stage)
}
