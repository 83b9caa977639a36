// Package cratefix implements the crate-path fixer (spec §4.K): it repairs
// broken track references inside on-disk crates, either by canonicalizing
// a path that already resolves or by rebinding a moved file located
// through the media-tree flatten map, and accumulates the resulting
// corrections as PathFixes for the caller to apply to the library index
// via pkg/index's repair writer.
package cratefix

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/medialib"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/crate"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/index"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"
)

// Options configures a Run.
type Options struct {
	// SubcratesDir holds the *.crate files to scan.
	SubcratesDir string
	// MusicRoot is prepended to an in-file relative path that does not
	// resolve on its own before it is declared broken (spec §4.K item 1).
	MusicRoot string
	// Tree is the media-tree scan used to locate moved files by filename.
	Tree *medialib.MediaNode
	// HostIndex is the parsed library index, consulted for the exact
	// filename bytes it has on record. May be nil: rebinds then fall back
	// to the filename bytes found on disk.
	HostIndex *index.Index
	// Flat, if non-nil, is used instead of flattening Tree: a same-run
	// scan-result cache hit lets the caller skip re-walking a tree it has
	// already flattened once this run.
	Flat map[string]string
}

// Result reports what Run changed.
type Result struct {
	CratesFixed int
	Fixes       []index.PathFix
}

// Run scans every crate in opts.SubcratesDir, repairs broken track
// references, writes dirty crates back to disk, and returns the
// accumulated PathFixes for the caller to apply to the index (spec §4.E).
// Per-crate scanning is parallel; the PathFix accumulator is a
// mutex-guarded map keyed by old-bytes, matching the concurrency model
// described by spec §4.K's last paragraph.
func Run(opts Options) (Result, error) {
	paths, err := filepath.Glob(filepath.Join(opts.SubcratesDir, "*.crate"))
	if err != nil {
		return Result{}, fmt.Errorf("cratefix: listing %s: %w", opts.SubcratesDir, err)
	}

	flat := opts.Flat
	if flat == nil {
		flat = medialib.Flatten(opts.Tree)
	}

	var (
		mu    sync.Mutex
		fixes = make(map[string]index.PathFix)
		fixed int
		group errgroup.Group
	)

	for _, cratePath := range paths {
		group.Go(func() error {
			dirty, localFixes, err := fixOne(cratePath, opts.MusicRoot, flat, opts.HostIndex)
			if err != nil {
				return err
			}

			mu.Lock()
			for _, f := range localFixes {
				fixes[f.Old] = f
			}

			if dirty {
				fixed++
			}
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	out := make([]index.PathFix, 0, len(fixes))
	for _, f := range fixes {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Old < out[j].Old })

	return Result{CratesFixed: fixed, Fixes: out}, nil
}

// fixOne repairs one crate file and, if it changed, rewrites it to disk.
func fixOne(cratePath, musicRoot string, flat map[string]string, hostIdx *index.Index) (bool, []index.PathFix, error) {
	data, err := os.ReadFile(cratePath) //nolint:gosec // path comes from a Glob of a configured directory
	if err != nil {
		return false, nil, fmt.Errorf("cratefix: reading %s: %w", cratePath, err)
	}

	c, err := crate.Parse(data)
	if err != nil {
		return false, nil, fmt.Errorf("cratefix: parsing %s: %w", cratePath, err)
	}

	dirty, fixes := fixTracks(c, musicRoot, flat, hostIdx)
	if !dirty {
		return false, fixes, nil
	}

	out, err := c.Serialize()
	if err != nil {
		return true, fixes, fmt.Errorf("cratefix: serializing %s: %w", cratePath, err)
	}

	if err := os.WriteFile(cratePath, out, 0o644); err != nil { //nolint:gosec,mnd // matches host convention, path from Glob
		return true, fixes, fmt.Errorf("cratefix: writing %s: %w", cratePath, err)
	}

	return true, fixes, nil
}

// fixTracks applies spec §4.K item 1 to every track in c, mutating c in
// place and returning whether anything changed plus the PathFixes to
// thread into the index.
func fixTracks(c *crate.Crate, musicRoot string, flat map[string]string, hostIdx *index.Index) (bool, []index.PathFix) {
	var (
		dirty bool
		fixes []index.PathFix
	)

	for i, trackPath := range c.Tracks() {
		resolved, exists := resolvePath(musicRoot, trackPath)
		if exists {
			changed, fix := fixExistingTrack(c, i, trackPath, resolved, hostIdx)
			if changed {
				dirty = true
			}

			if fix != nil {
				fixes = append(fixes, *fix)
			}

			continue
		}

		fix, ok := reboundTrack(c, i, trackPath, flat, hostIdx)
		if ok {
			dirty = true
			fixes = append(fixes, fix)
		}
	}

	return dirty, fixes
}

// fixExistingTrack handles a track whose path resolves on disk: it
// canonicalizes the in-file form if it differs, and separately flags an
// index PathFix if the index has a different on-record path for the same
// file (spec §4.K item 1, first bullet).
func fixExistingTrack(c *crate.Crate, i int, trackPath, resolved string, hostIdx *index.Index) (bool, *index.PathFix) {
	canonicalForm := pathnorm.Canonical(resolved)

	changed := canonicalForm != trackPath
	if changed {
		c.SetTrackAt(i, canonicalForm)
	}

	if hostIdx == nil {
		return changed, nil
	}

	leaf := pathnorm.NFCLowerFilename(trackPath)

	indexPath, ok := hostIdx.LookupByFilename(leaf, "")
	if !ok || indexPath == canonicalForm {
		return changed, nil
	}

	return changed, &index.PathFix{Old: indexPath, New: canonicalForm}
}

// reboundTrack handles a track whose path does not resolve on disk: it
// looks the leaf up in the media-tree flatten map and, if found,
// reconstructs the moved path using the host's on-record filename bytes
// (spec §4.K item 1, second bullet). ok is false when the leaf was not
// found anywhere in the tree, in which case the broken path is left as is.
func reboundTrack(c *crate.Crate, i int, trackPath string, flat map[string]string, hostIdx *index.Index) (index.PathFix, bool) {
	leaf := pathnorm.NFCLowerFilename(trackPath)

	newAbsPath, found := flat[leaf]
	if !found {
		return index.PathFix{}, false
	}

	filenameBytes := pathnorm.Filename(newAbsPath)
	oldValue := trackPath

	if hostIdx != nil {
		if indexPath, ok := hostIdx.LookupByFilename(leaf, ""); ok {
			filenameBytes = pathnorm.Filename(indexPath)
			oldValue = indexPath
		}
	}

	newDir := pathnorm.Canonical(filepath.Dir(newAbsPath))
	rebound := path.Join(newDir, filenameBytes)

	c.SetTrackAt(i, rebound)

	return index.PathFix{Old: oldValue, New: rebound}, true
}

// resolvePath tries trackPath directly, then musicRoot-prepended if it is
// relative and the direct stat failed (spec §4.K item 1: "either directly
// or after prepending the volume root for a relative path").
func resolvePath(musicRoot, trackPath string) (string, bool) {
	if _, err := os.Stat(trackPath); err == nil {
		return trackPath, true
	}

	if musicRoot == "" || filepath.IsAbs(trackPath) {
		return trackPath, false
	}

	candidate := filepath.Join(musicRoot, trackPath)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true
	}

	return trackPath, false
}
