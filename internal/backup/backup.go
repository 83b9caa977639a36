// Package backup implements the pre-sync backup copier (spec §4.N): a
// full, mtime-preserving copy of the host library into a timestamped
// sibling folder, used as the orchestrator's first, all-or-nothing step.
// The destination is written through pkg/filesystem's FileSystem
// abstraction, so a backupRoot of the form sftp://user@host/path lands
// the backup on a network volume through the same call sequence as a
// local one (spec's Non-goals never exclude a network-volume backup
// target, only a network-volume music root as the sync source).
package backup

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/filesystem"
)

// Result reports where the backup landed and how much it copied.
type Result struct {
	Destination string
	BytesCopied int64
}

// Run copies library into <backupRoot>/<epoch-millis>_<library-leaf>/,
// preserving file and directory modification times, following no
// symlinks (spec §4.N). Any error aborts the whole copy: the caller is
// expected to treat it as fatal, per §4.O step 1.
func Run(library, backupRoot string) (Result, error) {
	info, err := os.Stat(library)
	if err != nil {
		return Result{}, fmt.Errorf("backup: stat %s: %w", library, err)
	}

	if !info.IsDir() {
		return Result{}, fmt.Errorf("backup: %s is not a directory", library)
	}

	parsed, err := filesystem.ParsePath(backupRoot)
	if err != nil {
		return Result{}, fmt.Errorf("backup: parsing backup root %s: %w", backupRoot, err)
	}

	destFS, base, closer, err := filesystem.CreateFileSystem(backupRoot)
	if err != nil {
		return Result{}, fmt.Errorf("backup: opening backup root %s: %w", backupRoot, err)
	}

	if closer != nil {
		defer closer()
	}

	join := filepath.Join
	if parsed.IsRemote {
		join = path.Join
	}

	leaf := filepath.Base(filepath.Clean(library))
	dest := join(base, strconv.FormatInt(time.Now().UnixMilli(), 10)+"_"+leaf)

	var (
		total     int64
		dirMTimes []dirMTime
	)

	walkErr := filepath.WalkDir(library, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("backup: walking %s: %w", walkPath, err)
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(library, walkPath)
		if err != nil {
			return fmt.Errorf("backup: relativizing %s: %w", walkPath, err)
		}

		target := join(dest, filepath.ToSlash(rel))

		if d.IsDir() {
			dirInfo, err := d.Info()
			if err != nil {
				return fmt.Errorf("backup: stat %s: %w", walkPath, err)
			}

			if err := destFS.MkdirAll(target, 0o750); err != nil { //nolint:mnd // matches host dir-permission convention
				return fmt.Errorf("backup: creating %s: %w", target, err)
			}

			dirMTimes = append(dirMTimes, dirMTime{path: target, mtime: dirInfo.ModTime()})

			return nil
		}

		written, err := copyToDest(destFS, walkPath, target)
		if err != nil {
			return fmt.Errorf("backup: copying %s: %w", walkPath, err)
		}

		total += written

		fileInfo, err := d.Info()
		if err != nil {
			return fmt.Errorf("backup: stat %s: %w", walkPath, err)
		}

		if err := destFS.Chtimes(target, fileInfo.ModTime(), fileInfo.ModTime()); err != nil {
			return fmt.Errorf("backup: preserving mtime for %s: %w", target, err)
		}

		return nil
	})
	if walkErr != nil {
		return Result{}, walkErr
	}

	// Copying files into a directory bumps its mtime, so restore
	// directory mtimes only after every descendant has been written,
	// deepest first.
	for i := len(dirMTimes) - 1; i >= 0; i-- {
		d := dirMTimes[i]
		if err := destFS.Chtimes(d.path, d.mtime, d.mtime); err != nil {
			return Result{Destination: dest, BytesCopied: total},
				fmt.Errorf("backup: preserving mtime for %s: %w", d.path, err)
		}
	}

	return Result{Destination: dest, BytesCopied: total}, nil
}

// copyToDest streams srcPath's bytes into destFS at target through the
// FileSystem abstraction, so the same loop backs up to a local disk or an
// SFTP client without a source/destination type switch.
func copyToDest(destFS filesystem.FileSystem, srcPath, target string) (int64, error) {
	src, err := os.Open(srcPath) //nolint:gosec // path comes from a WalkDir of a configured library directory
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", srcPath, err)
	}

	defer func() {
		_ = src.Close()
	}()

	dst, err := destFS.Create(target)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", target, err)
	}

	defer func() {
		_ = dst.Close()
	}()

	written, err := io.Copy(dst, src)
	if err != nil {
		return written, fmt.Errorf("copying to %s: %w", target, err)
	}

	return written, nil
}

type dirMTime struct {
	path  string
	mtime time.Time
}
