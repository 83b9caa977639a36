// Package smartwrite implements the smart writer (spec §4.I): it only
// touches a crate file on disk when its content actually changed, so the
// host does not see spurious modified-time bumps.
package smartwrite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/cratebuild"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/crate"
)

// Stats reports how many crates were written vs left untouched.
type Stats struct {
	Updated int
	Skipped int
}

// Write applies the smart-write rule to every Built crate: parse the
// existing file (if any; a parse failure is treated as "missing"), skip
// if it is Crate-equal to the freshly built one, otherwise serialize and
// write (spec §4.I).
func Write(subcratesDir string, built []cratebuild.Built) (Stats, error) {
	var stats Stats

	for _, b := range built {
		updated, err := writeOne(subcratesDir, b)
		if err != nil {
			return stats, err
		}

		if updated {
			stats.Updated++
		} else {
			stats.Skipped++
		}
	}

	return stats, nil
}

func writeOne(subcratesDir string, b cratebuild.Built) (updated bool, err error) {
	path := filepath.Join(subcratesDir, b.Name+".crate")

	if existing, ok := parseExisting(path); ok && existing.Equal(b.Crate) {
		return false, nil
	}

	data, err := b.Crate.Serialize()
	if err != nil {
		return false, fmt.Errorf("smartwrite: serializing %s: %w", b.Name, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:mnd,gosec // standard file permission, matches host convention
		return false, fmt.Errorf("smartwrite: writing %s: %w", path, err)
	}

	return true, nil
}

// parseExisting reads and parses path, returning ok=false when the file is
// absent or fails to parse (spec §4.I step 1: "if parse fails, treat as
// missing").
func parseExisting(path string) (*crate.Crate, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from configured library + crate name
	if err != nil {
		return nil, false
	}

	c, err := crate.Parse(data)
	if err != nil {
		return nil, false
	}

	return c, true
}
