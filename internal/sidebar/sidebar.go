// Package sidebar implements the sidebar-order emitter (spec §4.M): it
// writes the neworder.pref manifest listing every crate in a library's
// Subcrates directory, sorted lexicographically by name.
package sidebar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
)

const (
	beginRecord = "[begin record]"
	endRecord   = "[end record]"
	cratePrefix = "[crate]"
)

// Write enumerates <library>/Subcrates/*.crate, strips the ".crate"
// extension, sorts the resulting names lexicographically, and writes
// <library>/neworder.pref as UTF-16BE text with the fixed record framing
// (spec §4.M). An existing manifest is removed before the rewrite.
func Write(library string) error {
	names, err := crateNames(filepath.Join(library, "Subcrates"))
	if err != nil {
		return err
	}

	sort.Strings(names)

	encoded, err := binio.EncodeUTF16BE(renderManifest(names))
	if err != nil {
		return fmt.Errorf("sidebar: encoding manifest: %w", err)
	}

	path := filepath.Join(library, "neworder.pref")

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("sidebar: removing existing %s: %w", path, err)
	}

	if err := os.WriteFile(path, encoded, 0o644); err != nil { //nolint:mnd,gosec // matches host convention
		return fmt.Errorf("sidebar: writing %s: %w", path, err)
	}

	return nil
}

func renderManifest(names []string) string {
	var b strings.Builder

	b.WriteString(beginRecord)
	b.WriteString("\n")

	for _, name := range names {
		b.WriteString(cratePrefix)
		b.WriteString(name)
		b.WriteString("\n")
	}

	b.WriteString(endRecord)
	b.WriteString("\n")

	return b.String()
}

func crateNames(subcratesDir string) ([]string, error) {
	entries, err := os.ReadDir(subcratesDir)
	if err != nil {
		return nil, fmt.Errorf("sidebar: reading %s: %w", subcratesDir, err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".crate" {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), ".crate"))
	}

	return names, nil
}
