// Package trackindex implements the unified dedup lookup (spec §4.J): a
// read-only view over the host's library index and an existing-crate scan
// that answers whether a track is already present in the target library.
package trackindex

import (
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/index"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"
)

// Mode selects how Contains compares tracks (spec §4.J).
type Mode int

const (
	// ModeOff always answers false.
	ModeOff Mode = iota
	// ModePath compares by normalized-path-and-size.
	ModePath
	// ModeFilename compares by NFC-lowercased-filename-and-size.
	ModeFilename
)

// Index is the unified lookup. A nil *index.Index and an empty
// existingCrateTracks are both valid: Contains then only ever answers what
// the other source can.
type Index struct {
	mode     Mode
	hostIdx  *index.Index
	crateSet map[string]struct{}
}

// New builds an Index. hostIdx may be nil (index absent or dedup off).
// existingCrateTracks lists every track path found while scanning the
// library's existing Subcrates before this run's writes.
func New(mode Mode, hostIdx *index.Index, existingCrateTracks []string) *Index {
	idx := &Index{mode: mode, hostIdx: hostIdx, crateSet: make(map[string]struct{})}

	if mode == ModeOff {
		return idx
	}

	for _, t := range existingCrateTracks {
		idx.crateSet[idx.key(t)] = struct{}{}
	}

	return idx
}

func (idx *Index) key(trackPath string) string {
	if idx.mode == ModeFilename {
		return pathnorm.NFCLowerFilename(trackPath)
	}

	return pathnorm.NFCLowerPath(trackPath)
}

// Contains answers whether trackPath (with optional size) already exists
// in the target library, per the configured mode (spec §4.J).
func (idx *Index) Contains(trackPath, size string) bool {
	if idx.mode == ModeOff {
		return false
	}

	key := idx.key(trackPath)

	if _, ok := idx.crateSet[key]; ok {
		return true
	}

	if idx.hostIdx == nil {
		return false
	}

	if idx.mode == ModeFilename {
		_, ok := idx.hostIdx.LookupByFilename(key, size)

		return ok
	}

	_, ok := idx.hostIdx.LookupByPath(key, size)

	return ok
}
