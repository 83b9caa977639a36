// Package crate implements the Serato-style crate container format
// (spec §4.C): parsing, in-memory mutation, and serialization of
// hierarchical playlist files.
package crate

import (
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"
)

// Default field values (spec §3).
const (
	DefaultVersion     = "81.0"
	DefaultSortKey     = "song"
	DefaultSortRevision = 1 << 8
)

// DefaultColumns are the columns a freshly created crate carries when none
// are set explicitly.
func DefaultColumns() []string {
	return []string{"song", "artist", "album", "length"}
}

// FilenameEncoder resolves the exact byte-for-byte filename a host index
// already has on record for a given filesystem path, so that a freshly
// written crate can reuse the host's encoding instead of minting a new one
// (spec §4.J). A nil FilenameEncoder means "no index available".
type FilenameEncoder interface {
	// EncodedFilename returns the index's on-record path for the file at
	// fsPath, and true, if the index has an entry for it by filename.
	EncodedFilename(fsPath string) (string, bool)
}

// Crate is the in-memory representation of a .crate file (spec §3).
type Crate struct {
	version      string
	sortKey      string
	sortRevision uint64
	hasSortRev   bool
	columns      []string
	tracks       []string
	dedupKeys    map[string]struct{}

	// encoder is a non-owning reference to an Index (or similar) used to
	// prefer the host's own filename byte-encoding when tracks are added.
	// The Crate never outlives the value referenced here (orchestrator
	// invariant, spec §3 Ownership).
	encoder FilenameEncoder
}

// New creates an empty Crate with the default version/sort/columns.
func New() *Crate {
	return &Crate{
		dedupKeys: make(map[string]struct{}),
	}
}

// SetFilenameEncoder attaches a FilenameEncoder used by AddTrack to prefer
// the host's on-record filename bytes.
func (c *Crate) SetFilenameEncoder(enc FilenameEncoder) {
	c.encoder = enc
}

// Version returns the crate's version string, or DefaultVersion if unset.
func (c *Crate) Version() string {
	if c.version == "" {
		return DefaultVersion
	}

	return c.version
}

// SetVersion sets the crate's version string. It must be exactly 4 bytes
// once encoded (the on-disk header reserves 8 UTF-16BE bytes for it).
func (c *Crate) SetVersion(v string) {
	c.version = v
}

// SortKey returns the crate's sort key, or DefaultSortKey if unset.
func (c *Crate) SortKey() string {
	if c.sortKey == "" {
		return DefaultSortKey
	}

	return c.sortKey
}

// SetSortKey sets the crate's sort key.
func (c *Crate) SetSortKey(key string) {
	c.sortKey = key
}

// SortRevision returns the crate's sort revision, or DefaultSortRevision if unset.
func (c *Crate) SortRevision() uint64 {
	if !c.hasSortRev {
		return DefaultSortRevision
	}

	return c.sortRevision
}

// SetSortRevision sets the crate's sort revision.
func (c *Crate) SetSortRevision(rev uint64) {
	c.sortRevision = rev
	c.hasSortRev = true
}

// Columns returns the crate's column list, or DefaultColumns() if none were
// added.
func (c *Crate) Columns() []string {
	if len(c.columns) == 0 {
		return DefaultColumns()
	}

	cols := make([]string, len(c.columns))
	copy(cols, c.columns)

	return cols
}

// AddColumn appends a column definition.
func (c *Crate) AddColumn(name string) {
	c.columns = append(c.columns, name)
}

// Tracks returns the crate's track path list in insertion order.
func (c *Crate) Tracks() []string {
	tracks := make([]string, len(c.tracks))
	copy(tracks, c.tracks)

	return tracks
}

// SetTrackAt overwrites the track path already at index i with path,
// without consulting or updating dedup keys. Used by the crate-path fixer
// to correct an existing entry's bytes in place rather than add a new
// track (spec §4.K).
func (c *Crate) SetTrackAt(i int, path string) {
	if i < 0 || i >= len(c.tracks) {
		return
	}

	c.tracks[i] = path
}

// TrackCount returns the number of tracks in the crate.
func (c *Crate) TrackCount() int {
	return len(c.tracks)
}

// AddTrack appends trackPath to the crate, unless a track with the same
// NFC-lowercased leaf filename is already present (spec §3 invariant). If a
// FilenameEncoder is attached and has an entry for trackPath, the host's
// on-record encoding is stored instead of trackPath verbatim, so a freshly
// written crate agrees byte-for-byte with the index.
func (c *Crate) AddTrack(trackPath string) bool {
	key := pathnorm.NFCLowerFilename(trackPath)
	if _, exists := c.dedupKeys[key]; exists {
		return false
	}

	if c.dedupKeys == nil {
		c.dedupKeys = make(map[string]struct{})
	}

	stored := trackPath

	if c.encoder != nil {
		if encoded, ok := c.encoder.EncodedFilename(trackPath); ok {
			stored = encoded
		}
	}

	c.dedupKeys[key] = struct{}{}
	c.tracks = append(c.tracks, stored)

	return true
}

// AddTracks calls AddTrack for each path in order, ignoring rejected dupes.
func (c *Crate) AddTracks(paths []string) {
	for _, p := range paths {
		c.AddTrack(p)
	}
}

// Equal reports whether c and other are semantically equal per spec §4.C:
// same version, sort key, sort revision, column list, and canonical-form
// track lists compared element-wise. Absolute vs relative and slash
// direction differences in track paths do not cause inequality.
func (c *Crate) Equal(other *Crate) bool {
	if other == nil {
		return false
	}

	if c.Version() != other.Version() || c.SortKey() != other.SortKey() || c.SortRevision() != other.SortRevision() {
		return false
	}

	if !stringSlicesEqual(c.Columns(), other.Columns()) {
		return false
	}

	a, b := c.Tracks(), other.Tracks()
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if pathnorm.Canonical(a[i]) != pathnorm.Canonical(b[i]) {
			return false
		}
	}

	return true
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
