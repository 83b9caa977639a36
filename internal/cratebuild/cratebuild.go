// Package cratebuild turns a scanned MediaNode tree into the set of Crate
// objects the smart writer will persist (spec §4.H).
package cratebuild

import (
	"strings"

	"github.com/cyber-demon-dev/ser-sync-pro/internal/medialib"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/crate"
)

// NameDelimiter separates hierarchy segments in a serialized CrateName
// (spec §3).
const NameDelimiter = "%%"

// Dedup answers whether a track already exists in the target library, for
// the "skipped existing" counter (spec §4.J). A nil Dedup means "dedup
// disabled": nothing is ever considered pre-existing.
type Dedup interface {
	Contains(trackPath string, size string) bool
}

// Built is one crate produced by Build: its hierarchical name and the
// in-memory Crate ready for the smart writer.
type Built struct {
	Name  string
	Crate *crate.Crate
}

// Stats reports counters accumulated while building the crate tree.
type Stats struct {
	CratesBuilt     int
	TracksAdded     int
	SkippedExisting int
}

// Build traverses root and produces one Built per MediaNode: the root
// itself becomes the crate named parentName (depth 0); each node at
// depth >= 1 becomes a crate named parentName + "%%" + its path segments
// (spec §4.H). encoder, if non-nil, is attached to every produced Crate so
// AddTrack prefers the host's on-record filename bytes.
func Build(root *medialib.MediaNode, parentName string, dedup Dedup, encoder crate.FilenameEncoder) ([]Built, Stats) {
	var (
		out   []Built
		stats Stats
	)

	rootCrate := crate.New()
	rootCrate.SetFilenameEncoder(encoder)
	addTracks(rootCrate, root.Tracks, dedup, &stats)

	out = append(out, Built{Name: parentName, Crate: rootCrate})
	stats.CratesBuilt++

	for _, child := range root.Children {
		out = buildSubtree(child, parentName, dedup, encoder, out, &stats)
	}

	return out, stats
}

func buildSubtree(
	node *medialib.MediaNode, parentName string, dedup Dedup, encoder crate.FilenameEncoder, out []Built, stats *Stats,
) []Built {
	name := joinCrateName(parentName, node.Name)

	c := crate.New()
	c.SetFilenameEncoder(encoder)
	addTracks(c, node.Tracks, dedup, stats)

	out = append(out, Built{Name: name, Crate: c})
	stats.CratesBuilt++

	for _, child := range node.Children {
		out = buildSubtree(child, name, dedup, encoder, out, stats)
	}

	return out
}

func addTracks(c *crate.Crate, tracks []string, dedup Dedup, stats *Stats) {
	for _, t := range tracks {
		if dedup != nil && dedup.Contains(t, "") {
			stats.SkippedExisting++
			continue
		}

		if c.AddTrack(t) {
			stats.TracksAdded++
		}
	}
}

func joinCrateName(parent, segment string) string {
	if parent == "" {
		return segment
	}

	return strings.Join([]string{parent, segment}, NameDelimiter)
}
