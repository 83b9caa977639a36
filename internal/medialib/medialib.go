// Package medialib implements the media-tree scanner (spec §4.G): a
// recursive, bounded-parallel walk of a filesystem tree that groups media
// files into a directory-shaped MediaNode tree.
package medialib

import "github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"

// MediaNode is one directory in the scanned tree. Tracks are absolute,
// symlink-resolved paths sorted by codepoint on the resolved path.
// Children are sorted by directory name. A MediaNode is immutable once
// Scan returns it (spec §3).
type MediaNode struct {
	Name     string
	Tracks   []string
	Children []*MediaNode
}

// Flatten walks the tree and returns a map from NFC-lowercased leaf
// filename to its absolute path, for every track in the tree. When two
// tracks share a leaf filename, the last one encountered (depth-first,
// children in sorted order) wins — callers needing disambiguation should
// prefer the on-disk path being currently processed over this map.
func Flatten(root *MediaNode) map[string]string {
	out := make(map[string]string)
	flattenInto(root, out)

	return out
}

func flattenInto(node *MediaNode, out map[string]string) {
	if node == nil {
		return
	}

	for _, track := range node.Tracks {
		out[pathnorm.NFCLowerFilename(track)] = track
	}

	for _, child := range node.Children {
		flattenInto(child, out)
	}
}
