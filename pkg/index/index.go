// Package index implements the host's main library index format (spec §4.D,
// §4.E): a read-only track lookup built from `otrk`/`pfil`/`tsiz` records,
// and an in-place repair writer that rewrites `pfil` payloads while keeping
// enclosing block length fields consistent.
package index

import "github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"

// Track is one otrk record read from the index. Tsiz is empty when the
// record carried no tsiz field. A Track is never mutated in place; all
// mutation to the underlying bytes goes through ApplyFixes on the raw
// buffer (spec §3).
type Track struct {
	Pfil string
	Tsiz string
}

// lookupKey pairs a normalized string with an optional size. An empty size
// means "size unknown / not compared".
type lookupKey struct {
	key  string
	size string
}

// Index is the read-only, in-memory view built by Parse. It never owns or
// mutates the raw file bytes it was built from — repairs go through
// ApplyFixes on a byte buffer.
type Index struct {
	tracks         []Track
	byPath         map[lookupKey]string
	byFilename     map[lookupKey]string
	filenamesRaw   map[string]string // NFC-lowercased filename -> on-record pfil bytes (size-agnostic)
}

func newIndex() *Index {
	return &Index{
		byPath:       make(map[lookupKey]string),
		byFilename:   make(map[lookupKey]string),
		filenamesRaw: make(map[string]string),
	}
}

// Tracks returns all parsed track records in file order.
func (idx *Index) Tracks() []Track {
	out := make([]Track, len(idx.tracks))
	copy(out, idx.tracks)

	return out
}

// LookupByPath returns the on-record pfil bytes for a normalized-path/size
// pair (spec §4.D). size may be "" to match any record regardless of tsiz.
func (idx *Index) LookupByPath(normalizedPath, size string) (string, bool) {
	if v, ok := idx.byPath[lookupKey{key: normalizedPath, size: size}]; ok {
		return v, true
	}

	if size != "" {
		v, ok := idx.byPath[lookupKey{key: normalizedPath, size: ""}]

		return v, ok
	}

	return "", false
}

// LookupByFilename returns the on-record pfil bytes for an
// NFC-lowercased-filename/size pair (spec §4.D).
func (idx *Index) LookupByFilename(nfcLowerFilename, size string) (string, bool) {
	if v, ok := idx.byFilename[lookupKey{key: nfcLowerFilename, size: size}]; ok {
		return v, true
	}

	if size != "" {
		v, ok := idx.byFilename[lookupKey{key: nfcLowerFilename, size: ""}]

		return v, ok
	}

	return "", false
}

// EncodedFilename implements crate.FilenameEncoder: it resolves fsPath's
// leaf by NFC-lowercased filename and returns the index's on-record pfil
// bytes, ignoring size.
func (idx *Index) EncodedFilename(fsPath string) (string, bool) {
	v, ok := idx.filenamesRaw[pathnorm.NFCLowerFilename(fsPath)]

	return v, ok
}

func (idx *Index) add(t Track) {
	idx.tracks = append(idx.tracks, t)

	normPath := pathnorm.NFCLowerPath(t.Pfil)
	nfcFilename := pathnorm.NFCLowerFilename(t.Pfil)

	idx.byPath[lookupKey{key: normPath, size: t.Tsiz}] = t.Pfil
	idx.byPath[lookupKey{key: normPath, size: ""}] = t.Pfil
	idx.byFilename[lookupKey{key: nfcFilename, size: t.Tsiz}] = t.Pfil
	idx.byFilename[lookupKey{key: nfcFilename, size: ""}] = t.Pfil
	idx.filenamesRaw[nfcFilename] = t.Pfil
}
