// Package pathnorm implements the path-identity layer described in
// spec §4.B: canonicalization, Unicode NFC/NFD normalization, and
// filename extraction, in a form that agrees with the host application's
// own conventions closely enough that round-tripped paths collide with
// its existing entries instead of duplicating them.
package pathnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

//nolint:gochecknoglobals // compiled once, read-only, shared across all calls
var (
	windowsDriveRE = regexp.MustCompile(`^[A-Za-z]:/`)
	volumesRootRE  = regexp.MustCompile(`^/Volumes/[^/]+/`)
)

// Canonical replaces backslashes with forward slashes, strips a leading
// Windows drive prefix ("C:/"), and strips a leading macOS volume prefix
// ("/Volumes/<name>/"). It does not touch Unicode normalization form or
// case, and it never mutates bytes it does not recognize as one of those
// two prefixes.
func Canonical(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = windowsDriveRE.ReplaceAllString(p, "")
	p = volumesRootRE.ReplaceAllString(p, "")

	return p
}

// Filename returns the leaf segment of p (after the last '/' or '\\')
// without any normalization.
func Filename(p string) string {
	idx := strings.LastIndexAny(p, `/\`)
	if idx < 0 {
		return p
	}

	return p[idx+1:]
}

// NFC returns s in Unicode Normalization Form C (composed).
func NFC(s string) string {
	return norm.NFC.String(s)
}

// NFD returns s in Unicode Normalization Form D (decomposed).
func NFD(s string) string {
	return norm.NFD.String(s)
}

// NFCLowerFilename extracts the leaf of p and returns it NFC-normalized and
// lowercased. This is the dedup/lookup key used throughout the pipeline
// (crate dedup, index filename lookup, crate-path fixer).
func NFCLowerFilename(p string) string {
	return strings.ToLower(NFC(Filename(p)))
}

// Equivalent reports whether a and b denote the same path after
// canonicalization, comparing exact Unicode bytes (no normalization).
func Equivalent(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// NFCLowerPath strips the volume prefix, applies NFC, and lowercases the
// whole path. This is the index's "normalized-path" lookup key (spec §4.D),
// distinct from NFCLowerFilename which only considers the leaf.
func NFCLowerPath(p string) string {
	return strings.ToLower(NFC(Canonical(p)))
}
