package index

// PathFix is an ordered pair (Old, New) of pfil byte sequences (spec §3).
// Old must equal a pfil payload verbatim, byte-for-byte, to match — no
// Unicode-form coercion. Both fields hold decoded strings; ApplyFixes
// re-encodes them as UTF-16BE to compare against and replace the raw bytes
// stored in the index file.
type PathFix struct {
	Old string
	New string
}
