// Package session implements the host's session-history format (spec
// §4.F): parsing `oent`/`adat` entries, rewriting a path in place while
// preserving trailing-NUL padding, and scrubbing short sessions out of the
// history database.
package session

// Field IDs inside an adat block that the core treats as semantically
// significant. All other field IDs are read as opaque payloads and passed
// through unchanged (spec §4.F).
const (
	FieldFilePath uint32 = 0x02
	FieldDuration uint32 = 0x2D
)

// Field is one 32-bit-ID-keyed entry inside an adat block.
type Field struct {
	ID      uint32
	Payload []byte
}

// Entry is one oent record: an ordered list of adat fields.
type Entry struct {
	Fields []Field
}

// FilePath returns the decoded, NUL-stripped file path stored in this
// entry's 0x02 field, and whether one was present.
func (e Entry) FilePath() (string, bool) {
	for _, f := range e.Fields {
		if f.ID == FieldFilePath {
			return decodeUTF16BEStripNUL(f.Payload), true
		}
	}

	return "", false
}

// Duration returns the decoded 32-bit duration-in-seconds stored in this
// entry's 0x2D field, and whether one was present.
func (e Entry) Duration() (uint32, bool) {
	for _, f := range e.Fields {
		if f.ID == FieldDuration && len(f.Payload) == 4 { //nolint:mnd // 32-bit field
			return uint32(f.Payload[0])<<24 | uint32(f.Payload[1])<<16 | uint32(f.Payload[2])<<8 | uint32(f.Payload[3]), true
		}
	}

	return 0, false
}

// Session is the in-memory representation of a .session file: an optional
// leading oses summary entry (carrying the session's overall duration, the
// significant field for short-session deletion) followed by the ordered
// per-track oent entries.
type Session struct {
	Summary *Entry
	Entries []Entry
}

// Duration returns the 0x2D duration field from the session's summary
// entry, if present.
func (s *Session) Duration() (uint32, bool) {
	if s.Summary == nil {
		return 0, false
	}

	return s.Summary.Duration()
}

// ShouldDelete reports whether this session's duration is below
// thresholdSeconds. A session with no duration field is never deleted
// (there is nothing to compare against).
func (s *Session) ShouldDelete(thresholdSeconds uint32) bool {
	d, ok := s.Duration()
	if !ok {
		return false
	}

	return d < thresholdSeconds
}
