package session

import (
	"encoding/binary"
	"fmt"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
)

// ScrubSessions rewrites history.database, dropping every top-level oses
// block whose 0x02 file-path field (NUL-stripped) is in deletedPaths, and
// copying every other block — the vrsn header, ocol column defs, and
// surviving oses entries — through byte-for-byte unchanged (spec §4.F).
func ScrubSessions(data []byte, deletedPaths map[string]bool) ([]byte, int, error) {
	headerEnd, ok := headerLenSession(data)
	if !ok {
		return nil, 0, &binio.FormatMismatchError{Expected: "vrsn", Actual: "", Offset: 0}
	}

	out := make([]byte, headerEnd)
	copy(out, data[:headerEnd])

	removed := 0
	offset := headerEnd

	for offset < len(data) {
		tag, blockEnd, ok := topLevelBlockSpan(data, offset)
		if !ok {
			return nil, 0, fmt.Errorf("session: malformed block at offset %d", offset)
		}

		if tag == "oses" && blockMatchesDeletedPath(data, offset, blockEnd, deletedPaths) {
			removed++
			offset = blockEnd

			continue
		}

		out = append(out, data[offset:blockEnd]...)
		offset = blockEnd
	}

	return out, removed, nil
}

func topLevelBlockSpan(data []byte, offset int) (tag string, end int, ok bool) {
	if offset+8 > len(data) { //nolint:mnd // tag(4) + length(4)
		return "", 0, false
	}

	tag = string(data[offset : offset+4]) //nolint:mnd // 4-byte tag
	lengthFieldOffset := offset + 4       //nolint:mnd // tag width
	length := int(binary.BigEndian.Uint32(data[lengthFieldOffset : lengthFieldOffset+4]))
	payloadOffset := lengthFieldOffset + 4 //nolint:mnd // length field width
	end = payloadOffset + length

	if end > len(data) {
		return "", 0, false
	}

	return tag, end, true
}

func blockMatchesDeletedPath(data []byte, start, end int, deletedPaths map[string]bool) bool {
	const overhead = 4 + 4 // tag + length field, already validated by topLevelBlockSpan
	payload := data[start+overhead : end]

	entry, err := parseEntryPayload(payload)
	if err != nil {
		return false
	}

	path, ok := entry.FilePath()
	if !ok {
		return false
	}

	return deletedPaths[path]
}
