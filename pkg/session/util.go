package session

import "github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"

// decodeUTF16BEStripNUL decodes a UTF-16BE payload and strips any trailing
// 16-bit NUL code units, as the 0x02 file-path field sometimes carries them
// as padding.
func decodeUTF16BEStripNUL(payload []byte) string {
	trimmed := stripTrailingNULUnits(payload)

	p := binio.NewBufferedPeeker(trimmed)

	s, err := p.ReadUTF16BE(len(trimmed))
	if err != nil {
		return ""
	}

	return s
}

// stripTrailingNULUnits removes trailing 0x00 0x00 16-bit units from a
// UTF-16BE byte payload.
func stripTrailingNULUnits(payload []byte) []byte {
	end := len(payload)
	for end >= 2 && payload[end-2] == 0 && payload[end-1] == 0 { //nolint:mnd // 16-bit code unit width
		end -= 2 //nolint:mnd // 16-bit code unit width
	}

	return payload[:end]
}

// trailingNULUnitCount reports how many trailing 16-bit NUL units payload
// carries.
func trailingNULUnitCount(payload []byte) int {
	return (len(payload) - len(stripTrailingNULUnits(payload))) / 2 //nolint:mnd // 16-bit code unit width
}
