package index

import (
	"bytes"
	"encoding/binary"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
)

// otrkBlock describes one otrk block's position in a raw index buffer, and
// the position of its pfil field, if it has one.
type otrkBlock struct {
	lengthFieldOffset int
	length            int
	payloadOffset     int

	hasPfil               bool
	pfilLengthFieldOffset int
	pfilPayloadOffset     int
	pfilPayloadLen        int
}

// ApplyFixes rewrites the pfil payloads in data matching any of fixes,
// keeping enclosing otrk length fields consistent (spec §4.E). Fixes are
// applied sequentially: each applied fix's output becomes the input to the
// next, so offsets shift correctly between fixes. A fix whose old bytes do
// not match any pfil payload is silently skipped. If a fix reaches a block
// that cannot be parsed before finding its match, ApplyFixes returns the
// original data unchanged with zero fixes applied — callers never observe
// a partially mutated buffer. Blocks after a fix's match are not validated.
func ApplyFixes(data []byte, fixes []PathFix) ([]byte, int, error) {
	buf := data
	applied := 0

	for _, fix := range fixes {
		newBuf, ok, malformed := applyOneFix(buf, fix)
		if malformed {
			return data, 0, nil
		}

		if ok {
			applied++
			buf = newBuf
		}
	}

	return buf, applied, nil
}

// applyOneFix walks otrk blocks one at a time from the header, stopping the
// instant it finds the block whose pfil payload matches fix.Old. Spec §4.E's
// failure model only aborts on malformed blocks encountered *before* the
// target: a truncated or otherwise malformed block later in the file must
// not block a fix that already matched earlier, so this never validates
// structure beyond the matched block (ser_sync_database_fixer.java's
// replacePfilPath/findParentOtrk behave the same way — forward scan, stop
// at the target).
func applyOneFix(data []byte, fix PathFix) (newData []byte, applied bool, malformed bool) {
	oldBytes, err := binio.EncodeUTF16BE(fix.Old)
	if err != nil {
		return data, false, true
	}

	newBytes, err := binio.EncodeUTF16BE(fix.New)
	if err != nil {
		return data, false, true
	}

	offset, ok := headerLen(data)
	if !ok {
		return data, false, true
	}

	for offset < len(data) {
		b, next, ok := scanOneOtrkBlock(data, offset)
		if !ok {
			return data, false, true
		}

		offset = next

		if !b.hasPfil || !bytes.Equal(data[b.pfilPayloadOffset:b.pfilPayloadOffset+b.pfilPayloadLen], oldBytes) {
			continue
		}

		delta := len(newBytes) - len(oldBytes)

		out := make([]byte, 0, len(data)+delta)
		out = append(out, data[:b.lengthFieldOffset]...)
		out = binary.BigEndian.AppendUint32(out, uint32(b.length+delta)) //nolint:gosec // bounded by realistic file sizes
		out = append(out, data[b.lengthFieldOffset+4:b.pfilLengthFieldOffset]...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(newBytes))) //nolint:gosec // bounded by realistic path lengths
		out = append(out, data[b.pfilLengthFieldOffset+4:b.pfilPayloadOffset]...)
		out = append(out, newBytes...)
		out = append(out, data[b.pfilPayloadOffset+b.pfilPayloadLen:]...)

		return out, true, false
	}

	return data, false, false
}

// scanOneOtrkBlock parses the single otrk block starting at offset, returning
// its position (and its pfil field's position, if any) along with the offset
// of the block immediately following it. ok is false if this one block
// cannot be validated; blocks further down the buffer are never inspected.
func scanOneOtrkBlock(data []byte, offset int) (block otrkBlock, next int, ok bool) {
	if offset+8 > len(data) { //nolint:mnd // tag(4) + length(4)
		return otrkBlock{}, 0, false
	}

	if string(data[offset:offset+4]) != "otrk" { //nolint:mnd // 4-byte tag
		return otrkBlock{}, 0, false
	}

	lengthFieldOffset := offset + 4 //nolint:mnd // tag width
	blockLen := int(binary.BigEndian.Uint32(data[lengthFieldOffset : lengthFieldOffset+4]))
	payloadOffset := lengthFieldOffset + 4 //nolint:mnd // length field width

	if payloadOffset+blockLen > len(data) {
		return otrkBlock{}, 0, false
	}

	block = otrkBlock{
		lengthFieldOffset: lengthFieldOffset,
		length:            blockLen,
		payloadOffset:     payloadOffset,
	}

	fieldLenOff, payOff, payLen, hasPfil, fieldsOK := scanFieldsForPfil(data, payloadOffset, blockLen)
	if !fieldsOK {
		return otrkBlock{}, 0, false
	}

	block.hasPfil = hasPfil
	block.pfilLengthFieldOffset = fieldLenOff
	block.pfilPayloadOffset = payOff
	block.pfilPayloadLen = payLen

	return block, payloadOffset + blockLen, true
}

// scanFieldsForPfil walks the tag/length/payload fields inside one otrk's
// payload, validating that they exactly fill payloadLen bytes, and reports
// the position of the pfil field if one is present.
func scanFieldsForPfil(
	data []byte, payloadOffset, payloadLen int,
) (fieldLenOffset, fieldPayloadOffset, fieldPayloadLen int, hasPfil bool, ok bool) {
	end := payloadOffset + payloadLen
	cursor := payloadOffset

	for cursor < end {
		if cursor+8 > end { //nolint:mnd // tag(4) + length(4)
			return 0, 0, 0, false, false
		}

		tag := string(data[cursor : cursor+4]) //nolint:mnd // 4-byte tag
		lenOff := cursor + 4                   //nolint:mnd // tag width
		fLen := int(binary.BigEndian.Uint32(data[lenOff : lenOff+4]))
		payOff := lenOff + 4 //nolint:mnd // length field width

		if payOff+fLen > end {
			return 0, 0, 0, false, false
		}

		if tag == "pfil" {
			fieldLenOffset, fieldPayloadOffset, fieldPayloadLen, hasPfil = lenOff, payOff, fLen, true
		}

		cursor = payOff + fLen
	}

	return fieldLenOffset, fieldPayloadOffset, fieldPayloadLen, hasPfil, true
}

// headerLen returns the byte offset immediately after the index header
// (vrsn + two zero bytes + 16-bit length + UTF-16BE version), where the
// otrk sequence begins.
func headerLen(data []byte) (int, bool) {
	const fixedPrefix = 4 + 2 + 2 // "vrsn" + 2 zero bytes + 16-bit length field

	if len(data) < fixedPrefix {
		return 0, false
	}

	if string(data[0:4]) != "vrsn" { //nolint:mnd // 4-byte tag
		return 0, false
	}

	versionLen := int(binary.BigEndian.Uint16(data[6:8])) //nolint:mnd // header length field offset

	end := fixedPrefix + versionLen
	if end > len(data) {
		return 0, false
	}

	return end, true
}
