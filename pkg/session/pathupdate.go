package session

import (
	"bytes"
	"encoding/binary"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
)

// fieldSite locates one 0x02 field inside a parsed oent block.
type fieldSite struct {
	oentLengthFieldOffset int
	oentLength            int

	adatLengthFieldOffset int
	adatLength            int

	fieldLengthFieldOffset int
	fieldPayloadOffset     int
	fieldPayloadLen        int
}

// UpdatePath rewrites the 0x02 file-path field of every oent entry whose
// path (after stripping trailing 16-bit NUL units) equals oldPath (after
// the same stripping) to newPath, padded with the same count of trailing
// NUL units the original field carried, and recomputes the enclosing adat
// and oent length fields (spec §4.F). It returns the updated buffer and the
// number of entries changed. A malformed buffer aborts the whole operation,
// returning the original bytes and zero changes.
func UpdatePath(data []byte, oldPath, newPath string) ([]byte, int, error) {
	oldPathStripped := stripTrailingUnitsFromString(oldPath)

	sites, ok := scanFieldSites(data)
	if !ok {
		return data, 0, nil
	}

	buf := data
	changed := 0

	// Apply from the end backwards so earlier offsets in the buffer stay
	// valid while later ones are being rewritten in the same pass.
	for i := len(sites) - 1; i >= 0; i-- {
		site := sites[i]

		current := decodeUTF16BEStripNUL(buf[site.fieldPayloadOffset : site.fieldPayloadOffset+site.fieldPayloadLen])
		if current != oldPathStripped {
			continue
		}

		nulCount := trailingNULUnitCount(buf[site.fieldPayloadOffset : site.fieldPayloadOffset+site.fieldPayloadLen])

		newPayload, err := buildPaddedPayload(newPath, nulCount)
		if err != nil {
			return data, 0, nil
		}

		delta := len(newPayload) - site.fieldPayloadLen

		out := make([]byte, 0, len(buf)+delta)
		out = append(out, buf[:site.oentLengthFieldOffset]...)
		out = binary.BigEndian.AppendUint32(out, uint32(site.oentLength+delta)) //nolint:gosec // bounded by realistic file sizes
		out = append(out, buf[site.oentLengthFieldOffset+4:site.adatLengthFieldOffset]...)
		out = binary.BigEndian.AppendUint32(out, uint32(site.adatLength+delta)) //nolint:gosec // bounded by realistic file sizes
		out = append(out, buf[site.adatLengthFieldOffset+4:site.fieldLengthFieldOffset]...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(newPayload))) //nolint:gosec // bounded by realistic path lengths
		out = append(out, buf[site.fieldLengthFieldOffset+4:site.fieldPayloadOffset]...)
		out = append(out, newPayload...)
		out = append(out, buf[site.fieldPayloadOffset+site.fieldPayloadLen:]...)

		buf = out
		changed++
	}

	return buf, changed, nil
}

func stripTrailingUnitsFromString(s string) string {
	encoded, err := binio.EncodeUTF16BE(s)
	if err != nil {
		return s
	}

	return decodeUTF16BEStripNUL(encoded)
}

func buildPaddedPayload(path string, nulUnits int) ([]byte, error) {
	encoded, err := binio.EncodeUTF16BE(path)
	if err != nil {
		return nil, err
	}

	padding := bytes.Repeat([]byte{0, 0}, nulUnits)

	return append(encoded, padding...), nil
}

// scanFieldSites walks the session header and every oent/adat block,
// locating each 0x02 field's position. ok is false if the structure cannot
// be fully validated.
func scanFieldSites(data []byte) (sites []fieldSite, ok bool) {
	offset, ok := headerLenSession(data)
	if !ok {
		return nil, false
	}

	// An optional leading "oses" summary block precedes the oent sequence,
	// the same as codec.go's Parse skips before reading entries.
	if offset+4 <= len(data) && string(data[offset:offset+4]) == "oses" { //nolint:mnd // 4-byte tag
		_, next, valid := scanOneWrapper(data, offset, "oses")
		if !valid {
			return nil, false
		}

		offset = next
	}

	for offset < len(data) {
		oentSite, next, valid := scanOneWrapper(data, offset, "oent")
		if !valid {
			return nil, false
		}

		sites = append(sites, oentSite...)
		offset = next
	}

	return sites, true
}

func scanOneWrapper(data []byte, offset int, tag string) (sites []fieldSite, next int, ok bool) {
	if offset+8 > len(data) { //nolint:mnd // tag(4) + length(4)
		return nil, 0, false
	}

	if string(data[offset:offset+4]) != tag { //nolint:mnd // 4-byte tag
		return nil, 0, false
	}

	oentLengthFieldOffset := offset + 4 //nolint:mnd // tag width
	oentLength := int(binary.BigEndian.Uint32(data[oentLengthFieldOffset : oentLengthFieldOffset+4]))
	oentPayloadOffset := oentLengthFieldOffset + 4 //nolint:mnd // length field width
	oentEnd := oentPayloadOffset + oentLength

	if oentEnd > len(data) {
		return nil, 0, false
	}

	if oentPayloadOffset+8 > oentEnd { //nolint:mnd // tag(4) + length(4)
		return nil, 0, false
	}

	if string(data[oentPayloadOffset:oentPayloadOffset+4]) != "adat" { //nolint:mnd // 4-byte tag
		return nil, 0, false
	}

	adatLengthFieldOffset := oentPayloadOffset + 4 //nolint:mnd // tag width
	adatLength := int(binary.BigEndian.Uint32(data[adatLengthFieldOffset : adatLengthFieldOffset+4]))
	adatPayloadOffset := adatLengthFieldOffset + 4 //nolint:mnd // length field width

	if adatPayloadOffset+adatLength > oentEnd {
		return nil, 0, false
	}

	fields, valid := scanSessionFields(data, adatPayloadOffset, adatLength)
	if !valid {
		return nil, 0, false
	}

	for _, f := range fields {
		if f.id != FieldFilePath {
			continue
		}

		sites = append(sites, fieldSite{
			oentLengthFieldOffset:  oentLengthFieldOffset,
			oentLength:             oentLength,
			adatLengthFieldOffset:  adatLengthFieldOffset,
			adatLength:             adatLength,
			fieldLengthFieldOffset: f.lengthFieldOffset,
			fieldPayloadOffset:     f.payloadOffset,
			fieldPayloadLen:        f.payloadLen,
		})
	}

	return sites, oentEnd, true
}

type sessionFieldSite struct {
	id                uint32
	lengthFieldOffset int
	payloadOffset     int
	payloadLen        int
}

func scanSessionFields(data []byte, payloadOffset, payloadLen int) ([]sessionFieldSite, bool) {
	end := payloadOffset + payloadLen
	cursor := payloadOffset

	var fields []sessionFieldSite

	for cursor < end {
		if cursor+8 > end { //nolint:mnd // id(4) + length(4)
			return nil, false
		}

		id := binary.BigEndian.Uint32(data[cursor : cursor+4])
		lengthFieldOffset := cursor + 4 //nolint:mnd // id width
		fLen := int(binary.BigEndian.Uint32(data[lengthFieldOffset : lengthFieldOffset+4]))
		payOff := lengthFieldOffset + 4 //nolint:mnd // length field width

		if payOff+fLen > end {
			return nil, false
		}

		fields = append(fields, sessionFieldSite{id: id, lengthFieldOffset: lengthFieldOffset, payloadOffset: payOff, payloadLen: fLen})
		cursor = payOff + fLen
	}

	return fields, true
}

// headerLenSession mirrors index's headerLen: vrsn + two zero bytes +
// 16-bit length + UTF-16BE version.
func headerLenSession(data []byte) (int, bool) {
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
