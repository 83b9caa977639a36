package session

import (
	"fmt"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
)

// Parse reads a .session file: the same header shape as the index (vrsn +
// two zero bytes + 16-bit length + UTF-16BE version), then a sequence of
// oent blocks, each wrapping one adat block whose fields are keyed by a
// 32-bit ID (spec §4.F).
func Parse(data []byte) (*Session, error) {
	p := binio.NewBufferedPeeker(data)

	if err := readSessionHeader(p); err != nil {
		return nil, err
	}

	s := &Session{}

	peeked, ok := p.Peek(4) //nolint:mnd // 4-byte tag
	if ok && string(peeked) == "oses" {
		if _, err := p.ReadBytes(4); err != nil { //nolint:mnd // consume the tag we just peeked
			return nil, fmt.Errorf("session: consuming oses tag: %w", err)
		}

		summary, err := readEntry(p)
		if err != nil {
			return nil, fmt.Errorf("session: reading oses summary: %w", err)
		}

		s.Summary = &summary
	}

	for {
		atEOF, err := p.ExpectASCII("oent")
		if err != nil {
			return nil, fmt.Errorf("session: expecting oent: %w", err)
		}

		if atEOF {
			return s, nil
		}

		entry, err := readEntry(p)
		if err != nil {
			return nil, err
		}

		s.Entries = append(s.Entries, entry)
	}
}

func readSessionHeader(p *binio.BufferedPeeker) error {
	atEOF, err := p.ExpectASCII("vrsn")
	if err != nil {
		return fmt.Errorf("session: reading header tag: %w", err)
	}

	if atEOF {
		return &binio.FormatMismatchError{Expected: "vrsn", Actual: "", Offset: 0}
	}

	if _, err := p.ReadBytes(2); err != nil { //nolint:mnd // two reserved zero bytes
		return fmt.Errorf("session: reading header padding: %w", err)
	}

	versionLen, err := p.ReadUint16()
	if err != nil {
		return fmt.Errorf("session: reading header length: %w", err)
	}

	if _, err := p.ReadUTF16BE(int(versionLen)); err != nil {
		return fmt.Errorf("session: reading header version: %w", err)
	}

	return nil
}

func readEntry(p *binio.BufferedPeeker) (Entry, error) {
	oentLen, err := p.ReadUint32()
	if err != nil {
		return Entry{}, fmt.Errorf("session: reading oent length: %w", err)
	}

	oentPayload, err := p.ReadBytes(int(oentLen))
	if err != nil {
		return Entry{}, fmt.Errorf("session: reading oent payload: %w", err)
	}

	return parseEntryPayload(oentPayload)
}

// parseEntryPayload parses a wrapper payload (an oent's or an oses's) that
// contains exactly one adat block.
func parseEntryPayload(wrapperPayload []byte) (Entry, error) {
	inner := binio.NewBufferedPeeker(wrapperPayload)

	if _, err := inner.ExpectASCII("adat"); err != nil {
		return Entry{}, fmt.Errorf("session: expecting adat: %w", err)
	}

	adatLen, err := inner.ReadUint32()
	if err != nil {
		return Entry{}, fmt.Errorf("session: reading adat length: %w", err)
	}

	adatPayload, err := inner.ReadBytes(int(adatLen))
	if err != nil {
		return Entry{}, fmt.Errorf("session: reading adat payload: %w", err)
	}

	fields, err := readFields(adatPayload)
	if err != nil {
		return Entry{}, err
	}

	return Entry{Fields: fields}, nil
}

func readFields(payload []byte) ([]Field, error) {
	p := binio.NewBufferedPeeker(payload)

	var fields []Field

	for p.Remaining() > 0 {
		id, err := p.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("session: reading field id: %w", err)
		}

		fieldLen, err := p.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("session: reading field length: %w", err)
		}

		fieldPayload, err := p.ReadBytes(int(fieldLen))
		if err != nil {
			return nil, fmt.Errorf("session: reading field payload: %w", err)
		}

		fields = append(fields, Field{ID: id, Payload: fieldPayload})
	}

	return fields, nil
}
