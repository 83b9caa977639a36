package index

import (
	"fmt"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
)

// Parse reads a "database V2" index file: header vrsn + two zero bytes +
// 16-bit length + UTF-16BE version, then a sequence of otrk blocks each
// containing tag/length/payload fields. pfil and tsiz are kept; every other
// field tag is skipped by length (spec §4.D).
func Parse(data []byte) (*Index, error) {
	p := binio.NewBufferedPeeker(data)

	if err := readIndexHeader(p); err != nil {
		return nil, err
	}

	idx := newIndex()

	for {
		atEOF, err := p.ExpectASCII("otrk")
		if err != nil {
			return nil, fmt.Errorf("index: expecting otrk: %w", err)
		}

		if atEOF {
			return idx, nil
		}

		if err := readIndexTrack(p, idx); err != nil {
			return nil, err
		}
	}
}

func readIndexHeader(p *binio.BufferedPeeker) error {
	atEOF, err := p.ExpectASCII("vrsn")
	if err != nil {
		return fmt.Errorf("index: reading header tag: %w", err)
	}

	if atEOF {
		return &binio.FormatMismatchError{Expected: "vrsn", Actual: "", Offset: 0}
	}

	if _, err := p.ReadBytes(2); err != nil { //nolint:mnd // two reserved zero bytes
		return fmt.Errorf("index: reading header padding: %w", err)
	}

	versionLen, err := p.ReadUint16()
	if err != nil {
		return fmt.Errorf("index: reading header length: %w", err)
	}

	if _, err := p.ReadUTF16BE(int(versionLen)); err != nil {
		return fmt.Errorf("index: reading header version: %w", err)
	}

	return nil
}

func readIndexTrack(p *binio.BufferedPeeker, idx *Index) error {
	blockLen, err := p.ReadUint32()
	if err != nil {
		return fmt.Errorf("index: reading otrk length: %w", err)
	}

	payload, err := p.ReadBytes(int(blockLen))
	if err != nil {
		return fmt.Errorf("index: reading otrk payload: %w", err)
	}

	fields := binio.NewBufferedPeeker(payload)

	var track Track

	for fields.Remaining() > 0 {
		tagBytes, err := fields.ReadBytes(4) //nolint:mnd // 4-byte field tag
		if err != nil {
			return fmt.Errorf("index: reading field tag: %w", err)
		}

		fieldLen, err := fields.ReadUint32()
		if err != nil {
			return fmt.Errorf("index: reading field length: %w", err)
		}

		fieldPayload, err := fields.ReadBytes(int(fieldLen))
		if err != nil {
			return fmt.Errorf("index: reading field payload: %w", err)
		}

		switch string(tagBytes) {
		case "pfil":
			s, decErr := decodeUTF16BEBytes(fieldPayload)
			if decErr != nil {
				return fmt.Errorf("index: decoding pfil: %w", decErr)
			}

			track.Pfil = s
		case "tsiz":
			s, decErr := decodeUTF16BEBytes(fieldPayload)
			if decErr != nil {
				return fmt.Errorf("index: decoding tsiz: %w", decErr)
			}

			track.Tsiz = s
		default:
			// opaque field (title, artist, timestamps, bpm, flags, ...): skipped
		}
	}

	idx.add(track)

	return nil
}

func decodeUTF16BEBytes(b []byte) (string, error) {
	p := binio.NewBufferedPeeker(b)

	return p.ReadUTF16BE(len(b))
}
