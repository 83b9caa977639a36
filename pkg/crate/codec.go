package crate

import (
	"fmt"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
)

const (
	versionHeaderLen = 8 // 4-char version string as UTF-16BE
	headerLiteral    = "/Serato ScratchLive Crate"
)

// Parse reads a crate file from data (the whole file, already loaded into
// memory). A clean EOF before the first otrk block yields an empty crate,
// per spec §4.C.
func Parse(data []byte) (*Crate, error) {
	p := binio.NewBufferedPeeker(data)
	c := New()

	if err := readHeader(p, c); err != nil {
		return nil, err
	}

	firstTag, atEOF, err := readMetadataBlocks(p, c)
	if err != nil {
		return nil, err
	}

	if atEOF {
		return c, nil
	}

	if err := readTracks(p, c, firstTag); err != nil {
		return nil, err
	}

	return c, nil
}

func readHeader(p *binio.BufferedPeeker, c *Crate) error {
	atEOF, err := p.ExpectASCII("vrsn")
	if err != nil {
		return fmt.Errorf("crate: reading header tag: %w", err)
	}

	if atEOF {
		return &binio.FormatMismatchError{Expected: "vrsn", Actual: "", Offset: 0}
	}

	if _, err := p.ReadBytes(2); err != nil { //nolint:mnd // two reserved zero bytes
		return fmt.Errorf("crate: reading header padding: %w", err)
	}

	version, err := p.ReadUTF16BE(versionHeaderLen)
	if err != nil {
		return fmt.Errorf("crate: reading version: %w", err)
	}

	c.SetVersion(version)

	if err := p.ExpectUTF16BE(headerLiteral); err != nil {
		return fmt.Errorf("crate: reading header literal: %w", err)
	}

	return nil
}

// readMetadataBlocks consumes osrt/ovct/<unknown> blocks until it sees an
// otrk tag or a clean EOF. When it stops on otrk, that tag has already been
// consumed from the stream; it is returned as firstTag so the caller's
// track loop knows not to re-read it.
func readMetadataBlocks(p *binio.BufferedPeeker, c *Crate) (firstTag string, atEOF bool, err error) {
	for {
		tagBytes, ok := p.Peek(4) //nolint:mnd // 4-byte tag
		if !ok {
			return "", true, nil
		}

		tag := string(tagBytes)

		if tag == "otrk" {
			if _, err := p.ReadBytes(4); err != nil { //nolint:mnd // consume the tag we just peeked
				return "", false, fmt.Errorf("crate: consuming otrk tag: %w", err)
			}

			return "otrk", false, nil
		}

		if _, err := p.ReadBytes(4); err != nil { //nolint:mnd // consume the tag
			return "", false, fmt.Errorf("crate: reading block tag: %w", err)
		}

		switch tag {
		case "ovct":
			if err := readColumnBlock(p, c); err != nil {
				return "", false, err
			}
		case "osrt":
			if err := readSortBlock(p, c); err != nil {
				return "", false, err
			}
		default:
			if err := skipUnknownBlock(p); err != nil {
				return "", false, err
			}
		}
	}
}

func skipUnknownBlock(p *binio.BufferedPeeker) error {
	length, err := p.ReadUint32()
	if err != nil {
		return fmt.Errorf("crate: reading unknown block length: %w", err)
	}

	if _, err := p.ReadBytes(int(length)); err != nil {
		return fmt.Errorf("crate: skipping unknown block: %w", err)
	}

	return nil
}

func readColumnBlock(p *binio.BufferedPeeker, c *Crate) error {
	if _, err := p.ReadUint32(); err != nil { // ovct block length, unused beyond consuming
		return fmt.Errorf("crate: reading ovct length: %w", err)
	}

	if _, err := p.ExpectASCII("tvcn"); err != nil {
		return fmt.Errorf("crate: expecting tvcn in ovct: %w", err)
	}

	nameLen, err := p.ReadUint32()
	if err != nil {
		return fmt.Errorf("crate: reading column name length: %w", err)
	}

	name, err := p.ReadUTF16BE(int(nameLen))
	if err != nil {
		return fmt.Errorf("crate: reading column name: %w", err)
	}

	c.AddColumn(name)

	if _, err := p.ExpectASCII("tvcw"); err != nil {
		return fmt.Errorf("crate: expecting tvcw in ovct: %w", err)
	}

	if _, err := p.ReadUint32(); err != nil { // tvcw length, always 2
		return fmt.Errorf("crate: reading tvcw length: %w", err)
	}

	if _, err := p.ReadBytes(2); err != nil { //nolint:mnd // leading zero byte + trailing byte (any value)
		return fmt.Errorf("crate: reading tvcw payload: %w", err)
	}

	return nil
}

func readSortBlock(p *binio.BufferedPeeker, c *Crate) error {
	if _, err := p.ReadUint32(); err != nil { // osrt block length, unused beyond consuming
		return fmt.Errorf("crate: reading osrt length: %w", err)
	}

	peeked, ok := p.Peek(4) //nolint:mnd // 4-byte tag
	if ok && string(peeked) == "tvcn" {
		if _, err := p.ReadBytes(4); err != nil { //nolint:mnd // consume tvcn
			return fmt.Errorf("crate: consuming tvcn in osrt: %w", err)
		}

		nameLen, err := p.ReadUint32()
		if err != nil {
			return fmt.Errorf("crate: reading sort name length: %w", err)
		}

		name, err := p.ReadUTF16BE(int(nameLen))
		if err != nil {
			return fmt.Errorf("crate: reading sort name: %w", err)
		}

		c.SetSortKey(name)
	}

	if _, err := p.ExpectASCII("brev"); err != nil {
		return fmt.Errorf("crate: expecting brev in osrt: %w", err)
	}

	rev, err := p.ReadUint40()
	if err != nil {
		return fmt.Errorf("crate: reading sort revision: %w", err)
	}

	c.SetSortRevision(rev)

	return nil
}

func readTracks(p *binio.BufferedPeeker, c *Crate, firstTag string) error {
	first := firstTag == "otrk"

	for {
		if !first {
			atEOF, err := p.ExpectASCII("otrk")
			if err != nil {
				return fmt.Errorf("crate: expecting otrk: %w", err)
			}

			if atEOF {
				return nil
			}
		}

		first = false

		if _, err := p.ReadUint32(); err != nil { // otrk record length, unused: derived from ptrk payload
			return fmt.Errorf("crate: reading otrk length: %w", err)
		}

		if _, err := p.ExpectASCII("ptrk"); err != nil {
			return fmt.Errorf("crate: expecting ptrk: %w", err)
		}

		nameLen, err := p.ReadUint32()
		if err != nil {
			return fmt.Errorf("crate: reading track path length: %w", err)
		}

		path, err := p.ReadUTF16BE(int(nameLen))
		if err != nil {
			return fmt.Errorf("crate: reading track path: %w", err)
		}

		c.AddTrack(path)
	}
}
