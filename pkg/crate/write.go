package crate

import (
	"fmt"

	"github.com/cyber-demon-dev/ser-sync-pro/pkg/binio"
	"github.com/cyber-demon-dev/ser-sync-pro/pkg/pathnorm"
)

// Serialize emits c as crate-file bytes: header, one full-form osrt block,
// one ovct block per column, then one otrk block per track. Each track's
// on-disk path is canonical(p) applied to the in-memory track string —
// Unicode bytes are preserved, only slash direction and volume/drive
// prefixes are normalized away (spec §4.C Write).
func (c *Crate) Serialize() ([]byte, error) {
	w := binio.NewWriter()

	if err := writeHeader(w, c); err != nil {
		return nil, err
	}

	if err := writeSortBlock(w, c); err != nil {
		return nil, err
	}

	for _, col := range c.Columns() {
		if err := writeColumnBlock(w, col); err != nil {
			return nil, err
		}
	}

	for _, track := range c.Tracks() {
		if err := writeTrackBlock(w, pathnorm.Canonical(track)); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

func writeHeader(w *binio.Writer, c *Crate) error {
	version := c.Version()
	if len(version) != versionHeaderLen/2 { //nolint:mnd // version is a 4-char string, 8 bytes UTF-16BE
		return fmt.Errorf("crate: version %q must be exactly 4 characters", version)
	}

	w.WriteASCII("vrsn")
	w.WriteByte(0)
	w.WriteByte(0)

	if err := w.WriteUTF16BE(version); err != nil {
		return fmt.Errorf("crate: writing version: %w", err)
	}

	if err := w.WriteUTF16BE(headerLiteral); err != nil {
		return fmt.Errorf("crate: writing header literal: %w", err)
	}

	return nil
}

func writeSortBlock(w *binio.Writer, c *Crate) error {
	sortKeyLen, err := binio.UTF16BELen(c.SortKey())
	if err != nil {
		return fmt.Errorf("crate: measuring sort key: %w", err)
	}

	const brevFieldLen = 4 + 5 // "brev" tag + 5-byte revision
	tvcnOverhead := 4 + 4      // "tvcn" tag + length field

	w.WriteASCII("osrt")
	w.WriteUint32(uint32(tvcnOverhead + sortKeyLen + brevFieldLen)) //nolint:gosec // bounded by realistic sort-key lengths
	w.WriteASCII("tvcn")
	w.WriteUint32(uint32(sortKeyLen)) //nolint:gosec // bounded by realistic sort-key lengths

	if err := w.WriteUTF16BE(c.SortKey()); err != nil {
		return fmt.Errorf("crate: writing sort key: %w", err)
	}

	w.WriteASCII("brev")
	w.WriteUint40(c.SortRevision())

	return nil
}

func writeColumnBlock(w *binio.Writer, name string) error {
	nameLen, err := binio.UTF16BELen(name)
	if err != nil {
		return fmt.Errorf("crate: measuring column name %q: %w", name, err)
	}

	const tvcwFieldLen = 4 + 4 + 2 // "tvcw" tag + length(=2) + 2-byte payload
	tvcnOverhead := 4 + 4          // "tvcn" tag + length field

	w.WriteASCII("ovct")
	w.WriteUint32(uint32(tvcnOverhead + nameLen + tvcwFieldLen)) //nolint:gosec // bounded by realistic column-name lengths
	w.WriteASCII("tvcn")
	w.WriteUint32(uint32(nameLen)) //nolint:gosec // bounded by realistic column-name lengths

	if err := w.WriteUTF16BE(name); err != nil {
		return fmt.Errorf("crate: writing column name: %w", err)
	}

	w.WriteASCII("tvcw")
	w.WriteUint32(2) //nolint:mnd // tvcw payload is always 2 bytes
	w.WriteByte(0)
	w.WriteByte('0')

	return nil
}

func writeTrackBlock(w *binio.Writer, path string) error {
	pathLen, err := binio.UTF16BELen(path)
	if err != nil {
		return fmt.Errorf("crate: measuring track path %q: %w", path, err)
	}

	const ptrkOverhead = 4 + 4 // "ptrk" tag + length field

	w.WriteASCII("otrk")
	w.WriteUint32(uint32(ptrkOverhead + pathLen)) //nolint:gosec // bounded by realistic path lengths
	w.WriteASCII("ptrk")
	w.WriteUint32(uint32(pathLen)) //nolint:gosec // bounded by realistic path lengths

	if err := w.WriteUTF16BE(path); err != nil {
		return fmt.Errorf("crate: writing track path: %w", err)
	}

	return nil
}
