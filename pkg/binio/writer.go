package binio

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates bytes for a tagged-block binary format. It is a thin
// wrapper over bytes.Buffer since crate/index/session files are always
// built fully in memory before being written to disk in one shot.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len reports the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteASCII writes tag verbatim (must be ASCII-safe, typically a 4-byte tag).
func (w *Writer) WriteASCII(tag string) {
	w.buf.WriteString(tag)
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) { //nolint:revive // matches io.ByteWriter's method name
	w.buf.WriteByte(b) //nolint:errcheck // bytes.Buffer.WriteByte never fails
}

// WriteUint16 writes a big-endian unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte //nolint:mnd // width of a uint16 in bytes

	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteUint32 writes a big-endian unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte //nolint:mnd // width of a uint32 in bytes

	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteUintN writes v as an n-byte big-endian unsigned integer, n <= 8.
func (w *Writer) WriteUintN(v uint64, n int) {
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v & 0xFF)
		v >>= 8
	}

	w.buf.Write(b)
}

// WriteUint40 writes v as a 5-byte big-endian unsigned integer.
func (w *Writer) WriteUint40(v uint64) {
	w.WriteUintN(v, 5) //nolint:mnd // 40 bits == 5 bytes
}

// WriteUTF16BE writes s encoded as UTF-16BE with no length prefix.
func (w *Writer) WriteUTF16BE(s string) error {
	encoded, err := EncodeUTF16BE(s)
	if err != nil {
		return err
	}

	w.buf.Write(encoded)

	return nil
}

// WriteRaw writes raw bytes verbatim.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}
