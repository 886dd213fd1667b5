package binary

import (
	"encoding/binary"
	"io"
)

// Writer writes big-endian values to an io.WriterAt at a tracked position.
type Writer struct {
	w   io.WriterAt
	pos int64
}

// NewWriter creates a writer positioned at offset 0.
func NewWriter(w io.WriterAt) *Writer {
	return &Writer{w: w}
}

// At returns a new writer positioned at the given offset.
// The new writer shares the underlying io.WriterAt but has independent position.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	return w.WriteBytes(binary.BigEndian.AppendUint16(nil, v))
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	return w.WriteBytes(binary.BigEndian.AppendUint32(nil, v))
}

// WritePascalString writes s as a length-prefixed string padded with zeros
// to 1+capacity bytes.
func (w *Writer) WritePascalString(s []byte, capacity int) error {
	if len(s) > capacity || len(s) > 255 {
		return ErrStringTooLong
	}
	buf := make([]byte, 1+capacity)
	buf[0] = byte(len(s))
	copy(buf[1:], s)
	return w.WriteBytes(buf)
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WritePadding writes zero bytes to align to the given alignment.
func (w *Writer) WritePadding(alignment int64) error {
	if alignment <= 1 {
		return nil
	}
	remainder := w.pos % alignment
	if remainder == 0 {
		return nil
	}
	return w.WriteZeros(int(alignment - remainder))
}

// Buffer is a growable in-memory io.WriterAt and io.ReaderAt.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a zero-filled buffer of the given size.
func NewBuffer(size int) *Buffer {
	return &Buffer{buf: make([]byte, size)}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	return copy(b.buf[off:], p), nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the buffer length.
func (b *Buffer) Len() int {
	return len(b.buf)
}
