// Package binary provides low-level binary I/O for HFS structures.
//
// Every multi-byte quantity on an HFS volume is big-endian. The Reader and
// Writer in this package keep a cursor over an io.ReaderAt or io.WriterAt so
// that fixed-layout records can be decoded field by field.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrStringTooLong is returned when a Pascal string's length byte exceeds
// its declared capacity.
var ErrStringTooLong = errors.New("pascal string length exceeds capacity")

// Reader reads big-endian values from an io.ReaderAt at a tracked position.
type Reader struct {
	r   io.ReaderAt
	pos int64
}

// NewReader creates a reader positioned at offset 0.
func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, pos: offset}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
// A short read is reported as io.ErrUnexpectedEOF.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := ReadFull(r.r, buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadInt8 reads a signed 8-bit integer.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadPascalString reads a length-prefixed string occupying 1+capacity
// bytes and returns the bytes selected by the length prefix.
func (r *Reader) ReadPascalString(capacity int) ([]byte, error) {
	buf, err := r.ReadBytes(1 + capacity)
	if err != nil {
		return nil, err
	}
	n := int(buf[0])
	if n > capacity {
		return nil, ErrStringTooLong
	}
	return buf[1 : 1+n], nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Align advances the position to the next multiple of alignment.
// If already aligned, the position is unchanged.
func (r *Reader) Align(alignment int64) {
	if alignment <= 1 {
		return
	}
	if remainder := r.pos % alignment; remainder != 0 {
		r.pos += alignment - remainder
	}
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := ReadFull(r.r, buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadFull fills buf from r at off. io.ReaderAt may return io.EOF together
// with a full buffer; that counts as success. Anything shorter is
// io.ErrUnexpectedEOF.
func ReadFull(r io.ReaderAt, buf []byte, off int64) error {
	if off < 0 {
		return io.ErrUnexpectedEOF
	}
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
