package extent

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
)

// ErrNeedsOverflowLookup is returned when a fork's logical size exceeds
// what its inline extents cover. The remaining extents live in the
// Extents-Overflow B*-tree.
var ErrNeedsOverflowLookup = errors.New("extents continue in the extents-overflow file")

// SectorSize is the unit of Geometry.FirstBlock.
const SectorSize = 512

// RecordSize is the on-disk size of an extent record.
const RecordSize = 12

// Descriptor is a run of contiguous allocation blocks.
type Descriptor struct {
	FirstBlock uint16
	NumBlocks  uint16
}

// Record is the fixed array of three descriptors stored inline in the
// volume header, in file records and in overflow records.
type Record [3]Descriptor

// DecodeRecord decodes a 12-byte extent record.
func DecodeRecord(b []byte) (Record, error) {
	var rec Record
	if len(b) < RecordSize {
		return rec, fmt.Errorf("extent record: need %d bytes, have %d", RecordSize, len(b))
	}
	for i := range rec {
		rec[i].FirstBlock = binary.BigEndian.Uint16(b[i*4:])
		rec[i].NumBlocks = binary.BigEndian.Uint16(b[i*4+2:])
	}
	return rec, nil
}

// AppendEncode appends the 12-byte encoding of rec to dst.
func (rec Record) AppendEncode(dst []byte) []byte {
	for _, d := range rec {
		dst = binary.BigEndian.AppendUint16(dst, d.FirstBlock)
		dst = binary.BigEndian.AppendUint16(dst, d.NumBlocks)
	}
	return dst
}

// Descriptors returns the used descriptors. A zero block count ends the
// list.
func (rec Record) Descriptors() []Descriptor {
	var out []Descriptor
	for _, d := range rec {
		if d.NumBlocks == 0 {
			break
		}
		out = append(out, d)
	}
	return out
}

// Blocks returns the number of allocation blocks covered by the record.
func (rec Record) Blocks() uint32 {
	return Blocks(rec.Descriptors())
}

// Blocks sums the block counts of descs.
func Blocks(descs []Descriptor) uint32 {
	var n uint32
	for _, d := range descs {
		n += uint32(d.NumBlocks)
	}
	return n
}

// Geometry holds the volume layout needed to place allocation blocks.
type Geometry struct {
	// VolumeStart is the byte offset of the volume within the image
	// (non-zero for partitioned or wrapped images).
	VolumeStart int64

	// FirstBlock is the sector (512 bytes) where allocation block 0 begins.
	FirstBlock uint16

	// BlockSize is the allocation block size in bytes.
	BlockSize uint32
}

// BlockOffset returns the absolute byte offset of an allocation block.
func (g Geometry) BlockOffset(block uint16) int64 {
	return g.VolumeStart + int64(g.FirstBlock)*SectorSize + int64(block)*int64(g.BlockSize)
}

// Range is an absolute byte range within the image.
type Range struct {
	Offset int64
	Length int64
}

// End returns the offset one past the range.
func (r Range) End() int64 {
	return r.Offset + r.Length
}

// Overlaps reports whether two ranges share any byte.
func (r Range) Overlaps(o Range) bool {
	return r.Offset < o.End() && o.Offset < r.End()
}

// Ranges yields the byte range of every descriptor in order. It does not
// read any bytes.
func Ranges(descs []Descriptor, g Geometry) iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for _, d := range descs {
			if d.NumBlocks == 0 {
				return
			}
			r := Range{
				Offset: g.BlockOffset(d.FirstBlock),
				Length: int64(d.NumBlocks) * int64(g.BlockSize),
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Covered returns the number of bytes covered by descs.
func Covered(descs []Descriptor, blockSize uint32) int64 {
	return int64(Blocks(descs)) * int64(blockSize)
}

// Resolve converts an inline extent record into byte ranges. If the
// logical size is larger than the record covers, it returns
// ErrNeedsOverflowLookup instead of a truncated sequence.
func Resolve(rec Record, logicalSize uint32, g Geometry) (iter.Seq[Range], error) {
	descs := rec.Descriptors()
	if covered := Covered(descs, g.BlockSize); int64(logicalSize) > covered {
		return nil, fmt.Errorf("%w: logical size %d, inline extents cover %d",
			ErrNeedsOverflowLookup, logicalSize, covered)
	}
	return Ranges(descs, g), nil
}
