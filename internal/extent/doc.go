// Package extent turns HFS extent descriptors into byte ranges.
//
// A file's storage on an HFS volume is a list of extents, each a run of
// contiguous allocation blocks described by (first block, block count). The
// volume header and every file record carry the first three extents inline
// as an extent record; additional extents live in the Extents-Overflow
// B*-tree, keyed by [OverflowKey].
//
// # Address arithmetic
//
// Allocation block 0 starts FirstBlock 512-byte sectors after the start of
// the volume, so the byte offset of a descriptor is
//
//	VolumeStart + FirstBlock*512 + desc.FirstBlock*BlockSize
//
// and its length is desc.NumBlocks*BlockSize. With 512-byte allocation
// blocks this reduces to (FirstBlock + desc.FirstBlock) * BlockSize.
//
// # Key Types and Functions
//
//   - [Descriptor], [Record]: on-disk extent descriptors
//   - [Geometry]: volume layout needed to place allocation blocks
//   - [Resolve]: lazy byte ranges for an inline record, or [ErrNeedsOverflowLookup]
//   - [Stream]: a logical io.ReaderAt over concatenated ranges
//   - [OverflowKey]: key of the Extents-Overflow B*-tree
package extent
