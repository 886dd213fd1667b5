// Package mdb handles the HFS Master Directory Block, the volume header.
//
// The Master Directory Block is the entry point for any HFS volume. It sits
// in the third 512-byte block of the volume (byte 1024) and describes the
// volume's geometry and where its special files live.
//
// # Volume Signature
//
// HFS volumes are identified by the two-byte signature "BD" (0x4244) at the
// start of the header. [Locate] checks the conventional offset first, then
// the Apple_HFS partitions of an Apple Partition Map, and finally scans the
// image linearly up to a bound.
//
// # Header Contents
//
// The 162-byte [Header] record holds, in on-disk order: dates, attributes,
// allocation geometry (block size, total and free blocks, first allocation
// block), the next unused catalog id, the volume name, backup metadata,
// file and directory counts, Finder info, cache sizes, and the size and
// first three extents of the Extents-Overflow and Catalog files.
//
// # Usage
//
//	loc, err := mdb.Locate(r, size, mdb.LocateOptions{})
//	if errors.Is(err, mdb.ErrSignatureNotFound) {
//	    // Not an HFS image
//	}
//	hdr, err := mdb.Read(r, loc.Offset)
//	if err := hdr.Validate(); err != nil {
//	    // Readable but malformed geometry
//	}
//
// [Read] performs no semantic checks so that malformed headers can still be
// dumped; [Header.Validate] is invoked separately.
//
// # Errors
//
//   - [ErrSignatureNotFound]: no "BD" signature found
//   - [ErrTruncatedImage]: image too short for a header
//   - [ErrInvalidBlockSize]: block size not a positive multiple of 512
package mdb
