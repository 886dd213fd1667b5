package mdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-restruct/restruct"

	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
	"github.com/robert-malhotra/go-hfs/internal/extent"
	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

// Signature is the HFS volume signature "BD".
const Signature uint16 = 0x4244

// SignatureSize is the width of the signature field.
const SignatureSize = 2

// Size is the on-disk size of the header record, signature included.
const Size = 162

// VolumeNameCapacity is the maximum length of a volume name.
const VolumeNameCapacity = 27

// Errors
var (
	ErrSignatureNotFound = errors.New("HFS volume signature not found")
	ErrTruncatedImage    = errors.New("image truncated")
	ErrInvalidBlockSize  = errors.New("invalid allocation block size")
)

// Volume attribute bits.
const (
	AttrHardwareLocked = 1 << 7
	AttrUnmounted      = 1 << 8
	AttrSparedBlocks   = 1 << 9
	AttrSoftwareLocked = 1 << 15
)

// Header is the Master Directory Block. Fields appear in on-disk order and
// the struct is decoded as a big-endian overlay, so its layout must not
// change.
type Header struct {
	Signature     uint16
	CreateDate    uint32
	ModifyDate    uint32
	Attributes    uint16
	RootFileCount uint16 // files in the root directory
	BitmapStart   uint16 // first sector of the volume bitmap
	AllocPtr      uint16 // start of next allocation search
	TotalBlocks   uint16 // allocation blocks on the volume
	BlockSize     uint32 // allocation block size in bytes
	ClumpSize     uint32
	FirstBlock    uint16 // sector of allocation block 0
	NextCatalogID uint32
	FreeBlocks    uint16

	VolumeNameLength uint8
	VolumeName       [VolumeNameCapacity]byte

	BackupDate       uint32
	BackupSeq        uint16
	WriteCount       uint32
	ExtentsClumpSize uint32
	CatalogClumpSize uint32
	RootDirCount     uint16 // directories in the root directory
	FileCount        uint32
	DirCount         uint32
	FinderInfo       [8]uint32
	VolumeCacheSize  uint16
	BitmapCacheSize  uint16
	CommonCacheSize  uint16

	ExtentsFile SpecialFile
	CatalogFile SpecialFile
}

// SpecialFile is the size and inline extents of a B*-tree file.
type SpecialFile struct {
	LogicalSize uint32
	Extents     extent.Record
}

// Read decodes the header record that starts SignatureSize bytes before
// off, the offset returned by Locate. It performs no validation beyond
// length.
func Read(r io.ReaderAt, off int64) (*Header, error) {
	buf := make([]byte, Size)
	if err := binpkg.ReadFull(r, buf, off-SignatureSize); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: need %d header bytes at offset %d", ErrTruncatedImage, Size, off-SignatureSize)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return Decode(buf)
}

// Decode decodes a header from its on-disk bytes.
func Decode(buf []byte) (*Header, error) {
	if len(buf) < Size {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedImage, Size, len(buf))
	}
	h := &Header{}
	if err := restruct.Unpack(buf[:Size], binary.BigEndian, h); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	return h, nil
}

// Encode returns the on-disk bytes of the header.
func (h *Header) Encode() ([]byte, error) {
	buf, err := restruct.Pack(binary.BigEndian, h)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	return buf, nil
}

// Validate checks that the allocation block size is a positive multiple
// of 512.
func (h *Header) Validate() error {
	if h.BlockSize == 0 || h.BlockSize%extent.SectorSize != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, h.BlockSize)
	}
	return nil
}

// Name returns the volume name tagged with enc.
func (h *Header) Name(enc *textenc.Encoding) textenc.Name {
	n := min(int(h.VolumeNameLength), VolumeNameCapacity)
	raw := make([]byte, n)
	copy(raw, h.VolumeName[:n])
	return textenc.NewName(raw, enc)
}

// SetName stores raw as the volume name, truncated to the capacity.
func (h *Header) SetName(raw []byte) {
	n := min(len(raw), VolumeNameCapacity)
	h.VolumeName = [VolumeNameCapacity]byte{}
	copy(h.VolumeName[:], raw[:n])
	h.VolumeNameLength = uint8(n)
}

// Created returns the volume creation date.
func (h *Header) Created() time.Time { return binpkg.MacTime(h.CreateDate) }

// Modified returns the last modification date.
func (h *Header) Modified() time.Time { return binpkg.MacTime(h.ModifyDate) }

// BackedUp returns the last backup date.
func (h *Header) BackedUp() time.Time { return binpkg.MacTime(h.BackupDate) }

// Locked reports whether either lock attribute is set.
func (h *Header) Locked() bool {
	return h.Attributes&(AttrHardwareLocked|AttrSoftwareLocked) != 0
}

// Geometry returns the allocation geometry for a volume that begins at
// volumeStart in the image.
func (h *Header) Geometry(volumeStart int64) extent.Geometry {
	return extent.Geometry{
		VolumeStart: volumeStart,
		FirstBlock:  h.FirstBlock,
		BlockSize:   h.BlockSize,
	}
}

// Capacity returns the size of the allocation area in bytes.
func (h *Header) Capacity() int64 {
	return int64(h.TotalBlocks) * int64(h.BlockSize)
}

// Free returns the unused allocation space in bytes.
func (h *Header) Free() int64 {
	return int64(h.FreeBlocks) * int64(h.BlockSize)
}
