// Package apm reads the Apple Partition Map of whole-disk images.
//
// Block 0 of a partitioned disk holds the Driver Descriptor Record ("ER");
// the partition map follows as one 512-byte entry ("PM") per block starting
// at block 1. HFS volumes live in partitions of type "Apple_HFS".
package apm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-restruct/restruct"

	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
)

// BlockSize is the partition map's addressing unit.
const BlockSize = 512

// HFSType is the partition type of HFS volumes.
const HFSType = "Apple_HFS"

// Block signatures.
const (
	DriverSignature = 0x4552 // 'ER'
	EntrySignature  = 0x504D // 'PM'
)

// ErrNoPartitionMap is returned when block 0 is not a driver descriptor.
var ErrNoPartitionMap = errors.New("no apple partition map")

// DriverDescriptor is the leading part of the Driver Descriptor Record.
type DriverDescriptor struct {
	Signature   uint16
	BlockSize   uint16
	BlockCount  uint32
	DeviceType  uint16
	DeviceID    uint16
	Data        uint32
	DriverCount uint16
}

// Entry is the leading part of a partition map entry.
type Entry struct {
	Signature     uint16
	SignaturePad  uint16
	MapBlockCount uint32
	PhysicalStart uint32
	BlockCount    uint32
	Name          [32]byte
	Type          [32]byte
	DataStart     uint32
	DataCount     uint32
	Status        uint32
}

// Partition is a decoded partition map entry.
type Partition struct {
	Index  int
	Name   string
	Type   string
	Start  int64 // byte offset in the image
	Length int64 // bytes
}

// IsHFS reports whether the partition holds an HFS volume.
func (p Partition) IsHFS() bool {
	return p.Type == HFSType
}

// Read decodes the partition map. Entries are read until the count from
// the first entry is exhausted, a block lacks the entry signature, or the
// image ends.
func Read(r io.ReaderAt, size int64) ([]Partition, error) {
	var ddr DriverDescriptor
	if err := unpackAt(r, 0, &ddr); err != nil {
		return nil, ErrNoPartitionMap
	}
	if ddr.Signature != DriverSignature {
		return nil, ErrNoPartitionMap
	}

	var parts []Partition
	maxEntries := size/BlockSize - 1
	for i := int64(0); i < maxEntries; i++ {
		var e Entry
		if err := unpackAt(r, (i+1)*BlockSize, &e); err != nil {
			break
		}
		if e.Signature != EntrySignature {
			break
		}
		if i == 0 && int64(e.MapBlockCount) < maxEntries {
			maxEntries = int64(e.MapBlockCount)
		}
		parts = append(parts, Partition{
			Index:  int(i),
			Name:   cString(e.Name[:]),
			Type:   cString(e.Type[:]),
			Start:  int64(e.PhysicalStart) * BlockSize,
			Length: int64(e.BlockCount) * BlockSize,
		})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: driver descriptor without entries", ErrNoPartitionMap)
	}
	return parts, nil
}

func unpackAt(r io.ReaderAt, off int64, v interface{}) error {
	n, err := restruct.SizeOf(v)
	if err != nil {
		return err
	}
	buf := make([]byte, n)
	if err := binpkg.ReadFull(r, buf, off); err != nil {
		return err
	}
	return restruct.Unpack(buf, binary.BigEndian, v)
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
