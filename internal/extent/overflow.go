package extent

import (
	"cmp"
	"encoding/binary"
	"fmt"
)

// ForkType selects a file's data or resource fork.
type ForkType uint8

const (
	DataFork     ForkType = 0x00
	ResourceFork ForkType = 0xFF
)

func (f ForkType) String() string {
	switch f {
	case DataFork:
		return "data"
	case ResourceFork:
		return "resource"
	default:
		return fmt.Sprintf("fork(0x%02x)", uint8(f))
	}
}

// OverflowKeyLength is the key length byte of every overflow key.
const OverflowKeyLength = 7

// OverflowKey is the key of an Extents-Overflow B*-tree record. StartBlock
// is the fork-relative allocation block at which the record's extents begin.
type OverflowKey struct {
	Fork       ForkType
	FileID     uint32
	StartBlock uint16
}

// DecodeOverflowKey decodes a key as stored after its length byte.
func DecodeOverflowKey(key []byte) (OverflowKey, error) {
	if len(key) < OverflowKeyLength {
		return OverflowKey{}, fmt.Errorf("overflow key: need %d bytes, have %d", OverflowKeyLength, len(key))
	}
	return OverflowKey{
		Fork:       ForkType(key[0]),
		FileID:     binary.BigEndian.Uint32(key[1:]),
		StartBlock: binary.BigEndian.Uint16(key[5:]),
	}, nil
}

// AppendEncode appends the key, including its length byte, to dst.
func (k OverflowKey) AppendEncode(dst []byte) []byte {
	dst = append(dst, OverflowKeyLength, byte(k.Fork))
	dst = binary.BigEndian.AppendUint32(dst, k.FileID)
	return binary.BigEndian.AppendUint16(dst, k.StartBlock)
}

// CompareKey orders two keys: file id, then fork type, then start block.
func (k OverflowKey) CompareKey(o OverflowKey) int {
	if c := cmp.Compare(k.FileID, o.FileID); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Fork, o.Fork); c != 0 {
		return c
	}
	return cmp.Compare(k.StartBlock, o.StartBlock)
}

// Compare orders an on-disk key against k, returning the sign of
// (key - k). Undecodable keys sort before every valid key.
func (k OverflowKey) Compare(key []byte) int {
	other, err := DecodeOverflowKey(key)
	if err != nil {
		return -1
	}
	return other.CompareKey(k)
}
