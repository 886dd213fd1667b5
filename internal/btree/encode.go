package btree

import (
	"encoding/binary"
	"fmt"
)

// EncodeRecord joins a key (without its length byte) and data into a
// keyed record, padding the key so data starts at an even offset.
func EncodeRecord(key, data []byte) []byte {
	keyEnd := 1 + len(key)
	buf := make([]byte, 0, keyEnd+keyEnd%2+len(data))
	buf = append(buf, byte(len(key)))
	buf = append(buf, key...)
	if keyEnd%2 != 0 {
		buf = append(buf, 0)
	}
	return append(buf, data...)
}

// NodeFits reports whether records fit in a node of the given size.
func NodeFits(size int, records [][]byte) bool {
	used := DescriptorSize + 2*(len(records)+1)
	for _, r := range records {
		used += len(r) + len(r)%2
	}
	return used <= size
}

// EncodeNode lays out a node: descriptor, records from the front, and the
// offset table at the tail. desc.RecordCount is set from records.
func EncodeNode(size int, desc Descriptor, records [][]byte) ([]byte, error) {
	if !NodeFits(size, records) {
		return nil, fmt.Errorf("%w: %d records do not fit in %d bytes", ErrCorruptNode, len(records), size)
	}
	desc.RecordCount = uint16(len(records))

	buf := make([]byte, size)
	copy(buf, desc.AppendEncode(nil))

	off := DescriptorSize
	for i, r := range records {
		binary.BigEndian.PutUint16(buf[size-2-2*i:], uint16(off))
		copy(buf[off:], r)
		off += len(r) + len(r)%2
	}
	binary.BigEndian.PutUint16(buf[size-2-2*len(records):], uint16(off))
	return buf, nil
}
