package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

// NameCapacity is the maximum length of a catalog name.
const NameCapacity = 31

// keyHeaderSize covers the reserved byte, the parent id and the name length.
const keyHeaderSize = 6

// MaxKeyLength is the key length recorded in a catalog tree header.
const MaxKeyLength = keyHeaderSize + NameCapacity

// Key identifies a catalog record: the parent directory id and the name.
// Thread records use the described item's own id and an empty name.
type Key struct {
	ParentID uint32
	Name     textenc.Name
}

// NewKey builds a key from an encoded name.
func NewKey(parentID uint32, name []byte, enc *textenc.Encoding) Key {
	return Key{ParentID: parentID, Name: textenc.NewName(name, enc)}
}

// DecodeKey decodes a key as stored after its length byte.
func DecodeKey(raw []byte, enc *textenc.Encoding) (Key, error) {
	if len(raw) < keyHeaderSize {
		return Key{}, fmt.Errorf("key needs %d bytes, have %d", keyHeaderSize, len(raw))
	}
	n := int(raw[5])
	if n > NameCapacity {
		return Key{}, fmt.Errorf("name length %d exceeds %d", n, NameCapacity)
	}
	if keyHeaderSize+n > len(raw) {
		return Key{}, fmt.Errorf("name length %d exceeds key length %d", n, len(raw))
	}
	name := make([]byte, n)
	copy(name, raw[keyHeaderSize:])
	return NewKey(binary.BigEndian.Uint32(raw[1:]), name, enc), nil
}

// Encode returns the key bytes without the leading length byte.
func (k Key) Encode() []byte {
	raw := k.Name.Raw
	if len(raw) > NameCapacity {
		raw = raw[:NameCapacity]
	}
	buf := make([]byte, 0, keyHeaderSize+len(raw))
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint32(buf, k.ParentID)
	buf = append(buf, byte(len(raw)))
	return append(buf, raw...)
}

// CompareKey orders keys by parent id, then by name under k's encoding.
func (k Key) CompareKey(o Key) int {
	switch {
	case k.ParentID < o.ParentID:
		return -1
	case k.ParentID > o.ParentID:
		return 1
	}
	return k.Name.Compare(o.Name)
}

// Compare orders an on-disk key against k and returns the sign of
// (key - k). Keys that cannot be decoded sort first, so a search steps
// over them.
func (k Key) Compare(raw []byte) int {
	other, err := DecodeKey(raw, k.Name.Enc)
	if err != nil {
		return -1
	}
	return other.CompareKey(k)
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%q", k.ParentID, k.Name.String())
}
