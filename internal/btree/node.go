package btree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
)

// Errors
var (
	ErrNotBTree        = errors.New("not a B*-tree: node 0 is not a header node")
	ErrCorruptNode     = errors.New("corrupt B*-tree node")
	ErrCorruptRecord   = errors.New("corrupt B*-tree record")
	ErrCorruptLink     = errors.New("corrupt B*-tree link")
	ErrKeyNotFound     = errors.New("key not found")
	ErrInvalidNodeSize = errors.New("invalid B*-tree node size")
)

// NodeKind is the type of a node.
type NodeKind int8

const (
	IndexNode  NodeKind = 0
	HeaderNode NodeKind = 1
	MapNode    NodeKind = 2
	LeafNode   NodeKind = -1
)

func (k NodeKind) String() string {
	switch k {
	case IndexNode:
		return "index"
	case HeaderNode:
		return "header"
	case MapNode:
		return "map"
	case LeafNode:
		return "leaf"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// DescriptorSize is the size of a node descriptor.
const DescriptorSize = 14

// DefaultNodeSize is the node size of HFS B*-trees.
const DefaultNodeSize = 512

// Descriptor is the header at the start of every node.
type Descriptor struct {
	ForwardLink  uint32
	BackwardLink uint32
	Kind         NodeKind
	Level        uint8
	RecordCount  uint16
	Reserved     uint16
}

// DecodeDescriptor decodes a node descriptor.
func DecodeDescriptor(b []byte) (Descriptor, error) {
	if len(b) < DescriptorSize {
		return Descriptor{}, fmt.Errorf("%w: descriptor needs %d bytes, have %d", ErrCorruptNode, DescriptorSize, len(b))
	}
	var d Descriptor
	var kind int8
	br := binpkg.NewReader(bytes.NewReader(b[:DescriptorSize]))
	for _, step := range []func() error{
		func() (err error) { d.ForwardLink, err = br.ReadUint32(); return },
		func() (err error) { d.BackwardLink, err = br.ReadUint32(); return },
		func() (err error) { kind, err = br.ReadInt8(); return },
		func() (err error) { d.Level, err = br.ReadUint8(); return },
		func() (err error) { d.RecordCount, err = br.ReadUint16(); return },
		func() (err error) { d.Reserved, err = br.ReadUint16(); return },
	} {
		if err := step(); err != nil {
			return Descriptor{}, fmt.Errorf("%w: %w", ErrCorruptNode, err)
		}
	}
	d.Kind = NodeKind(kind)
	return d, nil
}

// AppendEncode appends the 14-byte descriptor to dst.
func (d Descriptor) AppendEncode(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, d.ForwardLink)
	dst = binary.BigEndian.AppendUint32(dst, d.BackwardLink)
	dst = append(dst, byte(d.Kind), d.Level)
	dst = binary.BigEndian.AppendUint16(dst, d.RecordCount)
	return binary.BigEndian.AppendUint16(dst, d.Reserved)
}

// Node is a decoded node: its descriptor and raw record bytes.
type Node struct {
	Number uint32
	Descriptor
	records [][]byte
}

// ParseNode decodes a node from its bytes. Record offsets are validated:
// each record must lie after the descriptor, before the offset table, and
// records must not overlap.
func ParseNode(number uint32, buf []byte) (*Node, error) {
	desc, err := DecodeDescriptor(buf)
	if err != nil {
		return nil, err
	}
	size := len(buf)
	count := int(desc.RecordCount)
	if maxCount := (size-DescriptorSize)/2 - 1; count > maxCount {
		return nil, fmt.Errorf("%w: node %d: %d records exceeds maximum %d", ErrCorruptNode, number, count, maxCount)
	}

	offset := func(i int) int {
		return int(binary.BigEndian.Uint16(buf[size-2-2*i:]))
	}

	node := &Node{Number: number, Descriptor: desc, records: make([][]byte, 0, count)}
	low, high := DescriptorSize, size-2*(count+1)
	for i := 0; i < count; i++ {
		start, end := offset(i), offset(i+1)
		if start < low || start > end || end > high {
			return nil, fmt.Errorf("%w: node %d: record %d spans [%#x:%#x]", ErrCorruptNode, number, i, start, end)
		}
		node.records = append(node.records, buf[start:end])
		low = end
	}
	return node, nil
}

// Len returns the number of records in the node.
func (n *Node) Len() int {
	return len(n.records)
}

// Raw returns the bytes of record i.
func (n *Node) Raw(i int) []byte {
	return n.records[i]
}

// Record returns record i split into key and data. Only index and leaf
// records are keyed.
func (n *Node) Record(i int) (Record, error) {
	rec := Record{Node: n.Number, Index: i}
	key, data, err := SplitRecord(n.records[i])
	if err != nil {
		return rec, fmt.Errorf("node %d record %d: %w", n.Number, i, err)
	}
	rec.Key, rec.Data = key, data
	return rec, nil
}

// Record is a keyed record from an index or leaf node.
type Record struct {
	Node  uint32 // node number the record came from
	Index int    // position within the node
	Key   []byte // key bytes, without the key length byte
	Data  []byte
}

// Child returns the node pointer carried by an index record.
func (r Record) Child() (uint32, error) {
	if len(r.Data) < 4 {
		return 0, fmt.Errorf("%w: node %d record %d: index record without child pointer", ErrCorruptRecord, r.Node, r.Index)
	}
	return binary.BigEndian.Uint32(r.Data), nil
}

// SplitRecord splits a raw record into key and data. The key is preceded
// by its length byte; data starts at the next even offset.
func SplitRecord(raw []byte) (key, data []byte, err error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("%w: empty record", ErrCorruptRecord)
	}
	br := binpkg.NewReader(bytes.NewReader(raw))
	keyLen, err := br.ReadUint8()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	br.Skip(int64(keyLen))
	keyEnd := int(br.Pos())
	if keyEnd > len(raw) {
		return nil, nil, fmt.Errorf("%w: key length %d exceeds record length %d", ErrCorruptRecord, keyLen, len(raw))
	}
	br.Align(2)
	dataStart := min(int(br.Pos()), len(raw))
	return raw[1:keyEnd], raw[dataStart:], nil
}

// HeaderRecordSize is the size of the header node's first record.
const HeaderRecordSize = 106

// HeaderRecord describes the whole tree.
type HeaderRecord struct {
	Depth        uint16
	Root         uint32
	LeafRecords  uint32
	FirstLeaf    uint32
	LastLeaf     uint32
	NodeSize     uint16
	MaxKeyLength uint16
	TotalNodes   uint32
	FreeNodes    uint32
}

// headerFieldsSize covers the header record fields before the reserved
// tail.
const headerFieldsSize = 30

// DecodeHeaderRecord decodes the header record.
func DecodeHeaderRecord(b []byte) (HeaderRecord, error) {
	if len(b) < headerFieldsSize {
		return HeaderRecord{}, fmt.Errorf("%w: header record needs %d bytes, have %d", ErrCorruptRecord, headerFieldsSize, len(b))
	}
	var h HeaderRecord
	br := binpkg.NewReader(bytes.NewReader(b[:headerFieldsSize]))
	for _, step := range []func() error{
		func() (err error) { h.Depth, err = br.ReadUint16(); return },
		func() (err error) { h.Root, err = br.ReadUint32(); return },
		func() (err error) { h.LeafRecords, err = br.ReadUint32(); return },
		func() (err error) { h.FirstLeaf, err = br.ReadUint32(); return },
		func() (err error) { h.LastLeaf, err = br.ReadUint32(); return },
		func() (err error) { h.NodeSize, err = br.ReadUint16(); return },
		func() (err error) { h.MaxKeyLength, err = br.ReadUint16(); return },
		func() (err error) { h.TotalNodes, err = br.ReadUint32(); return },
		func() (err error) { h.FreeNodes, err = br.ReadUint32(); return },
	} {
		if err := step(); err != nil {
			return HeaderRecord{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
		}
	}
	return h, nil
}

// AppendEncode appends the full 106-byte header record to dst.
func (h HeaderRecord) AppendEncode(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint16(dst, h.Depth)
	dst = binary.BigEndian.AppendUint32(dst, h.Root)
	dst = binary.BigEndian.AppendUint32(dst, h.LeafRecords)
	dst = binary.BigEndian.AppendUint32(dst, h.FirstLeaf)
	dst = binary.BigEndian.AppendUint32(dst, h.LastLeaf)
	dst = binary.BigEndian.AppendUint16(dst, h.NodeSize)
	dst = binary.BigEndian.AppendUint16(dst, h.MaxKeyLength)
	dst = binary.BigEndian.AppendUint32(dst, h.TotalNodes)
	dst = binary.BigEndian.AppendUint32(dst, h.FreeNodes)
	return append(dst, make([]byte, HeaderRecordSize-headerFieldsSize)...)
}
