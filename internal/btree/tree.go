package btree

import (
	"fmt"
	"io"
	"iter"

	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
)

// KeyCompare compares a record key against a search target and returns
// the sign of (key - target).
type KeyCompare func(key []byte) int

// maxDepth bounds index descent when the header's depth is unusable.
const maxDepth = 16

// Tree is a read-only B*-tree over a logical byte stream.
type Tree struct {
	r        io.ReaderAt
	size     int64
	header   HeaderRecord
	nodeSize int
}

// Open reads the header node of the tree stored in r. The header record
// sits right after the node descriptor, so it is decoded before the node
// size it declares is known; node 0 is then parsed at that size.
func Open(r io.ReaderAt, size int64) (*Tree, error) {
	br := binpkg.NewReader(r)
	raw, err := br.Peek(DescriptorSize)
	if err != nil {
		return nil, fmt.Errorf("reading header node: %w", err)
	}
	desc, err := DecodeDescriptor(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing header node: %w", err)
	}
	if desc.Kind != HeaderNode {
		return nil, fmt.Errorf("%w (found %s node)", ErrNotBTree, desc.Kind)
	}

	br.Skip(DescriptorSize)
	raw, err = br.ReadBytes(HeaderRecordSize)
	if err != nil {
		return nil, fmt.Errorf("reading header record: %w", err)
	}
	hdr, err := DecodeHeaderRecord(raw)
	if err != nil {
		return nil, err
	}

	nodeSize := int(hdr.NodeSize)
	if nodeSize == 0 {
		nodeSize = DefaultNodeSize
	}
	if nodeSize%DefaultNodeSize != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeSize, nodeSize)
	}

	buf := make([]byte, nodeSize)
	if err := binpkg.ReadFull(r, buf, 0); err != nil {
		return nil, fmt.Errorf("reading header node: %w", err)
	}
	node, err := ParseNode(0, buf)
	if err != nil {
		return nil, fmt.Errorf("parsing header node: %w", err)
	}
	if node.Len() == 0 {
		return nil, fmt.Errorf("%w: header node has no records", ErrCorruptNode)
	}

	return &Tree{r: r, size: size, header: hdr, nodeSize: nodeSize}, nil
}

// Header returns the tree's header record.
func (t *Tree) Header() HeaderRecord {
	return t.header
}

// NodeSize returns the size of a node in bytes.
func (t *Tree) NodeSize() int {
	return t.nodeSize
}

// Node reads and parses node n.
func (t *Tree) Node(n uint32) (*Node, error) {
	off := int64(n) * int64(t.nodeSize)
	if off+int64(t.nodeSize) > t.size {
		return nil, fmt.Errorf("%w: node %d lies beyond the end of the tree file (%d bytes)", ErrCorruptLink, n, t.size)
	}
	buf := make([]byte, t.nodeSize)
	if err := binpkg.ReadFull(t.r, buf, off); err != nil {
		return nil, fmt.Errorf("reading node %d: %w", n, err)
	}
	return ParseNode(n, buf)
}

// Leaves returns every leaf record in key order. The sequence follows
// forward links from the first leaf and stops at a zero link or after the
// header's leaf record count, whichever comes first. Hitting the count
// while the chain continues, revisiting a node, or reaching a non-leaf node
// ends the sequence with ErrCorruptLink. Records that cannot be split are
// yielded with an error wrapping ErrCorruptRecord and enumeration goes on.
func (t *Tree) Leaves() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		limit := t.header.LeafRecords
		n := t.header.FirstLeaf
		if n == 0 || limit == 0 {
			return
		}

		var count uint32
		visited := make(map[uint32]bool)
		for {
			if visited[n] {
				yield(Record{Node: n}, fmt.Errorf("%w: leaf node %d visited twice", ErrCorruptLink, n))
				return
			}
			visited[n] = true

			node, err := t.Node(n)
			if err != nil {
				yield(Record{Node: n}, err)
				return
			}
			if node.Kind != LeafNode {
				yield(Record{Node: n}, fmt.Errorf("%w: %s node %d in leaf chain", ErrCorruptLink, node.Kind, n))
				return
			}

			for i := 0; i < node.Len(); i++ {
				if count == limit {
					yield(Record{Node: n, Index: i}, fmt.Errorf("%w: %d leaf records read but node %d continues", ErrCorruptLink, limit, n))
					return
				}
				count++
				if !yield(node.Record(i)) {
					return
				}
			}

			if node.ForwardLink == 0 {
				return
			}
			if count == limit {
				yield(Record{Node: n}, fmt.Errorf("%w: %d leaf records read but node %d links to %d", ErrCorruptLink, limit, n, node.ForwardLink))
				return
			}
			n = node.ForwardLink
		}
	}
}

// Lookup finds the leaf record whose key compares equal to the target.
func (t *Tree) Lookup(cmp KeyCompare) (Record, error) {
	rec, err := t.Floor(cmp)
	if err != nil {
		return Record{}, err
	}
	if cmp(rec.Key) != 0 {
		return Record{}, ErrKeyNotFound
	}
	return rec, nil
}

// Floor finds the leaf record with the largest key not greater than the
// target.
func (t *Tree) Floor(cmp KeyCompare) (Record, error) {
	leaf, err := t.descend(cmp)
	if err != nil {
		return Record{}, err
	}
	rec, ok, err := floor(leaf, cmp)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrKeyNotFound
	}
	return rec, nil
}

// descend walks from the root to the leaf that would hold the target.
func (t *Tree) descend(cmp KeyCompare) (*Node, error) {
	n := t.header.Root
	if n == 0 {
		return nil, ErrKeyNotFound
	}

	limit := int(t.header.Depth)
	if limit == 0 || limit > maxDepth {
		limit = maxDepth
	}
	for depth := 0; depth < limit; depth++ {
		node, err := t.Node(n)
		if err != nil {
			return nil, err
		}
		switch node.Kind {
		case LeafNode:
			return node, nil
		case IndexNode:
			rec, ok, err := floor(node, cmp)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrKeyNotFound
			}
			if n, err = rec.Child(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s node %d below the root", ErrCorruptLink, node.Kind, n)
		}
	}
	return nil, fmt.Errorf("%w: no leaf within %d levels of the root", ErrCorruptLink, limit)
}

// floor returns the last record in node whose key is <= the target.
// Records are sorted, so the scan stops at the first larger key.
func floor(node *Node, cmp KeyCompare) (Record, bool, error) {
	var best Record
	found := false
	for i := 0; i < node.Len(); i++ {
		rec, err := node.Record(i)
		if err != nil {
			return Record{}, false, err
		}
		if cmp(rec.Key) > 0 {
			break
		}
		best, found = rec, true
	}
	return best, found, nil
}
