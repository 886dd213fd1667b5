package fixture

import (
	"fmt"

	"github.com/robert-malhotra/go-hfs/internal/btree"
)

// Record is a leaf record: a key without its length byte, and data.
type Record struct {
	Key  []byte
	Data []byte
}

// TreeOptions shapes a tree built by BuildTree.
type TreeOptions struct {
	// NodeSize defaults to 512.
	NodeSize int

	// LeafCapacity and IndexCapacity cap the records per node. Zero fills
	// nodes as far as they fit.
	LeafCapacity  int
	IndexCapacity int

	MaxKeyLength uint16
}

// BuildTree bulk-loads sorted records into a B*-tree file. Node 0 is the
// header node, the leaves follow in key order, then the index levels
// bottom-up. The returned bytes hold exactly the used nodes.
func BuildTree(records []Record, opts TreeOptions) ([]byte, error) {
	size := opts.NodeSize
	if size == 0 {
		size = btree.DefaultNodeSize
	}

	raw := make([][]byte, len(records))
	for i, r := range records {
		raw[i] = btree.EncodeRecord(r.Key, r.Data)
	}

	var nodes [][]byte
	hdr := btree.HeaderRecord{
		NodeSize:     uint16(size),
		MaxKeyLength: opts.MaxKeyLength,
		LeafRecords:  uint32(len(records)),
	}

	// level holds the first key and node number of every node on the
	// level just built.
	type child struct {
		key  []byte
		node uint32
	}
	var level []child

	groups := pack(size, raw, opts.LeafCapacity)
	first := uint32(1)
	for i, g := range groups {
		desc := btree.Descriptor{Kind: btree.LeafNode, Level: 1}
		if i > 0 {
			desc.BackwardLink = first + uint32(i) - 1
		}
		if i < len(groups)-1 {
			desc.ForwardLink = first + uint32(i) + 1
		}
		buf, err := btree.EncodeNode(size, desc, g.records)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		nodes = append(nodes, buf)
		level = append(level, child{key: records[g.first].Key, node: first + uint32(i)})
	}
	if len(groups) > 0 {
		hdr.Depth = 1
		hdr.FirstLeaf = first
		hdr.LastLeaf = first + uint32(len(groups)) - 1
		hdr.Root = first
	}

	for height := uint8(2); len(level) > 1; height++ {
		index := make([][]byte, len(level))
		for i, c := range level {
			index[i] = btree.EncodeRecord(c.key, be32(c.node))
		}

		first = uint32(len(nodes)) + 1
		var next []child
		groups := pack(size, index, opts.IndexCapacity)
		for i, g := range groups {
			desc := btree.Descriptor{Kind: btree.IndexNode, Level: height}
			if i > 0 {
				desc.BackwardLink = first + uint32(i) - 1
			}
			if i < len(groups)-1 {
				desc.ForwardLink = first + uint32(i) + 1
			}
			buf, err := btree.EncodeNode(size, desc, g.records)
			if err != nil {
				return nil, fmt.Errorf("index node %d: %w", i, err)
			}
			nodes = append(nodes, buf)
			next = append(next, child{key: level[g.first].key, node: first + uint32(i)})
		}
		level = next
		hdr.Depth = uint16(height)
		hdr.Root = first
	}

	hdr.TotalNodes = uint32(len(nodes)) + 1
	header, err := headerNode(size, hdr)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, size*(len(nodes)+1))
	out = append(out, header...)
	for _, n := range nodes {
		out = append(out, n...)
	}
	return out, nil
}

type group struct {
	first   int
	records [][]byte
}

// pack splits records into runs that each fit one node.
func pack(size int, records [][]byte, capacity int) []group {
	var groups []group
	var cur group
	for i, r := range records {
		full := capacity > 0 && len(cur.records) == capacity
		if len(cur.records) > 0 && (full || !btree.NodeFits(size, append(cur.records[:len(cur.records):len(cur.records)], r))) {
			groups = append(groups, cur)
			cur = group{first: i}
		}
		if len(cur.records) == 0 {
			cur.first = i
		}
		cur.records = append(cur.records, r)
	}
	if len(cur.records) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// headerNode builds node 0: the header record, the 128-byte user data
// record and the node allocation map.
func headerNode(size int, hdr btree.HeaderRecord) ([]byte, error) {
	const userDataSize = 128
	mapSize := size - btree.DescriptorSize - btree.HeaderRecordSize - userDataSize - 2*4
	if mapSize <= 0 {
		return nil, fmt.Errorf("node size %d too small for a header node", size)
	}
	bitmap := make([]byte, mapSize)
	for n := 0; n < int(hdr.TotalNodes) && n/8 < mapSize; n++ {
		bitmap[n/8] |= 0x80 >> (n % 8)
	}

	return btree.EncodeNode(size, btree.Descriptor{Kind: btree.HeaderNode}, [][]byte{
		hdr.AppendEncode(nil),
		make([]byte, userDataSize),
		bitmap,
	})
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
