// Package btree reads the HFS B*-tree file format.
//
// Both the Catalog file and the Extents-Overflow file are B*-trees: a file
// divided into fixed-size nodes (512 bytes on HFS). Every node starts with
// a 14-byte [Descriptor] and ends with a table of record offsets growing
// backwards from the end of the node.
//
// # Node Kinds
//
//   - Header node: always node 0. Its first record is the [HeaderRecord]
//     with the tree depth, root node, leaf record count, first and last leaf,
//     node size and node counts.
//   - Index nodes: records of (key, child node number). Keys are the first
//     key of the child.
//   - Leaf nodes: the data records, doubly linked across the whole level
//     in key order.
//   - Map nodes: allocation bitmap continuation, ignored by readers.
//
// # Traversal
//
// [Tree.Lookup] descends from the root choosing, at each index node, the
// child whose key is the largest key not greater than the target, and then
// requires an exact match in the leaf. [Tree.Floor] returns the largest leaf
// key not greater than the target instead.
//
// [Tree.Leaves] enumerates every leaf record lazily by following forward
// links from the first leaf. Enumeration is bounded by the header's leaf
// record count so that a cyclic or damaged chain cannot loop forever; when
// the bound is hit before the chain terminates, the sequence ends with
// [ErrCorruptLink].
//
// Keys are opaque to this package. Callers compare them through a
// [KeyCompare] function.
package btree
