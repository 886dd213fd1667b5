// Package catalog decodes the HFS catalog B*-tree into a directory
// hierarchy.
//
// Every leaf record of the catalog tree is keyed by (parent id, name) and
// carries a one-byte type tag:
//
//   - 1: [Directory] record
//   - 2: [File] record, with the first three extents of each fork
//   - 3, 4: [Thread] records linking an id back to its parent and name
//
// Keys sort by parent id and then by name under the volume's text
// encoding, so the children of a directory are adjacent in the leaf chain
// and already in display order.
//
// [Build] consumes the leaf records of a tree and assembles a [Tree]. It is
// best effort: a record it cannot decode becomes a [MalformedRecordError]
// and is skipped, while a broken leaf chain ends decoding. Either way the
// caller gets the tree decoded so far together with a [DecodeError]
// listing what went wrong.
package catalog
