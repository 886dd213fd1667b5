// Package hfs reads classic Macintosh HFS volume images.
//
// A [Volume] is mounted from an image file or any io.ReaderAt. Mounting
// locates and validates the volume header; the catalog is decoded on
// demand, either fully with [Volume.Catalog] or lazily with
// [Volume.Entries]. Single items are found through B*-tree point lookups
// with [Volume.Lookup], [Volume.Locate] and [Volume.Resolve].
//
// Decoding is best effort. Damaged catalog records are collected and
// returned next to the part of the catalog that decoded.
package hfs

import (
	"errors"

	"github.com/robert-malhotra/go-hfs/internal/btree"
	"github.com/robert-malhotra/go-hfs/internal/catalog"
	"github.com/robert-malhotra/go-hfs/internal/extent"
	"github.com/robert-malhotra/go-hfs/internal/mdb"
)

// Common errors
var (
	ErrSignatureNotFound      = mdb.ErrSignatureNotFound
	ErrTruncatedImage         = mdb.ErrTruncatedImage
	ErrInvalidBlockSize       = mdb.ErrInvalidBlockSize
	ErrKeyNotFound            = btree.ErrKeyNotFound
	ErrNeedsOverflowLookup    = extent.ErrNeedsOverflowLookup
	ErrMalformedCatalogRecord = catalog.ErrMalformedRecord
	ErrCorruptBTreeLink       = btree.ErrCorruptLink
	ErrInvalidPath            = catalog.ErrBadPath
	ErrClosed                 = errors.New("volume is closed")
)

// MalformedRecordError reports a catalog record that could not be decoded.
type MalformedRecordError = catalog.MalformedRecordError

// DecodeError lists everything that went wrong while decoding a catalog.
type DecodeError = catalog.DecodeError
