package hfs

import (
	"github.com/robert-malhotra/go-hfs/internal/catalog"
	"github.com/robert-malhotra/go-hfs/internal/extent"
	"github.com/robert-malhotra/go-hfs/internal/mdb"
	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

// Header is the decoded Master Directory Block.
type Header = mdb.Header

// Location tells where the volume header was found.
type Location = mdb.Location

// CatalogTree is a decoded catalog hierarchy.
type CatalogTree = catalog.Tree

// Catalog items.
type (
	Record    = catalog.Record
	Entry     = catalog.Entry
	Directory = catalog.Directory
	File      = catalog.File
	Thread    = catalog.Thread
)

// Name is an on-disk name with its encoding.
type Name = textenc.Name

// Encoding is a legacy text encoding for names.
type Encoding = textenc.Encoding

// Supported name encodings.
var (
	MacRoman    = textenc.MacRoman
	MacCyrillic = textenc.MacCyrillic
)

// LookupEncoding returns a supported encoding by name.
func LookupEncoding(name string) (*Encoding, bool) {
	return textenc.Lookup(name)
}

// ForkType selects the data or resource fork of a file.
type ForkType = extent.ForkType

const (
	DataFork     = extent.DataFork
	ResourceFork = extent.ResourceFork
)

// Range is a byte range within the image.
type Range = extent.Range

// ForkReader reads one fork as a contiguous byte stream.
type ForkReader = extent.Stream

// Well-known catalog ids.
const (
	RootParentID = catalog.RootParentID
	RootID       = catalog.RootID
)
