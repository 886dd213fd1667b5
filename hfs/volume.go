package hfs

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"

	"github.com/robert-malhotra/go-hfs/internal/btree"
	"github.com/robert-malhotra/go-hfs/internal/catalog"
	"github.com/robert-malhotra/go-hfs/internal/logging"
	"github.com/robert-malhotra/go-hfs/internal/mdb"
)

// Volume is a mounted HFS volume.
type Volume struct {
	path   string
	file   *os.File // nil when mounted from a reader
	r      io.ReaderAt
	size   int64
	loc    mdb.Location
	header *mdb.Header
	opts   *mountOptions
	log    *slog.Logger
	closed bool
}

// Mount opens the image at path and reads its volume header. On any
// failure the file is closed and no volume is returned.
func Mount(path string, opts ...MountOption) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading image size: %w", err)
	}

	v, err := mount(f, info.Size(), path, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	v.file = f
	return v, nil
}

// MountReader mounts an image held by r, which must hold size bytes.
// Closing the volume does not close r.
func MountReader(r io.ReaderAt, size int64, opts ...MountOption) (*Volume, error) {
	return mount(r, size, "", opts)
}

func mount(r io.ReaderAt, size int64, path string, opts []MountOption) (*Volume, error) {
	o := defaultMountOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if path != "" {
		log = logging.WithVolume(log, path)
	}

	loc, err := mdb.Locate(r, size, mdb.LocateOptions{ScanLimit: o.scanLimit})
	if err != nil {
		return nil, fmt.Errorf("locating volume header: %w", err)
	}
	log.Debug("volume header located",
		"offset", loc.Offset-mdb.SignatureSize,
		"volume_start", loc.VolumeStart,
		"method", loc.Method)

	hdr, err := mdb.Read(r, loc.Offset)
	if err != nil {
		return nil, fmt.Errorf("reading volume header: %w", err)
	}
	if err := hdr.Validate(); err != nil {
		return nil, fmt.Errorf("validating volume header: %w", err)
	}
	log.Debug("volume geometry",
		"block_size", hdr.BlockSize,
		"total_blocks", hdr.TotalBlocks,
		"first_block", hdr.FirstBlock,
		"catalog_size", hdr.CatalogFile.LogicalSize)

	return &Volume{
		path:   path,
		r:      r,
		size:   size,
		loc:    loc,
		header: hdr,
		opts:   o,
		log:    log,
	}, nil
}

// Close releases the image file. It is safe to call more than once.
func (v *Volume) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if v.file != nil {
		return v.file.Close()
	}
	return nil
}

// Path returns the image path, or "" for volumes mounted from a reader.
func (v *Volume) Path() string {
	return v.path
}

// Header returns a copy of the volume header.
func (v *Volume) Header() Header {
	return *v.header
}

// Location returns where the volume header was found.
func (v *Volume) Location() Location {
	return v.loc
}

// Name returns the volume name.
func (v *Volume) Name() Name {
	return v.header.Name(v.opts.encoding)
}

// Encoding returns the encoding names are decoded with.
func (v *Volume) Encoding() *Encoding {
	return v.opts.encoding
}

// Catalog decodes the whole catalog. When records are damaged the error
// is a *DecodeError and the returned tree holds everything that decoded.
func (v *Volume) Catalog() (*CatalogTree, error) {
	if v.closed {
		return nil, ErrClosed
	}
	t, err := v.catalogTree()
	if err != nil {
		return nil, err
	}

	tree, err := catalog.Build(t.Leaves(), v.opts.encoding)
	var de *catalog.DecodeError
	if errors.As(err, &de) {
		log := logging.WithComponent(v.log, "catalog")
		for _, e := range de.Errs {
			logging.WithError(log, e).Warn("catalog decode problem")
		}
	}
	v.log.Debug("catalog decoded", "entries", tree.Len())
	return tree, err
}

// Entries decodes catalog records lazily in key order. Damaged records
// are yielded as errors and the sequence continues; a broken leaf chain
// ends it.
func (v *Volume) Entries() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		if v.closed {
			yield(nil, ErrClosed)
			return
		}
		t, err := v.catalogTree()
		if err != nil {
			yield(nil, err)
			return
		}
		for rec, err := range catalog.Entries(t.Leaves(), v.opts.encoding) {
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Lookup finds the entry named name in directory parentID with a B*-tree
// point lookup.
func (v *Volume) Lookup(parentID uint32, name string) (Entry, error) {
	if v.closed {
		return nil, ErrClosed
	}
	raw, err := v.opts.encoding.Encode(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyNotFound, err)
	}
	return v.lookupEntry(catalog.NewKey(parentID, raw, v.opts.encoding))
}

// Locate finds the entry with the given id through its thread record.
func (v *Volume) Locate(id uint32) (Entry, error) {
	if v.closed {
		return nil, ErrClosed
	}
	rec, err := v.lookup(catalog.NewKey(id, nil, v.opts.encoding))
	if err != nil {
		return nil, fmt.Errorf("thread for catalog id %d: %w", id, err)
	}
	th, ok := rec.(*catalog.Thread)
	if !ok {
		return nil, fmt.Errorf("%w: catalog id %d has a %s record in place of a thread", ErrMalformedCatalogRecord, id, rec.RecordType())
	}
	return v.lookupEntry(catalog.Key{ParentID: th.ParentID, Name: th.ParentName})
}

// Resolve finds the entry at a colon-separated path whose first component
// is the volume name.
func (v *Volume) Resolve(path string) (Entry, error) {
	if v.closed {
		return nil, ErrClosed
	}
	parts, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	parent := RootParentID
	var e Entry
	for _, part := range parts {
		if e, err = v.Lookup(parent, part); err != nil {
			return nil, fmt.Errorf("resolving %q: %w", path, err)
		}
		parent = e.ID()
	}
	return e, nil
}

func (v *Volume) lookupEntry(key catalog.Key) (Entry, error) {
	rec, err := v.lookup(key)
	if err != nil {
		return nil, err
	}
	e, ok := rec.(Entry)
	if !ok {
		return nil, fmt.Errorf("%w: key %s holds a %s record", ErrMalformedCatalogRecord, key, rec.RecordType())
	}
	return e, nil
}

func (v *Volume) lookup(key catalog.Key) (Record, error) {
	t, err := v.catalogTree()
	if err != nil {
		return nil, err
	}
	rec, err := t.Lookup(key.Compare)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", key, err)
	}
	return catalog.DecodeRecord(rec, v.opts.encoding)
}

// catalogTree opens the catalog B*-tree over the catalog file's extents.
func (v *Volume) catalogTree() (*btree.Tree, error) {
	s, err := v.specialFile(catalog.CatalogFileID, v.header.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("catalog file: %w", err)
	}
	t, err := btree.Open(s, s.Size())
	if err != nil {
		return nil, fmt.Errorf("opening catalog tree: %w", err)
	}
	return t, nil
}
