package fixture

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/go-restruct/restruct"

	"github.com/robert-malhotra/go-hfs/internal/alloc"
	"github.com/robert-malhotra/go-hfs/internal/apm"
	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
	"github.com/robert-malhotra/go-hfs/internal/btree"
	"github.com/robert-malhotra/go-hfs/internal/catalog"
	"github.com/robert-malhotra/go-hfs/internal/extent"
	"github.com/robert-malhotra/go-hfs/internal/mdb"
	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

// Defaults for a built volume.
const (
	DefaultTotalBlocks = 1600
	DefaultDate        = 0xB492F400 // 2000-01-01
	bitmapStart        = 3
	partitionStart     = 64 // in 512-byte blocks
)

// Builder assembles a synthetic HFS image in memory.
type Builder struct {
	Name     string
	Encoding *textenc.Encoding

	// BlockSize is the allocation block size, 512 by default.
	BlockSize   uint32
	TotalBlocks uint16

	// Prefix inserts bytes before the volume, as disk image containers do.
	Prefix int

	// PartitionMap wraps the volume in an Apple Partition Map.
	PartitionMap bool

	// LeafCapacity caps records per catalog leaf to force deeper trees.
	LeafCapacity int

	// CatalogFragment, when set, stores the catalog file in runs of that
	// many blocks separated by gaps.
	CatalogFragment uint16

	Date uint32

	nextID uint32
	items  []*item
	raw    []Record
}

type item struct {
	dir       bool
	id        uint32
	parent    uint32
	name      string
	data      []byte
	rsrc      []byte
	fragment  uint16
	invisible bool
	noThread  bool
	typ       string
	creator   string
}

// FileOption configures a file added to a Builder.
type FileOption func(*item)

// Resource sets the resource fork contents.
func Resource(data []byte) FileOption {
	return func(it *item) { it.rsrc = data }
}

// Fragmented stores each fork in runs of at most blocks allocation blocks
// separated by gaps, so forks longer than three runs spill into the
// Extents-Overflow file.
func Fragmented(blocks uint16) FileOption {
	return func(it *item) { it.fragment = blocks }
}

// Invisible sets the Finder invisible flag.
func Invisible() FileOption {
	return func(it *item) { it.invisible = true }
}

// TypeCreator sets the four-character type and creator codes.
func TypeCreator(typ, creator string) FileOption {
	return func(it *item) { it.typ, it.creator = typ, creator }
}

// WithoutThread omits the file's thread record.
func WithoutThread() FileOption {
	return func(it *item) { it.noThread = true }
}

// New returns a builder for a volume with the given name.
func New(name string) *Builder {
	return &Builder{Name: name, nextID: catalog.FirstUserID}
}

// Dir adds a directory and returns its id.
func (b *Builder) Dir(parent uint32, name string) uint32 {
	id := b.allocID()
	b.items = append(b.items, &item{dir: true, id: id, parent: parent, name: name})
	return id
}

// File adds a file and returns its id.
func (b *Builder) File(parent uint32, name string, data []byte, opts ...FileOption) uint32 {
	id := b.allocID()
	it := &item{id: id, parent: parent, name: name, data: data}
	for _, opt := range opts {
		opt(it)
	}
	b.items = append(b.items, it)
	return id
}

// RawRecord adds a leaf record with arbitrary data under key (parent, name).
func (b *Builder) RawRecord(parent uint32, name string, data []byte) {
	raw, _ := b.encoding().Encode(name)
	key := catalog.NewKey(parent, raw, b.encoding())
	b.raw = append(b.raw, Record{Key: key.Encode(), Data: data})
}

func (b *Builder) allocID() uint32 {
	if b.nextID < catalog.FirstUserID {
		b.nextID = catalog.FirstUserID
	}
	id := b.nextID
	b.nextID++
	return id
}

func (b *Builder) encoding() *textenc.Encoding {
	if b.Encoding == nil {
		return textenc.MacRoman
	}
	return b.Encoding
}

// Image is a built volume and the layout facts tests need.
type Image struct {
	Bytes []byte

	// VolumeStart is the byte offset of the volume; the signature sits
	// 1024 bytes later.
	VolumeStart int64

	Header   *mdb.Header
	Geometry extent.Geometry

	// Catalog and Extents are the runs of the two B*-tree files, overflow
	// runs included.
	Catalog []extent.Descriptor
	Extents []extent.Descriptor

	w *binpkg.Writer
}

// HeaderOffset returns the byte offset of the signature.
func (img *Image) HeaderOffset() int64 {
	return img.VolumeStart + mdb.ConventionalOffset
}

// CatalogNodeOffset returns the byte offset of catalog node n.
func (img *Image) CatalogNodeOffset(n uint32) int64 {
	return img.logicalOffset(img.Catalog, int64(n)*btree.DefaultNodeSize)
}

func (img *Image) logicalOffset(descs []extent.Descriptor, off int64) int64 {
	bs := int64(img.Geometry.BlockSize)
	for _, d := range descs {
		n := int64(d.NumBlocks) * bs
		if off < n {
			return img.Geometry.BlockOffset(d.FirstBlock) + off
		}
		off -= n
	}
	return -1
}

type leaf struct {
	key  catalog.Key
	data []byte
}

type overflowRecord struct {
	key extent.OverflowKey
	rec extent.Record
}

// Build lays out the volume and returns the image.
func (b *Builder) Build() (*Image, error) {
	enc := b.encoding()
	blockSize := b.BlockSize
	if blockSize == 0 {
		blockSize = extent.SectorSize
	}
	total := b.TotalBlocks
	if total == 0 {
		total = DefaultTotalBlocks
	}
	date := b.Date
	if date == 0 {
		date = DefaultDate
	}

	volumeStart := int64(b.Prefix)
	if b.PartitionMap {
		volumeStart = partitionStart * apm.BlockSize
	}
	bitmapSectors := (int(total) + 4095) / 4096
	geo := extent.Geometry{
		VolumeStart: volumeStart,
		FirstBlock:  uint16(bitmapStart + bitmapSectors),
		BlockSize:   blockSize,
	}
	blocks := alloc.New(total)
	var overflow []overflowRecord

	// place allocates a fork or special file and splits its runs into the
	// inline record and overflow records.
	place := func(id uint32, fork extent.ForkType, size int, fragment uint16) (extent.Record, error) {
		n := uint16((int64(size) + int64(blockSize) - 1) / int64(blockSize))
		var descs []extent.Descriptor
		for n > 0 {
			run := n
			if fragment > 0 {
				run = min(n, fragment)
			}
			d, err := blocks.Alloc(run, fmt.Sprintf("file %d %s fork", id, fork))
			if err != nil {
				return extent.Record{}, err
			}
			descs = append(descs, d)
			n -= run
			if n > 0 && fragment > 0 {
				if err := blocks.Skip(1); err != nil {
					return extent.Record{}, err
				}
			}
		}

		var inline extent.Record
		var covered uint16
		for i, d := range descs {
			if i < len(inline) {
				inline[i] = d
			} else {
				j := (i - len(inline)) % len(inline)
				if j == 0 {
					overflow = append(overflow, overflowRecord{key: extent.OverflowKey{Fork: fork, FileID: id, StartBlock: covered}})
				}
				overflow[len(overflow)-1].rec[j] = d
			}
			covered += d.NumBlocks
		}
		return inline, nil
	}

	// Catalog leaf records.
	var leaves []leaf
	children := make(map[uint32]uint16)
	for _, it := range b.items {
		children[it.parent]++
	}

	rootName, err := enc.Encode(b.Name)
	if err != nil {
		return nil, err
	}
	if len(rootName) > mdb.VolumeNameCapacity {
		rootName = rootName[:mdb.VolumeNameCapacity]
	}
	rootKey := catalog.NewKey(catalog.RootParentID, rootName, enc)
	root := &catalog.Directory{Key: rootKey, DirID: catalog.RootID, Valence: children[catalog.RootID], CreateDate: date, ModifyDate: date}
	if err := appendLeaf(&leaves, root, rootKey, catalog.DirectoryThreadRecord, catalog.RootID, enc); err != nil {
		return nil, err
	}

	var fileCount, dirCount uint32
	var rootFiles, rootDirs uint16
	for _, it := range b.items {
		raw, err := enc.Encode(it.name)
		if err != nil {
			return nil, err
		}
		key := catalog.NewKey(it.parent, raw, enc)

		if it.dir {
			dirCount++
			if it.parent == catalog.RootID {
				rootDirs++
			}
			d := &catalog.Directory{Key: key, DirID: it.id, Valence: children[it.id], CreateDate: date, ModifyDate: date}
			if err := appendLeaf(&leaves, d, key, catalog.DirectoryThreadRecord, it.id, enc); err != nil {
				return nil, err
			}
			continue
		}

		fileCount++
		if it.parent == catalog.RootID {
			rootFiles++
		}
		f := &catalog.File{Key: key, FileID: it.id, CreateDate: date, ModifyDate: date}
		copy(f.FinderInfo[0:4], it.typ)
		copy(f.FinderInfo[4:8], it.creator)
		if it.invisible {
			binary.BigEndian.PutUint16(f.FinderInfo[8:], catalog.FinderInvisible)
		}
		for _, fork := range []struct {
			t    extent.ForkType
			data []byte
			dst  *catalog.Fork
		}{
			{extent.DataFork, it.data, &f.Data},
			{extent.ResourceFork, it.rsrc, &f.Resource},
		} {
			rec, err := place(it.id, fork.t, len(fork.data), it.fragment)
			if err != nil {
				return nil, err
			}
			*fork.dst = catalog.Fork{
				LogicalSize:  uint32(len(fork.data)),
				PhysicalSize: rec.Blocks() * blockSize,
				Extents:      rec,
			}
		}
		threadType := catalog.FileThreadRecord
		if it.noThread {
			threadType = 0
		}
		if err := appendLeaf(&leaves, f, key, threadType, it.id, enc); err != nil {
			return nil, err
		}
	}

	records := make([]Record, 0, len(leaves)+len(b.raw))
	for _, r := range b.raw {
		k, err := catalog.DecodeKey(r.Key, enc)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf{key: k, data: r.Data})
	}
	slices.SortStableFunc(leaves, func(a, b leaf) int { return a.key.CompareKey(b.key) })
	for _, l := range leaves {
		records = append(records, Record{Key: l.key.Encode(), Data: l.data})
	}

	catTree, err := BuildTree(records, TreeOptions{LeafCapacity: b.LeafCapacity, MaxKeyLength: catalog.MaxKeyLength})
	if err != nil {
		return nil, fmt.Errorf("building catalog tree: %w", err)
	}
	catTree = padTo(catTree, int(blockSize))
	catRec, err := place(catalog.CatalogFileID, extent.DataFork, len(catTree), b.CatalogFragment)
	if err != nil {
		return nil, err
	}

	// Extents-Overflow records sort by file id, fork and start block.
	slices.SortFunc(overflow, func(a, b overflowRecord) int { return a.key.CompareKey(b.key) })
	ovRecords := make([]Record, len(overflow))
	for i, o := range overflow {
		ovRecords[i] = Record{Key: o.key.AppendEncode(nil)[1:], Data: o.rec.AppendEncode(nil)}
	}
	extTree, err := BuildTree(ovRecords, TreeOptions{MaxKeyLength: extent.OverflowKeyLength})
	if err != nil {
		return nil, fmt.Errorf("building extents tree: %w", err)
	}
	extTree = padTo(extTree, int(blockSize))
	extRun, err := blocks.Alloc(uint16(len(extTree)/int(blockSize)), "extents file")
	if err != nil {
		return nil, err
	}
	if err := blocks.Validate(); err != nil {
		return nil, err
	}

	hdr := &mdb.Header{
		Signature:     mdb.Signature,
		CreateDate:    date,
		ModifyDate:    date,
		Attributes:    mdb.AttrUnmounted,
		RootFileCount: rootFiles,
		BitmapStart:   bitmapStart,
		TotalBlocks:   total,
		BlockSize:     blockSize,
		ClumpSize:     blockSize * 4,
		FirstBlock:    geo.FirstBlock,
		NextCatalogID: b.nextID,
		FreeBlocks:    blocks.Free(),
		RootDirCount:  rootDirs,
		FileCount:     fileCount,
		DirCount:      dirCount,
		ExtentsFile: mdb.SpecialFile{
			LogicalSize: uint32(len(extTree)),
			Extents:     extent.Record{extRun},
		},
		CatalogFile: mdb.SpecialFile{
			LogicalSize: uint32(len(catTree)),
			Extents:     catRec,
		},
	}
	hdr.SetName(rootName)
	hdrBytes, err := hdr.Encode()
	if err != nil {
		return nil, err
	}

	volumeSize := int64(geo.FirstBlock)*extent.SectorSize + int64(total)*int64(blockSize) + 2*extent.SectorSize
	buf := binpkg.NewBuffer(int(volumeStart + volumeSize))
	w := binpkg.NewWriter(buf)
	for _, part := range []struct {
		off  int64
		data []byte
	}{
		{volumeStart + mdb.ConventionalOffset, hdrBytes},
		{volumeStart + volumeSize - mdb.ConventionalOffset, hdrBytes}, // alternate header
		{volumeStart + bitmapStart*extent.SectorSize, blocks.Bitmap()},
	} {
		if err := w.At(part.off).WriteBytes(part.data); err != nil {
			return nil, err
		}
	}

	out := &Image{
		VolumeStart: volumeStart,
		Header:      hdr,
		Geometry:    geo,
		Catalog:     forkRuns(catRec, overflow, catalog.CatalogFileID, extent.DataFork),
		Extents:     []extent.Descriptor{extRun},
		w:           w,
	}
	if err := out.writeFork(catalog.Fork{Extents: catRec}, overflow, catalog.CatalogFileID, extent.DataFork, catTree); err != nil {
		return nil, err
	}
	if err := out.write(out.Extents, extTree); err != nil {
		return nil, err
	}

	for _, it := range b.items {
		if it.dir {
			continue
		}
		f, err := findFile(leaves, it.id)
		if err != nil {
			return nil, err
		}
		if err := out.writeFork(f.Data, overflow, it.id, extent.DataFork, it.data); err != nil {
			return nil, err
		}
		if err := out.writeFork(f.Resource, overflow, it.id, extent.ResourceFork, it.rsrc); err != nil {
			return nil, err
		}
	}

	if b.PartitionMap {
		if err := writePartitionMap(w, int64(buf.Len()), volumeSize); err != nil {
			return nil, err
		}
	}
	out.Bytes = buf.Bytes()
	return out, nil
}

// appendLeaf adds an entry record and, unless threadType is zero, its
// thread record.
func appendLeaf(leaves *[]leaf, rec interface{ Encode() ([]byte, error) }, key catalog.Key, threadType catalog.RecordType, id uint32, enc *textenc.Encoding) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	*leaves = append(*leaves, leaf{key: key, data: data})
	if threadType == 0 {
		return nil
	}

	th := &catalog.Thread{
		Key:        catalog.NewKey(id, nil, enc),
		Type:       threadType,
		ParentID:   key.ParentID,
		ParentName: key.Name,
	}
	data, err = th.Encode()
	if err != nil {
		return err
	}
	*leaves = append(*leaves, leaf{key: th.Key, data: data})
	return nil
}

func findFile(leaves []leaf, id uint32) (*catalog.File, error) {
	for _, l := range leaves {
		if len(l.data) == 0 || catalog.RecordType(int8(l.data[0])) != catalog.FileRecord {
			continue
		}
		rec, err := catalog.DecodeRecord(btree.Record{Key: l.key.Encode(), Data: l.data}, l.key.Name.Enc)
		if err != nil {
			return nil, err
		}
		if f := rec.(*catalog.File); f.FileID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file %d not in catalog", id)
}

// writeFork copies data into the fork's inline runs followed by its
// overflow runs.
func (img *Image) writeFork(fork catalog.Fork, overflow []overflowRecord, id uint32, t extent.ForkType, data []byte) error {
	descs := forkRuns(fork.Extents, overflow, id, t)
	if extent.Covered(descs, img.Geometry.BlockSize) < int64(len(data)) {
		return fmt.Errorf("file %d %s fork: runs too short for %d bytes", id, t, len(data))
	}
	return img.write(descs, data)
}

// forkRuns returns the inline runs of a fork followed by its overflow
// runs. overflow must be in key order.
func forkRuns(inline extent.Record, overflow []overflowRecord, id uint32, t extent.ForkType) []extent.Descriptor {
	descs := inline.Descriptors()
	for _, o := range overflow {
		if o.key.FileID == id && o.key.Fork == t {
			descs = append(descs, o.rec.Descriptors()...)
		}
	}
	return descs
}

// write spreads data over the byte ranges of descs.
func (img *Image) write(descs []extent.Descriptor, data []byte) error {
	for r := range extent.Ranges(descs, img.Geometry) {
		if len(data) == 0 {
			break
		}
		n := min(int64(len(data)), r.Length)
		if err := img.w.At(r.Offset).WriteBytes(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func writePartitionMap(w *binpkg.Writer, diskSize, volumeSize int64) error {
	diskBlocks := uint32(diskSize / apm.BlockSize)
	ddr, err := restruct.Pack(binary.BigEndian, &apm.DriverDescriptor{
		Signature:  apm.DriverSignature,
		BlockSize:  apm.BlockSize,
		BlockCount: diskBlocks,
	})
	if err != nil {
		return err
	}
	if err := w.At(0).WriteBytes(ddr); err != nil {
		return err
	}

	entries := []apm.Entry{
		mapEntry("Apple", "Apple_partition_map", 1, partitionStart-1),
		mapEntry("Untitled", apm.HFSType, partitionStart, uint32(volumeSize/apm.BlockSize)),
	}
	for i := range entries {
		entries[i].Signature = apm.EntrySignature
		entries[i].MapBlockCount = uint32(len(entries))
		raw, err := restruct.Pack(binary.BigEndian, &entries[i])
		if err != nil {
			return err
		}
		if err := w.At(int64(i+1) * apm.BlockSize).WriteBytes(raw); err != nil {
			return err
		}
	}
	return nil
}

func mapEntry(name, typ string, start, count uint32) apm.Entry {
	e := apm.Entry{PhysicalStart: start, BlockCount: count}
	copy(e.Name[:], name)
	copy(e.Type[:], typ)
	return e
}

func padTo(b []byte, n int) []byte {
	if r := len(b) % n; r != 0 {
		b = append(b, make([]byte, n-r)...)
	}
	return b
}
