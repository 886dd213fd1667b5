package hfs

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-hfs/internal/btree"
	"github.com/robert-malhotra/go-hfs/internal/catalog"
	"github.com/robert-malhotra/go-hfs/internal/extent"
	"github.com/robert-malhotra/go-hfs/internal/logging"
	"github.com/robert-malhotra/go-hfs/internal/mdb"
)

// ForkRanges returns the byte ranges holding one fork of f, in logical
// order. The last range may extend past the fork's logical size.
func (v *Volume) ForkRanges(f *File, fork ForkType) ([]Range, error) {
	if v.closed {
		return nil, ErrClosed
	}
	s, err := v.openFork(f.ID(), fork, f.Fork(fork))
	if err != nil {
		return nil, err
	}
	return s.Ranges(), nil
}

// OpenFork returns a reader over one fork of f.
func (v *Volume) OpenFork(f *File, fork ForkType) (*ForkReader, error) {
	if v.closed {
		return nil, ErrClosed
	}
	return v.openFork(f.ID(), fork, f.Fork(fork))
}

func (v *Volume) openFork(id uint32, fork ForkType, fk catalog.Fork) (*extent.Stream, error) {
	descs, err := v.extents(id, fork, fk.Extents, fk.LogicalSize)
	if err != nil {
		return nil, err
	}
	return v.stream(descs, fk.LogicalSize), nil
}

func (v *Volume) specialFile(id uint32, sf mdb.SpecialFile) (*extent.Stream, error) {
	descs, err := v.extents(id, DataFork, sf.Extents, sf.LogicalSize)
	if err != nil {
		return nil, err
	}
	return v.stream(descs, sf.LogicalSize), nil
}

func (v *Volume) stream(descs []extent.Descriptor, size uint32) *extent.Stream {
	geo := v.header.Geometry(v.loc.VolumeStart)
	return extent.NewStream(v.r, extent.Ranges(descs, geo), int64(size))
}

// extents returns every extent of a fork. The inline record is used alone
// when it covers the logical size; otherwise the remaining extents come
// from the Extents-Overflow tree if overflow lookup is enabled.
func (v *Volume) extents(id uint32, fork ForkType, inline extent.Record, logicalSize uint32) ([]extent.Descriptor, error) {
	geo := v.header.Geometry(v.loc.VolumeStart)
	_, err := extent.Resolve(inline, logicalSize, geo)
	if err == nil {
		return inline.Descriptors(), nil
	}
	if !v.opts.overflow || id == catalog.ExtentsFileID {
		return nil, fmt.Errorf("file %d %s fork: %w", id, fork, err)
	}

	t, err := v.overflowTree()
	if err != nil {
		return nil, err
	}
	log := logging.WithComponent(v.log, "extents")

	descs := slices.Clone(inline.Descriptors())
	for extent.Covered(descs, geo.BlockSize) < int64(logicalSize) {
		key := extent.OverflowKey{Fork: fork, FileID: id, StartBlock: uint16(extent.Blocks(descs))}
		rec, err := t.Lookup(key.Compare)
		if err != nil {
			return nil, fmt.Errorf("file %d %s fork extents from block %d: %w", id, fork, key.StartBlock, err)
		}
		more, err := extent.DecodeRecord(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("file %d %s fork: %w", id, fork, err)
		}
		if more.Blocks() == 0 {
			return nil, fmt.Errorf("%w: file %d %s fork: empty overflow record at block %d",
				btree.ErrCorruptRecord, id, fork, key.StartBlock)
		}
		logging.WithNode(log, "extents", rec.Node).Debug("overflow extents",
			"file_id", id, "fork", fork.String(), "start_block", key.StartBlock)
		descs = append(descs, more.Descriptors()...)
	}
	return descs, nil
}

// overflowTree opens the Extents-Overflow B*-tree.
func (v *Volume) overflowTree() (*btree.Tree, error) {
	s, err := v.specialFile(catalog.ExtentsFileID, v.header.ExtentsFile)
	if err != nil {
		return nil, fmt.Errorf("extents file: %w", err)
	}
	t, err := btree.Open(s, s.Size())
	if err != nil {
		return nil, fmt.Errorf("opening extents tree: %w", err)
	}
	return t, nil
}
