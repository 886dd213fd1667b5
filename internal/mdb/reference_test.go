package mdb

import (
	"io"

	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
	"github.com/robert-malhotra/go-hfs/internal/extent"
)

// readManual decodes the header field by field. It is the reference the
// overlay decoder is checked against.
func readManual(r io.ReaderAt, off int64) (*Header, error) {
	br := binpkg.NewReader(r).At(off - SignatureSize)
	h := &Header{}

	u16 := func(dst *uint16) error {
		v, err := br.ReadUint16()
		*dst = v
		return err
	}
	u32 := func(dst *uint32) error {
		v, err := br.ReadUint32()
		*dst = v
		return err
	}
	extents := func(sf *SpecialFile) error {
		if err := u32(&sf.LogicalSize); err != nil {
			return err
		}
		raw, err := br.ReadBytes(extent.RecordSize)
		if err != nil {
			return err
		}
		sf.Extents, err = extent.DecodeRecord(raw)
		return err
	}

	steps := []func() error{
		func() error { return u16(&h.Signature) },
		func() error { return u32(&h.CreateDate) },
		func() error { return u32(&h.ModifyDate) },
		func() error { return u16(&h.Attributes) },
		func() error { return u16(&h.RootFileCount) },
		func() error { return u16(&h.BitmapStart) },
		func() error { return u16(&h.AllocPtr) },
		func() error { return u16(&h.TotalBlocks) },
		func() error { return u32(&h.BlockSize) },
		func() error { return u32(&h.ClumpSize) },
		func() error { return u16(&h.FirstBlock) },
		func() error { return u32(&h.NextCatalogID) },
		func() error { return u16(&h.FreeBlocks) },
		func() error {
			v, err := br.ReadUint8()
			h.VolumeNameLength = v
			return err
		},
		func() error {
			raw, err := br.ReadBytes(VolumeNameCapacity)
			copy(h.VolumeName[:], raw)
			return err
		},
		func() error { return u32(&h.BackupDate) },
		func() error { return u16(&h.BackupSeq) },
		func() error { return u32(&h.WriteCount) },
		func() error { return u32(&h.ExtentsClumpSize) },
		func() error { return u32(&h.CatalogClumpSize) },
		func() error { return u16(&h.RootDirCount) },
		func() error { return u32(&h.FileCount) },
		func() error { return u32(&h.DirCount) },
		func() error {
			for i := range h.FinderInfo {
				if err := u32(&h.FinderInfo[i]); err != nil {
					return err
				}
			}
			return nil
		},
		func() error { return u16(&h.VolumeCacheSize) },
		func() error { return u16(&h.BitmapCacheSize) },
		func() error { return u16(&h.CommonCacheSize) },
		func() error { return extents(&h.ExtentsFile) },
		func() error { return extents(&h.CatalogFile) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return h, nil
}
