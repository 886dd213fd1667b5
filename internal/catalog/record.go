package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/go-restruct/restruct"

	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
	"github.com/robert-malhotra/go-hfs/internal/btree"
	"github.com/robert-malhotra/go-hfs/internal/extent"
	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

// RecordType is the one-byte tag at the start of every catalog record.
type RecordType int8

const (
	DirectoryRecord       RecordType = 1
	FileRecord            RecordType = 2
	DirectoryThreadRecord RecordType = 3
	FileThreadRecord      RecordType = 4
)

func (t RecordType) String() string {
	switch t {
	case DirectoryRecord:
		return "directory"
	case FileRecord:
		return "file"
	case DirectoryThreadRecord:
		return "directory thread"
	case FileThreadRecord:
		return "file thread"
	default:
		return fmt.Sprintf("type(%d)", int8(t))
	}
}

// On-disk record sizes.
const (
	DirectoryRecordSize = 70
	FileRecordSize      = 102
	ThreadRecordSize    = 46
)

// Well-known catalog ids.
const (
	RootParentID    uint32 = 1
	RootID          uint32 = 2
	ExtentsFileID   uint32 = 3
	CatalogFileID   uint32 = 4
	FirstUserID     uint32 = 16
	FinderInvisible uint16 = 0x4000
)

// ErrMalformedRecord matches every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed catalog record")

// MalformedRecordError reports a leaf record that could not be decoded.
// It does not stop catalog decoding.
type MalformedRecordError struct {
	Node   uint32
	Index  int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed catalog record (node %d, record %d): %s", e.Node, e.Index, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func malformed(rec btree.Record, err error, format string, args ...any) *MalformedRecordError {
	return &MalformedRecordError{Node: rec.Node, Index: rec.Index, Reason: fmt.Sprintf(format, args...), Err: err}
}

// Record is a decoded catalog leaf record: *Directory, *File or *Thread.
type Record interface {
	RecordType() RecordType
	CatalogKey() Key
}

// Entry is a directory or file: a record that places an item in the
// hierarchy.
type Entry interface {
	Record
	ID() uint32
	ParentID() uint32
	Name() textenc.Name
	IsDir() bool
	Created() time.Time
	Modified() time.Time
	Invisible() bool
}

// Directory is a directory record.
type Directory struct {
	Key Key

	Flags      uint16
	Valence    uint16 // number of direct children
	DirID      uint32
	CreateDate uint32
	ModifyDate uint32
	BackupDate uint32
	FinderInfo [16]byte // DInfo
	ExtInfo    [16]byte // DXInfo
}

type directoryBody struct {
	Type       int8
	Reserved   uint8
	Flags      uint16
	Valence    uint16
	DirID      uint32
	CreateDate uint32
	ModifyDate uint32
	BackupDate uint32
	FinderInfo [16]byte
	ExtInfo    [16]byte
	Reserved2  [4]uint32
}

func (d *Directory) RecordType() RecordType { return DirectoryRecord }
func (d *Directory) CatalogKey() Key        { return d.Key }
func (d *Directory) ID() uint32             { return d.DirID }
func (d *Directory) ParentID() uint32       { return d.Key.ParentID }
func (d *Directory) Name() textenc.Name     { return d.Key.Name }
func (d *Directory) IsDir() bool            { return true }
func (d *Directory) Created() time.Time     { return binpkg.MacTime(d.CreateDate) }
func (d *Directory) Modified() time.Time    { return binpkg.MacTime(d.ModifyDate) }
func (d *Directory) BackedUp() time.Time    { return binpkg.MacTime(d.BackupDate) }

// FinderFlags returns frFlags from the directory's Finder info.
func (d *Directory) FinderFlags() uint16 {
	return binary.BigEndian.Uint16(d.FinderInfo[8:])
}

func (d *Directory) Invisible() bool {
	return d.FinderFlags()&FinderInvisible != 0
}

// Encode returns the record's on-disk bytes.
func (d *Directory) Encode() ([]byte, error) {
	return restruct.Pack(binary.BigEndian, &directoryBody{
		Type:       int8(DirectoryRecord),
		Flags:      d.Flags,
		Valence:    d.Valence,
		DirID:      d.DirID,
		CreateDate: d.CreateDate,
		ModifyDate: d.ModifyDate,
		BackupDate: d.BackupDate,
		FinderInfo: d.FinderInfo,
		ExtInfo:    d.ExtInfo,
	})
}

// Fork describes one fork of a file.
type Fork struct {
	StartBlock   uint16
	LogicalSize  uint32
	PhysicalSize uint32
	Extents      extent.Record
}

// File is a file record.
type File struct {
	Key Key

	Flags      uint8
	FileType   int8
	FinderInfo [16]byte // FInfo
	FileID     uint32
	Data       Fork
	Resource   Fork
	CreateDate uint32
	ModifyDate uint32
	BackupDate uint32
	ExtInfo    [16]byte // FXInfo
	ClumpSize  uint16
}

type fileBody struct {
	Type         int8
	Reserved     uint8
	Flags        uint8
	FileType     int8
	FinderInfo   [16]byte
	FileID       uint32
	DataStart    uint16
	DataLogical  uint32
	DataPhysical uint32
	RsrcStart    uint16
	RsrcLogical  uint32
	RsrcPhysical uint32
	CreateDate   uint32
	ModifyDate   uint32
	BackupDate   uint32
	ExtInfo      [16]byte
	ClumpSize    uint16
	DataExtents  extent.Record
	RsrcExtents  extent.Record
	Reserved2    uint32
}

func (f *File) RecordType() RecordType { return FileRecord }
func (f *File) CatalogKey() Key        { return f.Key }
func (f *File) ID() uint32             { return f.FileID }
func (f *File) ParentID() uint32       { return f.Key.ParentID }
func (f *File) Name() textenc.Name     { return f.Key.Name }
func (f *File) IsDir() bool            { return false }
func (f *File) Created() time.Time     { return binpkg.MacTime(f.CreateDate) }
func (f *File) Modified() time.Time    { return binpkg.MacTime(f.ModifyDate) }
func (f *File) BackedUp() time.Time    { return binpkg.MacTime(f.BackupDate) }

// TypeCode returns the four-character file type.
func (f *File) TypeCode() string {
	return textenc.MacRoman.Decode(f.FinderInfo[0:4])
}

// CreatorCode returns the four-character creator.
func (f *File) CreatorCode() string {
	return textenc.MacRoman.Decode(f.FinderInfo[4:8])
}

// FinderFlags returns fdFlags from the file's Finder info.
func (f *File) FinderFlags() uint16 {
	return binary.BigEndian.Uint16(f.FinderInfo[8:])
}

func (f *File) Invisible() bool {
	return f.FinderFlags()&FinderInvisible != 0
}

// Fork returns the data or resource fork.
func (f *File) Fork(t extent.ForkType) Fork {
	if t == extent.ResourceFork {
		return f.Resource
	}
	return f.Data
}

// Encode returns the record's on-disk bytes.
func (f *File) Encode() ([]byte, error) {
	return restruct.Pack(binary.BigEndian, &fileBody{
		Type:         int8(FileRecord),
		Flags:        f.Flags,
		FileType:     f.FileType,
		FinderInfo:   f.FinderInfo,
		FileID:       f.FileID,
		DataStart:    f.Data.StartBlock,
		DataLogical:  f.Data.LogicalSize,
		DataPhysical: f.Data.PhysicalSize,
		RsrcStart:    f.Resource.StartBlock,
		RsrcLogical:  f.Resource.LogicalSize,
		RsrcPhysical: f.Resource.PhysicalSize,
		CreateDate:   f.CreateDate,
		ModifyDate:   f.ModifyDate,
		BackupDate:   f.BackupDate,
		ExtInfo:      f.ExtInfo,
		ClumpSize:    f.ClumpSize,
		DataExtents:  f.Data.Extents,
		RsrcExtents:  f.Resource.Extents,
	})
}

// Thread links a catalog id back to its parent and name.
type Thread struct {
	Key Key // the described item's id and an empty name

	Type       RecordType
	ParentID   uint32
	ParentName textenc.Name
}

type threadBody struct {
	Type       int8
	Reserved   uint8
	Reserved2  [2]uint32
	ParentID   uint32
	NameLength uint8
	Name       [NameCapacity]byte
}

func (t *Thread) RecordType() RecordType { return t.Type }
func (t *Thread) CatalogKey() Key        { return t.Key }

// ID returns the id of the item the thread describes.
func (t *Thread) ID() uint32 { return t.Key.ParentID }

// Encode returns the record's on-disk bytes.
func (t *Thread) Encode() ([]byte, error) {
	body := threadBody{Type: int8(t.Type), ParentID: t.ParentID}
	n := copy(body.Name[:], t.ParentName.Raw)
	body.NameLength = uint8(n)
	return restruct.Pack(binary.BigEndian, &body)
}

// DecodeRecord decodes a catalog leaf record. Records with an unknown type
// or too few bytes yield a *MalformedRecordError.
func DecodeRecord(rec btree.Record, enc *textenc.Encoding) (Record, error) {
	key, err := DecodeKey(rec.Key, enc)
	if err != nil {
		return nil, malformed(rec, err, "key: %v", err)
	}
	if len(rec.Data) == 0 {
		return nil, malformed(rec, nil, "empty record")
	}

	typ := RecordType(int8(rec.Data[0]))
	switch typ {
	case DirectoryRecord:
		var body directoryBody
		if err := unpack(rec, typ, DirectoryRecordSize, &body); err != nil {
			return nil, err
		}
		return &Directory{
			Key:        key,
			Flags:      body.Flags,
			Valence:    body.Valence,
			DirID:      body.DirID,
			CreateDate: body.CreateDate,
			ModifyDate: body.ModifyDate,
			BackupDate: body.BackupDate,
			FinderInfo: body.FinderInfo,
			ExtInfo:    body.ExtInfo,
		}, nil

	case FileRecord:
		var body fileBody
		if err := unpack(rec, typ, FileRecordSize, &body); err != nil {
			return nil, err
		}
		return &File{
			Key:        key,
			Flags:      body.Flags,
			FileType:   body.FileType,
			FinderInfo: body.FinderInfo,
			FileID:     body.FileID,
			Data: Fork{
				StartBlock:   body.DataStart,
				LogicalSize:  body.DataLogical,
				PhysicalSize: body.DataPhysical,
				Extents:      body.DataExtents,
			},
			Resource: Fork{
				StartBlock:   body.RsrcStart,
				LogicalSize:  body.RsrcLogical,
				PhysicalSize: body.RsrcPhysical,
				Extents:      body.RsrcExtents,
			},
			CreateDate: body.CreateDate,
			ModifyDate: body.ModifyDate,
			BackupDate: body.BackupDate,
			ExtInfo:    body.ExtInfo,
			ClumpSize:  body.ClumpSize,
		}, nil

	case DirectoryThreadRecord, FileThreadRecord:
		var body threadBody
		if err := unpack(rec, typ, ThreadRecordSize, &body); err != nil {
			return nil, err
		}
		n := int(body.NameLength)
		if n > NameCapacity {
			return nil, malformed(rec, nil, "thread name length %d exceeds %d", n, NameCapacity)
		}
		name := make([]byte, n)
		copy(name, body.Name[:n])
		return &Thread{
			Key:        key,
			Type:       typ,
			ParentID:   body.ParentID,
			ParentName: textenc.NewName(name, enc),
		}, nil

	default:
		return nil, malformed(rec, nil, "unknown record type %d", int8(typ))
	}
}

func unpack(rec btree.Record, typ RecordType, size int, v any) error {
	if len(rec.Data) < size {
		return malformed(rec, nil, "%s record needs %d bytes, have %d", typ, size, len(rec.Data))
	}
	if err := restruct.Unpack(rec.Data[:size], binary.BigEndian, v); err != nil {
		return malformed(rec, err, "decoding %s record: %v", typ, err)
	}
	return nil
}
