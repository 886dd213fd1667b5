package mdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-hfs/internal/apm"
	binpkg "github.com/robert-malhotra/go-hfs/internal/binary"
)

// ConventionalOffset is where the header starts within a volume: the
// third 512-byte block.
const ConventionalOffset = 1024

// DefaultScanLimit bounds the linear signature scan.
const DefaultScanLimit = 1 << 20

const scanChunk = 64 << 10

// Method records how the signature was found.
type Method string

const (
	MethodConventional Method = "conventional offset"
	MethodPartitionMap Method = "partition map"
	MethodScan         Method = "linear scan"
)

// LocateOptions tunes signature location.
type LocateOptions struct {
	// ScanLimit is the number of leading image bytes searched when the
	// signature is not at a known offset. Zero means DefaultScanLimit and a
	// negative value disables the scan.
	ScanLimit int64
}

// Location is where a volume header was found.
type Location struct {
	// Offset is the byte offset immediately following the signature.
	Offset int64

	// VolumeStart is the byte offset of the volume the header belongs to.
	VolumeStart int64

	Method Method
}

// Locate finds the volume signature in an image of the given size.
func Locate(r io.ReaderAt, size int64, opts LocateOptions) (Location, error) {
	if size < Size {
		return Location{}, fmt.Errorf("%w: %d bytes cannot hold a %d-byte header", ErrTruncatedImage, size, Size)
	}

	pos, method, err := findSignature(r, size, opts)
	if err != nil {
		return Location{}, err
	}
	if size-pos < Size {
		return Location{}, fmt.Errorf("%w: signature at offset %d leaves %d of %d header bytes",
			ErrTruncatedImage, pos, size-pos, Size)
	}

	return Location{
		Offset:      pos + SignatureSize,
		VolumeStart: max(pos-ConventionalOffset, 0),
		Method:      method,
	}, nil
}

func findSignature(r io.ReaderAt, size int64, opts LocateOptions) (int64, Method, error) {
	if hasSignature(r, size, ConventionalOffset) {
		return ConventionalOffset, MethodConventional, nil
	}

	if parts, err := apm.Read(r, size); err == nil {
		for _, p := range parts {
			if !p.IsHFS() {
				continue
			}
			if pos := p.Start + ConventionalOffset; hasSignature(r, size, pos) {
				return pos, MethodPartitionMap, nil
			}
		}
	}

	limit := opts.ScanLimit
	if limit == 0 {
		limit = DefaultScanLimit
	}
	if limit > 0 {
		pos, err := scan(r, min(limit, size))
		if err != nil {
			return 0, "", err
		}
		if pos >= 0 {
			return pos, MethodScan, nil
		}
	}

	return 0, "", ErrSignatureNotFound
}

func hasSignature(r io.ReaderAt, size, pos int64) bool {
	if pos < 0 || pos+SignatureSize > size {
		return false
	}
	var sig [SignatureSize]byte
	if err := binpkg.ReadFull(r, sig[:], pos); err != nil {
		return false
	}
	return binary.BigEndian.Uint16(sig[:]) == Signature
}

// scan searches [0, limit) for the signature and returns its offset, or -1.
func scan(r io.ReaderAt, limit int64) (int64, error) {
	sig := binary.BigEndian.AppendUint16(nil, Signature)
	buf := make([]byte, scanChunk)

	for base := int64(0); base < limit; base += scanChunk - 1 {
		n := min(int64(len(buf)), limit-base)
		chunk := buf[:n]
		if err := binpkg.ReadFull(r, chunk, base); err != nil {
			return -1, fmt.Errorf("scanning for signature at offset %d: %w", base, err)
		}
		if i := bytes.Index(chunk, sig); i >= 0 {
			return base + int64(i), nil
		}
		if n < scanChunk {
			break
		}
	}
	return -1, nil
}
