package hfs

import (
	"log/slog"

	"github.com/robert-malhotra/go-hfs/internal/logging"
	"github.com/robert-malhotra/go-hfs/internal/mdb"
)

// MountOption configures how a volume is mounted.
type MountOption func(*mountOptions)

type mountOptions struct {
	logger    *slog.Logger
	encoding  *Encoding
	scanLimit int64
	overflow  bool
}

func defaultMountOptions() *mountOptions {
	return &mountOptions{
		logger:    logging.Discard(),
		encoding:  MacRoman,
		scanLimit: mdb.DefaultScanLimit,
	}
}

// WithLogger sets the logger for mount and catalog diagnostics.
func WithLogger(logger *slog.Logger) MountOption {
	return func(o *mountOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEncoding sets the encoding of names on the volume (MacRoman by
// default).
func WithEncoding(enc *Encoding) MountOption {
	return func(o *mountOptions) {
		if enc != nil {
			o.encoding = enc
		}
	}
}

// WithScanLimit bounds the linear signature search to the first n bytes
// of the image. A negative n disables the search.
func WithScanLimit(n int64) MountOption {
	return func(o *mountOptions) {
		o.scanLimit = n
	}
}

// WithOverflowLookup resolves extents beyond a file's first three through
// the Extents-Overflow B*-tree. Without it such files report
// ErrNeedsOverflowLookup.
func WithOverflowLookup() MountOption {
	return func(o *mountOptions) {
		o.overflow = true
	}
}
