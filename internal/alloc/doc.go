// Package alloc hands out allocation blocks when building HFS volumes.
//
// An HFS volume divides its allocation area into equal blocks tracked by the
// volume bitmap. Images built for tests need files placed at known,
// non-overlapping block runs; this package manages that placement.
//
// # Allocator
//
// The [Allocator] type provides append-only allocation with the following
// features:
//
//   - Runs: [Allocator.Alloc] returns the next free run as an
//     [extent.Descriptor].
//   - Gaps: [Allocator.Skip] leaves blocks unused, so consecutive runs are
//     discontiguous.
//   - Tracking: all allocations are recorded and [Allocator.Validate]
//     checks them for overlap.
//   - Bitmap: [Allocator.Bitmap] renders the volume bitmap.
//
// # Usage
//
//	a := alloc.New(800)
//	cat, err := a.Alloc(4, "catalog")
//	a.Skip(1)
//	data, err := a.Alloc(2, "file data")
//
// [extent.Descriptor]: github.com/robert-malhotra/go-hfs/internal/extent.Descriptor
package alloc
