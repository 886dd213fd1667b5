package alloc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/robert-malhotra/go-hfs/internal/extent"
)

// ErrNoSpace is returned when a request exceeds the remaining blocks.
var ErrNoSpace = errors.New("no free allocation blocks")

// Allocator manages allocation blocks of one volume.
type Allocator struct {
	mu sync.Mutex

	// total is the number of allocation blocks on the volume
	total uint16

	// next is the first block not yet handed out or skipped
	next uint16

	// allocations tracks all runs handed out (for validation)
	allocations []Allocation
}

// Allocation is a run of blocks handed out.
type Allocation struct {
	Start uint16
	Count uint16
	Tag   string // Optional tag for debugging
}

// New creates an allocator for a volume of total blocks.
func New(total uint16) *Allocator {
	return &Allocator{total: total}
}

// Alloc returns the next run of count blocks. A zero count returns an
// empty descriptor and allocates nothing.
func (a *Allocator) Alloc(count uint16, tag string) (extent.Descriptor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if count == 0 {
		return extent.Descriptor{}, nil
	}
	if int(a.next)+int(count) > int(a.total) {
		return extent.Descriptor{}, fmt.Errorf("%w: %s needs %d blocks, %d left", ErrNoSpace, tag, count, a.total-a.next)
	}

	d := extent.Descriptor{FirstBlock: a.next, NumBlocks: count}
	a.allocations = append(a.allocations, Allocation{Start: a.next, Count: count, Tag: tag})
	a.next += count
	return d, nil
}

// Skip leaves count blocks unallocated.
func (a *Allocator) Skip(count uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(a.next)+int(count) > int(a.total) {
		return fmt.Errorf("%w: cannot skip %d blocks, %d left", ErrNoSpace, count, a.total-a.next)
	}
	a.next += count
	return nil
}

// Total returns the number of blocks on the volume.
func (a *Allocator) Total() uint16 {
	return a.total
}

// Used returns the number of blocks handed out.
func (a *Allocator) Used() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var n uint16
	for _, al := range a.allocations {
		n += al.Count
	}
	return n
}

// Free returns the number of blocks not handed out, skipped ones included.
func (a *Allocator) Free() uint16 {
	return a.total - a.Used()
}

// Allocations returns a copy of all allocations made.
func (a *Allocator) Allocations() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]Allocation, len(a.allocations))
	copy(result, a.allocations)
	return result
}

// Bitmap returns the volume bitmap: one bit per block, most significant
// bit first, set for allocated blocks.
func (a *Allocator) Bitmap() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	bm := make([]byte, (int(a.total)+7)/8)
	for _, al := range a.allocations {
		for b := int(al.Start); b < int(al.Start)+int(al.Count); b++ {
			bm[b/8] |= 0x80 >> (b % 8)
		}
	}
	return bm
}

// Validate checks that allocations don't overlap and are within bounds.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, al := range a.allocations {
		if int(al.Start)+int(al.Count) > int(a.total) {
			return fmt.Errorf("allocation %q at block %d count %d extends past block %d", al.Tag, al.Start, al.Count, a.total)
		}
	}

	// Check for overlaps (simple O(n²) check for debugging)
	for i := 0; i < len(a.allocations); i++ {
		for j := i + 1; j < len(a.allocations); j++ {
			a1, a2 := a.allocations[i], a.allocations[j]
			if a1.Start < a2.Start+a2.Count && a2.Start < a1.Start+a1.Count {
				return fmt.Errorf("overlapping allocations: [%d, count %d] and [%d, count %d]",
					a1.Start, a1.Count, a2.Start, a2.Count)
			}
		}
	}

	return nil
}
