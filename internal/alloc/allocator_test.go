package alloc

import (
	"errors"
	"testing"

	"github.com/robert-malhotra/go-hfs/internal/extent"
)

func TestAllocatorBasic(t *testing.T) {
	a := New(100)

	d1, err := a.Alloc(10, "first")
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if d1 != (extent.Descriptor{FirstBlock: 0, NumBlocks: 10}) {
		t.Errorf("first allocation: got %+v", d1)
	}

	d2, err := a.Alloc(5, "second")
	if err != nil {
		t.Fatalf("second allocation: %v", err)
	}
	if d2.FirstBlock != 10 {
		t.Errorf("second allocation: got block %d, want 10", d2.FirstBlock)
	}

	if a.Used() != 15 {
		t.Errorf("used: got %d, want 15", a.Used())
	}
	if a.Free() != 85 {
		t.Errorf("free: got %d, want 85", a.Free())
	}
}

func TestAllocatorZeroCount(t *testing.T) {
	a := New(10)

	d, err := a.Alloc(0, "empty")
	if err != nil {
		t.Fatalf("zero allocation: %v", err)
	}
	if d.NumBlocks != 0 {
		t.Errorf("zero allocation: got %+v", d)
	}
	if len(a.Allocations()) != 0 {
		t.Errorf("zero allocation was recorded")
	}
}

func TestAllocatorSkip(t *testing.T) {
	a := New(20)

	first, _ := a.Alloc(2, "a")
	if err := a.Skip(3); err != nil {
		t.Fatalf("skip: %v", err)
	}
	second, _ := a.Alloc(2, "b")

	if second.FirstBlock != first.FirstBlock+first.NumBlocks+3 {
		t.Errorf("expected a 3-block gap, got runs %+v and %+v", first, second)
	}
	if a.Free() != 16 {
		t.Errorf("free: got %d, want 16 (skipped blocks stay free)", a.Free())
	}
}

func TestAllocatorNoSpace(t *testing.T) {
	a := New(4)

	if _, err := a.Alloc(3, "fits"); err != nil {
		t.Fatalf("allocation: %v", err)
	}
	if _, err := a.Alloc(2, "too big"); !errors.Is(err, ErrNoSpace) {
		t.Errorf("expected ErrNoSpace, got %v", err)
	}
	if err := a.Skip(2); !errors.Is(err, ErrNoSpace) {
		t.Errorf("expected ErrNoSpace from skip, got %v", err)
	}
}

func TestAllocatorBitmap(t *testing.T) {
	a := New(12)
	a.Alloc(3, "a")
	a.Skip(6)
	a.Alloc(2, "b")

	bm := a.Bitmap()
	want := []byte{0xE0, 0x60}
	if len(bm) != len(want) {
		t.Fatalf("bitmap length: got %d, want %d", len(bm), len(want))
	}
	for i := range want {
		if bm[i] != want[i] {
			t.Errorf("bitmap[%d]: got %#02x, want %#02x", i, bm[i], want[i])
		}
	}
}

func TestAllocatorValidate(t *testing.T) {
	a := New(50)
	a.Alloc(10, "a")
	a.Skip(5)
	a.Alloc(10, "b")

	if err := a.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestAllocatorAllocationsCopy(t *testing.T) {
	a := New(10)
	a.Alloc(1, "x")

	allocs := a.Allocations()
	allocs[0].Start = 9

	if a.Allocations()[0].Start != 0 {
		t.Errorf("Allocations returned a shared slice")
	}
}
