package extent

import (
	"io"
	"iter"
	"sort"

	"github.com/robert-malhotra/go-hfs/internal/binary"
)

// Stream presents a list of byte ranges as one contiguous logical file.
type Stream struct {
	r      io.ReaderAt
	ranges []Range
	starts []int64 // logical offset of each range
	size   int64
}

// NewStream concatenates ranges over r. The logical size is clipped to
// size, or to the total length of the ranges if that is smaller.
func NewStream(r io.ReaderAt, ranges iter.Seq[Range], size int64) *Stream {
	s := &Stream{r: r}
	var total int64
	for rg := range ranges {
		s.ranges = append(s.ranges, rg)
		s.starts = append(s.starts, total)
		total += rg.Length
	}
	s.size = min(size, total)
	return s
}

// Size returns the logical size of the stream.
func (s *Stream) Size() int64 {
	return s.size
}

// Ranges returns the underlying byte ranges.
func (s *Stream) Ranges() []Range {
	return s.ranges
}

// ReadAt implements io.ReaderAt over the logical byte stream.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if off >= s.size {
		return 0, io.EOF
	}

	want := p
	if remain := s.size - off; int64(len(want)) > remain {
		want = want[:remain]
	}

	n := 0
	for n < len(want) {
		pos := off + int64(n)
		// Last range whose logical start is <= pos
		i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] > pos }) - 1
		rg := s.ranges[i]
		within := pos - s.starts[i]
		chunk := want[n:]
		if avail := rg.Length - within; int64(len(chunk)) > avail {
			chunk = chunk[:avail]
		}
		if err := binary.ReadFull(s.r, chunk, rg.Offset+within); err != nil {
			return n, err
		}
		n += len(chunk)
	}

	if len(want) < len(p) {
		return n, io.EOF
	}
	return n, nil
}
