package catalog

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/robert-malhotra/go-hfs/internal/btree"
	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

// PathSeparator separates names in a catalog path.
const PathSeparator = ":"

// Errors
var (
	ErrDuplicateID = errors.New("duplicate catalog id")
	ErrParentLoop  = errors.New("catalog parent chain loops")
	ErrBadPath     = errors.New("invalid catalog path")
)

// DecodeError collects the errors met while building a tree. The tree
// returned with it holds everything that decoded.
type DecodeError struct {
	Errs []error
}

func (e *DecodeError) Error() string {
	if len(e.Errs) == 1 {
		return "decoding catalog: " + e.Errs[0].Error()
	}
	return fmt.Sprintf("decoding catalog: %d errors, first: %v", len(e.Errs), e.Errs[0])
}

func (e *DecodeError) Unwrap() []error {
	return e.Errs
}

// Entries decodes leaf records lazily. Split and decode failures are
// yielded as *MalformedRecordError and the sequence continues; any other
// error from leaves is passed through.
func Entries(leaves iter.Seq2[btree.Record, error], enc *textenc.Encoding) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for rec, err := range leaves {
			if err != nil {
				if errors.Is(err, btree.ErrCorruptRecord) {
					err = malformed(rec, err, "%v", err)
				}
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(DecodeRecord(rec, enc)) {
				return
			}
		}
	}
}

// Tree is a decoded catalog hierarchy. It is read-only once built.
type Tree struct {
	enc      *textenc.Encoding
	entries  map[uint32]Entry
	children map[uint32][]uint32
	threads  map[uint32]*Thread
}

func newTree(enc *textenc.Encoding) *Tree {
	if enc == nil {
		enc = textenc.MacRoman
	}
	return &Tree{
		enc:      enc,
		entries:  make(map[uint32]Entry),
		children: make(map[uint32][]uint32),
		threads:  make(map[uint32]*Thread),
	}
}

// Build decodes leaf records into a tree. Malformed records are collected
// and skipped, as are entries that would close a parent loop (an id of 0
// or 1, or an id equal to its parent's); a traversal error stops decoding. When anything was
// collected the error is a *DecodeError, and the partial tree is returned
// with it.
func Build(leaves iter.Seq2[btree.Record, error], enc *textenc.Encoding) (*Tree, error) {
	t := newTree(enc)

	var errs []error
	for rec, err := range Entries(leaves, enc) {
		if err != nil {
			errs = append(errs, err)
			if errors.Is(err, ErrMalformedRecord) {
				continue
			}
			break
		}
		if err := t.add(rec); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return t, &DecodeError{Errs: errs}
	}
	return t, nil
}

func (t *Tree) add(rec Record) error {
	switch r := rec.(type) {
	case *Thread:
		id := r.ID()
		if _, ok := t.threads[id]; ok {
			return fmt.Errorf("%w: thread for %d", ErrDuplicateID, id)
		}
		t.threads[id] = r
	case Entry:
		id := r.ID()
		if id <= RootParentID || id == r.ParentID() {
			return fmt.Errorf("%w: %d (%q) under %d", ErrParentLoop, id, r.Name().String(), r.ParentID())
		}
		if _, ok := t.entries[id]; ok {
			return fmt.Errorf("%w: %d (%q)", ErrDuplicateID, id, r.Name().String())
		}
		t.entries[id] = r
		t.children[r.ParentID()] = append(t.children[r.ParentID()], id)
	}
	return nil
}

// Encoding returns the encoding names were decoded with.
func (t *Tree) Encoding() *textenc.Encoding {
	return t.enc
}

// Len returns the number of directories and files.
func (t *Tree) Len() int {
	return len(t.entries)
}

// Entry returns the directory or file with the given id.
func (t *Tree) Entry(id uint32) (Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// Root returns the root directory.
func (t *Tree) Root() (*Directory, bool) {
	d, ok := t.entries[RootID].(*Directory)
	return d, ok
}

// Children returns the entries whose parent is id, in key order.
func (t *Tree) Children(id uint32) []Entry {
	ids := t.children[id]
	out := make([]Entry, 0, len(ids))
	for _, c := range ids {
		out = append(out, t.entries[c])
	}
	return out
}

// ChildIDs returns the ids of the entries whose parent is id, in key order.
func (t *Tree) ChildIDs(id uint32) []uint32 {
	return append([]uint32(nil), t.children[id]...)
}

// Thread returns the thread record for id.
func (t *Tree) Thread(id uint32) (*Thread, bool) {
	th, ok := t.threads[id]
	return th, ok
}

// Child returns the entry named name within directory parent.
func (t *Tree) Child(parent uint32, name textenc.Name) (Entry, bool) {
	for _, c := range t.children[parent] {
		if e := t.entries[c]; e.Name().Equal(name) {
			return e, true
		}
	}
	return nil, false
}

// parentOf finds the parent and name of id from its entry, falling back
// to its thread.
func (t *Tree) parentOf(id uint32) (uint32, textenc.Name, bool) {
	if e, ok := t.entries[id]; ok {
		return e.ParentID(), e.Name(), true
	}
	if th, ok := t.threads[id]; ok {
		return th.ParentID, th.ParentName, true
	}
	return 0, textenc.Name{}, false
}

// Path returns the colon-separated path of id, starting with the volume
// name. Directories end with a separator.
func (t *Tree) Path(id uint32) (string, error) {
	var names []string
	seen := make(map[uint32]bool)
	for cur := id; cur != RootParentID; {
		if seen[cur] {
			return "", fmt.Errorf("%w at %d", ErrParentLoop, cur)
		}
		seen[cur] = true

		parent, name, ok := t.parentOf(cur)
		if !ok {
			return "", fmt.Errorf("%w: catalog id %d", btree.ErrKeyNotFound, cur)
		}
		names = append(names, name.String())
		cur = parent
	}

	var sb strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		sb.WriteString(names[i])
		if i > 0 {
			sb.WriteString(PathSeparator)
		}
	}
	if e, ok := t.entries[id]; ok && e.IsDir() {
		sb.WriteString(PathSeparator)
	}
	return sb.String(), nil
}

// Resolve finds the entry at a colon-separated path. The first component
// names the volume root; a trailing separator is allowed.
func (t *Tree) Resolve(path string) (Entry, error) {
	parts := strings.Split(strings.TrimSuffix(path, PathSeparator), PathSeparator)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
	}

	cur := RootParentID
	var e Entry
	for _, part := range parts {
		raw, err := t.enc.Encode(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrBadPath, path, err)
		}
		var ok bool
		if e, ok = t.Child(cur, textenc.NewName(raw, t.enc)); !ok {
			return nil, fmt.Errorf("%w: %q in %q", btree.ErrKeyNotFound, part, path)
		}
		cur = e.ID()
	}
	return e, nil
}
