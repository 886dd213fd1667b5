package catalog_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/robert-malhotra/go-hfs/internal/btree"
	"github.com/robert-malhotra/go-hfs/internal/catalog"
	"github.com/robert-malhotra/go-hfs/internal/fixture"
	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

type encoder interface {
	Encode() ([]byte, error)
}

type leaf struct {
	key  catalog.Key
	data []byte
}

func name(t *testing.T, s string) []byte {
	t.Helper()
	raw, err := textenc.MacRoman.Encode(s)
	if err != nil {
		t.Fatalf("encoding %q: %v", s, err)
	}
	return raw
}

func dir(t *testing.T, parent, id uint32, n string) leaf {
	t.Helper()
	d := &catalog.Directory{Key: catalog.NewKey(parent, name(t, n), nil), DirID: id}
	return encode(t, d.Key, d)
}

func file(t *testing.T, parent, id uint32, n string) leaf {
	t.Helper()
	f := &catalog.File{Key: catalog.NewKey(parent, name(t, n), nil), FileID: id}
	return encode(t, f.Key, f)
}

func thread(t *testing.T, typ catalog.RecordType, id, parent uint32, n string) leaf {
	t.Helper()
	th := &catalog.Thread{Key: catalog.NewKey(id, nil, nil), Type: typ, ParentID: parent, ParentName: textenc.NewName(name(t, n), nil)}
	return encode(t, th.Key, th)
}

func encode(t *testing.T, key catalog.Key, rec encoder) leaf {
	t.Helper()
	data, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return leaf{key: key, data: data}
}

// buildLeaves sorts leaves into key order and returns the tree file.
func buildLeaves(t *testing.T, capacity int, leaves ...leaf) []byte {
	t.Helper()
	slices.SortStableFunc(leaves, func(a, b leaf) int { return a.key.CompareKey(b.key) })
	recs := make([]fixture.Record, len(leaves))
	for i, l := range leaves {
		recs[i] = fixture.Record{Key: l.key.Encode(), Data: l.data}
	}
	buf, err := fixture.BuildTree(recs, fixture.TreeOptions{LeafCapacity: capacity, MaxKeyLength: catalog.MaxKeyLength})
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	return buf
}

func leavesOf(t *testing.T, buf []byte) iter.Seq2[btree.Record, error] {
	t.Helper()
	tree, err := btree.Open(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		t.Fatalf("btree.Open failed: %v", err)
	}
	return tree.Leaves()
}

func ids(entries []catalog.Entry) []uint32 {
	out := make([]uint32, len(entries))
	for i, e := range entries {
		out[i] = e.ID()
	}
	return out
}

func TestBuildRootDirectoryAndFile(t *testing.T) {
	buf := buildLeaves(t, 0,
		dir(t, 1, 2, "Apps"),
		file(t, 2, 3, "Game.bin"),
	)

	tree, err := catalog.Build(leavesOf(t, buf), textenc.MacRoman)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := ids(tree.Children(1)); !slices.Equal(got, []uint32{2}) {
		t.Errorf("expected children(1) == [2], got %v", got)
	}
	if got := ids(tree.Children(2)); !slices.Equal(got, []uint32{3}) {
		t.Errorf("expected children(2) == [3], got %v", got)
	}
	if tree.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", tree.Len())
	}

	e, ok := tree.Entry(3)
	if !ok {
		t.Fatal("expected entry 3")
	}
	if e.IsDir() || e.Name().String() != "Game.bin" || e.ParentID() != 2 {
		t.Errorf("unexpected entry %+v", e)
	}
	if _, ok := tree.Entry(99); ok {
		t.Error("expected no entry 99")
	}

	root, ok := tree.Root()
	if !ok || root.Name().String() != "Apps" {
		t.Errorf("expected root named Apps, got %v", root)
	}
}

func TestChildrenKeyOrder(t *testing.T) {
	buf := buildLeaves(t, 2,
		dir(t, 1, 2, "Disk"),
		file(t, 2, 16, "b"),
		file(t, 2, 17, "C"),
		file(t, 2, 18, "a b"),
		file(t, 2, 19, "A"),
		file(t, 3, 20, "elsewhere"),
	)

	tree, err := catalog.Build(leavesOf(t, buf), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []uint32{19, 18, 16, 17}
	if got := tree.ChildIDs(2); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBuildCollectsMalformedRecords(t *testing.T) {
	bad := leaf{key: catalog.NewKey(2, name(t, "Broken"), nil), data: make([]byte, 70)}
	bad.data[0] = 9

	buf := buildLeaves(t, 0,
		dir(t, 1, 2, "Disk"),
		bad,
		file(t, 2, 16, "Readme"),
		file(t, 2, 17, "Zed"),
	)

	tree, err := catalog.Build(leavesOf(t, buf), nil)

	var de *catalog.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if len(de.Errs) != 1 {
		t.Fatalf("expected one collected error, got %v", de.Errs)
	}
	if !errors.Is(err, catalog.ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}

	var mre *catalog.MalformedRecordError
	if !errors.As(err, &mre) {
		t.Fatalf("expected *MalformedRecordError in %v", err)
	}
	// Key order: Disk, Broken, Readme, Zed.
	if mre.Node != 1 || mre.Index != 1 {
		t.Errorf("expected node 1 record 1, got node %d record %d", mre.Node, mre.Index)
	}

	if got := tree.ChildIDs(2); !slices.Equal(got, []uint32{16, 17}) {
		t.Errorf("expected remaining children [16 17], got %v", got)
	}
}

func TestBuildStopsAtCorruptLink(t *testing.T) {
	buf := buildLeaves(t, 2,
		dir(t, 1, 2, "Disk"),
		file(t, 2, 16, "a"),
		file(t, 2, 17, "b"),
		file(t, 2, 18, "c"),
		file(t, 2, 19, "d"),
		file(t, 2, 20, "e"),
	)
	// Point leaf 2 back at leaf 1.
	binary.BigEndian.PutUint32(buf[2*btree.DefaultNodeSize:], 1)

	tree, err := catalog.Build(leavesOf(t, buf), nil)
	if !errors.Is(err, btree.ErrCorruptLink) {
		t.Fatalf("expected ErrCorruptLink, got %v", err)
	}
	if tree == nil {
		t.Fatal("expected a partial tree")
	}
	if got := tree.ChildIDs(2); !slices.Equal(got, []uint32{16, 17, 18}) {
		t.Errorf("expected partial children [16 17 18], got %v", got)
	}
}

func TestBuildDuplicateID(t *testing.T) {
	buf := buildLeaves(t, 0,
		dir(t, 1, 2, "Disk"),
		file(t, 2, 16, "one"),
		file(t, 2, 16, "two"),
	)

	tree, err := catalog.Build(leavesOf(t, buf), nil)
	if !errors.Is(err, catalog.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if e, _ := tree.Entry(16); e.Name().String() != "one" {
		t.Errorf("expected first record to win, got %q", e.Name().String())
	}
}

func TestBuildRejectsParentLoops(t *testing.T) {
	buf := buildLeaves(t, 0,
		dir(t, 1, 2, "Disk"),
		dir(t, 2, 1, "Loop"),
		dir(t, 2, 0, "Zero"),
		dir(t, 2, 16, "Apps"),
		dir(t, 16, 17, "Games"),
		file(t, 17, 17, "Self"),
	)

	tree, err := catalog.Build(leavesOf(t, buf), nil)
	if !errors.Is(err, catalog.ErrParentLoop) {
		t.Fatalf("expected ErrParentLoop, got %v", err)
	}
	var de *catalog.DecodeError
	if !errors.As(err, &de) || len(de.Errs) != 3 {
		t.Fatalf("expected 3 collected errors, got %v", err)
	}
	if tree.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", tree.Len())
	}
	if got := tree.ChildIDs(2); !slices.Equal(got, []uint32{16}) {
		t.Errorf("expected root children [16], got %v", got)
	}
	if got := tree.ChildIDs(17); len(got) != 0 {
		t.Errorf("expected no children under 17, got %v", got)
	}
	if _, ok := tree.Entry(1); ok {
		t.Error("expected no entry with id 1")
	}
}

func pathTree(t *testing.T) *catalog.Tree {
	t.Helper()
	buf := buildLeaves(t, 3,
		dir(t, 1, 2, "Macintosh HD"),
		thread(t, catalog.DirectoryThreadRecord, 2, 1, "Macintosh HD"),
		dir(t, 2, 16, "System Folder"),
		thread(t, catalog.DirectoryThreadRecord, 16, 2, "System Folder"),
		file(t, 16, 17, "Finder"),
		thread(t, catalog.FileThreadRecord, 17, 16, "Finder"),
		thread(t, catalog.FileThreadRecord, 40, 16, "Ghost"),
	)
	tree, err := catalog.Build(leavesOf(t, buf), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return tree
}

func TestPath(t *testing.T) {
	tree := pathTree(t)

	tests := []struct {
		id   uint32
		want string
	}{
		{2, "Macintosh HD:"},
		{16, "Macintosh HD:System Folder:"},
		{17, "Macintosh HD:System Folder:Finder"},
		{40, "Macintosh HD:System Folder:Ghost"},
	}
	for _, tt := range tests {
		got, err := tree.Path(tt.id)
		if err != nil {
			t.Errorf("Path(%d) failed: %v", tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Path(%d): expected %q, got %q", tt.id, tt.want, got)
		}
	}

	if _, err := tree.Path(99); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestThreads(t *testing.T) {
	tree := pathTree(t)

	th, ok := tree.Thread(17)
	if !ok {
		t.Fatal("expected thread for 17")
	}
	if th.ParentID != 16 || th.ParentName.String() != "Finder" {
		t.Errorf("unexpected thread %+v", th)
	}
	if th.RecordType() != catalog.FileThreadRecord {
		t.Errorf("expected file thread, got %s", th.RecordType())
	}
}

func TestResolve(t *testing.T) {
	tree := pathTree(t)

	tests := []struct {
		path string
		want uint32
	}{
		{"Macintosh HD", 2},
		{"Macintosh HD:", 2},
		{"macintosh hd:system folder:", 16},
		{"Macintosh HD:System Folder:FINDER", 17},
	}
	for _, tt := range tests {
		e, err := tree.Resolve(tt.path)
		if err != nil {
			t.Errorf("Resolve(%q) failed: %v", tt.path, err)
			continue
		}
		if e.ID() != tt.want {
			t.Errorf("Resolve(%q): expected %d, got %d", tt.path, tt.want, e.ID())
		}
	}

	if _, err := tree.Resolve("Macintosh HD:Nope"); !errors.Is(err, btree.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := tree.Resolve(":System Folder"); !errors.Is(err, catalog.ErrBadPath) {
		t.Errorf("expected ErrBadPath, got %v", err)
	}
}

func TestEntriesEarlyStop(t *testing.T) {
	buf := buildLeaves(t, 1,
		dir(t, 1, 2, "Disk"),
		file(t, 2, 16, "a"),
		file(t, 2, 17, "b"),
	)

	n := 0
	for rec, err := range catalog.Entries(leavesOf(t, buf), nil) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.RecordType() != catalog.DirectoryRecord {
			t.Errorf("expected the directory first, got %s", rec.RecordType())
		}
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected one record, got %d", n)
	}
}
