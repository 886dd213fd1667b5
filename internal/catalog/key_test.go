package catalog

import (
	"bytes"
	"testing"

	"github.com/robert-malhotra/go-hfs/internal/textenc"
)

func mustKey(t *testing.T, parent uint32, name string) Key {
	t.Helper()
	raw, err := textenc.MacRoman.Encode(name)
	if err != nil {
		t.Fatalf("encoding %q: %v", name, err)
	}
	return NewKey(parent, raw, textenc.MacRoman)
}

func TestKeyRoundTrip(t *testing.T) {
	k := mustKey(t, 42, "Système")
	raw := k.Encode()

	if len(raw) != keyHeaderSize+k.Name.Len() {
		t.Fatalf("expected %d key bytes, got %d", keyHeaderSize+k.Name.Len(), len(raw))
	}

	got, err := DecodeKey(raw, textenc.MacRoman)
	if err != nil {
		t.Fatalf("DecodeKey failed: %v", err)
	}
	if got.ParentID != 42 {
		t.Errorf("expected parent 42, got %d", got.ParentID)
	}
	if !bytes.Equal(got.Name.Raw, k.Name.Raw) {
		t.Errorf("expected name %x, got %x", k.Name.Raw, got.Name.Raw)
	}
	if got.Name.String() != "Système" {
		t.Errorf("expected %q, got %q", "Système", got.Name.String())
	}
}

func TestDecodeKeyErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"too short", []byte{0, 0, 0, 0, 2}},
		{"name overruns key", []byte{0, 0, 0, 0, 2, 5, 'a', 'b'}},
		{"name too long", append([]byte{0, 0, 0, 0, 2, 40}, make([]byte, 40)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeKey(tt.raw, nil); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestKeyOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want int
	}{
		{"parent id first", mustKey(t, 2, "Zebra"), mustKey(t, 3, "Apple"), -1},
		{"case-insensitive", mustKey(t, 2, "readme"), mustKey(t, 2, "ReadMe"), 0},
		{"shorter prefix first", mustKey(t, 2, "Read"), mustKey(t, 2, "ReadMe"), -1},
		{"alphabetical", mustKey(t, 2, "Beta"), mustKey(t, 2, "alpha"), 1},
		{"thread key before named keys", mustKey(t, 16, ""), mustKey(t, 16, "a"), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.CompareKey(tt.b); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
			// Compare takes the on-disk form and reports sign(raw - target).
			if got := tt.b.Compare(tt.a.Encode()); got != tt.want {
				t.Errorf("Compare: expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestKeyCompareMalformed(t *testing.T) {
	k := mustKey(t, 2, "x")
	if got := k.Compare([]byte{1, 2}); got != -1 {
		t.Errorf("expected malformed key to sort first, got %d", got)
	}
}
