// Package textenc carries on-disk names as encoded bytes tagged with the
// legacy 8-bit encoding they were written in.
//
// Names are only decoded to Go strings for display. Comparisons used by the
// catalog B*-tree operate on the encoded bytes through per-encoding weight
// tables: letters compare case-insensitively on their base letter first,
// then on diacritics, and a shorter prefix sorts first.
package textenc

import (
	"cmp"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Encoding is a single-byte legacy text encoding with its collation weights.
type Encoding struct {
	name    string
	cm      *charmap.Charmap
	weights [256]weight
}

type weight struct {
	primary   rune // upper-cased base letter
	secondary rune // upper-cased letter with diacritics
}

// Supported encodings. Weight tables are built once here and never change.
var (
	MacRoman    = newEncoding("macintosh", charmap.Macintosh)
	MacCyrillic = newEncoding("x-mac-cyrillic", charmap.MacintoshCyrillic)
)

var encodings = map[string]*Encoding{
	MacRoman.name:    MacRoman,
	"macroman":       MacRoman,
	MacCyrillic.name: MacCyrillic,
	"maccyrillic":    MacCyrillic,
}

func newEncoding(name string, cm *charmap.Charmap) *Encoding {
	e := &Encoding{name: name, cm: cm}
	for i := range e.weights {
		r := cm.DecodeByte(byte(i))
		base := r
		if d := norm.NFD.String(string(r)); d != "" {
			base, _ = utf8.DecodeRuneInString(d)
		}
		e.weights[i] = weight{
			primary:   unicode.ToUpper(base),
			secondary: unicode.ToUpper(r),
		}
	}
	return e
}

// Lookup returns the encoding registered under name (case-insensitive).
func Lookup(name string) (*Encoding, bool) {
	e, ok := encodings[strings.ToLower(name)]
	return e, ok
}

// Name returns the encoding's canonical name.
func (e *Encoding) Name() string {
	return e.name
}

// Decode converts encoded bytes to a Go string. Single-byte charmaps cover
// every byte, so decoding cannot fail.
func (e *Encoding) Decode(raw []byte) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, b := range raw {
		sb.WriteRune(e.cm.DecodeByte(b))
	}
	return sb.String()
}

// Encode converts a Go string to encoded bytes. Runes without a
// representation in the encoding produce an error.
func (e *Encoding) Encode(s string) ([]byte, error) {
	out, err := e.cm.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %q as %s: %w", s, e.name, err)
	}
	return out, nil
}

// Compare orders two encoded names. It returns -1, 0 or +1.
func (e *Encoding) Compare(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := cmp.Compare(e.weights[a[i]].primary, e.weights[b[i]].primary); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	for i := 0; i < n; i++ {
		if c := cmp.Compare(e.weights[a[i]].secondary, e.weights[b[i]].secondary); c != 0 {
			return c
		}
	}
	return 0
}

// Name is an on-disk name: raw encoded bytes plus the encoding they use.
type Name struct {
	Raw []byte
	Enc *Encoding
}

// NewName tags raw with enc. A nil enc means MacRoman.
func NewName(raw []byte, enc *Encoding) Name {
	if enc == nil {
		enc = MacRoman
	}
	return Name{Raw: raw, Enc: enc}
}

// String decodes the name for display.
func (n Name) String() string {
	return n.encoding().Decode(n.Raw)
}

// Len returns the encoded length in bytes.
func (n Name) Len() int {
	return len(n.Raw)
}

// Compare orders n against other under n's encoding.
func (n Name) Compare(other Name) int {
	return n.encoding().Compare(n.Raw, other.Raw)
}

// Equal reports whether two names collate equal (case-insensitively).
func (n Name) Equal(other Name) bool {
	return n.Compare(other) == 0
}

func (n Name) encoding() *Encoding {
	if n.Enc == nil {
		return MacRoman
	}
	return n.Enc
}
