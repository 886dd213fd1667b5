package binary

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterBigEndian(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf)

	if err := w.WriteUint16(0x4244); err != nil {
		t.Fatalf("WriteUint16 failed: %v", err)
	}
	if err := w.WriteUint32(0xDEADBEEF); err != nil {
		t.Fatalf("WriteUint32 failed: %v", err)
	}
	if err := w.WriteUint8(0x7F); err != nil {
		t.Fatalf("WriteUint8 failed: %v", err)
	}

	expected := []byte{0x42, 0x44, 0xDE, 0xAD, 0xBE, 0xEF, 0x7F}
	if !bytes.Equal(buf.Bytes(), expected) {
		t.Errorf("expected %x, got %x", expected, buf.Bytes())
	}
	if w.Pos() != 7 {
		t.Errorf("expected pos 7, got %d", w.Pos())
	}
}

func TestWriterPascalString(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf)

	if err := w.WritePascalString([]byte("Apps"), 31); err != nil {
		t.Fatalf("WritePascalString failed: %v", err)
	}
	if buf.Len() != 32 {
		t.Fatalf("expected 32 bytes, got %d", buf.Len())
	}

	r := NewReader(buf)
	got, err := r.ReadPascalString(31)
	if err != nil {
		t.Fatalf("ReadPascalString failed: %v", err)
	}
	if string(got) != "Apps" {
		t.Errorf("expected %q, got %q", "Apps", got)
	}

	if err := w.WritePascalString(bytes.Repeat([]byte{'a'}, 32), 31); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected ErrStringTooLong, got %v", err)
	}
}

func TestWriterPaddingAndAt(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf)

	w.WriteUint8(1)
	if err := w.WritePadding(4); err != nil {
		t.Fatalf("WritePadding failed: %v", err)
	}
	if w.Pos() != 4 {
		t.Errorf("expected pos 4, got %d", w.Pos())
	}

	// Writing past the end grows the buffer with zeros
	if err := w.At(10).WriteUint16(0xFFFF); err != nil {
		t.Fatalf("WriteUint16 failed: %v", err)
	}
	if buf.Len() != 12 {
		t.Errorf("expected length 12, got %d", buf.Len())
	}
	if buf.Bytes()[9] != 0 || buf.Bytes()[10] != 0xFF {
		t.Errorf("unexpected contents %x", buf.Bytes())
	}
}
