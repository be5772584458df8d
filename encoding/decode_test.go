package encoding_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/computerman00/vitaelf/encoding"
)

type record struct {
	A uint8
	B uint8
	C uint16
	D uint32
	E [4]byte

	Derived string `encoding:"ignore"`
}

func TestDecode(t *testing.T) {
	data := []byte{0x20, 0x01, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 'a', 'b', 'c', 'd'}
	var rec record
	n, err := encoding.Decode(data, binary.LittleEndian, &rec)
	if err != nil {
		t.Fatal("Decode:", err)
	}
	if n != 12 {
		t.Errorf("consumed %d bytes, want 12", n)
	}
	if rec.A != 0x20 || rec.B != 0x01 || rec.C != 0x1234 || rec.D != 0x12345678 {
		t.Errorf("decoded %+v", rec)
	}
	if string(rec.E[:]) != "abcd" {
		t.Errorf("array field %q, want %q", rec.E, "abcd")
	}
	if rec.Derived != "" {
		t.Errorf("ignored field was written: %q", rec.Derived)
	}
}

func TestDecodeBigEndian(t *testing.T) {
	data := []byte{0, 0, 0x12, 0x34, 0x12, 0x34, 0x56, 0x78, 0, 0, 0, 0}
	var rec record
	if _, err := encoding.Decode(data, binary.BigEndian, &rec); err != nil {
		t.Fatal("Decode:", err)
	}
	if rec.C != 0x1234 || rec.D != 0x12345678 {
		t.Errorf("decoded %+v", rec)
	}
}

func TestDecodeShortData(t *testing.T) {
	var rec record
	_, err := encoding.Decode(make([]byte, 11), binary.LittleEndian, &rec)
	if !errors.Is(err, encoding.ErrShortData) {
		t.Errorf("got %v, want ErrShortData", err)
	}
}

func TestSize(t *testing.T) {
	if n := encoding.Size(record{}); n != 12 {
		t.Errorf("Size = %d, want 12", n)
	}
	if n := encoding.Size(&record{}); n != 12 {
		t.Errorf("Size(ptr) = %d, want 12", n)
	}
}

func TestAppendRoundTrip(t *testing.T) {
	in := record{A: 1, B: 2, C: 0xBEEF, D: 0xDEADBEEF, E: [4]byte{'x', 'y', 'z', 'w'}}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		data := encoding.Append(nil, order, &in)
		var out record
		if _, err := encoding.Decode(data, order, &out); err != nil {
			t.Fatal("Decode:", err)
		}
		out.Derived = ""
		if out != in {
			t.Errorf("%v round trip: got %+v, want %+v", order, out, in)
		}
		again := encoding.Append(nil, order, &out)
		if !bytes.Equal(data, again) {
			t.Errorf("%v re-encode differs", order)
		}
	}
}
