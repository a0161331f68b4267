package physical

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x01, 0x02, 0x03},
		{STX, ETX, DLE},
		{},
		{0x00, 0xff, 0x7e},
	}
	for _, body := range cases {
		wire := Encode(body)
		if wire[0] != STX || wire[len(wire)-1] != ETX {
			t.Fatalf("Encode(%v) = %v, want STX...ETX framing", body, wire)
		}
		got, err := Decode(wire[1:])
		if err != nil {
			t.Fatalf("Decode(Encode(%v)) error: %v", body, err)
		}
		if !bytes.Equal(got, body) {
			t.Errorf("round trip = %v, want %v", got, body)
		}
	}
}

func TestDecodeDetectsChecksumMismatch(t *testing.T) {
	wire := Encode([]byte{1, 2, 3})
	corrupt := append([]byte(nil), wire...)
	corrupt[2] ^= 0xff // flip the DLE that escapes body byte 0x02
	if _, err := Decode(corrupt[1:]); err != ErrChecksum {
		t.Fatalf("Decode of corrupted frame = %v, want ErrChecksum", err)
	}
}

func TestReaderAssemblesStreamedFrame(t *testing.T) {
	var r Reader
	wire := Encode([]byte{10, 20, 30})

	var got []byte
	var ok bool
	for _, b := range wire {
		got, ok = r.Feed(b)
	}
	if !ok {
		t.Fatal("Reader did not recognize a complete frame")
	}
	if !bytes.Equal(got, []byte{10, 20, 30}) {
		t.Errorf("Reader.Feed assembled %v, want %v", got, []byte{10, 20, 30})
	}
}

func TestReaderHandlesStuffedControlBytes(t *testing.T) {
	var r Reader
	wire := Encode([]byte{STX, ETX, DLE, 0x55})

	var got []byte
	var ok bool
	for _, b := range wire {
		got, ok = r.Feed(b)
	}
	if !ok {
		t.Fatal("Reader did not recognize a complete frame with stuffed control bytes")
	}
	if !bytes.Equal(got, []byte{STX, ETX, DLE, 0x55}) {
		t.Errorf("Reader.Feed assembled %v, want %v", got, []byte{STX, ETX, DLE, 0x55})
	}
}
