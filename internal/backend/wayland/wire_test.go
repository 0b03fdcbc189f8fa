package wayland

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestRequestHeaderEncodesSizeAndOpcode(t *testing.T) {
	msg := newRequest(3, 0).putUint32(42).finish()

	if len(msg) != 12 {
		t.Fatalf("message length = %d, want 12", len(msg))
	}
	if id := binary.LittleEndian.Uint32(msg[0:]); id != 3 {
		t.Errorf("object id = %d, want 3", id)
	}
	word := binary.LittleEndian.Uint32(msg[4:])
	if size := word >> 16; size != 12 {
		t.Errorf("size = %d, want 12", size)
	}
	if opcode := word & 0xffff; opcode != 0 {
		t.Errorf("opcode = %d, want 0", opcode)
	}
	if arg := binary.LittleEndian.Uint32(msg[8:]); arg != 42 {
		t.Errorf("arg = %d, want 42", arg)
	}
}

func TestPutStringPadsToWordBoundary(t *testing.T) {
	msg := newRequest(1, 5).putString("DP-1").finish()

	// 8 header + 4 length + "DP-1\0" padded to 8.
	if len(msg) != 20 {
		t.Fatalf("message length = %d, want 20", len(msg))
	}
	if n := binary.LittleEndian.Uint32(msg[8:]); n != 5 {
		t.Errorf("string length = %d, want 5 (including NUL)", n)
	}
	if !bytes.Equal(msg[12:17], []byte("DP-1\x00")) {
		t.Errorf("string bytes = %q", msg[12:17])
	}
	if msg[17] != 0 || msg[18] != 0 || msg[19] != 0 {
		t.Errorf("padding not zeroed: %v", msg[17:])
	}
}

func TestReaderRoundTrip(t *testing.T) {
	msg := newRequest(1, 0).
		putUint32(99).
		putInt32(-1).
		putString("HDMI-A-1").
		putUint32(7).
		finish()

	r := &reader{b: msg[headerSize:]}
	if v := r.uint32(); v != 99 {
		t.Errorf("uint32 = %d, want 99", v)
	}
	if v := r.int32(); v != -1 {
		t.Errorf("int32 = %d, want -1", v)
	}
	if s := r.string(); s != "HDMI-A-1" {
		t.Errorf("string = %q, want HDMI-A-1", s)
	}
	if v := r.uint32(); v != 7 {
		t.Errorf("trailing uint32 = %d, want 7", v)
	}
}

func TestReaderTruncatedInputIsSafe(t *testing.T) {
	r := &reader{b: []byte{1, 0}}
	if v := r.uint32(); v != 0 {
		t.Errorf("truncated uint32 = %d, want 0", v)
	}
	r = &reader{b: []byte{5, 0, 0, 0, 'D', 'P'}}
	if s := r.string(); s != "" {
		t.Errorf("truncated string = %q, want empty", s)
	}
}
