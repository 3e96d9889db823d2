package msc

import "testing"

func TestFirecodeComputeKnownValue(t *testing.T) {
	// A zero-filled protected region has a well-defined, stable Fire
	// code under this polynomial; used as a regression anchor.
	got := firecodeCompute(make([]byte, 9))
	if got != 0 {
		t.Fatalf("firecode of all-zero input = 0x%04x, want 0x0000", got)
	}
}

func TestFirecodeCheckRoundTrip(t *testing.T) {
	payload := []byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0, 0x11}
	code := firecodeCompute(payload)
	buf := make([]byte, 11)
	buf[0] = byte(code >> 8)
	buf[1] = byte(code)
	copy(buf[2:], payload)
	if !firecodeCheck(buf) {
		t.Fatalf("firecodeCheck failed on self-consistent buffer")
	}
	buf[10] ^= 0xFF
	if firecodeCheck(buf) {
		t.Fatalf("firecodeCheck passed on corrupted buffer")
	}
}
