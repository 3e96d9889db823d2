package bitio

import "testing"

func TestReadBits(t *testing.T) {
	r := NewReader([]byte{0b10110100, 0b11110000})
	cases := []struct {
		n    int
		want uint64
	}{
		{3, 0b101},
		{5, 0b10100},
		{4, 0b1111},
		{4, 0b0000},
	}
	for i, c := range cases {
		got, err := r.ReadBits(c.n)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		if got != c.want {
			t.Fatalf("case %d: got %b want %b", i, got, c.want)
		}
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected no remaining bits, got %d", r.Remaining())
	}
}

func TestReadPastEnd(t *testing.T) {
	r := NewReader([]byte{0xFF})
	if _, err := r.ReadBits(9); err == nil {
		t.Fatal("expected error reading past end")
	}
}

func TestAlignAndRest(t *testing.T) {
	r := NewReader([]byte{0xAB, 0xCD, 0xEF})
	if _, err := r.ReadBits(3); err != nil {
		t.Fatal(err)
	}
	r.Align()
	if r.BytePos() != 1 {
		t.Fatalf("expected byte pos 1, got %d", r.BytePos())
	}
	rest := r.Rest()
	if len(rest) != 2 || rest[0] != 0xCD || rest[1] != 0xEF {
		t.Fatalf("unexpected rest: %x", rest)
	}
}
