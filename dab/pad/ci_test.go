package pad

import "testing"

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

func TestCIFromRaw(t *testing.T) {
	c := ciFromRaw(0x02) // idx=0 -> len 4, kind 2
	if c.kind != 2 || c.len != 4 {
		t.Fatalf("ci = %+v, want kind=2 len=4", c)
	}
	if !c.valid() {
		t.Fatal("expected valid CI")
	}
}

func TestBuildCIListShortForm(t *testing.T) {
	list, headerLen := buildCIList([]byte{0x02}, xpadShort)
	if headerLen != 1 {
		t.Fatalf("headerLen = %d, want 1", headerLen)
	}
	if len(list) != 1 || list[0].kind != 2 || list[0].len != 3 {
		t.Fatalf("list = %+v, want one CI{kind:2,len:3}", list)
	}
}

func TestBuildCIListVariableFormStopsAtTerminator(t *testing.T) {
	// raw 0x22 -> idx=1 (len 6), kind 2; raw 0x00 terminates the list.
	list, headerLen := buildCIList([]byte{0x22, 0x00}, xpadVariable)
	if headerLen != 2 {
		t.Fatalf("headerLen = %d, want 2", headerLen)
	}
	if len(list) != 1 || list[0].kind != 2 || list[0].len != 6 {
		t.Fatalf("list = %+v, want one CI{kind:2,len:6}", list)
	}
}

func TestDecoderFeedAssemblesDLMessageThroughVariableFormCI(t *testing.T) {
	// A single-segment DL message ("Hi"): first+last, numChars=2,
	// charset 0xF (UTF-8/ASCII passthrough).
	dlGroup := []byte{0x61, 0xF0, 'H', 'i', 0xAA, 0xBB}

	// CI list: one variable-form CI (len bucket 6, kind 2 = DL start)
	// followed by the zero terminator.
	xpad := append([]byte{0x22, 0x00}, dlGroup...)
	xpadRaw := reverseBytes(xpad)

	fpad := []byte{0x20, 0x02} // type=0, indicator=variable(2), ci_flag set

	var got DLObject
	var fired int
	d := NewDecoder(3, func(o DLObject) { got = o; fired++ }, nil)
	d.Feed(fpad, xpadRaw)

	// A completed label is only emitted when the next object's first
	// segment arrives (see dlAssembler.flush), so a second single-segment
	// message ("Ok", toggle flipped) follows to flush "Hi".
	next := append([]byte{0x22, 0x00}, 0xE1, 0xF0, 'O', 'k', 0xAA, 0xBB)
	d.Feed(fpad, reverseBytes(next))

	if fired != 1 {
		t.Fatalf("onDL fired %d times, want 1", fired)
	}
	if got.Label != "Hi" {
		t.Fatalf("label = %q, want Hi", got.Label)
	}
}

func TestDecoderFeedDGLIShortForm(t *testing.T) {
	// DGLI (kind 1), short form: 1 CI byte + a fixed 3-byte payload
	// announcing a 4-byte MOT data group.
	d := NewDecoder(5, nil, nil)
	xpad := reverseBytes([]byte{0x01, 0x00, 0x04, 0x00})
	fpad := []byte{0x10, 0x02} // type=0, indicator=short(1), ci_flag set
	d.Feed(fpad, xpad)
	if d.nextDGSize != 4 {
		t.Fatalf("nextDGSize = %d, want 4", d.nextDGSize)
	}
}
