package pad

import "testing"

func asciiBytes(s string) []byte { return []byte(s) }

func TestDLReassemblyOutOfOrderSegmentsAndDLPlusTags(t *testing.T) {
	a := newDLAssembler(7)

	// byte1's top nibble 0xF on the first segment selects the
	// UTF-8/ASCII-passthrough charset so these raw ASCII bytes decode
	// unchanged.
	seg0 := append([]byte{0x49, 0xF0}, asciiBytes("ARTBAT - L")...)
	seg1 := append([]byte{0x09, 0x10}, asciiBytes("ove is Gon")...)
	seg2 := append([]byte{0x29, 0x20}, asciiBytes("na Save Us")...)
	dlPlus := []byte{0x12, 0x00, 0x01, 0x04, 0x00, 0x05, 0x01, 0x09, 0x14}

	var got DLObject
	var fired int
	onDL := func(o DLObject) { got = o; fired++ }

	a.decodeDataGroup(seg0, onDL)
	a.decodeDataGroup(dlPlus, onDL)
	a.decodeDataGroup(seg2, onDL) // arrives before seg1: still buffered correctly
	if fired != 0 {
		t.Fatalf("fired early before all segments arrived")
	}
	a.decodeDataGroup(seg1, onDL)
	if fired != 0 {
		t.Fatalf("fired before the flushing first-segment of the next object arrived")
	}

	// The next data group's first segment flushes the now-complete object.
	next0 := append([]byte{0x49, 0xF0}, asciiBytes("NEXT ONE..")...)
	a.decodeDataGroup(next0, onDL)

	if fired != 1 {
		t.Fatalf("onDL fired %d times, want 1", fired)
	}
	wantLabel := "ARTBAT - Love is Gonna Save Us"
	if got.Label != wantLabel {
		t.Fatalf("label = %q, want %q", got.Label, wantLabel)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("len(Tags) = %d, want 2", len(got.Tags))
	}
	if got.Tags[0].Kind != DLPlusItemArtist || got.Tags[0].Value != "ARTBAT" {
		t.Fatalf("tag0 = %+v, want ITEM.ARTIST=ARTBAT", got.Tags[0])
	}
	if got.Tags[1].Kind != DLPlusItemTitle || got.Tags[1].Value != "Love is Gonna Save Us" {
		t.Fatalf("tag1 = %+v, want ITEM.TITLE=\"Love is Gonna Save Us\"", got.Tags[1])
	}
}

func TestDLToggleFlipDiscardsPartial(t *testing.T) {
	a := newDLAssembler(7)
	var fired int
	onDL := func(DLObject) { fired++ }

	seg0 := append([]byte{0x49, 0x00}, asciiBytes("PARTIAL ON")...)
	a.decodeDataGroup(seg0, onDL)

	// A new "first" segment with the toggle flipped starts a fresh
	// object; the old partial never completes.
	seg0b := append([]byte{0xC9, 0x00}, asciiBytes("RECOVERED!")...)
	a.decodeDataGroup(seg0b, onDL)
	segLast := append([]byte{0xA9, 0x10}, asciiBytes(" recovered")...)
	a.decodeDataGroup(segLast, onDL)
	if fired != 0 {
		t.Fatalf("fired before the flushing first-segment of the next object arrived")
	}

	trigger := append([]byte{0x49, 0x00}, asciiBytes("TRIGGER...")...)
	a.decodeDataGroup(trigger, onDL)

	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestDLPlusItemToggleAndRunning(t *testing.T) {
	a := newDLAssembler(7)
	var got DLObject
	var fired int
	onDL := func(o DLObject) { got = o; fired++ }

	seg0 := append([]byte{0x49, 0xF0}, asciiBytes("ABCDEFGHIJ")...)
	// cid=0 (bits 7-4), it_toggle=1 (bit 3), it_running=1 (bit 2),
	// num_tags-1=0 (bits 1-0) -> one tag: kind=ITEM.ARTIST, start=0, len=6.
	dlPlus := []byte{0x12, 0x00, 0x0C, 0x04, 0x00, 0x05}
	segLast := append([]byte{0x29, 0x10}, asciiBytes("KLMNOPQRST")...)

	a.decodeDataGroup(seg0, onDL)
	a.decodeDataGroup(dlPlus, onDL)
	if fired != 0 {
		t.Fatalf("fired early before the last segment arrived")
	}
	a.decodeDataGroup(segLast, onDL)
	if fired != 0 {
		t.Fatalf("fired before the flushing first-segment of the next object arrived")
	}

	trigger := append([]byte{0x49, 0x00}, asciiBytes("TRIGGER...")...)
	a.decodeDataGroup(trigger, onDL)

	if fired != 1 {
		t.Fatalf("onDL fired %d times, want 1", fired)
	}
	if !got.ItemToggle {
		t.Error("ItemToggle = false, want true")
	}
	if !got.ItemRunning {
		t.Error("ItemRunning = false, want true")
	}
	if len(got.Tags) != 1 || got.Tags[0].Value != "ABCDEF" {
		t.Fatalf("Tags = %+v, want one ITEM.ARTIST=ABCDEF tag", got.Tags)
	}
}

// TestDLPlusCommandAfterLastSegment exercises the realistic ordering on
// a real multiplex: the DL Plus command follows the last text segment
// rather than preceding it. Without the flush-on-next-first-segment
// fix, completing the last segment emitted (and discarded) the object
// immediately, so this command arrived too late and its tags were
// silently dropped.
func TestDLPlusCommandAfterLastSegment(t *testing.T) {
	a := newDLAssembler(7)
	var got DLObject
	var fired int
	onDL := func(o DLObject) { got = o; fired++ }

	seg0 := append([]byte{0x49, 0xF0}, asciiBytes("ABCDEFGHIJ")...)
	segLast := append([]byte{0x29, 0x10}, asciiBytes("KLMNOPQRST")...)
	// cid=0, it_toggle=1, it_running=1, num_tags-1=0 -> one ITEM.ARTIST
	// tag over the label's first 6 characters.
	dlPlus := []byte{0x12, 0x00, 0x0C, 0x04, 0x00, 0x05}

	a.decodeDataGroup(seg0, onDL)
	a.decodeDataGroup(segLast, onDL)
	if fired != 0 {
		t.Fatalf("fired before the flushing first-segment of the next object arrived")
	}
	a.decodeDataGroup(dlPlus, onDL) // arrives after the last text segment
	if fired != 0 {
		t.Fatalf("fired before the flushing first-segment of the next object arrived")
	}

	trigger := append([]byte{0x49, 0x00}, asciiBytes("TRIGGER...")...)
	a.decodeDataGroup(trigger, onDL)

	if fired != 1 {
		t.Fatalf("onDL fired %d times, want 1", fired)
	}
	wantLabel := "ABCDEFGHIJKLMNOPQRST"
	if got.Label != wantLabel {
		t.Fatalf("label = %q, want %q", got.Label, wantLabel)
	}
	if !got.ItemToggle || !got.ItemRunning {
		t.Errorf("ItemToggle/ItemRunning = %v/%v, want true/true", got.ItemToggle, got.ItemRunning)
	}
	if len(got.Tags) != 1 || got.Tags[0].Kind != DLPlusItemArtist || got.Tags[0].Value != "ABCDEF" {
		t.Fatalf("Tags = %+v, want one ITEM.ARTIST=ABCDEF tag", got.Tags)
	}
}

func TestDLClearDisplayCommand(t *testing.T) {
	a := newDLAssembler(7)
	seg0 := append([]byte{0x49, 0x00}, asciiBytes("ARTBAT - L")...)
	a.decodeDataGroup(seg0, nil)
	if a.current == nil {
		t.Fatal("expected a pending object before clear")
	}
	a.decodeDataGroup([]byte{0x11, 0x00, 0x00}, nil)
	if a.current != nil {
		t.Fatal("expected the partial object to be cleared")
	}
}
