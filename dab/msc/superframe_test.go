package msc

import (
	"testing"

	"github.com/howeyc/crc16"
)

// buildSyncedSuperframe constructs a 120-byte HE-AAC 48kHz superframe
// (dac_rate=1, sbr=1, channel_mode=1, ps=0 -> au_count=3) with a valid
// Fire code and valid per-AU CRC16 trailers, split into 5 logical
// frames of 24 bytes.
func buildSyncedSuperframe(t *testing.T) [][]byte {
	t.Helper()
	const superLen = 120
	buf := make([]byte, superLen)

	buf[2] = 0x70 // dac_rate | sbr | channel_mode
	buf[3] = 0x01 // au_start[1] high bits -> 20
	buf[4] = 0x40 // au_start[1] low nibble (4) | au_start[2] high nibble (0)
	buf[5] = 0x3C // au_start[2] low byte -> 60

	auBounds := [][2]int{{6, 20}, {20, 60}, {60, 110}}
	for i, b := range auBounds {
		for j := b[0]; j < b[1]-2; j++ {
			buf[j] = byte((i+1)*7 + j)
		}
		crc := crc16.ChecksumCCITTFalse(buf[b[0] : b[1]-2])
		buf[b[1]-2] = byte(crc >> 8)
		buf[b[1]-1] = byte(crc)
	}

	code := firecodeCompute(buf[2:11])
	buf[0] = byte(code >> 8)
	buf[1] = byte(code)

	frames := make([][]byte, 5)
	for i := 0; i < 5; i++ {
		frames[i] = buf[i*24 : (i+1)*24]
	}
	return frames
}

func TestAssemblerLocksAndExtractsAUs(t *testing.T) {
	frames := buildSyncedSuperframe(t)
	a := NewAssembler(3)

	for i := 0; i < 4; i++ {
		res, err := a.Feed(frames[i])
		if err != nil {
			t.Fatalf("Feed(%d): %v", i, err)
		}
		if res != nil {
			t.Fatalf("Feed(%d) returned a result before the 5th frame", i)
		}
	}

	res, err := a.Feed(frames[4])
	if err != nil {
		t.Fatalf("Feed(4): %v", err)
	}
	if res == nil {
		t.Fatal("expected a completed AUResult after 5 frames")
	}
	if res.Format == nil {
		t.Fatal("expected a derived AudioFormat")
	}
	if res.Format.Codec != "HE-AAC" || res.Format.SampleRateKHz != 48 || res.Format.Channels != 2 {
		t.Fatalf("unexpected format: %+v", res.Format)
	}
	if len(res.Frames) != 3 {
		t.Fatalf("len(Frames) = %d, want 3", len(res.Frames))
	}
	for i, f := range res.Frames {
		if len(f) == 0 {
			t.Fatalf("AU %d failed CRC validation unexpectedly", i)
		}
	}
}

func TestAssemblerRejectsFrameLengthMismatch(t *testing.T) {
	a := NewAssembler(1)
	if _, err := a.Feed(make([]byte, 24)); err != nil {
		t.Fatalf("first Feed: %v", err)
	}
	if _, err := a.Feed(make([]byte, 48)); err != ErrFrameLengthMismatch {
		t.Fatalf("err = %v, want ErrFrameLengthMismatch", err)
	}
}

// TestAssemblerLocksOnMisalignedStart exercises §4.7's "slides over
// incoming frames searching for the firecode; discards up to 4 frames
// on startup": the stream's first logical frame this Assembler ever
// sees need not be the first frame of a superframe, which is the normal
// case after a mid-stream TCP connect. A resync failure must leave the
// 5-frame window intact so the next Feed slides it by one frame and
// retries, rather than discarding the whole window and only ever
// testing frame indices 0, 5, 10, ...
func TestAssemblerLocksOnMisalignedStart(t *testing.T) {
	frames := buildSyncedSuperframe(t)
	junk := make([]byte, 24)
	for i := range junk {
		junk[i] = 0xAA
	}

	a := NewAssembler(4)

	feeds := [][]byte{junk, frames[0], frames[1], frames[2], frames[3]}
	for i, f := range feeds {
		res, err := a.Feed(f)
		if err != nil {
			t.Fatalf("Feed(%d): %v", i, err)
		}
		if res != nil {
			t.Fatalf("Feed(%d): locked prematurely on a misaligned window", i)
		}
	}

	res, err := a.Feed(frames[4])
	if err != nil {
		t.Fatalf("Feed(5): %v", err)
	}
	if res == nil {
		t.Fatal("expected the sliding hunt to lock one frame later, got nil")
	}
	if len(res.Frames) != 3 {
		t.Fatalf("len(Frames) = %d, want 3", len(res.Frames))
	}
	for i, fr := range res.Frames {
		if len(fr) == 0 {
			t.Fatalf("AU %d failed CRC validation unexpectedly", i)
		}
	}
}

func TestAssemblerForceHuntDropsPartialWindow(t *testing.T) {
	frames := buildSyncedSuperframe(t)
	a := NewAssembler(5)

	for i := 0; i < 4; i++ {
		if _, err := a.Feed(frames[i]); err != nil {
			t.Fatalf("Feed(%d): %v", i, err)
		}
	}
	a.ForceHunt()
	if a.frameCount != 0 {
		t.Fatalf("frameCount = %d after ForceHunt, want 0", a.frameCount)
	}

	// Re-feeding the same 5 frames from scratch must still lock cleanly.
	var res *AUResult
	var err error
	for i := 0; i < 5; i++ {
		res, err = a.Feed(frames[i])
		if err != nil {
			t.Fatalf("Feed(%d) after ForceHunt: %v", i, err)
		}
	}
	if res == nil {
		t.Fatal("expected a completed AUResult after re-locking post ForceHunt")
	}
}

func TestAssemblerStaysBufferingOnBadFirecode(t *testing.T) {
	a := NewAssembler(2)
	frame := make([]byte, 24)
	for i := range frame {
		frame[i] = 0xFF // stored code (first 2 bytes) will mismatch the computed one
	}
	for i := 0; i < 5; i++ {
		res, err := a.Feed(frame)
		if err != nil {
			t.Fatalf("Feed(%d): %v", i, err)
		}
		if res != nil {
			t.Fatalf("Feed(%d): expected nil result for an unlocked superframe", i)
		}
	}
}
