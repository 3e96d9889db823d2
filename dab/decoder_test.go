package dab

import (
	"encoding/binary"
	"testing"

	"github.com/howeyc/crc16"
)

func buildFIG(figType uint8, extByte byte, payload []byte) []byte {
	body := append([]byte{extByte}, payload...)
	header := (figType << 5) | byte(len(body))
	return append([]byte{header}, body...)
}

func buildFIB(figs ...[]byte) []byte {
	content := make([]byte, 0, 30)
	for _, f := range figs {
		content = append(content, f...)
	}
	for len(content) < 30 {
		content = append(content, 0xFF)
	}
	content = content[:30]
	trailer := crc16.ChecksumCCITTFalse(content) ^ 0xFFFF
	out := make([]byte, 32)
	copy(out, content)
	binary.BigEndian.PutUint16(out[30:32], trailer)
	return out
}

func buildTagPacket(name string, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	copy(out, name)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(payload)*8))
	copy(out[8:], payload)
	return out
}

// emptyFIB is one well-formed, content-empty FIB block (all 0xFF, the
// end-of-FIB sentinel, plus its matching CRC16), used to pad a FIB up to
// the 96-byte Transmission-Mode-I FIC block size.
func emptyFIB() []byte {
	return buildFIB()
}

// padFICTo96 appends empty FIBs until fic is a full 96-byte (3-FIB)
// Transmission-Mode-I FIC block, the size dab.decodeDETI requires.
func padFICTo96(fic []byte) []byte {
	for len(fic) < 96 {
		fic = append(fic, emptyFIB()...)
	}
	return fic
}

func buildDetiTag(modeID uint8, fic []byte) []byte {
	out := []byte{0x40, 0x00, 0x00, modeID << 6, 0x00, 0x00} // ficF set, atstF clear
	return append(out, padFICTo96(fic)...)
}

// buildAF builds one unencrypted, CRC-less AF Packet carrying the given
// already-assembled tag-packet stream.
func buildAF(seq uint16, protocolType byte, tagData []byte) []byte {
	body := make([]byte, 4+len(tagData))
	binary.BigEndian.PutUint16(body[0:2], seq)
	body[2] = 0x00 // crc flag clear
	body[3] = protocolType
	copy(body[4:], tagData)

	out := make([]byte, 6+len(body))
	copy(out, "AF")
	binary.BigEndian.PutUint32(out[2:6], uint32(len(body)))
	copy(out[6:], body)
	return out
}

func ensembleLabelFrame(seq uint16) []byte {
	label := "DIG D04 - WS"
	data := make([]byte, 0, 20)
	data = append(data, 0x44, 0x03)
	data = append(data, []byte(label+"    ")...)
	data = append(data, 0xFF, 0xFF)
	fib := buildFIB(buildFIG(1, 0x00, data))

	deti := buildDetiTag(1, fib)
	tags := buildTagPacket("deti", deti)
	return buildAF(seq, 'T', tags)
}

func TestDecoderEnsembleLabelScenario(t *testing.T) {
	d := NewDecoder(Config{})
	d.Feed(ensembleLabelFrame(1))

	snap := d.Ensemble()
	if !snap.HasEID || snap.EID != 0x4403 {
		t.Fatalf("EID = %#x (has=%v), want 0x4403", snap.EID, snap.HasEID)
	}
	if !snap.HasLabel || snap.Label != "DIG D04 - WS" {
		t.Fatalf("Label = %q, want %q", snap.Label, "DIG D04 - WS")
	}
}

func TestDecoderServiceComponentMappingScenario(t *testing.T) {
	d := NewDecoder(Config{})

	fig2 := buildFIG(0, 0x02, []byte{0x4D, 0xCF, 0x01, 0x00, 0x0C})
	fig5 := buildFIG(0, 0x05, []byte{0x03, 0x09})
	fib := buildFIB(fig2, fig5)

	deti := buildDetiTag(1, fib)
	tags := buildTagPacket("deti", deti)
	d.Feed(buildAF(1, 'T', tags))

	snap := d.Ensemble()
	found := false
	for _, s := range snap.Services {
		if s.SID != 0x4DCF {
			continue
		}
		for _, c := range s.Components {
			if c.SCID == 3 && c.HasSubchannel && c.SubchannelID == 3 && c.Language == "German" {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected service 0x4DCF with a subchannel-3 German component, got %+v", snap.Services)
	}
}

func TestDecoderFeedEmptyIsNoOp(t *testing.T) {
	d := NewDecoder(Config{})
	d.Feed(nil)
	d.Feed([]byte{})
	if d.Stats() != (Stats{}) {
		t.Fatalf("Feed(empty) changed Stats: %+v", d.Stats())
	}
	if len(d.buf) != 0 {
		t.Fatalf("Feed(empty) grew the intake buffer to %d bytes", len(d.buf))
	}
}

func TestDecoderChunkBoundaryIndependence(t *testing.T) {
	whole := ensembleLabelFrame(1)

	dWhole := NewDecoder(Config{})
	dWhole.Feed(whole)

	dChunked := NewDecoder(Config{})
	for i := 0; i < len(whole); i++ {
		dChunked.Feed(whole[i : i+1])
	}

	a, b := dWhole.Ensemble(), dChunked.Ensemble()
	if a.HasLabel != b.HasLabel || a.Label != b.Label || a.HasEID != b.HasEID || a.EID != b.EID {
		t.Fatalf("chunked feed diverged from whole feed: %+v vs %+v", a, b)
	}
	if dWhole.Stats() != dChunked.Stats() {
		t.Fatalf("chunked feed stats diverged: %+v vs %+v", dWhole.Stats(), dChunked.Stats())
	}
}

func TestDecoderResetClearsEnsembleAndSubchannels(t *testing.T) {
	d := NewDecoder(Config{})
	d.Feed(ensembleLabelFrame(1))
	if !d.Ensemble().HasLabel {
		t.Fatal("expected a label before reset")
	}

	d.Reset()

	snap := d.Ensemble()
	if snap.HasLabel || snap.HasEID {
		t.Fatalf("expected an empty ensemble after Reset, got %+v", snap)
	}
	if len(d.subchannels) != 0 {
		t.Fatalf("expected no subchannel state after Reset, got %d", len(d.subchannels))
	}
}

func TestDecoderUnknownAFProtocolType(t *testing.T) {
	var got []UnknownFrame
	d := NewDecoder(Config{OnUnknownFrame: func(f UnknownFrame) { got = append(got, f) }})

	d.Feed(buildAF(1, 'X', []byte{0, 0, 0, 0}))

	if len(got) != 1 {
		t.Fatalf("got %d UnknownFrame events, want 1", len(got))
	}
	if d.Stats().UnknownFrames != 1 {
		t.Fatalf("Stats().UnknownFrames = %d, want 1", d.Stats().UnknownFrames)
	}
}

func TestDecoderBadAFCRCIsDropped(t *testing.T) {
	frame := ensembleLabelFrame(1)
	frame[6+2] |= 0x80 // set the crc flag
	frame = append(frame, 0x00, 0x00) // arbitrary (almost certainly wrong) trailer
	binary.BigEndian.PutUint32(frame[2:6], uint32(len(frame)-6))

	d := NewDecoder(Config{})
	d.Feed(frame)

	if d.Stats().BadCRC != 1 {
		t.Fatalf("Stats().BadCRC = %d, want 1", d.Stats().BadCRC)
	}
	if d.Ensemble().HasLabel {
		t.Fatal("a frame with a bad CRC must not apply its payload")
	}
}

func TestDecoderReentrantFeedReportsInternalError(t *testing.T) {
	var internal []InternalError
	var d *Decoder
	d = NewDecoder(Config{
		OnUnknownFrame: func(UnknownFrame) {
			// Called from within Feed: re-entering Feed here must be
			// rejected rather than corrupting the in-progress drain.
			d.Feed(buildAF(2, 'X', []byte{0, 0, 0, 0}))
		},
		OnInternalError: func(e InternalError) { internal = append(internal, e) },
	})

	d.Feed(buildAF(1, 'X', []byte{0, 0, 0, 0}))

	if len(internal) != 1 {
		t.Fatalf("got %d InternalError events, want 1", len(internal))
	}
	if d.Stats().InternalErrors != 1 {
		t.Fatalf("Stats().InternalErrors = %d, want 1", d.Stats().InternalErrors)
	}
}
