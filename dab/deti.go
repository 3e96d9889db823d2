package dab

// decodeDETI parses one "deti" tag-packet payload: the frame-control
// flags, the transmission mode id, and (when present) the fixed-size
// FIC block, split into 32-byte FIB blocks and handed to the FIC
// decoder. Grounded on edisplitter.go's parseDetiData.
//
// edisplitter.go's modeId switch (1/2/4 -> 96 FIC bytes, 3 -> 128,
// anything else silently producing a nil ficBytes slice) conflates DAB
// transmission mode with DAB+ eligibility: Transmission Modes II and IV
// also carry a 96-byte FIC, so the byte count alone can't tell a
// classic-DAB broadcast from a DAB+ one. Only Transmission Mode I is
// treated as fully supported here; any other modeId value is skipped
// with a warning rather than parsed, matching the "Mode-2/3/4 DAB
// (non-DAB+): skip with a warning" requirement this module carries
// beyond what edisplitter.go implements.
func (d *Decoder) decodeDETI(payload []byte) {
	if len(payload) < 6 {
		d.stats.MalformedFrames++
		return
	}

	b0 := payload[0]
	atstF := b0&0x80 != 0
	ficF := b0&0x40 != 0
	modeID := (payload[3] & 0xC0) >> 6

	pos := 6
	if atstF {
		pos += 1 + 4 + 3 // UTCO, seconds, TSTA
	}
	if !ficF {
		return
	}

	if modeID != 1 {
		d.log.Warn("dab: skipping FIC, DETI modeId=%d is not Transmission Mode I", modeID)
		return
	}
	const ficLen = 96
	if len(payload) < pos+ficLen {
		d.stats.MalformedFrames++
		return
	}

	if err := d.ficDec.Feed(payload[pos : pos+ficLen]); err != nil {
		d.log.Warn("dab: FIC decode error: %v", err)
	}
}
