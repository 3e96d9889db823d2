package dab

import (
	"encoding/binary"

	"github.com/howeyc/crc16"

	"github.com/ohrstrom/edinburgh/dab/fic"
	"github.com/ohrstrom/edinburgh/dab/msc"
	"github.com/ohrstrom/edinburgh/dab/pad"
)

const (
	// afIntakeCapBytes bounds the growable intake buffer: once it grows
	// past this without ever locking onto a valid AF/PFT sync, it is
	// truncated back to resyncKeepBytes and a ResyncLoss fires.
	afIntakeCapBytes = 2 * 1024 * 1024
	resyncKeepBytes  = 64 * 1024

	// motObjectCapBytes and dlLabelCapBytes bound a single reassembled
	// object; exceeding either drops the object and increments
	// Stats.OversizeCount instead of delivering it.
	motObjectCapBytes = 512 * 1024
	dlLabelCapBytes   = 8 * 1024

	// afCRCMagic is the residue crc16.ChecksumCCITTFalse leaves when run
	// over an AF frame that already carries its own correct trailing
	// CRC16, per ETSI TS 102 821. Grounded on edisplitter.go's
	// ParseEdiData, which checks the identical constant.
	afCRCMagic = 0x1D0F
)

// subchannelState is the per-subchannel pipeline: superframe assembly
// followed by X-PAD reassembly, keyed by the DAB subchannel id carried
// in each "est<n>" tag-packet payload (the only identifier available at
// this layer; FIG 0/8's (SID, SCIdS) -> subchannel indirection lives
// entirely inside dab/fic's Ensemble).
type subchannelState struct {
	asm *msc.Assembler
	pad *pad.Decoder
}

// frameStatus is the outcome of attempting to parse one AF or PFT frame
// out of the head of the intake buffer.
type frameStatus int

const (
	frameIncomplete frameStatus = iota // need more bytes before deciding
	frameBad                           // a complete but invalid frame; drop one byte and resync
	frameOK                            // a complete, valid frame; consumed
)

// Decoder is the top-level entry point: feed it raw bytes from an
// EDI/AF transport (TCP, UDP, a file, whatever) in any chunking and it
// emits ensemble, audio, Dynamic Label and MOT Slideshow events through
// the callbacks in Config.
//
// A Decoder is not safe for concurrent use: it is single-threaded and
// cooperative, with no internal task queue or suspension point. Every
// event fires synchronously from within the Feed call that produced it
// and in wire order; a listener must not call Feed again (see
// InternalError).
type Decoder struct {
	cfg Config
	log Logger

	buf []byte

	lastAFSeq uint16
	hasAFSeq  bool

	reentry int

	ensemble *fic.Ensemble
	ficDec   *fic.Decoder

	subchannels map[uint8]*subchannelState

	stats Stats
}

// NewDecoder constructs a Decoder. A zero-value Config is valid: every
// event is simply never delivered, and Clock/Logger default to the
// real wall clock and a no-op logger.
func NewDecoder(cfg Config) *Decoder {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	d := &Decoder{cfg: cfg, log: cfg.Logger}
	d.ensemble = fic.NewEnsemble(cfg.Clock, cfg.OnEnsembleUpdated)
	d.ficDec = fic.NewDecoder(d.ensemble, cfg.Logger)
	d.subchannels = make(map[uint8]*subchannelState)
	return d
}

// Stats returns a snapshot of the cumulative health counters, aggregating
// the ensemble's and every subchannel's own per-instance counters at poll
// time rather than mirroring them into d.stats on every update.
func (d *Decoder) Stats() Stats {
	s := d.stats
	s.UnknownCharset = d.ensemble.UnknownCharsetCount
	s.SubchannelConflicts = d.ensemble.SubchannelConflictCount
	for _, st := range d.subchannels {
		s.UnknownCharset += st.pad.UnknownCharsetCount()
	}
	return s
}

// Ensemble returns the current ensemble model, independent of the
// rate-limited EnsembleUpdated callback.
func (d *Decoder) Ensemble() fic.EnsembleSnapshot { return d.ensemble.Snapshot() }

// Reset clears all in-progress reassembly state: the intake buffer,
// every subchannel's superframe/X-PAD assemblers, and the ensemble
// model, discarding any partial superframe or FIC/PAD object. It does
// not clear Config, so registered callbacks keep receiving events
// after Reset.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.ensemble.Reset()
	d.subchannels = make(map[uint8]*subchannelState)
	d.hasAFSeq = false
	d.lastAFSeq = 0
}

// Feed appends data to the intake buffer and drains every complete
// AF/PFT frame it can find. feed(∅) is a no-op. A caller need not align
// data on any frame boundary: Feed re-synchronizes on "AF"/"PF" sync
// tags as needed.
//
// Calling Feed reentrantly, from inside a callback Feed itself invoked,
// is a programmer error: it is detected and reported as an
// InternalError rather than corrupting in-progress state.
func (d *Decoder) Feed(data []byte) {
	if d.reentry > 0 {
		d.emitInternalError("feed called re-entrantly from within an event callback")
		return
	}
	if len(data) == 0 {
		return
	}

	d.reentry++
	defer func() { d.reentry-- }()

	d.buf = append(d.buf, data...)
	d.drain()
}

// drain consumes complete AF/PFT frames from the head of buf until
// either the buffer is exhausted or what remains might still be the
// prefix of a not-yet-complete frame.
func (d *Decoder) drain() {
	for {
		if len(d.buf) < 2 {
			return
		}
		b0, b1 := d.buf[0], d.buf[1]
		isAF := b0 == 'A' && b1 == 'F'
		isPF := b0 == 'P' && b1 == 'F'
		if !isAF && !isPF {
			if !d.resync() {
				return
			}
			continue
		}

		var consumed int
		var status frameStatus
		if isAF {
			consumed, status = d.tryParseAF(d.buf)
		} else {
			consumed, status = d.tryParsePFT(d.buf)
		}

		switch status {
		case frameIncomplete:
			d.checkOversize()
			return
		case frameBad:
			d.stats.MalformedFrames++
			d.buf = d.buf[1:]
		case frameOK:
			d.buf = d.buf[consumed:]
		}
	}
}

// resync advances past a buffer whose head is not a recognized sync
// tag, scanning for the next "AF"/"PF" occurrence. It reports whether
// scanning may continue this call (true) or the buffer has been fully
// consumed/parked waiting for more data (false).
func (d *Decoder) resync() bool {
	for i := 1; i+1 < len(d.buf); i++ {
		if (d.buf[i] == 'A' || d.buf[i] == 'P') && d.buf[i+1] == 'F' {
			d.buf = d.buf[i:]
			return true
		}
	}
	// No sync found. Keep a single trailing byte if it could be the
	// first half of a sync tag split across Feed calls.
	last := d.buf[len(d.buf)-1]
	if last == 'A' || last == 'P' {
		d.buf = d.buf[len(d.buf)-1:]
	} else {
		d.buf = d.buf[:0]
	}
	d.checkOversize()
	return false
}

// checkOversize truncates the intake buffer once it has grown past
// afIntakeCapBytes without locking onto a valid frame, per §4.1.
func (d *Decoder) checkOversize() {
	if len(d.buf) < afIntakeCapBytes {
		return
	}
	discarded := len(d.buf) - resyncKeepBytes
	d.buf = append([]byte(nil), d.buf[discarded:]...)
	d.log.Warn("dab: intake buffer exceeded %d bytes without a valid sync; truncated %d bytes", afIntakeCapBytes, discarded)
	if d.cfg.OnResyncLoss != nil {
		d.cfg.OnResyncLoss(ResyncLoss{DiscardedBytes: discarded})
	}
}

// tryParseAF attempts to parse one AF Packet (ETSI TS 102 821) from the
// head of buf. Grounded on edisplitter.go's ParseEdiData AF branch.
func (d *Decoder) tryParseAF(buf []byte) (int, frameStatus) {
	if len(buf) < 6 {
		return 0, frameIncomplete
	}
	// Length counts every byte from immediately after this field to the
	// end of the packet (sequence number through the trailing CRC).
	payloadLen := int(binary.BigEndian.Uint32(buf[2:6]))
	total := 6 + payloadLen
	if total < 6 {
		return 0, frameBad // overflowed int on a corrupt length field
	}
	if len(buf) < total {
		return 0, frameIncomplete
	}

	frame := buf[:total]
	body := frame[6:]
	if len(body) < 4 {
		return total, frameBad
	}

	seq := binary.BigEndian.Uint16(body[0:2])
	if d.hasAFSeq && seq != (d.lastAFSeq+1)&0xFFFF {
		d.stats.FramesLost++
		d.forceHuntAllSubchannels()
	}
	d.lastAFSeq = seq
	d.hasAFSeq = true

	flags := body[2]
	crcFlag := flags&0x80 != 0
	protocolType := body[3]
	tagData := body[4:]

	if crcFlag {
		if len(tagData) < 2 {
			return total, frameBad
		}
		tagData = tagData[:len(tagData)-2]
		if crc16.ChecksumCCITTFalse(frame) != afCRCMagic {
			d.stats.BadCRC++
			return total, frameBad
		}
	}

	if protocolType != 'T' {
		d.emitUnknownFrame("AF protocol type is not Tag Packets ('T')")
		return total, frameOK
	}

	d.decodeTagPackets(tagData)
	return total, frameOK
}

// decodeTagPackets walks an AF Packet's Tag Packet stream, dispatching
// "deti" and "est<n>" payloads and ignoring every other tag ("*ptr",
// "dsti", "*dmy" padding, anything unrecognized) per §4.3.
func (d *Decoder) decodeTagPackets(data []byte) {
	for len(data) >= 8 {
		name := string(data[0:4])
		length := int(binary.BigEndian.Uint32(data[4:8]) / 8)
		data = data[8:]
		if length < 0 || length > len(data) {
			return // truncated tag; drop the remainder of this packet
		}
		payload := data[:length]
		data = data[length:]

		switch {
		case name == "deti":
			d.decodeDETI(payload)
		case len(name) == 4 && name[0] == 'e' && name[1] == 's' && name[2] == 't':
			d.decodeEST(payload)
		}
	}
}

// decodeEST dispatches one "est<n>" tag payload: the leading byte's top
// 6 bits give the subchannel id, the payload from byte 3 onward is the
// subchannel's logical frame. Grounded on edisplitter.go's ParseEdiData
// est-tag branch.
func (d *Decoder) decodeEST(payload []byte) {
	if len(payload) < 4 {
		return
	}
	subchannelID := (payload[0] & 0xFC) >> 2
	frame := payload[3:]

	st := d.subchannelFor(subchannelID)
	res, err := st.asm.Feed(frame)
	if err != nil {
		d.log.Warn("dab: subchannel %d: %v", subchannelID, err)
		return
	}
	if res == nil {
		return
	}

	if d.cfg.OnAacSegment != nil {
		d.cfg.OnAacSegment(AacSegment{SubchannelID: subchannelID, Format: res.Format, Frames: res.Frames})
	}
	for i := range res.FPAD {
		if res.FPAD[i] == nil {
			continue
		}
		st.pad.Feed(res.FPAD[i], res.XPAD[i])
	}
}

// forceHuntAllSubchannels forces every live subchannel's superframe
// Assembler back into Hunting, per §4.7's "lost-frame indication from
// the AF layer forces Hunting": an AF sequence-number gap means the
// logical frames that follow can no longer be assumed contiguous with
// whatever any Assembler had buffered.
func (d *Decoder) forceHuntAllSubchannels() {
	for _, st := range d.subchannels {
		st.asm.ForceHunt()
	}
}

// subchannelFor returns (creating if absent) the pipeline for a
// subchannel id.
func (d *Decoder) subchannelFor(id uint8) *subchannelState {
	if st, ok := d.subchannels[id]; ok {
		return st
	}
	st := &subchannelState{asm: msc.NewAssembler(id)}
	st.pad = pad.NewDecoder(id, d.dlSink(), d.motSink())
	d.subchannels[id] = st
	return st
}

// dlSink enforces the DL text reassembly cap before forwarding to
// Config.OnDlObject.
func (d *Decoder) dlSink() func(pad.DLObject) {
	return func(o pad.DLObject) {
		if len(o.Label) > dlLabelCapBytes {
			d.stats.OversizeCount++
			return
		}
		if d.cfg.OnDlObject != nil {
			d.cfg.OnDlObject(o)
		}
	}
}

// motSink enforces the MOT object reassembly cap before forwarding to
// Config.OnMotImage.
func (d *Decoder) motSink() func(pad.MotImage) {
	return func(img pad.MotImage) {
		if len(img.Data) > motObjectCapBytes {
			d.stats.OversizeCount++
			return
		}
		if d.cfg.OnMotImage != nil {
			d.cfg.OnMotImage(img)
		}
	}
}

// tryParsePFT attempts to parse one PFT fragment (ETSI TS 102 821
// Annex B) from the head of buf. Only the single-fragment case is
// reassembled: its payload is a complete AF Packet, dispatched the same
// way a bare "AF"-tagged frame would be (see DESIGN.md's Open Question
// on PFT reassembly). Grounded on edisplitter.go's ParseEdiData PF
// branch.
func (d *Decoder) tryParsePFT(buf []byte) (int, frameStatus) {
	if len(buf) < 12 {
		return 0, frameIncomplete
	}
	fCount := read3(buf[7:10])
	fecUsed := buf[10]&0x80 != 0
	addrUsed := buf[10]&0x40 != 0
	payloadLen := int(binary.BigEndian.Uint16(buf[10:12])) & 0x3FFF

	pos := 12
	if fecUsed {
		pos += 2
	}
	if addrUsed {
		pos += 4
	}
	total := pos + payloadLen + 2 // +2 for the trailing HCRC
	if len(buf) < total {
		return 0, frameIncomplete
	}

	if fCount != 1 {
		d.emitUnknownFrame("multi-fragment PFT reassembly is not supported")
		return total, frameOK
	}

	payload := buf[pos : pos+payloadLen]
	if n, status := d.tryParseAF(payload); status == frameOK && n == len(payload) {
		return total, frameOK
	}
	return total, frameBad
}

func read3(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// emitUnknownFrame increments the counter and fires OnUnknownFrame.
func (d *Decoder) emitUnknownFrame(reason string) {
	d.stats.UnknownFrames++
	if d.cfg.OnUnknownFrame != nil {
		d.cfg.OnUnknownFrame(UnknownFrame{Reason: reason})
	}
}

// emitInternalError increments the counter and fires OnInternalError.
func (d *Decoder) emitInternalError(msg string) {
	d.stats.InternalErrors++
	if d.cfg.OnInternalError != nil {
		d.cfg.OnInternalError(InternalError{Message: msg})
	}
}
