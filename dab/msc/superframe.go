package msc

import "github.com/howeyc/crc16"

// fpadLen is the fixed F-PAD trailer size on every access unit.
const fpadLen = 2

// AUResult is the payload an Assembler produces once 5 logical frames
// close out into a synced DAB+ superframe.
type AUResult struct {
	Format *AudioFormat
	// Frames holds one entry per access unit, in order. A frame whose AU
	// CRC failed to validate is reported as a zero-length slice rather
	// than dropped outright, so downstream consumers that rely on a
	// fixed au_count per superframe keep a stable slot count.
	Frames [][]byte
	FPAD   [][]byte
	XPAD   [][]byte
}

// Assembler reassembles one subchannel's logical frames into DAB+
// superframes: 5 logical frames accumulate into an Audio Super Frame,
// locked by its leading Fire code, then split into access units per the
// AU start-pointer table. Grounded on
// original_source/shared/src/edi/msc.rs::AACPExctractor.
type Assembler struct {
	SCID uint8

	frameLen     int
	frameCount   int
	superLen     int
	raw          []byte
	buf          []byte
	syncMisses   int
	firecodeFail uint64 // total consecutive-failure events at 2+ strikes

	auCount  int
	auStart  [7]int
	format   *AudioFormat
}

// NewAssembler constructs an empty Assembler for one subchannel.
func NewAssembler(scid uint8) *Assembler {
	return &Assembler{SCID: scid}
}

// Format returns the AudioFormat derived once superframe sync first
// locks, or nil if not yet known.
func (a *Assembler) Format() *AudioFormat { return a.format }

// ForceHunt drops any partially-accumulated superframe window and
// resets the consecutive-miss counter, forcing the next Feed calls back
// into the frame-by-frame firecode hunt rather than trusting the
// current frame alignment. Per §4.7, a lost-frame indication from the
// AF layer forces Hunting even while Locked: the gap means the frames
// that follow can no longer be assumed contiguous with whatever this
// Assembler had buffered.
func (a *Assembler) ForceHunt() {
	a.frameCount = 0
	a.syncMisses = 0
}

// Feed appends one logical frame (frameLen bytes, constant for the
// lifetime of the subchannel). It returns a non-nil AUResult once every
// 5th frame completes a superframe and the Fire code validates; nil
// otherwise (still buffering, or still out of sync).
func (a *Assembler) Feed(frame []byte) (*AUResult, error) {
	if a.frameLen == 0 {
		if len(frame) < 10 || (5*len(frame))%120 != 0 {
			return nil, ErrInvalidFrameLength
		}
		a.frameLen = len(frame)
		a.superLen = 5 * a.frameLen
		a.raw = make([]byte, a.superLen)
		a.buf = make([]byte, a.superLen)
	} else if len(frame) != a.frameLen {
		return nil, ErrFrameLengthMismatch
	}

	if a.frameCount == 5 {
		copy(a.raw, a.raw[a.frameLen:])
	} else {
		a.frameCount++
	}
	start := (a.frameCount - 1) * a.frameLen
	copy(a.raw[start:start+a.frameLen], frame)

	if a.frameCount < 5 {
		return nil, nil
	}
	copy(a.buf, a.raw[:a.superLen])

	if !a.resync() {
		// Leave frameCount at 5 rather than discarding the whole window:
		// the next Feed call slides raw by one logical frame (the
		// frameCount == 5 branch above)
		// and retries the firecode at the new alignment, so a lock that
		// doesn't fall on the first frame this Assembler ever saw is
		// still found within 4 further frames instead of never.
		return nil, nil
	}

	result := &AUResult{Format: a.format}
	for i := 0; i < a.auCount; i++ {
		auData := a.buf[a.auStart[i]:a.auStart[i+1]]
		auLen := len(auData)
		if auLen < 2 {
			result.Frames = append(result.Frames, nil)
			result.FPAD = append(result.FPAD, nil)
			result.XPAD = append(result.XPAD, nil)
			continue
		}
		crcStored := uint16(auData[auLen-2])<<8 | uint16(auData[auLen-1])
		crcCalced := crc16.ChecksumCCITTFalse(auData[:auLen-2])
		if crcStored != crcCalced {
			result.Frames = append(result.Frames, nil)
			result.FPAD = append(result.FPAD, nil)
			result.XPAD = append(result.XPAD, nil)
			continue
		}
		payload := auData[:auLen-2]
		result.Frames = append(result.Frames, payload)

		fpad, xpad := extractPAD(payload)
		result.FPAD = append(result.FPAD, fpad)
		result.XPAD = append(result.XPAD, xpad)
	}

	a.frameCount = 0
	return result, nil
}

// resync validates the Fire code, derives the AudioFormat on first
// lock, and (re)computes the AU start-pointer table from the 12-bit
// pointers packed across sf_buff[3:11]. Grounded on
// original_source/.../msc.rs::AACPExctractor::re_sync.
func (a *Assembler) resync() bool {
	if !firecodeCheck(a.buf) {
		a.syncMisses++
		if a.syncMisses >= 2 {
			a.firecodeFail++
		}
		return false
	}
	a.syncMisses = 0

	if a.format == nil {
		if len(a.buf) < 11 || (a.buf[3] == 0 && a.buf[4] == 0) {
			return false // no format yet; keep buffering
		}
		h := a.buf[2]
		dacRate := h&0x40 != 0
		sbr := h&0x20 != 0
		channelMode := h&0x10 != 0
		ps := h&0x08 != 0
		a.format = deriveAudioFormat(dacRate, sbr, channelMode, ps, a.superLen)
	}

	f := a.format
	a.auCount = int(f.AUCount)

	switch {
	case f.SampleRateKHz == 48 && f.SBR:
		a.auStart[0] = 6
	case f.SampleRateKHz == 48 && !f.SBR:
		a.auStart[0] = 11
	case f.SBR:
		a.auStart[0] = 5
	default:
		a.auStart[0] = 8
	}
	a.auStart[a.auCount] = a.superLen / 120 * 110

	a.auStart[1] = int(a.buf[3])<<4 | int(a.buf[4]>>4)
	if a.auCount >= 3 {
		a.auStart[2] = int(a.buf[4]&0x0F)<<8 | int(a.buf[5])
	}
	if a.auCount >= 4 {
		a.auStart[3] = int(a.buf[6])<<4 | int(a.buf[7]>>4)
	}
	if a.auCount == 6 {
		a.auStart[4] = int(a.buf[7]&0x0F)<<8 | int(a.buf[8])
		a.auStart[5] = int(a.buf[9])<<4 | int(a.buf[10]>>4)
	}

	for i := 0; i < a.auCount; i++ {
		if a.auStart[i] >= a.auStart[i+1] {
			return false
		}
	}
	return true
}

// extractPAD splits an access unit's trailing PAD region into F-PAD and
// X-PAD. Only applies when the AU's leading stream-id nibble marks it as
// carrying PAD (top 3 bits == 4). Grounded on
// original_source/.../msc.rs::AACPExctractor::extract_pad.
func extractPAD(au []byte) (fpad, xpad []byte) {
	if len(au) < 3 || au[0]>>5 != 4 {
		return nil, nil
	}
	padStart := 2
	padLen := int(au[1])
	if padLen == 255 {
		if len(au) < 4 {
			return nil, nil
		}
		padLen += int(au[2])
		padStart++
	}
	if padLen < 2 || len(au) < padStart+padLen {
		return nil, nil
	}
	xpad = au[padStart : padStart+padLen-fpadLen]
	fpad = au[padStart+padLen-fpadLen : padStart+padLen]
	return fpad, xpad
}
