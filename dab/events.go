package dab

import "github.com/ohrstrom/edinburgh/dab/msc"

// AacSegment is one subchannel's reassembled 120ms superframe: the AAC
// access units for that block plus the audio format they were derived
// under. Frames may contain zero-length entries where an individual
// AU's CRC failed, preserving positional alignment rather than
// dropping the slot.
type AacSegment struct {
	SubchannelID uint8
	Format       *msc.AudioFormat
	Frames       [][]byte
}

// UnknownFrame reports wire data this decoder recognized as AF/PFT
// framed but could not interpret further: an AF protocol type other
// than Tag Packets, or a PFT fragment set spanning more than one
// fragment (this library only reassembles single-fragment PFT).
type UnknownFrame struct {
	Reason string
}

// ResyncLoss reports that the intake buffer grew past its cap without
// ever finding a valid AF/PFT sync, and was truncated to resume
// scanning from the tail.
type ResyncLoss struct {
	DiscardedBytes int
}

// InternalError reports a tier-3 programmer error (event-listener
// re-entry into Feed). The library never panics; this is how such
// conditions surface instead.
type InternalError struct {
	Message string
}
