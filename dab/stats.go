package dab

// Stats are cumulative decoder-health counters, polled via
// Decoder.Stats rather than pushed as events — the event surface in
// Config is reserved for content and the coalesced ResyncLoss warning.
type Stats struct {
	FramesLost      uint64 // AF sequence-number gaps
	BadCRC          uint64 // AF frames dropped for a failed full-frame CRC
	MalformedFrames uint64 // AF/PFT frames too short or inconsistent to parse
	UnknownFrames   uint64 // UnknownFrame events fired
	OversizeCount   uint64 // DL/MOT objects dropped for exceeding their cap
	InternalErrors  uint64 // InternalError events fired (listener re-entry)

	// UnknownCharset counts FIG 1 and DL label text decoded under a
	// charset selector this library does not recognize, aggregated
	// across the ensemble (FIG 1 labels) and every subchannel's PAD
	// decoder (DL labels) at poll time.
	UnknownCharset uint64
	// SubchannelConflicts counts FIG 0/1 re-announcements of an
	// already-known subchannel with different parameters.
	SubchannelConflicts uint64
}
