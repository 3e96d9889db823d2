// Package msc assembles DAB+ superframes from MSC subchannel streams:
// firecode-locked frame synchronization, audio access unit (AU)
// extraction and CRC validation, and the Audio Specific Config (ASC)
// derivation the downstream AAC decoder needs.
package msc

// AudioFormat is the decoder-facing description of the audio carried by
// a subchannel, derived once from the DAB+ superframe header and
// immutable thereafter for the lifetime of a (scid) between resets.
type AudioFormat struct {
	SBR           bool
	PS            bool
	Codec         string // "HE-AAC" | "HE-AACv2" | "AAC-LC"
	SampleRateKHz uint16 // 16, 24, 32, or 48
	BitrateKbps   uint16
	AUCount       uint8 // 2..6
	Channels      uint8 // 1 or 2
	ASC           []byte
}

// Equal reports whether two AudioFormat values describe the same
// configuration, used to detect genuine changes for idempotent update
// semantics.
func (a *AudioFormat) Equal(b *AudioFormat) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.SBR != b.SBR || a.PS != b.PS || a.Codec != b.Codec ||
		a.SampleRateKHz != b.SampleRateKHz || a.BitrateKbps != b.BitrateKbps ||
		a.AUCount != b.AUCount || a.Channels != b.Channels || len(a.ASC) != len(b.ASC) {
		return false
	}
	for i := range a.ASC {
		if a.ASC[i] != b.ASC[i] {
			return false
		}
	}
	return true
}

// deriveAudioFormat builds the AudioFormat from the DAB+ superframe
// header bits (dac_rate, sbr_flag, channel_mode, ps_flag) and the
// superframe length in bytes (used for the bitrate estimate). Grounded on
// original_source/shared/src/edi/msc.rs::AudioFormat::from_bytes.
func deriveAudioFormat(dacRate, sbr, channelMode, ps bool, sfLenBytes int) *AudioFormat {
	af := &AudioFormat{SBR: sbr, PS: ps}

	switch {
	case sbr && ps:
		af.Codec = "HE-AACv2"
	case sbr:
		af.Codec = "HE-AAC"
	default:
		af.Codec = "AAC-LC"
	}

	if dacRate {
		af.SampleRateKHz = 48
	} else {
		af.SampleRateKHz = 32
	}

	switch {
	case !dacRate && sbr:
		af.AUCount = 2
	case dacRate && sbr:
		af.AUCount = 3
	case !dacRate && !sbr:
		af.AUCount = 4
	default: // dacRate && !sbr
		af.AUCount = 6
	}

	// Channel count follows channel_mode alone; ps_flag only controls PS
	// extension signaling in the ASC, not the reported channel count.
	if channelMode {
		af.Channels = 2
	} else {
		af.Channels = 1
	}

	// bitrate_kbps ≈ superframe byte length / 120 * 8, the per-120ms
	// framing unit used throughout ETSI TS 102 563.
	af.BitrateKbps = uint16(sfLenBytes / 120 * 8)

	af.ASC = buildASC(af.SampleRateKHz, af.Channels, sbr, ps)
	return af
}
