package pad

import "github.com/howeyc/crc16"

// DataGroup is a decoded MSC data group header plus payload, the common
// envelope both DL and MOT segments travel in. Grounded on
// original_source/shared/src/edi/pad/mod.rs::MSCDataGroup::from_bytes.
type DataGroup struct {
	Valid            bool
	ExtensionFlag    bool
	SegmentFlag      bool
	UserAccessFlag   bool
	SegType          uint8
	ContinuityIndex  uint8
	RepetitionIndex  uint8
	ExtensionField   uint16
	HasExtension     bool
	LastFlag         bool
	SegmentNum       uint16
	HasSegmentNum    bool
	TransportIDFlag  bool
	TransportID      uint16
	HasTransportID   bool
	EndUserAddr      []byte
	Data             []byte
	CRCValid         bool
	HadCRC           bool
}

// DecodeDataGroup parses an MSC data group envelope. Unlike
// original_source (whose "NOTE: should we remove first 2 bytes of data
// first?" comment flags an unresolved bug: it leaves the CRC trailer
// inside Data unvalidated), this implementation strips and validates
// the trailing CRC16 when crc_flag is set, wiring dab/pad's CRC16 use
// per SPEC_FULL.md's domain-stack section.
func DecodeDataGroup(data []byte) DataGroup {
	var dg DataGroup
	if len(data) < 2 {
		return dg
	}
	idx := 0
	header := data[idx]
	idx++

	crcFlag := header&0x40 != 0
	dg.ExtensionFlag = header&0x80 != 0
	dg.SegmentFlag = header&0x20 != 0
	dg.UserAccessFlag = header&0x10 != 0
	dg.SegType = header & 0x0F

	second := data[idx]
	idx++
	dg.ContinuityIndex = (second >> 4) & 0x0F
	dg.RepetitionIndex = second & 0x0F

	if dg.ExtensionFlag {
		if len(data) < idx+2 {
			return dg
		}
		dg.ExtensionField = uint16(data[idx])<<8 | uint16(data[idx+1])
		dg.HasExtension = true
		idx += 2
	}

	if dg.SegmentFlag {
		if len(data) < idx+2 {
			return dg
		}
		dg.LastFlag = data[idx]&0x80 != 0
		dg.SegmentNum = uint16(data[idx]&0x7F)<<8 | uint16(data[idx+1])
		dg.HasSegmentNum = true
		idx += 2
	}

	if dg.UserAccessFlag {
		if len(data) < idx+1 {
			return dg
		}
		b := data[idx]
		idx++
		dg.TransportIDFlag = b&0x10 != 0
		lengthIndicator := int(b & 0x0F)

		if dg.TransportIDFlag {
			if len(data) < idx+2 {
				return dg
			}
			dg.TransportID = uint16(data[idx])<<8 | uint16(data[idx+1])
			dg.HasTransportID = true
			idx += 2
		}

		transportIDLen := 0
		if dg.TransportIDFlag {
			transportIDLen = 2
		}
		addrLen := lengthIndicator - transportIDLen
		if addrLen < 0 {
			addrLen = 0
		}
		if addrLen > 0 && len(data) >= idx+addrLen {
			dg.EndUserAddr = append([]byte(nil), data[idx:idx+addrLen]...)
			idx += addrLen
		}
	}

	crcLen := 0
	if crcFlag {
		crcLen = 2
	}
	if len(data) < idx+crcLen {
		return dg
	}
	dataLen := len(data) - idx - crcLen
	dg.Data = append([]byte(nil), data[idx:idx+dataLen]...)

	if crcFlag {
		dg.HadCRC = true
		stored := uint16(data[idx+dataLen])<<8 | uint16(data[idx+dataLen+1])
		dg.CRCValid = crc16.ChecksumCCITTFalse(data[:idx+dataLen]) == stored
	}

	dg.Valid = true
	return dg
}
