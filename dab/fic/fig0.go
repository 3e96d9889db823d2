package fic

import "encoding/binary"

// decodeFIG0 dispatches a FIG type 0 body (header byte + extension data)
// to the extension-specific handler. Header layout (Cn/OE/PD flags +
// 5-bit extension number) is grounded on
// original_source/shared/src/dab/fic.rs::decode_fig0.
func (d *Decoder) decodeFIG0(body []byte) {
	if len(body) == 0 {
		return
	}
	ext := body[0] & 0x1F
	data := body[1:]
	switch ext {
	case 0:
		d.fig0_0(data)
	case 1:
		d.fig0_1(data)
	case 2:
		d.fig0_2(data)
	case 3:
		d.fig0_3(data)
	case 5:
		d.fig0_5(data)
	case 8:
		d.fig0_8(data)
	case 9:
		d.fig0_9(data)
	case 10:
		d.fig0_10(data)
	case 13:
		d.fig0_13(data)
	case 17:
		d.fig0_17(data)
	}
}

// fig0_0 decodes Ensemble information: EID and the alarm flag. Grounded
// on original_source's Fig0_0::from_bytes; the CIF-counter continuity
// bookkeeping edisplitter.go's ENSEMBLE_INFORMATION case carries
// alongside this served its own re-encoding output and is dropped (see
// DESIGN.md).
func (d *Decoder) fig0_0(data []byte) {
	if len(data) < 3 {
		return
	}
	e := d.ensemble
	eid := binary.BigEndian.Uint16(data[0:2])
	al := data[2]&0x20 != 0
	if !e.HasEID || e.EID != eid {
		e.EID = eid
		e.HasEID = true
		e.markDirty()
	}
	if e.AlarmFlag != al {
		e.AlarmFlag = al
		e.markDirty()
	}
}

// fig0_1 decodes sub-channel organization entries: id, CU start address,
// and either a short-form UEP table lookup or a long-form EEP
// option/level/size triple. Grounded on
// original_source/shared/src/dab/fic.rs::Fig0_1::from_bytes, confirmed
// against edisplitter.go's SubChannelSizeShortFormTable/SubchannelCodingRate.
// A re-announcement of an already-known subchannel with different
// parameters overwrites the stored entry (last writer wins) and
// increments Ensemble.SubchannelConflictCount.
func (d *Decoder) fig0_1(data []byte) {
	e := d.ensemble
	offset := 0
	for offset+2 <= len(data) {
		id := data[offset] >> 2
		start := uint16(data[offset]&0x03)<<8 | uint16(data[offset+1])
		offset += 2
		if offset >= len(data) {
			break
		}
		var size, bitrate uint16
		var pl string
		longForm := data[offset]&0x80 != 0
		if longForm {
			if offset+1 >= len(data) {
				break
			}
			option := (data[offset] & 0x70) >> 4
			level := (data[offset] & 0x0C) >> 2
			subchSize := uint16(data[offset]&0x03)<<8 | uint16(data[offset+1])
			offset += 2
			size = subchSize
			bitrate = EEPBitrate(option, level, subchSize)
			pl = ProtectionLabel(option, level)
		} else {
			tableSwitch := data[offset]&0x40 != 0
			if !tableSwitch {
				idx := data[offset] & 0x3F
				if sz, level, br, ok := UEPEntry(idx); ok {
					size, bitrate, pl = sz, br, UEPLabel(level)
				}
			}
			offset++
		}
		if id > 63 {
			continue
		}
		sc, ok := e.Subchannels[id]
		if !ok {
			sc = &Subchannel{ID: id}
			e.Subchannels[id] = sc
			e.markDirty()
		}
		if sc.Start != start || sc.Size != size || sc.Bitrate != bitrate || sc.PL != pl {
			if ok {
				e.SubchannelConflictCount++
			}
			sc.Start, sc.Size, sc.Bitrate, sc.PL = start, size, bitrate, pl
			e.markDirty()
		}
	}
}

// fig0_2 decodes basic service and component description entries:
// SID, per-component (TMID, subchannel id, primary/CA flags). Grounded
// on original_source's Fig0_2::from_bytes +
// ensemble.rs::Ensemble::feed's F0_2 arm, with one deliberate
// correction: stream-mode components (TMID 0 audio, TMID 1 data) set
// SubchannelID directly from the decoded value, as the standard
// intends, rather than leaving it a same-as-scid placeholder.
func (d *Decoder) fig0_2(data []byte) {
	e := d.ensemble
	offset := 0
	for offset+2 <= len(data) {
		sid := uint32(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if offset >= len(data) {
			break
		}
		numComponents := data[offset] & 0x0F
		offset++
		for i := uint8(0); i < numComponents; i++ {
			if offset+2 > len(data) {
				return
			}
			tmid := (data[offset] & 0xC0) >> 6
			subchID := data[offset+1] >> 2
			ca := data[offset+1]&0x01 != 0
			offset += 2
			if ca {
				continue
			}
			c := e.component(sid, subchID)
			if tmid == 0 || tmid == 1 {
				if !c.HasSubchannel || c.SubchannelID != subchID {
					c.HasSubchannel = true
					c.SubchannelID = subchID
					e.markDirty()
				}
			}
		}
	}
}

// fig0_3 decodes service components transported in packet mode,
// associating a 12-bit SCId with its carrying subchannel. Grounded on
// original_source/shared/src/dab/fic.rs::Fig0_3::from_bytes; absent from
// both edisplitter.go and original_source's ensemble model, this stores
// the SCId→subchannel association for fig0_8 to later resolve against a
// (SID, SCIdS) pair (see DESIGN.md Open Question 1).
func (d *Decoder) fig0_3(data []byte) {
	if len(data) < 5 {
		return
	}
	scid := uint16(data[0])<<4 | uint16(data[1])>>4
	subchID := (data[3] >> 2) & 0x3F
	d.ensemble.setPacketSubchannel(scid, subchID)
}

// fig0_5 decodes service-component language, matched globally by scid
// across all known services (the scid namespace is ensemble-wide, per
// original_source/shared/src/dab/ensemble.rs's F0_5 handling, which
// matches by scid alone with no SID filter).
func (d *Decoder) fig0_5(data []byte) {
	e := d.ensemble
	offset := 0
	for offset+1 < len(data) {
		b := data[offset]
		if b&0x80 != 0 {
			offset += 3
			continue
		}
		mscFic := b&0x40 != 0
		if !mscFic {
			scid := b & 0x3F
			lang := LanguageName(data[offset+1])
			for _, svc := range e.Services {
				if c, ok := svc.Components[scid]; ok && lang != "" {
					if !c.HasLanguage || c.Language != lang {
						c.HasLanguage = true
						c.Language = lang
						e.markDirty()
					}
				}
			}
		}
		offset += 2
	}
}

// fig0_8 decodes the service-component global definition, recovering
// the scid ↔ (SID, SCIdS) map. This FIG is implemented from ETSI
// TS 101 756 table 16's field layout directly — it is present in
// neither edisplitter.go nor original_source (see DESIGN.md Open
// Question 1). Layout: a 2-byte SID (the FIG 0 header's P/D flag is not
// threaded through here, so the 4-byte data-service SID form is not
// handled), Rfa(4 bits)+SCIdS(4 bits), then a byte whose top bit is the
// LS flag selecting a 6-bit (short) or 12-bit (long) SCId.
func (d *Decoder) fig0_8(data []byte) {
	e := d.ensemble
	if len(data) < 4 {
		return
	}
	sid := uint32(binary.BigEndian.Uint16(data[0:2]))
	rest := data[2:]
	scids := rest[0] & 0x0F
	ls := rest[1]&0x80 != 0
	var scid uint16
	var consumed int
	if ls {
		if len(rest) < 3 {
			return
		}
		scid = uint16(rest[1]&0x0F)<<8 | uint16(rest[2])
		consumed = 3
	} else {
		if len(rest) < 2 {
			return
		}
		scid = uint16(rest[1] & 0x3F)
		consumed = 2
	}
	_ = consumed
	if prev, ok := e.scidBySIDComponent[sidComponentKey{sid, scids}]; !ok || prev != uint8(scid) {
		e.scidBySIDComponent[sidComponentKey{sid, scids}] = uint8(scid)
		e.markDirty()
	}
	c := e.component(sid, uint8(scid))
	if subch, ok := e.packetSubchannel(scid); ok {
		if !c.HasSubchannel || c.SubchannelID != subch {
			c.HasSubchannel = true
			c.SubchannelID = subch
			e.markDirty()
		}
	}
}

// fig0_9 decodes Country, LTO & International table, surfacing the
// extended country code (a supplemented feature, see SPEC_FULL.md).
// Grounded on original_source's Fig0_9::from_bytes.
func (d *Decoder) fig0_9(data []byte) {
	if len(data) < 3 {
		return
	}
	ecc := data[1]
	e := d.ensemble
	if !e.HasECC || e.ECC != ecc {
		e.ECC = ecc
		e.HasECC = true
		e.markDirty()
	}
}

// fig0_10 decodes Date & time (MJD + UTC), surfaced as Ensemble.UTCTime
// (a supplemented feature, see SPEC_FULL.md). Grounded on
// original_source's Fig0_10::from_bytes MJD→Gregorian conversion.
func (d *Decoder) fig0_10(data []byte) {
	if len(data) < 4 {
		return
	}
	mjd := uint32(data[0]&0x7F)<<10 | uint32(data[1])<<2 | uint32(data[2])>>6
	y0 := float64((float64(mjd) - 15078.2) / 365.25)
	y0 = floor(y0)
	m0 := floor((float64(mjd) - 14956.1 - floor(y0*365.25)) / 30.6001)
	day := int(float64(mjd) - 14956.0 - floor(y0*365.25) - floor(m0*30.6001))
	k := 0.0
	if m0 == 14 || m0 == 15 {
		k = 1
	}
	year := int(y0+k) + 1900
	month := int(m0 - 1 - k*12)

	utcFlag := (data[2]>>3)&0x01 != 0
	ts := &Timestamp{Year: year, Month: month, Day: day}
	if utcFlag {
		if len(data) < 6 {
			return
		}
		hour := (data[2]&0x07)<<2 | data[3]>>6
		minute := data[3] & 0x3F
		second := data[4] >> 2
		ts.Hour, ts.Minute, ts.Second, ts.HasSeconds = int(hour), int(minute), int(second), true
	} else {
		hour := (data[2]&0x07)<<2 | data[3]>>6
		minute := data[3] & 0x3F
		ts.Hour, ts.Minute = int(hour), int(minute)
	}
	if d.ensemble.UTCTime == nil || *d.ensemble.UTCTime != *ts {
		d.ensemble.UTCTime = ts
		d.ensemble.markDirty()
	}
}

func floor(f float64) float64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return float64(i)
}

// fig0_13 decodes user application information (FIG 0/13), in
// particular type 0x0002 = MOT Slideshow. Grounded on
// original_source/shared/src/dab/fic.rs::Fig0_13::from_bytes and
// ensemble.rs's F0_13 arm (scids==0 means "apply to all components of
// this service"; otherwise a per-component bitmask).
func (d *Decoder) fig0_13(data []byte) {
	e := d.ensemble
	offset := 0
	for offset+3 <= len(data) {
		sid := uint32(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		scids := data[offset] >> 4
		numUAs := data[offset] & 0x0F
		offset++
		if numUAs == 0 || numUAs > 6 {
			break
		}
		var uas []string
		ok := true
		for i := uint8(0); i < numUAs; i++ {
			if offset+2 > len(data) {
				ok = false
				break
			}
			uaType := uint16(data[offset])<<3 | uint16(data[offset+1]>>5)
			uaLen := int(data[offset+1] & 0x1F)
			offset += 2
			if offset+uaLen > len(data) {
				ok = false
				break
			}
			offset += uaLen
			uas = append(uas, UserApplicationName(uaType))
		}
		if !ok {
			break
		}
		svc, exists := e.Services[sid]
		if !exists {
			continue
		}
		applyTo := func(c *ServiceComponent) {
			if !stringSlicesEqual(c.UserApps, uas) {
				c.UserApps = uas
				e.markDirty()
			}
		}
		if scids == 0 {
			for _, c := range svc.Components {
				applyTo(c)
			}
		} else {
			for i := uint8(0); i < 8; i++ {
				if scids&(1<<i) != 0 {
					if c, ok := svc.Components[i]; ok {
						applyTo(c)
					}
				}
			}
		}
	}
}

// fig0_17 decodes the programme type, an informational-only field. Not
// present in edisplitter.go or original_source; the decode is
// performed (to keep the FIG parser complete) but the result is logged
// only rather than stored on the ensemble model.
func (d *Decoder) fig0_17(data []byte) {
	if len(data) < 4 {
		return
	}
	d.log.Debug("fic: FIG 0/17 programme type SID=0x%04X", binary.BigEndian.Uint16(data[0:2]))
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
