package fic

import (
	"encoding/binary"
	"strings"

	"github.com/ohrstrom/edinburgh/dab/pad"
)

// decodeFIG1 dispatches a FIG type 1 body. Header layout (charset
// nibble, OE flag, 3-bit extension number) is grounded on
// original_source/shared/src/dab/fic.rs::decode_fig1.
func (d *Decoder) decodeFIG1(body []byte) {
	if len(body) == 0 {
		return
	}
	header := body[0]
	charset := header >> 4
	ext := header & 0x07
	data := body[1:]
	switch ext {
	case 0:
		d.fig1_0(data, charset)
	case 1:
		d.fig1_1(data, charset)
	case 4:
		d.fig1_4(data, charset)
	case 5:
		d.fig1_5(data, charset)
	}
}

// fig1_0 decodes the ensemble label: 16 label bytes + a 16-bit
// short-label selection mask. The short label is selected from the full
// 16-character field; the stored label has its trailing space padding
// trimmed. Grounded on
// original_source/shared/src/dab/fic.rs::Fig1_0::from_bytes, with the
// short-label derivation corrected from that source's no-op stub to the
// proper bitmask algorithm (pad.ShortLabelMask).
func (d *Decoder) fig1_0(data []byte, charset uint8) {
	if len(data) < 20 {
		return
	}
	e := d.ensemble
	eid := binary.BigEndian.Uint16(data[0:2])
	label, unknown := pad.DecodeChars(data[2:18], charset)
	mask := binary.BigEndian.Uint16(data[18:20])
	short := pad.ShortLabelMask(label, mask)
	label = strings.TrimRight(label, " ")
	if unknown {
		e.UnknownCharsetCount++
	}

	if !e.HasEID || e.EID != eid {
		e.EID = eid
		e.HasEID = true
		e.markDirty()
	}
	if !e.HasLabel || e.Label != label {
		e.Label = label
		e.HasLabel = true
		e.markDirty()
	}
	if !e.HasShortLabel || e.ShortLabel != short {
		e.ShortLabel = short
		e.HasShortLabel = true
		e.markDirty()
	}
}

// fig1_1 decodes the programme-service label by SID. Grounded on
// original_source/shared/src/dab/fic.rs::Fig1_1::from_bytes, which
// already implements the short-label bitmask correctly.
func (d *Decoder) fig1_1(data []byte, charset uint8) {
	if len(data) < 20 {
		return
	}
	e := d.ensemble
	sid := uint32(binary.BigEndian.Uint16(data[0:2]))
	label, unknown := pad.DecodeChars(data[2:18], charset)
	mask := binary.BigEndian.Uint16(data[18:20])
	short := pad.ShortLabelMask(label, mask)
	if unknown {
		e.UnknownCharsetCount++
	}

	svc, ok := e.Services[sid]
	if !ok {
		return
	}
	if !svc.HasLabel || svc.Label != label {
		svc.Label = label
		svc.HasLabel = true
		e.markDirty()
	}
	if !svc.HasShortLabel || svc.ShortLabel != short {
		svc.ShortLabel = short
		svc.HasShortLabel = true
		e.markDirty()
	}
}

// fig1_4 decodes the service-component label by (SID, SCIdS), resolving
// the scid via a prior FIG 0/8. original_source stubs this extension
// entirely (Fig1_4::from_bytes is a no-op); this is a from-scratch
// implementation following the FIG 1/1 byte layout plus a leading
// SCIdS byte.
func (d *Decoder) fig1_4(data []byte, charset uint8) {
	if len(data) < 21 {
		return
	}
	e := d.ensemble
	sid := uint32(binary.BigEndian.Uint16(data[0:2]))
	scids := data[2] & 0x0F
	label, unknown := pad.DecodeChars(data[3:19], charset)
	mask := binary.BigEndian.Uint16(data[19:21])
	short := pad.ShortLabelMask(label, mask)
	if unknown {
		e.UnknownCharsetCount++
	}

	scid, ok := e.ResolveSCID(sid, scids)
	if !ok {
		return
	}
	svc, ok := e.Services[sid]
	if !ok {
		return
	}
	c, ok := svc.Components[scid]
	if !ok {
		return
	}
	if c.ComponentLabel != label {
		c.ComponentLabel = label
		e.markDirty()
	}
	if c.ComponentShortLabel != short {
		c.ComponentShortLabel = short
		e.markDirty()
	}
}

// fig1_5 decodes the data-service label, keyed by a 32-bit data SID
// (rather than the 16-bit programme SID used by FIG 1/1). Absent from
// original_source entirely; this is a from-scratch implementation by
// analogy to fig1_1.
func (d *Decoder) fig1_5(data []byte, charset uint8) {
	if len(data) < 22 {
		return
	}
	e := d.ensemble
	sid := binary.BigEndian.Uint32(data[0:4])
	label, unknown := pad.DecodeChars(data[4:20], charset)
	mask := binary.BigEndian.Uint16(data[20:22])
	short := pad.ShortLabelMask(label, mask)
	if unknown {
		e.UnknownCharsetCount++
	}

	svc := e.service(sid)
	if !svc.HasLabel || svc.Label != label {
		svc.Label = label
		svc.HasLabel = true
		e.markDirty()
	}
	if !svc.HasShortLabel || svc.ShortLabel != short {
		svc.ShortLabel = short
		svc.HasShortLabel = true
		e.markDirty()
	}
}
