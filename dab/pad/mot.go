package pad

import (
	"bytes"
	"crypto/md5"
)

// MotImage is a completed MOT (Multimedia Object Transfer) Slideshow
// image. Grounded on
// original_source/shared/src/dab/pad/mot.rs::MotImage.
type MotImage struct {
	SCID     uint8
	Mimetype string
	MD5      [16]byte
	Data     []byte
	Width    int // 0 if undetermined
	Height   int

	// ContentName/ClickThroughURL/AlternativeLocationURL are MOT header
	// extension fields, a supplemented feature per SPEC_FULL.md.
	ContentName             string
	ClickThroughURL         string
	AlternativeLocationURL  string
	CategoryID              uint8
	HasCategoryID           bool
}

// motObject accumulates one in-progress MOT header+body pair.
type motObject struct {
	transportID uint16
	header      []byte
	body        []byte
	headerDone  bool
	bodyDone    bool

	bodySize       int
	contentType    uint8
	contentSubtype uint16
}

func (o *motObject) complete() bool { return o.headerDone && o.bodyDone }

// parseHeader decodes the primary MOT header (body size, content type
// and subtype) and the header extension fields this library
// understands (ContentName, ClickThroughURL, AlternativeLocationURL,
// CategoryID). Grounded on
// original_source/shared/src/dab/pad/mot.rs::MotObject::parse_header.
func (o *motObject) parseHeader() (name, clickThrough, altLoc string, categoryID uint8, hasCategory bool) {
	data := o.header
	if len(data) < 7 {
		return
	}
	headerSize := int(data[3]&0x0F)<<9 | int(data[4])<<1 | int(data[5]>>7)
	if headerSize > len(data) {
		headerSize = len(data)
	}

	o.bodySize = int(data[0])<<20 | int(data[1])<<12 | int(data[2])<<4 | int(data[3]>>4)
	o.contentType = (data[5] >> 1) & 0x3F
	o.contentSubtype = uint16(data[5]&0x01)<<8 | uint16(data[6])

	n := 7
	for n < headerSize {
		pli := (data[n] >> 6) & 0x03
		paramID := data[n] & 0x3F
		n++

		dataFieldLen := 0
		switch pli {
		case 0:
		case 1:
			dataFieldLen = 1
		case 2:
			dataFieldLen = 4
		case 3:
			if n >= headerSize {
				return
			}
			l := int(data[n] & 0x7F)
			if data[n]&0x80 != 0 {
				n++
				if n >= headerSize {
					return
				}
				l = l<<8 | int(data[n])
			}
			n++
			dataFieldLen = l
		}

		if n+dataFieldLen > headerSize {
			return
		}
		field := data[n : n+dataFieldLen]

		switch paramID {
		case 0x0C: // ContentName
			if len(field) > 1 {
				name = string(field[1:])
			}
		case 0x27: // ClickThroughURL
			if len(field) > 1 {
				clickThrough = string(field)
			}
		case 0x28: // AlternativeLocationURL
			if len(field) > 1 {
				altLoc = string(field)
			}
		case 0x29: // CategoryID/SlideID (ETSI TS 101 499 extension)
			if len(field) >= 2 {
				categoryID = field[0]
				hasCategory = true
			}
		case 0x23, 0x11: // CAInfo / CompressionType: unsupported, abort extensions
			return
		}

		n += dataFieldLen
	}
	return
}

// motAssembler reassembles MOT header/body segments (CI kinds 12/13)
// keyed by transport id, following
// original_source/shared/src/dab/pad/mot.rs::MotDecoder.
type motAssembler struct {
	scid       uint8
	sizeNeeded int
	buf        []byte
	current    *motObject

	lastMD5    [16]byte
	hasLastMD5 bool
}

func newMOTAssembler(scid uint8) *motAssembler {
	return &motAssembler{scid: scid}
}

// initSegment primes the raw accumulation buffer with the size
// announced by the preceding DGLI (CI kind 1).
func (a *motAssembler) initSegment(size int) {
	a.sizeNeeded = size
	a.buf = a.buf[:0]
}

// feedSegment accumulates raw bytes for the current MOT data group,
// returning the decoded DataGroup once sizeNeeded bytes have arrived.
func (a *motAssembler) feedSegment(payload []byte) *DataGroup {
	remaining := a.sizeNeeded - len(a.buf)
	if remaining <= 0 {
		return nil
	}
	n := len(payload)
	if n > remaining {
		n = remaining
	}
	a.buf = append(a.buf, payload[:n]...)
	if len(a.buf) != a.sizeNeeded {
		return nil
	}
	dg := DecodeDataGroup(a.buf)
	a.buf = a.buf[:0]
	return &dg
}

// decodeDataGroup applies one decoded MOT data group to the
// in-progress object, firing onMOT once a complete image assembles. A
// second broadcast producing an identical MD5 is suppressed.
func (a *motAssembler) decodeDataGroup(dg DataGroup, onMOT func(MotImage)) {
	if !dg.Valid || !dg.SegmentFlag || len(dg.Data) < 3 {
		return
	}
	transportID := dg.TransportID
	data := dg.Data[2:]

	switch dg.SegType {
	case 3: // header
		obj := &motObject{transportID: transportID}
		obj.header = append(obj.header, data...)
		obj.headerDone = dg.LastFlag
		a.current = obj
	case 4: // body
		if a.current == nil || a.current.transportID != transportID {
			return
		}
		a.current.body = append(a.current.body, data...)
		a.current.bodyDone = dg.LastFlag

		if a.current.complete() {
			obj := a.current
			a.current = nil

			name, clickThrough, altLoc, categoryID, hasCategory := obj.parseHeader()
			if obj.contentType != 2 { // 2 = image
				return
			}
			img := newMotImage(a.scid, obj.contentSubtype, obj.body)
			img.ContentName = name
			img.ClickThroughURL = clickThrough
			img.AlternativeLocationURL = altLoc
			img.CategoryID = categoryID
			img.HasCategoryID = hasCategory

			if a.hasLastMD5 && a.lastMD5 == img.MD5 {
				return // identical to the last broadcast; suppress
			}
			a.lastMD5 = img.MD5
			a.hasLastMD5 = true

			if onMOT != nil {
				onMOT(img)
			}
		}
	}
}

// newMotImage builds a MotImage, resolving the mimetype from the MOT
// content subtype and computing the MD5 fingerprint and (best-effort)
// pixel dimensions.
func newMotImage(scid uint8, kind uint16, data []byte) MotImage {
	var mimetype string
	switch kind {
	case 1:
		mimetype = "image/jpeg"
	case 3:
		mimetype = "image/png"
	default:
		mimetype = "application/octet-stream"
	}
	w, h := sniffImageDimensions(data, mimetype)
	return MotImage{
		SCID:     scid,
		Mimetype: mimetype,
		MD5:      md5.Sum(data),
		Data:     data,
		Width:    w,
		Height:   h,
	}
}

// sniffImageDimensions reads pixel dimensions directly from the JPEG
// SOF0 marker or PNG IHDR chunk, a supplemented feature (absent from
// original_source) that avoids pulling in an image-decoding library for
// a single width/height pair.
func sniffImageDimensions(data []byte, mimetype string) (width, height int) {
	switch mimetype {
	case "image/png":
		if len(data) >= 24 && bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
			width = int(data[16])<<24 | int(data[17])<<16 | int(data[18])<<8 | int(data[19])
			height = int(data[20])<<24 | int(data[21])<<16 | int(data[22])<<8 | int(data[23])
		}
	case "image/jpeg":
		i := 2
		for i+9 < len(data) {
			if data[i] != 0xFF {
				i++
				continue
			}
			marker := data[i+1]
			if marker == 0xD8 || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) {
				i += 2
				continue
			}
			segLen := int(data[i+2])<<8 | int(data[i+3])
			isSOF := marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC
			if isSOF && i+9 <= len(data) {
				height = int(data[i+5])<<8 | int(data[i+6])
				width = int(data[i+7])<<8 | int(data[i+8])
				return
			}
			i += 2 + segLen
		}
	}
	return
}
