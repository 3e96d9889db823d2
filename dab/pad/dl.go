package pad

// DLPlusTag is one ETSI TS 102 980 DL Plus tag: a content type plus a
// (start, length) slice into the decoded label string.
type DLPlusTag struct {
	Kind  DLPlusContentType
	Start uint8
	Len   uint8
}

// DLPlusContentType is the ETSI TS 102 980 Annex A DL Plus content type
// code. The full table (beyond the ITEM.TITLE/ARTIST/ALBUM subset
// original_source implements, leaving the rest a "TODO: complete
// options..." comment) is a supplemented feature per SPEC_FULL.md.
type DLPlusContentType uint8

const (
	DLPlusDummy                   DLPlusContentType = 0
	DLPlusItemTitle               DLPlusContentType = 1
	DLPlusItemAlbum               DLPlusContentType = 2
	DLPlusItemTrackNumber         DLPlusContentType = 3
	DLPlusItemArtist              DLPlusContentType = 4
	DLPlusItemComposition         DLPlusContentType = 5
	DLPlusItemMovement            DLPlusContentType = 6
	DLPlusItemConductor           DLPlusContentType = 7
	DLPlusItemComposer            DLPlusContentType = 8
	DLPlusItemBand                DLPlusContentType = 9
	DLPlusItemComment             DLPlusContentType = 10
	DLPlusItemGenre               DLPlusContentType = 11
	DLPlusInfoNews                DLPlusContentType = 12
	DLPlusInfoNewsLocal           DLPlusContentType = 13
	DLPlusInfoStockMarket         DLPlusContentType = 14
	DLPlusInfoSport               DLPlusContentType = 15
	DLPlusInfoLottery             DLPlusContentType = 16
	DLPlusInfoHoroscope           DLPlusContentType = 17
	DLPlusInfoDailyDiary          DLPlusContentType = 18
	DLPlusInfoHealth              DLPlusContentType = 19
	DLPlusInfoEvent               DLPlusContentType = 20
	DLPlusInfoScene               DLPlusContentType = 21
	DLPlusInfoCinema              DLPlusContentType = 22
	DLPlusInfoTV                  DLPlusContentType = 23
	DLPlusInfoDateTime            DLPlusContentType = 24
	DLPlusInfoWeather             DLPlusContentType = 25
	DLPlusInfoTraffic             DLPlusContentType = 26
	DLPlusInfoAlarm               DLPlusContentType = 27
	DLPlusInfoAdvertisement       DLPlusContentType = 28
	DLPlusInfoURL                 DLPlusContentType = 29
	DLPlusInfoOther               DLPlusContentType = 30
	DLPlusStationNameShort        DLPlusContentType = 31
	DLPlusStationNameLong         DLPlusContentType = 32
	DLPlusProgrammeNow            DLPlusContentType = 33
	DLPlusProgrammeNext           DLPlusContentType = 34
	DLPlusProgrammePart           DLPlusContentType = 35
	DLPlusProgrammeHost           DLPlusContentType = 36
	DLPlusProgrammeEditorialStaff DLPlusContentType = 37
	DLPlusProgrammeFrequency      DLPlusContentType = 38
	DLPlusProgrammeHomepage       DLPlusContentType = 39
	DLPlusProgrammeSubchannel     DLPlusContentType = 40
	DLPlusPhoneHotline            DLPlusContentType = 41
	DLPlusPhoneStudio             DLPlusContentType = 42
	DLPlusPhoneOther              DLPlusContentType = 43
	DLPlusSMSStudio               DLPlusContentType = 44
	DLPlusSMSOther                DLPlusContentType = 45
	DLPlusEmailHotline            DLPlusContentType = 46
	DLPlusEmailStudio             DLPlusContentType = 47
	DLPlusEmailOther              DLPlusContentType = 48
	DLPlusMMSOther                DLPlusContentType = 49
	DLPlusChat                    DLPlusContentType = 50
	DLPlusChatCenter              DLPlusContentType = 51
	DLPlusVoteQuestion            DLPlusContentType = 52
	DLPlusVoteCentre              DLPlusContentType = 53
	DLPlusPrivate1                DLPlusContentType = 56
	DLPlusPrivate2                DLPlusContentType = 57
	DLPlusPrivate3                DLPlusContentType = 58
	DLPlusPrivate4                DLPlusContentType = 59
	DLPlusDescriptorPlace         DLPlusContentType = 60
	DLPlusDescriptorAppointment   DLPlusContentType = 61
	DLPlusDescriptorIdentifier    DLPlusContentType = 62
	DLPlusDescriptorPurchase      DLPlusContentType = 63
)

var dlPlusContentTypeNames = map[DLPlusContentType]string{
	DLPlusDummy:                   "DUMMY",
	DLPlusItemTitle:               "ITEM.TITLE",
	DLPlusItemAlbum:               "ITEM.ALBUM",
	DLPlusItemTrackNumber:         "ITEM.TRACKNUMBER",
	DLPlusItemArtist:              "ITEM.ARTIST",
	DLPlusItemComposition:         "ITEM.COMPOSITION",
	DLPlusItemMovement:            "ITEM.MOVEMENT",
	DLPlusItemConductor:           "ITEM.CONDUCTOR",
	DLPlusItemComposer:            "ITEM.COMPOSER",
	DLPlusItemBand:                "ITEM.BAND",
	DLPlusItemComment:             "ITEM.COMMENT",
	DLPlusItemGenre:               "ITEM.GENRE",
	DLPlusInfoNews:                "INFO.NEWS",
	DLPlusInfoNewsLocal:           "INFO.NEWS.LOCAL",
	DLPlusInfoStockMarket:         "INFO.STOCKMARKET",
	DLPlusInfoSport:               "INFO.SPORT",
	DLPlusInfoLottery:             "INFO.LOTTERY",
	DLPlusInfoHoroscope:           "INFO.HOROSCOPE",
	DLPlusInfoDailyDiary:          "INFO.DAILY_DIARY",
	DLPlusInfoHealth:              "INFO.HEALTH",
	DLPlusInfoEvent:               "INFO.EVENT",
	DLPlusInfoScene:               "INFO.SCENE",
	DLPlusInfoCinema:              "INFO.CINEMA",
	DLPlusInfoTV:                  "INFO.TV",
	DLPlusInfoDateTime:            "INFO.DATE_TIME",
	DLPlusInfoWeather:             "INFO.WEATHER",
	DLPlusInfoTraffic:             "INFO.TRAFFIC",
	DLPlusInfoAlarm:               "INFO.ALARM",
	DLPlusInfoAdvertisement:       "INFO.ADVERTISEMENT",
	DLPlusInfoURL:                 "INFO.URL",
	DLPlusInfoOther:               "INFO.OTHER",
	DLPlusStationNameShort:        "STATIONNAME.SHORT",
	DLPlusStationNameLong:         "STATIONNAME.LONG",
	DLPlusProgrammeNow:            "PROGRAMME.NOW",
	DLPlusProgrammeNext:           "PROGRAMME.NEXT",
	DLPlusProgrammePart:           "PROGRAMME.PART",
	DLPlusProgrammeHost:           "PROGRAMME.HOST",
	DLPlusProgrammeEditorialStaff: "PROGRAMME.EDITORIAL_STAFF",
	DLPlusProgrammeFrequency:      "PROGRAMME.FREQUENCY",
	DLPlusProgrammeHomepage:       "PROGRAMME.HOMEPAGE",
	DLPlusProgrammeSubchannel:     "PROGRAMME.SUBCHANNEL",
	DLPlusPhoneHotline:            "PHONE.HOTLINE",
	DLPlusPhoneStudio:             "PHONE.STUDIO",
	DLPlusPhoneOther:              "PHONE.OTHER",
	DLPlusSMSStudio:               "SMS.STUDIO",
	DLPlusSMSOther:                "SMS.OTHER",
	DLPlusEmailHotline:            "EMAIL.HOTLINE",
	DLPlusEmailStudio:             "EMAIL.STUDIO",
	DLPlusEmailOther:              "EMAIL.OTHER",
	DLPlusMMSOther:                "MMS.OTHER",
	DLPlusChat:                    "CHAT",
	DLPlusChatCenter:              "CHAT.CENTER",
	DLPlusVoteQuestion:            "VOTE.QUESTION",
	DLPlusVoteCentre:              "VOTE.CENTRE",
	DLPlusPrivate1:                "PRIVATE_1",
	DLPlusPrivate2:                "PRIVATE_2",
	DLPlusPrivate3:                "PRIVATE_3",
	DLPlusPrivate4:                "PRIVATE_4",
	DLPlusDescriptorPlace:         "DESCRIPTOR.PLACE",
	DLPlusDescriptorAppointment:   "DESCRIPTOR.APPOINTMENT",
	DLPlusDescriptorIdentifier:    "DESCRIPTOR.IDENTIFIER",
	DLPlusDescriptorPurchase:      "DESCRIPTOR.PURCHASE",
}

// String returns the dotted Annex A name, or "UNKNOWN" for a code
// outside the table.
func (k DLPlusContentType) String() string {
	if name, ok := dlPlusContentTypeNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// DLObject is a completed (or in-progress) Dynamic Label, decoded and
// with any DL Plus tags resolved against it.
type DLObject struct {
	SCID    uint8
	Toggle  uint8
	Charset uint8
	Label   string
	Tags    []DLPlusTagValue

	// ItemToggle/ItemRunning are the DL Plus command's IT_TOGGLE/
	// IT_RUNNING bits (a supplemented feature per SPEC_FULL.md):
	// IT_TOGGLE flips whenever the "currently playing item" changes,
	// and IT_RUNNING reports whether an item is running at all, so a
	// host slideshow/now-playing UI can react even between DL Plus tag
	// updates. Both are false when the DL has no DL Plus command at all.
	ItemToggle  bool
	ItemRunning bool

	pendingTags []dlPlusRawTag
}

// DLPlusTagValue is a DL Plus tag with its slice of Label already
// resolved to a concrete string.
type DLPlusTagValue struct {
	Kind  DLPlusContentType
	Value string
}

// dlAssembler reassembles X-PAD DL segments (CI kinds 2/3) into
// complete data groups, then decodes the DL command stream out of
// them: character segments (possibly out of arrival order, glued by
// their announced length), the Clear-display command, and DL Plus tag
// commands. Grounded on
// original_source/shared/src/edi/pad/mod.rs::DLDataGroup +
// original_source/shared/src/edi/pad/dl.rs::DLDecoder.
type dlAssembler struct {
	scid uint8
	buf  []byte

	current    *DLObject
	hasToggle  bool
	lastToggle uint8

	// segs buffers label segments keyed by seg_num so that out-of-order
	// delivery reassembles correctly: segment i always lands at segs[i]
	// regardless of the order Feed calls arrive in.
	segs     map[uint8][]byte
	haveLast bool
	lastSeg  uint8

	// labelDone marks that current's label has been fully reassembled
	// (all segments 0..lastSeg seen). current is kept alive rather than
	// emitted immediately so a DL Plus command arriving after the last
	// text segment - the normal ordering on a real multiplex - still has
	// somewhere to land; actual emission is deferred to flush.
	labelDone bool

	unknownCharsetCount uint64
}

func newDLAssembler(scid uint8) *dlAssembler {
	return &dlAssembler{scid: scid}
}

// feedSegment accumulates one X-PAD DL payload slice and returns the
// complete data-group bytes once the announced field length is
// satisfied, nil otherwise.
func (a *dlAssembler) feedSegment(payload []byte) []byte {
	a.buf = append(a.buf, payload...)
	if len(a.buf) == 0 {
		return nil
	}
	fieldLen := int(a.buf[0]&0x0F) + 1
	sizeNeeded := 2 + fieldLen + 2
	if len(a.buf) >= sizeNeeded {
		complete := a.buf
		a.buf = nil
		return complete
	}
	return nil
}

// decodeDataGroup parses one DL data-group payload: command detection
// (Clear display, DL Plus), and label segment reassembly keyed by
// segment number. Segments are buffered by seg_num (derived from the
// continuation nibble the same way original_source computes it, but
// unlike that source's discarded `_seg_no`, this buffer is what makes
// reassembly reorder-tolerant) so arrival order does not matter as long
// as (first, last, seg_num) are preserved. A toggle flip mid-assembly
// discards the partial object and starts fresh.
//
// Completing the label (seeing every segment up to the last) does not
// emit it straight away: a DL Plus command for this same object
// ordinarily follows the last text segment on the air, so current is
// kept alive and emission is deferred to flush, called the moment the
// next first segment arrives - mirroring
// original_source/shared/src/edi/pad/dl.rs's DLDecoder, which calls
// flush() at the top of every is_first cycle rather than at is_last.
func (a *dlAssembler) decodeDataGroup(data []byte, onDL func(DLObject)) {
	if len(data) < 2 {
		return
	}
	flags := data[0]
	numChars := int(flags&0x0F) + 1
	isFirst := flags&0x40 != 0
	isLast := flags&0x20 != 0
	toggle := (flags & 0x80) >> 7

	isCommand := flags&0x10 != 0
	cmd := flags & 0x0F
	if isCommand {
		switch cmd {
		case 0x1: // Clear display
			a.current = nil
			a.segs = nil
			a.labelDone = false
			return
		case 0x2: // DL Plus
			if len(data) < 3 {
				return
			}
			a.parseDLPlus(data[2:])
			return
		default:
			return
		}
	}

	nibble := (data[1] >> 4) & 0x0F
	var segNo uint8
	if isFirst {
		a.flush(onDL)

		segNo = 0
		a.current = &DLObject{SCID: a.scid, Toggle: toggle, Charset: nibble}
		a.segs = make(map[uint8][]byte)
		a.haveLast = false
		a.labelDone = false
	} else {
		segNo = nibble & 0x07
	}
	if a.current == nil {
		return
	}
	if a.current.Toggle != toggle {
		// Toggle changed mid-assembly without a fresh first segment:
		// discard the stale partial object.
		a.current = nil
		a.segs = nil
		a.labelDone = false
		return
	}

	start := 2
	end := start + numChars
	if len(data) < end {
		return
	}
	a.segs[segNo] = append([]byte(nil), data[start:end]...)

	if isLast {
		a.haveLast = true
		a.lastSeg = segNo
	}
	if !a.haveLast || a.labelDone {
		return
	}
	for i := uint8(0); i <= a.lastSeg; i++ {
		if _, ok := a.segs[i]; !ok {
			return // still missing a segment between 0 and the last
		}
	}

	for i := uint8(0); i <= a.lastSeg; i++ {
		text, unknown := DecodeChars(a.segs[i], a.current.Charset)
		a.current.Label += text
		if unknown {
			a.unknownCharsetCount++
		}
	}
	a.labelDone = true
	a.segs = nil
}

// flush emits current to onDL if its label finished assembling and its
// toggle differs from the last one emitted, then clears current so a
// stale object never lingers into the next data group. Called whenever
// a new first segment arrives (see decodeDataGroup) and is a no-op if
// current never completed - e.g. the label never reassembled before
// the toggle flipped, or the PAD stream dropped out mid-object.
func (a *dlAssembler) flush(onDL func(DLObject)) {
	if a.current == nil || !a.labelDone {
		a.current = nil
		a.labelDone = false
		return
	}

	obj := *a.current
	if !a.hasToggle || a.lastToggle != obj.Toggle {
		a.resolveTags(&obj)
		a.hasToggle = true
		a.lastToggle = obj.Toggle
		if onDL != nil {
			onDL(obj)
		}
	}
	a.current = nil
	a.labelDone = false
}

// dlPlusRawTag holds a DL Plus tag's raw (kind, start, len) until the
// label it slices is complete.
type dlPlusRawTag struct {
	kind  uint8
	start uint8
	len   uint8
}

func (a *dlAssembler) parseDLPlus(data []byte) {
	if len(data) == 0 {
		return
	}
	cid := (data[0] >> 4) & 0x0F
	if cid != 0 {
		return // only the basic "tags" command (CID 0) is supported
	}
	if a.current == nil {
		return
	}
	a.current.ItemToggle = (data[0]>>3)&0x01 != 0
	a.current.ItemRunning = (data[0]>>2)&0x01 != 0

	numTags := int(data[0]&0x03) + 1
	if len(data) < 1+numTags*3 {
		return
	}
	for i := 0; i < numTags; i++ {
		base := 1 + i*3
		a.current.pendingTags = append(a.current.pendingTags, dlPlusRawTag{
			kind:  data[base] & 0x7F,
			start: data[base+1] & 0x7F,
			len:   (data[base+2] & 0x7F) + 1,
		})
	}
}

func (a *dlAssembler) resolveTags(obj *DLObject) {
	label := []rune(obj.Label)
	for _, raw := range obj.pendingTags {
		start := int(raw.start)
		end := start + int(raw.len)
		if end > len(label) {
			end = len(label)
		}
		if start > len(label) {
			start = len(label)
		}
		obj.Tags = append(obj.Tags, DLPlusTagValue{
			Kind:  DLPlusContentType(raw.kind),
			Value: string(label[start:end]),
		})
	}
}
