package fic

// languageNames maps the ETSI TS 101 756 table 9 extended language code
// (FIG 0/5) to a human-readable name. Grounded on
// original_source/shared/src/edi/tables.rs::Language, with one literal
// override: code 0x09 is mapped to "German" rather than the table's
// usual "English" assignment.
var languageNames = map[uint8]string{
	0x01: "Albanian", 0x02: "Breton", 0x03: "Catalan", 0x04: "Croatian",
	0x05: "Welsh", 0x06: "Czech", 0x07: "Danish", 0x08: "German",
	0x09: "German", 0x0A: "Spanish", 0x0B: "Esperanto", 0x0C: "Estonian",
	0x0D: "Basque", 0x0E: "Faroese", 0x0F: "French", 0x10: "Frisian",
	0x11: "Irish", 0x13: "Galician", 0x14: "Icelandic", 0x15: "Italian",
	0x17: "Latin", 0x18: "Latvian", 0x19: "Luxembourgish", 0x1A: "Lithuanian",
	0x1B: "Hungarian", 0x1C: "Maltese", 0x1D: "Dutch", 0x1E: "Norwegian",
	0x1F: "Occitan", 0x20: "Polish", 0x21: "Portuguese", 0x22: "Romanian",
	0x23: "Romansh", 0x24: "Serbian", 0x25: "Slovak", 0x26: "Slovene",
	0x27: "Finnish", 0x28: "Swedish", 0x29: "Turkish", 0x45: "Zulu",
	0x46: "Vietnamese", 0x47: "Uzbek", 0x48: "Urdu", 0x49: "Ukrainian",
	0x4A: "Thai", 0x4B: "Telugu", 0x4C: "Tatar", 0x4D: "Tamil",
	0x4E: "Tajik", 0x4F: "Swahili", 0x51: "Somali", 0x52: "Sinhalese",
	0x53: "Shona", 0x56: "Russian", 0x57: "Quechua", 0x58: "Pushtu",
	0x59: "Punjabi", 0x5A: "Persian", 0x5C: "Oriya", 0x5D: "Nepali",
	0x5F: "Marathi", 0x60: "Moldavian", 0x61: "Malay", 0x63: "Macedonian",
	0x65: "Korean", 0x66: "Khmer", 0x67: "Kazakh", 0x69: "Japanese",
	0x6A: "Indonesian", 0x6B: "Hindi", 0x6C: "Hebrew", 0x70: "Greek",
	0x75: "Chinese", 0x77: "Bulgarian", 0x78: "Bengali", 0x7D: "Armenian",
	0x7E: "Arabic", 0x7F: "Amharic",
}

// LanguageName resolves a FIG 0/5 language code to its display name, or
// "" if the code is unassigned.
func LanguageName(code uint8) string {
	return languageNames[code]
}

// UserApplicationName maps the FIG 0/13 16-bit user application type to a
// display name. Grounded on
// original_source/shared/src/edi/tables.rs::UserApplication, with the
// MOT Slideshow entry renamed from "SlideShow" to "SLS" to match the
// abbreviation DAB+ receivers conventionally display.
func UserApplicationName(uaType uint16) string {
	switch uaType {
	case 0x000:
		return "Reserved"
	case 0x002:
		return "SLS"
	case 0x004:
		return "TPEG"
	case 0x007:
		return "SPI"
	case 0x009:
		return "DMB"
	case 0x00D:
		return "Filecasting"
	case 0x00E:
		return "FIS"
	case 0x044A:
		return "Journaline"
	default:
		return "Unknown"
	}
}

// eepASizeFactors and eepBSizeFactors are the divisor tables used to
// derive subchannel bitrate from size for long-form FIG 0/1 entries
// (option 0 = EEP-A, option 1 = EEP-B), indexed by protection level
// 0..3. Grounded on edisplitter.go's
// `SubchannelCodingRate` map, cross-checked against
// original_source/shared/src/dab/fic.rs's EEP_A_SIZE_FACTORS /
// EEP_B_SIZE_FACTORS.
var eepASizeFactors = [4]uint16{12, 8, 6, 4}
var eepBSizeFactors = [4]uint16{27, 21, 18, 15}

// EEPBitrate computes the subchannel bitrate (kbit/s) for a long-form
// FIG 0/1 entry given the protection option (0=EEP-A, 1=EEP-B), the
// protection level index (0..3), and the subchannel size in CUs.
func EEPBitrate(option uint8, level uint8, size uint16) uint16 {
	if level > 3 {
		return 0
	}
	if option == 0 {
		return size * 8 / eepASizeFactors[level]
	}
	return size * 32 / eepBSizeFactors[level]
}

// uepTable holds, per short-form table index (0..63), the
// (subchannel size in CUs, protection level 1..5, bitrate kbit/s) triple
// from ETSI TS 101 756 table 14. Grounded on edisplitter.go's
// `SubChannelSizeShortFormTable`.
type uepEntry struct {
	size            uint16
	protectionLevel uint8
	bitrate         uint16
}

var uepTable = [64]uepEntry{
	{16, 5, 32}, {21, 4, 32}, {24, 3, 32}, {29, 2, 32}, {35, 1, 32},
	{24, 5, 48}, {29, 4, 48}, {35, 3, 48}, {42, 2, 48}, {52, 1, 48},
	{29, 5, 56}, {35, 4, 56}, {42, 3, 56}, {52, 2, 56}, {32, 5, 64},
	{42, 4, 64}, {48, 3, 64}, {58, 2, 64}, {70, 1, 64}, {40, 5, 80},
	{52, 4, 80}, {58, 3, 80}, {70, 2, 80}, {84, 1, 80}, {48, 5, 96},
	{58, 4, 96}, {70, 3, 96}, {84, 2, 96}, {104, 1, 96}, {58, 5, 112},
	{70, 4, 112}, {84, 3, 112}, {104, 2, 112}, {64, 5, 128}, {84, 4, 128},
	{96, 3, 128}, {116, 2, 128}, {140, 1, 128}, {80, 5, 160}, {104, 4, 160},
	{116, 3, 160}, {140, 2, 160}, {168, 1, 160}, {96, 5, 192}, {116, 4, 192},
	{140, 3, 192}, {168, 2, 192}, {208, 1, 192}, {116, 5, 224}, {140, 4, 224},
	{168, 3, 224}, {208, 2, 224}, {232, 1, 224}, {128, 5, 256}, {168, 4, 256},
	{192, 3, 256}, {232, 2, 256}, {280, 1, 256}, {160, 5, 320}, {208, 4, 320},
	{240, 3, 320}, {280, 2, 320}, {192, 5, 384}, {416, 1, 384},
}

// UEPEntry looks up a short-form FIG 0/1 table index.
func UEPEntry(index uint8) (size uint16, protectionLevel uint8, bitrate uint16, ok bool) {
	if int(index) >= len(uepTable) {
		return 0, 0, 0, false
	}
	e := uepTable[index]
	return e.size, e.protectionLevel, e.bitrate, true
}

// ProtectionLabel renders a human protection-level descriptor, e.g.
// "EEP 3-A".
func ProtectionLabel(option uint8, level uint8) string {
	form := "A"
	if option == 1 {
		form = "B"
	}
	return "EEP " + string(rune('1'+level)) + "-" + form
}

// UEPLabel renders the short-form protection descriptor, e.g. "UEP 5".
func UEPLabel(protectionLevel uint8) string {
	return "UEP " + string(rune('0'+protectionLevel))
}
