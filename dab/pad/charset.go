// Package pad reassembles X-PAD data groups into Dynamic Label and MOT
// objects.
package pad

import "strings"

// ebuLatinToUnicode is the fixed 256-entry EBU Latin (ETSI TS 101 756
// §5.2) to Unicode code point table: a literal lookup table, not an
// external i18n library. Grounded on
// original_source/shared/src/edi/pad/dl.rs::EBU_LATIN_TO_UNICODE.
var ebuLatinToUnicode = [256]rune{
	0x0000, 0x0118, 0x012E, 0x0172, 0x0102, 0x0116, 0x010E, 0x0218, 0x021A, 0x010A, 0x000A, 0x000B,
	0x0120, 0x0139, 0x017B, 0x0143, 0x0105, 0x0119, 0x012F, 0x0173, 0x0103, 0x0117, 0x010F, 0x0219,
	0x021B, 0x010B, 0x0147, 0x011A, 0x0121, 0x013A, 0x017C, 0x001F, 0x0020, 0x0021, 0x0022, 0x0023,
	0x0142, 0x0025, 0x0026, 0x0027, 0x0028, 0x0029, 0x002A, 0x002B, 0x002C, 0x002D, 0x002E, 0x002F,
	0x0030, 0x0031, 0x0032, 0x0033, 0x0034, 0x0035, 0x0036, 0x0037, 0x0038, 0x0039, 0x003A, 0x003B,
	0x003C, 0x003D, 0x003E, 0x003F, 0x0040, 0x0041, 0x0042, 0x0043, 0x0044, 0x0045, 0x0046, 0x0047,
	0x0048, 0x0049, 0x004A, 0x004B, 0x004C, 0x004D, 0x004E, 0x004F, 0x0050, 0x0051, 0x0052, 0x0053,
	0x0054, 0x0055, 0x0056, 0x0057, 0x0058, 0x0059, 0x005A, 0x005B, 0x016E, 0x005D, 0x0141, 0x005F,
	0x0104, 0x0061, 0x0062, 0x0063, 0x0064, 0x0065, 0x0066, 0x0067, 0x0068, 0x0069, 0x006A, 0x006B,
	0x006C, 0x006D, 0x006E, 0x006F, 0x0070, 0x0071, 0x0072, 0x0073, 0x0074, 0x0075, 0x0076, 0x0077,
	0x0078, 0x0079, 0x007A, 0x00AB, 0x016F, 0x00BB, 0x013D, 0x0126, 0x00E1, 0x00E0, 0x00E9, 0x00E8,
	0x00ED, 0x00EC, 0x00F3, 0x00F2, 0x00FA, 0x00F9, 0x00D1, 0x00C7, 0x015E, 0x00DF, 0x00A1, 0x0178,
	0x00E2, 0x00E4, 0x00EA, 0x00EB, 0x00EE, 0x00EF, 0x00F4, 0x00F6, 0x00FB, 0x00FC, 0x00F1, 0x00E7,
	0x015F, 0x011F, 0x0131, 0x00FF, 0x0136, 0x0145, 0x00A9, 0x0122, 0x011E, 0x011B, 0x0148, 0x0151,
	0x0150, 0x20AC, 0x00A3, 0x0024, 0x0100, 0x0112, 0x012A, 0x016A, 0x0137, 0x0146, 0x013B, 0x0123,
	0x013C, 0x0130, 0x0144, 0x0171, 0x0170, 0x00BF, 0x013E, 0x00B0, 0x0101, 0x0113, 0x012B, 0x016B,
	0x00C1, 0x00C0, 0x00C9, 0x00C8, 0x00CD, 0x00CC, 0x00D3, 0x00D2, 0x00DA, 0x00D9, 0x0158, 0x010C,
	0x0160, 0x017D, 0x00D0, 0x013F, 0x00C2, 0x00C4, 0x00CA, 0x00CB, 0x00CE, 0x00CF, 0x00D4, 0x00D6,
	0x00DB, 0x00DC, 0x0159, 0x010D, 0x0161, 0x017E, 0x0111, 0x0140, 0x00C3, 0x00C5, 0x00C6, 0x0152,
	0x0177, 0x00DD, 0x00D5, 0x00D8, 0x00DE, 0x014A, 0x0154, 0x0106, 0x015A, 0x0179, 0x0164, 0x00F0,
	0x00E3, 0x00E5, 0x00E6, 0x0153, 0x0175, 0x00FD, 0x00F5, 0x00F8, 0x00FE, 0x014B, 0x0155, 0x0107,
	0x015B, 0x017A, 0x0165, 0x0127,
}

// ShortLabelMask derives an 8-character short label from a 16-character
// label using the 16-bit selection mask carried alongside FIG 1/0, 1/1,
// 1/4 and 1/5 labels: bit `1<<(15-i)` selects character i. Grounded on
// the properly-implemented half of
// original_source/shared/src/dab/fic.rs::Fig1_1::short_label_str,
// applied uniformly to every FIG 1 extension (Fig1_0 and Fig1_4 only
// stub this in original_source — see DESIGN.md).
func ShortLabelMask(label string, mask uint16) string {
	runes := []rune(label)
	var b strings.Builder
	for i, r := range runes {
		if i > 15 {
			break
		}
		if mask&(1<<(15-uint(i))) != 0 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// DecodeChars decodes raw bytes using the 4-bit FIG/PAD charset
// selector: 0 = EBU Latin, 15 = UTF-8. Any other selector yields the
// replacement rune '?' for every byte and reports unknown=true so the
// caller can attribute the occurrence to its own per-instance counter,
// diverging from original_source's `"[unsupported charset]"` placeholder
// string.
func DecodeChars(data []byte, charset uint8) (text string, unknown bool) {
	switch charset {
	case 0x0:
		var b strings.Builder
		for _, c := range data {
			b.WriteRune(ebuLatinToUnicode[c])
		}
		return b.String(), false
	case 0xF:
		return string(data), false
	default:
		return strings.Repeat("?", len(data)), true
	}
}
