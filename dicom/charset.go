package dicom

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// charsetDecoders maps a DICOM (0008,0005) Specific Character Set defined
// term to the x/text decoder that turns its bytes into UTF-8. Only the
// single-valued terms relevant to Patient/Study string VRs are wired; the
// ISO 2022 multi-byte escape-sequence terms used for mixed Kanji/Kana text
// are intentionally not decoded (rich VR typing and full conformance
// decoding are out of scope) and fall back to raw-byte passthrough.
var charsetDecoders = map[string]*encoding.Decoder{
	"ISO_IR 100": charmap.ISO8859_1.NewDecoder(),
	"ISO_IR 101": charmap.ISO8859_2.NewDecoder(),
	"ISO_IR 109": charmap.ISO8859_3.NewDecoder(),
	"ISO_IR 110": charmap.ISO8859_4.NewDecoder(),
	"ISO_IR 144": charmap.ISO8859_5.NewDecoder(),
	"ISO_IR 127": charmap.ISO8859_6.NewDecoder(),
	"ISO_IR 126": charmap.ISO8859_7.NewDecoder(),
	"ISO_IR 138": charmap.ISO8859_8.NewDecoder(),
	"ISO_IR 148": charmap.ISO8859_9.NewDecoder(),
	"ISO_IR 13":  japanese.ShiftJIS.NewDecoder(),
}

// DecodeStringWithCharacterSet decodes a raw string-VR value buffer using
// the named Specific Character Set defined term. An empty or unrecognised
// term falls back to the ISO-IR-6 (plain ASCII) default, which is simply
// the trimmed raw bytes.
func DecodeStringWithCharacterSet(b []byte, specificCharacterSet string) string {
	term := strings.TrimSpace(specificCharacterSet)
	dec, ok := charsetDecoders[term]
	if !ok {
		return trimDICOMString(string(b))
	}
	decoded, err := dec.Bytes(b)
	if err != nil {
		return trimDICOMString(string(b))
	}
	return trimDICOMString(string(decoded))
}
