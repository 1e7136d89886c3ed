package dicom

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/practical-imaging/dicomindex/dicomerr"
	"github.com/practical-imaging/dicomindex/types"
)

// DecodeUint16 turns a 2-byte buffer into an unsigned integer in the
// declared byte order. It is a free function, not a ByteSource method,
// so element values already held in memory (e.g. inside a sequence item)
// can be decoded the same way as freshly streamed bytes.
func DecodeUint16(b []byte, bigEndian bool) uint16 {
	if bigEndian {
		return binary.BigEndian.Uint16(b)
	}
	return binary.LittleEndian.Uint16(b)
}

// DecodeUint32 turns a 4-byte buffer into an unsigned integer in the
// declared byte order.
func DecodeUint32(b []byte, bigEndian bool) uint32 {
	if bigEndian {
		return binary.BigEndian.Uint32(b)
	}
	return binary.LittleEndian.Uint32(b)
}

// DecodeFloat32Binary turns a 4-byte buffer into an IEEE-754 float in the
// declared byte order.
func DecodeFloat32Binary(b []byte, bigEndian bool) float32 {
	return math.Float32frombits(DecodeUint32(b, bigEndian))
}

// trimDICOMString strips the null/space padding DICOM string VRs use to
// reach an even length, and surrounding whitespace.
func trimDICOMString(s string) string {
	return strings.Trim(s, " \x00")
}

// DecodeASCIIString trims a raw string-VR value buffer.
func DecodeASCIIString(b []byte) string {
	return trimDICOMString(string(b))
}

// DecodeASCIIStrings splits a backslash-delimited multi-valued string VR
// (e.g. a repeated LO or CS) into its component values.
func DecodeASCIIStrings(b []byte) []string {
	raw := trimDICOMString(string(b))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "\\")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// DecodeASCIIInt parses an Integer String (IS) VR value, e.g. Slice Number.
func DecodeASCIIInt(tag, b []byte) (int32, error) {
	raw := trimDICOMString(string(b))
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, dicomerr.NewValueError(string(tag), raw, "int32")
	}
	return int32(n), nil
}

// DecodeASCIIFloat parses a Decimal String (DS) VR value, e.g. Slice
// Location, Pixel Spacing, Rescale Slope/Offset.
func DecodeASCIIFloat(tag, b []byte) (float32, error) {
	raw := trimDICOMString(string(b))
	f, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, dicomerr.NewValueError(string(tag), raw, "float32")
	}
	return float32(f), nil
}

// DecodeASCIIFloatTuple parses n backslash-separated DS values, as used by
// Image Position Patient (n=3) and Image Orientation Patient (n=6).
func DecodeASCIIFloatTuple(tag, b []byte, n int) ([]float32, error) {
	raw := trimDICOMString(string(b))
	parts := strings.Split(raw, "\\")
	if len(parts) != n {
		return nil, dicomerr.NewValueError(string(tag), raw, "float32 tuple")
	}
	out := make([]float32, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, dicomerr.NewValueError(string(tag), raw, "float32 tuple")
		}
		out[i] = float32(f)
	}
	return out, nil
}

// binaryElementWidths gives the per-value byte width of the fixed-width
// binary VRs this system cares about (everything else is either a string VR
// or a VR, like OB/OW/pixel data, whose byte order is not swapped here
// because its internal layout is format- or codec-specific).
var binaryElementWidths = map[string]int{
	types.VR_US: 2,
	types.VR_SS: 2,
	types.VR_UL: 4,
	types.VR_SL: 4,
	types.VR_FL: 4,
	types.VR_AT: 4,
}

// normalizeByteOrder returns value with its binary elements swapped to
// little-endian when bigEndian is true. Called once per element, right
// after it is read, so every Registry callback can decode binary VRs
// without knowing the source file's byte order. String VRs (DS, IS, UI,
// ...) carry ASCII digits and are unaffected regardless of bigEndian.
func normalizeByteOrder(vr string, value []byte, bigEndian bool) []byte {
	width, ok := binaryElementWidths[vr]
	if !ok || !bigEndian || len(value) < width {
		return value
	}
	out := make([]byte, len(value))
	for off := 0; off+width <= len(value); off += width {
		for i := 0; i < width; i++ {
			out[off+i] = value[off+width-1-i]
		}
	}
	return out
}
