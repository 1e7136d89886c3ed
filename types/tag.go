package types

import "fmt"

// VR (Value Representation) constants for DICOM data elements.
const (
	VR_AE = "AE" // Application Entity
	VR_AS = "AS" // Age String
	VR_AT = "AT" // Attribute Tag
	VR_CS = "CS" // Code String
	VR_DA = "DA" // Date
	VR_DS = "DS" // Decimal String
	VR_DT = "DT" // Date Time
	VR_FL = "FL" // Floating Point Single
	VR_FD = "FD" // Floating Point Double
	VR_IS = "IS" // Integer String
	VR_LO = "LO" // Long String
	VR_LT = "LT" // Long Text
	VR_OB = "OB" // Other Byte
	VR_OD = "OD" // Other Double
	VR_OF = "OF" // Other Float
	VR_OL = "OL" // Other Long
	VR_OV = "OV" // Other Very Long
	VR_OW = "OW" // Other Word
	VR_PN = "PN" // Person Name
	VR_SH = "SH" // Short String
	VR_SL = "SL" // Signed Long
	VR_SQ = "SQ" // Sequence of Items
	VR_SS = "SS" // Signed Short
	VR_ST = "ST" // Short Text
	VR_SV = "SV" // Signed Very Long
	VR_TM = "TM" // Time
	VR_UC = "UC" // Unlimited Characters
	VR_UI = "UI" // Unique Identifier
	VR_UL = "UL" // Unsigned Long
	VR_UN = "UN" // Unknown
	VR_UR = "UR" // Universal Resource
	VR_US = "US" // Unsigned Short
	VR_UT = "UT" // Unlimited Text
	VR_UV = "UV" // Unsigned Very Long
)

// longFormVRs use a 4-byte length preceded by 2 reserved bytes in Explicit VR
// encoding; every other VR uses a 2-byte length with no reserved bytes.
var longFormVRs = map[string]bool{
	VR_OB: true,
	VR_OW: true,
	VR_OF: true,
	VR_SQ: true,
	VR_UT: true,
	VR_UN: true,
	VR_OD: true,
	VR_OL: true,
	VR_OV: true,
	VR_UC: true,
	VR_UR: true,
	VR_SV: true,
	VR_UV: true,
}

// IsLongFormVR reports whether vr uses Explicit VR's 4-byte-length encoding.
func IsLongFormVR(vr string) bool {
	return longFormVRs[vr]
}

// Tag identifies a DICOM data element by (group, element).
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag as a string in (GGGG,EEEE) format.
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// Well-known tags referenced directly by the indexer and parser.
var (
	TagFileMetaInfoGroupLength = Tag{0x0002, 0x0000}
	TagTransferSyntaxUID       = Tag{0x0002, 0x0010}
	TagSpecificCharacterSet    = Tag{0x0008, 0x0005}
	TagSOPClassUID             = Tag{0x0008, 0x0016}
	TagInstanceUID             = Tag{0x0008, 0x0018}
	TagReferencedInstanceUID   = Tag{0x0008, 0x1155}
	TagStudyDate               = Tag{0x0008, 0x0020}
	TagModality                = Tag{0x0008, 0x0060}
	TagManufacturer            = Tag{0x0008, 0x0070}
	TagInstitutionName         = Tag{0x0008, 0x0080}
	TagManufacturerModelName   = Tag{0x0008, 0x1090}
	TagPatientName             = Tag{0x0010, 0x0010}
	TagPatientID               = Tag{0x0010, 0x0020}
	TagPatientSex              = Tag{0x0010, 0x0040}
	TagPatientAge              = Tag{0x0010, 0x1010}
	TagSeriesUID                = Tag{0x0020, 0x000e}
	TagSliceNumber               = Tag{0x0020, 0x0013}
	TagImagePositionPatient      = Tag{0x0020, 0x0032}
	TagImageOrientationPatient   = Tag{0x0020, 0x0037}
	TagSliceLocation              = Tag{0x0020, 0x1041}
	TagPhotometricInterpretation = Tag{0x0028, 0x0004}
	TagRows                      = Tag{0x0028, 0x0010}
	TagColumns                   = Tag{0x0028, 0x0011}
	TagPixelSpacing              = Tag{0x0028, 0x0030}
	TagBitsAllocated             = Tag{0x0028, 0x0100}
	TagPixelRepresentation       = Tag{0x0028, 0x0103}
	TagRescaleOffset             = Tag{0x0028, 0x1052}
	TagRescaleSlope              = Tag{0x0028, 0x1053}
	TagSliceThickness            = Tag{0x0018, 0x0050}
	TagPixelData                 = Tag{0x7FE0, 0x0010}
	TagContourImageSequence      = Tag{0x3006, 0x0016}
	TagContourSequence           = Tag{0x3006, 0x0040}
	TagContourGeometricType      = Tag{0x3006, 0x0042}
	TagNumberOfContourPoints     = Tag{0x3006, 0x0046}
	TagContourData               = Tag{0x3006, 0x0050}

	// TagByteOrderSentinel is the (0800,0000) group-length element that, in
	// Explicit VR Big Endian files, arrives still encoded little-endian and
	// is used as a one-shot trigger to flip the byte source's swap flag.
	TagByteOrderSentinel = Tag{0x0800, 0x0000}

	// TagSequenceItem and TagSequenceDelimitation bracket an item inside an
	// undefined-length sequence or encapsulated pixel data fragment list.
	TagSequenceItem          = Tag{0xFFFE, 0xE000}
	TagSequenceDelimitation  = Tag{0xFFFE, 0xE0DD}
	TagItemDelimitation      = Tag{0xFFFE, 0xE00D}
)
