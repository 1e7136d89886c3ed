package dicom

import "github.com/practical-imaging/dicomindex/types"

// Element is one fully-read data element: its tag, the VR that governs how
// its value bytes should be decoded (explicit from the stream, or resolved
// from implicitVRDictionary when the transfer syntax is Implicit VR), and
// the value bytes, with fixed-width binary VRs already normalised to
// little-endian (see normalizeByteOrder) and every other VR left as read.
type Element struct {
	Tag   types.Tag
	VR    string
	Value []byte
}

// implicitVRDictionary maps the well-known tags this system cares about to
// the VR Implicit VR encoding omits from the stream. A tag not present here
// decodes as VR_UN, which is always safe because Implicit VR's length field
// is 4 bytes regardless of VR.
var implicitVRDictionary = map[types.Tag]string{
	types.TagFileMetaInfoGroupLength: types.VR_UL,
	types.TagTransferSyntaxUID:       types.VR_UI,
	types.TagSpecificCharacterSet:    types.VR_CS,
	types.TagSOPClassUID:             types.VR_UI,
	types.TagInstanceUID:             types.VR_UI,
	types.TagReferencedInstanceUID:   types.VR_UI,
	types.TagStudyDate:               types.VR_DA,
	types.TagModality:                types.VR_CS,
	types.TagManufacturer:            types.VR_LO,
	types.TagInstitutionName:         types.VR_LO,
	types.TagManufacturerModelName:   types.VR_LO,
	types.TagPatientName:             types.VR_PN,
	types.TagPatientID:               types.VR_LO,
	types.TagPatientSex:              types.VR_CS,
	types.TagPatientAge:              types.VR_AS,
	types.TagSeriesUID:               types.VR_UI,
	types.TagSliceNumber:             types.VR_IS,
	types.TagImagePositionPatient:    types.VR_DS,
	types.TagImageOrientationPatient: types.VR_DS,
	types.TagSliceLocation:           types.VR_DS,
	types.TagPhotometricInterpretation: types.VR_CS,
	types.TagRows:                    types.VR_US,
	types.TagColumns:                 types.VR_US,
	types.TagPixelSpacing:            types.VR_DS,
	types.TagBitsAllocated:           types.VR_US,
	types.TagPixelRepresentation:     types.VR_US,
	types.TagRescaleOffset:           types.VR_DS,
	types.TagRescaleSlope:            types.VR_DS,
	types.TagSliceThickness:          types.VR_DS,
	types.TagPixelData:               types.VR_OW,
	types.TagContourImageSequence:    types.VR_SQ,
	types.TagContourSequence:         types.VR_SQ,
	types.TagContourGeometricType:    types.VR_CS,
	types.TagNumberOfContourPoints:   types.VR_IS,
	types.TagContourData:             types.VR_DS,
}

// vrForImplicitTag resolves the VR for a tag read under Implicit VR
// encoding, falling back to Unknown for tags outside the dictionary above.
func vrForImplicitTag(tag types.Tag) string {
	if vr, ok := implicitVRDictionary[tag]; ok {
		return vr
	}
	return types.VR_UN
}
