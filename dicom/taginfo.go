package dicom

import "github.com/practical-imaging/dicomindex/types"

// TagInfo is the human-readable description of a tag: its declared VR and a
// short name, used only for diagnostic dumping. Its VR comes from
// vrForImplicitTag (the implicit-VR fallback dictionary); TagInfo does not
// feed that dictionary.
type TagInfo struct {
	Tag         types.Tag
	VR          string
	Description string
}

// tagNames gives a short human-readable name for the well-known tags this
// system recognises. A tag missing here still gets a VR from
// implicitVRDictionary; only its Description is empty.
var tagNames = map[types.Tag]string{
	types.TagFileMetaInfoGroupLength:   "File Meta Information Group Length",
	types.TagTransferSyntaxUID:         "Transfer Syntax UID",
	types.TagSpecificCharacterSet:      "Specific Character Set",
	types.TagSOPClassUID:               "SOP Class UID",
	types.TagInstanceUID:               "SOP Instance UID",
	types.TagReferencedInstanceUID:     "Referenced SOP Instance UID",
	types.TagStudyDate:                 "Study Date",
	types.TagModality:                  "Modality",
	types.TagManufacturer:              "Manufacturer",
	types.TagInstitutionName:           "Institution Name",
	types.TagManufacturerModelName:     "Manufacturer's Model Name",
	types.TagPatientName:               "Patient's Name",
	types.TagPatientID:                 "Patient ID",
	types.TagPatientSex:                "Patient's Sex",
	types.TagPatientAge:                "Patient's Age",
	types.TagSeriesUID:                 "Series Instance UID",
	types.TagSliceNumber:               "Instance Number",
	types.TagImagePositionPatient:      "Image Position (Patient)",
	types.TagImageOrientationPatient:   "Image Orientation (Patient)",
	types.TagSliceLocation:             "Slice Location",
	types.TagPhotometricInterpretation: "Photometric Interpretation",
	types.TagRows:                      "Rows",
	types.TagColumns:                   "Columns",
	types.TagPixelSpacing:              "Pixel Spacing",
	types.TagBitsAllocated:             "Bits Allocated",
	types.TagPixelRepresentation:       "Pixel Representation",
	types.TagRescaleOffset:             "Rescale Intercept",
	types.TagRescaleSlope:              "Rescale Slope",
	types.TagSliceThickness:            "Slice Thickness",
	types.TagPixelData:                 "Pixel Data",
	types.TagContourImageSequence:      "Contour Image Sequence",
	types.TagContourSequence:           "Contour Sequence",
	types.TagContourGeometricType:      "Contour Geometric Type",
	types.TagNumberOfContourPoints:     "Number of Contour Points",
	types.TagContourData:               "Contour Data",
}

// DescribeTag returns diagnostic information about tag: the VR Implicit VR
// decoding would resolve it to, and a short name when this system
// recognises it.
func DescribeTag(tag types.Tag) TagInfo {
	return TagInfo{Tag: tag, VR: vrForImplicitTag(tag), Description: tagNames[tag]}
}
