package types

import "testing"

func TestTagString(t *testing.T) {
	tag := Tag{Group: 0x0008, Element: 0x0018}
	if got, want := tag.String(), "(0008,0018)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTagStringPadsHexWidth(t *testing.T) {
	tag := Tag{Group: 0x3006, Element: 0x16}
	if got, want := tag.String(), "(3006,0016)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIsLongFormVR(t *testing.T) {
	tests := []struct {
		vr   string
		long bool
	}{
		{VR_OB, true},
		{VR_OW, true},
		{VR_SQ, true},
		{VR_UN, true},
		{VR_US, false},
		{VR_UI, false},
		{VR_DS, false},
	}
	for _, tt := range tests {
		if got := IsLongFormVR(tt.vr); got != tt.long {
			t.Errorf("IsLongFormVR(%q) = %v, want %v", tt.vr, got, tt.long)
		}
	}
}

func TestWellKnownTagsAreDistinct(t *testing.T) {
	tags := []Tag{
		TagTransferSyntaxUID, TagSpecificCharacterSet, TagInstanceUID,
		TagSeriesUID, TagSliceNumber, TagImagePositionPatient,
		TagImageOrientationPatient, TagSliceLocation, TagRows, TagColumns,
		TagBitsAllocated, TagPixelRepresentation, TagRescaleOffset,
		TagRescaleSlope, TagPixelData, TagContourImageSequence,
		TagContourSequence, TagNumberOfContourPoints, TagContourData,
		TagByteOrderSentinel, TagSequenceItem, TagSequenceDelimitation,
		TagItemDelimitation,
	}
	seen := make(map[Tag]bool, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			t.Errorf("duplicate well-known tag %s", tag)
		}
		seen[tag] = true
	}
}
