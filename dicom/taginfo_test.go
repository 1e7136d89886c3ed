package dicom

import (
	"testing"

	"github.com/practical-imaging/dicomindex/types"
)

func TestDescribeTagKnown(t *testing.T) {
	info := DescribeTag(types.TagPatientName)
	if info.VR != types.VR_PN {
		t.Errorf("VR = %q, want %q", info.VR, types.VR_PN)
	}
	if info.Description == "" {
		t.Error("Description should not be empty for a well-known tag")
	}
}

func TestDescribeTagUnknown(t *testing.T) {
	info := DescribeTag(types.Tag{Group: 0x9999, Element: 0x0001})
	if info.VR != types.VR_UN {
		t.Errorf("VR = %q, want %q for an unrecognised tag", info.VR, types.VR_UN)
	}
	if info.Description != "" {
		t.Errorf("Description = %q, want empty for an unrecognised tag", info.Description)
	}
}
