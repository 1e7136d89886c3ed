package indexer

import (
	"context"
	"testing"

	"github.com/practical-imaging/dicomindex/dicom"
	"github.com/practical-imaging/dicomindex/registry"
	"github.com/practical-imaging/dicomindex/types"
)

func dispatch(reg *registry.Registry, tag types.Tag, vr string, value []byte) {
	reg.Dispatch(context.Background(), tag, vr, value)
}

func newWiredIndexer() (*Indexer, *registry.Registry) {
	reg := registry.New()
	ix := New()
	ix.RegisterStandardCallbacks(reg)
	ix.RegisterPixelCallback(reg)
	return ix, reg
}

func TestInstanceAndSeriesScoping(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("/data/ct001.dcm")

	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("1.1"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("2.1"))

	f, ok := ix.FileFor("1.1")
	if !ok || f != "/data/ct001.dcm" {
		t.Fatalf("FileFor(1.1) = (%q, %v), want (/data/ct001.dcm, true)", f, ok)
	}
	series := ix.SeriesUIDs()
	if len(series) != 1 || series[0] != "2.1" {
		t.Fatalf("SeriesUIDs() = %v, want [2.1]", series)
	}
}

func TestSliceNumberOrdering(t *testing.T) {
	ix, reg := newWiredIndexer()

	ix.BeginFile("a.dcm")
	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("i1"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("s1"))
	dispatch(reg, types.TagSliceNumber, types.VR_IS, []byte("3"))

	ix.BeginFile("b.dcm")
	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("i2"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("s1"))
	dispatch(reg, types.TagSliceNumber, types.VR_IS, []byte("1"))

	pairs := ix.SliceNumberPairs("s1")
	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2", len(pairs))
	}
	if pairs[0].Filename != "b.dcm" || pairs[1].Filename != "a.dcm" {
		t.Errorf("pairs = %+v, want b.dcm before a.dcm", pairs)
	}
}

func TestImagePositionPatientOrdering(t *testing.T) {
	ix, reg := newWiredIndexer()

	ix.BeginFile("a.dcm")
	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("i1"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("s1"))
	dispatch(reg, types.TagImageOrientationPatient, types.VR_DS, []byte("1\\0\\0\\0\\1\\0"))
	dispatch(reg, types.TagImagePositionPatient, types.VR_DS, []byte("0\\0\\10"))

	ix.BeginFile("b.dcm")
	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("i2"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("s1"))
	dispatch(reg, types.TagImagePositionPatient, types.VR_DS, []byte("0\\0\\5"))

	pairs := ix.ImagePositionPairs("s1")
	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2", len(pairs))
	}
	if pairs[0].Filename != "b.dcm" || pairs[1].Filename != "a.dcm" {
		t.Errorf("pairs = %+v, want b.dcm (z=5) before a.dcm (z=10)", pairs)
	}
}

func TestContourConsistencyWarnings(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("rs.dcm")
	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("rs1"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("rtseries"))

	// Contour Data arrives before any Contour Image Sequence item: should
	// warn and be dropped, not panic.
	dispatch(reg, types.TagContourData, types.VR_DS, []byte("0\\0\\0"))
	if got := ix.Contours("rtseries"); len(got) != 0 {
		t.Errorf("Contours before any item = %v, want empty", got)
	}

	dispatch(reg, types.TagContourImageSequence, types.VR_SQ, nil)
	// Contour Data before Number of Contour Points: warn and drop.
	dispatch(reg, types.TagContourData, types.VR_DS, []byte("0\\0\\0"))

	dispatch(reg, types.TagNumberOfContourPoints, types.VR_IS, []byte("2"))
	dispatch(reg, types.TagContourData, types.VR_DS, []byte("1\\2\\3\\4\\5\\6"))

	contours := ix.Contours("rtseries")
	if len(contours) != 1 {
		t.Fatalf("len(contours) = %d, want 1", len(contours))
	}
	want := []float32{1, 2, 3, 4, 5, 6}
	for i := range want {
		if contours[0][i] != want[i] {
			t.Errorf("contour[%d] = %v, want %v", i, contours[0][i], want[i])
		}
	}

	// A second Number of Contour Points for the same, already-sized contour
	// is out-of-order: warn and leave the contour untouched.
	dispatch(reg, types.TagNumberOfContourPoints, types.VR_IS, []byte("5"))
	if len(ix.Contours("rtseries")[0]) != 6 {
		t.Errorf("out-of-order Number of Contour Points mutated the contour")
	}
}

func TestReferencedInstances(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("rs.dcm")
	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("rs1"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("rtseries"))
	dispatch(reg, types.TagReferencedInstanceUID, types.VR_UI, []byte("ct1"))
	dispatch(reg, types.TagReferencedInstanceUID, types.VR_UI, []byte("ct2"))

	got := ix.ReferencedInstances("rtseries")
	want := []string{"ct1", "ct2"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPixelDataRescalingIntegerOutput(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("ct.dcm")
	dispatch(reg, types.TagRows, types.VR_US, u16bytes(1))
	dispatch(reg, types.TagColumns, types.VR_US, u16bytes(2))
	dispatch(reg, types.TagBitsAllocated, types.VR_US, u16bytes(16))
	dispatch(reg, types.TagRescaleSlope, types.VR_DS, []byte("1"))
	dispatch(reg, types.TagRescaleOffset, types.VR_DS, []byte("-1024"))

	raw := []byte{100, 0, 200, 0} // two little-endian uint16 samples: 100, 200
	dispatch(reg, types.TagPixelData, types.VR_OW, raw)

	buf, vr, n := ix.ImageBuffer()
	if vr != types.VR_OW {
		t.Fatalf("VR = %q, want %q (whole-number slope/offset stays integer)", vr, types.VR_OW)
	}
	if n != 4 {
		t.Fatalf("len = %d, want 4", n)
	}
	s0 := int16(buf[0]) | int16(buf[1])<<8
	s1 := int16(buf[2]) | int16(buf[3])<<8
	if s0 != -924 || s1 != -824 {
		t.Errorf("rescaled samples = (%d, %d), want (-924, -824)", s0, s1)
	}
}

func TestPixelDataRescalingFloatOutput(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("pet.dcm")
	dispatch(reg, types.TagRows, types.VR_US, u16bytes(1))
	dispatch(reg, types.TagColumns, types.VR_US, u16bytes(1))
	dispatch(reg, types.TagBitsAllocated, types.VR_US, u16bytes(16))
	dispatch(reg, types.TagRescaleSlope, types.VR_DS, []byte("0.5"))
	dispatch(reg, types.TagRescaleOffset, types.VR_DS, []byte("0"))

	raw := []byte{10, 0}
	dispatch(reg, types.TagPixelData, types.VR_OW, raw)

	_, vr, n := ix.ImageBuffer()
	if vr != types.VR_FL {
		t.Fatalf("VR = %q, want %q (fractional slope forces float output)", vr, types.VR_FL)
	}
	if n != 4 {
		t.Errorf("len = %d, want 4 (one float32 sample)", n)
	}
}

// appendImplicitElement appends one Implicit VR Little Endian element:
// 4-byte tag, 4-byte length, value.
func appendImplicitElement(buf []byte, group, element uint16, length uint32, value []byte) []byte {
	buf = append(buf, byte(group), byte(group>>8), byte(element), byte(element>>8))
	buf = append(buf, byte(length), byte(length>>8), byte(length>>16), byte(length>>24))
	return append(buf, value...)
}

// TestPixelDataLengthAliasProducesFullSampleBuffer exercises the literal
// scenario a buggy writer's 0xFFFF Pixel Data length field describes: a
// native, non-encapsulated 256x256 16-bit image with no Item framing. The
// indexer must see the full Rows*Columns sample count, not fail to parse or
// receive a truncated/misrouted buffer.
func TestPixelDataLengthAliasProducesFullSampleBuffer(t *testing.T) {
	const rows, cols = 256, 256
	raw := make([]byte, rows*cols*2)
	for i := range raw {
		raw[i] = byte(i)
	}

	var data []byte
	data = appendImplicitElement(data, types.TagRows.Group, types.TagRows.Element, 2, u16bytes(rows))
	data = appendImplicitElement(data, types.TagColumns.Group, types.TagColumns.Element, 2, u16bytes(cols))
	data = appendImplicitElement(data, types.TagBitsAllocated.Group, types.TagBitsAllocated.Element, 2, u16bytes(16))
	data = appendImplicitElement(data, types.TagPixelData.Group, types.TagPixelData.Element, 0xFFFF, raw)

	ix, reg := newWiredIndexer()
	ix.BeginFile("native.dcm")
	p := dicom.NewParser(reg)
	if err := p.Parse(context.Background(), data); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	_, _, n := ix.ImageBuffer()
	if n != rows*cols*2 {
		t.Errorf("ImageBuffer len = %d, want %d (256*256 16-bit samples)", n, rows*cols*2)
	}
}

func TestPixelDataRescaleRoundTripsIntegerSlopeOffset(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("ct.dcm")
	dispatch(reg, types.TagRows, types.VR_US, u16bytes(1))
	dispatch(reg, types.TagColumns, types.VR_US, u16bytes(3))
	dispatch(reg, types.TagBitsAllocated, types.VR_US, u16bytes(16))
	dispatch(reg, types.TagRescaleSlope, types.VR_DS, []byte("1"))
	dispatch(reg, types.TagRescaleOffset, types.VR_DS, []byte("-1024"))

	raw := []uint16{0, 1024, 2048}
	rawBytes := make([]byte, 0, 6)
	for _, v := range raw {
		rawBytes = append(rawBytes, byte(v), byte(v>>8))
	}
	dispatch(reg, types.TagPixelData, types.VR_OW, rawBytes)

	buf, _, _ := ix.ImageBuffer()
	for i, want := range raw {
		rescaled := int16(buf[i*2]) | int16(buf[i*2+1])<<8
		recovered := int32(rescaled) + 1024 // inverse of slope=1, offset=-1024
		if recovered != int32(want) {
			t.Errorf("sample %d: recovered %d, want %d (raw)", i, recovered, want)
		}
	}
}

func TestPatientNameDecodesWithDeclaredCharacterSet(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("latin1.dcm")
	dispatch(reg, types.TagSpecificCharacterSet, types.VR_CS, []byte("ISO_IR 100"))
	// Latin-1 0xE9 is 'é', 0xC9 is 'É'; a plain ASCII decode would mangle both.
	dispatch(reg, types.TagPatientName, types.VR_PN, []byte("D\xE9SIR\xE9^REN\xC9"))

	if got, want := ix.Metadata().PatientName, "DéSIRé^RENÉ"; got != want {
		t.Errorf("PatientName = %q, want %q", got, want)
	}
}

func TestPatientNameDefaultsToASCIIWithoutDeclaredCharacterSet(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("plain.dcm")
	dispatch(reg, types.TagPatientName, types.VR_PN, []byte("DOE^JOHN"))

	if got, want := ix.Metadata().PatientName, "DOE^JOHN"; got != want {
		t.Errorf("PatientName = %q, want %q", got, want)
	}
}

func TestSOPClassUIDClassifiesRTStructureSet(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("rs.dcm")
	dispatch(reg, types.TagSOPClassUID, types.VR_UI, []byte(types.RTStructureSetStorage))

	if !ix.IsRTStructureSet() {
		t.Error("IsRTStructureSet() = false for an RT Structure Set SOP Class UID")
	}
	if got, want := ix.Metadata().SOPClassName, "RT Structure Set Storage"; got != want {
		t.Errorf("SOPClassName = %q, want %q", got, want)
	}
}

func TestSOPClassUIDClassifiesImageStorage(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("ct.dcm")
	dispatch(reg, types.TagSOPClassUID, types.VR_UI, []byte(types.CTImageStorage))

	if ix.IsRTStructureSet() {
		t.Error("IsRTStructureSet() = true for a CT Image Storage SOP Class UID")
	}
}

func TestClearResetsAllIndices(t *testing.T) {
	ix, reg := newWiredIndexer()
	ix.BeginFile("a.dcm")
	dispatch(reg, types.TagInstanceUID, types.VR_UI, []byte("i1"))
	dispatch(reg, types.TagSeriesUID, types.VR_UI, []byte("s1"))
	dispatch(reg, types.TagPatientName, types.VR_PN, []byte("DOE^JOHN"))

	ix.Clear()

	if len(ix.SeriesUIDs()) != 0 {
		t.Error("SeriesUIDs() after Clear should be empty")
	}
	if _, ok := ix.FileFor("i1"); ok {
		t.Error("FileFor(i1) after Clear should be not-found")
	}
	if ix.Metadata().PatientName != "" {
		t.Error("Metadata after Clear should be zero value")
	}
}

func u16bytes(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
