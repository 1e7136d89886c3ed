// Package indexer builds cross-file indices from the element stream a
// parser produces: slice ordering per series, RT-Structure contours paired
// with their referenced instances, pixel data with rescaling applied, and
// per-file patient/study metadata.
package indexer

import (
	"log/slog"
	"math"

	"github.com/practical-imaging/dicomindex/dicom"
	"github.com/practical-imaging/dicomindex/dicomerr"
	"github.com/practical-imaging/dicomindex/registry"
	"github.com/practical-imaging/dicomindex/types"
)

// SliceOrdering holds the geometry fields used to order a series' instances
// when slice number is unreliable or absent.
type SliceOrdering struct {
	SliceNumber           int32
	HasSliceNumber        bool
	SliceLocation         float32
	HasSliceLocation      bool
	ImagePositionPatient  [3]float32
	HasImagePosition      bool
	ImageOrientationPatient [6]float32
	HasImageOrientation   bool
}

// PatientStudyMetadata is the last-write-wins snapshot of per-file
// patient/study header fields, refreshed by every file the indexer parses.
type PatientStudyMetadata struct {
	PatientName  string
	PatientID    string
	PatientSex   string
	PatientAge   string
	StudyDate    string
	Modality     string
	Manufacturer string
	Institution  string
	Model        string
	SOPClassUID  string
	SOPClassName string
}

// seriesRecord is the per-series accumulator: its instance list and its
// contours, kept in lock-step with referencedInstances.
type seriesRecord struct {
	instanceUIDs        []string
	contours             [][]float32
	referencedInstances  []string
}

// Indexer is the stateful consumer of parsed DICOM elements. One Indexer
// accumulates indices across many files; it holds no synchronisation, so a
// caller parsing files concurrently must use one Indexer per goroutine and
// merge afterwards.
type Indexer struct {
	currentFile       string
	currentInstanceUID string
	currentSeriesUID  string
	currentSeqTag     types.Tag
	currentCharacterSet string

	instanceToFile   map[string]string
	instanceToSeries map[string]string
	seriesOrder      []string
	series           map[string]*seriesRecord
	sliceOrdering    map[string]*SliceOrdering

	rows, cols       uint16
	bitsAllocated    uint16
	pixelRepresentation uint16
	rescaleSlope     float32
	rescaleOffset    float32
	hasRescaleSlope  bool
	hasRescaleOffset bool

	imageBuffer     []byte
	imageBufferVR   string

	metadata PatientStudyMetadata
}

// New creates an empty Indexer.
func New() *Indexer {
	return &Indexer{
		instanceToFile:   make(map[string]string),
		instanceToSeries: make(map[string]string),
		series:           make(map[string]*seriesRecord),
		sliceOrdering:    make(map[string]*SliceOrdering),
		rescaleSlope:     1,
	}
}

// BeginFile resets the per-file fields (current instance/series UID,
// character set, Rows/Columns, Bits Allocated, Pixel Representation and
// rescale slope/offset) ahead of parsing a new file; the index maps
// persist across files, which is how the indexer builds its cross-file view.
func (ix *Indexer) BeginFile(filename string) {
	ix.currentFile = filename
	ix.currentInstanceUID = ""
	ix.currentSeriesUID = ""
	ix.currentSeqTag = types.Tag{}
	ix.currentCharacterSet = ""
	ix.rows, ix.cols = 0, 0
	ix.bitsAllocated = 0
	ix.pixelRepresentation = 0
	ix.rescaleSlope = 1
	ix.rescaleOffset = 0
	ix.hasRescaleSlope = false
	ix.hasRescaleOffset = false
}

// RegisterStandardCallbacks wires the tags listed below onto reg,
// dispatching into this Indexer's methods. Pixel Spacing, Slice Thickness
// and Photometric Interpretation are not registered and are not recorded.
// Safe to call once per Indexer/Registry pair.
func (ix *Indexer) RegisterStandardCallbacks(reg *registry.Registry) {
	reg.Register(types.TagSpecificCharacterSet, ix.onSpecificCharacterSet)
	reg.Register(types.TagSOPClassUID, ix.onSOPClassUID)
	reg.Register(types.TagInstanceUID, ix.onInstanceUID)
	reg.Register(types.TagSeriesUID, ix.onSeriesUID)
	reg.Register(types.TagSliceNumber, ix.onSliceNumber)
	reg.Register(types.TagSliceLocation, ix.onSliceLocation)
	reg.Register(types.TagImagePositionPatient, ix.onImagePositionPatient)
	reg.Register(types.TagImageOrientationPatient, ix.onImageOrientationPatient)
	reg.Register(types.TagBitsAllocated, ix.onBitsAllocated)
	reg.Register(types.TagRows, ix.onRows)
	reg.Register(types.TagColumns, ix.onColumns)
	reg.Register(types.TagPixelRepresentation, ix.onPixelRepresentation)
	reg.Register(types.TagRescaleOffset, ix.onRescaleOffset)
	reg.Register(types.TagRescaleSlope, ix.onRescaleSlope)
	reg.Register(types.TagContourImageSequence, ix.onContourImageSequenceItem)
	reg.Register(types.TagContourSequence, ix.onContourSequenceContainer)
	reg.Register(types.TagNumberOfContourPoints, ix.onNumberOfContourPoints)
	reg.Register(types.TagContourData, ix.onContourData)
	reg.Register(types.TagReferencedInstanceUID, ix.onReferencedInstanceUID)
	reg.Register(types.TagPatientName, ix.onPatientName)
	reg.Register(types.TagPatientID, ix.onPatientID)
	reg.Register(types.TagPatientSex, ix.onPatientSex)
	reg.Register(types.TagPatientAge, ix.onPatientAge)
	reg.Register(types.TagStudyDate, ix.onStudyDate)
	reg.Register(types.TagModality, ix.onModality)
	reg.Register(types.TagManufacturer, ix.onManufacturer)
	reg.Register(types.TagInstitutionName, ix.onInstitutionName)
	reg.Register(types.TagManufacturerModelName, ix.onManufacturerModelName)
}

// RegisterPixelCallback wires the Pixel Data tag separately: callers that
// only want index metadata (no pixel buffers) can skip the rescale cost by
// not calling this.
func (ix *Indexer) RegisterPixelCallback(reg *registry.Registry) {
	reg.Register(types.TagPixelData, ix.onPixelData)
}

func (ix *Indexer) ensureSeries(seriesUID string) *seriesRecord {
	rec, ok := ix.series[seriesUID]
	if !ok {
		rec = &seriesRecord{}
		ix.series[seriesUID] = rec
		ix.seriesOrder = append(ix.seriesOrder, seriesUID)
	}
	return rec
}

// onSpecificCharacterSet records (0008,0005) for the file currently being
// parsed, so PN/LO/SH string fields arriving later in the same file decode
// with the writer's declared character set instead of assuming plain ASCII.
func (ix *Indexer) onSpecificCharacterSet(tag types.Tag, vr string, value []byte) {
	ix.currentCharacterSet = dicom.DecodeASCIIString(value)
}

// onSOPClassUID records (0008,0016) and its human-readable classification,
// which is how a caller distinguishes an RT-Structure file (contours to
// collect) from an image-storage file (pixels to rescale) without hunting
// through Contour Sequence tags first.
func (ix *Indexer) onSOPClassUID(tag types.Tag, vr string, value []byte) {
	uid := dicom.DecodeASCIIString(value)
	ix.metadata.SOPClassUID = uid
	ix.metadata.SOPClassName = types.GetSOPClassInfo(uid).Name
}

func (ix *Indexer) onInstanceUID(tag types.Tag, vr string, value []byte) {
	uid := dicom.DecodeASCIIString(value)
	ix.currentInstanceUID = uid
	ix.instanceToFile[uid] = ix.currentFile
}

func (ix *Indexer) onSeriesUID(tag types.Tag, vr string, value []byte) {
	uid := dicom.DecodeASCIIString(value)
	ix.currentSeriesUID = uid
	ix.instanceToSeries[ix.currentInstanceUID] = uid
	rec := ix.ensureSeries(uid)
	rec.instanceUIDs = append(rec.instanceUIDs, ix.currentInstanceUID)
}

func (ix *Indexer) ordering() *SliceOrdering {
	ord, ok := ix.sliceOrdering[ix.currentInstanceUID]
	if !ok {
		ord = &SliceOrdering{}
		ix.sliceOrdering[ix.currentInstanceUID] = ord
	}
	return ord
}

func (ix *Indexer) onSliceNumber(tag types.Tag, vr string, value []byte) {
	n, err := dicom.DecodeASCIIInt([]byte(tag.String()), value)
	if err != nil {
		slog.Warn("slice number not parseable", "instance", ix.currentInstanceUID, "error", err)
		return
	}
	ord := ix.ordering()
	ord.SliceNumber = n
	ord.HasSliceNumber = true
}

func (ix *Indexer) onSliceLocation(tag types.Tag, vr string, value []byte) {
	f, err := dicom.DecodeASCIIFloat([]byte(tag.String()), value)
	if err != nil {
		slog.Warn("slice location not parseable", "instance", ix.currentInstanceUID, "error", err)
		return
	}
	ord := ix.ordering()
	ord.SliceLocation = f
	ord.HasSliceLocation = true
}

func (ix *Indexer) onImagePositionPatient(tag types.Tag, vr string, value []byte) {
	vals, err := dicom.DecodeASCIIFloatTuple([]byte(tag.String()), value, 3)
	if err != nil {
		slog.Warn("image position patient not parseable", "instance", ix.currentInstanceUID, "error", err)
		return
	}
	ord := ix.ordering()
	ord.ImagePositionPatient = [3]float32{vals[0], vals[1], vals[2]}
	ord.HasImagePosition = true
}

func (ix *Indexer) onImageOrientationPatient(tag types.Tag, vr string, value []byte) {
	vals, err := dicom.DecodeASCIIFloatTuple([]byte(tag.String()), value, 6)
	if err != nil {
		slog.Warn("image orientation patient not parseable", "instance", ix.currentInstanceUID, "error", err)
		return
	}
	ord := ix.ordering()
	ord.ImageOrientationPatient = [6]float32{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}
	ord.HasImageOrientation = true
}

func (ix *Indexer) onBitsAllocated(tag types.Tag, vr string, value []byte) {
	ix.bitsAllocated = dicom.DecodeUint16(value, false)
}

func (ix *Indexer) onRows(tag types.Tag, vr string, value []byte) {
	ix.rows = dicom.DecodeUint16(value, false)
}

func (ix *Indexer) onColumns(tag types.Tag, vr string, value []byte) {
	ix.cols = dicom.DecodeUint16(value, false)
}

func (ix *Indexer) onPixelRepresentation(tag types.Tag, vr string, value []byte) {
	ix.pixelRepresentation = dicom.DecodeUint16(value, false)
}

func (ix *Indexer) onRescaleOffset(tag types.Tag, vr string, value []byte) {
	f, err := dicom.DecodeASCIIFloat([]byte(tag.String()), value)
	if err != nil {
		slog.Warn("rescale offset not parseable", "instance", ix.currentInstanceUID, "error", err)
		return
	}
	ix.rescaleOffset = f
	ix.hasRescaleOffset = true
}

func (ix *Indexer) onRescaleSlope(tag types.Tag, vr string, value []byte) {
	f, err := dicom.DecodeASCIIFloat([]byte(tag.String()), value)
	if err != nil {
		slog.Warn("rescale slope not parseable", "instance", ix.currentInstanceUID, "error", err)
		return
	}
	ix.rescaleSlope = f
	ix.hasRescaleSlope = true
}

// onContourImageSequenceItem fires once per item of the Contour Image
// Sequence (the parser dispatches the enclosing SQ's own tag per item, see
// dicom.Parser.parseSequence): append a fresh, empty contour to the current
// series.
func (ix *Indexer) onContourImageSequenceItem(tag types.Tag, vr string, value []byte) {
	rec := ix.ensureSeries(ix.currentSeriesUID)
	rec.contours = append(rec.contours, nil)
	ix.currentSeqTag = tag
}

func (ix *Indexer) onContourSequenceContainer(tag types.Tag, vr string, value []byte) {
	// Container marker: records the tag as currentSeqTag and changes no
	// index.
	ix.currentSeqTag = tag
}

func (ix *Indexer) onNumberOfContourPoints(tag types.Tag, vr string, value []byte) {
	rec := ix.series[ix.currentSeriesUID]
	if rec == nil || len(rec.contours) == 0 {
		slog.Warn("number of contour points with no matching contour sequence",
			"series", ix.currentSeriesUID)
		return
	}
	last := rec.contours[len(rec.contours)-1]
	if len(last) != 0 {
		slog.Warn("number of contour points arrived for an already-sized contour",
			"series", ix.currentSeriesUID, "error", dicomerr.NewSequenceOrderError(ix.currentSeriesUID, "out-of-order Number of Contour Points"))
		return
	}
	n, err := dicom.DecodeASCIIInt([]byte(tag.String()), value)
	if err != nil {
		slog.Warn("number of contour points not parseable", "series", ix.currentSeriesUID, "error", err)
		return
	}
	rec.contours[len(rec.contours)-1] = make([]float32, 3*n)
}

func (ix *Indexer) onContourData(tag types.Tag, vr string, value []byte) {
	rec := ix.series[ix.currentSeriesUID]
	if rec == nil || len(rec.contours) == 0 {
		slog.Warn("contour data with no matching contour image sequence tag",
			"series", ix.currentSeriesUID)
		return
	}
	last := rec.contours[len(rec.contours)-1]
	if len(last) == 0 {
		slog.Warn("contour data with no matching number of contour points tag",
			"series", ix.currentSeriesUID)
		return
	}
	n := len(last) / 3
	vals, err := dicom.DecodeASCIIFloatTuple([]byte(tag.String()), value, 3*n)
	if err != nil {
		slog.Warn("contour data not parseable", "series", ix.currentSeriesUID, "error", err)
		return
	}
	copy(last, vals)
}

func (ix *Indexer) onReferencedInstanceUID(tag types.Tag, vr string, value []byte) {
	uid := dicom.DecodeASCIIString(value)
	rec := ix.ensureSeries(ix.currentSeriesUID)
	rec.referencedInstances = append(rec.referencedInstances, uid)
}

// decodeCharsetString decodes a PN/LO/SH string-VR value using the current
// file's declared (0008,0005) Specific Character Set, since these are the
// VRs the DICOM standard allows to carry non-ASCII text (CS/DA/AS fields
// like Patient Sex or Study Date are restricted to the ASCII repertoire
// regardless of the declared character set).
func (ix *Indexer) decodeCharsetString(value []byte) string {
	return dicom.DecodeStringWithCharacterSet(value, ix.currentCharacterSet)
}

func (ix *Indexer) onPatientName(tag types.Tag, vr string, value []byte) {
	ix.metadata.PatientName = ix.decodeCharsetString(value)
}
func (ix *Indexer) onPatientID(tag types.Tag, vr string, value []byte) {
	ix.metadata.PatientID = ix.decodeCharsetString(value)
}
func (ix *Indexer) onPatientSex(tag types.Tag, vr string, value []byte) {
	ix.metadata.PatientSex = dicom.DecodeASCIIString(value)
}
func (ix *Indexer) onPatientAge(tag types.Tag, vr string, value []byte) {
	ix.metadata.PatientAge = dicom.DecodeASCIIString(value)
}
func (ix *Indexer) onStudyDate(tag types.Tag, vr string, value []byte) {
	ix.metadata.StudyDate = dicom.DecodeASCIIString(value)
}
func (ix *Indexer) onModality(tag types.Tag, vr string, value []byte) {
	ix.metadata.Modality = dicom.DecodeASCIIString(value)
}
func (ix *Indexer) onManufacturer(tag types.Tag, vr string, value []byte) {
	ix.metadata.Manufacturer = ix.decodeCharsetString(value)
}
func (ix *Indexer) onInstitutionName(tag types.Tag, vr string, value []byte) {
	ix.metadata.Institution = ix.decodeCharsetString(value)
}
func (ix *Indexer) onManufacturerModelName(tag types.Tag, vr string, value []byte) {
	ix.metadata.Model = ix.decodeCharsetString(value)
}

// rescaledImageIsFloat reports whether slope or offset is not a whole
// number. When both truncate to themselves it returns false and the output
// can stay in an integer type, since the rescale cannot introduce a
// fractional part.
func (ix *Indexer) rescaledImageIsFloat() bool {
	truncatedSlope := float32(int32(ix.rescaleSlope))
	truncatedOffset := float32(int32(ix.rescaleOffset))
	return truncatedSlope != ix.rescaleSlope || truncatedOffset != ix.rescaleOffset
}

// onPixelData implements the rescaling algorithm: compute sample count,
// decide integer-vs-float output, and write `slope*x + offset` into a fresh
// buffer replacing any previous one.
func (ix *Indexer) onPixelData(tag types.Tag, vr string, value []byte) {
	numPixels := int(ix.rows) * int(ix.cols)
	if numPixels <= 0 {
		numPixels = len(value)
	}
	bytesPerSample := int(ix.bitsAllocated) / 8
	if bytesPerSample <= 0 {
		bytesPerSample = 1
	}
	if declaredBytes := numPixels * bytesPerSample; declaredBytes > 0 && declaredBytes < len(value) {
		numPixels = declaredBytes / bytesPerSample
	} else if len(value) < numPixels*bytesPerSample {
		numPixels = len(value) / bytesPerSample
	}
	if numPixels < 0 {
		numPixels = 0
	}

	isFloat := ix.rescaledImageIsFloat()

	if isFloat {
		out := make([]float32, numPixels)
		for i := 0; i < numPixels; i++ {
			x := sampleAt(value, i, bytesPerSample)
			out[i] = ix.rescaleSlope*float32(x) + ix.rescaleOffset
		}
		ix.imageBuffer = float32sToBytes(out)
		ix.imageBufferVR = types.VR_FL
		return
	}

	switch bytesPerSample {
	case 1:
		out := make([]byte, numPixels)
		for i := 0; i < numPixels; i++ {
			x := sampleAt(value, i, 1)
			out[i] = byte(ix.rescaleSlope*float32(x) + ix.rescaleOffset)
		}
		ix.imageBuffer = out
		ix.imageBufferVR = types.VR_OB
	default:
		out := make([]int16, numPixels)
		for i := 0; i < numPixels; i++ {
			x := sampleAt(value, i, 2)
			out[i] = int16(ix.rescaleSlope*float32(x) + ix.rescaleOffset)
		}
		ix.imageBuffer = int16sToBytes(out)
		ix.imageBufferVR = types.VR_OW
	}
}

// sampleAt reads the i-th sample of width bytesPerSample from raw native
// pixel bytes in little-endian order (DICOM native pixel data is always
// little-endian regardless of the dataset's own transfer syntax byte
// order, per the standard's Pixel Data encoding rules).
func sampleAt(data []byte, i, bytesPerSample int) uint16 {
	off := i * bytesPerSample
	if off >= len(data) {
		return 0
	}
	if bytesPerSample == 1 {
		return uint16(data[off])
	}
	if off+1 >= len(data) {
		return uint16(data[off])
	}
	return uint16(data[off]) | uint16(data[off+1])<<8
}

func float32sToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func int16sToBytes(v []int16) []byte {
	out := make([]byte, len(v)*2)
	for i, s := range v {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// ImageBuffer returns the most recently computed rescaled pixel buffer, the
// VR code describing its element type (VR_OB, VR_OW, or VR_FL), and its
// length in bytes.
func (ix *Indexer) ImageBuffer() ([]byte, string, int) {
	return ix.imageBuffer, ix.imageBufferVR, len(ix.imageBuffer)
}

// Metadata returns the most recently parsed file's patient/study fields.
func (ix *Indexer) Metadata() PatientStudyMetadata {
	return ix.metadata
}

// Clear discards every index the Indexer has accumulated, including the
// pixel buffer, and resets per-file scoping.
func (ix *Indexer) Clear() {
	ix.instanceToFile = make(map[string]string)
	ix.instanceToSeries = make(map[string]string)
	ix.seriesOrder = nil
	ix.series = make(map[string]*seriesRecord)
	ix.sliceOrdering = make(map[string]*SliceOrdering)
	ix.imageBuffer = nil
	ix.imageBufferVR = ""
	ix.metadata = PatientStudyMetadata{}
	ix.BeginFile("")
}
