package indexer

import (
	"sort"

	"github.com/practical-imaging/dicomindex/types"
)

// IsRTStructureSet reports whether the most recently parsed file's SOP Class
// UID names an RT Structure Set, the file kind that carries the contour
// sequences Contours/ReferencedInstances collect.
func (ix *Indexer) IsRTStructureSet() bool {
	return types.IsRTStructureSetSOPClass(ix.metadata.SOPClassUID)
}

// FilenamePair associates a sort key with the filename of the instance it
// was read from, the shape every ordering accessor below returns.
type FilenamePair struct {
	Key      float64
	Filename string
}

// SeriesUIDs returns every series UID seen so far, in first-arrival order.
func (ix *Indexer) SeriesUIDs() []string {
	out := make([]string, len(ix.seriesOrder))
	copy(out, ix.seriesOrder)
	return out
}

// FileFor returns the filename the given instance UID was read from.
func (ix *Indexer) FileFor(instanceUID string) (string, bool) {
	f, ok := ix.instanceToFile[instanceUID]
	return f, ok
}

// ReferencedInstances returns the Referenced SOP Instance UIDs an
// RT-Structure series collected, in arrival order.
func (ix *Indexer) ReferencedInstances(seriesUID string) []string {
	rec := ix.series[seriesUID]
	if rec == nil {
		return nil
	}
	out := make([]string, len(rec.referencedInstances))
	copy(out, rec.referencedInstances)
	return out
}

// Contours returns the RT-Structure contours collected for a series: one
// []float32 per contour, laid out as consecutive (x,y,z) triples.
func (ix *Indexer) Contours(seriesUID string) [][]float32 {
	rec := ix.series[seriesUID]
	if rec == nil {
		return nil
	}
	out := make([][]float32, len(rec.contours))
	for i, c := range rec.contours {
		cp := make([]float32, len(c))
		copy(cp, c)
		out[i] = cp
	}
	return out
}

// defaultSeries returns the first series in arrival order, for the
// no-series-specified accessor overloads.
func (ix *Indexer) defaultSeries() string {
	if len(ix.seriesOrder) == 0 {
		return ""
	}
	return ix.seriesOrder[0]
}

// SliceNumberPairs returns (Slice Number, filename) pairs for every instance
// of seriesUID that has a recorded slice number, sorted by slice number then
// filename. An empty seriesUID selects the first series seen.
func (ix *Indexer) SliceNumberPairs(seriesUID string) []FilenamePair {
	if seriesUID == "" {
		seriesUID = ix.defaultSeries()
	}
	return ix.orderedPairs(seriesUID, func(o *SliceOrdering) (float64, bool) {
		return float64(o.SliceNumber), o.HasSliceNumber
	})
}

// SliceLocationPairs returns (Slice Location, filename) pairs for every
// instance of seriesUID that has a recorded slice location, sorted
// ascending. An empty seriesUID selects the first series seen.
func (ix *Indexer) SliceLocationPairs(seriesUID string) []FilenamePair {
	if seriesUID == "" {
		seriesUID = ix.defaultSeries()
	}
	return ix.orderedPairs(seriesUID, func(o *SliceOrdering) (float64, bool) {
		return float64(o.SliceLocation), o.HasSliceLocation
	})
}

func (ix *Indexer) orderedPairs(seriesUID string, key func(*SliceOrdering) (float64, bool)) []FilenamePair {
	rec := ix.series[seriesUID]
	if rec == nil {
		return nil
	}
	var pairs []FilenamePair
	for _, instanceUID := range rec.instanceUIDs {
		ord, ok := ix.sliceOrdering[instanceUID]
		if !ok {
			continue
		}
		k, has := key(ord)
		if !has {
			continue
		}
		pairs = append(pairs, FilenamePair{Key: k, Filename: ix.instanceToFile[instanceUID]})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Filename < pairs[j].Filename
	})
	return pairs
}

// ImagePositionPairs returns (projected position, filename) pairs ordered by
// each instance's position along the series' slice normal. The normal is
// the cross product of the Image Orientation Patient row and column
// vectors; each instance's Image Position Patient is projected onto it by
// dot product, and the resulting scalar is the sort key. An empty seriesUID
// selects the first series seen.
func (ix *Indexer) ImagePositionPairs(seriesUID string) []FilenamePair {
	if seriesUID == "" {
		seriesUID = ix.defaultSeries()
	}
	rec := ix.series[seriesUID]
	if rec == nil {
		return nil
	}

	var normal [3]float32
	haveNormal := false
	for _, instanceUID := range rec.instanceUIDs {
		if ord, ok := ix.sliceOrdering[instanceUID]; ok && ord.HasImageOrientation {
			normal = crossProduct(ord.ImageOrientationPatient)
			haveNormal = true
			break
		}
	}
	if !haveNormal {
		return nil
	}

	var pairs []FilenamePair
	for _, instanceUID := range rec.instanceUIDs {
		ord, ok := ix.sliceOrdering[instanceUID]
		if !ok || !ord.HasImagePosition {
			continue
		}
		proj := dot(ord.ImagePositionPatient, normal)
		pairs = append(pairs, FilenamePair{Key: float64(proj), Filename: ix.instanceToFile[instanceUID]})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Filename < pairs[j].Filename
	})
	return pairs
}

// crossProduct splits a 6-element Image Orientation Patient value into its
// row and column direction vectors and returns their cross product, the
// slice normal.
func crossProduct(iop [6]float32) [3]float32 {
	row := [3]float32{iop[0], iop[1], iop[2]}
	col := [3]float32{iop[3], iop[4], iop[5]}
	return [3]float32{
		row[1]*col[2] - row[2]*col[1],
		row[2]*col[0] - row[0]*col[2],
		row[0]*col[1] - row[1]*col[0],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
