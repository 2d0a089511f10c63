// Package cover reduces a list of overlapping scene footprints to a minimal
// subset that still covers the same area.
package cover

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/geometry"
)

// ErrNoCoverage is returned when there are no footprints to reduce.
var ErrNoCoverage = errors.New("no footprints cover the area of interest")

// Footprint is the extent and quality metadata of one archived scene.
type Footprint struct {
	ID         string
	Title      string
	Href       string
	Polygon    geometry.Polygon
	Area       float64
	CloudCover float64
	Ingestion  time.Time
}

// NewFootprint returns a footprint with Area computed from poly.
func NewFootprint(id string, poly geometry.Polygon, cloudCover float64, ingestion time.Time) Footprint {
	return Footprint{
		ID:         id,
		Polygon:    poly,
		Area:       poly.Area(),
		CloudCover: cloudCover,
		Ingestion:  ingestion,
	}
}

// Sort orders footprints ascending by cloud cover, then by ingestion time,
// so the clearest and earliest scenes come first. The sort is stable.
func Sort(fps []Footprint) {
	slices.SortStableFunc(fps, func(a, b Footprint) int {
		if c := cmp.Compare(a.CloudCover, b.CloudCover); c != 0 {
			return c
		}
		return a.Ingestion.Compare(b.Ingestion)
	})
}

// Reduce runs ReduceRedundant followed by ReduceMinimal. fps must already be
// in preference order (see Sort).
func Reduce(fps []Footprint) ([]Footprint, error) {
	l1, err := ReduceRedundant(fps)
	if err != nil {
		return nil, err
	}
	return ReduceMinimal(l1)
}

// ReduceRedundant drops every footprint that adds less than geometry.Epsilon
// of new area to the union of the footprints kept before it.
func ReduceRedundant(fps []Footprint) ([]Footprint, error) {
	if len(fps) == 0 {
		return nil, ErrNoCoverage
	}

	kept := []Footprint{fps[0]}
	covered := fps[0].Polygon
	for _, fp := range fps[1:] {
		overlap := geometry.Intersection(fp.Polygon, covered)
		if fp.Polygon.Area()-overlap.Area() < geometry.Epsilon {
			continue
		}
		kept = append(kept, fp)
		covered = geometry.Union(covered, fp.Polygon)
	}
	return kept, nil
}

// ReduceMinimal visits footprints in order and permanently drops each one
// whose removal changes the area covered by the remaining footprints by less
// than geometry.Epsilon. The result is minimal: removing any footprint from
// it loses at least Epsilon of coverage. It is not necessarily the smallest
// possible cover.
func ReduceMinimal(fps []Footprint) ([]Footprint, error) {
	if len(fps) == 0 {
		return nil, ErrNoCoverage
	}

	alive := make([]bool, len(fps))
	for i := range alive {
		alive[i] = true
	}

	for i := range fps {
		var all, others []geometry.Polygon
		for j, fp := range fps {
			if !alive[j] {
				continue
			}
			all = append(all, fp.Polygon)
			if j != i {
				others = append(others, fp.Polygon)
			}
		}
		if len(others) == 0 {
			break
		}
		if geometry.AreaEqual(geometry.Union(all...).Area(), geometry.Union(others...).Area()) {
			alive[i] = false
		}
	}

	out := make([]Footprint, 0, len(fps))
	for i, fp := range fps {
		if alive[i] {
			out = append(out, fp)
		}
	}
	return out, nil
}

// IDs returns the footprint identifiers in order.
func IDs(fps []Footprint) []string {
	ids := make([]string, len(fps))
	for i, fp := range fps {
		ids[i] = fp.ID
	}
	return ids
}
