package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
)

// AOI is an area of interest: a bounding box, optionally refined by a
// polygon geometry. It is not modified once acquisition starts.
type AOI struct {
	bbox     BBox
	geometry orb.Geometry
}

// NewBBoxAOI returns an AOI covering b.
func NewBBoxAOI(b BBox) (AOI, error) {
	if err := b.Validate(); err != nil {
		return AOI{}, err
	}
	return AOI{bbox: b}, nil
}

// NewGeometryAOI returns an AOI for a polygon or multipolygon. Its bounding
// box is the geometry's extent.
func NewGeometryAOI(g orb.Geometry) (AOI, error) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		if g == nil {
			return AOI{}, fmt.Errorf("%w: geometry is nil", ErrInvalidGeometry)
		}
		return AOI{}, fmt.Errorf("%w: AOI must be a polygon, got %s", ErrInvalidGeometry, g.GeoJSONType())
	}

	b := FromBound(g.Bound())
	if err := b.Validate(); err != nil {
		return AOI{}, err
	}
	return AOI{bbox: b, geometry: orb.Clone(g)}, nil
}

// BBox returns the AOI's bounding box.
func (a AOI) BBox() BBox {
	return a.bbox
}

// Geometry returns the AOI's polygon geometry, or the bbox rectangle when
// the AOI was built from a bbox.
func (a AOI) Geometry() orb.Geometry {
	if a.geometry == nil {
		return a.bbox.Bound().ToPolygon()
	}
	return orb.Clone(a.geometry)
}

// Polygon returns the AOI as a Polygon.
func (a AOI) Polygon() (Polygon, error) {
	return FromOrb(a.Geometry())
}

// IsZero reports whether the AOI was never initialised.
func (a AOI) IsZero() bool {
	return a.bbox == BBox{} && a.geometry == nil
}
