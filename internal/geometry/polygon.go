// Package geometry implements the footprint geometry used by tile splitting
// and cover reduction: areas, intersections and unions of polygons in
// WGS84 degrees, and bounding boxes of areas of interest.
package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/twpayne/go-geos"
)

// Epsilon is the area tolerance in square degrees. Two areas closer than
// Epsilon are considered equal, so a footprint adding less than Epsilon of
// new area contributes nothing to a cover.
const Epsilon = 0.001

// Polygon is an immutable planar (multi)polygon. The zero value is empty.
type Polygon struct {
	g *geos.Geom
}

// FromWKT parses a POLYGON or MULTIPOLYGON in well-known text.
func FromWKT(s string) (Polygon, error) {
	g, err := geos.NewGeomFromWKT(s)
	if err != nil {
		return Polygon{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return Polygon{g: g}, nil
}

// FromOrb converts an orb polygon, multipolygon or bound.
func FromOrb(g orb.Geometry) (Polygon, error) {
	switch v := g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return FromWKT(wkt.MarshalString(v))
	case orb.Bound:
		return FromWKT(wkt.MarshalString(v.ToPolygon()))
	case nil:
		return Polygon{}, fmt.Errorf("%w: geometry is nil", ErrInvalidGeometry)
	default:
		return Polygon{}, fmt.Errorf("%w: unsupported type %s", ErrInvalidGeometry, g.GeoJSONType())
	}
}

// Area returns the planar area in square degrees. Empty polygons have zero area.
func (p Polygon) Area() float64 {
	if p.g == nil || p.g.IsEmpty() {
		return 0
	}
	return p.g.Area()
}

// IsEmpty reports whether the polygon covers no points.
func (p Polygon) IsEmpty() bool {
	return p.g == nil || p.g.IsEmpty()
}

// WKT returns the polygon as well-known text.
func (p Polygon) WKT() string {
	if p.g == nil {
		return "POLYGON EMPTY"
	}
	return p.g.ToWKT()
}

// Intersection returns p ∩ q, which may be empty.
func Intersection(p, q Polygon) Polygon {
	if p.IsEmpty() || q.IsEmpty() {
		return Polygon{}
	}
	return Polygon{g: p.g.Intersection(q.g)}
}

// Union returns the union of all polygons. Empty inputs are ignored and the
// union of nothing is empty.
func Union(ps ...Polygon) Polygon {
	var acc *geos.Geom
	for _, p := range ps {
		if p.IsEmpty() {
			continue
		}
		if acc == nil {
			acc = p.g
			continue
		}
		acc = acc.Union(p.g)
	}
	return Polygon{g: acc}
}

// AreaEqual reports whether two areas differ by less than Epsilon.
func AreaEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}
