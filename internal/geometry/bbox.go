package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const (
	metersPerDegreeLat = 110574.0
	metersPerDegreeLon = 111320.0
)

// BBox is a WGS84 bounding box.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// ParseBBox parses "west,south,east,north".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("%w: want 4 comma separated values, got %d", ErrInvalidBBox, len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("%w: value %d: %v", ErrInvalidBBox, i, err)
		}
		v[i] = f
	}

	b := BBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// FromSlice builds a bbox from [west, south, east, north].
func FromSlice(v []float64) (BBox, error) {
	if len(v) != 4 {
		return BBox{}, fmt.Errorf("%w: want 4 values, got %d", ErrInvalidBBox, len(v))
	}
	b := BBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	return b, b.Validate()
}

// FromBound converts an orb bound.
func FromBound(b orb.Bound) BBox {
	return BBox{West: b.Min[0], South: b.Min[1], East: b.Max[0], North: b.Max[1]}
}

// Validate checks ordering and WGS84 ranges.
func (b BBox) Validate() error {
	for _, v := range []float64{b.West, b.South, b.East, b.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBBox)
		}
	}
	if b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90 {
		return fmt.Errorf("%w: outside WGS84 range", ErrInvalidBBox)
	}
	if b.West >= b.East || b.South >= b.North {
		return fmt.Errorf("%w: west/south must be less than east/north", ErrInvalidBBox)
	}
	return nil
}

// Slice returns [west, south, east, north].
func (b BBox) Slice() []float64 {
	return []float64{b.West, b.South, b.East, b.North}
}

// Bound returns the bbox as an orb bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.West, b.South}, Max: orb.Point{b.East, b.North}}
}

// Polygon returns the bbox as a closed rectangle.
func (b BBox) Polygon() (Polygon, error) {
	return FromOrb(b.Bound())
}

// String formats the bbox the way ParseBBox reads it.
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}

// Cell is one piece of a pixel grid laid over a bbox.
type Cell struct {
	BBox
	Width  int
	Height int
}

// SplitGrid lays a width×height pixel grid over the bbox and cuts it into
// cols×rows cells along pixel boundaries. Cells are returned column by
// column, west to east, and south to north within a column. Every
// cell keeps the parent's degrees per pixel, so the cells mosaic back into
// the parent grid exactly. Cells differ by at most one pixel in each
// dimension. It returns nil when the grid has fewer pixels than cells.
func (b BBox) SplitGrid(cols, rows, width, height int) []Cell {
	if cols < 1 || rows < 1 || width < cols || height < rows {
		return nil
	}
	px := (b.East - b.West) / float64(width)
	py := (b.North - b.South) / float64(height)

	cells := make([]Cell, 0, cols*rows)
	for i := 0; i < cols; i++ {
		x0, x1 := i*width/cols, (i+1)*width/cols
		for j := 0; j < rows; j++ {
			y0, y1 := j*height/rows, (j+1)*height/rows
			cell := Cell{
				BBox: BBox{
					West:  b.West + float64(x0)*px,
					South: b.South + float64(y0)*py,
					East:  b.West + float64(x1)*px,
					North: b.South + float64(y1)*py,
				},
				Width:  x1 - x0,
				Height: y1 - y0,
			}
			// Pin the outer edges so floating point drift never leaves a gap.
			if i == cols-1 {
				cell.East = b.East
			}
			if j == rows-1 {
				cell.North = b.North
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// Dimensions returns the width and height in pixels of the bbox sampled at
// resolution meters per pixel. Longitude spans are scaled by the cosine of
// the centre latitude.
func (b BBox) Dimensions(resolution float64) (int, int) {
	if resolution <= 0 {
		return 0, 0
	}
	midLat := (b.South + b.North) / 2 * math.Pi / 180
	widthM := (b.East - b.West) * metersPerDegreeLon * math.Cos(midLat)
	heightM := (b.North - b.South) * metersPerDegreeLat
	return int(math.Round(widthM / resolution)), int(math.Round(heightM / resolution))
}
