// Package raster provides the in-memory raster types shared by the acquisition,
// mosaicking and classification stages.
package raster

import (
	"fmt"
	"math"
)

// Layout describes the axis order of a tile's pixel buffer.
type Layout int

const (
	// BandsLast stores pixels as rows × cols × bands (pixel interleaved).
	BandsLast Layout = iota
	// BandsFirst stores pixels as bands × rows × cols (band sequential).
	BandsFirst
)

// String returns a human readable name for the layout.
func (l Layout) String() string {
	switch l {
	case BandsLast:
		return "rows×cols×bands"
	case BandsFirst:
		return "bands×rows×cols"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Tile is a georeferenced multi-band raster.
// GeoTransform follows the GDAL affine convention:
// [originX, pixelWidth, rowRotation, originY, colRotation, pixelHeight].
type Tile struct {
	Data         []float64
	Rows         int
	Cols         int
	Bands        int
	Layout       Layout
	BandOrder    []string
	GeoTransform [6]float64
	Projection   string
}

// NewTile allocates a zero-filled tile.
func NewTile(rows, cols, bands int, layout Layout) *Tile {
	return &Tile{
		Data:   make([]float64, rows*cols*bands),
		Rows:   rows,
		Cols:   cols,
		Bands:  bands,
		Layout: layout,
	}
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (t *Tile) Validate() error {
	if t.Rows <= 0 || t.Cols <= 0 || t.Bands <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidShape, t.Rows, t.Cols, t.Bands)
	}
	if len(t.Data) != t.Rows*t.Cols*t.Bands {
		return fmt.Errorf("%w: buffer holds %d values, want %d", ErrInvalidShape, len(t.Data), t.Rows*t.Cols*t.Bands)
	}
	return nil
}

// Index returns the buffer offset of (band, row, col) for the tile's layout.
func (t *Tile) Index(band, row, col int) int {
	if t.Layout == BandsFirst {
		return band*t.Rows*t.Cols + row*t.Cols + col
	}
	return (row*t.Cols+col)*t.Bands + band
}

// At returns the value at (band, row, col).
func (t *Tile) At(band, row, col int) float64 {
	return t.Data[t.Index(band, row, col)]
}

// Set stores v at (band, row, col).
func (t *Tile) Set(band, row, col int, v float64) {
	t.Data[t.Index(band, row, col)] = v
}

// Band copies band b out as a row-major rows×cols slice.
func (t *Tile) Band(b int) ([]float64, error) {
	if b < 0 || b >= t.Bands {
		return nil, fmt.Errorf("%w: band %d of %d", ErrBandOutOfRange, b, t.Bands)
	}
	out := make([]float64, t.Rows*t.Cols)
	if t.Layout == BandsFirst {
		copy(out, t.Data[b*t.Rows*t.Cols:(b+1)*t.Rows*t.Cols])
		return out, nil
	}
	for i := range out {
		out[i] = t.Data[i*t.Bands+b]
	}
	return out, nil
}

// PixelSize returns the pixel width and height from the geotransform.
// Height is negative for north-up rasters.
func (t *Tile) PixelSize() (float64, float64) {
	return t.GeoTransform[1], t.GeoTransform[5]
}

// Bounds returns the georeferenced extent as minX, minY, maxX, maxY.
func (t *Tile) Bounds() (float64, float64, float64, float64) {
	gt := t.GeoTransform
	x0 := gt[0]
	x1 := gt[0] + float64(t.Cols)*gt[1]
	y0 := gt[3]
	y1 := gt[3] + float64(t.Rows)*gt[5]
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

// NorthUp reports whether the geotransform carries no rotation terms.
func (t *Tile) NorthUp() bool {
	return t.GeoTransform[2] == 0 && t.GeoTransform[4] == 0
}

// Clone returns a deep copy of the tile.
func (t *Tile) Clone() *Tile {
	c := *t
	c.Data = append([]float64(nil), t.Data...)
	c.BandOrder = append([]string(nil), t.BandOrder...)
	return &c
}

// ToLayout returns the tile with its buffer in layout l. The receiver is
// returned unchanged when it already uses l.
func (t *Tile) ToLayout(l Layout) *Tile {
	if t.Layout == l {
		return t
	}
	out := NewTile(t.Rows, t.Cols, t.Bands, l)
	out.BandOrder = append([]string(nil), t.BandOrder...)
	out.GeoTransform = t.GeoTransform
	out.Projection = t.Projection
	for b := 0; b < t.Bands; b++ {
		for r := 0; r < t.Rows; r++ {
			for c := 0; c < t.Cols; c++ {
				out.Set(b, r, c, t.At(b, r, c))
			}
		}
	}
	return out
}
