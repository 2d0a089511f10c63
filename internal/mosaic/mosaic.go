// Package mosaic merges co-registered raster tiles into a single raster.
package mosaic

import (
	"errors"
	"fmt"
	"math"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

// ErrNoTiles is returned when there is nothing to merge.
var ErrNoTiles = errors.New("no tiles to mosaic")

// tolerance for comparing pixel sizes, as a fraction of the pixel size.
const tolerance = 1e-6

// IncompatibleTileError reports a tile that cannot be merged with the first one.
type IncompatibleTileError struct {
	Index  int
	Reason string
}

func (e *IncompatibleTileError) Error() string {
	return fmt.Sprintf("tile %d is incompatible with tile 0: %s", e.Index, e.Reason)
}

// Merge combines tiles into one BandsFirst raster covering their union
// extent. Where tiles overlap the earliest tile in the slice wins. Pixels
// covered by no tile are zero. A single tile is returned unchanged (as a copy).
func Merge(tiles []*raster.Tile) (*raster.Tile, error) {
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}
	for i, t := range tiles {
		if t == nil {
			return nil, &IncompatibleTileError{Index: i, Reason: "tile is nil"}
		}
		if err := t.Validate(); err != nil {
			return nil, &IncompatibleTileError{Index: i, Reason: err.Error()}
		}
	}
	if len(tiles) == 1 {
		return tiles[0].Clone(), nil
	}

	ref := tiles[0]
	if err := checkCompatible(ref, tiles); err != nil {
		return nil, err
	}

	pw, ph := ref.PixelSize()
	minX, minY, maxX, maxY := ref.Bounds()
	for _, t := range tiles[1:] {
		x0, y0, x1, y1 := t.Bounds()
		minX, minY = math.Min(minX, x0), math.Min(minY, y0)
		maxX, maxY = math.Max(maxX, x1), math.Max(maxY, y1)
	}

	cols := int(math.Round((maxX - minX) / pw))
	rows := int(math.Round((maxY - minY) / -ph))
	out := raster.NewTile(rows, cols, ref.Bands, raster.BandsFirst)
	out.GeoTransform = [6]float64{minX, pw, 0, maxY, 0, ph}
	out.Projection = ref.Projection
	out.BandOrder = append([]string(nil), ref.BandOrder...)

	written := make([]bool, rows*cols)
	for _, t := range tiles {
		colOff := int(math.Round((t.GeoTransform[0] - minX) / pw))
		rowOff := int(math.Round((t.GeoTransform[3] - maxY) / ph))
		for r := 0; r < t.Rows; r++ {
			dr := r + rowOff
			if dr < 0 || dr >= rows {
				continue
			}
			for c := 0; c < t.Cols; c++ {
				dc := c + colOff
				if dc < 0 || dc >= cols || written[dr*cols+dc] {
					continue
				}
				written[dr*cols+dc] = true
				for b := 0; b < t.Bands; b++ {
					out.Set(b, dr, dc, t.At(b, r, c))
				}
			}
		}
	}
	return out, nil
}

func checkCompatible(ref *raster.Tile, tiles []*raster.Tile) error {
	pw, ph := ref.PixelSize()
	if pw <= 0 || ph >= 0 || !ref.NorthUp() {
		return &IncompatibleTileError{Index: 0, Reason: "geotransform is not north-up"}
	}
	for i, t := range tiles[1:] {
		idx := i + 1
		if t.Bands != ref.Bands {
			return &IncompatibleTileError{Index: idx, Reason: fmt.Sprintf("band count %d, want %d", t.Bands, ref.Bands)}
		}
		tw, th := t.PixelSize()
		if math.Abs(tw-pw) > tolerance*pw || math.Abs(th-ph) > tolerance*-ph {
			return &IncompatibleTileError{Index: idx, Reason: fmt.Sprintf("pixel size %gx%g, want %gx%g", tw, th, pw, ph)}
		}
		if !t.NorthUp() {
			return &IncompatibleTileError{Index: idx, Reason: "geotransform is not north-up"}
		}
		if t.Projection != ref.Projection {
			return &IncompatibleTileError{Index: idx, Reason: "projection differs"}
		}
	}
	return nil
}
