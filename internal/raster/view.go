package raster

import "fmt"

// BandView gives uniform access to the bands of a composite regardless of
// how the composite was acquired.
type BandView interface {
	// Band returns a row-major rows×cols copy of the identified band.
	Band(id BandID) ([]float64, error)
	Rows() int
	Cols() int
}

// positionalView resolves bands through PositionalOffsets. Single-request
// tiles keep bands on the last axis; batch mosaics keep them on the first.
type positionalView struct {
	tile       *Tile
	bandsFirst bool
}

func (v *positionalView) Band(id BandID) ([]float64, error) {
	offset, ok := PositionalOffsets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBand, id)
	}
	t := v.tile
	if offset >= t.Bands {
		return nil, fmt.Errorf("%w: %s at offset %d of %d", ErrBandOutOfRange, id, offset, t.Bands)
	}

	out := make([]float64, t.Rows*t.Cols)
	if v.bandsFirst {
		copy(out, t.Data[offset*t.Rows*t.Cols:(offset+1)*t.Rows*t.Cols])
		return out, nil
	}
	for i := range out {
		out[i] = t.Data[i*t.Bands+offset]
	}
	return out, nil
}

func (v *positionalView) Rows() int { return v.tile.Rows }
func (v *positionalView) Cols() int { return v.tile.Cols }

// indexedView resolves bands through a band index loaded from disk.
type indexedView struct {
	tile  *Tile
	index BandIndex
}

func (v *indexedView) Band(id BandID) ([]float64, error) {
	offset, ok := v.index[string(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in band index", ErrUnknownBand, id)
	}
	return v.tile.Band(offset)
}

func (v *indexedView) Rows() int { return v.tile.Rows }
func (v *indexedView) Cols() int { return v.tile.Cols }
