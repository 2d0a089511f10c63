package raster

import (
	"encoding/json"
	"fmt"
	"os"
)

// BandID identifies a Sentinel-2 band or a cloud product band.
type BandID string

const (
	BandBlue             BandID = "B02"
	BandGreen            BandID = "B03"
	BandNIR              BandID = "B8A"
	BandSWIR             BandID = "B12"
	BandCloudMask        BandID = "CLM"
	BandCloudProbability BandID = "CLP"
)

// String returns the underlying string value.
func (b BandID) String() string {
	return string(b)
}

// RequestedBands is the band order asked from tiling services. The order
// defines PositionalOffsets and must not change independently of it.
var RequestedBands = []BandID{
	BandNIR,
	BandSWIR,
	BandCloudMask,
	BandCloudProbability,
	BandBlue,
	BandGreen,
}

// PositionalOffsets is the fixed band offset table for single and batch composites.
var PositionalOffsets = map[BandID]int{
	BandNIR:              0,
	BandSWIR:             1,
	BandCloudMask:        2,
	BandCloudProbability: 3,
	BandBlue:             4,
	BandGreen:            5,
}

// ArchiveBands are the spectral bands kept from archive products.
var ArchiveBands = []BandID{BandBlue, BandGreen, BandNIR, BandSWIR}

// DownloadMode records how a composite was acquired. It decides the band
// axis order of the composite's pixels.
type DownloadMode string

const (
	ModeSingle  DownloadMode = "single"
	ModeBatch   DownloadMode = "batch"
	ModeArchive DownloadMode = "archiveMosaic"
)

// String returns the underlying string value.
func (m DownloadMode) String() string {
	return string(m)
}

// Layout returns the band axis order produced by the mode.
func (m DownloadMode) Layout() (Layout, error) {
	switch m {
	case ModeSingle:
		return BandsLast, nil
	case ModeBatch, ModeArchive:
		return BandsFirst, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, string(m))
	}
}

// BandIndex maps a band identifier to its offset inside a stacked raster.
type BandIndex map[string]int

// ReadBandIndex loads a band index written by WriteBandIndex.
func ReadBandIndex(path string) (BandIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read band index: %w", err)
	}
	var idx BandIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode band index %s: %w", path, err)
	}
	return idx, nil
}

// WriteBandIndex persists a band index as a flat JSON object.
func WriteBandIndex(path string, idx BandIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode band index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write band index: %w", err)
	}
	return nil
}

// Composite is one time window's raster together with the mode it was acquired in.
type Composite struct {
	Tile *Tile
	Mode DownloadMode

	// IndexPath points at the on-disk band index of an archive mosaic.
	IndexPath string
}

// View returns the band accessor appropriate for the composite's mode.
func (c *Composite) View() (BandView, error) {
	if c == nil || c.Tile == nil {
		return nil, fmt.Errorf("%w: empty composite", ErrInvalidShape)
	}
	layout, err := c.Mode.Layout()
	if err != nil {
		return nil, err
	}
	if c.Tile.Layout != layout {
		return nil, fmt.Errorf("%w: mode %s expects %s, tile is %s", ErrLayoutMismatch, c.Mode, layout, c.Tile.Layout)
	}

	switch c.Mode {
	case ModeArchive:
		idx, err := ReadBandIndex(c.IndexPath)
		if err != nil {
			return nil, err
		}
		return &indexedView{tile: c.Tile, index: idx}, nil
	default:
		return &positionalView{tile: c.Tile, bandsFirst: c.Mode == ModeBatch}, nil
	}
}
