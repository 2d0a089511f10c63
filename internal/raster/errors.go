package raster

import "errors"

var (
	// ErrInvalidShape is returned when a tile's buffer does not match its dimensions.
	ErrInvalidShape = errors.New("invalid raster shape")

	// ErrBandOutOfRange is returned when a band offset is outside the tile.
	ErrBandOutOfRange = errors.New("band index out of range")

	// ErrUnknownBand is returned when a band identifier has no offset for the composite.
	ErrUnknownBand = errors.New("unknown band")

	// ErrUnknownMode is returned for a download mode outside {single, batch, archiveMosaic}.
	ErrUnknownMode = errors.New("unknown download mode")

	// ErrLayoutMismatch is returned when a composite's tile layout disagrees with its download mode.
	ErrLayoutMismatch = errors.New("tile layout does not match download mode")
)
