// Package provider defines the imagery provider capabilities consumed by
// acquisition. Tiling services render a composite for a bounding box and
// date window; archive search engines return scene footprints to download.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/robert-malhotra/burn-severity/internal/cover"
	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/raster"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

// Kind discriminates the two provider families.
type Kind int

const (
	// TilingService renders composites on request (Sentinel Hub).
	TilingService Kind = iota
	// ArchiveSearch searches and downloads whole scenes (Copernicus archive).
	ArchiveSearch
)

func (k Kind) String() string {
	switch k {
	case TilingService:
		return "SH"
	case ArchiveSearch:
		return "CA"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a provider selector. SH and sentinelhub select the
// tiling service; CA, archive, copernicus and stac select the archive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sh", "sentinelhub":
		return TilingService, nil
	case "ca", "archive", "copernicus", "stac":
		return ArchiveSearch, nil
	default:
		return 0, &UnsupportedProviderError{Name: s}
	}
}

// UnsupportedProviderError is returned for an unrecognised provider selector.
type UnsupportedProviderError struct {
	Name string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported imagery provider %q (want SH or CA)", e.Name)
}

// FetchRequest asks a tiling service for one composite tile.
type FetchRequest struct {
	BBox   geometry.BBox
	Window window.DateWindow
	Bands  []raster.BandID
	Width  int
	Height int

	// Dest is the file the provider writes the raw tile to. Concurrent
	// requests always use distinct paths.
	Dest string
}

// TileFetcher is the tiling-service capability.
type TileFetcher interface {
	// Fetch returns the requested tile with bands on the last axis.
	Fetch(ctx context.Context, req FetchRequest) (*raster.Tile, error)

	// Name returns the provider name used in logs and metrics.
	Name() string
}

// Archive is the archive-search capability.
type Archive interface {
	// Search returns the footprints of scenes intersecting aoi within w
	// whose cloud cover is at most cloudCeiling percent.
	Search(ctx context.Context, aoi geometry.AOI, w window.DateWindow, cloudCeiling float64) ([]cover.Footprint, error)

	// Download fetches the scene archives into dir and returns their paths.
	Download(ctx context.Context, fps []cover.Footprint, dir string) ([]string, error)

	// Decompress extracts every archive in dir not yet extracted and
	// returns the scene directories.
	Decompress(dir string) ([]string, error)

	// ListFiles returns band files under dir with extension ext, limited to
	// the resolution directory (R10m, R20m, R60m) when resolution is set.
	ListFiles(dir, ext, resolution string) ([]string, error)

	// Convert writes a GeoTIFF copy of src and returns its path.
	Convert(src string) (string, error)

	// Name returns the provider name used in logs and metrics.
	Name() string
}
