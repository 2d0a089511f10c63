package rasterio

import (
	"github.com/robert-malhotra/burn-severity/internal/raster"
	"github.com/robert-malhotra/burn-severity/internal/severity"
)

// Store is the GDAL-backed raster store used by acquisition and the pipeline.
type Store struct{}

// NewStore registers the GDAL drivers and returns a Store.
func NewStore() *Store {
	Register()
	return &Store{}
}

func (*Store) ReadTile(path string, layout raster.Layout) (*raster.Tile, error) {
	return ReadTile(path, layout)
}

func (*Store) ReadStack(paths []string) (*raster.Tile, error) {
	return ReadStack(paths)
}

func (*Store) WriteTile(path string, t *raster.Tile) error {
	return WriteTile(path, t)
}

func (*Store) Convert(src, dst string) error {
	return ConvertToGeoTIFF(src, dst)
}

// WriteClassified writes a classified raster with its georeferencing.
func (*Store) WriteClassified(path string, c *severity.Classified) error {
	return WriteClassified(path, c.Codes, c.Rows, c.Cols, c.GeoTransform, c.Projection)
}
