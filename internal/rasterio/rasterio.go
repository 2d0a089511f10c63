// Package rasterio reads and writes georeferenced rasters through GDAL.
package rasterio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

var registerOnce sync.Once

// Register loads the GDAL drivers. It is safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// ReadTile reads every band of the raster at path into a tile with the
// requested layout.
func ReadTile(path string, layout raster.Layout) (*raster.Tile, error) {
	Register()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	tile := raster.NewTile(st.SizeY, st.SizeX, st.NBands, layout)
	if err := fillGeoref(ds, tile); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	switch layout {
	case raster.BandsLast:
		// Dataset reads are pixel interleaved.
		if err := ds.Read(0, 0, tile.Data, st.SizeX, st.SizeY); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	default:
		n := st.SizeX * st.SizeY
		for i, band := range ds.Bands() {
			if err := band.Read(0, 0, tile.Data[i*n:(i+1)*n], st.SizeX, st.SizeY); err != nil {
				return nil, fmt.Errorf("failed to read band %d of %s: %w", i+1, path, err)
			}
		}
	}
	return tile, nil
}

// ReadStack reads the first band of each path and stacks them band-first in
// path order. All rasters must share dimensions; georeferencing is taken
// from the first.
func ReadStack(paths []string) (*raster.Tile, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no rasters to stack", raster.ErrInvalidShape)
	}

	var stack *raster.Tile
	for i, p := range paths {
		t, err := ReadTile(p, raster.BandsFirst)
		if err != nil {
			return nil, err
		}
		if stack == nil {
			stack = raster.NewTile(t.Rows, t.Cols, len(paths), raster.BandsFirst)
			stack.GeoTransform = t.GeoTransform
			stack.Projection = t.Projection
		}
		if t.Rows != stack.Rows || t.Cols != stack.Cols {
			return nil, fmt.Errorf("%w: %s is %dx%d, stack is %dx%d", raster.ErrInvalidShape, p, t.Rows, t.Cols, stack.Rows, stack.Cols)
		}
		n := t.Rows * t.Cols
		copy(stack.Data[i*n:(i+1)*n], t.Data[:n])
		stack.BandOrder = append(stack.BandOrder, filepath.Base(p))
	}
	return stack, nil
}

// WriteTile writes a tile as a multi-band Float32 GeoTIFF.
func WriteTile(path string, t *raster.Tile) error {
	Register()
	if err := t.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	ds, err := godal.Create(godal.GTiff, path, t.Bands, godal.Float32, t.Cols, t.Rows)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := setGeoref(ds, t.GeoTransform, t.Projection); err != nil {
		ds.Close()
		return fmt.Errorf("%s: %w", path, err)
	}

	if t.Layout == raster.BandsLast {
		err = ds.Write(0, 0, t.Data, t.Cols, t.Rows)
	} else {
		n := t.Rows * t.Cols
		for i, band := range ds.Bands() {
			if err = band.Write(0, 0, t.Data[i*n:(i+1)*n], t.Cols, t.Rows); err != nil {
				break
			}
		}
	}
	if err != nil {
		ds.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// WriteClassified writes a single-band Int16 GeoTIFF.
func WriteClassified(path string, codes []int16, rows, cols int, geoTransform [6]float64, projection string) error {
	Register()
	if len(codes) != rows*cols {
		return fmt.Errorf("%w: %d codes for %dx%d", raster.ErrInvalidShape, len(codes), rows, cols)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Int16, cols, rows)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := setGeoref(ds, geoTransform, projection); err != nil {
		ds.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := ds.Bands()[0].Write(0, 0, codes, cols, rows); err != nil {
		ds.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// ConvertToGeoTIFF translates any GDAL-readable raster (JPEG 2000 scene
// bands in practice) to a GeoTIFF at dst.
func ConvertToGeoTIFF(src, dst string) error {
	Register()

	ds, err := godal.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer ds.Close()

	out, err := ds.Translate(dst, []string{"-of", "GTiff"})
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", dst, err)
	}
	return nil
}

func fillGeoref(ds *godal.Dataset, t *raster.Tile) error {
	gt, err := ds.GeoTransform()
	if err != nil {
		return fmt.Errorf("failed to read geotransform: %w", err)
	}
	t.GeoTransform = gt
	t.Projection = ds.Projection()
	return nil
}

func setGeoref(ds *godal.Dataset, gt [6]float64, projection string) error {
	if err := ds.SetGeoTransform(gt); err != nil {
		return fmt.Errorf("failed to set geotransform: %w", err)
	}
	if projection == "" {
		return nil
	}
	if err := ds.SetProjection(projection); err != nil {
		return fmt.Errorf("failed to set projection: %w", err)
	}
	return nil
}
