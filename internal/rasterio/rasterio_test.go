package rasterio

import (
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

func sampleTile(layout raster.Layout) *raster.Tile {
	t := raster.NewTile(3, 4, 2, layout)
	t.GeoTransform = [6]float64{-120.5, 0.0001, 0, 38.5, 0, -0.0001}
	for b := 0; b < 2; b++ {
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				t.Set(b, r, c, float64(100*b+10*r+c))
			}
		}
	}
	return t
}

func TestWriteTile_ReadTileLayouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles", "a.tiff")
	in := sampleTile(raster.BandsLast)
	if err := WriteTile(path, in); err != nil {
		t.Fatalf("WriteTile() error: %v", err)
	}

	for _, layout := range []raster.Layout{raster.BandsLast, raster.BandsFirst} {
		got, err := ReadTile(path, layout)
		if err != nil {
			t.Fatalf("ReadTile(%s) error: %v", layout, err)
		}
		if got.Rows != 3 || got.Cols != 4 || got.Bands != 2 {
			t.Fatalf("ReadTile(%s) shape = %dx%dx%d", layout, got.Rows, got.Cols, got.Bands)
		}
		if got.At(1, 2, 3) != 123 || got.At(0, 1, 0) != 10 {
			t.Errorf("ReadTile(%s) values (1,2,3)=%v (0,1,0)=%v", layout, got.At(1, 2, 3), got.At(0, 1, 0))
		}
		if got.GeoTransform != in.GeoTransform {
			t.Errorf("GeoTransform = %v, want %v", got.GeoTransform, in.GeoTransform)
		}
	}
}

func TestReadStack(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, name := range []string{"B02.tiff", "B8A.tiff"} {
		tile := raster.NewTile(2, 2, 1, raster.BandsFirst)
		tile.GeoTransform = [6]float64{0, 20, 0, 40, 0, -20}
		for j := range tile.Data {
			tile.Data[j] = float64(i*10 + j)
		}
		p := filepath.Join(dir, name)
		if err := WriteTile(p, tile); err != nil {
			t.Fatalf("WriteTile() error: %v", err)
		}
		paths = append(paths, p)
	}

	stack, err := ReadStack(paths)
	if err != nil {
		t.Fatalf("ReadStack() error: %v", err)
	}
	if stack.Bands != 2 || stack.Layout != raster.BandsFirst {
		t.Fatalf("stack has %d bands in %s", stack.Bands, stack.Layout)
	}
	if stack.At(1, 1, 1) != 13 {
		t.Errorf("stack (1,1,1) = %v, want 13", stack.At(1, 1, 1))
	}
}

func TestWriteClassified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.tiff")
	codes := []int16{1, 4, 6, 9}
	gt := [6]float64{500000, 10, 0, 4200000, 0, -10}

	if err := WriteClassified(path, codes, 2, 2, gt, ""); err != nil {
		t.Fatalf("WriteClassified() error: %v", err)
	}

	got, err := ReadTile(path, raster.BandsFirst)
	if err != nil {
		t.Fatalf("ReadTile() error: %v", err)
	}
	for i, want := range codes {
		if got.Data[i] != float64(want) {
			t.Errorf("pixel %d = %v, want %d", i, got.Data[i], want)
		}
	}

	if err := WriteClassified(path, codes, 3, 3, gt, ""); err == nil {
		t.Error("WriteClassified() should reject a short buffer")
	}
}
