package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/severity"
)

func classified() *severity.Classified {
	return &severity.Classified{
		Codes: []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 6, 6},
		Rows:  3,
		Cols:  4,
	}
}

func TestFileName(t *testing.T) {
	start := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 8, 20, 0, 0, 0, 0, time.UTC)
	if got := FileName(start, end); got != "Fire_2023-08-01_2023-08-20.png" {
		t.Errorf("FileName() = %s", got)
	}
}

func TestRaster(t *testing.T) {
	img := Raster(classified())

	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v, want 4x3", img.Bounds())
	}
	tests := []struct {
		x, y int
		want severity.Class
	}{
		{0, 0, severity.Water},
		{3, 0, severity.Unburned},
		{2, 1, severity.ModerateHighSeverity},
		{2, 2, severity.ModerateLowSeverity},
	}
	for _, tt := range tests {
		r, g, b, _ := img.At(tt.x, tt.y).RGBA()
		wr, wg, wb, _ := Palette[tt.want].RGBA()
		if r != wr || g != wg || b != wb {
			t.Errorf("pixel (%d,%d) colour does not match %s", tt.x, tt.y, tt.want.Label())
		}
	}

	// Code 0 is outside the table and stays white.
	if r, g, b, _ := img.At(1, 2).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		t.Error("out-of-table code should render white")
	}
}

func TestMap_UpscalesSmallRasters(t *testing.T) {
	img := Map(classified(), DefaultTitle)

	// 4 columns scaled by 150 plus margins and the legend panel.
	if w := img.Bounds().Dx(); w != margin+600+margin+legendWidth {
		t.Errorf("width = %d", w)
	}
	r, g, b, _ := img.At(margin+10, titleHeight+margin+10).RGBA()
	if r != 0 || g != 0 || b != 0xffff {
		t.Errorf("top-left map pixel = %v %v %v, want water blue", r, g, b)
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps", "Fire.png")
	if err := WritePNG(path, classified(), DefaultTitle); err != nil {
		t.Fatalf("WritePNG() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("written file is not a PNG: %v", err)
	}

	bad := &severity.Classified{Codes: []int16{1}, Rows: 2, Cols: 2}
	if err := WritePNG(path, bad, DefaultTitle); err == nil {
		t.Error("WritePNG() should reject a mismatched raster")
	}
}
