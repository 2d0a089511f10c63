package severity

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

// composite builds a 2x2 single-mode composite with constant band values.
func composite(bands map[raster.BandID]float64) *raster.Composite {
	tile := raster.NewTile(2, 2, len(raster.RequestedBands), raster.BandsLast)
	tile.GeoTransform = [6]float64{500000, 10, 0, 4200000, 0, -10}
	tile.Projection = "EPSG:32610"
	for id, v := range bands {
		off := raster.PositionalOffsets[id]
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				tile.Set(off, r, c, v)
			}
		}
	}
	return &raster.Composite{Tile: tile, Mode: raster.ModeSingle}
}

func TestClassifier_ModerateLow(t *testing.T) {
	pre := composite(map[raster.BandID]float64{raster.BandNIR: 50, raster.BandSWIR: 10})
	post := composite(map[raster.BandID]float64{raster.BandNIR: 50, raster.BandSWIR: 25})

	c, err := NewClassifier(DefaultWaterConfig())
	if err != nil {
		t.Fatalf("NewClassifier() error: %v", err)
	}
	got, err := c.Run(pre, post)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if want := []int16{6, 6, 6, 6}; !slices.Equal(got.Codes, want) {
		t.Errorf("Codes = %v, want %v", got.Codes, want)
	}
	if got.GeoTransform != post.Tile.GeoTransform || got.Projection != "EPSG:32610" {
		t.Error("classified raster should carry the post-fire georeferencing")
	}
	if got.Histogram()[ModerateLowSeverity] != 4 {
		t.Errorf("Histogram() = %v", got.Histogram())
	}
}

func TestClassifier_WaterOverridesSeverity(t *testing.T) {
	pre := composite(map[raster.BandID]float64{raster.BandNIR: 50, raster.BandSWIR: 1})
	// Burn index drops from ~0.96 to 0: high severity without the mask.
	// SWM = (20+20)/(10+10) = 2.0.
	post := composite(map[raster.BandID]float64{
		raster.BandNIR:   10,
		raster.BandSWIR:  10,
		raster.BandBlue:  20,
		raster.BandGreen: 20,
	})
	post.Tile.Set(raster.PositionalOffsets[raster.BandBlue], 1, 1, 0)
	post.Tile.Set(raster.PositionalOffsets[raster.BandGreen], 1, 1, 0)

	c, _ := NewClassifier(DefaultWaterConfig())
	got, err := c.Run(pre, post)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if want := []int16{1, 1, 1, 8}; !slices.Equal(got.Codes, want) {
		t.Errorf("Codes = %v, want %v", got.Codes, want)
	}
}

func TestClassifier_MixedModes(t *testing.T) {
	pre := composite(map[raster.BandID]float64{raster.BandNIR: 50, raster.BandSWIR: 10})

	// Same values stored band-first as a batch mosaic.
	tile := raster.NewTile(2, 2, len(raster.RequestedBands), raster.BandsFirst)
	for r := 0; r < 2; r++ {
		for col := 0; col < 2; col++ {
			tile.Set(raster.PositionalOffsets[raster.BandNIR], r, col, 50)
			tile.Set(raster.PositionalOffsets[raster.BandSWIR], r, col, 25)
		}
	}
	post := &raster.Composite{Tile: tile, Mode: raster.ModeBatch}

	c, _ := NewClassifier(DefaultWaterConfig())
	got, err := c.Run(pre, post)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if want := []int16{6, 6, 6, 6}; !slices.Equal(got.Codes, want) {
		t.Errorf("Codes = %v, want %v", got.Codes, want)
	}
}

func TestClassifier_ShapeMismatch(t *testing.T) {
	pre := composite(map[raster.BandID]float64{raster.BandNIR: 1})
	post := &raster.Composite{Tile: raster.NewTile(3, 3, 6, raster.BandsLast), Mode: raster.ModeSingle}

	c, _ := NewClassifier(DefaultWaterConfig())
	if _, err := c.Run(pre, post); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Run() error = %v, want ErrShapeMismatch", err)
	}
}

func TestBurnIndex_ZeroDenominator(t *testing.T) {
	view, _ := composite(map[raster.BandID]float64{}).View()
	bi, err := BurnIndex(view)
	if err != nil {
		t.Fatalf("BurnIndex() error: %v", err)
	}
	for _, v := range bi {
		if !math.IsNaN(v) {
			t.Fatalf("BurnIndex() = %v, want NaN for zero reflectance", bi)
		}
	}
}

func TestWaterMask_NDWI(t *testing.T) {
	view, _ := composite(map[raster.BandID]float64{raster.BandGreen: 40, raster.BandNIR: 10}).View()
	cfg := DefaultWaterConfig()
	cfg.Method = WaterNDWI

	mask, err := WaterMask(view, cfg)
	if err != nil {
		t.Fatalf("WaterMask() error: %v", err)
	}
	// (40-10)/(40+10) = 0.6 > 0.3
	for _, v := range mask {
		if v != WaterSentinel {
			t.Fatalf("mask = %v, want all water", mask)
		}
	}

	cfg.NDWIThreshold = 0.7
	mask, _ = WaterMask(view, cfg)
	for _, v := range mask {
		if v != 0 {
			t.Fatalf("mask = %v, want no water above 0.7", mask)
		}
	}
}

func TestApplyMask(t *testing.T) {
	got, err := ApplyMask([]float64{0.5, 0.9, -0.2}, []float64{0, WaterSentinel, 0})
	if err != nil {
		t.Fatalf("ApplyMask() error: %v", err)
	}
	if want := []float64{0.5, WaterSentinel, -0.2}; !slices.Equal(got, want) {
		t.Errorf("ApplyMask() = %v, want %v", got, want)
	}

	if _, err := ApplyMask([]float64{1}, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("ApplyMask() error = %v, want ErrShapeMismatch", err)
	}
}

func TestWaterConfig_Validate(t *testing.T) {
	cfg := DefaultWaterConfig()
	cfg.SWMMin, cfg.SWMMax = 6, 1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject min > max")
	}

	cfg = DefaultWaterConfig()
	cfg.Method = "mndwi"
	if _, err := NewClassifier(cfg); !errors.Is(err, ErrUnknownWaterMethod) {
		t.Errorf("NewClassifier() error = %v, want ErrUnknownWaterMethod", err)
	}
}

func TestWriteLegend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "legend.json")
	legend := Legend{Water: "Water", Unburned: "Unburned", HighSeverity: "High Severity"}

	if err := WriteLegend(path, legend); err != nil {
		t.Fatalf("WriteLegend() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	want := `{"1":"Water","4":"Unburned","8":"High Severity"}`
	if string(data) != want {
		t.Errorf("legend file = %s, want %s", data, want)
	}
}
