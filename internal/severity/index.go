// Package severity turns pre-fire and post-fire composites into a discrete
// burn-severity map.
package severity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

var (
	// ErrShapeMismatch is returned when two images do not have the same pixel count.
	ErrShapeMismatch = errors.New("image shapes differ")

	// ErrUnknownWaterMethod is returned for a water mask method other than swm or ndwi.
	ErrUnknownWaterMethod = errors.New("unknown water mask method")
)

// WaterMethod selects the water index.
type WaterMethod string

const (
	// WaterSWM is (Blue+Green)/(NIR+SWIR) within [SWMMin, SWMMax].
	WaterSWM WaterMethod = "swm"
	// WaterNDWI is (Green-NIR)/(Green+NIR) above NDWIThreshold.
	WaterNDWI WaterMethod = "ndwi"
)

// ParseWaterMethod parses "swm" or "ndwi".
func ParseWaterMethod(s string) (WaterMethod, error) {
	switch m := WaterMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case WaterSWM, WaterNDWI:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWaterMethod, s)
	}
}

// WaterConfig holds the water mask method and thresholds.
type WaterConfig struct {
	Method        WaterMethod `yaml:"method"`
	SWMMin        float64     `yaml:"min"`
	SWMMax        float64     `yaml:"max"`
	NDWIThreshold float64     `yaml:"ndwi"`
}

// DefaultWaterConfig returns the SWM mask over [1.1, 5.6].
func DefaultWaterConfig() WaterConfig {
	return WaterConfig{
		Method:        WaterSWM,
		SWMMin:        1.1,
		SWMMax:        5.6,
		NDWIThreshold: 0.3,
	}
}

// Validate checks the method and threshold ordering.
func (c WaterConfig) Validate() error {
	if _, err := ParseWaterMethod(string(c.Method)); err != nil {
		return err
	}
	if c.Method == WaterSWM && c.SWMMin > c.SWMMax {
		return fmt.Errorf("swm min %.3f is greater than max %.3f", c.SWMMin, c.SWMMax)
	}
	return nil
}

func normalizedDifference(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		sum := a[i] + b[i]
		if sum == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (a[i] - b[i]) / sum
	}
	return out
}

// BurnIndex returns (NIR-SWIR)/(NIR+SWIR) per pixel. Pixels with a zero
// denominator are NaN.
func BurnIndex(view raster.BandView) ([]float64, error) {
	nir, err := view.Band(raster.BandNIR)
	if err != nil {
		return nil, fmt.Errorf("failed to read NIR band: %w", err)
	}
	swir, err := view.Band(raster.BandSWIR)
	if err != nil {
		return nil, fmt.Errorf("failed to read SWIR band: %w", err)
	}
	return normalizedDifference(nir, swir), nil
}

// WaterMask returns WaterSentinel for water pixels and 0 elsewhere.
func WaterMask(view raster.BandView, cfg WaterConfig) ([]float64, error) {
	green, err := view.Band(raster.BandGreen)
	if err != nil {
		return nil, fmt.Errorf("failed to read green band: %w", err)
	}
	nir, err := view.Band(raster.BandNIR)
	if err != nil {
		return nil, fmt.Errorf("failed to read NIR band: %w", err)
	}

	mask := make([]float64, len(green))
	switch cfg.Method {
	case WaterNDWI:
		for i, v := range normalizedDifference(green, nir) {
			if v > cfg.NDWIThreshold {
				mask[i] = WaterSentinel
			}
		}
	case WaterSWM:
		blue, err := view.Band(raster.BandBlue)
		if err != nil {
			return nil, fmt.Errorf("failed to read blue band: %w", err)
		}
		swir, err := view.Band(raster.BandSWIR)
		if err != nil {
			return nil, fmt.Errorf("failed to read SWIR band: %w", err)
		}
		for i := range mask {
			den := nir[i] + swir[i]
			if den == 0 {
				continue
			}
			ratio := (blue[i] + green[i]) / den
			if ratio >= cfg.SWMMin && ratio <= cfg.SWMMax {
				mask[i] = WaterSentinel
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWaterMethod, cfg.Method)
	}
	return mask, nil
}

// Difference returns pre - post per pixel.
func Difference(pre, post []float64) ([]float64, error) {
	if len(pre) != len(post) {
		return nil, fmt.Errorf("%w: pre has %d pixels, post has %d", ErrShapeMismatch, len(pre), len(post))
	}
	out := make([]float64, len(pre))
	for i := range pre {
		out[i] = pre[i] - post[i]
	}
	return out, nil
}

// ApplyMask overwrites img with WaterSentinel wherever mask holds it.
// img is not modified; a new slice is returned.
func ApplyMask(img, mask []float64) ([]float64, error) {
	if len(img) != len(mask) {
		return nil, fmt.Errorf("%w: image has %d pixels, mask has %d", ErrShapeMismatch, len(img), len(mask))
	}
	out := make([]float64, len(img))
	for i, v := range img {
		if mask[i] == WaterSentinel {
			v = WaterSentinel
		}
		out[i] = v
	}
	return out, nil
}
