package severity

import (
	"math"
	"strconv"
)

// Class is a severity class code as written to the output raster.
type Class int16

const (
	Water                Class = 1
	EnhancedRegrowthHigh Class = 2
	EnhancedRegrowthLow  Class = 3
	Unburned             Class = 4
	LowSeverity          Class = 5
	ModerateLowSeverity  Class = 6
	ModerateHighSeverity Class = 7
	HighSeverity         Class = 8
	Unclassified         Class = 9
)

// WaterSentinel marks water pixels in masks and masked difference images.
const WaterSentinel = -15.0

var labels = map[Class]string{
	Water:                "Water",
	EnhancedRegrowthHigh: "Enhanced Regrowth, high",
	EnhancedRegrowthLow:  "Enhanced Regrowth, low",
	Unburned:             "Unburned",
	LowSeverity:          "Low Severity",
	ModerateLowSeverity:  "Moderate-low Severity",
	ModerateHighSeverity: "Moderate-high Severity",
	HighSeverity:         "High Severity",
	Unclassified:         "Unclassified",
}

// Label returns the human readable class name.
func (c Class) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return "Class " + strconv.Itoa(int(c))
}

// bounds is the ascending threshold table. Each entry covers
// (previous upper, upper].
var bounds = []struct {
	upper float64
	class Class
}{
	{-13, Water},
	{-0.25, EnhancedRegrowthHigh},
	{-0.1, EnhancedRegrowthLow},
	{0.1, Unburned},
	{0.27, LowSeverity},
	{0.44, ModerateLowSeverity},
	{0.66, ModerateHighSeverity},
	{40.3, HighSeverity},
}

// ClassifyValue maps one masked difference value to its class. The water
// sentinel and anything at or below -13 is water; NaN and values above the
// table are unclassified.
func ClassifyValue(v float64) Class {
	if math.IsNaN(v) {
		return Unclassified
	}
	for _, b := range bounds {
		if v <= b.upper {
			return b.class
		}
	}
	return Unclassified
}

// Classify maps every pixel of a masked difference image to its class code.
func Classify(img []float64) []int16 {
	out := make([]int16, len(img))
	for i, v := range img {
		out[i] = int16(ClassifyValue(v))
	}
	return out
}

// Legend maps class code to label.
type Legend map[Class]string

// DefaultLegend returns the legend for every class Classify can emit.
func DefaultLegend() Legend {
	l := make(Legend, len(labels))
	for c, label := range labels {
		l[c] = label
	}
	return l
}

// Strings returns the legend keyed by the decimal class code.
func (l Legend) Strings() map[string]string {
	out := make(map[string]string, len(l))
	for c, label := range l {
		out[strconv.Itoa(int(c))] = label
	}
	return out
}
