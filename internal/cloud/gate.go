// Package cloud decides whether a composite is clear enough to use.
package cloud

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

// Cloud mask classes.
const (
	Clear  = 0
	Cloud  = 1
	NoData = 255
)

// DefaultThreshold is the maximum tolerated cloud-or-nodata percentage.
const DefaultThreshold = 10.0

var (
	// ErrRecalibrate signals that a composite is too cloudy and the
	// acquisition window must be widened.
	ErrRecalibrate = errors.New("cloud cover above threshold, recalibration required")

	// ErrMissingProbabilityBand is returned when the cloud probability band
	// is absent or does not match the mask.
	ErrMissingProbabilityBand = errors.New("cloud probability band missing")
)

// Decision is the outcome of a quality check.
type Decision int

const (
	Accept Decision = iota
	Recalibrate
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Recalibrate:
		return "recalibrate"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Stats is the cloud mask histogram restricted to the known classes.
type Stats struct {
	Clear  int
	Cloud  int
	NoData int
}

// Fraction returns the share of obscured pixels, in percent. When the
// cloud class is absent the denominator is clear plus nodata only.
func (s Stats) Fraction() float64 {
	switch {
	case s.Cloud > 0:
		return 100 * float64(s.Cloud+s.NoData) / float64(s.Clear+s.Cloud+s.NoData)
	case s.NoData > 0:
		return 100 * float64(s.NoData) / float64(s.Clear+s.NoData)
	default:
		return 0
	}
}

// Histogram counts clear, cloud and nodata pixels. Any other value is
// ambiguous and ignored.
func Histogram(mask []float64) Stats {
	var s Stats
	for _, v := range mask {
		switch v {
		case Clear:
			s.Clear++
		case Cloud:
			s.Cloud++
		case NoData:
			s.NoData++
		}
	}
	return s
}

// Gate accepts composites whose obscured fraction is at most Threshold percent.
type Gate struct {
	Threshold float64
}

// NewGate returns a gate with the given threshold, or DefaultThreshold when
// threshold is not positive.
func NewGate(threshold float64) Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Gate{Threshold: threshold}
}

// Evaluate decides on a cloud mask band. The probability band is only
// checked for presence.
func (g Gate) Evaluate(mask, probability []float64) (Decision, Stats, error) {
	if len(probability) == 0 || len(probability) != len(mask) {
		return Accept, Stats{}, fmt.Errorf("%w: %d values for %d mask pixels", ErrMissingProbabilityBand, len(probability), len(mask))
	}

	s := Histogram(mask)
	if s.Fraction() > g.Threshold {
		return Recalibrate, s, nil
	}
	return Accept, s, nil
}

// EvaluateView reads the cloud bands from a composite view and evaluates them.
func (g Gate) EvaluateView(view raster.BandView) (Decision, Stats, error) {
	mask, err := view.Band(raster.BandCloudMask)
	if err != nil {
		return Accept, Stats{}, fmt.Errorf("failed to read cloud mask: %w", err)
	}
	prob, err := view.Band(raster.BandCloudProbability)
	if err != nil {
		return Accept, Stats{}, fmt.Errorf("%w: %v", ErrMissingProbabilityBand, err)
	}
	return g.Evaluate(mask, prob)
}

// Check evaluates a composite and returns ErrRecalibrate when it is too cloudy.
func (g Gate) Check(c *raster.Composite) (Stats, error) {
	view, err := c.View()
	if err != nil {
		return Stats{}, err
	}
	d, s, err := g.EvaluateView(view)
	if err != nil {
		return s, err
	}
	if d == Recalibrate {
		return s, fmt.Errorf("%w: %.1f%% obscured", ErrRecalibrate, s.Fraction())
	}
	return s, nil
}
