package severity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gowebpki/jcs"

	"github.com/robert-malhotra/burn-severity/internal/raster"
)

// Classified is the terminal severity raster.
type Classified struct {
	Codes        []int16
	Rows         int
	Cols         int
	GeoTransform [6]float64
	Projection   string
	Legend       Legend
}

// Histogram counts pixels per class.
func (c *Classified) Histogram() map[Class]int {
	h := make(map[Class]int)
	for _, v := range c.Codes {
		h[Class(v)]++
	}
	return h
}

// Classifier runs the full index, mask and classification pipeline.
type Classifier struct {
	Water WaterConfig
}

// NewClassifier returns a classifier using water mask settings cfg.
func NewClassifier(cfg WaterConfig) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{Water: cfg}, nil
}

// Run classifies the burn index difference between pre and post. The water
// mask and the georeferencing come from the post-fire composite.
func (c *Classifier) Run(pre, post *raster.Composite) (*Classified, error) {
	preView, err := pre.View()
	if err != nil {
		return nil, fmt.Errorf("pre-fire composite: %w", err)
	}
	postView, err := post.View()
	if err != nil {
		return nil, fmt.Errorf("post-fire composite: %w", err)
	}
	if preView.Rows() != postView.Rows() || preView.Cols() != postView.Cols() {
		return nil, fmt.Errorf("%w: pre %dx%d, post %dx%d", ErrShapeMismatch,
			preView.Rows(), preView.Cols(), postView.Rows(), postView.Cols())
	}

	preBI, err := BurnIndex(preView)
	if err != nil {
		return nil, fmt.Errorf("pre-fire burn index: %w", err)
	}
	postBI, err := BurnIndex(postView)
	if err != nil {
		return nil, fmt.Errorf("post-fire burn index: %w", err)
	}
	diff, err := Difference(preBI, postBI)
	if err != nil {
		return nil, err
	}

	mask, err := WaterMask(postView, c.Water)
	if err != nil {
		return nil, fmt.Errorf("water mask: %w", err)
	}
	masked, err := ApplyMask(diff, mask)
	if err != nil {
		return nil, err
	}

	return &Classified{
		Codes:        Classify(masked),
		Rows:         postView.Rows(),
		Cols:         postView.Cols(),
		GeoTransform: post.Tile.GeoTransform,
		Projection:   post.Tile.Projection,
		Legend:       DefaultLegend(),
	}, nil
}

// WriteLegend writes the legend as canonical JSON keyed by class code.
func WriteLegend(path string, legend Legend) error {
	raw, err := json.Marshal(legend.Strings())
	if err != nil {
		return fmt.Errorf("failed to encode legend: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("failed to canonicalize legend: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create legend directory: %w", err)
	}
	if err := os.WriteFile(path, canonical, 0o644); err != nil {
		return fmt.Errorf("failed to write legend: %w", err)
	}
	return nil
}
