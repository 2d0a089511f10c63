// Package pipeline runs a complete burn severity mapping: pre- and
// post-fire acquisition, classification and output writing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/observability"
	"github.com/robert-malhotra/burn-severity/internal/render"
	"github.com/robert-malhotra/burn-severity/internal/severity"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

var (
	// ErrInvalidDates is returned when the fire end precedes its start.
	ErrInvalidDates = errors.New("fire end date is before start date")

	// ErrMissingAOI is returned when a request has no area of interest.
	ErrMissingAOI = errors.New("area of interest is required")
)

// Acquirers binds an area of interest to a window acquirer.
type Acquirers interface {
	For(aoi geometry.AOI) window.Acquirer
}

// ClassifiedWriter persists the classified raster.
type ClassifiedWriter interface {
	WriteClassified(path string, c *severity.Classified) error
}

// Request describes one fire.
type Request struct {
	Start time.Time
	End   time.Time
	AOI   geometry.AOI
}

// Validate checks the request dates and AOI.
func (r Request) Validate() error {
	if r.AOI.IsZero() {
		return ErrMissingAOI
	}
	if window.Day(r.End).Before(window.Day(r.Start)) {
		return fmt.Errorf("%w: %s < %s", ErrInvalidDates, r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return nil
}

// Paths names the output files of a run.
type Paths struct {
	Raster   string
	Legend   string
	ImageDir string
}

// Options configures a pipeline.
type Options struct {
	Window window.Config
	Water  severity.WaterConfig
	Paths  Paths
	Title  string
}

// Outputs lists the files written by a run.
type Outputs struct {
	Raster string `json:"raster"`
	Legend string `json:"legend"`
	Image  string `json:"image"`
}

// Result is the outcome of a successful run.
type Result struct {
	Pre        *window.Result
	Post       *window.Result
	Classified *severity.Classified
	Outputs    Outputs
}

// Pipeline maps burn severity for fires.
type Pipeline struct {
	acquirers  Acquirers
	writer     ClassifiedWriter
	classifier *severity.Classifier
	opts       Options
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a pipeline. The water settings are validated here.
func New(acquirers Acquirers, writer ClassifiedWriter, opts Options) (*Pipeline, error) {
	classifier, err := severity.NewClassifier(opts.Water)
	if err != nil {
		return nil, fmt.Errorf("invalid water mask settings: %w", err)
	}
	if opts.Title == "" {
		opts.Title = render.DefaultTitle
	}
	return &Pipeline{
		acquirers:  acquirers,
		writer:     writer,
		classifier: classifier,
		opts:       opts,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.Default(),
	}, nil
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// WithMetrics sets the metrics sink.
func (p *Pipeline) WithMetrics(m *observability.Metrics) *Pipeline {
	p.metrics = m
	return p
}

// Run acquires the pre-fire composite anchored at req.Start and the
// post-fire composite anchored at req.End, classifies their difference and
// writes the raster, legend and map image.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	p.logger.InfoContext(ctx, "mapping burn severity",
		slog.String("start", req.Start.Format(time.DateOnly)),
		slog.String("end", req.End.Format(time.DateOnly)),
		slog.String("bbox", req.AOI.BBox().String()),
	)

	pre, err := p.acquire(ctx, req, window.Pre)
	if err != nil {
		return nil, err
	}
	post, err := p.acquire(ctx, req, window.Post)
	if err != nil {
		return nil, err
	}

	classified, err := p.classifier.Run(pre.Composite, post.Composite)
	if err != nil {
		return nil, fmt.Errorf("failed to classify: %w", err)
	}

	out := Outputs{
		Raster: p.opts.Paths.Raster,
		Legend: p.opts.Paths.Legend,
		Image:  filepath.Join(p.opts.Paths.ImageDir, render.FileName(req.Start, req.End)),
	}
	if err := p.writer.WriteClassified(out.Raster, classified); err != nil {
		return nil, fmt.Errorf("failed to write severity raster: %w", err)
	}
	if err := severity.WriteLegend(out.Legend, classified.Legend); err != nil {
		return nil, err
	}
	if err := render.WritePNG(out.Image, classified, p.opts.Title); err != nil {
		return nil, fmt.Errorf("failed to render severity map: %w", err)
	}

	p.logger.InfoContext(ctx, "burn severity mapped",
		slog.String("raster", out.Raster),
		slog.String("pre_window", pre.Window.String()),
		slog.String("post_window", post.Window.String()),
		slog.Int("pixels", len(classified.Codes)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &Result{Pre: pre, Post: post, Classified: classified, Outputs: out}, nil
}

func (p *Pipeline) acquire(ctx context.Context, req Request, dir window.Direction) (*window.Result, error) {
	event := req.Start
	if dir == window.Post {
		event = req.End
	}
	m := window.NewMachine(p.acquirers.For(req.AOI), p.opts.Window).
		WithLogger(p.logger).
		OnRetry(func(d window.Direction, _ window.DateWindow) {
			p.metrics.Recalibrations.WithLabelValues(d.String()).Inc()
		})

	res, err := m.Run(ctx, event, dir)
	if err != nil {
		return nil, fmt.Errorf("%s-fire composite: %w", dir, err)
	}
	return res, nil
}
