// Package acquire builds one composite for an area of interest and a date
// window, choosing between a single tiling request, a split-and-batch
// request, and an archive scene mosaic.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/burn-severity/internal/cloud"
	"github.com/robert-malhotra/burn-severity/internal/cover"
	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/mosaic"
	"github.com/robert-malhotra/burn-severity/internal/observability"
	"github.com/robert-malhotra/burn-severity/internal/provider"
	"github.com/robert-malhotra/burn-severity/internal/provider/archive"
	"github.com/robert-malhotra/burn-severity/internal/raster"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

var (
	// ErrNoProvider is returned when the acquirer has no provider for its kind.
	ErrNoProvider = errors.New("no imagery provider configured")

	// ErrMissingBand is returned when an archive scene lacks a required band file.
	ErrMissingBand = errors.New("scene is missing a required band")
)

// RasterStore persists and loads intermediate rasters.
type RasterStore interface {
	WriteTile(path string, t *raster.Tile) error
	ReadStack(paths []string) (*raster.Tile, error)
}

// Options tunes acquisition.
type Options struct {
	// Resolution is the requested pixel size in meters.
	Resolution float64
	// SplitThreshold is the largest pixel dimension fetched in one request.
	SplitThreshold int
	GridCols       int
	GridRows       int
	// Workers bounds concurrent sub-tile fetches in batch mode.
	Workers int
	// CloudCeiling is the archive search cloud cover limit in percent.
	CloudCeiling float64
	// ArchiveResolution is the product resolution directory stacked in archive mode.
	ArchiveResolution string
	// WorkDir holds tiles, downloads and intermediate mosaics.
	WorkDir string
	// KeepScenes leaves extracted archive scenes on disk after mosaicking.
	KeepScenes bool
}

// DefaultOptions returns the default acquisition settings.
func DefaultOptions() Options {
	return Options{
		Resolution:        10,
		SplitThreshold:    2500,
		GridCols:          5,
		GridRows:          3,
		Workers:           5,
		CloudCeiling:      10,
		ArchiveResolution: "R20m",
		WorkDir:           "data",
	}
}

// Acquirer fetches composites from one provider.
type Acquirer struct {
	kind    provider.Kind
	fetcher provider.TileFetcher
	archive provider.Archive
	store   RasterStore
	gate    cloud.Gate
	opts    Options
	metrics *observability.Metrics
	logger  *slog.Logger
	newID   func() string
}

// NewTiling returns an acquirer backed by a tiling service.
func NewTiling(f provider.TileFetcher, store RasterStore, gate cloud.Gate, opts Options) *Acquirer {
	return newAcquirer(provider.TilingService, store, gate, opts).withFetcher(f)
}

// NewArchive returns an acquirer backed by an archive search provider.
func NewArchive(a provider.Archive, store RasterStore, opts Options) *Acquirer {
	acq := newAcquirer(provider.ArchiveSearch, store, cloud.NewGate(0), opts)
	acq.archive = a
	return acq
}

func newAcquirer(kind provider.Kind, store RasterStore, gate cloud.Gate, opts Options) *Acquirer {
	def := DefaultOptions()
	if opts.Resolution <= 0 {
		opts.Resolution = def.Resolution
	}
	if opts.SplitThreshold <= 0 {
		opts.SplitThreshold = def.SplitThreshold
	}
	if opts.GridCols <= 0 || opts.GridRows <= 0 {
		opts.GridCols, opts.GridRows = def.GridCols, def.GridRows
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.CloudCeiling <= 0 {
		opts.CloudCeiling = def.CloudCeiling
	}
	if opts.ArchiveResolution == "" {
		opts.ArchiveResolution = def.ArchiveResolution
	}
	if opts.WorkDir == "" {
		opts.WorkDir = def.WorkDir
	}
	return &Acquirer{
		kind:    kind,
		store:   store,
		gate:    gate,
		opts:    opts,
		metrics: observability.NewMetricsForTesting(),
		logger:  slog.Default(),
		newID:   uuid.NewString,
	}
}

func (a *Acquirer) withFetcher(f provider.TileFetcher) *Acquirer {
	a.fetcher = f
	return a
}

// WithLogger sets the logger.
func (a *Acquirer) WithLogger(logger *slog.Logger) *Acquirer {
	a.logger = logger
	return a
}

// WithMetrics sets the metrics sink.
func (a *Acquirer) WithMetrics(m *observability.Metrics) *Acquirer {
	a.metrics = m
	return a
}

// Kind returns the provider kind the acquirer uses.
func (a *Acquirer) Kind() provider.Kind {
	return a.kind
}

// Acquire builds the composite for aoi within w. It returns an error
// wrapping cloud.ErrRecalibrate when the window must be widened.
func (a *Acquirer) Acquire(ctx context.Context, aoi geometry.AOI, w window.DateWindow) (*raster.Composite, error) {
	switch a.kind {
	case provider.TilingService:
		if a.fetcher == nil {
			return nil, ErrNoProvider
		}
		width, height := aoi.BBox().Dimensions(a.opts.Resolution)
		if max(width, height) > a.opts.SplitThreshold {
			return a.acquireBatch(ctx, aoi.BBox(), w, width, height)
		}
		return a.acquireSingle(ctx, aoi.BBox(), w, width, height)
	case provider.ArchiveSearch:
		if a.archive == nil {
			return nil, ErrNoProvider
		}
		return a.acquireArchive(ctx, aoi, w)
	default:
		return nil, &provider.UnsupportedProviderError{Name: a.kind.String()}
	}
}

// For binds the acquirer to an AOI for the window retry loop.
func (a *Acquirer) For(aoi geometry.AOI) window.Acquirer {
	return window.AcquirerFunc(func(ctx context.Context, w window.DateWindow) (*raster.Composite, error) {
		return a.Acquire(ctx, aoi, w)
	})
}

func (a *Acquirer) tilePath() string {
	return filepath.Join(a.opts.WorkDir, "tiles", a.newID()+".tiff")
}

func (a *Acquirer) fetch(ctx context.Context, bbox geometry.BBox, w window.DateWindow, width, height int) (*raster.Tile, error) {
	req := provider.FetchRequest{
		BBox:   bbox,
		Window: w,
		Bands:  raster.RequestedBands,
		Width:  width,
		Height: height,
		Dest:   a.tilePath(),
	}

	start := time.Now()
	tile, err := a.fetcher.Fetch(ctx, req)
	a.metrics.FetchDuration.WithLabelValues(a.fetcher.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.TileFetches.WithLabelValues(a.fetcher.Name(), "error").Inc()
		return nil, err
	}
	a.metrics.TileFetches.WithLabelValues(a.fetcher.Name(), "success").Inc()
	return tile, nil
}

func (a *Acquirer) acquireSingle(ctx context.Context, bbox geometry.BBox, w window.DateWindow, width, height int) (*raster.Composite, error) {
	a.logger.DebugContext(ctx, "single request acquisition",
		slog.String("window", w.String()),
		slog.Int("width", width),
		slog.Int("height", height),
	)

	tile, err := a.fetch(ctx, bbox, w, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile: %w", err)
	}
	comp := &raster.Composite{Tile: tile.ToLayout(raster.BandsLast), Mode: raster.ModeSingle}
	stats, err := a.gate.Check(comp)
	if err != nil {
		return nil, err
	}

	a.logger.DebugContext(ctx, "tile accepted",
		slog.Float64("obscured_percent", stats.Fraction()),
	)
	a.metrics.TilesPerComposite.WithLabelValues(raster.ModeSingle.String()).Observe(1)
	return comp, nil
}

func (a *Acquirer) acquireBatch(ctx context.Context, bbox geometry.BBox, w window.DateWindow, width, height int) (*raster.Composite, error) {
	cells := bbox.SplitGrid(a.opts.GridCols, a.opts.GridRows, width, height)
	if cells == nil {
		return nil, fmt.Errorf("cannot split %dx%d pixels into a %dx%d grid", width, height, a.opts.GridCols, a.opts.GridRows)
	}
	a.logger.InfoContext(ctx, "batch acquisition",
		slog.String("window", w.String()),
		slog.Int("tiles", len(cells)),
		slog.Int("workers", a.opts.Workers),
	)

	tiles := make([]*raster.Tile, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, cell := range cells {
		g.Go(func() error {
			tile, err := a.fetch(gctx, cell.BBox, w, cell.Width, cell.Height)
			if err != nil {
				return fmt.Errorf("failed to fetch tile %d: %w", i, err)
			}
			tile = tile.ToLayout(raster.BandsLast)
			if _, err := a.gate.Check(&raster.Composite{Tile: tile, Mode: raster.ModeSingle}); err != nil {
				return fmt.Errorf("tile %d: %w", i, err)
			}
			tiles[i] = tile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := mosaic.Merge(tiles)
	if err != nil {
		return nil, fmt.Errorf("failed to mosaic batch: %w", err)
	}
	merged = merged.ToLayout(raster.BandsFirst)

	out := filepath.Join(a.opts.WorkDir, "output_"+w.Start.Format(time.DateOnly)+".tiff")
	if err := a.store.WriteTile(out, merged); err != nil {
		return nil, fmt.Errorf("failed to write batch mosaic: %w", err)
	}

	a.logger.InfoContext(ctx, "batch mosaic written", slog.String("path", out))
	a.metrics.TilesPerComposite.WithLabelValues(raster.ModeBatch.String()).Observe(float64(len(tiles)))
	return &raster.Composite{Tile: merged, Mode: raster.ModeBatch}, nil
}

func (a *Acquirer) acquireArchive(ctx context.Context, aoi geometry.AOI, w window.DateWindow) (*raster.Composite, error) {
	name := a.archive.Name()
	start := time.Now()
	fps, err := a.archive.Search(ctx, aoi, w, a.opts.CloudCeiling)
	a.metrics.FetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.TileFetches.WithLabelValues(name, "error").Inc()
		if errors.Is(err, provider.ErrNoScenes) {
			return nil, fmt.Errorf("%w: %v", cloud.ErrRecalibrate, err)
		}
		return nil, fmt.Errorf("failed to search archive: %w", err)
	}

	cover.Sort(fps)
	fps, err = cover.Reduce(fps)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce scene cover: %w", err)
	}
	a.logger.InfoContext(ctx, "scene cover selected",
		slog.String("window", w.String()),
		slog.Int("scenes", len(fps)),
	)

	sceneDir := filepath.Join(a.opts.WorkDir, "scenes", w.Start.Format(time.DateOnly))
	if _, err := a.archive.Download(ctx, fps, sceneDir); err != nil {
		a.metrics.TileFetches.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("failed to download scenes: %w", err)
	}
	a.metrics.TileFetches.WithLabelValues(name, "success").Inc()
	if !a.opts.KeepScenes {
		defer func() {
			if err := os.RemoveAll(sceneDir); err != nil {
				a.logger.WarnContext(ctx, "failed to remove scenes", slog.String("error", err.Error()))
			}
		}()
	}

	scenes, err := a.archive.Decompress(sceneDir)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress scenes: %w", err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: no extracted scenes in %s", cloud.ErrRecalibrate, sceneDir)
	}

	var (
		stacks    []*raster.Tile
		indexPath string
	)
	for _, scene := range scenes {
		tile, idxPath, err := a.stackScene(scene)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, tile)
		if indexPath == "" {
			indexPath = idxPath
		}
	}

	merged, err := mosaic.Merge(stacks)
	if err != nil {
		return nil, fmt.Errorf("failed to mosaic scenes: %w", err)
	}
	merged = merged.ToLayout(raster.BandsFirst)

	out := filepath.Join(a.opts.WorkDir, "output_cop_"+w.Start.Format(time.DateOnly)+".tiff")
	if err := a.store.WriteTile(out, merged); err != nil {
		return nil, fmt.Errorf("failed to write scene mosaic: %w", err)
	}

	a.metrics.TilesPerComposite.WithLabelValues(raster.ModeArchive.String()).Observe(float64(len(stacks)))
	return &raster.Composite{Tile: merged, Mode: raster.ModeArchive, IndexPath: indexPath}, nil
}

// stackScene converts the scene's band files at the configured resolution,
// stacks ArchiveBands in order and writes the band index next to the
// work directory.
func (a *Acquirer) stackScene(scene string) (*raster.Tile, string, error) {
	res := a.opts.ArchiveResolution
	files, err := a.archive.ListFiles(scene, ".jp2", res)
	if err != nil {
		return nil, "", err
	}

	byBand := make(map[raster.BandID]string, len(files))
	for _, f := range files {
		id, err := archive.BandIDFromPath(f)
		if err != nil {
			continue
		}
		if _, seen := byBand[id]; seen {
			continue
		}
		tiff, err := a.archive.Convert(f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to convert %s: %w", filepath.Base(f), err)
		}
		byBand[id] = tiff
	}

	paths := make([]string, 0, len(raster.ArchiveBands))
	idx := make(raster.BandIndex, len(raster.ArchiveBands))
	for i, id := range raster.ArchiveBands {
		p, ok := byBand[id]
		if !ok {
			return nil, "", fmt.Errorf("%w: %s in %s at %s", ErrMissingBand, id, filepath.Base(scene), res)
		}
		paths = append(paths, p)
		idx[id.String()] = i
	}

	tile, err := a.store.ReadStack(paths)
	if err != nil {
		return nil, "", fmt.Errorf("failed to stack %s: %w", filepath.Base(scene), err)
	}
	tile.BandOrder = make([]string, len(raster.ArchiveBands))
	for i, id := range raster.ArchiveBands {
		tile.BandOrder[i] = id.String()
	}

	sceneName := strings.TrimSuffix(filepath.Base(scene), ".SAFE")
	idxPath := filepath.Join(a.opts.WorkDir, sceneName+"-"+res+".json")
	if err := os.MkdirAll(a.opts.WorkDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create work directory: %w", err)
	}
	if err := raster.WriteBandIndex(idxPath, idx); err != nil {
		return nil, "", err
	}
	return tile, idxPath, nil
}
