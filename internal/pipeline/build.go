package pipeline

import (
	"log/slog"
	"path/filepath"

	"github.com/robert-malhotra/burn-severity/internal/acquire"
	"github.com/robert-malhotra/burn-severity/internal/cloud"
	"github.com/robert-malhotra/burn-severity/internal/config"
	"github.com/robert-malhotra/burn-severity/internal/observability"
	"github.com/robert-malhotra/burn-severity/internal/provider"
	"github.com/robert-malhotra/burn-severity/internal/provider/archive"
	"github.com/robert-malhotra/burn-severity/internal/provider/sentinelhub"
	"github.com/robert-malhotra/burn-severity/internal/rasterio"
	"github.com/robert-malhotra/burn-severity/internal/window"
)

// DefaultPaths returns the configured output locations.
func DefaultPaths(cfg *config.Config) Paths {
	return Paths{
		Raster:   cfg.Output.Raster,
		Legend:   cfg.Output.Legend,
		ImageDir: filepath.Dir(cfg.Output.Raster),
	}
}

// DirPaths places every output of a run inside dir.
func DirPaths(dir string) Paths {
	return Paths{
		Raster:   filepath.Join(dir, "output.tiff"),
		Legend:   filepath.Join(dir, "legend.json"),
		ImageDir: dir,
	}
}

// NewAcquirer builds the acquirer for kind from cfg, working in workDir.
func NewAcquirer(cfg *config.Config, kind provider.Kind, workDir string, logger *slog.Logger, metrics *observability.Metrics) (*acquire.Acquirer, error) {
	if err := cfg.ValidateCredentials(kind); err != nil {
		return nil, err
	}

	opts := acquire.Options{
		Resolution:        cfg.SentinelHub.Resolution,
		SplitThreshold:    cfg.Acquire.SplitThreshold,
		GridCols:          cfg.Acquire.GridCols,
		GridRows:          cfg.Acquire.GridRows,
		Workers:           cfg.Acquire.Workers,
		CloudCeiling:      cfg.Acquire.CloudCeiling,
		ArchiveResolution: cfg.Archive.Resolution,
		WorkDir:           workDir,
		KeepScenes:        cfg.Output.KeepScenes,
	}
	store := rasterio.NewStore()

	var acq *acquire.Acquirer
	switch kind {
	case provider.TilingService:
		client := sentinelhub.NewClient(sentinelhub.Config{
			BaseURL:      cfg.SentinelHub.BaseURL,
			TokenURL:     cfg.SentinelHub.TokenURL,
			ClientID:     cfg.SentinelHub.ClientID,
			ClientSecret: cfg.SentinelHub.ClientSecret,
			Timeout:      cfg.SentinelHub.Timeout,
		}).WithLogger(logger)
		acq = acquire.NewTiling(client, store, cloud.NewGate(cfg.Acquire.CloudThreshold), opts)
	case provider.ArchiveSearch:
		client := archive.NewClient(archive.Config{
			STACURL:     cfg.Archive.STACURL,
			Collection:  cfg.Archive.Collection,
			DownloadURL: cfg.Archive.DownloadURL,
			TokenURL:    cfg.Archive.TokenURL,
			ClientID:    cfg.Archive.ClientID,
			Username:    cfg.Archive.Username,
			Password:    cfg.Archive.Password,
			Timeout:     cfg.Archive.Timeout,
		}).WithLogger(logger)
		acq = acquire.NewArchive(client, store, opts)
	default:
		return nil, &provider.UnsupportedProviderError{Name: kind.String()}
	}
	return acq.WithLogger(logger).WithMetrics(metrics), nil
}

// Build assembles a pipeline for kind from cfg and profile.
func Build(cfg *config.Config, profile config.Profile, kind provider.Kind, workDir string, paths Paths, logger *slog.Logger, metrics *observability.Metrics) (*Pipeline, error) {
	acq, err := NewAcquirer(cfg, kind, workDir, logger, metrics)
	if err != nil {
		return nil, err
	}

	p, err := New(acq, rasterio.NewStore(), Options{
		Window: window.Config{
			ExtensionDays: cfg.Window.ExtensionDays,
			Step:          cfg.Window.StepDays,
			MaxRetries:    cfg.Window.MaxRetries,
			MaxWindowDays: cfg.Window.MaxDays,
		},
		Water: profile.Water,
		Paths: paths,
		Title: profile.Title,
	})
	if err != nil {
		return nil, err
	}
	return p.WithLogger(logger).WithMetrics(metrics), nil
}
