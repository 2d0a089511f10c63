// Command burnmap maps burn severity for one fire from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/aoi"
	"github.com/robert-malhotra/burn-severity/internal/config"
	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/jobs"
	"github.com/robert-malhotra/burn-severity/internal/observability"
	"github.com/robert-malhotra/burn-severity/internal/pipeline"
	"github.com/robert-malhotra/burn-severity/internal/provider"
)

const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 2
)

type options struct {
	startDate string
	endDate   string
	bbox      string
	aoiPath   string
	aoiBounds bool
	provider  string
	profile   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalidInput
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to load config: %v\n", err)
		return exitInvalidInput
	}
	logger := observability.NewLogger(stderr, cfg.Logging.Level, cfg.Logging.Format)

	req, err := opts.request()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalidInput
	}
	providerName := opts.provider
	if providerName == "" {
		providerName = cfg.Provider.Type
	}
	kind, err := provider.ParseKind(providerName)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalidInput
	}
	if err := cfg.ValidateCredentials(kind); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalidInput
	}

	profilePath := opts.profile
	if profilePath == "" {
		profilePath = cfg.Output.Profile
	}
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitInvalidInput
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "mapping burn severity",
		slog.String("start", opts.startDate),
		slog.String("end", opts.endDate),
		slog.String("provider", kind.String()),
		slog.String("aoi", req.AOI.BBox().String()),
	)

	p, err := pipeline.Build(cfg, profile, kind, cfg.Output.WorkDir, pipeline.DefaultPaths(cfg), logger, observability.NewMetrics())
	if err != nil {
		logger.ErrorContext(ctx, "failed to build pipeline", slog.String("error", err.Error()))
		return exitFailure
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "burn severity mapping failed", slog.String("error", err.Error()))
		return exitFailure
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jobs.NewSummary(res)); err != nil {
		logger.ErrorContext(ctx, "failed to write summary", slog.String("error", err.Error()))
		return exitFailure
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("burnmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.startDate, "start-date", "", "fire start date (YYYY-MM-DD)")
	fs.StringVar(&opts.endDate, "end-date", "", "fire end date (YYYY-MM-DD)")
	fs.StringVar(&opts.bbox, "bbox", "", "area of interest as west,south,east,north")
	fs.StringVar(&opts.aoiPath, "aoi", "", "area of interest as a GeoJSON file")
	fs.BoolVar(&opts.aoiBounds, "aoi-bounds", false, "use the bounding box of the -aoi geometry")
	fs.StringVar(&opts.provider, "provider", "", "imagery provider: SH or CA (default PROVIDER_TYPE)")
	fs.StringVar(&opts.profile, "profile", "", "classification profile YAML (default OUTPUT_PROFILE)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.startDate == "" || opts.endDate == "" {
		return options{}, fmt.Errorf("-start-date and -end-date are required")
	}
	if (opts.bbox == "") == (opts.aoiPath == "") {
		return options{}, fmt.Errorf("exactly one of -bbox or -aoi is required")
	}
	if opts.aoiBounds && opts.aoiPath == "" {
		return options{}, fmt.Errorf("-aoi-bounds requires -aoi")
	}
	return opts, nil
}

func (o options) request() (pipeline.Request, error) {
	start, err := time.Parse(time.DateOnly, o.startDate)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("invalid -start-date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, o.endDate)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("invalid -end-date: %w", err)
	}

	var area geometry.AOI
	if o.bbox != "" {
		area, err = aoi.FromBBox(o.bbox)
	} else {
		area, err = aoi.Load(o.aoiPath, o.aoiBounds)
	}
	if err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.Request{Start: start, End: end, AOI: area}
	if err := req.Validate(); err != nil {
		return pipeline.Request{}, err
	}
	return req, nil
}
