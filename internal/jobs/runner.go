package jobs

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/robert-malhotra/burn-severity/internal/config"
	"github.com/robert-malhotra/burn-severity/internal/observability"
	"github.com/robert-malhotra/burn-severity/internal/pipeline"
)

// PipelineRunner runs each job through its own pipeline, writing into
// <workdir>/jobs/<id>.
type PipelineRunner struct {
	cfg     *config.Config
	profile config.Profile
	logger  *slog.Logger
	metrics *observability.Metrics
}

var _ Runner = (*PipelineRunner)(nil)

// NewPipelineRunner creates a runner for cfg and profile.
func NewPipelineRunner(cfg *config.Config, profile config.Profile) *PipelineRunner {
	return &PipelineRunner{
		cfg:     cfg,
		profile: profile,
		logger:  slog.Default(),
		metrics: observability.NewMetricsForTesting(),
	}
}

// WithLogger sets the logger.
func (r *PipelineRunner) WithLogger(logger *slog.Logger) *PipelineRunner {
	r.logger = logger
	return r
}

// WithMetrics sets the metrics sink.
func (r *PipelineRunner) WithMetrics(m *observability.Metrics) *PipelineRunner {
	r.metrics = m
	return r
}

// Dir returns the working directory of job id.
func (r *PipelineRunner) Dir(id string) string {
	return filepath.Join(r.cfg.Output.WorkDir, "jobs", id)
}

// Run builds the job's pipeline and runs it.
func (r *PipelineRunner) Run(ctx context.Context, job *Job) (*Summary, error) {
	req, kind, err := job.Spec.Request(r.cfg.Provider.Type)
	if err != nil {
		return nil, err
	}

	dir := r.Dir(job.ID)
	logger := r.logger.With(slog.String("job_id", job.ID))
	p, err := pipeline.Build(r.cfg, r.profile, kind, dir, pipeline.DirPaths(dir), logger, r.metrics)
	if err != nil {
		return nil, err
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewSummary(res), nil
}
