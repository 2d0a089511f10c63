package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "burn_severity"

// Metrics holds the Prometheus counters and histograms for acquisition and classification.
type Metrics struct {
	// Acquisition metrics.
	TileFetches       *prometheus.CounterVec // labels: provider={sentinelhub,archive}, outcome={success,error}
	Recalibrations    *prometheus.CounterVec // labels: direction={pre,post}
	TilesPerComposite *prometheus.HistogramVec
	FetchDuration     *prometheus.HistogramVec // labels: provider

	// Pipeline metrics.
	PipelineDuration prometheus.Histogram
	Jobs             *prometheus.CounterVec // labels: outcome={succeeded,failed}
	JobsRunning      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates all metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	if reg == nil {
		return m
	}
	reg.MustRegister(
		m.TileFetches,
		m.Recalibrations,
		m.TilesPerComposite,
		m.FetchDuration,
		m.PipelineDuration,
		m.Jobs,
		m.JobsRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_fetches_total",
			Help:      "Imagery fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Recalibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_recalibrations_total",
			Help:      "Date window widenings caused by cloud cover.",
		}, []string{"direction"}),
		TilesPerComposite: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tiles_per_composite",
			Help:      "Number of tiles mosaicked into one composite.",
			Buckets:   []float64{1, 2, 4, 8, 15, 30},
		}, []string{"mode"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single provider fetch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete pre/post acquisition and classification run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished jobs by outcome.",
		}, []string{"outcome"}),
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Jobs currently running.",
		}),
	}
}
