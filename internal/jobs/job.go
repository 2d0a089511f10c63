// Package jobs runs burn severity mappings asynchronously and keeps their
// state in memory.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/aoi"
	"github.com/robert-malhotra/burn-severity/internal/geometry"
	"github.com/robert-malhotra/burn-severity/internal/pipeline"
	"github.com/robert-malhotra/burn-severity/internal/provider"
)

var (
	// ErrNotFound is returned for an unknown job ID.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidSpec is returned when a job request cannot be run.
	ErrInvalidSpec = errors.New("invalid job request")

	// ErrShuttingDown is returned by Submit after Shutdown has been called.
	ErrShuttingDown = errors.New("job manager is shutting down")
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Done reports whether the status is terminal.
func (s Status) Done() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Spec is a job request as submitted by a client.
type Spec struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	BBox      []float64       `json:"bbox,omitempty"`
	Geometry  json.RawMessage `json:"geometry,omitempty"`
	// AOIBounds replaces Geometry by its bounding box.
	AOIBounds bool   `json:"aoi_bounds,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// Request converts s into a pipeline request and provider kind.
// defaultProvider is used when s names none.
func (s Spec) Request(defaultProvider string) (pipeline.Request, provider.Kind, error) {
	start, err := time.Parse(time.DateOnly, s.StartDate)
	if err != nil {
		return pipeline.Request{}, 0, fmt.Errorf("%w: start_date: %v", ErrInvalidSpec, err)
	}
	end, err := time.Parse(time.DateOnly, s.EndDate)
	if err != nil {
		return pipeline.Request{}, 0, fmt.Errorf("%w: end_date: %v", ErrInvalidSpec, err)
	}

	name := strings.TrimSpace(s.Provider)
	if name == "" {
		name = defaultProvider
	}
	kind, err := provider.ParseKind(name)
	if err != nil {
		return pipeline.Request{}, 0, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	var area geometry.AOI
	switch {
	case len(s.Geometry) > 0 && len(s.BBox) > 0:
		return pipeline.Request{}, 0, fmt.Errorf("%w: bbox and geometry are mutually exclusive", ErrInvalidSpec)
	case len(s.Geometry) > 0:
		area, err = aoi.Parse(s.Geometry, s.AOIBounds)
	case len(s.BBox) > 0:
		var b geometry.BBox
		if b, err = geometry.FromSlice(s.BBox); err == nil {
			area, err = geometry.NewBBoxAOI(b)
		}
	default:
		err = pipeline.ErrMissingAOI
	}
	if err != nil {
		return pipeline.Request{}, 0, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	req := pipeline.Request{Start: start, End: end, AOI: area}
	if err := req.Validate(); err != nil {
		return pipeline.Request{}, 0, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return req, kind, nil
}

// Summary is what a finished job reports.
type Summary struct {
	Outputs    pipeline.Outputs  `json:"outputs"`
	PreWindow  string            `json:"pre_window"`
	PostWindow string            `json:"post_window"`
	PreMode    string            `json:"pre_mode"`
	PostMode   string            `json:"post_mode"`
	Histogram  map[string]int    `json:"histogram"`
	Legend     map[string]string `json:"legend"`
}

// NewSummary condenses a pipeline result.
func NewSummary(res *pipeline.Result) *Summary {
	hist := make(map[string]int)
	for class, n := range res.Classified.Histogram() {
		hist[fmt.Sprintf("%d", int(class))] = n
	}
	return &Summary{
		Outputs:    res.Outputs,
		PreWindow:  res.Pre.Window.String(),
		PostWindow: res.Post.Window.String(),
		PreMode:    res.Pre.Composite.Mode.String(),
		PostMode:   res.Post.Composite.Mode.String(),
		Histogram:  hist,
		Legend:     res.Classified.Legend.Strings(),
	}
}

// Job is one submitted mapping.
type Job struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Spec       Spec       `json:"spec"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Result     *Summary   `json:"result,omitempty"`
}

func (j *Job) clone() *Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
