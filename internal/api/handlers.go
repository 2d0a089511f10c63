package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/kaptinlin/jsonschema"

	"github.com/robert-malhotra/burn-severity/internal/jobs"
)

// maxRequestBytes bounds job request bodies.
const maxRequestBytes = 1 << 20

//go:embed schema/job_request.json
var jobRequestSchema []byte

// JobService is the job store the handlers operate on.
type JobService interface {
	Submit(spec jobs.Spec) (*jobs.Job, error)
	Get(id string) (*jobs.Job, error)
	List() []*jobs.Job
}

// Handlers contains all HTTP handlers for the job service.
type Handlers struct {
	jobs            JobService
	schema          *jsonschema.Schema
	baseURL         string
	defaultProvider string
	logger          *slog.Logger
}

// NewHandlers creates the handlers. baseURL prefixes links in responses;
// defaultProvider is used for requests that name none.
func NewHandlers(svc JobService, baseURL, defaultProvider string, logger *slog.Logger) (*Handlers, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(jobRequestSchema)
	if err != nil {
		return nil, fmt.Errorf("compile job request schema: %w", err)
	}
	return &Handlers{
		jobs:            svc,
		schema:          schema,
		baseURL:         baseURL,
		defaultProvider: defaultProvider,
		logger:          logger,
	}, nil
}

// Health reports that the service is up.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitJob validates a job request and queues it.
// POST /v1/jobs
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		WriteBadRequest(w, "failed to read request body")
		return
	}
	if len(body) > maxRequestBytes {
		WriteBadRequest(w, "request body too large")
		return
	}

	if !json.Valid(body) {
		WriteBadRequest(w, "request body is not valid JSON")
		return
	}

	result := h.schema.ValidateJSON(body)
	if !result.IsValid() {
		var details []string
		for _, field := range slices.Sorted(maps.Keys(result.Errors)) {
			details = append(details, fmt.Sprintf("%s: %v", field, result.Errors[field]))
		}
		WriteBadRequest(w, "job request does not match schema", details...)
		return
	}

	var spec jobs.Spec
	if err := json.Unmarshal(body, &spec); err != nil {
		WriteBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if _, _, err := spec.Request(h.defaultProvider); err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	job, err := h.jobs.Submit(spec)
	if err != nil {
		if errors.Is(err, jobs.ErrShuttingDown) {
			WriteUnavailable(w, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to submit job",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to submit job")
		return
	}

	h.logger.InfoContext(r.Context(), "job submitted",
		slog.String("request_id", GetRequestID(r.Context())),
		slog.String("job_id", job.ID),
	)
	w.Header().Set("Location", h.jobURL(job.ID))
	WriteJSON(w, http.StatusAccepted, h.jobResponse(job))
}

// ListJobs returns every job, oldest first.
// GET /v1/jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	all := h.jobs.List()
	out := make([]*JobResponse, 0, len(all))
	for _, j := range all {
		out = append(out, h.jobResponse(j))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

// GetJob returns one job's status and, once finished, its result.
// GET /v1/jobs/{jobId}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.jobResponse(job))
}

// GetJobItem returns the job as a STAC item with its outputs as assets.
// GET /v1/jobs/{jobId}/item
func (h *Handlers) GetJobItem(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	item, err := JobItem(job, h.baseURL, h.defaultProvider)
	if err != nil {
		WriteInternalError(w, err.Error())
		return
	}
	WriteGeoJSON(w, http.StatusOK, item)
}

// GetJobAsset serves one output file of a succeeded job.
// GET /v1/jobs/{jobId}/assets/{asset}
func (h *Handlers) GetJobAsset(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if job.Status != jobs.StatusSucceeded || job.Result == nil {
		WriteNotFound(w, "job has no outputs yet")
		return
	}

	asset := chi.URLParam(r, "asset")
	path, ok := assetPath(job.Result, asset)
	if !ok {
		WriteNotFound(w, "unknown asset "+asset)
		return
	}
	w.Header().Set("Content-Type", assetTypes[asset])
	http.ServeFile(w, r, path)
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id := chi.URLParam(r, "jobId")
	job, err := h.jobs.Get(id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			WriteNotFound(w, "job not found")
			return nil, false
		}
		WriteInternalError(w, err.Error())
		return nil, false
	}
	return job, true
}

func (h *Handlers) jobURL(id string) string {
	return h.baseURL + "/v1/jobs/" + id
}
