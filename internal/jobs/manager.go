package jobs

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"

	"github.com/robert-malhotra/burn-severity/internal/observability"
)

// Runner executes one job.
type Runner interface {
	Run(ctx context.Context, job *Job) (*Summary, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job *Job) (*Summary, error)

func (f RunnerFunc) Run(ctx context.Context, job *Job) (*Summary, error) {
	return f(ctx, job)
}

// Manager stores jobs and runs at most a fixed number concurrently.
type Manager struct {
	runner  Runner
	clock   clockwork.Clock
	sem     *semaphore.Weighted
	logger  *slog.Logger
	metrics *observability.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	jobs   map[string]*Job
	closed bool
}

// NewManager creates a manager running up to maxConcurrent jobs at once.
func NewManager(runner Runner, maxConcurrent int) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:  runner,
		clock:   clockwork.NewRealClock(),
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		logger:  slog.Default(),
		metrics: observability.NewMetricsForTesting(),
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*Job),
	}
}

// WithClock sets the clock used for job timestamps.
func (m *Manager) WithClock(c clockwork.Clock) *Manager {
	m.clock = c
	return m
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// WithMetrics sets the metrics sink.
func (m *Manager) WithMetrics(metrics *observability.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Submit stores a queued job for spec and starts it in the background.
func (m *Manager) Submit(spec Spec) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Spec:      spec,
		CreatedAt: m.clock.Now().UTC(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}
	m.jobs[job.ID] = job
	m.wg.Add(1)
	snapshot := job.clone()
	m.mu.Unlock()

	go m.run(job.ID)
	return snapshot, nil
}

// Get returns a snapshot of the job with id.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job.clone(), nil
}

// List returns snapshots of every job, oldest first.
func (m *Manager) List() []*Job {
	m.mu.RLock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.clone())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Shutdown stops accepting jobs, cancels running ones and waits for them
// to finish or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run(id string) {
	defer m.wg.Done()

	if err := m.sem.Acquire(m.ctx, 1); err != nil {
		m.finish(id, nil, fmt.Errorf("job cancelled before start: %w", err))
		return
	}
	defer m.sem.Release(1)

	m.mu.Lock()
	job := m.jobs[id]
	now := m.clock.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	snapshot := job.clone()
	m.mu.Unlock()

	m.metrics.JobsRunning.Inc()
	m.logger.InfoContext(m.ctx, "job started", slog.String("job_id", id))

	summary, err := m.runner.Run(m.ctx, snapshot)
	m.metrics.JobsRunning.Dec()
	m.finish(id, summary, err)
}

func (m *Manager) finish(id string, summary *Summary, err error) {
	m.mu.Lock()
	job := m.jobs[id]
	now := m.clock.Now().UTC()
	job.FinishedAt = &now
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	} else {
		job.Status = StatusSucceeded
		job.Result = summary
	}
	status := job.Status
	m.mu.Unlock()

	m.metrics.Jobs.WithLabelValues(string(status)).Inc()
	if err != nil {
		m.logger.ErrorContext(m.ctx, "job failed",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	m.logger.InfoContext(m.ctx, "job succeeded", slog.String("job_id", id))
}
