package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/cloud"
	"github.com/robert-malhotra/burn-severity/internal/raster"
)

// Acquirer fetches a composite for a window. It returns an error wrapping
// cloud.ErrRecalibrate when the composite is too cloudy.
type Acquirer interface {
	Acquire(ctx context.Context, w DateWindow) (*raster.Composite, error)
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context, w DateWindow) (*raster.Composite, error)

func (f AcquirerFunc) Acquire(ctx context.Context, w DateWindow) (*raster.Composite, error) {
	return f(ctx, w)
}

// Config bounds the retry loop.
type Config struct {
	ExtensionDays int
	Step          int
	MaxRetries    int
	MaxWindowDays int
}

// DefaultConfig returns the default loop bounds.
func DefaultConfig() Config {
	return Config{
		ExtensionDays: DefaultExtensionDays,
		Step:          DefaultExtensionDays,
		MaxRetries:    10,
		MaxWindowDays: 120,
	}
}

// Result is the accepted composite and the window it was built from.
type Result struct {
	Composite *raster.Composite
	Window    DateWindow
	Attempts  int
}

// Machine drives an Acquirer through successively wider windows until the
// composite is accepted or the configured bounds are reached. Attempts are
// strictly sequential.
type Machine struct {
	acquirer Acquirer
	cfg      Config
	logger   *slog.Logger
	onRetry  func(dir Direction, next DateWindow)
}

// NewMachine creates a Machine. Zero fields in cfg take DefaultConfig values.
func NewMachine(acquirer Acquirer, cfg Config) *Machine {
	def := DefaultConfig()
	if cfg.ExtensionDays == 0 {
		cfg.ExtensionDays = def.ExtensionDays
	}
	if cfg.Step == 0 {
		cfg.Step = def.Step
	}
	if cfg.MaxWindowDays == 0 {
		cfg.MaxWindowDays = def.MaxWindowDays
	}
	return &Machine{
		acquirer: acquirer,
		cfg:      cfg,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger.
func (m *Machine) WithLogger(logger *slog.Logger) *Machine {
	m.logger = logger
	return m
}

// OnRetry registers a callback invoked before each widened attempt.
func (m *Machine) OnRetry(fn func(dir Direction, next DateWindow)) *Machine {
	m.onRetry = fn
	return m
}

// Run acquires a composite for the dir side of event.
func (m *Machine) Run(ctx context.Context, event time.Time, dir Direction) (*Result, error) {
	w, err := New(event, dir, m.cfg.ExtensionDays)
	if err != nil {
		return nil, err
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempts++
		m.logger.DebugContext(ctx, "requesting composite",
			slog.String("direction", dir.String()),
			slog.String("window", w.String()),
			slog.Int("attempt", attempts),
		)

		comp, err := m.acquirer.Acquire(ctx, w)
		if err == nil {
			m.logger.InfoContext(ctx, "composite accepted",
				slog.String("direction", dir.String()),
				slog.String("window", w.String()),
				slog.String("mode", comp.Mode.String()),
				slog.Int("attempts", attempts),
			)
			return &Result{Composite: comp, Window: w, Attempts: attempts}, nil
		}
		if !errors.Is(err, cloud.ErrRecalibrate) {
			return nil, fmt.Errorf("failed to acquire %s composite for %s: %w", dir, w, err)
		}

		if attempts > m.cfg.MaxRetries {
			return nil, &RecalibrationExhaustedError{Direction: dir, Window: w, Attempts: attempts, Reason: "maximum retries reached"}
		}
		next, err := w.Recalibrate(dir, m.cfg.Step)
		if err != nil {
			return nil, err
		}
		if next.Days() > m.cfg.MaxWindowDays {
			return nil, &RecalibrationExhaustedError{Direction: dir, Window: w, Attempts: attempts, Reason: "maximum window width reached"}
		}

		m.logger.InfoContext(ctx, "composite too cloudy, widening window",
			slog.String("direction", dir.String()),
			slog.String("from", w.String()),
			slog.String("to", next.String()),
		)
		if m.onRetry != nil {
			m.onRetry(dir, next)
		}
		w = next
	}
}
