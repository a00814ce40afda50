// Package experiment drives an engine headlessly: fixed step counts,
// periodic metric sampling, observers and hooks, and seeded ensembles.
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/phasefield/internal/metrics"
	"github.com/san-kum/phasefield/internal/sim"
)

type Config struct {
	Geometry    sim.Geometry
	Params      sim.Params
	Steps       int
	Dt          float64
	SampleEvery int
	Seed        uint64
}

func (c Config) validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Steps)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("sample_every must not be negative, got %d", c.SampleEvery)
	}
	return nil
}

// Hook is called after every sampled step with the fresh snapshot. Hooks may
// feed inputs back through the engine's public methods.
type Hook interface {
	OnSample(e *sim.Engine, s metrics.Snapshot)
}

// HookFunc adapts a function to Hook.
type HookFunc func(e *sim.Engine, s metrics.Snapshot)

func (f HookFunc) OnSample(e *sim.Engine, s metrics.Snapshot) { f(e, s) }

type Result struct {
	// Samples holds one snapshot per SampleEvery steps, plus the initial state.
	Samples []metrics.Snapshot
	// Order is r after every step.
	Order      []float64
	Metrics    map[string]float64
	StepsTaken int
	Elapsed    time.Duration
}

// Final returns the last sample, or a zero snapshot.
func (r *Result) Final() metrics.Snapshot {
	if len(r.Samples) == 0 {
		return metrics.Snapshot{}
	}
	return r.Samples[len(r.Samples)-1]
}

type Runner struct {
	cfg     Config
	engine  *sim.Engine
	metrics []metrics.Metric
	hooks   []Hook
}

// New configures a fresh engine for cfg.
func New(cfg Config, opts ...sim.Option) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.SampleEvery == 0 {
		cfg.SampleEvery = 1
	}
	if cfg.Seed != 0 {
		cfg.Geometry.Seed = cfg.Seed
	}

	e := sim.New(opts...)
	if err := e.Configure(cfg.Geometry); err != nil {
		return nil, err
	}
	// clamps are logged by the engine and never fatal
	_ = e.SetParameters(cfg.Params.Update())

	return &Runner{cfg: cfg, engine: e}, nil
}

func (r *Runner) AddMetric(m metrics.Metric) { r.metrics = append(r.metrics, m) }
func (r *Runner) AddHook(h Hook)             { r.hooks = append(r.hooks, h) }

// Engine returns the underlying engine for direct input.
func (r *Runner) Engine() *sim.Engine { return r.engine }

func (r *Runner) Config() Config { return r.cfg }

// Run advances the configured number of steps. Cancellation is checked
// between steps; the partial result is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		Samples: make([]metrics.Snapshot, 0, r.cfg.Steps/r.cfg.SampleEvery+1),
		Order:   make([]float64, 0, r.cfg.Steps),
		Metrics: make(map[string]float64),
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	r.sample(result, r.engine.Metrics())

	var err error
	for i := 0; i < r.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		default:
		}
		if err != nil {
			break
		}

		if err = r.engine.Advance(r.cfg.Dt); err != nil {
			break
		}
		result.StepsTaken++

		snap := r.engine.Metrics()
		result.Order = append(result.Order, snap.R)
		if result.StepsTaken%r.cfg.SampleEvery == 0 {
			r.sample(result, snap)
		}
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Elapsed = time.Since(start)
	return result, err
}

func (r *Runner) sample(result *Result, s metrics.Snapshot) {
	result.Samples = append(result.Samples, s)
	for _, m := range r.metrics {
		m.Observe(s)
	}
	for _, h := range r.hooks {
		h.OnSample(r.engine, s)
	}
}
