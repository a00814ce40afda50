package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/embodiment"
	"github.com/san-kum/phasefield/internal/experiment"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/integrators"
	"github.com/san-kum/phasefield/internal/nexus"
	"github.com/san-kum/phasefield/internal/quantum"
	"github.com/san-kum/phasefield/internal/sim"
	"github.com/san-kum/phasefield/internal/topology"
)

const (
	DefaultSteps       = 2000
	DefaultSampleEvery = 10
	DefaultSeed        = 1
)

type Config struct {
	Geometry   GeometryConfig   `yaml:"geometry"`
	Params     ParamsConfig     `yaml:"params"`
	Init       InitConfig       `yaml:"init"`
	Embodiment EmbodimentConfig `yaml:"embodiment"`
	Quantum    QuantumConfig    `yaml:"quantum"`
	Run        RunConfig        `yaml:"run"`
	Nexus      NexusConfig      `yaml:"nexus"`
}

type GeometryConfig struct {
	Kind             string  `yaml:"kind"`
	Rows             int     `yaml:"rows,omitempty"`
	Cols             int     `yaml:"cols,omitempty"`
	Depth            int     `yaml:"depth,omitempty"`
	Moore            bool    `yaml:"moore,omitempty"`
	Wrap             bool    `yaml:"wrap,omitempty"`
	Count            int     `yaml:"count,omitempty"`
	Shells           int     `yaml:"shells,omitempty"`
	Radius           float64 `yaml:"radius,omitempty"`
	Neighbors        int     `yaml:"neighbors,omitempty"`
	Spacing          float64 `yaml:"spacing,omitempty"`
	Reach            int     `yaml:"reach,omitempty"`
	BaseWeight       float64 `yaml:"base_weight,omitempty"`
	BoundaryFraction float64 `yaml:"boundary_fraction,omitempty"`
}

type ParamsConfig struct {
	Coupling     float64 `yaml:"coupling"`
	Noise        float64 `yaml:"noise"`
	NoiseKind    string  `yaml:"noise_kind"`
	Damping      float64 `yaml:"damping"`
	Permeability float64 `yaml:"permeability"`
	Dt           float64 `yaml:"dt"`
	MaxDt        float64 `yaml:"max_dt"`
	Workers      int     `yaml:"workers,omitempty"`
}

type InitConfig struct {
	Frequency string    `yaml:"frequency"`
	Center    float64   `yaml:"center"`
	Spread    float64   `yaml:"spread"`
	Phase     string    `yaml:"phase"`
	Twist     float64   `yaml:"twist,omitempty"`
	Phases    []float64 `yaml:"phases,omitempty,flow"`
}

type EmbodimentConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Mode       string  `yaml:"mode"`
	Radius     float64 `yaml:"radius"`
	Strength   float64 `yaml:"strength"`
	Amplitude  float64 `yaml:"amplitude"`
	Width      float64 `yaml:"width"`
	Speed      float64 `yaml:"speed"`
	Lifetime   float64 `yaml:"lifetime"`
	MaxRipples int     `yaml:"max_ripples"`
}

type QuantumConfig struct {
	Enabled        bool       `yaml:"enabled"`
	Pairs          int        `yaml:"pairs"`
	Coupling       float64    `yaml:"coupling"`
	CollapseRadius float64    `yaml:"collapse_radius"`
	Decay          float64    `yaml:"decay"`
	Reexcite       float64    `yaml:"reexcite"`
	Offset         float64    `yaml:"offset"`
	Settings       [4]float64 `yaml:"settings,flow"`
	Window         int        `yaml:"window"`
}

type RunConfig struct {
	Steps       int    `yaml:"steps"`
	Seed        uint64 `yaml:"seed"`
	SampleEvery int    `yaml:"sample_every"`
}

type NexusConfig struct {
	Enabled     bool    `yaml:"enabled"`
	MinInterval float64 `yaml:"min_interval"`
	Uncertainty bool    `yaml:"uncertainty"`
}

func DefaultConfig() *Config {
	p := sim.DefaultParams()
	e := embodiment.DefaultConfig()
	q := quantum.DefaultConfig()
	n := nexus.DefaultConfig()
	return &Config{
		Geometry: GeometryConfig{Kind: string(topology.Grid), Rows: 32, Cols: 32},
		Params: ParamsConfig{
			Coupling:     p.Coupling,
			Noise:        p.Noise,
			NoiseKind:    string(integrators.NoiseUniform),
			Damping:      p.Damping,
			Permeability: p.Permeability,
			Dt:           p.Dt,
			MaxDt:        p.MaxDt,
		},
		Init: InitConfig{
			Frequency: string(field.FreqUniform),
			Spread:    1,
			Phase:     string(field.PhaseUniform),
			Twist:     1,
		},
		Embodiment: EmbodimentConfig{
			Enabled:    p.EmbodimentEnabled,
			Mode:       string(e.Mode),
			Radius:     p.TouchRadius,
			Strength:   p.TouchStrength,
			Amplitude:  e.Amplitude,
			Width:      e.Width,
			Speed:      e.Speed,
			Lifetime:   e.Lifetime,
			MaxRipples: e.MaxRipples,
		},
		Quantum: QuantumConfig{
			Enabled:        p.QuantumEnabled,
			Pairs:          q.PairCount,
			Coupling:       p.QuantumCoupling,
			CollapseRadius: p.CollapseRadius,
			Decay:          q.Decay,
			Reexcite:       q.Reexcite,
			Offset:         q.Offset,
			Settings:       [4]float64{q.Settings.A, q.Settings.A2, q.Settings.B, q.Settings.B2},
			Window:         q.Window,
		},
		Run: RunConfig{Steps: DefaultSteps, Seed: DefaultSeed, SampleEvery: DefaultSampleEvery},
		Nexus: NexusConfig{
			MinInterval: n.MinInterval,
			Uncertainty: n.Uncertainty,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads path on top of a copy of base; keys absent from the file keep
// base's values.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what can be checked without building the field. Geometry
// sizes are validated by topology.Build when the engine is configured.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(topology.Kinds(), topology.Kind(c.Geometry.Kind)) {
		errs = append(errs, &dynamo.ConfigError{Field: "geometry.kind", Value: c.Geometry.Kind, Reason: "unknown geometry"})
	}
	switch integrators.NoiseKind(c.Params.NoiseKind) {
	case integrators.NoiseUniform, integrators.NoiseGaussian, integrators.NoiseSimplex, "":
	default:
		errs = append(errs, &dynamo.ConfigError{Field: "params.noise_kind", Value: c.Params.NoiseKind, Reason: "unknown noise"})
	}
	if c.Run.Steps < 0 {
		errs = append(errs, &dynamo.ConfigError{Field: "run.steps", Value: c.Run.Steps, Reason: "must be non-negative"})
	}
	if c.Run.SampleEvery < 0 {
		errs = append(errs, &dynamo.ConfigError{Field: "run.sample_every", Value: c.Run.SampleEvery, Reason: "must be non-negative"})
	}
	if !(c.Params.Dt > 0) {
		errs = append(errs, &dynamo.ConfigError{Field: "params.dt", Value: c.Params.Dt, Reason: "must be positive"})
	}
	g := c.SimGeometry()
	if err := g.Embodiment.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := g.Quantum.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Init.Phases = append([]float64(nil), c.Init.Phases...)
	return &out
}

func (c *Config) TopologyParams() topology.Params {
	g := c.Geometry
	return topology.Params{
		Rows:             g.Rows,
		Cols:             g.Cols,
		Depth:            g.Depth,
		Moore:            g.Moore,
		Wrap:             g.Wrap,
		Count:            g.Count,
		Shells:           g.Shells,
		Radius:           g.Radius,
		Neighbors:        g.Neighbors,
		Spacing:          g.Spacing,
		Reach:            g.Reach,
		BaseWeight:       g.BaseWeight,
		BoundaryFraction: g.BoundaryFraction,
	}
}

func (c *Config) InitPolicy() field.InitPolicy {
	return field.InitPolicy{
		Frequency: field.FrequencyKind(c.Init.Frequency),
		Center:    c.Init.Center,
		Spread:    c.Init.Spread,
		Phase:     field.PhaseKind(c.Init.Phase),
		Twist:     c.Init.Twist,
		Phases:    append([]float64(nil), c.Init.Phases...),
	}
}

func (c *Config) SimGeometry() sim.Geometry {
	e, q := c.Embodiment, c.Quantum
	return sim.Geometry{
		Kind:      topology.Kind(c.Geometry.Kind),
		Topology:  c.TopologyParams(),
		Init:      c.InitPolicy(),
		NoiseKind: integrators.NoiseKind(c.Params.NoiseKind),
		Embodiment: embodiment.Config{
			Radius:     e.Radius,
			Strength:   e.Strength,
			Mode:       embodiment.Mode(e.Mode),
			Amplitude:  e.Amplitude,
			Width:      e.Width,
			Speed:      e.Speed,
			Lifetime:   e.Lifetime,
			MaxRipples: e.MaxRipples,
		},
		Quantum: quantum.Config{
			PairCount:      q.Pairs,
			Coupling:       q.Coupling,
			CollapseRadius: q.CollapseRadius,
			Decay:          q.Decay,
			Reexcite:       q.Reexcite,
			Offset:         q.Offset,
			Settings:       quantum.Settings{A: q.Settings[0], A2: q.Settings[1], B: q.Settings[2], B2: q.Settings[3]},
			Window:         q.Window,
		},
		Seed: c.Run.Seed,
	}
}

func (c *Config) SimParams() sim.Params {
	return sim.Params{
		Coupling:          c.Params.Coupling,
		Noise:             c.Params.Noise,
		Damping:           c.Params.Damping,
		Permeability:      c.Params.Permeability,
		Dt:                c.Params.Dt,
		MaxDt:             c.Params.MaxDt,
		EmbodimentEnabled: c.Embodiment.Enabled,
		TouchRadius:       c.Embodiment.Radius,
		TouchStrength:     c.Embodiment.Strength,
		QuantumEnabled:    c.Quantum.Enabled,
		QuantumCoupling:   c.Quantum.Coupling,
		CollapseRadius:    c.Quantum.CollapseRadius,
		Workers:           c.Params.Workers,
	}
}

func (c *Config) Experiment() experiment.Config {
	return experiment.Config{
		Geometry:    c.SimGeometry(),
		Params:      c.SimParams(),
		Steps:       c.Run.Steps,
		Dt:          c.Params.Dt,
		SampleEvery: c.Run.SampleEvery,
		Seed:        c.Run.Seed,
	}
}

func (c *Config) NexusConfig() nexus.Config {
	n := nexus.DefaultConfig()
	if c.Nexus.MinInterval > 0 {
		n.MinInterval = c.Nexus.MinInterval
	}
	n.Uncertainty = c.Nexus.Uncertainty
	if c.Run.Seed != 0 {
		n.Seed = c.Run.Seed
	}
	return n
}
