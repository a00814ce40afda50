package sim

import (
	"log/slog"

	"github.com/san-kum/phasefield/internal/embodiment"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/integrators"
	"github.com/san-kum/phasefield/internal/quantum"
	"github.com/san-kum/phasefield/internal/topology"
)

const (
	DefaultDt    = 0.01
	DefaultMaxDt = 0.05

	// MinDt is the clamp target for non-positive configured steps.
	MinDt = 1e-4
	// MinTouchRadius is the clamp target for non-positive touch radii.
	MinTouchRadius = 1e-3
)

// Geometry is the structural configuration. Changing any of it requires
// Configure, which rebuilds topology, field and layers.
type Geometry struct {
	Kind       topology.Kind
	Topology   topology.Params
	Init       field.InitPolicy
	NoiseKind  integrators.NoiseKind
	Embodiment embodiment.Config
	Quantum    quantum.Config
	// Seed fixes every random stream. Zero falls back to the engine seed.
	Seed uint64
}

// DefaultGeometry is a 32×32 clamped grid with default layers.
func DefaultGeometry() Geometry {
	return Geometry{
		Kind:       topology.Grid,
		Topology:   topology.Params{Rows: 32, Cols: 32},
		Init:       field.DefaultInitPolicy(),
		NoiseKind:  integrators.NoiseUniform,
		Embodiment: embodiment.DefaultConfig(),
		Quantum:    quantum.DefaultConfig(),
	}
}

// Params are the continuous parameters. They may change between any two
// steps through SetParameters.
type Params struct {
	Coupling     float64 // K
	Noise        float64 // σ
	Damping      float64 // γ
	Permeability float64
	Dt           float64 // nominal step for drivers; Advance takes its own dt
	MaxDt        float64

	EmbodimentEnabled bool
	TouchRadius       float64
	TouchStrength     float64

	QuantumEnabled  bool
	QuantumCoupling float64 // Kq
	CollapseRadius  float64

	Workers int
}

func DefaultParams() Params {
	return Params{
		Coupling:          1,
		Permeability:      0.5,
		Dt:                DefaultDt,
		MaxDt:             DefaultMaxDt,
		EmbodimentEnabled: true,
		TouchRadius:       3,
		TouchStrength:     1,
		QuantumCoupling:   0.5,
		CollapseRadius:    1,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (p Params) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("K", p.Coupling),
		slog.Float64("sigma", p.Noise),
		slog.Float64("gamma", p.Damping),
		slog.Float64("dt", p.Dt),
		slog.Bool("embodiment", p.EmbodimentEnabled),
		slog.Bool("quantum", p.QuantumEnabled),
		slog.Float64("Kq", p.QuantumCoupling),
	)
}

// ParamUpdate changes only the fields that are set.
type ParamUpdate struct {
	Coupling     *float64
	Noise        *float64
	Damping      *float64
	Permeability *float64
	Dt           *float64
	MaxDt        *float64

	EmbodimentEnabled *bool
	TouchRadius       *float64
	TouchStrength     *float64

	QuantumEnabled  *bool
	QuantumCoupling *float64
	CollapseRadius  *float64

	Workers *int
}

// Ptr returns a pointer to v, for building a ParamUpdate inline.
func Ptr[T any](v T) *T { return &v }

// Update turns a full parameter set into an update that sets every field.
func (p Params) Update() ParamUpdate {
	return ParamUpdate{
		Coupling:          Ptr(p.Coupling),
		Noise:             Ptr(p.Noise),
		Damping:           Ptr(p.Damping),
		Permeability:      Ptr(p.Permeability),
		Dt:                Ptr(p.Dt),
		MaxDt:             Ptr(p.MaxDt),
		EmbodimentEnabled: Ptr(p.EmbodimentEnabled),
		TouchRadius:       Ptr(p.TouchRadius),
		TouchStrength:     Ptr(p.TouchStrength),
		QuantumEnabled:    Ptr(p.QuantumEnabled),
		QuantumCoupling:   Ptr(p.QuantumCoupling),
		CollapseRadius:    Ptr(p.CollapseRadius),
		Workers:           Ptr(p.Workers),
	}
}

// Tap re-exports the embodiment tap so callers need only this package.
type Tap = embodiment.Tap
