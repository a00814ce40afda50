package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/topology"
)

// FrequencyKind selects how natural frequencies are drawn.
type FrequencyKind string

const (
	FreqUniform  FrequencyKind = "uniform"
	FreqGaussian FrequencyKind = "gaussian"
	FreqBimodal  FrequencyKind = "bimodal"
	FreqConstant FrequencyKind = "constant"
)

// PhaseKind selects the initial phase pattern.
type PhaseKind string

const (
	PhaseUniform  PhaseKind = "uniform"
	PhaseSpiral   PhaseKind = "spiral"
	PhaseWave     PhaseKind = "wave"
	PhaseSync     PhaseKind = "sync"
	PhaseExplicit PhaseKind = "explicit"
)

// InitPolicy describes how Reset draws frequencies and phases.
type InitPolicy struct {
	Frequency FrequencyKind
	// Center and Spread parameterize the frequency distribution: half-width
	// for uniform, standard deviation for gaussian, half-separation of the
	// two peaks for bimodal.
	Center float64
	Spread float64

	Phase PhaseKind
	// Twist is the radial winding of the spiral pattern and the wavenumber of
	// the plane wave.
	Twist float64
	// Phases is cycled over the nodes for PhaseExplicit and the start value
	// (first element) for PhaseSync.
	Phases []float64
}

// DefaultInitPolicy returns uniform frequencies in [-1, 1] and uniform phases.
func DefaultInitPolicy() InitPolicy {
	return InitPolicy{
		Frequency: FreqUniform,
		Spread:    1,
		Phase:     PhaseUniform,
		Twist:     1,
	}
}

func (p InitPolicy) validate() error {
	switch p.Frequency {
	case FreqUniform, FreqGaussian, FreqBimodal, FreqConstant, "":
	default:
		return &dynamo.ConfigError{Field: "init.frequency", Value: p.Frequency, Reason: "unknown distribution"}
	}
	if p.Spread < 0 || !dynamo.IsFinite(p.Spread) || !dynamo.IsFinite(p.Center) {
		return &dynamo.ConfigError{Field: "init.spread", Value: p.Spread, Reason: "must be finite and non-negative"}
	}
	switch p.Phase {
	case PhaseUniform, PhaseSpiral, PhaseWave, PhaseSync, "":
	case PhaseExplicit:
		if len(p.Phases) == 0 {
			return &dynamo.ConfigError{Field: "init.phases", Value: 0, Reason: "explicit pattern needs at least one phase"}
		}
	default:
		return &dynamo.ConfigError{Field: "init.phase", Value: p.Phase, Reason: "unknown pattern"}
	}
	for _, v := range p.Phases {
		if !dynamo.IsFinite(v) {
			return &dynamo.ConfigError{Field: "init.phases", Value: v, Reason: "must be finite"}
		}
	}
	return nil
}

// Reset redraws frequencies and phases per policy. Topology, partners and
// branches are untouched.
func (f *Field) Reset(p InitPolicy, topo *topology.Topology) error {
	if err := p.validate(); err != nil {
		return err
	}
	if topo.N() != f.N() {
		return fmt.Errorf("reset: topology has %d nodes, field has %d: %w", topo.N(), f.N(), dynamo.ErrInvalidConfiguration)
	}
	f.drawFrequencies(p)
	f.drawPhases(p, topo)
	copy(f.next, f.phases)
	return nil
}

func (f *Field) drawFrequencies(p InitPolicy) {
	switch p.Frequency {
	case FreqGaussian:
		if p.Spread == 0 {
			fill(f.freq, p.Center)
			return
		}
		d := distuv.Normal{Mu: p.Center, Sigma: p.Spread, Src: f.rng}
		for i := range f.freq {
			f.freq[i] = d.Rand()
		}
	case FreqBimodal:
		d := distuv.Normal{Mu: 0, Sigma: p.Spread / 4, Src: f.rng}
		for i := range f.freq {
			peak := p.Center - p.Spread
			if i%2 == 1 {
				peak = p.Center + p.Spread
			}
			f.freq[i] = peak
			if p.Spread > 0 {
				f.freq[i] += d.Rand()
			}
		}
	case FreqConstant:
		fill(f.freq, p.Center)
	default:
		if p.Spread == 0 {
			fill(f.freq, p.Center)
			return
		}
		d := distuv.Uniform{Min: p.Center - p.Spread, Max: p.Center + p.Spread, Src: f.rng}
		for i := range f.freq {
			f.freq[i] = d.Rand()
		}
	}
}

func (f *Field) drawPhases(p InitPolicy, topo *topology.Topology) {
	switch p.Phase {
	case PhaseSync:
		start := 0.0
		if len(p.Phases) > 0 {
			start = p.Phases[0]
		}
		for i := range f.phases {
			f.SetPhase(i, start)
		}
	case PhaseExplicit:
		for i := range f.phases {
			f.SetPhase(i, p.Phases[i%len(p.Phases)])
		}
	case PhaseWave:
		lo, hi := topo.Bounds()
		span := hi.X - lo.X
		if span == 0 {
			span = 1
		}
		for i := range f.phases {
			x := (topo.Position(i).X - lo.X) / span
			f.SetPhase(i, dynamo.TwoPi*p.Twist*x)
		}
	case PhaseSpiral:
		c := topo.Centroid()
		for i := range f.phases {
			d := topo.Position(i).Sub(c)
			angle := math.Atan2(d.Y, d.X)
			f.SetPhase(i, angle+dynamo.TwoPi*p.Twist*topo.NormalizedRadius(i))
		}
	default:
		for i := range f.phases {
			f.phases[i] = f.RandomPhase()
		}
	}
}

func fill(s []float64, v float64) {
	for i := range s {
		s[i] = v
	}
}
