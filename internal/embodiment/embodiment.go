// Package embodiment turns pointer input and taps into per-node forcing.
//
// A pointer perturbs nodes within a touch radius with quadratic falloff. A tap
// launches a ripple: a Gaussian ring expanding from the tap point whose
// amplitude decays exponentially with age. Ripples live in a bounded ring and
// retire once their envelope drops below RetireEnvelope.
package embodiment

import (
	"math"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/topology"
)

// RetireEnvelope is the exp(-age/τ) level below which a ripple is dropped.
const RetireEnvelope = 1e-3

// Mode selects how the pointer acts on nodes.
type Mode string

const (
	// Drive adds the influence as a positive frequency push.
	Drive Mode = "drive"
	// Pull draws nodes toward the pointer's azimuth around the field centroid.
	Pull Mode = "pull"
)

type Pointer struct {
	Position dynamo.Vec3
	Active   bool
}

// Tap requests a ripple. At <= 0 starts it at the current simulation time;
// zero Amplitude or Width fall back to the module defaults.
type Tap struct {
	Position  dynamo.Vec3
	At        float64
	Amplitude float64
	Width     float64
}

type Ripple struct {
	Origin    dynamo.Vec3
	Start     float64
	Amplitude float64
	Width     float64
}

type Config struct {
	Radius   float64
	Strength float64
	Mode     Mode

	Amplitude  float64
	Width      float64
	Speed      float64
	Lifetime   float64 // τ
	MaxRipples int
}

func DefaultConfig() Config {
	return Config{
		Radius:     3,
		Strength:   1,
		Mode:       Drive,
		Amplitude:  1.5,
		Width:      0.75,
		Speed:      4,
		Lifetime:   0.6,
		MaxRipples: 32,
	}
}

// WithDefaults fills the fields whose zero value is unusable. A zero Config
// becomes DefaultConfig; strength, amplitude and speed keep an explicit zero.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c == (Config{}) {
		return d
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.Radius == 0 {
		c.Radius = d.Radius
	}
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Lifetime == 0 {
		c.Lifetime = d.Lifetime
	}
	if c.MaxRipples == 0 {
		c.MaxRipples = d.MaxRipples
	}
	return c
}

func (c Config) Validate() error {
	bad := func(field string, v any, reason string) error {
		return &dynamo.ConfigError{Field: "embodiment." + field, Value: v, Reason: reason}
	}
	switch c.Mode {
	case Drive, Pull, "":
	default:
		return bad("mode", c.Mode, "expected drive or pull")
	}
	if !(c.Radius > 0) {
		return bad("radius", c.Radius, "must be positive")
	}
	if c.Strength < 0 || c.Amplitude < 0 || c.Speed < 0 {
		return bad("strength/amplitude/speed", [3]float64{c.Strength, c.Amplitude, c.Speed}, "must not be negative")
	}
	if !(c.Width > 0) || !(c.Lifetime > 0) {
		return bad("width/lifetime", [2]float64{c.Width, c.Lifetime}, "must be positive")
	}
	if c.MaxRipples < 1 {
		return bad("max_ripples", c.MaxRipples, "must be at least 1")
	}
	return nil
}

// Module owns the pointer and ripple state. It is not safe for concurrent use.
type Module struct {
	cfg     Config
	pointer Pointer
	ripples []Ripple
}

func New(cfg Config) (*Module, error) {
	if cfg.Mode == "" {
		cfg.Mode = Drive
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Module{cfg: cfg, ripples: make([]Ripple, 0, cfg.MaxRipples)}, nil
}

func (m *Module) Config() Config { return m.cfg }

// Tune replaces radius and strength; the ripple ring is kept.
func (m *Module) Tune(radius, strength float64) {
	m.cfg.Radius = radius
	m.cfg.Strength = strength
}

func (m *Module) SetPointer(p Pointer) { m.pointer = p }
func (m *Module) Pointer() Pointer     { return m.pointer }

// Emit schedules a ripple. When the ring is full the oldest ripple is dropped;
// Emit reports whether that happened.
func (m *Module) Emit(tap Tap, now float64) bool {
	r := Ripple{Origin: tap.Position, Start: tap.At, Amplitude: tap.Amplitude, Width: tap.Width}
	if r.Start <= 0 {
		r.Start = now
	}
	if r.Amplitude <= 0 {
		r.Amplitude = m.cfg.Amplitude
	}
	if r.Width <= 0 {
		r.Width = m.cfg.Width
	}

	dropped := false
	if len(m.ripples) == m.cfg.MaxRipples {
		copy(m.ripples, m.ripples[1:])
		m.ripples = m.ripples[:len(m.ripples)-1]
		dropped = true
	}
	m.ripples = append(m.ripples, r)
	return dropped
}

// Ripples returns the live ripples, oldest first. Read-only.
func (m *Module) Ripples() []Ripple { return m.ripples }

// Retire drops ripples whose envelope has decayed below RetireEnvelope and
// returns how many were removed.
func (m *Module) Retire(now float64) int {
	kept := m.ripples[:0]
	for _, r := range m.ripples {
		if m.envelope(now-r.Start) >= RetireEnvelope {
			kept = append(kept, r)
		}
	}
	n := len(m.ripples) - len(kept)
	m.ripples = kept
	return n
}

// Clear drops the pointer and every ripple.
func (m *Module) Clear() {
	m.pointer = Pointer{}
	m.ripples = m.ripples[:0]
}

// Influence is strength·max(0, 1 - d/R)².
func (m *Module) Influence(d float64) float64 {
	if d >= m.cfg.Radius {
		return 0
	}
	x := 1 - d/m.cfg.Radius
	return m.cfg.Strength * x * x
}

func (m *Module) envelope(age float64) float64 {
	return math.Exp(-age / m.cfg.Lifetime)
}

// Pulse is the ripple's contribution at distance d from its origin.
func (m *Module) Pulse(r Ripple, d, now float64) float64 {
	age := now - r.Start
	if age < 0 {
		return 0
	}
	env := m.envelope(age)
	if env < RetireEnvelope {
		return 0
	}
	off := d - m.cfg.Speed*age
	return r.Amplitude * env * math.Exp(-off*off/(2*r.Width*r.Width))
}

// Forcing overwrites out with the pointer and ripple terms for every node.
// Phases are only read.
func (m *Module) Forcing(f *field.Field, topo *topology.Topology, now float64, out []float64) {
	for i := range out {
		out[i] = 0
	}
	if !m.pointer.Active && len(m.ripples) == 0 {
		return
	}

	var psi float64
	pull := m.cfg.Mode == Pull
	if pull {
		d := m.pointer.Position.Sub(topo.Centroid())
		psi = math.Atan2(d.Y, d.X)
	}
	phases := f.Phases()

	dynamo.ParallelFor(len(out), 1024, 0, func(start, end int) {
		for i := start; i < end; i++ {
			p := topo.Position(i)
			var v float64
			if m.pointer.Active {
				w := m.Influence(p.Dist(m.pointer.Position))
				if pull {
					w *= math.Sin(psi - phases[i])
				}
				v += w
			}
			for _, r := range m.ripples {
				v += m.Pulse(r, p.Dist(r.Origin), now)
			}
			out[i] = v
		}
	})
}
