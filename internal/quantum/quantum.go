// Package quantum layers an entanglement analogy over a phase field:
// symmetric partner coupling, two-branch superposition on boundary nodes,
// proximity collapse and a CHSH-style correlation statistic.
//
// None of this is physics. Every quantity is an ordinary float64 metaphor
// that shapes the field's dynamics.
package quantum

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/topology"
)

// Epsilon bounds the drift of α²+β² from 1 after renormalization.
const Epsilon = 1e-9

// Settings are the measurement angles of the CHSH analogy.
type Settings struct {
	A, A2, B, B2 float64
}

func DefaultSettings() Settings {
	return Settings{A: 0, A2: math.Pi / 2, B: math.Pi / 4, B2: -math.Pi / 4}
}

type Config struct {
	PairCount      int
	Coupling       float64 // Kq
	CollapseRadius float64
	Decay          float64 // per-step factor on the non-dominant weight
	Reexcite       float64 // share of the α/β gap closed per unit uncertainty
	Offset         float64 // phase of branch B relative to A
	Settings       Settings
	Window         int // CHSH averaging window in steps; 0 averages over the whole run
}

func DefaultConfig() Config {
	return Config{
		PairCount:      8,
		Coupling:       0.5,
		CollapseRadius: 1,
		Decay:          0.995,
		Reexcite:       0.1,
		Offset:         math.Pi,
		Settings:       DefaultSettings(),
		Window:         256,
	}
}

// WithDefaults fills the fields whose zero value is unusable. A zero Config
// becomes DefaultConfig. Otherwise only Decay and an all-zero Settings are
// filled; zero pair count, coupling, offset and window are taken as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c == (Config{}) {
		return d
	}
	if c.Decay == 0 {
		c.Decay = d.Decay
	}
	if c.Settings == (Settings{}) {
		c.Settings = d.Settings
	}
	return c
}

func (c Config) Validate() error {
	bad := func(field string, v any, reason string) error {
		return &dynamo.ConfigError{Field: "quantum." + field, Value: v, Reason: reason}
	}
	switch {
	case c.PairCount < 0:
		return bad("pair_count", c.PairCount, "must not be negative")
	case c.CollapseRadius < 0 || !dynamo.IsFinite(c.CollapseRadius):
		return bad("collapse_radius", c.CollapseRadius, "must be finite and non-negative")
	case !(c.Decay > 0 && c.Decay <= 1):
		return bad("decay", c.Decay, "must be in (0, 1]")
	case !(c.Reexcite >= 0 && c.Reexcite <= 1):
		return bad("reexcite", c.Reexcite, "must be in [0, 1]")
	case c.Window < 0:
		return bad("window", c.Window, "must not be negative")
	case !dynamo.IsFinite(c.Coupling) || !dynamo.IsFinite(c.Offset):
		return bad("coupling/offset", [2]float64{c.Coupling, c.Offset}, "must be finite")
	}
	return nil
}

// Layer owns the pairing and branch bookkeeping of one field. Partner
// indices live in the field itself so every reader sees a single table.
type Layer struct {
	cfg     Config
	f       *field.Field
	topo    *topology.Topology
	pairs   [][2]int
	tracked []int
	rng     *rand.Rand

	corr    [4]float64
	samples int
}

// New pairs nodes and superposes the boundary. Pairs are drawn by a seeded
// shuffle of boundary nodes, or of all nodes when the boundary is too small,
// and stay fixed until the layer is rebuilt.
func New(cfg Config, f *field.Field, topo *topology.Topology, seed uint64) (*Layer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Layer{
		cfg:  cfg,
		f:    f,
		topo: topo,
		rng:  rand.New(rand.NewPCG(seed, seed^0xc2b2ae3d27d4eb4f)),
	}
	f.ClearQuantum()

	want := cfg.PairCount
	if want > f.N()/2 {
		want = f.N() / 2
	}
	candidates := topo.BoundaryNodes()
	if len(candidates) < 2*want {
		candidates = make([]int, f.N())
		for i := range candidates {
			candidates[i] = i
		}
	} else {
		candidates = append([]int(nil), candidates...)
	}
	l.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for k := 0; k < want; k++ {
		a, b := candidates[2*k], candidates[2*k+1]
		if err := f.Pair(a, b); err != nil {
			return nil, err
		}
		l.pairs = append(l.pairs, [2]int{a, b})
	}
	if err := f.ValidatePartners(); err != nil {
		return nil, err
	}

	l.tracked = topo.BoundaryNodes()
	l.Reset()
	return l, nil
}

func (l *Layer) Config() Config { return l.cfg }

// Tune updates the continuous parameters. Pairing is left alone.
func (l *Layer) Tune(coupling, collapseRadius float64) {
	l.cfg.Coupling = coupling
	l.cfg.CollapseRadius = collapseRadius
}

// Pairs returns the entangled pairs. Read-only.
func (l *Layer) Pairs() [][2]int { return l.pairs }

// Reset re-superposes every tracked node and clears the CHSH averages.
func (l *Layer) Reset() {
	for _, i := range l.tracked {
		*l.f.Branch(i) = field.Balanced(l.cfg.Offset)
	}
	l.corr = [4]float64{}
	l.samples = 0
}

// Forcing overwrites out with Kq·sin(θ_partner - θ_i) for paired nodes.
func (l *Layer) Forcing(out []float64) {
	for i := range out {
		out[i] = 0
	}
	phases := l.f.Phases()
	for _, p := range l.pairs {
		a, b := p[0], p[1]
		out[a] = l.cfg.Coupling * math.Sin(phases[b]-phases[a])
		out[b] = l.cfg.Coupling * math.Sin(phases[a]-phases[b])
	}
}

// Evolve decays every superposed node toward its dominant branch (A on ties)
// and, with uncertainty u in [0, 1], pushes the weights back toward balance.
func (l *Layer) Evolve(u float64) {
	u = math.Max(0, math.Min(1, u))
	for _, i := range l.tracked {
		br := l.f.Branch(i)
		if br.Mode != field.Superposed {
			continue
		}
		hi, lo := &br.Alpha, &br.Beta
		if *lo > *hi {
			hi, lo = lo, hi
		}
		*lo *= l.cfg.Decay
		if u > 0 {
			*lo += u * l.cfg.Reexcite * (*hi - *lo)
		}
		normalize(br)
	}
}

func normalize(br *field.Branch) {
	s := math.Hypot(br.Alpha, br.Beta)
	if s == 0 || !dynamo.IsFinite(s) {
		br.Alpha, br.Beta = math.Sqrt2/2, math.Sqrt2/2
		return
	}
	br.Alpha /= s
	br.Beta /= s
}

// Collapse resolves every superposed node within CollapseRadius of an active
// pointer. Branch A is chosen with probability α²; branch B adds Offset to
// jump, which the integrator applies on the next step. Resolved nodes are
// left alone, so repeated calls are harmless. Returns the number collapsed.
func (l *Layer) Collapse(pointer dynamo.Vec3, active bool, jump []float64) int {
	if !active {
		return 0
	}
	n := 0
	for _, i := range l.tracked {
		br := l.f.Branch(i)
		if br.Mode != field.Superposed {
			continue
		}
		if l.topo.Position(i).Dist(pointer) > l.cfg.CollapseRadius {
			continue
		}
		pick := distuv.Bernoulli{P: math.Min(1, br.Alpha*br.Alpha), Src: l.rng}
		if pick.Rand() == 0 {
			jump[i] += br.Offset
		}
		*br = field.Branch{Mode: field.Resolved}
		n++
	}
	return n
}

// Observe folds the current phases into the running CHSH correlations.
func (l *Layer) Observe() {
	if len(l.pairs) == 0 {
		return
	}
	s := l.cfg.Settings
	angles := [4][2]float64{{s.A, s.B}, {s.A, s.B2}, {s.A2, s.B}, {s.A2, s.B2}}
	phases := l.f.Phases()

	l.samples++
	rate := 1 / float64(l.samples)
	if l.cfg.Window > 0 && l.samples > l.cfg.Window {
		rate = 1 / float64(l.cfg.Window)
	}
	for k, xy := range angles {
		var sum float64
		for _, p := range l.pairs {
			sum += math.Cos(phases[p[0]]-xy[0]) * math.Cos(phases[p[1]]-xy[1])
		}
		e := 2 * sum / float64(len(l.pairs))
		l.corr[k] += rate * (e - l.corr[k])
	}
}

// Correlations returns the averaged E(a,b), E(a,b'), E(a',b), E(a',b').
func (l *Layer) Correlations() [4]float64 { return l.corr }

// S is E(a,b) + E(a,b') + E(a',b) - E(a',b').
func (l *Layer) S() float64 {
	return l.corr[0] + l.corr[1] + l.corr[2] - l.corr[3]
}

// Strength is the mean of 2αβ over tracked nodes; resolved nodes count as 0.
func (l *Layer) Strength() float64 {
	if len(l.tracked) == 0 {
		return 0
	}
	var sum float64
	for _, i := range l.tracked {
		br := l.f.Branch(i)
		if br.Mode == field.Superposed {
			sum += 2 * br.Alpha * br.Beta
		}
	}
	return sum / float64(len(l.tracked))
}

// Superposed counts tracked nodes still in superposition.
func (l *Layer) Superposed() int {
	n := 0
	for _, i := range l.tracked {
		if l.f.Branch(i).Mode == field.Superposed {
			n++
		}
	}
	return n
}
