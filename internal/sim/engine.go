package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/embodiment"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/integrators"
	"github.com/san-kum/phasefield/internal/metrics"
	"github.com/san-kum/phasefield/internal/quantum"
	"github.com/san-kum/phasefield/internal/topology"
)

// Engine owns one oscillator field and everything that acts on it.
//
// Advance is the only mutator of phases. Inputs from other goroutines
// (SetParameters, SetPointer, EmitTap, InjectUncertainty, Perturb) are queued
// in a mailbox and latched at the start of the next tick, so a step always
// sees one consistent set of inputs. Readers take the state lock and never
// observe a half-finished step.
type Engine struct {
	mu  sync.Mutex
	box mailbox
	log *slog.Logger

	seed     uint64
	geometry Geometry
	params   Params
	in       latched

	topo  *topology.Topology
	field *field.Field
	euler *integrators.Euler
	emb   *embodiment.Module
	qlay  *quantum.Layer
	rng   *rand.Rand

	drive []float64
	qbuf  []float64
	jump  []float64

	t       float64
	steps   uint64
	repairs uint64

	snap      metrics.Snapshot
	snapValid bool
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSeed sets the seed used when a Geometry does not carry its own.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = seed }
}

// New returns an unconfigured engine with default parameters.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:    slog.Default(),
		seed:   1,
		params: DefaultParams(),
	}
	for _, o := range opts {
		o(e)
	}
	e.box.params = e.params
	return e
}

// Configure builds a new topology and field. On error the previous field,
// if any, stays in place and usable.
func (e *Engine) Configure(g Geometry) error {
	seed := g.Seed
	if seed == 0 {
		seed = e.seed
	}

	topo, err := topology.Build(g.Kind, g.Topology)
	if err != nil {
		return checkTables(fmt.Sprintf("configure %s", g.Kind), err)
	}
	n := topo.N()

	f := field.New(n, seed)
	if err := f.Reset(g.Init, topo); err != nil {
		return fmt.Errorf("configure init: %w", err)
	}
	noise, err := integrators.NewNoise(g.NoiseKind, seed+1)
	if err != nil {
		return fmt.Errorf("configure noise: %w", err)
	}
	g.Embodiment = g.Embodiment.WithDefaults()
	emb, err := embodiment.New(g.Embodiment)
	if err != nil {
		return fmt.Errorf("configure embodiment: %w", err)
	}
	g.Quantum = g.Quantum.WithDefaults()
	qlay, err := quantum.New(g.Quantum, f, topo, seed+2)
	if err != nil {
		return checkTables("configure quantum", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.geometry = g
	e.topo = topo
	e.field = f
	e.euler = integrators.NewEuler(noise, n)
	e.emb = emb
	e.qlay = qlay
	e.rng = rand.New(rand.NewPCG(seed+3, seed))
	e.drive = make([]float64, n)
	e.qbuf = make([]float64, n)
	e.jump = make([]float64, n)
	e.t, e.steps, e.repairs = 0, 0, 0
	e.snapValid = false
	e.box.clearInputs()
	e.tuneLayers()

	e.log.Info("field configured",
		"kind", g.Kind,
		"nodes", n,
		"edges", topo.EdgeCount(),
		"boundary", len(topo.BoundaryNodes()),
		"pairs", len(qlay.Pairs()),
		"seed", seed,
	)
	return nil
}

// checkTables wraps a configure error. A stale node reference means a table
// builder is broken, not that the caller asked for something invalid, so it
// panics instead.
func checkTables(stage string, err error) error {
	if errors.Is(err, dynamo.ErrStaleReference) {
		panic(fmt.Errorf("%s: %w", stage, err))
	}
	return fmt.Errorf("%s: %w", stage, err)
}

// SetParameters queues a parameter change for the next tick. Out-of-range
// values are clamped and reported as joined *dynamo.RangeError values; the
// clamped update is applied regardless.
func (e *Engine) SetParameters(u ParamUpdate) error {
	e.box.mu.Lock()
	err := e.box.params.apply(u)
	e.box.paramsDirty = true
	e.box.mu.Unlock()

	if err != nil {
		e.log.Warn("parameters clamped", "err", err)
	}
	return err
}

// Parameters returns the parameters the next tick will use.
func (e *Engine) Parameters() Params {
	e.box.mu.Lock()
	defer e.box.mu.Unlock()
	return e.box.params
}

func (e *Engine) SetPointer(pos dynamo.Vec3, active bool) {
	e.box.mu.Lock()
	defer e.box.mu.Unlock()
	e.box.pointer = embodiment.Pointer{Position: pos, Active: active && pos.IsFinite()}
	e.box.pointerDirty = true
}

// maxQueuedTaps bounds taps waiting for the next tick; older ones are dropped.
const maxQueuedTaps = 64

// EmitTap queues a ripple. Taps with At <= 0 start at the tick that latches them.
func (e *Engine) EmitTap(tap Tap) {
	if !tap.Position.IsFinite() {
		return
	}
	e.box.mu.Lock()
	defer e.box.mu.Unlock()
	if len(e.box.taps) == maxQueuedTaps {
		copy(e.box.taps, e.box.taps[1:])
		e.box.taps = e.box.taps[:maxQueuedTaps-1]
	}
	e.box.taps = append(e.box.taps, tap)
}

// InjectUncertainty sets the re-excitation level of the quantum layer,
// clamped to [0, 1]. It has no effect while the layer is disabled.
func (e *Engine) InjectUncertainty(u float64) {
	if math.IsNaN(u) {
		u = 0
	}
	u = math.Max(0, math.Min(1, u))
	e.box.mu.Lock()
	defer e.box.mu.Unlock()
	e.box.uncertainty = u
}

// Perturb kicks a random fraction of nodes by up to ±strength radians on
// the next tick.
func (e *Engine) Perturb(fraction, strength float64) error {
	var errs []error
	if !(fraction >= 0) || fraction > 1 {
		c := math.Max(0, math.Min(1, fraction))
		if math.IsNaN(fraction) {
			c = 0
		}
		errs = append(errs, &dynamo.RangeError{Field: "perturb.fraction", Given: fraction, Clamped: c})
		fraction = c
	}
	if !(strength >= 0) || math.IsInf(strength, 1) {
		errs = append(errs, &dynamo.RangeError{Field: "perturb.strength", Given: strength, Clamped: 0})
		strength = 0
	}

	e.box.mu.Lock()
	e.box.perturb = append(e.box.perturb, perturbation{fraction: fraction, strength: strength})
	e.box.mu.Unlock()
	return errors.Join(errs...)
}

// Advance integrates one step of length dt. dt above MaxDt is clamped.
func (e *Engine) Advance(dt float64) error {
	if !(dt > 0) {
		return fmt.Errorf("advance dt=%v: %w", dt, dynamo.ErrNonPositiveStep)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.field == nil {
		return dynamo.ErrNotConfigured
	}

	e.box.drain(&e.in)
	if e.in.paramsDirty {
		e.params = e.in.params
		e.tuneLayers()
		e.log.Debug("parameters latched", "params", e.params)
	}
	if dt > e.params.MaxDt {
		dt = e.params.MaxDt
	}
	if e.in.pointerSet {
		e.emb.SetPointer(e.in.pointer)
	}
	for _, tap := range e.in.taps {
		if e.emb.Emit(tap, e.t) {
			e.log.Debug("ripple ring full, oldest dropped")
		}
	}
	for _, p := range e.in.perturb {
		e.applyPerturbation(p)
	}

	p := e.params
	var drive []float64
	if p.EmbodimentEnabled {
		if n := e.emb.Retire(e.t); n > 0 {
			e.log.Debug("ripples retired", "count", n, "t", e.t)
		}
		e.emb.Forcing(e.field, e.topo, e.t, e.drive)
		drive = e.drive
	}
	if p.QuantumEnabled {
		ptr := e.emb.Pointer()
		if n := e.qlay.Collapse(ptr.Position, ptr.Active, e.jump); n > 0 {
			e.log.Debug("superpositions collapsed", "count", n, "t", e.t)
		}
		e.qlay.Forcing(e.qbuf)
		if drive == nil {
			drive = e.qbuf
		} else {
			for i, v := range e.qbuf {
				drive[i] += v
			}
		}
		e.qlay.Evolve(e.in.uncertainty)
	}

	repaired := e.euler.Step(e.field, e.topo, integrators.Forcing{Drive: drive, Jump: e.jump}, integrators.Params{
		Coupling:     p.Coupling,
		Noise:        p.Noise,
		Damping:      p.Damping,
		Permeability: p.Permeability,
		Workers:      p.Workers,
	}, e.t, dt)
	if repaired > 0 {
		e.repairs += uint64(repaired)
		e.log.Warn("non-finite phases repaired", "count", repaired, "step", e.steps)
	}

	e.t += dt
	e.steps++
	if p.QuantumEnabled {
		e.qlay.Observe()
	}
	e.snapValid = false
	return nil
}

func (e *Engine) applyPerturbation(p perturbation) {
	n := e.field.N()
	k := int(math.Round(p.fraction * float64(n)))
	if k == 0 || p.strength == 0 {
		return
	}
	for _, i := range e.rng.Perm(n)[:k] {
		e.jump[i] += (2*e.rng.Float64() - 1) * p.strength
	}
	e.log.Debug("field perturbed", "nodes", k, "strength", p.strength)
}

// tuneLayers pushes continuous parameters into the embodiment and quantum
// layers. Caller holds mu.
func (e *Engine) tuneLayers() {
	e.emb.Tune(e.params.TouchRadius, e.params.TouchStrength)
	e.qlay.Tune(e.params.QuantumCoupling, e.params.CollapseRadius)
}

// Reset redraws frequencies and phases under policy, re-superposes the
// quantum layer and clears ripples, pending inputs and the clock. Topology
// and pairs are kept.
func (e *Engine) Reset(policy field.InitPolicy) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.field == nil {
		return dynamo.ErrNotConfigured
	}
	if err := e.field.Reset(policy, e.topo); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	e.geometry.Init = policy
	e.qlay.Reset()
	e.emb.Clear()
	e.box.clearInputs()
	for i := range e.jump {
		e.jump[i] = 0
	}
	e.t, e.steps, e.repairs = 0, 0, 0
	e.snapValid = false
	e.log.Info("field reset", "phase", policy.Phase, "frequency", policy.Frequency)
	return nil
}

// Phases returns a copy of the current phases, or nil before Configure.
func (e *Engine) Phases() []float64 {
	return e.PhasesInto(nil)
}

// PhasesInto copies the current phases into dst, growing it if needed, and
// returns the filled slice.
func (e *Engine) PhasesInto(dst []float64) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.field == nil {
		return dst[:0]
	}
	n := e.field.N()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	copy(dst, e.field.Phases())
	return dst
}

// Metrics returns the coherence snapshot of the current state. The snapshot
// is computed at most once per step.
func (e *Engine) Metrics() metrics.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.field == nil {
		return metrics.Snapshot{}
	}
	if !e.snapValid {
		e.snap = e.measure()
		e.snapValid = true
	}
	return e.snap
}

func (e *Engine) measure() metrics.Snapshot {
	phases := e.field.Phases()
	s := metrics.Snapshot{Time: e.t, Steps: e.steps, Repairs: e.repairs}
	s.R, s.Psi = metrics.Order(phases)
	s.RBoundary, _ = metrics.OrderOf(phases, e.topo.BoundaryNodes())
	s.RInterior, _ = metrics.OrderOf(phases, e.topo.InteriorNodes())
	s.Entropy = metrics.Entropy(phases, metrics.DefaultEntropyBins)
	s.LocalOrder = metrics.LocalOrder(phases, e.topo, nil)
	s.Plaquette = metrics.PlaquetteOrder(phases, e.topo, nil)
	s.PhaseDiffMean, s.PhaseDiffStd = metrics.NeighborSpread(phases, e.topo)

	if e.params.QuantumEnabled {
		s.CHSH = e.qlay.S()
		s.EntangledCount = len(e.qlay.Pairs())
		s.Superposed = e.qlay.Superposed()
		s.SuperpositionStrength = e.qlay.Strength()
	}
	if e.params.EmbodimentEnabled {
		s.Ripples = len(e.emb.Ripples())
	}
	return s
}

// Configured reports whether Configure has succeeded at least once.
func (e *Engine) Configured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.field != nil
}

// Topology returns the active topology, or nil. Topologies are immutable.
func (e *Engine) Topology() *topology.Topology {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topo
}

// Geometry returns the configuration the active field was built from.
func (e *Engine) Geometry() Geometry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geometry
}

// Partner returns node i's entangled partner, or -1 when i has none, is out
// of range, or the quantum layer is disabled.
func (e *Engine) Partner(i int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.field == nil || i < 0 || i >= e.field.N() || !e.params.QuantumEnabled {
		return -1
	}
	return e.field.Partner(i)
}

// Time returns the simulation clock.
func (e *Engine) Time() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.t
}

func (e *Engine) Steps() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps
}

// Ripples returns a copy of the live ripples.
func (e *Engine) Ripples() []embodiment.Ripple {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.emb == nil {
		return nil
	}
	return append([]embodiment.Ripple(nil), e.emb.Ripples()...)
}

// Branch returns node i's superposition state.
func (e *Engine) Branch(i int) (field.Branch, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.field == nil || i < 0 || i >= e.field.N() {
		return field.Branch{}, false
	}
	return *e.field.Branch(i), true
}
