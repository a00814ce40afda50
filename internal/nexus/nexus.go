// Package nexus is a closed-loop modulator. It watches the order parameter,
// classifies the coherence regime and trend, and answers with rate-limited
// taps and an uncertainty level, using only the engine's public inputs.
package nexus

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/metrics"
	"github.com/san-kum/phasefield/internal/sim"
)

type Regime string

const (
	Low      Regime = "low"
	Mid      Regime = "mid"
	High     Regime = "high"
	Critical Regime = "critical"
)

type Trend string

const (
	Unknown Trend = "unknown"
	Rising  Trend = "rising"
	Falling Trend = "falling"
	Stable  Trend = "stable"
)

// Band is the action envelope of one regime. Widths are fractions of the
// field's extent.
type Band struct {
	StrengthMin, StrengthMax float64
	WidthMin, WidthMax       float64
}

var Bands = map[Regime]Band{
	High:     {StrengthMin: 0.4, StrengthMax: 0.6, WidthMin: 0.16, WidthMax: 0.22},
	Mid:      {StrengthMin: 0.8, StrengthMax: 1.2, WidthMin: 0.22, WidthMax: 0.31},
	Low:      {StrengthMin: 1.3, StrengthMax: 1.8, WidthMin: 0.28, WidthMax: 0.41},
	Critical: {StrengthMin: 1.0, StrengthMax: 1.0, WidthMin: 0.25, WidthMax: 0.25},
}

type Config struct {
	HighThreshold float64
	LowThreshold  float64
	CriticalLo    float64
	CriticalHi    float64

	History    int
	TrendSpan  int
	TrendDelta float64

	// MinInterval is the minimum simulation time between actions.
	MinInterval float64
	// Uncertainty feeds 1 - r into the quantum layer on every sample.
	Uncertainty bool
	Seed        uint64
}

func DefaultConfig() Config {
	return Config{
		HighThreshold: 0.75,
		LowThreshold:  0.30,
		CriticalLo:    0.45,
		CriticalHi:    0.55,
		History:       20,
		TrendSpan:     3,
		TrendDelta:    0.05,
		MinInterval:   0.5,
		Uncertainty:   true,
		Seed:          1,
	}
}

// Action is one modulation decision.
type Action struct {
	Regime   Regime
	Trend    Trend
	Strength float64
	Width    float64
	Position dynamo.Vec3
	At       float64
}

// LogValue implements slog.LogValuer for structured logging.
func (a Action) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("regime", string(a.Regime)),
		slog.String("trend", string(a.Trend)),
		slog.Float64("strength", a.Strength),
		slog.Float64("width", a.Width),
		slog.Float64("t", a.At),
	)
}

type Driver struct {
	cfg     Config
	log     *slog.Logger
	rng     *rand.Rand
	history []float64
	last    float64
	acted   bool
	actions []Action
}

func New(cfg Config, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	if cfg.History < cfg.TrendSpan {
		cfg.History = cfg.TrendSpan
	}
	return &Driver{
		cfg: cfg,
		log: log,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d)),
	}
}

// Classify maps an order parameter to its regime. The critical band wins
// over the others.
func (d *Driver) Classify(r float64) Regime {
	switch {
	case r >= d.cfg.CriticalLo && r <= d.cfg.CriticalHi:
		return Critical
	case r >= d.cfg.HighThreshold:
		return High
	case r <= d.cfg.LowThreshold:
		return Low
	}
	return Mid
}

// Record appends r to the bounded history.
func (d *Driver) Record(r float64) {
	d.history = append(d.history, r)
	if len(d.history) > d.cfg.History {
		d.history = d.history[len(d.history)-d.cfg.History:]
	}
}

// Trend compares the newest sample with the one TrendSpan-1 samples back.
func (d *Driver) Trend() Trend {
	n := len(d.history)
	if d.cfg.TrendSpan < 2 || n < d.cfg.TrendSpan {
		return Unknown
	}
	first, last := d.history[n-d.cfg.TrendSpan], d.history[n-1]
	switch {
	case last > first+d.cfg.TrendDelta:
		return Rising
	case last < first-d.cfg.TrendDelta:
		return Falling
	}
	return Stable
}

// Decide records r and returns an action unless the rate limit holds it back.
// lo and hi bound the field; taps land uniformly inside them.
func (d *Driver) Decide(r, now float64, lo, hi dynamo.Vec3) (Action, bool) {
	d.Record(r)
	if d.acted && now-d.last < d.cfg.MinInterval {
		return Action{}, false
	}

	regime := d.Classify(r)
	band := Bands[regime]
	a := Action{
		Regime:   regime,
		Trend:    d.Trend(),
		Strength: d.between(band.StrengthMin, band.StrengthMax),
		At:       now,
	}

	switch {
	case a.Trend == Falling && regime != Low:
		a.Strength *= 1.2
	case a.Trend == Rising && regime == High:
		a.Strength *= 0.8
	}

	extent := hi.Sub(lo).Norm()
	if extent == 0 {
		extent = 1
	}
	a.Width = d.between(band.WidthMin, band.WidthMax) * extent
	a.Position = dynamo.Vec3{
		X: d.between(lo.X, hi.X),
		Y: d.between(lo.Y, hi.Y),
		Z: d.between(lo.Z, hi.Z),
	}

	d.last = now
	d.acted = true
	d.actions = append(d.actions, a)
	return a, true
}

func (d *Driver) between(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + d.rng.Float64()*(hi-lo)
}

// OnSample makes the driver usable as an experiment hook.
func (d *Driver) OnSample(e *sim.Engine, s metrics.Snapshot) {
	if d.cfg.Uncertainty {
		e.InjectUncertainty(math.Max(0, 1-s.R))
	}
	lo, hi := e.Topology().Bounds()
	a, ok := d.Decide(s.R, s.Time, lo, hi)
	if !ok {
		return
	}
	e.EmitTap(sim.Tap{Position: a.Position, Amplitude: a.Strength, Width: a.Width})
	d.log.Debug("nexus action", "action", a, "r", s.R)
}

// Actions returns every action taken so far. Read-only.
func (d *Driver) Actions() []Action { return d.actions }

// Regime returns the regime of the newest sample.
func (d *Driver) Regime() Regime {
	if len(d.history) == 0 {
		return Mid
	}
	return d.Classify(d.history[len(d.history)-1])
}
