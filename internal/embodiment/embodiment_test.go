package embodiment

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/topology"
)

func newModule(t *testing.T, mutate func(*Config)) *Module {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestInfluenceFalloff(t *testing.T) {
	m := newModule(t, func(c *Config) { c.Radius, c.Strength = 2, 4 })
	tests := []struct {
		d, want float64
	}{
		{0, 4},
		{1, 1},
		{2, 0},
		{5, 0},
	}
	for _, tt := range tests {
		if got := m.Influence(tt.d); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Influence(%v): expected %v, got %v", tt.d, tt.want, got)
		}
	}
}

func TestRippleRetirement(t *testing.T) {
	m := newModule(t, nil)
	m.Emit(Tap{}, 1)

	horizon := m.Config().Lifetime * math.Log(1/RetireEnvelope)
	if n := m.Retire(1 + horizon - 0.01); n != 0 {
		t.Errorf("ripple retired too early (%d)", n)
	}
	if n := m.Retire(1 + horizon + 0.01); n != 1 {
		t.Errorf("expected 1 retired ripple, got %d", n)
	}
	if len(m.Ripples()) != 0 {
		t.Errorf("expected empty ring, got %d", len(m.Ripples()))
	}
}

func TestRippleEnvelopeDecays(t *testing.T) {
	m := newModule(t, nil)
	r := Ripple{Amplitude: 1, Width: 0.5}
	speed := m.Config().Speed

	prev := math.Inf(1)
	for _, age := range []float64{0, 0.5, 1, 2, 3} {
		peak := m.Pulse(r, speed*age, age)
		if peak >= prev {
			t.Errorf("age %v: peak %v did not decay below %v", age, peak, prev)
		}
		prev = peak
	}
	if got := m.Pulse(r, 0, 10); got != 0 {
		t.Errorf("expired ripple should contribute 0, got %v", got)
	}
}

func TestFutureTapWaits(t *testing.T) {
	m := newModule(t, nil)
	r := Ripple{Start: 5, Amplitude: 1, Width: 1}
	if got := m.Pulse(r, 0, 4); got != 0 {
		t.Errorf("future ripple should contribute 0, got %v", got)
	}
	if got := m.Pulse(r, 0, 5); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected full amplitude at start, got %v", got)
	}
}

func TestEmitDefaultsAndOverflow(t *testing.T) {
	m := newModule(t, func(c *Config) { c.MaxRipples = 3 })
	m.Emit(Tap{}, 2)
	r := m.Ripples()[0]
	if r.Start != 2 || r.Amplitude != m.Config().Amplitude || r.Width != m.Config().Width {
		t.Errorf("defaults not applied: %+v", r)
	}

	m.Emit(Tap{At: 3}, 2)
	m.Emit(Tap{At: 4}, 2)
	if dropped := m.Emit(Tap{At: 5}, 2); !dropped {
		t.Error("expected oldest ripple to be dropped")
	}
	if got := len(m.Ripples()); got != 3 {
		t.Fatalf("expected 3 ripples, got %d", got)
	}
	if m.Ripples()[0].Start != 3 {
		t.Errorf("expected oldest surviving start 3, got %v", m.Ripples()[0].Start)
	}
}

func TestForcing(t *testing.T) {
	topo, err := topology.Build(topology.Grid, topology.Params{Rows: 9, Cols: 9})
	if err != nil {
		t.Fatal(err)
	}
	f := field.New(topo.N(), 1)
	out := make([]float64, topo.N())
	for i := range out {
		out[i] = 7
	}

	m := newModule(t, nil)
	m.Forcing(f, topo, 0, out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("idle module should write zeros, node %d = %v", i, v)
		}
	}

	center := 4*9 + 4
	m.SetPointer(Pointer{Position: topo.Position(center), Active: true})
	m.Forcing(f, topo, 0, out)
	if math.Abs(out[center]-m.Config().Strength) > 1e-12 {
		t.Errorf("expected full strength under pointer, got %v", out[center])
	}
	if out[0] != 0 {
		t.Errorf("corner is beyond radius, got %v", out[0])
	}
}

func TestPullMode(t *testing.T) {
	topo, err := topology.Build(topology.Grid, topology.Params{Rows: 3, Cols: 3})
	if err != nil {
		t.Fatal(err)
	}
	f := field.New(topo.N(), 1)
	policy := field.InitPolicy{Phase: field.PhaseSync, Phases: []float64{0}}
	if err := f.Reset(policy, topo); err != nil {
		t.Fatal(err)
	}

	m := newModule(t, func(c *Config) { c.Mode = Pull })
	// pointer straight "above" the centroid has azimuth π/2
	m.SetPointer(Pointer{Position: dynamo.Vec3{X: 1, Y: 2}, Active: true})
	out := make([]float64, topo.N())
	m.Forcing(f, topo, 0, out)

	want := m.Influence(0) * math.Sin(math.Pi/2)
	if got := out[7]; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Radius = 0 },
		func(c *Config) { c.Width = -1 },
		func(c *Config) { c.Lifetime = 0 },
		func(c *Config) { c.MaxRipples = 0 },
		func(c *Config) { c.Mode = "push" },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := New(cfg); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
			t.Errorf("case %d: expected ErrInvalidConfiguration, got %v", i, err)
		}
	}
}
