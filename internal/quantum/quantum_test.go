package quantum

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/topology"
)

func membrane(t *testing.T, n int) (*topology.Topology, *field.Field) {
	t.Helper()
	topo, err := topology.Build(topology.Membrane, topology.Params{Count: n, Shells: 3})
	if err != nil {
		t.Fatal(err)
	}
	f := field.New(n, 1)
	if err := f.Reset(field.DefaultInitPolicy(), topo); err != nil {
		t.Fatal(err)
	}
	return topo, f
}

func TestPairsSymmetricAndOnBoundary(t *testing.T) {
	topo, f := membrane(t, 300)
	cfg := DefaultConfig()
	cfg.PairCount = 10
	l, err := New(cfg, f, topo, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Pairs()) != 10 || f.PairCount() != 10 {
		t.Fatalf("expected 10 pairs, got %d/%d", len(l.Pairs()), f.PairCount())
	}
	for _, p := range l.Pairs() {
		if f.Partner(p[0]) != p[1] || f.Partner(p[1]) != p[0] {
			t.Errorf("pair %v not symmetric", p)
		}
		if !topo.IsBoundary(p[0]) || !topo.IsBoundary(p[1]) {
			t.Errorf("pair %v should be on the boundary", p)
		}
	}
	if err := f.ValidatePartners(); err != nil {
		t.Error(err)
	}
}

func TestPairsDeterministic(t *testing.T) {
	topoA, fa := membrane(t, 120)
	topoB, fb := membrane(t, 120)
	a, err := New(DefaultConfig(), fa, topoA, 11)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(DefaultConfig(), fb, topoB, 11)
	if err != nil {
		t.Fatal(err)
	}
	for k := range a.Pairs() {
		if a.Pairs()[k] != b.Pairs()[k] {
			t.Fatalf("pair %d differs: %v vs %v", k, a.Pairs()[k], b.Pairs()[k])
		}
	}
}

func TestPairFallbackAndClamp(t *testing.T) {
	topo, err := topology.Build(topology.Grid, topology.Params{Rows: 2, Cols: 3, BoundaryFraction: -1})
	if err != nil {
		t.Fatal(err)
	}
	f := field.New(topo.N(), 1)
	cfg := DefaultConfig()
	cfg.PairCount = 10
	l, err := New(cfg, f, topo, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Pairs()) != 3 {
		t.Errorf("expected pair count clamped to 3, got %d", len(l.Pairs()))
	}
}

func TestForcingIsAntisymmetric(t *testing.T) {
	topo, f := membrane(t, 100)
	l, err := New(DefaultConfig(), f, topo, 2)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float64, f.N())
	l.Forcing(out)
	paired := 0
	for i, v := range out {
		p := f.Partner(i)
		if p < 0 {
			if v != 0 {
				t.Errorf("unpaired node %d got forcing %v", i, v)
			}
			continue
		}
		paired++
		if math.Abs(v+out[p]) > 1e-12 {
			t.Errorf("pair (%d,%d) forcing not antisymmetric: %v, %v", i, p, v, out[p])
		}
	}
	if paired != 2*len(l.Pairs()) {
		t.Errorf("expected %d paired nodes, got %d", 2*len(l.Pairs()), paired)
	}
}

func TestEvolveKeepsNormalization(t *testing.T) {
	topo, f := membrane(t, 100)
	l, err := New(DefaultConfig(), f, topo, 2)
	if err != nil {
		t.Fatal(err)
	}
	start := l.Strength()
	for s := 0; s < 500; s++ {
		u := 0.0
		if s%3 == 0 {
			u = 0.7
		}
		l.Evolve(u)
		for _, i := range topo.BoundaryNodes() {
			br := f.Branch(i)
			if norm := br.Alpha*br.Alpha + br.Beta*br.Beta; math.Abs(norm-1) > Epsilon {
				t.Fatalf("step %d node %d: α²+β² = %v", s, i, norm)
			}
		}
	}
	if l.Strength() >= start {
		t.Errorf("expected decay to reduce strength below %v, got %v", start, l.Strength())
	}
}

func TestUncertaintyRestoresBalance(t *testing.T) {
	topo, f := membrane(t, 60)
	l, err := New(DefaultConfig(), f, topo, 2)
	if err != nil {
		t.Fatal(err)
	}
	for s := 0; s < 300; s++ {
		l.Evolve(0)
	}
	decayed := l.Strength()
	for s := 0; s < 300; s++ {
		l.Evolve(1)
	}
	if l.Strength() <= decayed {
		t.Errorf("uncertainty should raise strength above %v, got %v", decayed, l.Strength())
	}
}

func TestCollapse(t *testing.T) {
	topo, f := membrane(t, 200)
	cfg := DefaultConfig()
	cfg.CollapseRadius = 10
	l, err := New(cfg, f, topo, 3)
	if err != nil {
		t.Fatal(err)
	}
	jump := make([]float64, f.N())

	if n := l.Collapse(dynamo.Vec3{}, false, jump); n != 0 {
		t.Errorf("inactive pointer collapsed %d nodes", n)
	}

	n := l.Collapse(dynamo.Vec3{}, true, jump)
	if n != len(topo.BoundaryNodes()) {
		t.Errorf("expected %d collapses, got %d", len(topo.BoundaryNodes()), n)
	}
	if l.Superposed() != 0 || l.Strength() != 0 {
		t.Error("every tracked node should be resolved")
	}
	var flipped int
	for _, j := range jump {
		switch j {
		case 0:
		case math.Pi:
			flipped++
		default:
			t.Fatalf("unexpected jump %v", j)
		}
	}
	if flipped == 0 || flipped == n {
		t.Errorf("balanced collapse should pick both branches, got %d of %d flipped", flipped, n)
	}

	if again := l.Collapse(dynamo.Vec3{}, true, jump); again != 0 {
		t.Errorf("collapse should be idempotent, got %d", again)
	}

	l.Reset()
	if l.Superposed() != len(topo.BoundaryNodes()) {
		t.Error("reset should re-superpose tracked nodes")
	}
}

func TestCollapseRespectsRadius(t *testing.T) {
	topo, f := membrane(t, 200)
	cfg := DefaultConfig()
	cfg.CollapseRadius = 0.2
	l, err := New(cfg, f, topo, 3)
	if err != nil {
		t.Fatal(err)
	}
	jump := make([]float64, f.N())
	// boundary nodes sit on the outer shell, a full radius from the center
	if n := l.Collapse(dynamo.Vec3{}, true, jump); n != 0 {
		t.Errorf("expected no collapse at the center, got %d", n)
	}
}

func TestCHSHAlignedPairs(t *testing.T) {
	topo, err := topology.Build(topology.Isolated, topology.Params{Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	f := field.New(2, 1)
	policy := field.InitPolicy{Phase: field.PhaseSync}
	if err := f.Reset(policy, topo); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.PairCount = 1
	l, err := New(cfg, f, topo, 1)
	if err != nil {
		t.Fatal(err)
	}
	l.Observe()

	// both phases 0: E(x,y) = 2cos(x)cos(y)
	s := DefaultSettings()
	want := 2 * (math.Cos(s.A)*math.Cos(s.B) + math.Cos(s.A)*math.Cos(s.B2) +
		math.Cos(s.A2)*math.Cos(s.B) - math.Cos(s.A2)*math.Cos(s.B2))
	if math.Abs(l.S()-want) > 1e-12 {
		t.Errorf("expected S=%v, got %v", want, l.S())
	}
	if math.Abs(l.S()) > 4 {
		t.Errorf("|S| should never exceed 4, got %v", l.S())
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.PairCount = -1 },
		func(c *Config) { c.Decay = 0 },
		func(c *Config) { c.Decay = 1.1 },
		func(c *Config) { c.Reexcite = 2 },
		func(c *Config) { c.Window = -5 },
		func(c *Config) { c.CollapseRadius = math.Inf(1) },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
			t.Errorf("case %d: expected ErrInvalidConfiguration, got %v", i, err)
		}
	}
}
