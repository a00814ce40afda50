package field

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/topology"
)

func grid(t *testing.T, rows, cols int) *topology.Topology {
	t.Helper()
	topo, err := topology.Build(topology.Grid, topology.Params{Rows: rows, Cols: cols})
	if err != nil {
		t.Fatal(err)
	}
	return topo
}

func TestResetPhasesInRange(t *testing.T) {
	topo := grid(t, 10, 10)
	kinds := []PhaseKind{PhaseUniform, PhaseSpiral, PhaseWave, PhaseSync}
	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			f := New(topo.N(), 1)
			p := DefaultInitPolicy()
			p.Phase = k
			p.Twist = 3
			if err := f.Reset(p, topo); err != nil {
				t.Fatal(err)
			}
			for i, th := range f.Phases() {
				if th < 0 || th >= dynamo.TwoPi {
					t.Fatalf("phase %d out of range: %v", i, th)
				}
			}
		})
	}
}

func TestResetExplicitCycles(t *testing.T) {
	topo := grid(t, 4, 4)
	f := New(topo.N(), 1)
	pattern := []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
	p := DefaultInitPolicy()
	p.Phase = PhaseExplicit
	p.Phases = pattern
	if err := f.Reset(p, topo); err != nil {
		t.Fatal(err)
	}
	for i, th := range f.Phases() {
		if th != pattern[i%4] {
			t.Errorf("node %d: expected %v, got %v", i, pattern[i%4], th)
		}
	}
}

func TestResetDeterministic(t *testing.T) {
	topo := grid(t, 6, 6)
	p := DefaultInitPolicy()
	p.Frequency = FreqGaussian

	a, b := New(topo.N(), 42), New(topo.N(), 42)
	if err := a.Reset(p, topo); err != nil {
		t.Fatal(err)
	}
	if err := b.Reset(p, topo); err != nil {
		t.Fatal(err)
	}
	for i := range a.Phases() {
		if a.Phase(i) != b.Phase(i) || a.Frequencies()[i] != b.Frequencies()[i] {
			t.Fatalf("node %d differs between identical seeds", i)
		}
	}
}

func TestFrequencyPolicies(t *testing.T) {
	topo := grid(t, 20, 20)
	tests := []struct {
		kind   FrequencyKind
		center float64
		spread float64
		check  func(w []float64) bool
	}{
		{FreqConstant, 1.5, 3, func(w []float64) bool { return w[0] == 1.5 && w[399] == 1.5 }},
		{FreqUniform, 2, 0.5, func(w []float64) bool {
			for _, v := range w {
				if v < 1.5 || v > 2.5 {
					return false
				}
			}
			return true
		}},
		{FreqBimodal, 0, 2, func(w []float64) bool {
			var lo, hi int
			for _, v := range w {
				if v < 0 {
					lo++
				} else {
					hi++
				}
			}
			return lo > 150 && hi > 150
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			f := New(topo.N(), 7)
			p := DefaultInitPolicy()
			p.Frequency, p.Center, p.Spread = tt.kind, tt.center, tt.spread
			if err := f.Reset(p, topo); err != nil {
				t.Fatal(err)
			}
			if !tt.check(f.Frequencies()) {
				t.Errorf("frequencies do not match %s policy", tt.kind)
			}
		})
	}
}

func TestResetInvalidPolicy(t *testing.T) {
	topo := grid(t, 2, 2)
	f := New(topo.N(), 1)
	bad := []InitPolicy{
		{Frequency: "zipf"},
		{Phase: "checker"},
		{Phase: PhaseExplicit},
		{Spread: -1},
	}
	for _, p := range bad {
		if err := f.Reset(p, topo); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
			t.Errorf("policy %+v: expected ErrInvalidConfiguration, got %v", p, err)
		}
	}
	if err := f.Reset(DefaultInitPolicy(), grid(t, 3, 3)); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("size mismatch: expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestPairing(t *testing.T) {
	f := New(6, 1)
	if err := f.Pair(0, 3); err != nil {
		t.Fatal(err)
	}
	if err := f.Pair(1, 5); err != nil {
		t.Fatal(err)
	}
	if f.Partner(3) != 0 || f.Partner(0) != 3 {
		t.Error("pairing should be symmetric")
	}
	if f.PairCount() != 2 {
		t.Errorf("expected 2 pairs, got %d", f.PairCount())
	}
	if err := f.ValidatePartners(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := f.Pair(2, 6); !errors.Is(err, dynamo.ErrStaleReference) {
		t.Errorf("expected ErrStaleReference, got %v", err)
	}

	f.partner[5] = 2
	if err := f.ValidatePartners(); !errors.Is(err, dynamo.ErrStaleReference) {
		t.Errorf("asymmetric table: expected ErrStaleReference, got %v", err)
	}

	f.ClearQuantum()
	if f.PairCount() != 0 {
		t.Error("ClearQuantum should drop every pair")
	}
}

func TestSwap(t *testing.T) {
	f := New(3, 1)
	f.Next()[1] = 2
	f.Swap()
	if f.Phase(1) != 2 {
		t.Errorf("expected swapped phase 2, got %v", f.Phase(1))
	}
}

func TestBalanced(t *testing.T) {
	b := Balanced(math.Pi)
	if math.Abs(b.Alpha*b.Alpha+b.Beta*b.Beta-1) > 1e-12 {
		t.Error("balanced branch should be normalized")
	}
	if b.Mode != Superposed {
		t.Errorf("expected superposed, got %s", b.Mode)
	}
}
