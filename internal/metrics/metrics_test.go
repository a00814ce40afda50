package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/phasefield/internal/topology"
)

func TestOrder(t *testing.T) {
	tests := []struct {
		name   string
		phases []float64
		r      float64
	}{
		{"empty", nil, 0},
		{"single", []float64{1.3}, 1},
		{"synchronized", []float64{2, 2, 2, 2}, 1},
		{"opposed", []float64{0, math.Pi}, 0},
		{"quarter turns", []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}, 0},
		{"half spread", []float64{0, math.Pi / 2}, math.Sqrt2 / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := Order(tt.phases)
			if math.Abs(r-tt.r) > 1e-12 {
				t.Errorf("expected r=%v, got %v", tt.r, r)
			}
			if r < 0 || r > 1 {
				t.Errorf("r out of [0,1]: %v", r)
			}
		})
	}

	_, psi := Order([]float64{0, math.Pi / 2})
	if math.Abs(psi-math.Pi/4) > 1e-12 {
		t.Errorf("expected ψ=π/4, got %v", psi)
	}
}

func TestOrderOf(t *testing.T) {
	phases := []float64{0, 0, math.Pi, 1}
	if r, _ := OrderOf(phases, []int{0, 1}); math.Abs(r-1) > 1e-12 {
		t.Errorf("expected 1, got %v", r)
	}
	if r, _ := OrderOf(phases, []int{0, 2}); r > 1e-12 {
		t.Errorf("expected 0, got %v", r)
	}
	if r, _ := OrderOf(phases, nil); r != 0 {
		t.Errorf("empty subset: expected 0, got %v", r)
	}
}

func TestEntropy(t *testing.T) {
	sync := make([]float64, 100)
	if e := Entropy(sync, 16); e != 0 {
		t.Errorf("synchronized field: expected 0, got %v", e)
	}

	spread := make([]float64, 160)
	for i := range spread {
		spread[i] = (float64(i%16) + 0.5) * 2 * math.Pi / 16
	}
	if e := Entropy(spread, 16); math.Abs(e-1) > 1e-12 {
		t.Errorf("uniform field: expected 1, got %v", e)
	}
}

func TestNeighborSpreadAndLocalOrder(t *testing.T) {
	topo, err := topology.Build(topology.Grid, topology.Params{Rows: 4, Cols: 4})
	if err != nil {
		t.Fatal(err)
	}
	phases := make([]float64, topo.N())

	mean, std := NeighborSpread(phases, topo)
	if mean != 0 || std != 0 {
		t.Errorf("uniform phases: expected (0, 0), got (%v, %v)", mean, std)
	}
	local := make([]float64, topo.N())
	if m := LocalOrder(phases, topo, local); math.Abs(m-1) > 1e-12 {
		t.Errorf("uniform phases: expected local order 1, got %v", m)
	}

	// checkerboard of 0 and π: every edge differs by π
	for i := range phases {
		if (i/4+i%4)%2 == 1 {
			phases[i] = math.Pi
		}
	}
	mean, std = NeighborSpread(phases, topo)
	if math.Abs(mean-math.Pi) > 1e-12 || std > 1e-12 {
		t.Errorf("checkerboard: expected (π, 0), got (%v, %v)", mean, std)
	}
	if m := LocalOrder(phases, topo, nil); m >= 1 {
		t.Errorf("checkerboard: expected local order below 1, got %v", m)
	}

	iso, err := topology.Build(topology.Isolated, topology.Params{Count: 3})
	if err != nil {
		t.Fatal(err)
	}
	if mean, _ := NeighborSpread([]float64{0, 1, 2}, iso); mean != 0 {
		t.Errorf("no edges: expected 0, got %v", mean)
	}
	if m := LocalOrder([]float64{0, 1, 2}, iso, nil); m != 1 {
		t.Errorf("isolated nodes: expected local order 1, got %v", m)
	}
}

func TestNeighborSpreadDoesNotAllocate(t *testing.T) {
	topo, err := topology.Build(topology.Membrane, topology.Params{Count: 500, Shells: 2})
	if err != nil {
		t.Fatal(err)
	}
	phases := make([]float64, topo.N())
	for i := range phases {
		phases[i] = float64(i) * 0.37
	}
	if a := testing.AllocsPerRun(10, func() { NeighborSpread(phases, topo) }); a != 0 {
		t.Errorf("expected no allocations, got %v", a)
	}
}

func TestPlaquetteOrder(t *testing.T) {
	topo, err := topology.Build(topology.Grid, topology.Params{Rows: 3, Cols: 3})
	if err != nil {
		t.Fatal(err)
	}
	phases := make([]float64, topo.N())
	cells := make([]float64, 4)
	if m := PlaquetteOrder(phases, topo, cells); math.Abs(m-1) > 1e-12 {
		t.Errorf("uniform phases: expected 1, got %v", m)
	}

	// top-left cell holds four quarter turns and cancels
	copy(phases, []float64{0, math.Pi / 2, 0, math.Pi, 3 * math.Pi / 2, 0, 0, 0, 0})
	PlaquetteOrder(phases, topo, cells)
	if cells[0] > 1e-12 {
		t.Errorf("balanced cell: expected 0, got %v", cells[0])
	}
	for k := 1; k < 4; k++ {
		if cells[k] <= 0 || cells[k] >= 1 {
			t.Errorf("cell %d: expected partial order, got %v", k, cells[k])
		}
	}

	ring, err := topology.Build(topology.AllToAll, topology.Params{Count: 8})
	if err != nil {
		t.Fatal(err)
	}
	if m := PlaquetteOrder(make([]float64, 8), ring, nil); m != 0 {
		t.Errorf("non-grid topology: expected 0, got %v", m)
	}
}

func TestObservers(t *testing.T) {
	series := []Snapshot{
		{R: 0.2, Time: 0},
		{R: 0.5, Time: 1},
		{R: 0.95, Time: 2},
		{R: 0.7, Time: 3},
	}

	mean, peak, lock, frac := NewMeanOrder(), NewPeakOrder(), NewLockTime(0.9), NewLockedFraction(0.6)
	for _, m := range []Metric{mean, peak, lock, frac} {
		for _, s := range series {
			m.Observe(s)
		}
	}

	if math.Abs(mean.Value()-0.5875) > 1e-12 {
		t.Errorf("mean: expected 0.5875, got %v", mean.Value())
	}
	if peak.Value() != 0.95 {
		t.Errorf("peak: expected 0.95, got %v", peak.Value())
	}
	if lock.Value() != 2 {
		t.Errorf("lock time: expected 2, got %v", lock.Value())
	}
	if frac.Value() != 0.5 {
		t.Errorf("locked fraction: expected 0.5, got %v", frac.Value())
	}

	lock.Reset()
	if !math.IsNaN(lock.Value()) || lock.Locked() {
		t.Error("reset lock time should be unlocked")
	}
}

func TestDefaultsNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Defaults(0.9) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric name %q", m.Name())
		}
		seen[m.Name()] = true
	}
}
