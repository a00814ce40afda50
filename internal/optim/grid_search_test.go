package optim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/san-kum/phasefield/internal/experiment"
	"github.com/san-kum/phasefield/internal/sim"
	"github.com/san-kum/phasefield/internal/topology"
)

var quiet = sim.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func baseConfig() experiment.Config {
	g := sim.DefaultGeometry()
	g.Topology = topology.Params{Rows: 6, Cols: 6}
	p := sim.DefaultParams()
	p.EmbodimentEnabled = false
	return experiment.Config{Geometry: g, Params: p, Steps: 300, Dt: 0.01, SampleEvery: 10, Seed: 11}
}

func TestGridSearchFindsStrongCoupling(t *testing.T) {
	g, err := NewGridSearch([]string{"coupling"}, [][]float64{{0, 4}})
	if err != nil {
		t.Fatal(err)
	}
	g.Maximize = true
	cfg := baseConfig()
	cfg.Geometry.Kind = topology.AllToAll
	cfg.Geometry.Topology = topology.Params{Count: 36}
	best, trials, err := g.Search(context.Background(), cfg, "mean_r", quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(trials))
	}
	if best.Params["coupling"] != 4 {
		t.Errorf("best coupling = %v, want 4 (trials %+v)", best.Params["coupling"], trials)
	}
}

func TestGridSearchCombinations(t *testing.T) {
	g, err := NewGridSearch([]string{"coupling", "noise"}, [][]float64{{1, 2}, {0, 0.1, 0.2}})
	if err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig()
	cfg.Steps = 20
	_, trials, err := g.Search(context.Background(), cfg, "peak_r", quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 6 {
		t.Errorf("expected 6 trials, got %d", len(trials))
	}
}

func TestNewGridSearchErrors(t *testing.T) {
	if _, err := NewGridSearch([]string{"gravity"}, [][]float64{{1}}); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := NewGridSearch([]string{"coupling"}, nil); err == nil {
		t.Error("expected error for missing range")
	}
	if _, err := NewGridSearch([]string{"coupling"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty range")
	}
}

func TestSearchUnknownMetric(t *testing.T) {
	g, _ := NewGridSearch([]string{"coupling"}, [][]float64{{1}})
	if _, _, err := g.Search(context.Background(), baseConfig(), "energy", quiet); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestSearchCancelled(t *testing.T) {
	g, _ := NewGridSearch([]string{"coupling"}, [][]float64{{1, 2}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := g.Search(ctx, baseConfig(), "mean_r", quiet)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Linspace[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Linspace(3, 4, 1)) != 1 {
		t.Error("expected a single point")
	}
}
