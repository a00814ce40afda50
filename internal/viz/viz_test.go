package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/sim"
	"github.com/san-kum/phasefield/internal/topology"
)

func TestPhaseGlyph(t *testing.T) {
	tests := []struct {
		phase float64
		want  rune
	}{
		{0, '→'},
		{math.Pi / 2, '↑'},
		{math.Pi, '←'},
		{3 * math.Pi / 2, '↓'},
		{2*math.Pi - 0.01, '→'},
		{-math.Pi / 4, '↘'},
	}
	for _, tt := range tests {
		if got := PhaseGlyph(tt.phase); got != tt.want {
			t.Errorf("PhaseGlyph(%v) = %c, want %c", tt.phase, got, tt.want)
		}
	}
}

func TestThemeWheelCloses(t *testing.T) {
	for _, th := range Themes {
		if th.PhaseColor(0) != th.PhaseColor(dynamo.TwoPi) {
			t.Errorf("%s: wheel does not close", th.Name)
		}
		if th.PhaseColor(0) != th.Primary {
			t.Errorf("%s: phase 0 = %s, want %s", th.Name, th.PhaseColor(0), th.Primary)
		}
	}
	if GetTheme("nope").Name != "cyberpunk" {
		t.Error("expected fallback theme")
	}
	if ThemeSunset.Next().Name != ThemeCyberpunk.Name {
		t.Error("expected Next to wrap around")
	}
}

func TestCameraRoundTrip(t *testing.T) {
	cam := NewCamera(dynamo.Vec3{}, dynamo.Vec3{X: 10, Y: 10})
	x, y, _, ok := cam.Project(dynamo.Vec3{X: 5, Y: 5}, 41, 21)
	if !ok || x != 20 || y != 10 {
		t.Fatalf("center projected to (%d, %d, %v), want (20, 10, true)", x, y, ok)
	}
	p := cam.Unproject(x, y, 41, 21)
	if p.Dist(dynamo.Vec3{X: 5, Y: 5}) > 1e-9 {
		t.Errorf("unproject center = %+v", p)
	}

	cam.RotX, cam.RotY = 0.4, -1.1
	q := cam.Unproject(30, 4, 41, 21)
	x, y, _, _ = cam.Project(q, 41, 21)
	if x != 30 || y != 4 {
		t.Errorf("round trip through rotation gave (%d, %d), want (30, 4)", x, y)
	}
}

func TestFieldViewGrid(t *testing.T) {
	topo, err := topology.Build(topology.Grid, topology.Params{Rows: 4, Cols: 4})
	if err != nil {
		t.Fatal(err)
	}
	v := NewFieldView(topo, 40, 20)
	seen := map[[2]int]bool{}
	for i := 0; i < topo.N(); i++ {
		x, y, ok := v.Cell(i)
		if !ok {
			t.Fatalf("node %d hidden", i)
		}
		seen[[2]int{x, y}] = true
	}
	if len(seen) != topo.N() {
		t.Errorf("expected %d distinct cells, got %d", topo.N(), len(seen))
	}

	phases := make([]float64, topo.N())
	out := v.Render(phases, nil, newPalette(ThemeMinimal), Cursor{})
	if got := strings.Count(out, "→"); got != topo.N() {
		t.Errorf("expected %d arrows, got %d", topo.N(), got)
	}
	if got := strings.Count(out, "\n"); got != 19 {
		t.Errorf("expected 20 rows, got %d", got+1)
	}
}

func TestCanvasPhasor(t *testing.T) {
	c := NewCanvas(phasorCols, phasorRows)
	c.DrawPhasor(1, 0)
	lit := 0
	for _, row := range c.Grid {
		for _, r := range row {
			if r != brailleBlank {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("phasor drew nothing")
	}
	if len(strings.Split(c.String(), "\n")) != phasorRows {
		t.Errorf("expected %d rows", phasorRows)
	}
}

func TestSparklineFixedScale(t *testing.T) {
	out := SparklineChart([]float64{0, 1}, 10)
	if !strings.Contains(out, "▁") || !strings.Contains(out, "█") {
		t.Errorf("expected lowest and highest bars, got %q", out)
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	e := sim.New(sim.WithSeed(3))
	g := sim.DefaultGeometry()
	g.Topology = topology.Params{Rows: 8, Cols: 8}
	if err := e.Configure(g); err != nil {
		t.Fatal(err)
	}
	return NewModel(e, field.DefaultInitPolicy(), Options{Width: 100, Height: 30})
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelKeys(t *testing.T) {
	m := newTestModel(t)
	before := m.engine.Parameters().Coupling

	next, _ := m.Update(key(" "))
	m = next.(Model)
	if m.running {
		t.Error("space should pause")
	}

	next, _ = m.Update(key("+"))
	m = next.(Model)
	if got := m.engine.Parameters().Coupling; !(got > before) {
		t.Errorf("coupling %v, want > %v", got, before)
	}

	next, _ = m.Update(key("p"))
	m = next.(Model)
	if !m.touching {
		t.Error("p should toggle touch on")
	}
}

func TestModelZoomKeys(t *testing.T) {
	m := newTestModel(t)
	before := m.view.Camera.Zoom

	next, _ := m.Update(key("z"))
	m = next.(Model)
	if got := m.view.Camera.Zoom; !(got > before) {
		t.Errorf("z: zoom %v, want > %v", got, before)
	}

	next, _ = m.Update(key("Z"))
	next, _ = next.(Model).Update(key("Z"))
	m = next.(Model)
	if got := m.view.Camera.Zoom; !(got < before) {
		t.Errorf("Z twice: zoom %v, want < %v", got, before)
	}
}

func TestModelTickAdvances(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(TickMsg{})
	m = next.(Model)
	if cmd == nil {
		t.Error("tick should schedule the next frame")
	}
	if m.engine.Steps() != uint64(m.opts.StepsPerFrame) {
		t.Errorf("steps = %d, want %d", m.engine.Steps(), m.opts.StepsPerFrame)
	}
	if len(m.history) != 1 {
		t.Errorf("history length %d, want 1", len(m.history))
	}
	if !strings.Contains(m.View(), "order r") {
		t.Error("view is missing the order panel")
	}
}
