package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/topology"
)

// glyphs are indexed by phase in eighths of a turn.
var glyphs = []rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// PhaseGlyph returns the arrow pointing along phase.
func PhaseGlyph(phase float64) rune {
	i := int(dynamo.WrapPhase(phase)/dynamo.TwoPi*8+0.5) % 8
	return glyphs[i]
}

// cell accumulates the unit phasors of every node projected into it.
type cell struct {
	sin, cos float64
	count    int
	depth    float64
	pair     bool
}

// FieldView projects a topology onto a grid of terminal cells. Cells that
// receive several nodes show the mean phase of the front-most ones.
type FieldView struct {
	Width, Height int
	Camera        *Camera

	topo  *topology.Topology
	cells []cell
	slot  []int
}

func NewFieldView(topo *topology.Topology, w, h int) *FieldView {
	lo, hi := topo.Bounds()
	v := &FieldView{Width: w, Height: h, Camera: NewCamera(lo, hi), topo: topo}
	v.layout()
	return v
}

// layout caches each node's cell. It must be rerun after the camera moves.
func (v *FieldView) layout() {
	n := v.topo.N()
	if cap(v.slot) < n {
		v.slot = make([]int, n)
	}
	v.slot = v.slot[:n]
	v.cells = make([]cell, v.Width*v.Height)
	for i := range v.slot {
		x, y, depth, ok := v.Camera.Project(v.topo.Position(i), v.Width, v.Height)
		if !ok {
			v.slot[i] = -1
			continue
		}
		k := y*v.Width + x
		c := &v.cells[k]
		switch {
		case c.count == 0 || depth > c.depth+0.5:
			c.depth = depth
			c.count = 1
			v.slot[i] = k
		case depth >= c.depth-0.5:
			c.count++
			v.slot[i] = k
		default:
			v.slot[i] = -1
		}
	}
}

// Refresh reprojects after a camera change.
func (v *FieldView) Refresh() { v.layout() }

// Cell returns the cell of node i, or false when it is hidden.
func (v *FieldView) Cell(i int) (x, y int, ok bool) {
	k := v.slot[i]
	if k < 0 {
		return 0, 0, false
	}
	return k % v.Width, k / v.Width, true
}

// Cursor marks the pointer cell.
type Cursor struct {
	X, Y    int
	Glyph   rune
	Style   lipgloss.Style
	Visible bool
}

// Render draws phases with pal. partner reports whether a node is entangled
// and may be nil.
func (v *FieldView) Render(phases []float64, partner func(int) bool, pal *palette, cur Cursor) string {
	for k := range v.cells {
		v.cells[k].sin, v.cells[k].cos, v.cells[k].pair = 0, 0, false
	}
	for i, k := range v.slot {
		if k < 0 || i >= len(phases) {
			continue
		}
		s, c := dynamo.FastSinCos(phases[i])
		v.cells[k].sin += s
		v.cells[k].cos += c
		if partner != nil && partner(i) {
			v.cells[k].pair = true
		}
	}
	var b strings.Builder
	for y := 0; y < v.Height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < v.Width; x++ {
			if cur.Visible && x == cur.X && y == cur.Y {
				b.WriteString(cur.Style.Render(string(cur.Glyph)))
				continue
			}
			c := v.cells[y*v.Width+x]
			if c.count == 0 {
				b.WriteByte(' ')
				continue
			}
			phase := math.Atan2(c.sin, c.cos)
			g := PhaseGlyph(phase)
			if c.pair {
				g = '◆'
			}
			b.WriteString(pal.style(phase).Render(string(g)))
		}
	}
	return b.String()
}
