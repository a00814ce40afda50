package topology

import (
	"math"
	"sort"

	"github.com/san-kum/phasefield/internal/dynamo"
)

var (
	// Phi is the golden ratio.
	Phi = (1 + math.Sqrt(5)) / 2

	// GoldenAngle is 2π/φ² (≈137.5077°).
	GoldenAngle = math.Pi * (3 - math.Sqrt(5))
)

// Build constructs the topology of the given kind. Identical inputs yield
// identical adjacency. Invalid parameters return a *dynamo.ConfigError.
func Build(kind Kind, p Params) (*Topology, error) {
	p = p.withDefaults(kind)
	if err := p.validate(kind); err != nil {
		return nil, err
	}

	var t *Topology
	switch kind {
	case Grid:
		t = buildGrid(p)
	case Lattice:
		t = buildLattice(p)
	case Membrane:
		t = buildMembrane(p)
	case Spiral:
		t = buildSpiral(p)
	case AllToAll:
		t = buildAllToAll(p)
	case Isolated:
		t = buildIsolated(p)
	}
	if kind != Membrane {
		t.tagRegions(p.BoundaryFraction)
	}
	t.indexRegions()

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func buildGrid(p Params) *Topology {
	rows, cols := p.Rows, p.Cols
	t := newTopology(Grid, p, rows*cols)
	b := newBuilder(rows * cols)

	offsets := [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	if p.Moore {
		offsets = append(offsets, [2]int{-1, -1}, [2]int{-1, 1}, [2]int{1, -1}, [2]int{1, 1})
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			t.positions[i] = dynamo.Vec3{X: float64(c), Y: float64(r)}
			for _, o := range offsets {
				rr, cc, ok := step2(r+o[0], c+o[1], rows, cols, p.Wrap)
				if ok {
					b.link(i, rr*cols+cc, 0)
				}
			}
		}
	}
	b.uniform()
	b.compact(t)
	return t
}

func buildLattice(p Params) *Topology {
	rows, cols, depth := p.Rows, p.Cols, p.Depth
	n := rows * cols * depth
	t := newTopology(Lattice, p, n)
	b := newBuilder(n)
	index := func(z, r, c int) int { return (z*rows+r)*cols + c }

	offsets := [][3]int{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}}
	for z := 0; z < depth; z++ {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				i := index(z, r, c)
				t.positions[i] = dynamo.Vec3{X: float64(c), Y: float64(r), Z: float64(z)}
				for _, o := range offsets {
					zz, ok := wrapAxis(z+o[0], depth, p.Wrap)
					if !ok {
						continue
					}
					rr, cc, ok := step2(r+o[1], c+o[2], rows, cols, p.Wrap)
					if ok {
						b.link(i, index(zz, rr, cc), 0)
					}
				}
			}
		}
	}
	b.uniform()
	b.compact(t)
	return t
}

func step2(r, c, rows, cols int, wrap bool) (int, int, bool) {
	rr, ok := wrapAxis(r, rows, wrap)
	if !ok {
		return 0, 0, false
	}
	cc, ok := wrapAxis(c, cols, wrap)
	return rr, cc, ok
}

func wrapAxis(v, size int, wrap bool) (int, bool) {
	if v >= 0 && v < size {
		return v, true
	}
	if !wrap {
		return 0, false
	}
	return ((v % size) + size) % size, true
}

// buildMembrane places golden-angle spheres on concentric shells and couples
// each node to its k nearest points.
func buildMembrane(p Params) *Topology {
	counts := shellCounts(p.Count, p.Shells)
	t := newTopology(Membrane, p, p.Count)

	i := 0
	for s, m := range counts {
		frac := float64(s+1) / float64(p.Shells)
		r := p.Radius * frac
		for k := 0; k < m; k++ {
			t.positions[i] = fibonacciSphere(k, m, r, float64(s)*GoldenAngle)
			t.radius[i] = frac
			t.boundary[i] = p.BoundaryFraction > 0 && frac >= 1-p.BoundaryFraction-1e-12
			i++
		}
	}

	b := newBuilder(p.Count)
	k := p.Neighbors
	if k > p.Count-1 {
		k = p.Count - 1
	}
	for i := range t.positions {
		for _, j := range nearest(t.positions, i, k) {
			b.link(i, j, 0)
		}
	}
	b.uniform()
	b.compact(t)
	return t
}

// shellCounts splits n points over shells proportionally to shell area,
// at least one per shell, using largest remainders.
func shellCounts(n, shells int) []int {
	counts := make([]int, shells)
	rest := n - shells
	total := 0.0
	for s := 0; s < shells; s++ {
		counts[s] = 1
		total += float64((s + 1) * (s + 1))
	}

	type share struct {
		shell int
		frac  float64
	}
	shares := make([]share, shells)
	given := 0
	for s := 0; s < shells; s++ {
		exact := float64(rest) * float64((s+1)*(s+1)) / total
		whole := int(math.Floor(exact))
		counts[s] += whole
		given += whole
		shares[s] = share{s, exact - float64(whole)}
	}
	sort.SliceStable(shares, func(a, b int) bool { return shares[a].frac > shares[b].frac })
	for k := 0; given < rest; k++ {
		counts[shares[k%shells].shell]++
		given++
	}
	return counts
}

func fibonacciSphere(k, m int, r, twist float64) dynamo.Vec3 {
	if m == 1 {
		return dynamo.Vec3{Y: r}
	}
	y := 1 - 2*(float64(k)+0.5)/float64(m)
	ring := math.Sqrt(1 - y*y)
	theta := float64(k)*GoldenAngle + twist
	return dynamo.Vec3{X: r * ring * math.Cos(theta), Y: r * y, Z: r * ring * math.Sin(theta)}
}

// nearest returns the k nearest nodes to i by Euclidean distance; ties resolve
// to the lower index.
func nearest(pos []dynamo.Vec3, i, k int) []int {
	type cand struct {
		j int
		d float64
	}
	best := make([]cand, 0, k+1)
	for j := range pos {
		if j == i {
			continue
		}
		c := cand{j, pos[i].Dist(pos[j])}
		at := len(best)
		for at > 0 && c.d < best[at-1].d {
			at--
		}
		if at >= k {
			continue
		}
		best = append(best, cand{})
		copy(best[at+1:], best[at:])
		best[at] = c
		if len(best) > k {
			best = best[:k]
		}
	}
	out := make([]int, len(best))
	for n, c := range best {
		out[n] = c.j
	}
	return out
}

// buildSpiral places nodes at successive golden-angle increments and couples
// nodes within Reach index steps with weight K0·φ^(-n(d)).
func buildSpiral(p Params) *Topology {
	n := p.Count
	t := newTopology(Spiral, p, n)
	for i := 0; i < n; i++ {
		r := p.Spacing * math.Sqrt(float64(i)+0.5)
		a := float64(i) * GoldenAngle
		t.positions[i] = dynamo.Vec3{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}

	b := newBuilder(n)
	for i := 0; i < n; i++ {
		for d := 1; d <= p.Reach; d++ {
			w := SpiralWeight(p.BaseWeight, d)
			if i-d >= 0 {
				b.push(i, i-d, w)
			}
			if i+d < n {
				b.push(i, i+d, w)
			}
		}
	}
	b.compact(t)
	return t
}

// SpiralWeight is K0·φ^(-n(d)) for index distance d.
func SpiralWeight(k0 float64, d int) float64 {
	return k0 * math.Pow(Phi, -float64(FibonacciIndex(d)))
}

// FibonacciIndex returns the smallest n with F(n) >= d, where F(1) = F(2) = 1.
func FibonacciIndex(d int) int {
	if d <= 1 {
		return 1
	}
	a, b, n := 1, 1, 1
	for a < d {
		a, b = b, a+b
		n++
	}
	return n
}

func buildAllToAll(p Params) *Topology {
	n := p.Count
	t := newTopology(AllToAll, p, n)
	b := newBuilder(n)
	for i := 0; i < n; i++ {
		a := dynamo.TwoPi * float64(i) / float64(n)
		t.positions[i] = dynamo.Vec3{X: math.Cos(a), Y: math.Sin(a)}
		for j := 0; j < n; j++ {
			if j != i {
				b.push(i, j, 0)
			}
		}
	}
	b.uniform()
	b.compact(t)
	return t
}

func buildIsolated(p Params) *Topology {
	t := newTopology(Isolated, p, p.Count)
	for i := range t.positions {
		t.positions[i] = dynamo.Vec3{X: float64(i)}
	}
	newBuilder(p.Count).compact(t)
	return t
}
