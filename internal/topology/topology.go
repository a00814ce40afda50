// Package topology builds the fixed coupling structure of a phase field.
//
// A [Topology] is an immutable, precomputed adjacency (compressed rows of
// [Edge]) plus a position, a normalized radius and a boundary/interior tag for
// every node. It is built once per configuration with [Build] and only read
// afterwards; identical inputs always produce identical adjacency.
package topology

import (
	"math"

	"github.com/san-kum/phasefield/internal/dynamo"
)

// Kind names a supported geometry.
type Kind string

const (
	Grid     Kind = "grid"
	Lattice  Kind = "lattice"
	Membrane Kind = "membrane"
	Spiral   Kind = "spiral"
	AllToAll Kind = "all_to_all"
	Isolated Kind = "isolated"
)

// Kinds lists every geometry Build accepts.
func Kinds() []Kind {
	return []Kind{Grid, Lattice, Membrane, Spiral, AllToAll, Isolated}
}

// Edge is one weighted coupling from a node to a neighbor.
type Edge struct {
	To     int
	Weight float64
}

// Topology is safe for concurrent reads.
type Topology struct {
	kind      Kind
	params    Params
	positions []dynamo.Vec3
	radius    []float64
	boundary  []bool
	offsets   []int
	edges     []Edge
	outer     []int
	inner     []int
}

func (t *Topology) Kind() Kind     { return t.kind }
func (t *Topology) Params() Params { return t.params }
func (t *Topology) N() int         { return len(t.positions) }
func (t *Topology) EdgeCount() int { return len(t.edges) }
func (t *Topology) Skin() bool     { return t.kind == Membrane }

func (t *Topology) Degree(i int) int { return t.offsets[i+1] - t.offsets[i] }

// Neighbors returns the ordered neighbor list of node i. The slice aliases
// internal storage and must not be modified.
func (t *Topology) Neighbors(i int) []Edge {
	return t.edges[t.offsets[i]:t.offsets[i+1]]
}

func (t *Topology) Position(i int) dynamo.Vec3 { return t.positions[i] }

// Positions returns every node position. Read-only.
func (t *Topology) Positions() []dynamo.Vec3 { return t.positions }

// NormalizedRadius is the node's distance from the field center scaled to [0, 1].
func (t *Topology) NormalizedRadius(i int) float64 { return t.radius[i] }

func (t *Topology) IsBoundary(i int) bool { return t.boundary[i] }

// BoundaryNodes returns the indices tagged boundary, ascending. Read-only.
func (t *Topology) BoundaryNodes() []int { return t.outer }

// InteriorNodes returns the indices tagged interior, ascending. Read-only.
func (t *Topology) InteriorNodes() []int { return t.inner }

// Bounds returns the axis-aligned box around all node positions.
func (t *Topology) Bounds() (lo, hi dynamo.Vec3) {
	if len(t.positions) == 0 {
		return
	}
	lo, hi = t.positions[0], t.positions[0]
	for _, p := range t.positions[1:] {
		lo = dynamo.Vec3{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = dynamo.Vec3{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return lo, hi
}

// Centroid returns the mean node position.
func (t *Topology) Centroid() dynamo.Vec3 {
	var c dynamo.Vec3
	if len(t.positions) == 0 {
		return c
	}
	for _, p := range t.positions {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(t.positions)))
}

// Validate checks that every neighbor reference is a node of this topology.
func (t *Topology) Validate() error {
	n := t.N()
	if len(t.offsets) != n+1 {
		return &dynamo.StaleReferenceError{Table: "offsets", Node: len(t.offsets), Ref: n + 1, N: n}
	}
	for i := 0; i < n; i++ {
		for _, e := range t.Neighbors(i) {
			if e.To < 0 || e.To >= n || e.To == i {
				return &dynamo.StaleReferenceError{Table: "neighbors", Node: i, Ref: e.To, N: n}
			}
		}
	}
	return nil
}

// SameAdjacency reports whether o has exactly the same neighbor lists.
func (t *Topology) SameAdjacency(o *Topology) bool {
	if t.kind != o.kind || t.N() != o.N() || len(t.edges) != len(o.edges) {
		return false
	}
	for i := range t.offsets {
		if t.offsets[i] != o.offsets[i] {
			return false
		}
	}
	for i := range t.edges {
		if t.edges[i] != o.edges[i] {
			return false
		}
	}
	return true
}

// tagRegions derives normalized radius and boundary tags from distance to the
// centroid. Membranes tag by shell instead and skip this.
func (t *Topology) tagRegions(fraction float64) {
	n := t.N()
	c := t.Centroid()
	maxDist := 0.0
	for _, p := range t.positions {
		maxDist = math.Max(maxDist, p.Dist(c))
	}
	for i, p := range t.positions {
		r := 0.0
		if maxDist > 0 {
			r = p.Dist(c) / maxDist
		}
		t.radius[i] = r
		t.boundary[i] = n > 1 && fraction > 0 && r >= 1-fraction-1e-12
	}
}

func (t *Topology) indexRegions() {
	t.outer = t.outer[:0]
	t.inner = t.inner[:0]
	for i, b := range t.boundary {
		if b {
			t.outer = append(t.outer, i)
		} else {
			t.inner = append(t.inner, i)
		}
	}
}

func newTopology(kind Kind, p Params, n int) *Topology {
	return &Topology{
		kind:      kind,
		params:    p,
		positions: make([]dynamo.Vec3, n),
		radius:    make([]float64, n),
		boundary:  make([]bool, n),
	}
}

// builder accumulates neighbor lists before compaction into rows.
type builder struct {
	lists [][]Edge
}

func newBuilder(n int) *builder {
	return &builder{lists: make([][]Edge, n)}
}

// link adds a directed edge i -> j, ignoring self loops and duplicates.
func (b *builder) link(i, j int, w float64) {
	if i == j {
		return
	}
	for _, e := range b.lists[i] {
		if e.To == j {
			return
		}
	}
	b.lists[i] = append(b.lists[i], Edge{To: j, Weight: w})
}

// push appends without the duplicate scan; callers guarantee uniqueness.
func (b *builder) push(i, j int, w float64) {
	b.lists[i] = append(b.lists[i], Edge{To: j, Weight: w})
}

// uniform sets every weight of node i to 1/deg(i).
func (b *builder) uniform() {
	for _, l := range b.lists {
		for k := range l {
			l[k].Weight = 1 / float64(len(l))
		}
	}
}

func (b *builder) compact(t *Topology) {
	t.offsets = make([]int, len(b.lists)+1)
	total := 0
	for i, l := range b.lists {
		t.offsets[i] = total
		total += len(l)
	}
	t.offsets[len(b.lists)] = total
	t.edges = make([]Edge, 0, total)
	for _, l := range b.lists {
		t.edges = append(t.edges, l...)
	}
}
