// Package field holds the mutable per-node state of an oscillator population:
// double-buffered phases, natural frequencies, the superposition variant of
// each node and its entangled partner.
package field

import (
	"math"
	"math/rand/v2"

	"github.com/san-kum/phasefield/internal/dynamo"
)

// Mode tags the superposition variant of a node.
type Mode uint8

const (
	Resolved Mode = iota
	Superposed
)

func (m Mode) String() string {
	if m == Superposed {
		return "superposed"
	}
	return "resolved"
}

// Branch is a node's superposition state. A Superposed node carries two
// phases, the current phase (A) and phase+Offset (B), weighted by Alpha and
// Beta with Alpha²+Beta² = 1.
type Branch struct {
	Mode   Mode
	Offset float64
	Alpha  float64
	Beta   float64
}

// Balanced returns an evenly weighted superposition with branch offset.
func Balanced(offset float64) Branch {
	return Branch{Mode: Superposed, Offset: offset, Alpha: math.Sqrt2 / 2, Beta: math.Sqrt2 / 2}
}

// Field is owned by a single writer; it performs no locking.
type Field struct {
	phases   []float64
	next     []float64
	freq     []float64
	branches []Branch
	partner  []int

	rng *rand.Rand
}

// New allocates a field of n nodes with all phases zero and no partners.
func New(n int, seed uint64) *Field {
	f := &Field{
		phases:   make([]float64, n),
		next:     make([]float64, n),
		freq:     make([]float64, n),
		branches: make([]Branch, n),
		partner:  make([]int, n),
	}
	for i := range f.partner {
		f.partner[i] = -1
	}
	f.Reseed(seed)
	return f
}

// Reseed restarts the field's random stream.
func (f *Field) Reseed(seed uint64) {
	f.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Rand exposes the field's random stream to collaborators that must draw from
// the same deterministic sequence.
func (f *Field) Rand() *rand.Rand { return f.rng }

func (f *Field) N() int { return len(f.phases) }

// Phases returns the current phase buffer. Read-only for everyone but the integrator.
func (f *Field) Phases() []float64 { return f.phases }

// Next returns the write buffer for the step in progress.
func (f *Field) Next() []float64 { return f.next }

// Swap publishes the next buffer as current.
func (f *Field) Swap() { f.phases, f.next = f.next, f.phases }

func (f *Field) Phase(i int) float64 { return f.phases[i] }

func (f *Field) Frequencies() []float64 { return f.freq }

// SetPhase writes a wrapped phase directly. Used by initialization only.
func (f *Field) SetPhase(i int, theta float64) { f.phases[i] = dynamo.WrapPhase(theta) }

// RandomPhase draws a uniform phase in [0, 2π).
func (f *Field) RandomPhase() float64 { return f.rng.Float64() * dynamo.TwoPi }

func (f *Field) Branch(i int) *Branch { return &f.branches[i] }

// Partner returns the entangled partner of node i, or -1.
func (f *Field) Partner(i int) int { return f.partner[i] }

// Partners returns the partner table. Read-only.
func (f *Field) Partners() []int { return f.partner }

// Pair entangles i and j symmetrically.
func (f *Field) Pair(i, j int) error {
	n := f.N()
	if i < 0 || i >= n {
		return &dynamo.StaleReferenceError{Table: "partner", Node: j, Ref: i, N: n}
	}
	if j < 0 || j >= n || j == i {
		return &dynamo.StaleReferenceError{Table: "partner", Node: i, Ref: j, N: n}
	}
	f.partner[i] = j
	f.partner[j] = i
	return nil
}

// ClearQuantum drops all partners and resolves every node.
func (f *Field) ClearQuantum() {
	for i := range f.partner {
		f.partner[i] = -1
		f.branches[i] = Branch{}
	}
}

// ValidatePartners checks partner symmetry and bounds.
func (f *Field) ValidatePartners() error {
	n := f.N()
	for i, p := range f.partner {
		if p == -1 {
			continue
		}
		if p < 0 || p >= n || p == i || f.partner[p] != i {
			return &dynamo.StaleReferenceError{Table: "partner", Node: i, Ref: p, N: n}
		}
	}
	return nil
}

// PairCount returns the number of entangled pairs.
func (f *Field) PairCount() int {
	c := 0
	for i, p := range f.partner {
		if p > i {
			c++
		}
	}
	return c
}
