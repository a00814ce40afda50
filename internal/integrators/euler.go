package integrators

import (
	"math"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/topology"
)

// Nodes per worker below which coupling runs inline.
const minChunk = 256

// Params are the per-step physical parameters.
type Params struct {
	Coupling     float64 // K
	Noise        float64 // σ
	Damping      float64 // γ
	Permeability float64 // boundary noise gain on membranes
	Workers      int
}

// Forcing carries external per-node terms for one step. Nil slices are
// treated as zero. Jump is consumed: Step zeroes every entry it applies.
type Forcing struct {
	Drive []float64
	Jump  []float64
}

// Euler advances a phase field by one explicit Euler step of
//
//	dθ_i/dt = ω_i + K·g_i·Σ_j w_ij sin(θ_j - θ_i) + σ_i·ξ_i + F_i
//
// writing into the field's next buffer and swapping.
type Euler struct {
	noise NoiseSource
	xi    []float64
}

func NewEuler(noise NoiseSource, n int) *Euler {
	return &Euler{noise: noise, xi: make([]float64, n)}
}

func (e *Euler) Noise() NoiseSource { return e.noise }

// BoundaryGain is g_i for node i: 0.7 + 0.6·r on membrane boundary nodes,
// 1 everywhere else.
func BoundaryGain(topo *topology.Topology, i int) float64 {
	if topo.Skin() && topo.IsBoundary(i) {
		return 0.7 + 0.6*topo.NormalizedRadius(i)
	}
	return 1
}

// Step integrates one step and returns how many non-finite phases were
// replaced with fresh random ones.
func (e *Euler) Step(f *field.Field, topo *topology.Topology, in Forcing, p Params, t, dt float64) int {
	n := f.N()
	if len(e.xi) != n {
		e.xi = make([]float64, n)
	}
	noisy := p.Noise > 0 && e.noise != nil
	if noisy {
		e.noise.Fill(e.xi, topo.Positions(), t)
	}

	decay := 1.0
	if p.Damping > 0 {
		decay = math.Exp(-p.Damping * dt)
	}

	cur, next, freq := f.Phases(), f.Next(), f.Frequencies()
	skin := topo.Skin()

	dynamo.ParallelFor(n, minChunk, p.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			th := cur[i]
			skinNode := skin && topo.IsBoundary(i)
			g := 1.0
			if skinNode {
				g = BoundaryGain(topo, i)
			}

			var sum float64
			for _, edge := range topo.Neighbors(i) {
				sum += edge.Weight * math.Sin(cur[edge.To]-th)
			}
			rate := freq[i] + p.Coupling*g*sum

			if noisy {
				sigma := p.Noise
				if skinNode {
					sigma *= 1 + p.Permeability*g
				}
				rate += sigma * e.xi[i]
			}
			if in.Drive != nil {
				rate += in.Drive[i]
			}

			inc := dt * rate * decay
			if in.Jump != nil {
				inc += in.Jump[i]
				in.Jump[i] = 0
			}
			next[i] = dynamo.WrapPhase(th + inc)
		}
	})

	repaired := 0
	for i, th := range next {
		if !dynamo.IsFinite(th) {
			next[i] = f.RandomPhase()
			repaired++
		}
	}

	f.Swap()
	return repaired
}
