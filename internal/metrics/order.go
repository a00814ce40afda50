// Package metrics reads coherence measures off a phase field. Nothing here
// mutates state.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/topology"
)

// DefaultEntropyBins is the histogram resolution for Entropy.
const DefaultEntropyBins = 32

// Order returns the Kuramoto order parameter r·e^{iψ} of phases as (r, ψ).
// An empty population has r = 0.
func Order(phases []float64) (r, psi float64) {
	if len(phases) == 0 {
		return 0, 0
	}
	var re, im float64
	for _, th := range phases {
		re += math.Cos(th)
		im += math.Sin(th)
	}
	return polar(re, im, len(phases))
}

// OrderOf is Order restricted to the given node indices.
func OrderOf(phases []float64, nodes []int) (r, psi float64) {
	if len(nodes) == 0 {
		return 0, 0
	}
	var re, im float64
	for _, i := range nodes {
		re += math.Cos(phases[i])
		im += math.Sin(phases[i])
	}
	return polar(re, im, len(nodes))
}

func polar(re, im float64, n int) (float64, float64) {
	re /= float64(n)
	im /= float64(n)
	r := math.Min(1, math.Hypot(re, im))
	psi := 0.0
	if r > 0 {
		psi = dynamo.WrapPhase(math.Atan2(im, re))
	}
	return r, psi
}

// Entropy is the Shannon entropy of the phase histogram normalized by
// log(bins): 0 when every phase shares a bin, 1 when bins are equally full.
func Entropy(phases []float64, bins int) float64 {
	if len(phases) == 0 || bins < 2 {
		return 0
	}
	p := make([]float64, bins)
	for _, th := range phases {
		b := int(dynamo.WrapPhase(th) / dynamo.TwoPi * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		p[b]++
	}
	for i := range p {
		p[i] /= float64(len(phases))
	}
	return stat.Entropy(p) / math.Log(float64(bins))
}

// NeighborSpread returns the mean and sample standard deviation of
// |θ_j - θ_i| folded into [0, π] over every coupling edge. It accumulates in
// one pass and does not allocate.
func NeighborSpread(phases []float64, topo *topology.Topology) (mean, std float64) {
	var n int
	var m2 float64
	for i := range phases {
		for _, e := range topo.Neighbors(i) {
			d := math.Abs(dynamo.AngleDiff(phases[e.To], phases[i]))
			n++
			delta := d - mean
			mean += delta / float64(n)
			m2 += delta * (d - mean)
		}
	}
	if n < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(n-1))
}

// PlaquetteOrder writes into out the order parameter of every 2×2 cell of a
// grid, row-major over (rows-1)×(cols-1) cells, and returns their mean.
// Non-grid topologies and grids without a full cell return 0. out may be nil.
func PlaquetteOrder(phases []float64, topo *topology.Topology, out []float64) float64 {
	if topo.Kind() != topology.Grid {
		return 0
	}
	p := topo.Params()
	if p.Rows < 2 || p.Cols < 2 {
		return 0
	}
	var total float64
	k := 0
	for r := 0; r < p.Rows-1; r++ {
		for c := 0; c < p.Cols-1; c++ {
			var re, im float64
			for _, i := range [4]int{r*p.Cols + c, r*p.Cols + c + 1, (r+1)*p.Cols + c, (r+1)*p.Cols + c + 1} {
				re += math.Cos(phases[i])
				im += math.Sin(phases[i])
			}
			cell, _ := polar(re, im, 4)
			if out != nil {
				out[k] = cell
			}
			total += cell
			k++
		}
	}
	return total / float64(k)
}

// LocalOrder writes into out the order parameter of every node's closed
// neighborhood (itself plus its neighbors) and returns the field mean.
// out may be nil when only the mean is wanted.
func LocalOrder(phases []float64, topo *topology.Topology, out []float64) float64 {
	if len(phases) == 0 {
		return 0
	}
	var total float64
	for i, th := range phases {
		re, im := math.Cos(th), math.Sin(th)
		nb := topo.Neighbors(i)
		for _, e := range nb {
			re += math.Cos(phases[e.To])
			im += math.Sin(phases[e.To])
		}
		r, _ := polar(re, im, len(nb)+1)
		if out != nil {
			out[i] = r
		}
		total += r
	}
	return total / float64(len(phases))
}
