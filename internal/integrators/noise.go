package integrators

import (
	"fmt"
	"math/rand/v2"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/phasefield/internal/dynamo"
)

// NoiseKind selects the distribution of the per-node noise term ξ.
type NoiseKind string

const (
	NoiseUniform  NoiseKind = "uniform"
	NoiseGaussian NoiseKind = "gaussian"
	NoiseSimplex  NoiseKind = "simplex"
)

// NoiseSource fills dst with one unit-scale sample per node. Samples are
// drawn in node order so a seed fixes the sequence regardless of workers.
type NoiseSource interface {
	Fill(dst []float64, positions []dynamo.Vec3, t float64)
	Kind() NoiseKind
}

// NewNoise builds a seeded noise source. An empty kind selects uniform.
func NewNoise(kind NoiseKind, seed uint64) (NoiseSource, error) {
	src := rand.New(rand.NewPCG(seed, seed+1))
	switch kind {
	case NoiseUniform, "":
		return &sampled{kind: NoiseUniform, d: distuv.Uniform{Min: -1, Max: 1, Src: src}}, nil
	case NoiseGaussian:
		return &sampled{kind: NoiseGaussian, d: distuv.Normal{Mu: 0, Sigma: 1, Src: src}}, nil
	case NoiseSimplex:
		return &simplex{
			noise:    opensimplex.New(int64(seed)),
			spatial:  0.35,
			temporal: 0.5,
		}, nil
	}
	return nil, &dynamo.ConfigError{Field: "noise_kind", Value: kind, Reason: fmt.Sprintf("expected %s, %s or %s", NoiseUniform, NoiseGaussian, NoiseSimplex)}
}

type sampler interface {
	Rand() float64
}

type sampled struct {
	kind NoiseKind
	d    sampler
}

func (s *sampled) Kind() NoiseKind { return s.kind }

func (s *sampled) Fill(dst []float64, _ []dynamo.Vec3, _ float64) {
	for i := range dst {
		dst[i] = s.d.Rand()
	}
}

// simplex samples OpenSimplex noise at node position and time, so nearby
// nodes receive correlated kicks.
type simplex struct {
	noise    opensimplex.Noise
	spatial  float64
	temporal float64
}

func (s *simplex) Kind() NoiseKind { return NoiseSimplex }

func (s *simplex) Fill(dst []float64, positions []dynamo.Vec3, t float64) {
	for i := range dst {
		p := positions[i].Scale(s.spatial)
		dst[i] = s.noise.Eval4(p.X, p.Y, p.Z, t*s.temporal)
	}
}
