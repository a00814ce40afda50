package integrators

import (
	"testing"

	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/topology"
)

func benchmarkStep(b *testing.B, kind topology.Kind, p topology.Params) {
	topo, f := setup(b, kind, p, field.DefaultInitPolicy())
	noise, err := NewNoise(NoiseGaussian, 1)
	if err != nil {
		b.Fatal(err)
	}
	e := NewEuler(noise, topo.N())
	params := Params{Coupling: 1.5, Noise: 0.1}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Step(f, topo, Forcing{}, params, float64(i)*0.01, 0.01)
	}
}

func BenchmarkEulerGrid64(b *testing.B) {
	benchmarkStep(b, topology.Grid, topology.Params{Rows: 64, Cols: 64})
}

func BenchmarkEulerMembrane4k(b *testing.B) {
	benchmarkStep(b, topology.Membrane, topology.Params{Count: 4096, Shells: 8})
}

func BenchmarkEulerSpiral4k(b *testing.B) {
	benchmarkStep(b, topology.Spiral, topology.Params{Count: 4096})
}

func BenchmarkEulerAllToAll1k(b *testing.B) {
	benchmarkStep(b, topology.AllToAll, topology.Params{Count: 1024})
}
