package sim_test

import (
	"io"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/metrics"
	"github.com/san-kum/phasefield/internal/sim"
	"github.com/san-kum/phasefield/internal/topology"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func still(phases ...float64) field.InitPolicy {
	return field.InitPolicy{
		Frequency: field.FreqConstant,
		Phase:     field.PhaseExplicit,
		Phases:    phases,
	}
}

func configured(g sim.Geometry, u sim.ParamUpdate) *sim.Engine {
	e := sim.New(sim.WithLogger(quietLogger), sim.WithSeed(7))
	Expect(e.Configure(g)).To(Succeed())
	Expect(e.SetParameters(u)).To(Succeed())
	return e
}

func advance(e *sim.Engine, steps int, dt float64) {
	for i := 0; i < steps; i++ {
		Expect(e.Advance(dt)).To(Succeed())
	}
}

var quarterTurns = []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}

var _ = Describe("Engine", func() {
	Describe("a 4x4 grid seeded with quarter turns", func() {
		geometry := func(wrap bool) sim.Geometry {
			g := sim.DefaultGeometry()
			g.Topology = topology.Params{Rows: 4, Cols: 4, Wrap: wrap}
			g.Init = still(quarterTurns...)
			return g
		}
		update := sim.ParamUpdate{Coupling: sim.Ptr(2.0), Noise: sim.Ptr(0.0)}

		It("starts fully incoherent", func() {
			e := configured(geometry(false), update)
			Expect(e.Metrics().R).To(BeNumerically("<", 1e-12))
		})

		It("synchronizes within 500 steps on clamped edges", func() {
			e := configured(geometry(false), update)
			advance(e, 500, 0.01)
			Expect(e.Metrics().R).To(BeNumerically(">", 0.95))
		})

		It("holds the twisted state on a torus", func() {
			e := configured(geometry(true), update)
			advance(e, 500, 0.01)
			Expect(e.Metrics().R).To(BeNumerically("<", 1e-3))
		})
	})

	Describe("two entangled nodes in antiphase", func() {
		var e *sim.Engine

		BeforeEach(func() {
			g := sim.DefaultGeometry()
			g.Kind = topology.Isolated
			g.Topology = topology.Params{Count: 2}
			g.Init = still(0, math.Pi)
			g.Quantum.PairCount = 1
			e = configured(g, sim.ParamUpdate{
				QuantumEnabled:    sim.Ptr(true),
				QuantumCoupling:   sim.Ptr(1.0),
				EmbodimentEnabled: sim.Ptr(false),
			})
		})

		It("pairs them with each other", func() {
			advance(e, 1, 0.01)
			Expect(e.Partner(0)).To(Equal(1))
			Expect(e.Partner(1)).To(Equal(0))
		})

		It("settles to a stable phase relation", func() {
			cosDelta := func() float64 {
				p := e.Phases()
				return math.Cos(p[1] - p[0])
			}
			advance(e, 8000, 0.01)
			before := cosDelta()
			advance(e, 100, 0.01)
			after := cosDelta()

			Expect(after).To(BeNumerically(">", 0.999))
			Expect(math.Abs(after - before)).To(BeNumerically("<", 1e-6))
		})
	})

	Describe("a unit membrane with six shells", func() {
		It("tags the outer shell boundary and the inner shell interior", func() {
			g := sim.DefaultGeometry()
			g.Kind = topology.Membrane
			g.Topology = topology.Params{Count: 800, Shells: 6, Radius: 1}
			e := configured(g, sim.ParamUpdate{})

			topo := e.Topology()
			var outer, inner int
			for i := 0; i < topo.N(); i++ {
				switch r := topo.NormalizedRadius(i); {
				case r == 1:
					outer++
					Expect(topo.IsBoundary(i)).To(BeTrue())
				case math.Abs(r-1.0/6) < 1e-12:
					inner++
					Expect(topo.IsBoundary(i)).To(BeFalse())
				}
			}
			Expect(outer).To(BeNumerically(">", 0))
			Expect(inner).To(BeNumerically(">", 0))
		})
	})

	Describe("invariants", func() {
		It("keeps every phase in [0, 2π) under heavy forcing", func() {
			g := sim.DefaultGeometry()
			g.Kind = topology.Membrane
			g.Topology = topology.Params{Count: 400, Shells: 4, Radius: 3}
			g.NoiseKind = "gaussian"
			e := configured(g, sim.ParamUpdate{
				Coupling:       sim.Ptr(25.0),
				Noise:          sim.Ptr(3.0),
				QuantumEnabled: sim.Ptr(true),
			})
			e.SetPointer(dynamo.Vec3{X: 2}, true)
			e.EmitTap(sim.Tap{Position: dynamo.Vec3{Y: 1}, Amplitude: 10})

			for s := 0; s < 300; s++ {
				Expect(e.Advance(0.05)).To(Succeed())
				for _, th := range e.Phases() {
					Expect(th).To(And(BeNumerically(">=", 0), BeNumerically("<", dynamo.TwoPi)))
				}
				m := e.Metrics()
				Expect(m.R).To(And(BeNumerically(">=", 0), BeNumerically("<=", 1)))
			}
		})

		It("drifts at natural frequency without coupling", func() {
			g := sim.DefaultGeometry()
			g.Topology = topology.Params{Rows: 3, Cols: 3}
			g.Init = field.InitPolicy{
				Frequency: field.FreqConstant,
				Center:    1.5,
				Phase:     field.PhaseExplicit,
				Phases:    []float64{0.1, 2, 4, 6},
			}
			e := configured(g, sim.ParamUpdate{Coupling: sim.Ptr(0.0)})

			start := e.Phases()
			advance(e, 200, 0.005)
			end := e.Phases()

			for i := range start {
				moved := dynamo.AngleDiff(end[i], start[i])
				Expect(moved).To(BeNumerically("~", 1.5, 1e-9))
			}
		})

		It("fully synchronizes an all-to-all population", func() {
			phases := make([]float64, 20)
			for i := range phases {
				phases[i] = math.Pi * float64(i) / 20
			}
			g := sim.DefaultGeometry()
			g.Kind = topology.AllToAll
			g.Topology = topology.Params{Count: 20}
			g.Init = still(phases...)
			e := configured(g, sim.ParamUpdate{Coupling: sim.Ptr(1.0)})

			advance(e, 2000, 0.01)
			Expect(e.Metrics().R).To(BeNumerically(">", 0.999))
		})

		It("keeps entanglement symmetric", func() {
			g := sim.DefaultGeometry()
			g.Kind = topology.Membrane
			g.Topology = topology.Params{Count: 300, Shells: 3}
			g.Quantum.PairCount = 12
			e := configured(g, sim.ParamUpdate{QuantumEnabled: sim.Ptr(true)})
			advance(e, 10, 0.01)

			pairs := 0
			for i := 0; i < e.Topology().N(); i++ {
				if p := e.Partner(i); p >= 0 {
					pairs++
					Expect(e.Partner(p)).To(Equal(i))
				}
			}
			Expect(pairs).To(Equal(24))
			Expect(e.Metrics().EntangledCount).To(Equal(12))
		})

		It("decays and retires ripples", func() {
			g := sim.DefaultGeometry()
			g.Topology = topology.Params{Rows: 10, Cols: 10}
			e := configured(g, sim.ParamUpdate{})
			e.EmitTap(sim.Tap{Position: dynamo.Vec3{X: 5, Y: 5}})

			advance(e, 1, 0.01)
			Expect(e.Metrics().Ripples).To(Equal(1))

			// lifetime 0.6 retires below envelope 1e-3 after ~4.15s
			advance(e, 450, 0.01)
			Expect(e.Metrics().Ripples).To(Equal(0))
		})

		It("reports observer-friendly snapshots", func() {
			e := configured(sim.DefaultGeometry(), sim.ParamUpdate{})
			peak := metrics.NewPeakOrder()
			for s := 0; s < 20; s++ {
				Expect(e.Advance(0.01)).To(Succeed())
				peak.Observe(e.Metrics())
			}
			Expect(peak.Value()).To(BeNumerically(">", 0))
			Expect(e.Metrics().Steps).To(Equal(uint64(20)))
		})
	})
})
