// Package optim searches engine parameters for the best value of a run metric.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/phasefield/internal/experiment"
	"github.com/san-kum/phasefield/internal/sim"
)

// Setters names the parameters a grid may vary.
var Setters = map[string]func(p *sim.Params, v float64){
	"coupling":         func(p *sim.Params, v float64) { p.Coupling = v },
	"noise":            func(p *sim.Params, v float64) { p.Noise = v },
	"damping":          func(p *sim.Params, v float64) { p.Damping = v },
	"permeability":     func(p *sim.Params, v float64) { p.Permeability = v },
	"touch_strength":   func(p *sim.Params, v float64) { p.TouchStrength = v },
	"quantum_coupling": func(p *sim.Params, v float64) { p.QuantumCoupling = v },
}

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
}

// GridSearch evaluates every combination of the given parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Maximize flips the objective; by default lower is better.
	Maximize bool
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, ok := Setters[name]; !ok {
			return nil, fmt.Errorf("unknown parameter: %s", name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Linspace returns n evenly spaced values in [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// Search runs base once per grid point and scores it with the named metric
// of the runner's registry. It returns the best trial and every trial in
// evaluation order. NaN scores (a lock that never happened) never win.
func (g *GridSearch) Search(ctx context.Context, base experiment.Config, metricName string, opts ...sim.Option) (Trial, []Trial, error) {
	registry := experiment.NewRegistry()
	if _, err := registry.GetMetric(metricName, nil); err != nil {
		return Trial{}, nil, err
	}

	best := Trial{Value: math.Inf(1)}
	if g.Maximize {
		best.Value = math.Inf(-1)
	}
	var trials []Trial
	err := g.searchRecursive(ctx, 0, map[string]float64{}, func(point map[string]float64) error {
		cfg := base
		for name, v := range point {
			Setters[name](&cfg.Params, v)
		}
		r, err := experiment.New(cfg, opts...)
		if err != nil {
			return err
		}
		m, _ := registry.GetMetric(metricName, nil)
		r.AddMetric(m)
		result, err := r.Run(ctx)
		if err != nil {
			return err
		}

		t := Trial{Params: point, Value: result.Metrics[metricName]}
		trials = append(trials, t)
		if g.better(t.Value, best.Value) {
			best = t
		}
		return nil
	})
	if best.Params == nil && err == nil {
		err = fmt.Errorf("no grid point produced a finite %s", metricName)
	}
	return best, trials, err
}

func (g *GridSearch) better(v, than float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if g.Maximize {
		return v > than
	}
	return v < than
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, eval func(map[string]float64) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		return eval(current)
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		if err := g.searchRecursive(ctx, depth+1, next, eval); err != nil {
			return err
		}
	}
	return nil
}

// ParamNames lists the names Setters accepts, sorted.
func ParamNames() []string {
	names := make([]string, 0, len(Setters))
	for name := range Setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
