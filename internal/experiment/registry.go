package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/phasefield/internal/metrics"
)

// DefaultLockThreshold is the r at which a field counts as locked.
const DefaultLockThreshold = 0.9

// Registry maps observer names to constructors.
type Registry struct {
	metrics map[string]func(params map[string]float64) metrics.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func(map[string]float64) metrics.Metric),
	}

	threshold := func(params map[string]float64) float64 {
		if v, ok := params["threshold"]; ok {
			return v
		}
		return DefaultLockThreshold
	}
	r.metrics["mean_r"] = func(map[string]float64) metrics.Metric { return metrics.NewMeanOrder() }
	r.metrics["peak_r"] = func(map[string]float64) metrics.Metric { return metrics.NewPeakOrder() }
	r.metrics["lock_time"] = func(params map[string]float64) metrics.Metric {
		return metrics.NewLockTime(threshold(params))
	}
	r.metrics["locked_fraction"] = func(params map[string]float64) metrics.Metric {
		return metrics.NewLockedFraction(threshold(params))
	}

	return r
}

func (r *Registry) GetMetric(name string, params map[string]float64) (metrics.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(params), nil
}

// ListMetrics returns the registered names, sorted.
func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns one of every registered observer.
func (r *Registry) DefaultMetrics(params map[string]float64) []metrics.Metric {
	out := make([]metrics.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		m, _ := r.GetMetric(name, params)
		out = append(out, m)
	}
	return out
}
