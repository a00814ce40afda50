package sim

import (
	"errors"
	"math"

	"github.com/san-kum/phasefield/internal/dynamo"
)

// MaxMagnitude caps every unbounded rate parameter.
const MaxMagnitude = 1e6

// apply merges u into p, clamping out-of-range values. Every clamp is
// reported as a *dynamo.RangeError in the joined error; p is always usable.
func (p *Params) apply(u ParamUpdate) error {
	var errs []error
	clamp := func(name string, dst *float64, src *float64, lo, hi float64) {
		if src == nil {
			return
		}
		v := *src
		switch {
		case math.IsNaN(v):
			errs = append(errs, &dynamo.RangeError{Field: name, Given: v, Clamped: lo})
			v = lo
		case v < lo:
			errs = append(errs, &dynamo.RangeError{Field: name, Given: v, Clamped: lo})
			v = lo
		case v > hi:
			errs = append(errs, &dynamo.RangeError{Field: name, Given: v, Clamped: hi})
			v = hi
		}
		*dst = v
	}
	positive := func(name string, dst *float64, src *float64, floor float64) {
		if src == nil {
			return
		}
		v := *src
		if !(v > 0) || v > MaxMagnitude {
			errs = append(errs, &dynamo.RangeError{Field: name, Given: v, Clamped: floor})
			v = floor
		}
		*dst = v
	}

	inf := MaxMagnitude
	clamp("coupling", &p.Coupling, u.Coupling, 0, inf)
	clamp("noise", &p.Noise, u.Noise, 0, inf)
	clamp("damping", &p.Damping, u.Damping, 0, inf)
	clamp("permeability", &p.Permeability, u.Permeability, 0, inf)
	positive("max_dt", &p.MaxDt, u.MaxDt, DefaultMaxDt)
	positive("dt", &p.Dt, u.Dt, MinDt)
	if p.Dt > p.MaxDt {
		errs = append(errs, &dynamo.RangeError{Field: "dt", Given: p.Dt, Clamped: p.MaxDt})
		p.Dt = p.MaxDt
	}

	if u.EmbodimentEnabled != nil {
		p.EmbodimentEnabled = *u.EmbodimentEnabled
	}
	positive("touch_radius", &p.TouchRadius, u.TouchRadius, MinTouchRadius)
	clamp("touch_strength", &p.TouchStrength, u.TouchStrength, 0, inf)

	if u.QuantumEnabled != nil {
		p.QuantumEnabled = *u.QuantumEnabled
	}
	clamp("quantum_coupling", &p.QuantumCoupling, u.QuantumCoupling, 0, inf)
	clamp("collapse_radius", &p.CollapseRadius, u.CollapseRadius, 0, inf)

	if u.Workers != nil {
		p.Workers = *u.Workers
		if p.Workers < 0 {
			errs = append(errs, &dynamo.RangeError{Field: "workers", Given: float64(*u.Workers), Clamped: 0})
			p.Workers = 0
		}
	}
	return errors.Join(errs...)
}
