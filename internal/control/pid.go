package control

import "math"

// PID computes u = Kp·e + Ki·∫e + Kd·de/dt for e = Target - measured.
// The integral is clamped to ±IntegralLimit when that is positive.
type PID struct {
	Kp            float64
	Ki            float64
	Kd            float64
	Target        float64
	IntegralLimit float64

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

func (p *PID) Compute(measured, t float64) float64 {
	err := p.Target - measured
	if p.first {
		p.prevErr, p.prevT, p.first = err, t, false
		return p.Kp*err + p.Ki*p.integral
	}

	dt := t - p.prevT
	if dt <= 0 {
		return p.Kp*err + p.Ki*p.integral
	}
	p.integral += err * dt
	if p.IntegralLimit > 0 {
		p.integral = math.Max(-p.IntegralLimit, math.Min(p.IntegralLimit, p.integral))
	}
	derivative := (err - p.prevErr) / dt
	p.prevErr, p.prevT = err, t
	return p.Kp*err + p.Ki*p.integral + p.Kd*derivative
}

// Reset clears integral and derivative state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}
