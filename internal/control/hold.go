package control

import (
	"log/slog"
	"math"

	"github.com/san-kum/phasefield/internal/metrics"
	"github.com/san-kum/phasefield/internal/sim"
)

// Hold keeps the global order parameter near the PID target by setting
// K = Base + u on every sample, clamped to [0, Max].
type Hold struct {
	PID  *PID
	Base float64
	Max  float64

	log  *slog.Logger
	last float64
}

func NewHold(pid *PID, base, kMax float64) *Hold {
	if pid.IntegralLimit == 0 && pid.Ki > 0 {
		pid.IntegralLimit = kMax / pid.Ki
	}
	return &Hold{PID: pid, Base: base, Max: kMax, last: math.NaN()}
}

func (h *Hold) WithLogger(l *slog.Logger) *Hold {
	h.log = l
	return h
}

// Coupling returns the last K sent, NaN before the first sample.
func (h *Hold) Coupling() float64 { return h.last }

func (h *Hold) OnSample(e *sim.Engine, s metrics.Snapshot) {
	k := h.Base + h.PID.Compute(s.R, s.Time)
	k = math.Max(0, math.Min(h.Max, k))
	if math.IsNaN(k) {
		return
	}
	h.last = k
	// k is already in range, so no clamp is reported
	_ = e.SetParameters(sim.ParamUpdate{Coupling: sim.Ptr(k)})
	if h.log != nil {
		h.log.Debug("hold", "r", s.R, "target", h.PID.Target, "K", k)
	}
}
