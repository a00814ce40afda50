package metrics

import "log/slog"

// Snapshot is a read-only view of field coherence at one instant.
type Snapshot struct {
	R         float64 `csv:"r"`
	Psi       float64 `csv:"psi"`
	RBoundary float64 `csv:"r_boundary"`
	RInterior float64 `csv:"r_interior"`

	CHSH                  float64 `csv:"chsh"`
	EntangledCount        int     `csv:"entangled"`
	Superposed            int     `csv:"superposed"`
	SuperpositionStrength float64 `csv:"superposition"`

	Entropy       float64 `csv:"entropy"`
	LocalOrder    float64 `csv:"local_order"`
	// Plaquette is the mean order of 2×2 grid cells; 0 off the grid.
	Plaquette     float64 `csv:"plaquette"`
	PhaseDiffMean float64 `csv:"phase_diff_mean"`
	PhaseDiffStd  float64 `csv:"phase_diff_std"`

	Ripples int     `csv:"ripples"`
	Time    float64 `csv:"t"`
	Steps   uint64  `csv:"steps"`
	Repairs uint64  `csv:"repairs"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("t", s.Time),
		slog.Uint64("steps", s.Steps),
		slog.Float64("r", s.R),
		slog.Float64("r_boundary", s.RBoundary),
		slog.Float64("r_interior", s.RInterior),
		slog.Float64("entropy", s.Entropy),
		slog.Float64("local_order", s.LocalOrder),
		slog.Float64("plaquette", s.Plaquette),
		slog.Float64("chsh", s.CHSH),
		slog.Int("entangled", s.EntangledCount),
		slog.Float64("superposition", s.SuperpositionStrength),
		slog.Uint64("repairs", s.Repairs),
	)
}
