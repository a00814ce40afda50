package topology

import (
	"math"

	"github.com/san-kum/phasefield/internal/dynamo"
)

const (
	DefaultNeighbors        = 6
	DefaultBoundaryFraction = 0.3
	DefaultRadius           = 1.0
	DefaultSpacing          = 1.0
	DefaultReach            = 8
	DefaultBaseWeight       = 1.0

	// MaxAllToAll caps the explicit O(N²) legacy mode.
	MaxAllToAll = 1024
)

// Params carries every geometry's parameters; each Kind reads its own subset.
//
//	grid:       Rows, Cols, Moore, Wrap
//	lattice:    Rows, Cols, Depth, Wrap
//	membrane:   Count, Shells, Radius, Neighbors
//	spiral:     Count, Spacing, Reach, BaseWeight
//	all_to_all: Count
//	isolated:   Count
//
// BoundaryFraction applies to all kinds.
type Params struct {
	Rows  int
	Cols  int
	Depth int
	Moore bool
	Wrap  bool

	Count     int
	Shells    int
	Radius    float64
	Neighbors int

	Spacing    float64
	Reach      int
	BaseWeight float64

	// BoundaryFraction is the outer share of the radius tagged boundary.
	// Zero selects DefaultBoundaryFraction; negative disables boundary tags.
	BoundaryFraction float64
}

func (p Params) withDefaults(kind Kind) Params {
	if p.BoundaryFraction == 0 {
		p.BoundaryFraction = DefaultBoundaryFraction
	}
	switch kind {
	case Lattice:
		if p.Depth == 0 {
			p.Depth = 1
		}
	case Membrane:
		if p.Shells == 0 {
			p.Shells = 1
		}
		if p.Radius == 0 {
			p.Radius = DefaultRadius
		}
		if p.Neighbors == 0 {
			p.Neighbors = DefaultNeighbors
		}
	case Spiral:
		if p.Spacing == 0 {
			p.Spacing = DefaultSpacing
		}
		if p.Reach == 0 {
			p.Reach = DefaultReach
		}
		if p.BaseWeight == 0 {
			p.BaseWeight = DefaultBaseWeight
		}
	}
	return p
}

// NodeCount returns the N a geometry would produce, without building it.
func (p Params) NodeCount(kind Kind) int {
	switch kind {
	case Grid:
		return p.Rows * p.Cols
	case Lattice:
		return p.Rows * p.Cols * p.Depth
	default:
		return p.Count
	}
}

func (p Params) validate(kind Kind) error {
	bad := func(field string, v any, reason string) error {
		return &dynamo.ConfigError{Field: field, Value: v, Reason: reason}
	}
	switch kind {
	case Grid, Lattice:
		if p.Rows < 0 || p.Cols < 0 || p.Depth < 0 {
			return bad("rows/cols/depth", [3]int{p.Rows, p.Cols, p.Depth}, "dimensions must not be negative")
		}
	case Membrane:
		if p.Count < 0 {
			return bad("count", p.Count, "must not be negative")
		}
		if p.Radius < 0 || math.IsNaN(p.Radius) || math.IsInf(p.Radius, 0) {
			return bad("radius", p.Radius, "must be a positive finite number")
		}
		if p.Shells < 0 {
			return bad("shells", p.Shells, "must not be negative")
		}
		if p.Count > 0 && p.Shells > p.Count {
			return bad("shells", p.Shells, "more shells than nodes")
		}
		if p.Neighbors < 0 {
			return bad("neighbors", p.Neighbors, "must not be negative")
		}
	case Spiral:
		if p.Count < 0 {
			return bad("count", p.Count, "must not be negative")
		}
		if p.Spacing < 0 || p.Reach < 0 || p.BaseWeight < 0 {
			return bad("spacing/reach/base_weight", [3]float64{p.Spacing, float64(p.Reach), p.BaseWeight}, "must not be negative")
		}
	case AllToAll:
		if p.Count > MaxAllToAll {
			return bad("count", p.Count, "all_to_all is capped at 1024 nodes")
		}
		if p.Count < 0 {
			return bad("count", p.Count, "must not be negative")
		}
	case Isolated:
		if p.Count < 0 {
			return bad("count", p.Count, "must not be negative")
		}
	default:
		return bad("kind", kind, "unknown geometry")
	}
	if p.BoundaryFraction > 1 || math.IsNaN(p.BoundaryFraction) {
		return bad("boundary_fraction", p.BoundaryFraction, "must be at most 1")
	}
	if p.NodeCount(kind) == 0 {
		return bad("node_count", 0, "geometry yields no nodes")
	}
	return nil
}
