package config

import (
	"math"
	"sort"
	"strings"
)

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"grid": {
		"sync": preset(func(c *Config) {
			c.Params.Coupling = 2
			c.Init.Spread = 0.5
		}),
		"scenario_a": preset(func(c *Config) {
			c.Geometry.Rows, c.Geometry.Cols = 4, 4
			c.Params.Coupling = 2
			c.Init.Frequency = "constant"
			c.Init.Phase = "explicit"
			c.Init.Phases = []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
			c.Embodiment.Enabled = false
			c.Run.Steps = 500
		}),
		"torus": preset(func(c *Config) {
			c.Geometry.Wrap = true
			c.Geometry.Moore = true
			c.Params.Noise = 0.1
			c.Init.Phase = "wave"
		}),
	},
	"membrane": {
		"skin": preset(func(c *Config) {
			c.Geometry = GeometryConfig{Kind: "membrane", Count: 2400, Shells: 6}
			c.Params.Noise = 0.2
			c.Params.NoiseKind = "simplex"
			c.Params.Permeability = 1
		}),
		"entangled": preset(func(c *Config) {
			c.Geometry = GeometryConfig{Kind: "membrane", Count: 1200, Shells: 4}
			c.Params.Coupling = 1.5
			c.Quantum.Enabled = true
			c.Quantum.Pairs = 24
			c.Nexus.Enabled = true
		}),
	},
	"spiral": {
		"bloom": preset(func(c *Config) {
			c.Geometry = GeometryConfig{Kind: "spiral", Count: 1597, Reach: 8}
			c.Init.Phase = "spiral"
			c.Init.Twist = 2
			c.Params.Coupling = 0.8
		}),
	},
	"lattice": {
		"cube": preset(func(c *Config) {
			c.Geometry = GeometryConfig{Kind: "lattice", Rows: 12, Cols: 12, Depth: 12}
			c.Init.Frequency = "gaussian"
			c.Params.Noise = 0.05
			c.Params.NoiseKind = "gaussian"
		}),
	},
	"all_to_all": {
		"mean_field": preset(func(c *Config) {
			c.Geometry = GeometryConfig{Kind: "all_to_all", Count: 512}
			c.Init.Frequency = "bimodal"
			c.Init.Spread = 0.6
			c.Embodiment.Enabled = false
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil if it does not exist.
func GetPreset(group, name string) *Config {
	if m, ok := Presets[group]; ok {
		if c, ok := m[name]; ok {
			return c.Clone()
		}
	}
	return nil
}

// Lookup resolves a "group/name" reference.
func Lookup(ref string) *Config {
	group, name, ok := strings.Cut(ref, "/")
	if !ok {
		return nil
	}
	return GetPreset(group, name)
}

func ListPresets(group string) []string {
	m, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListGroups() []string {
	groups := make([]string, 0, len(Presets))
	for g := range Presets {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
