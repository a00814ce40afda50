// Package automation replays scripted input against a running engine.
//
// A [Script] is a YAML list of timed events (taps, pointer moves, parameter
// changes, perturbations). It is attached to an experiment runner as a hook
// and fires every event whose time has been reached at each sample, so event
// timing resolves to the runner's sample interval.
package automation

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/metrics"
	"github.com/san-kum/phasefield/internal/sim"
)

type Action string

const (
	Tap         Action = "tap"
	Touch       Action = "touch"
	Release     Action = "release"
	SetParams   Action = "params"
	Perturb     Action = "perturb"
	Uncertainty Action = "uncertainty"
)

// Event is one scripted input. Fields not used by Action are ignored.
type Event struct {
	At     float64    `yaml:"at"`
	Action Action     `yaml:"action"`
	Pos    [3]float64 `yaml:"pos,flow"`

	Amplitude float64 `yaml:"amplitude,omitempty"`
	Width     float64 `yaml:"width,omitempty"`

	Coupling       *float64 `yaml:"coupling,omitempty"`
	Noise          *float64 `yaml:"noise,omitempty"`
	Damping        *float64 `yaml:"damping,omitempty"`
	Permeability   *float64 `yaml:"permeability,omitempty"`
	Embodiment     *bool    `yaml:"embodiment,omitempty"`
	Quantum        *bool    `yaml:"quantum,omitempty"`
	TouchRadius    *float64 `yaml:"touch_radius,omitempty"`
	CollapseRadius *float64 `yaml:"collapse_radius,omitempty"`

	Fraction float64 `yaml:"fraction,omitempty"`
	Strength float64 `yaml:"strength,omitempty"`
	Level    float64 `yaml:"level,omitempty"`
}

func (ev Event) position() dynamo.Vec3 {
	return dynamo.Vec3{X: ev.Pos[0], Y: ev.Pos[1], Z: ev.Pos[2]}
}

type Script struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Events      []Event `yaml:"events"`

	next int
	log  *slog.Logger
}

// LoadScript reads and validates a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
	return &s, nil
}

func (s *Script) validate() error {
	for i, ev := range s.Events {
		switch ev.Action {
		case Tap, Touch, Release, SetParams, Perturb, Uncertainty:
		default:
			return &dynamo.ConfigError{Field: fmt.Sprintf("events[%d].action", i), Value: ev.Action, Reason: "unknown action"}
		}
		if !(ev.At >= 0) {
			return &dynamo.ConfigError{Field: fmt.Sprintf("events[%d].at", i), Value: ev.At, Reason: "must be a non-negative time"}
		}
	}
	return nil
}

// WithLogger sets the logger fired events are reported to.
func (s *Script) WithLogger(l *slog.Logger) *Script {
	s.log = l
	return s
}

// Pending returns the number of events not yet fired.
func (s *Script) Pending() int { return len(s.Events) - s.next }

// Rewind makes every event pending again.
func (s *Script) Rewind() { s.next = 0 }

// OnSample fires every pending event due at or before the sample time.
func (s *Script) OnSample(e *sim.Engine, snap metrics.Snapshot) {
	for s.next < len(s.Events) && s.Events[s.next].At <= snap.Time {
		ev := s.Events[s.next]
		s.next++
		if err := Apply(e, ev); err != nil && s.log != nil {
			s.log.Warn("script event clamped", "action", ev.Action, "at", ev.At, "err", err)
		}
		if s.log != nil {
			s.log.Debug("script event", "action", ev.Action, "at", ev.At, "t", snap.Time)
		}
	}
}

// Apply sends one event through the engine's input surface.
func Apply(e *sim.Engine, ev Event) error {
	switch ev.Action {
	case Tap:
		e.EmitTap(sim.Tap{Position: ev.position(), Amplitude: ev.Amplitude, Width: ev.Width})
	case Touch:
		e.SetPointer(ev.position(), true)
	case Release:
		e.SetPointer(ev.position(), false)
	case SetParams:
		return e.SetParameters(sim.ParamUpdate{
			Coupling:          ev.Coupling,
			Noise:             ev.Noise,
			Damping:           ev.Damping,
			Permeability:      ev.Permeability,
			EmbodimentEnabled: ev.Embodiment,
			QuantumEnabled:    ev.Quantum,
			TouchRadius:       ev.TouchRadius,
			CollapseRadius:    ev.CollapseRadius,
		})
	case Perturb:
		return e.Perturb(ev.Fraction, ev.Strength)
	case Uncertainty:
		e.InjectUncertainty(ev.Level)
	default:
		return fmt.Errorf("unknown action %q: %w", ev.Action, dynamo.ErrInvalidConfiguration)
	}
	return nil
}
