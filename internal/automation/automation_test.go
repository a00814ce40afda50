package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/experiment"
	"github.com/san-kum/phasefield/internal/sim"
	"github.com/san-kum/phasefield/internal/topology"
)

const script = `
name: kick
description: tap, then lock the field
events:
  - at: 0.5
    action: params
    coupling: 3
  - at: 0
    action: tap
    pos: [2, 2, 0]
  - at: 0.2
    action: touch
    pos: [1, 1, 0]
  - at: 0.3
    action: release
`

func TestParseScriptSortsEvents(t *testing.T) {
	s, err := ParseScript([]byte(script))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Name != "kick" || len(s.Events) != 4 {
		t.Fatalf("unexpected script %+v", s)
	}
	for i := 1; i < len(s.Events); i++ {
		if s.Events[i].At < s.Events[i-1].At {
			t.Errorf("events out of order at %d", i)
		}
	}
	if s.Events[0].Action != Tap {
		t.Errorf("expected tap first, got %s", s.Events[0].Action)
	}
	if s.Events[3].Coupling == nil || *s.Events[3].Coupling != 3 {
		t.Error("coupling not parsed")
	}
}

func TestParseScriptRejectsUnknownAction(t *testing.T) {
	_, err := ParseScript([]byte("events:\n  - at: 1\n    action: explode\n"))
	if !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("expected invalid configuration, got %v", err)
	}
	_, err = ParseScript([]byte("events:\n  - at: -1\n    action: tap\n"))
	if err == nil {
		t.Error("expected error for negative time")
	}
}

func TestScriptDrivesEngine(t *testing.T) {
	s, err := ParseScript([]byte(script))
	if err != nil {
		t.Fatal(err)
	}
	g := sim.DefaultGeometry()
	g.Topology = topology.Params{Rows: 6, Cols: 6}
	p := sim.DefaultParams()
	p.Coupling = 0.5
	r, err := experiment.New(experiment.Config{Geometry: g, Params: p, Steps: 100, Dt: 0.01, SampleEvery: 5},
		sim.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	r.AddHook(s.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Pending() != 0 {
		t.Errorf("expected all events fired, %d pending", s.Pending())
	}
	if got := r.Engine().Parameters().Coupling; got != 3 {
		t.Errorf("coupling = %v, want 3", got)
	}
	sawRipple := false
	for _, snap := range result.Samples {
		if snap.Ripples > 0 {
			sawRipple = true
		}
	}
	if !sawRipple {
		t.Error("tap never produced a ripple")
	}

	s.Rewind()
	if s.Pending() != 4 {
		t.Errorf("rewind left %d pending", s.Pending())
	}
}

func TestApplyPerturbClamps(t *testing.T) {
	e := sim.New(sim.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := e.Configure(sim.DefaultGeometry()); err != nil {
		t.Fatal(err)
	}
	err := Apply(e, Event{Action: Perturb, Fraction: 2, Strength: 1})
	if !errors.Is(err, dynamo.ErrOutOfRange) {
		t.Errorf("expected out of range, got %v", err)
	}
	if err := Apply(e, Event{Action: "nope"}); !errors.Is(err, dynamo.ErrInvalidConfiguration) {
		t.Errorf("expected invalid configuration, got %v", err)
	}
}
