package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for field operations.
var (
	// ErrInvalidConfiguration indicates a geometry or parameter combination that
	// cannot produce a field (N = 0, negative radius, ...).
	ErrInvalidConfiguration = errors.New("dynamo: invalid configuration")

	// ErrOutOfRange indicates a parameter was clamped to its nearest valid bound.
	ErrOutOfRange = errors.New("dynamo: parameter out of range (clamped)")

	// ErrStaleReference indicates a neighbor or partner index outside [0, N).
	// It is a programming defect, never a runtime condition.
	ErrStaleReference = errors.New("dynamo: stale node reference")

	// ErrNotConfigured indicates an operation on a field that was never built.
	ErrNotConfigured = errors.New("dynamo: field not configured")

	// ErrNonPositiveStep indicates a dt <= 0 (or NaN) passed to Advance.
	ErrNonPositiveStep = errors.New("dynamo: time step must be positive")
)

// ConfigError wraps ErrInvalidConfiguration with the offending field.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// RangeError records a clamp applied to an out-of-range parameter.
type RangeError struct {
	Field   string
	Given   float64
	Clamped float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s=%g out of range, clamped to %g", e.Field, e.Given, e.Clamped)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// StaleReferenceError reports which table held the bad index.
type StaleReferenceError struct {
	Table string
	Node  int
	Ref   int
	N     int
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("%s[%d] -> %d outside [0, %d)", e.Table, e.Node, e.Ref, e.N)
}

func (e *StaleReferenceError) Unwrap() error {
	return ErrStaleReference
}
