// Package dynamo provides the kernel primitives shared by the phase-field packages.
//
// The package is deliberately small:
//
//   - [Vec3]: node and pointer coordinates (2D geometries use Z = 0)
//   - [WrapPhase]: normalization of an angle into [0, 2π)
//   - [ParallelFor]: chunked fan-out used by the integrator's per-node loop
//   - domain errors ([ErrInvalidConfiguration], [ErrOutOfRange], ...) and the
//     typed wrappers [ConfigError] and [RangeError]
//
// # Errors
//
// Configuration problems are reported as *ConfigError and match
// ErrInvalidConfiguration with errors.Is. Out-of-range parameters are never
// fatal: the value is clamped and a *RangeError describing the clamp is returned
// alongside, matching ErrOutOfRange.
//
//	if err := topology.Validate(); errors.Is(err, dynamo.ErrStaleReference) {
//	    panic(err) // programming defect
//	}
package dynamo
